/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warehouse-gin",
	Short: "Warehouse task dashboard API server",
	Long: `Warehouse Gin is a REST API server for production floor task management.
It tracks the lifecycle of logistics and production tasks (claim, search,
missing report, audit, completion) and pushes live updates to shop floor
dashboards over WebSocket and SSE.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCmd 返回根命令(用于测试)
func GetRootCmd() *cobra.Command {
	return rootCmd
}
