/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mautops/warehouse-gin/internal/auth"
	"github.com/mautops/warehouse-gin/internal/config"
	"github.com/mautops/warehouse-gin/internal/database"
	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/model"
	"github.com/mautops/warehouse-gin/internal/repository"
	"github.com/spf13/cobra"
)

// 默认角色与权限集合
// WORKER 覆盖工位平板上的日常按钮,LEADER 额外拿到锁定/稽核/通知确认,
// ADMIN 不需要记录,引擎内置旁路
var defaultRoles = map[string]struct {
	rank        int
	permissions []string
}{
	"WORKER": {
		rank: 1,
		permissions: []string{
			engine.PermBtnFinish,
			engine.PermBtnSearch,
			engine.PermBtnMissing,
			engine.PermBtnRelease,
			engine.PermBtnNote,
		},
	},
	"LEADER": {
		rank: 2,
		permissions: []string{
			engine.PermCreateTask,
			engine.PermBtnFinish,
			engine.PermBtnFinishDirect,
			engine.PermBtnSearch,
			engine.PermBtnMissing,
			engine.PermBtnManualBlock,
			engine.PermBtnIncorrect,
			engine.PermBtnRelease,
			engine.PermBtnNote,
			engine.PermBtnAudit,
			engine.PermAckNotification,
		},
	},
}

// seedCmd represents the seed-roles command
var seedCmd = &cobra.Command{
	Use:   "seed-roles",
	Short: "Seed default roles and the first admin operator",
	Long: `Seed the database with the default WORKER and LEADER roles and,
when --admin-id and --admin-pin are given, the first ADMIN operator.
Existing roles are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 连接数据库并迁移
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer func() {
			sqlDB, _ := db.DB()
			if sqlDB != nil {
				sqlDB.Close()
			}
		}()
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		ctx := context.Background()
		roles := repository.NewRoleRepository(db)
		operators := repository.NewOperatorRepository(db)

		// 3. 写入默认角色,已存在的跳过
		for name, def := range defaultRoles {
			if _, err := roles.FindByName(ctx, name); err == nil {
				log.Printf("Role %s already exists, skipping", name)
				continue
			}

			payload, err := json.Marshal(def.permissions)
			if err != nil {
				return err
			}
			now := time.Now()
			role := &model.RoleModel{
				Name:        name,
				Rank:        def.rank,
				Permissions: payload,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := roles.Create(ctx, role); err != nil {
				return fmt.Errorf("failed to create role %s: %w", name, err)
			}
			log.Printf("Created role %s (rank %d)", name, def.rank)
		}

		// 4. 可选:创建首个管理员操作员
		adminID, _ := cmd.Flags().GetString("admin-id")
		adminPIN, _ := cmd.Flags().GetString("admin-pin")
		if adminID != "" {
			if adminPIN == "" {
				return fmt.Errorf("--admin-pin is required with --admin-id")
			}
			if _, err := operators.FindByID(ctx, adminID); err == nil {
				log.Printf("Operator %s already exists, skipping", adminID)
				return nil
			}

			pinHash, err := auth.HashPIN(adminPIN)
			if err != nil {
				return fmt.Errorf("failed to hash admin pin: %w", err)
			}
			now := time.Now()
			op := &model.OperatorModel{
				ID:        adminID,
				Name:      "Administrator",
				RoleName:  engine.RoleAdmin,
				PINHash:   pinHash,
				Active:    true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := operators.Create(ctx, op); err != nil {
				return fmt.Errorf("failed to create admin operator: %w", err)
			}
			log.Printf("Created admin operator %s", adminID)
		}

		log.Println("Seed completed successfully!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	seedCmd.Flags().String("admin-id", "", "Badge ID for the first admin operator")
	seedCmd.Flags().String("admin-pin", "", "PIN for the first admin operator")
}
