package utils

import (
	"errors"
	"regexp"
	"strings"
)

// 查询接口允许的排序字段白名单
var allowedSortFields = map[string]struct{}{
	"created_at":  {},
	"priority":    {},
	"state":       {},
	"part_number": {},
	"workplace":   {},
}

// ValidateSortField 验证排序字段,防止 SQL 注入
func ValidateSortField(field string) error {
	if field == "" {
		return errors.New("sort field cannot be empty")
	}

	// 只允许字母、数字、下划线
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_]+$`, field)
	if !matched {
		return errors.New("invalid sort field format")
	}

	if _, ok := allowedSortFields[strings.ToLower(field)]; !ok {
		return errors.New("sort field not allowed")
	}

	return nil
}

// ValidateSortOrder 验证排序方向
func ValidateSortOrder(order string) error {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder != "ASC" && upperOrder != "DESC" {
		return errors.New("sort order must be ASC or DESC")
	}
	return nil
}

// SanitizeSortOrder 清理排序方向,非法输入回退为升序
func SanitizeSortOrder(order string) string {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder == "ASC" || upperOrder == "DESC" {
		return upperOrder
	}
	return "ASC"
}
