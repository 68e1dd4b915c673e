package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// SanitizeString 清理字符串,移除或转义危险字符
// 任务备注和缺料原因来自车间平板的自由文本输入,落库前统一清理
func SanitizeString(input string) string {
	// HTML 转义,防止 XSS
	sanitized := html.EscapeString(input)

	// 移除控制字符(除了换行符和制表符)
	var result strings.Builder
	for _, r := range sanitized {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		result.WriteRune(r)
	}

	return result.String()
}

// ValidateTaskID 验证任务 ID 格式
func ValidateTaskID(id string) error {
	if id == "" {
		return ErrEmptyID
	}

	// 只允许字母、数字、连字符、下划线
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, id)
	if !matched {
		return ErrInvalidIDFormat
	}

	if len(id) > 64 {
		return ErrIDTooLong
	}

	return nil
}

// ValidateActorID 验证操作员工牌号格式,规则与任务 ID 相同
func ValidateActorID(id string) error {
	return ValidateTaskID(id)
}

// ValidatePartNumber 验证零件号格式
// 盘点/废料/辅助作业任务使用 # 前缀的特殊零件号
func ValidatePartNumber(partNumber string) error {
	trimmed := strings.TrimSpace(partNumber)
	if trimmed == "" {
		return ErrEmptyPartNumber
	}
	if len(trimmed) > 64 {
		return ErrPartNumberTooLong
	}
	matched, _ := regexp.MatchString(`^#?[a-zA-Z0-9_./-]+$`, trimmed)
	if !matched {
		return ErrInvalidPartNumber
	}
	return nil
}

// TrimAndValidate 清理并验证字符串
func TrimAndValidate(s string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", ErrEmptyString
	}
	if maxLen > 0 && len(trimmed) > maxLen {
		return "", ErrStringTooLong
	}
	return SanitizeString(trimmed), nil
}

// 错误定义
var (
	ErrEmptyID           = &ValidationError{Code: "EMPTY_ID", Message: "id cannot be empty"}
	ErrInvalidIDFormat   = &ValidationError{Code: "INVALID_ID_FORMAT", Message: "id contains invalid characters"}
	ErrIDTooLong         = &ValidationError{Code: "ID_TOO_LONG", Message: "id exceeds maximum length"}
	ErrEmptyPartNumber   = &ValidationError{Code: "EMPTY_PART_NUMBER", Message: "part number cannot be empty"}
	ErrPartNumberTooLong = &ValidationError{Code: "PART_NUMBER_TOO_LONG", Message: "part number exceeds maximum length"}
	ErrInvalidPartNumber = &ValidationError{Code: "INVALID_PART_NUMBER", Message: "part number contains invalid characters"}
	ErrEmptyString       = &ValidationError{Code: "EMPTY_STRING", Message: "string cannot be empty"}
	ErrStringTooLong     = &ValidationError{Code: "STRING_TOO_LONG", Message: "string exceeds maximum length"}
)

// ValidationError 验证错误
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
