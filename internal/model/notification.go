package model

import (
	"errors"
	"time"
)

// NotificationModel 通知数据模型
// 由缺料上报和稽核结束转换派生;删除通知不影响其引用的任务
type NotificationModel struct {
	ID             string     `gorm:"primaryKey;type:varchar(64)"`
	PartNumber     string     `gorm:"type:varchar(64);not null;index"`
	Reason         string     `gorm:"type:text;not null"`
	ReportedBy     string     `gorm:"type:varchar(64);not null;index"`
	Acknowledged   bool       `gorm:"not null;default:false"`
	AcknowledgedBy string     `gorm:"type:varchar(64)"`
	AcknowledgedAt *time.Time ``
	CreatedAt      time.Time  `gorm:"not null;index"`
}

// TableName 指定表名
func (NotificationModel) TableName() string {
	return "notifications"
}

// Validate 验证通知模型
func (nm *NotificationModel) Validate() error {
	if nm.ID == "" {
		return errors.New("notification ID is required")
	}
	if nm.PartNumber == "" {
		return errors.New("part number is required")
	}
	if nm.Reason == "" {
		return errors.New("reason is required")
	}
	if nm.ReportedBy == "" {
		return errors.New("reporter is required")
	}
	return nil
}
