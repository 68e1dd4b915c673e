package model

import (
	"errors"
	"time"
)

// TaskModel 任务数据模型
type TaskModel struct {
	ID           string `gorm:"primaryKey;type:varchar(64)"`
	IsLogistics  bool   `gorm:"not null;index"` // 物流任务标记,创建后不可变更
	IsProduction bool   `gorm:"not null"`
	IsActivity   bool   `gorm:"not null"`

	PartNumber     string `gorm:"type:varchar(64);not null;index"`
	Workplace      string `gorm:"type:varchar(64);index"`
	Quantity       int    `gorm:"not null"`
	QuantityUnit   string `gorm:"type:varchar(16);not null"`
	Priority       string `gorm:"type:varchar(16);not null;index"`
	Note           string `gorm:"type:text"`
	Plate          string `gorm:"type:varchar(32)"`
	SourceSectorID string `gorm:"type:varchar(64)"`
	TargetSectorID string `gorm:"type:varchar(64)"`

	State             string     `gorm:"type:varchar(32);not null;index"` // 主状态
	InProgressBy      string     `gorm:"type:varchar(64)"`
	SearchedBy        string     `gorm:"type:varchar(64)"`
	MissingReason     string     `gorm:"type:text"`
	MissingReportedBy string     `gorm:"type:varchar(64)"`
	IsManuallyBlocked bool       `gorm:"not null"`
	IsIncorrect       bool       `gorm:"not null"`
	IsAuditInProgress bool       `gorm:"not null"`
	AuditedBy         string     `gorm:"type:varchar(64)"`
	AuditResult       string     `gorm:"type:varchar(8)"`
	AuditNote         string     `gorm:"type:text"`
	AuditedAt         *time.Time `gorm:"index"`

	CreatedBy   string     `gorm:"type:varchar(64);index"`
	CreatedAt   time.Time  `gorm:"not null;index"`
	UpdatedAt   time.Time  `gorm:"not null;index"`
	CompletedBy string     `gorm:"type:varchar(64)"`
	CompletedAt *time.Time `gorm:"index"`

	// Version 乐观锁版本号,CompareAndWrite 以此为守卫
	Version int64 `gorm:"not null;default:0"`
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "tasks"
}

// Validate 验证任务模型
func (tm *TaskModel) Validate() error {
	if tm.ID == "" {
		return errors.New("task ID is required")
	}
	if tm.PartNumber == "" {
		return errors.New("part number is required")
	}
	if tm.State == "" {
		return errors.New("task state is required")
	}
	if tm.Priority == "" {
		return errors.New("task priority is required")
	}
	return nil
}
