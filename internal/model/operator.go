package model

import (
	"errors"
	"time"
)

// OperatorModel 操作员数据模型
// ID 为工牌号,PIN 以 bcrypt 哈希存储,角色名引用 roles 表
type OperatorModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"type:varchar(128);not null"`
	RoleName  string    `gorm:"type:varchar(64);not null;index"`
	PINHash   string    `gorm:"type:varchar(128);not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (OperatorModel) TableName() string {
	return "operators"
}

// Validate 验证操作员模型
func (om *OperatorModel) Validate() error {
	if om.ID == "" {
		return errors.New("operator ID is required")
	}
	if om.Name == "" {
		return errors.New("operator name is required")
	}
	if om.RoleName == "" {
		return errors.New("role name is required")
	}
	if om.PINHash == "" {
		return errors.New("pin hash is required")
	}
	return nil
}
