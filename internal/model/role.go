package model

import (
	"encoding/json"
	"errors"
	"time"
)

// RoleModel 角色数据模型
// Permissions 列持有授权的权限名集合(JSON 数组);缺失记录即拒绝,
// ADMIN 的旁路在引擎内部,不依赖此表
type RoleModel struct {
	Name        string    `gorm:"primaryKey;type:varchar(64)"`
	Rank        int       `gorm:"not null"` // 角色等级,手动锁定等操作按等级门槛放行
	Permissions []byte    `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName 指定表名
func (RoleModel) TableName() string {
	return "roles"
}

// Validate 验证角色模型
func (rm *RoleModel) Validate() error {
	if rm.Name == "" {
		return errors.New("role name is required")
	}
	if rm.Rank < 0 {
		return errors.New("role rank must not be negative")
	}
	if len(rm.Permissions) == 0 {
		return errors.New("permissions are required")
	}
	var perms []string
	if err := json.Unmarshal(rm.Permissions, &perms); err != nil {
		return errors.New("permissions must be a JSON string array")
	}
	return nil
}

// PermissionSet 解析授权的权限名集合
func (rm *RoleModel) PermissionSet() (map[string]struct{}, error) {
	var perms []string
	if err := json.Unmarshal(rm.Permissions, &perms); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set, nil
}
