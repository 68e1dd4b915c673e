package repository

import (
	"context"

	"github.com/mautops/warehouse-gin/internal/model"
	"gorm.io/gorm"
)

// RoleRepository 角色仓储接口
type RoleRepository interface {
	Create(ctx context.Context, role *model.RoleModel) error
	FindByName(ctx context.Context, name string) (*model.RoleModel, error)
	FindAll(ctx context.Context) ([]*model.RoleModel, error)
	Update(ctx context.Context, role *model.RoleModel) error
	Delete(ctx context.Context, name string) error
}

// roleRepository 角色仓储实现
type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository 创建角色仓储
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// Create 写入角色
func (r *roleRepository) Create(ctx context.Context, role *model.RoleModel) error {
	if err := role.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(role).Error
}

// FindByName 根据名称查找角色
func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.RoleModel, error) {
	var role model.RoleModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// FindAll 查找所有角色
func (r *roleRepository) FindAll(ctx context.Context) ([]*model.RoleModel, error) {
	var roles []*model.RoleModel
	err := r.db.WithContext(ctx).Order("rank DESC, name ASC").Find(&roles).Error
	return roles, err
}

// Update 更新角色等级与权限集合
func (r *roleRepository) Update(ctx context.Context, role *model.RoleModel) error {
	if err := role.Validate(); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&model.RoleModel{}).
		Where("name = ?", role.Name).
		Updates(map[string]interface{}{
			"rank":        role.Rank,
			"permissions": role.Permissions,
			"updated_at":  role.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除角色,已发放的令牌在过期前仍携带该角色名,届时按缺失记录拒绝
func (r *roleRepository) Delete(ctx context.Context, name string) error {
	res := r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.RoleModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
