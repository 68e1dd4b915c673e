package repository

import (
	"context"

	"github.com/mautops/warehouse-gin/internal/model"
	"gorm.io/gorm"
)

// OperatorRepository 操作员仓储接口
type OperatorRepository interface {
	Create(ctx context.Context, op *model.OperatorModel) error
	FindByID(ctx context.Context, id string) (*model.OperatorModel, error)
	FindAll(ctx context.Context) ([]*model.OperatorModel, error)
	Update(ctx context.Context, op *model.OperatorModel) error
	Delete(ctx context.Context, id string) error
}

// operatorRepository 操作员仓储实现
type operatorRepository struct {
	db *gorm.DB
}

// NewOperatorRepository 创建操作员仓储
func NewOperatorRepository(db *gorm.DB) OperatorRepository {
	return &operatorRepository{db: db}
}

// Create 写入操作员
func (r *operatorRepository) Create(ctx context.Context, op *model.OperatorModel) error {
	if err := op.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(op).Error
}

// FindByID 根据工牌号查找操作员
func (r *operatorRepository) FindByID(ctx context.Context, id string) (*model.OperatorModel, error) {
	var op model.OperatorModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&op).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

// FindAll 查找所有操作员
func (r *operatorRepository) FindAll(ctx context.Context) ([]*model.OperatorModel, error) {
	var ops []*model.OperatorModel
	err := r.db.WithContext(ctx).Order("id ASC").Find(&ops).Error
	return ops, err
}

// Update 更新操作员信息
func (r *operatorRepository) Update(ctx context.Context, op *model.OperatorModel) error {
	if err := op.Validate(); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&model.OperatorModel{}).
		Where("id = ?", op.ID).
		Updates(map[string]interface{}{
			"name":       op.Name,
			"role_name":  op.RoleName,
			"pin_hash":   op.PINHash,
			"active":     op.Active,
			"updated_at": op.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除操作员
func (r *operatorRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.OperatorModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
