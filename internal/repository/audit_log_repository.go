package repository

import (
	"context"
	"time"

	"github.com/mautops/warehouse-gin/internal/model"
	"gorm.io/gorm"
)

// AuditLogRepository 操作审计日志仓储接口
type AuditLogRepository interface {
	Create(ctx context.Context, log *model.AuditLogModel) error
	FindByResource(ctx context.Context, resourceType, resourceID string) ([]*model.AuditLogModel, error)
	FindByUser(ctx context.Context, userID string, limit int) ([]*model.AuditLogModel, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// auditLogRepository 操作审计日志仓储实现
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建操作审计日志仓储
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create 写入审计日志
func (r *auditLogRepository) Create(ctx context.Context, log *model.AuditLogModel) error {
	if err := log.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByResource 查找资源的审计日志,按时间倒序
func (r *auditLogRepository) FindByResource(ctx context.Context, resourceType, resourceID string) ([]*model.AuditLogModel, error) {
	var logs []*model.AuditLogModel
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// FindByUser 查找用户的审计日志,按时间倒序
func (r *auditLogRepository) FindByUser(ctx context.Context, userID string, limit int) ([]*model.AuditLogModel, error) {
	var logs []*model.AuditLogModel
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&logs).Error
	return logs, err
}

// DeleteBefore 清理指定时间之前的审计日志
func (r *auditLogRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.AuditLogModel{})
	return res.RowsAffected, res.Error
}
