package repository

import (
	"context"
	"time"

	"github.com/mautops/warehouse-gin/internal/model"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.NotificationModel) error
	FindByID(ctx context.Context, id string) (*model.NotificationModel, error)
	FindAll(ctx context.Context, unacknowledgedOnly bool) ([]*model.NotificationModel, error)
	Acknowledge(ctx context.Context, id string, by string, at time.Time) error
	Delete(ctx context.Context, id string) error
	CountUnacknowledged(ctx context.Context) (int64, error)
}

// notificationRepository 通知仓储实现
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create 写入通知
func (r *notificationRepository) Create(ctx context.Context, n *model.NotificationModel) error {
	if err := n.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// FindByID 根据 ID 查找通知
func (r *notificationRepository) FindByID(ctx context.Context, id string) (*model.NotificationModel, error) {
	var n model.NotificationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// FindAll 查找通知,按时间倒序(看板展示最新在前)
func (r *notificationRepository) FindAll(ctx context.Context, unacknowledgedOnly bool) ([]*model.NotificationModel, error) {
	var notifications []*model.NotificationModel
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if unacknowledgedOnly {
		query = query.Where("acknowledged = ?", false)
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

// Acknowledge 确认通知,已确认的通知重复确认是幂等的
func (r *notificationRepository) Acknowledge(ctx context.Context, id string, by string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"acknowledged":    true,
			"acknowledged_by": by,
			"acknowledged_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除通知,不影响其引用的任务
func (r *notificationRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.NotificationModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountUnacknowledged 统计未确认通知数,用于指标上报
func (r *notificationRepository) CountUnacknowledged(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("acknowledged = ?", false).Count(&count).Error
	return count, err
}
