package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/model"
	"gorm.io/gorm"
)

// StateHistoryRepository 状态历史仓储接口
type StateHistoryRepository interface {
	Create(ctx context.Context, h *model.StateHistoryModel) error
	FindByTaskID(ctx context.Context, taskID string) ([]*model.StateHistoryModel, error)
}

// stateHistoryRepository 状态历史仓储实现
type stateHistoryRepository struct {
	db *gorm.DB
}

// NewStateHistoryRepository 创建状态历史仓储
func NewStateHistoryRepository(db *gorm.DB) StateHistoryRepository {
	return &stateHistoryRepository{db: db}
}

// Create 追加一条历史记录
func (r *stateHistoryRepository) Create(ctx context.Context, h *model.StateHistoryModel) error {
	if err := h.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(h).Error
}

// FindByTaskID 查找任务的全部历史,按时间升序
func (r *stateHistoryRepository) FindByTaskID(ctx context.Context, taskID string) ([]*model.StateHistoryModel, error) {
	var history []*model.StateHistoryModel
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&history).Error
	return history, err
}

// historySink 引擎状态历史出口的仓储适配
type historySink struct {
	repo StateHistoryRepository
}

// NewHistorySink 创建引擎历史出口
func NewHistorySink(repo StateHistoryRepository) engine.HistorySink {
	return &historySink{repo: repo}
}

var _ engine.HistorySink = (*historySink)(nil)

// Record 持久化一条状态变更
func (s *historySink) Record(ctx context.Context, change *engine.StateChange) error {
	return s.repo.Create(ctx, &model.StateHistoryModel{
		ID:        uuid.New().String(),
		TaskID:    change.TaskID,
		FromState: string(change.From),
		ToState:   string(change.To),
		Reason:    change.Reason,
		Operator:  change.Operator,
		CreatedAt: change.Time,
	})
}
