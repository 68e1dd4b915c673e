package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/model"
	"gorm.io/gorm"
)

// gormTaskStore 基于 gorm 的任务存储实现
// 引擎通过 engine.TaskStore 接口访问,CompareAndWrite 依赖版本号乐观锁
type gormTaskStore struct {
	repo TaskRepository
}

// NewTaskStore 创建任务存储适配器
func NewTaskStore(repo TaskRepository) engine.TaskStore {
	return &gormTaskStore{repo: repo}
}

var _ engine.TaskStore = (*gormTaskStore)(nil)

// Get 读取任务快照
func (s *gormTaskStore) Get(ctx context.Context, id string) (*engine.Task, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engine.ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: %v", engine.ErrStoreUnavailable, err)
	}
	return FromTaskModel(m), nil
}

// Create 写入新任务,版本号从 0 开始
func (s *gormTaskStore) Create(ctx context.Context, task *engine.Task) error {
	m := ToTaskModel(task)
	if err := s.repo.Create(ctx, m); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrStoreUnavailable, err)
	}
	return nil
}

// CompareAndWrite 条件写入
// 仅当存储中的版本等于 task.Version 时写入并递增版本,否则返回 engine.ErrConflict
func (s *gormTaskStore) CompareAndWrite(ctx context.Context, task *engine.Task) (*engine.Task, error) {
	next := task.Clone()
	next.Version = task.Version + 1

	m := ToTaskModel(next)
	err := s.repo.UpdateGuarded(ctx, m, task.Version)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrConflict):
			return nil, engine.ErrConflict
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, engine.ErrTaskNotFound
		default:
			return nil, fmt.Errorf("%w: %v", engine.ErrStoreUnavailable, err)
		}
	}
	return next, nil
}

// ToTaskModel 领域对象转数据模型
func ToTaskModel(t *engine.Task) *model.TaskModel {
	return &model.TaskModel{
		ID:           t.ID,
		IsLogistics:  t.IsLogistics,
		IsProduction: t.IsProduction,
		IsActivity:   t.IsActivity,

		PartNumber:     t.PartNumber,
		Workplace:      t.Workplace,
		Quantity:       t.Quantity,
		QuantityUnit:   string(t.QuantityUnit),
		Priority:       string(t.Priority),
		Note:           t.Note,
		Plate:          t.Plate,
		SourceSectorID: t.SourceSectorID,
		TargetSectorID: t.TargetSectorID,

		State:             string(t.State),
		InProgressBy:      t.InProgressBy,
		SearchedBy:        t.SearchedBy,
		MissingReason:     t.MissingReason,
		MissingReportedBy: t.MissingReportedBy,
		IsManuallyBlocked: t.IsManuallyBlocked,
		IsIncorrect:       t.IsIncorrect,
		IsAuditInProgress: t.IsAuditInProgress,
		AuditedBy:         t.AuditedBy,
		AuditResult:       string(t.AuditResult),
		AuditNote:         t.AuditNote,
		AuditedAt:         t.AuditedAt,

		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		CompletedBy: t.CompletedBy,
		CompletedAt: t.CompletedAt,

		Version: t.Version,
	}
}

// FromTaskModel 数据模型转领域对象
func FromTaskModel(m *model.TaskModel) *engine.Task {
	return &engine.Task{
		ID:           m.ID,
		IsLogistics:  m.IsLogistics,
		IsProduction: m.IsProduction,
		IsActivity:   m.IsActivity,

		PartNumber:     m.PartNumber,
		Workplace:      m.Workplace,
		Quantity:       m.Quantity,
		QuantityUnit:   engine.QuantityUnit(m.QuantityUnit),
		Priority:       engine.Priority(m.Priority),
		Note:           m.Note,
		Plate:          m.Plate,
		SourceSectorID: m.SourceSectorID,
		TargetSectorID: m.TargetSectorID,

		State:             engine.TaskState(m.State),
		InProgressBy:      m.InProgressBy,
		SearchedBy:        m.SearchedBy,
		MissingReason:     m.MissingReason,
		MissingReportedBy: m.MissingReportedBy,
		IsManuallyBlocked: m.IsManuallyBlocked,
		IsIncorrect:       m.IsIncorrect,
		IsAuditInProgress: m.IsAuditInProgress,
		AuditedBy:         m.AuditedBy,
		AuditResult:       engine.AuditResult(m.AuditResult),
		AuditNote:         m.AuditNote,
		AuditedAt:         m.AuditedAt,

		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		CompletedBy: m.CompletedBy,
		CompletedAt: m.CompletedAt,

		Version: m.Version,
	}
}
