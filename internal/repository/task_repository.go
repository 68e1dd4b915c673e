package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/model"
	"gorm.io/gorm"
)

// TaskRepository 任务仓储接口
type TaskRepository interface {
	Create(ctx context.Context, task *model.TaskModel) error
	FindByID(ctx context.Context, id string) (*model.TaskModel, error)
	FindAll(ctx context.Context) ([]*model.TaskModel, error)
	FindByFilter(ctx context.Context, filter *TaskFilter) ([]*model.TaskModel, error)
	// UpdateGuarded 乐观锁更新:仅当行版本等于 expectedVersion 时写入全部字段,
	// 版本不匹配返回 engine.ErrConflict,不写入任何字段
	UpdateGuarded(ctx context.Context, task *model.TaskModel, expectedVersion int64) error
	// Delete 硬删除,仅管理操作使用,绕过状态校验
	Delete(ctx context.Context, id string) error
	CountByState(ctx context.Context) (map[string]int64, error)
}

// TaskFilter 任务查询过滤器
type TaskFilter struct {
	State       *string
	Priority    *string
	IsLogistics *bool
	PartNumber  *string
	Workplace   *string
	CreatedBy   *string
	StartTime   *time.Time
	EndTime     *time.Time
	IncludeDone bool
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create 写入新任务
func (r *taskRepository) Create(ctx context.Context, task *model.TaskModel) error {
	if err := task.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID 根据 ID 查找任务
func (r *taskRepository) FindByID(ctx context.Context, id string) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindAll 查找所有任务
func (r *taskRepository) FindAll(ctx context.Context) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&tasks).Error
	return tasks, err
}

// FindByFilter 根据过滤器查找任务
func (r *taskRepository) FindByFilter(ctx context.Context, filter *TaskFilter) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	query := r.db.WithContext(ctx).Model(&model.TaskModel{})

	if filter != nil {
		if filter.State != nil {
			query = query.Where("state = ?", *filter.State)
		} else if !filter.IncludeDone {
			query = query.Where("state <> ?", string(engine.TaskStateDone))
		}
		if filter.Priority != nil {
			query = query.Where("priority = ?", *filter.Priority)
		}
		if filter.IsLogistics != nil {
			query = query.Where("is_logistics = ?", *filter.IsLogistics)
		}
		if filter.PartNumber != nil {
			query = query.Where("part_number = ?", *filter.PartNumber)
		}
		if filter.Workplace != nil {
			query = query.Where("workplace = ?", *filter.Workplace)
		}
		if filter.CreatedBy != nil {
			query = query.Where("created_by = ?", *filter.CreatedBy)
		}
		if filter.StartTime != nil {
			query = query.Where("created_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("created_at <= ?", *filter.EndTime)
		}
	}

	err := query.Order("created_at ASC").Find(&tasks).Error
	return tasks, err
}

// UpdateGuarded 乐观锁更新
func (r *taskRepository) UpdateGuarded(ctx context.Context, task *model.TaskModel, expectedVersion int64) error {
	if err := task.Validate(); err != nil {
		return err
	}

	// Select("*") 强制写入零值字段(清空持有人等布尔/字符串字段)
	res := r.db.WithContext(ctx).
		Model(&model.TaskModel{}).
		Where("id = ? AND version = ?", task.ID, expectedVersion).
		Select("*").
		Updates(task)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// 区分行不存在和版本不匹配
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.TaskModel{}).
			Where("id = ?", task.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return engine.ErrConflict
	}
	return nil
}

// Delete 硬删除任务
func (r *taskRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.TaskModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountByState 按主状态统计任务数,用于指标上报
func (r *taskRepository) CountByState(ctx context.Context) (map[string]int64, error) {
	type row struct {
		State string
		Count int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.TaskModel{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.State] = r.Count
	}
	return result, nil
}

// IsNotFound 判断是否为记录不存在错误
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
