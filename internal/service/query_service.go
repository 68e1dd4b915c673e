package service

import (
	"context"

	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/model"
	"github.com/mautops/warehouse-gin/internal/ordering"
	"github.com/mautops/warehouse-gin/internal/repository"
)

// QueryService 任务查询服务接口
// 只读视图,结果按看板展示顺序排列
type QueryService interface {
	ListTasks(ctx context.Context, filter *repository.TaskFilter) ([]*engine.Task, error)
	TaskHistory(ctx context.Context, taskID string) ([]*model.StateHistoryModel, error)
}

// queryService 任务查询服务实现
type queryService struct {
	tasks   repository.TaskRepository
	history repository.StateHistoryRepository
}

// NewQueryService 创建任务查询服务
func NewQueryService(tasks repository.TaskRepository, history repository.StateHistoryRepository) QueryService {
	return &queryService{
		tasks:   tasks,
		history: history,
	}
}

// ListTasks 查询任务列表
// 数据库只按创建时间粗排,优先级与降权规则在内存中用稳定排序收尾
func (s *queryService) ListTasks(ctx context.Context, filter *repository.TaskFilter) ([]*engine.Task, error) {
	models, err := s.tasks.FindByFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	tasks := make([]*engine.Task, 0, len(models))
	for _, m := range models {
		tasks = append(tasks, repository.FromTaskModel(m))
	}

	ordering.Sort(tasks)
	return tasks, nil
}

// TaskHistory 查询任务的状态变更历史
func (s *queryService) TaskHistory(ctx context.Context, taskID string) ([]*model.StateHistoryModel, error) {
	// 任务被删除后历史仍可查询,不校验任务存在性
	return s.history.FindByTaskID(ctx, taskID)
}
