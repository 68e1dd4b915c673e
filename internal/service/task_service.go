package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/metrics"
	"github.com/mautops/warehouse-gin/internal/model"
	"github.com/mautops/warehouse-gin/internal/repository"
	"github.com/mautops/warehouse-gin/internal/websocket"
	"github.com/sirupsen/logrus"
)

// TaskService 任务服务接口
// 引擎负责状态机语义,服务层叠加审计日志、指标和看板广播
type TaskService interface {
	Create(ctx context.Context, actor engine.Actor, req *engine.CreateTaskRequest) (*engine.Task, error)
	Get(ctx context.Context, id string) (*engine.Task, error)
	SetInProgress(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error)
	ToggleDone(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error)
	ToggleBlock(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error)
	ExhaustSearch(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error)
	ToggleMissing(ctx context.Context, id string, actor engine.Actor, reason string) (*engine.Task, error)
	ToggleManualBlock(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error)
	MarkAsIncorrect(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error)
	ReleaseTask(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error)
	AddNote(ctx context.Context, id string, actor engine.Actor, note string) (*engine.Task, error)
	StartAudit(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error)
	FinishAudit(ctx context.Context, id string, actor engine.Actor, outcome engine.AuditOutcome, note string) (*engine.Task, error)
	// Delete 管理操作,绕过状态机,要求 perm_delete_task
	Delete(ctx context.Context, id string, actor engine.Actor) error
}

// taskService 任务服务实现
type taskService struct {
	eng       *engine.Engine
	store     engine.TaskStore
	tasks     repository.TaskRepository
	auditLogs repository.AuditLogRepository
	gate      engine.PermissionGate
	hub       *websocket.Hub
	logger    *logrus.Logger
}

// NewTaskService 创建任务服务
func NewTaskService(
	eng *engine.Engine,
	store engine.TaskStore,
	tasks repository.TaskRepository,
	auditLogs repository.AuditLogRepository,
	gate engine.PermissionGate,
	hub *websocket.Hub,
	logger *logrus.Logger,
) TaskService {
	if logger == nil {
		logger = logrus.New()
	}
	return &taskService{
		eng:       eng,
		store:     store,
		tasks:     tasks,
		auditLogs: auditLogs,
		gate:      gate,
		hub:       hub,
		logger:    logger,
	}
}

// Create 创建任务
func (s *taskService) Create(ctx context.Context, actor engine.Actor, req *engine.CreateTaskRequest) (*engine.Task, error) {
	task, err := s.eng.CreateTask(ctx, actor, req)
	if err != nil {
		metrics.RecordTransition("create", outcomeOf(err))
		return nil, err
	}

	metrics.RecordTaskCreated()
	metrics.RecordTransition("create", "ok")
	s.audit(ctx, actor, "create", "task", task.ID, task)
	s.broadcast(websocket.EventTaskCreated, task)
	return task, nil
}

// Get 读取任务快照
func (s *taskService) Get(ctx context.Context, id string) (*engine.Task, error) {
	return s.store.Get(ctx, id)
}

// SetInProgress 领取任务
func (s *taskService) SetInProgress(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error) {
	return s.transition(ctx, "claim", id, actor, func() (*engine.Task, error) {
		return s.eng.SetInProgress(ctx, id, actor)
	})
}

// ToggleDone 完成任务
func (s *taskService) ToggleDone(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error) {
	return s.transition(ctx, "finish", id, actor, func() (*engine.Task, error) {
		return s.eng.ToggleDone(ctx, id, actor)
	})
}

// ToggleBlock 进入查找状态
func (s *taskService) ToggleBlock(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error) {
	return s.transition(ctx, "search", id, actor, func() (*engine.Task, error) {
		return s.eng.ToggleBlock(ctx, id, actor)
	})
}

// ExhaustSearch 结束本轮查找
func (s *taskService) ExhaustSearch(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error) {
	return s.transition(ctx, "exhaust_search", id, actor, func() (*engine.Task, error) {
		return s.eng.ExhaustSearch(ctx, id, actor)
	})
}

// ToggleMissing 上报缺料
func (s *taskService) ToggleMissing(ctx context.Context, id string, actor engine.Actor, reason string) (*engine.Task, error) {
	return s.transition(ctx, "report_missing", id, actor, func() (*engine.Task, error) {
		return s.eng.ToggleMissing(ctx, id, actor, reason)
	})
}

// ToggleManualBlock 设置/清除手动锁定
func (s *taskService) ToggleManualBlock(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error) {
	return s.transition(ctx, "manual_block", id, actor, func() (*engine.Task, error) {
		return s.eng.ToggleManualBlock(ctx, id, actor)
	})
}

// MarkAsIncorrect 标记任务数据有误
func (s *taskService) MarkAsIncorrect(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error) {
	return s.transition(ctx, "mark_incorrect", id, actor, func() (*engine.Task, error) {
		return s.eng.MarkAsIncorrect(ctx, id, actor)
	})
}

// ReleaseTask 放弃已领取的任务
func (s *taskService) ReleaseTask(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error) {
	return s.transition(ctx, "release", id, actor, func() (*engine.Task, error) {
		return s.eng.ReleaseTask(ctx, id, actor)
	})
}

// AddNote 追加备注
func (s *taskService) AddNote(ctx context.Context, id string, actor engine.Actor, note string) (*engine.Task, error) {
	return s.transition(ctx, "note", id, actor, func() (*engine.Task, error) {
		return s.eng.AddNote(ctx, id, actor, note)
	})
}

// StartAudit 开始稽核
func (s *taskService) StartAudit(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error) {
	return s.transition(ctx, "audit_start", id, actor, func() (*engine.Task, error) {
		return s.eng.StartAudit(ctx, id, actor)
	})
}

// FinishAudit 结束稽核
func (s *taskService) FinishAudit(ctx context.Context, id string, actor engine.Actor, outcome engine.AuditOutcome, note string) (*engine.Task, error) {
	return s.transition(ctx, "audit_finish", id, actor, func() (*engine.Task, error) {
		return s.eng.FinishAudit(ctx, id, actor, outcome, note)
	})
}

// Delete 删除任务
// 引擎不提供删除语义,误建任务由管理员直接删除
func (s *taskService) Delete(ctx context.Context, id string, actor engine.Actor) error {
	if actor.Role != engine.RoleAdmin && !s.gate.Can(actor.Role, engine.PermDeleteTask) {
		return engine.ErrForbidden
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return engine.ErrTaskNotFound
		}
		return err
	}

	s.audit(ctx, actor, "delete", "task", id, nil)
	s.broadcast(websocket.EventTaskDeleted, map[string]string{"id": id})
	return nil
}

// transition 执行一次引擎转换并统一处理指标、审计与广播
func (s *taskService) transition(ctx context.Context, operation string, id string, actor engine.Actor, fn func() (*engine.Task, error)) (*engine.Task, error) {
	task, err := fn()
	metrics.RecordTransition(operation, outcomeOf(err))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, operation, "task", id, task)
	s.broadcast(websocket.EventTaskUpdated, task)
	return task, nil
}

// audit 尽力而为地写一条操作审计日志
func (s *taskService) audit(ctx context.Context, actor engine.Actor, action, resourceType, resourceID string, details interface{}) {
	if s.auditLogs == nil {
		return
	}

	var payload []byte
	if details != nil {
		payload, _ = json.Marshal(details)
	}

	log := &model.AuditLogModel{
		ID:           uuid.New().String(),
		UserID:       actor.ID,
		UserRole:     actor.Role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    requestIDFrom(ctx),
		Details:      payload,
		CreatedAt:    time.Now(),
	}
	if err := s.auditLogs.Create(ctx, log); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("failed to write audit log")
	}
}

// broadcast 推送看板事件
func (s *taskService) broadcast(eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.PublishEvent(eventType, payload)
}

// outcomeOf 将引擎错误归类为指标标签
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, engine.ErrConflict),
		errors.Is(err, engine.ErrAlreadyClaimed),
		errors.Is(err, engine.ErrAuditAlreadyRunning):
		return "conflict"
	case errors.Is(err, engine.ErrForbidden):
		return "forbidden"
	default:
		return "rejected"
	}
}

// 请求 ID 上下文键,由 API 层注入
type contextKey string

// ContextKeyRequestID 审计日志使用的请求 ID 键
const ContextKeyRequestID contextKey = "request_id"

// requestIDFrom 从上下文提取请求 ID
func requestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}
