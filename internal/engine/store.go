package engine

import (
	"context"
	"time"
)

// TaskStore 任务存储抽象
// 引擎只依赖此接口,具体实现由仓储层提供(gorm)或测试提供(内存)
type TaskStore interface {
	// Get 读取任务快照
	Get(ctx context.Context, id string) (*Task, error)

	// Create 写入新任务
	Create(ctx context.Context, task *Task) error

	// CompareAndWrite 乐观并发写入
	// 以 task.Version 作为期望版本,版本不匹配时返回 ErrConflict 且不写入任何字段;
	// 成功时返回版本号已递增的最新快照
	CompareAndWrite(ctx context.Context, task *Task) (*Task, error)
}

// PermissionGate 权限断言
// 引擎不解释权限内容,只消费布尔结果;ADMIN 角色的旁路在引擎内部处理,不经过 Gate
type PermissionGate interface {
	Can(role string, permission string) bool
}

// NotificationSink 通知出口
// 投递是尽力而为的:Publish 失败不回滚任务状态变更
type NotificationSink interface {
	Publish(n *Notification) error
}

// StateChange 一次状态变更记录
type StateChange struct {
	TaskID   string
	From     TaskState
	To       TaskState
	Operator string
	Reason   string
	Time     time.Time
}

// HistorySink 状态历史出口,尽力而为,与通知同策略
type HistorySink interface {
	Record(ctx context.Context, change *StateChange) error
}
