package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification 缺料/稽核广播记录
// 由缺料上报和稽核结束两类转换派生,每次转换恰好产生一条;
// 记录的消费(确认/清除)独立于其引用的任务
type Notification struct {
	ID         string    `json:"id"`
	PartNumber string    `json:"partNumber"`
	Reason     string    `json:"reason"`
	ReportedBy string    `json:"reportedBy"`
	CreatedAt  time.Time `json:"timestamp"`
	Recipients []string  `json:"recipients,omitempty"`
}

// newMissingNotification 构造缺料上报通知
func newMissingNotification(t *Task, actor Actor, reason string, now time.Time) *Notification {
	return &Notification{
		ID:         uuid.New().String(),
		PartNumber: t.PartNumber,
		Reason:     reason,
		ReportedBy: actor.ID,
		CreatedAt:  now,
	}
}

// newAuditNotification 构造稽核结束通知
// reason 带 AUDIT 前缀,便于与原始缺料上报通知区分
func newAuditNotification(t *Task, actor Actor, result AuditResult, note string, now time.Time) *Notification {
	return &Notification{
		ID:         uuid.New().String(),
		PartNumber: t.PartNumber,
		Reason:     fmt.Sprintf("AUDIT %s: %s", result, note),
		ReportedBy: actor.ID,
		CreatedAt:  now,
	}
}

// publish 尽力而为地投递通知,失败只记日志,不回滚任务变更
func (e *Engine) publish(n *Notification) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Publish(n); err != nil {
		e.logger.WithError(err).WithField("notification_id", n.ID).Warn("failed to publish notification")
	}
}
