package engine

import (
	"context"
	"errors"
	"strings"
)

// 稽核子流程
// 严格限定在 missing 状态的任务上:对缺料判定做二次核实,
// 结论要么推翻判定(found,任务回到 pending 重新履约),
// 要么确认缺失(missing,对查找而言是终态,不再自动重新排队)

// StartAudit 开始稽核
// 同一任务不允许并发稽核,第二次调用失败且不改变任务状态
func (e *Engine) StartAudit(ctx context.Context, taskID string, actor Actor) (*Task, error) {
	if !e.allowed(actor, PermBtnAudit) {
		return nil, ErrForbidden
	}
	t, err := e.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.State != TaskStateMissing {
		return nil, notClaimable("task is not missing")
	}
	if t.IsAuditInProgress {
		return nil, ErrAuditAlreadyRunning
	}

	next := t.Clone()
	next.IsAuditInProgress = true

	updated, err := e.store.CompareAndWrite(ctx, next)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			// CAS 竞争:并发的 StartAudit 抢先写入
			if cur, getErr := e.store.Get(ctx, taskID); getErr == nil && cur.IsAuditInProgress {
				return nil, ErrAuditAlreadyRunning
			}
		}
		return nil, err
	}
	e.recordHistory(ctx, taskID, t.State, updated.State, actor, "audit started")
	return updated, nil
}

// FinishAudit 结束稽核
// note 必填;两种结论都盖章 auditedBy/auditedAt/auditNote 并派生一条
// 带 AUDIT 前缀的通知,与原始缺料上报通知可区分
func (e *Engine) FinishAudit(ctx context.Context, taskID string, actor Actor, outcome AuditOutcome, note string) (*Task, error) {
	if !e.allowed(actor, PermBtnAudit) {
		return nil, ErrForbidden
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, ErrNoteRequired
	}
	if outcome != AuditOutcomeFound && outcome != AuditOutcomeMissing {
		return nil, notClaimable("unknown audit outcome " + string(outcome))
	}
	t, err := e.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !t.IsAuditInProgress {
		return nil, notClaimable("no audit in progress")
	}

	now := e.now()
	next := t.Clone()
	next.IsAuditInProgress = false
	next.AuditedBy = actor.ID
	next.AuditNote = note
	next.AuditedAt = &now

	if outcome == AuditOutcomeFound {
		// 判定被推翻:任务回到 pending 等待重新履约
		next.State = TaskStatePending
		next.MissingReason = ""
		next.MissingReportedBy = ""
		next.SearchedBy = ""
		next.AuditResult = AuditResultOK
	} else {
		// 判定被确认:任务保持 missing,不再自动重新排队
		next.AuditResult = AuditResultNOK
	}

	updated, err := e.store.CompareAndWrite(ctx, next)
	if err != nil {
		return nil, err
	}
	e.recordHistory(ctx, taskID, t.State, updated.State, actor, "audit finished: "+string(updated.AuditResult))
	e.publish(newAuditNotification(updated, actor, updated.AuditResult, note, now))
	return updated, nil
}
