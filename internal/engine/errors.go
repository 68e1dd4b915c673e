package engine

import (
	"errors"
	"fmt"
)

// 引擎错误分类
// 前四类是业务拒绝,调用方需向用户展示可操作的提示;
// ErrStoreUnavailable 是基础设施故障,调用方可自行退避重试,引擎内部不重试
var (
	ErrForbidden           = errors.New("forbidden")
	ErrAlreadyClaimed      = errors.New("task already claimed")
	ErrNotOwner            = errors.New("actor is not the current owner")
	ErrNotClaimable        = errors.New("task is not in a claimable state")
	ErrReasonRequired      = errors.New("missing reason is required")
	ErrNoteRequired        = errors.New("audit note is required")
	ErrAuditAlreadyRunning = errors.New("audit already running")
	ErrStoreUnavailable    = errors.New("task store unavailable")
	ErrTaskNotFound        = errors.New("task not found")
	// ErrConflict 乐观锁版本冲突,由存储层返回
	ErrConflict = errors.New("version conflict")
)

// alreadyClaimedBy 构造携带持有人的竞争失败错误
func alreadyClaimedBy(holder string) error {
	return fmt.Errorf("task already claimed by %s: %w", holder, ErrAlreadyClaimed)
}

// notClaimable 构造携带原因的状态拒绝错误
func notClaimable(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrNotClaimable)
}
