package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine 任务生命周期引擎
// 校验并执行所有任务状态转换,派生通知和状态历史记录,拒绝非法转换。
// 引擎本身无锁:同一任务上的并发转换通过存储层的 CompareAndWrite 裁决,
// 竞争失败方收到 ErrAlreadyClaimed / ErrAuditAlreadyRunning / ErrConflict
type Engine struct {
	store    TaskStore
	gate     PermissionGate
	notifier NotificationSink
	history  HistorySink
	logger   *logrus.Logger

	// manualBlockMinRank 手动锁定所需的最低角色等级
	manualBlockMinRank int

	// now 可注入的时钟,测试用
	now func() time.Time
}

// Config 引擎配置
type Config struct {
	Store              TaskStore
	Gate               PermissionGate
	Notifier           NotificationSink
	History            HistorySink
	Logger             *logrus.Logger
	ManualBlockMinRank int
}

// New 创建任务生命周期引擎
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	minRank := cfg.ManualBlockMinRank
	if minRank <= 0 {
		minRank = 2
	}
	return &Engine{
		store:              cfg.Store,
		gate:               cfg.Gate,
		notifier:           cfg.Notifier,
		history:            cfg.History,
		logger:             logger,
		manualBlockMinRank: minRank,
		now:                time.Now,
	}
}

// CreateTaskRequest 创建任务的载荷
type CreateTaskRequest struct {
	IsLogistics    bool         `json:"isLogistics"`
	IsProduction   bool         `json:"isProduction"`
	IsActivity     bool         `json:"isActivity"`
	PartNumber     string       `json:"partNumber"`
	Workplace      string       `json:"workplace"`
	Quantity       int          `json:"quantity"`
	QuantityUnit   QuantityUnit `json:"quantityUnit"`
	Priority       Priority     `json:"priority"`
	Note           string       `json:"note"`
	Plate          string       `json:"plate"`
	SourceSectorID string       `json:"sourceSectorId"`
	TargetSectorID string       `json:"targetSectorId"`
}

// CreateTask 创建任务,初始状态恒为 pending
// 任务类型(isLogistics)在创建后不可变更
func (e *Engine) CreateTask(ctx context.Context, actor Actor, req *CreateTaskRequest) (*Task, error) {
	if !e.allowed(actor, PermCreateTask) {
		return nil, ErrForbidden
	}

	t := &Task{
		ID:             uuid.New().String(),
		IsLogistics:    req.IsLogistics,
		IsProduction:   req.IsProduction,
		IsActivity:     req.IsActivity,
		PartNumber:     strings.TrimSpace(req.PartNumber),
		Workplace:      strings.TrimSpace(req.Workplace),
		Quantity:       req.Quantity,
		QuantityUnit:   req.QuantityUnit,
		Priority:       req.Priority,
		Note:           req.Note,
		Plate:          req.Plate,
		SourceSectorID: req.SourceSectorID,
		TargetSectorID: req.TargetSectorID,
		State:          TaskStatePending,
		CreatedBy:      actor.ID,
		CreatedAt:      e.now(),
	}
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
	if t.QuantityUnit == "" {
		t.QuantityUnit = UnitPieces
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if err := e.store.Create(ctx, t); err != nil {
		return nil, err
	}
	e.recordHistory(ctx, t.ID, "", TaskStatePending, actor, "task created")
	return t, nil
}

// SetInProgress 领取任务
// 同一任务上的并发领取由存储层 CAS 裁决:首个观察到无持有人的写入获胜,
// 失败方收到 ErrAlreadyClaimed,界面需重新拉取后再展示
func (e *Engine) SetInProgress(ctx context.Context, taskID string, actor Actor) (*Task, error) {
	if !e.allowed(actor, PermBtnFinish) {
		return nil, ErrForbidden
	}
	t, err := e.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.IsDone() {
		return nil, notClaimable("task is done")
	}
	if t.IsManuallyBlocked {
		// 手动锁定压制领取,与其他标记无关
		return nil, notClaimable("task is manually blocked")
	}
	switch t.State {
	case TaskStateBlocked:
		return nil, notClaimable("task is blocked")
	case TaskStateMissing:
		return nil, notClaimable("task is missing")
	case TaskStateInProgress:
		if t.InProgressBy == actor.ID {
			return t, nil
		}
		return nil, alreadyClaimedBy(t.InProgressBy)
	}

	next := t.Clone()
	next.State = TaskStateInProgress
	next.InProgressBy = actor.ID

	updated, err := e.store.CompareAndWrite(ctx, next)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			// 竞争失败,重读确认持有人后向调用方报告
			if cur, getErr := e.store.Get(ctx, taskID); getErr == nil &&
				cur.State == TaskStateInProgress && cur.InProgressBy != actor.ID {
				return nil, alreadyClaimedBy(cur.InProgressBy)
			}
		}
		return nil, err
	}
	e.recordHistory(ctx, taskID, t.State, updated.State, actor, "task claimed")
	return updated, nil
}

// ToggleDone 完成任务
// 前置条件:任务由操作人持有,或操作人具备直接完成权限。done 为终态,
// completedAt 只写一次,之后不再清除
func (e *Engine) ToggleDone(ctx context.Context, taskID string, actor Actor) (*Task, error) {
	if !e.allowed(actor, PermBtnFinish) {
		return nil, ErrForbidden
	}
	t, err := e.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.IsDone() {
		return t, nil
	}
	switch t.State {
	case TaskStateBlocked:
		return nil, notClaimable("task is blocked")
	case TaskStateMissing:
		return nil, notClaimable("task is missing")
	case TaskStatePending:
		if !e.allowed(actor, PermBtnFinishDirect) {
			return nil, notClaimable("task is not in progress")
		}
	case TaskStateInProgress:
		if t.InProgressBy != actor.ID && !e.allowed(actor, PermBtnFinishDirect) {
			return nil, alreadyClaimedBy(t.InProgressBy)
		}
	}

	now := e.now()
	next := t.Clone()
	next.State = TaskStateDone
	next.InProgressBy = ""
	next.CompletedBy = actor.ID
	if next.CompletedAt == nil {
		next.CompletedAt = &now
	}

	updated, err := e.store.CompareAndWrite(ctx, next)
	if err != nil {
		return nil, err
	}
	e.recordHistory(ctx, taskID, t.State, updated.State, actor, "task completed")
	return updated, nil
}

// ToggleBlock 进入查找状态
// 对已锁定的任务再次调用是确认入口,不翻转回去
func (e *Engine) ToggleBlock(ctx context.Context, taskID string, actor Actor) (*Task, error) {
	if !e.allowed(actor, PermBtnSearch) {
		return nil, ErrForbidden
	}
	t, err := e.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.IsDone() {
		return nil, notClaimable("task is done")
	}
	if t.State == TaskStateBlocked {
		return t, nil
	}
	if t.State == TaskStateMissing {
		return nil, notClaimable("task is already missing")
	}

	next := t.Clone()
	next.State = TaskStateBlocked
	next.SearchedBy = actor.ID
	next.InProgressBy = ""

	updated, err := e.store.CompareAndWrite(ctx, next)
	if err != nil {
		return nil, err
	}
	e.recordHistory(ctx, taskID, t.State, updated.State, actor, "search started")
	return updated, nil
}

// ExhaustSearch 本轮查找结束,未找到也不直接判缺
// 任务回到 pending,是否上报缺料由调用方决定(后续显式调用 ToggleMissing)
func (e *Engine) ExhaustSearch(ctx context.Context, taskID string, actor Actor) (*Task, error) {
	if !e.allowed(actor, PermBtnSearch) {
		return nil, ErrForbidden
	}
	t, err := e.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.State != TaskStateBlocked {
		return nil, notClaimable("task is not blocked")
	}

	next := t.Clone()
	next.State = TaskStatePending
	next.SearchedBy = ""

	updated, err := e.store.CompareAndWrite(ctx, next)
	if err != nil {
		return nil, err
	}
	e.recordHistory(ctx, taskID, t.State, updated.State, actor, "search exhausted")
	return updated, nil
}

// ToggleMissing 上报缺料
// reason 必填;每次调用恰好派生一条通知
func (e *Engine) ToggleMissing(ctx context.Context, taskID string, actor Actor, reason string) (*Task, error) {
	if !e.allowed(actor, PermBtnMissing) {
		return nil, ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	t, err := e.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.State != TaskStateBlocked && t.State != TaskStatePending {
		return nil, notClaimable("task must be blocked or pending to report missing")
	}

	now := e.now()
	next := t.Clone()
	next.State = TaskStateMissing
	next.MissingReason = reason
	next.MissingReportedBy = actor.ID
	next.SearchedBy = ""

	updated, err := e.store.CompareAndWrite(ctx, next)
	if err != nil {
		return nil, err
	}
	e.recordHistory(ctx, taskID, t.State, updated.State, actor, "reported missing: "+reason)
	e.publish(newMissingNotification(updated, actor, reason, now))
	return updated, nil
}

// ToggleManualBlock 设置/清除手动锁定
// 手动锁定独立于工人驱动的状态,存在时压制 SetInProgress;
// 需要角色等级达到阈值(班组长/管理员)
func (e *Engine) ToggleManualBlock(ctx context.Context, taskID string, actor Actor) (*Task, error) {
	if !e.allowed(actor, PermBtnManualBlock) {
		return nil, ErrForbidden
	}
	if actor.Role != RoleAdmin && actor.Rank < e.manualBlockMinRank {
		return nil, ErrForbidden
	}
	t, err := e.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.IsDone() {
		return nil, notClaimable("task is done")
	}

	next := t.Clone()
	next.IsManuallyBlocked = !t.IsManuallyBlocked

	updated, err := e.store.CompareAndWrite(ctx, next)
	if err != nil {
		return nil, err
	}
	reason := "manual block set"
	if !updated.IsManuallyBlocked {
		reason = "manual block cleared"
	}
	e.recordHistory(ctx, taskID, t.State, updated.State, actor, reason)
	return updated, nil
}

// MarkAsIncorrect 标记任务数据有误
// 只是注解,不是终态,不清除其他标记
func (e *Engine) MarkAsIncorrect(ctx context.Context, taskID string, actor Actor) (*Task, error) {
	if !e.allowed(actor, PermBtnIncorrect) {
		return nil, ErrForbidden
	}
	t, err := e.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.IsDone() {
		return nil, notClaimable("task is done")
	}
	if t.IsIncorrect {
		return t, nil
	}

	next := t.Clone()
	next.IsIncorrect = true

	updated, err := e.store.CompareAndWrite(ctx, next)
	if err != nil {
		return nil, err
	}
	e.recordHistory(ctx, taskID, t.State, updated.State, actor, "marked as incorrect")
	return updated, nil
}

// ReleaseTask 放弃已领取的任务
// 仅当前持有人可调用;任务回到 pending,优先级与排队位置保持不变
func (e *Engine) ReleaseTask(ctx context.Context, taskID string, actor Actor) (*Task, error) {
	if !e.allowed(actor, PermBtnRelease) {
		return nil, ErrForbidden
	}
	t, err := e.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.State != TaskStateInProgress {
		return nil, notClaimable("task is not in progress")
	}
	if t.InProgressBy != actor.ID {
		return nil, ErrNotOwner
	}

	next := t.Clone()
	next.State = TaskStatePending
	next.InProgressBy = ""

	updated, err := e.store.CompareAndWrite(ctx, next)
	if err != nil {
		return nil, err
	}
	e.recordHistory(ctx, taskID, t.State, updated.State, actor, "task released")
	return updated, nil
}

// AddNote 追加/覆盖备注,不改变任务状态
func (e *Engine) AddNote(ctx context.Context, taskID string, actor Actor, note string) (*Task, error) {
	if !e.allowed(actor, PermBtnNote) {
		return nil, ErrForbidden
	}
	t, err := e.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	next := t.Clone()
	next.Note = note

	updated, err := e.store.CompareAndWrite(ctx, next)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// recordHistory 尽力而为地记录状态历史
func (e *Engine) recordHistory(ctx context.Context, taskID string, from, to TaskState, actor Actor, reason string) {
	if e.history == nil {
		return
	}
	change := &StateChange{
		TaskID:   taskID,
		From:     from,
		To:       to,
		Operator: actor.ID,
		Reason:   reason,
		Time:     e.now(),
	}
	if err := e.history.Record(ctx, change); err != nil {
		e.logger.WithError(err).WithField("task_id", taskID).Warn("failed to record state history")
	}
}
