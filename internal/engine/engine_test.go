package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore 内存任务存储,按版本号裁决并发写入
type memStore struct {
	mu    sync.Mutex
	tasks map[string]*Task
	fail  bool
}

func newMemStore() *memStore {
	return &memStore{tasks: make(map[string]*Task)}
}

func (s *memStore) Get(ctx context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, fmt.Errorf("connection refused: %w", ErrStoreUnavailable)
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return t.Clone(), nil
}

func (s *memStore) Create(ctx context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("connection refused: %w", ErrStoreUnavailable)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *memStore) CompareAndWrite(ctx context.Context, task *Task) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, fmt.Errorf("connection refused: %w", ErrStoreUnavailable)
	}
	cur, ok := s.tasks[task.ID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if cur.Version != task.Version {
		return nil, ErrConflict
	}
	next := task.Clone()
	next.Version++
	s.tasks[task.ID] = next
	return next.Clone(), nil
}

// conflictStore 包装 memStore,首次写入前让竞争对手抢先成功
type conflictStore struct {
	*memStore
	rival func(*Task)
	once  sync.Once
}

func (s *conflictStore) CompareAndWrite(ctx context.Context, task *Task) (*Task, error) {
	conflicted := false
	s.once.Do(func() {
		s.mu.Lock()
		cur := s.tasks[task.ID].Clone()
		s.rival(cur)
		cur.Version++
		s.tasks[task.ID] = cur
		s.mu.Unlock()
		conflicted = true
	})
	if conflicted {
		return nil, ErrConflict
	}
	return s.memStore.CompareAndWrite(ctx, task)
}

// mapGate 内存权限表
type mapGate struct {
	grants map[string]map[string]bool
}

func (g *mapGate) Can(role, permission string) bool {
	return g.grants[role][permission]
}

func allPermsGate(role string) *mapGate {
	perms := map[string]bool{}
	for _, p := range []string{
		PermCreateTask, PermBtnFinish, PermBtnFinishDirect, PermBtnSearch,
		PermBtnMissing, PermBtnManualBlock, PermBtnIncorrect, PermBtnRelease,
		PermBtnNote, PermBtnAudit, PermDeleteTask, PermManageRoles, PermAckNotification,
	} {
		perms[p] = true
	}
	return &mapGate{grants: map[string]map[string]bool{role: perms}}
}

// memSink 收集通知
type memSink struct {
	mu            sync.Mutex
	notifications []*Notification
	fail          bool
}

func (s *memSink) Publish(n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *memSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

// memHistory 收集状态历史
type memHistory struct {
	mu      sync.Mutex
	changes []*StateChange
}

func (h *memHistory) Record(ctx context.Context, change *StateChange) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changes = append(h.changes, change)
	return nil
}

var fixedNow = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

// newTestEngine 构造带内存依赖的引擎
func newTestEngine(store TaskStore, gate PermissionGate) (*Engine, *memSink, *memHistory) {
	sink := &memSink{}
	history := &memHistory{}
	eng := New(Config{
		Store:    store,
		Gate:     gate,
		Notifier: sink,
		History:  history,
	})
	eng.now = func() time.Time { return fixedNow }
	return eng, sink, history
}

// seedTask 预置一条已入库任务
func seedTask(t *testing.T, store *memStore, task *Task) {
	t.Helper()
	if task.ID == "" {
		task.ID = "task-001"
	}
	if task.PartNumber == "" {
		task.PartNumber = "PN-1000"
	}
	if task.Priority == "" {
		task.Priority = PriorityNormal
	}
	if task.QuantityUnit == "" {
		task.QuantityUnit = UnitPieces
	}
	if task.State == "" {
		task.State = TaskStatePending
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = fixedNow
	}
	require.NoError(t, store.Create(context.Background(), task))
}

var (
	worker = Actor{ID: "worker-1", Role: "WORKER", Rank: 1}
	leader = Actor{ID: "leader-1", Role: "LEADER", Rank: 2}
	admin  = Actor{ID: "admin-1", Role: RoleAdmin, Rank: 99}
)

// TestCreateTaskDefaults 测试创建任务时的默认值
func TestCreateTaskDefaults(t *testing.T) {
	store := newMemStore()
	eng, _, history := newTestEngine(store, allPermsGate("LEADER"))

	task, err := eng.CreateTask(context.Background(), leader, &CreateTaskRequest{
		IsLogistics: true,
		PartNumber:  "  PN-2000  ",
		Workplace:   "WP-01",
		Quantity:    4,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, TaskStatePending, task.State)
	assert.Equal(t, PriorityNormal, task.Priority)
	assert.Equal(t, UnitPieces, task.QuantityUnit)
	assert.Equal(t, "PN-2000", task.PartNumber)
	assert.Equal(t, leader.ID, task.CreatedBy)
	assert.Equal(t, fixedNow, task.CreatedAt)
	assert.Len(t, history.changes, 1)
	assert.Equal(t, TaskStatePending, history.changes[0].To)
}

// TestCreateTaskForbidden 测试无权限创建任务
func TestCreateTaskForbidden(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, &mapGate{grants: map[string]map[string]bool{}})

	_, err := eng.CreateTask(context.Background(), worker, &CreateTaskRequest{PartNumber: "PN-1"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, store.tasks)
}

// TestCreateTaskAdminBypass 测试管理员旁路权限检查
func TestCreateTaskAdminBypass(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, &mapGate{grants: map[string]map[string]bool{}})

	task, err := eng.CreateTask(context.Background(), admin, &CreateTaskRequest{PartNumber: "PN-1"})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, task.CreatedBy)
}

// TestCreateTaskMissingPartNumber 测试零件号为空被拒绝
func TestCreateTaskMissingPartNumber(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("LEADER"))

	_, err := eng.CreateTask(context.Background(), leader, &CreateTaskRequest{PartNumber: "   "})
	assert.Error(t, err)
	assert.Empty(t, store.tasks)
}

// TestSetInProgressClaim 测试领取任务
func TestSetInProgressClaim(t *testing.T) {
	store := newMemStore()
	eng, _, history := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{})

	task, err := eng.SetInProgress(context.Background(), "task-001", worker)
	require.NoError(t, err)

	assert.Equal(t, TaskStateInProgress, task.State)
	assert.Equal(t, worker.ID, task.InProgressBy)
	assert.Equal(t, int64(1), task.Version)
	assert.Len(t, history.changes, 1)
}

// TestSetInProgressIdempotentForOwner 测试持有人重复领取
func TestSetInProgressIdempotentForOwner(t *testing.T) {
	store := newMemStore()
	eng, _, history := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{State: TaskStateInProgress, InProgressBy: worker.ID})

	task, err := eng.SetInProgress(context.Background(), "task-001", worker)
	require.NoError(t, err)
	assert.Equal(t, worker.ID, task.InProgressBy)
	assert.Equal(t, int64(0), task.Version, "no write should happen")
	assert.Empty(t, history.changes)
}

// TestSetInProgressAlreadyClaimed 测试领取已被持有的任务
func TestSetInProgressAlreadyClaimed(t *testing.T) {
	store := newMemStore()
	gate := allPermsGate("WORKER")
	gate.grants["LEADER"] = gate.grants["WORKER"]
	eng, _, _ := newTestEngine(store, gate)
	seedTask(t, store, &Task{State: TaskStateInProgress, InProgressBy: worker.ID})

	_, err := eng.SetInProgress(context.Background(), "task-001", leader)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Contains(t, err.Error(), worker.ID)
}

// TestSetInProgressRace 测试并发领取竞争,失败方收到已领取错误
func TestSetInProgressRace(t *testing.T) {
	store := &conflictStore{
		memStore: newMemStore(),
		rival: func(cur *Task) {
			cur.State = TaskStateInProgress
			cur.InProgressBy = "rival-1"
		},
	}
	eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store.memStore, &Task{})

	_, err := eng.SetInProgress(context.Background(), "task-001", worker)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Contains(t, err.Error(), "rival-1")
}

// TestSetInProgressRejectedStates 测试不可领取状态
func TestSetInProgressRejectedStates(t *testing.T) {
	cases := []struct {
		name string
		task Task
	}{
		{"done", Task{State: TaskStateDone, CompletedAt: &fixedNow}},
		{"blocked", Task{State: TaskStateBlocked, SearchedBy: "other"}},
		{"missing", Task{State: TaskStateMissing, MissingReportedBy: "other", MissingReason: "gone"}},
		{"manually blocked", Task{IsManuallyBlocked: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))
			task := tc.task
			seedTask(t, store, &task)

			_, err := eng.SetInProgress(context.Background(), "task-001", worker)
			assert.ErrorIs(t, err, ErrNotClaimable)
		})
	}
}

// TestToggleDoneByOwner 测试持有人完成任务
func TestToggleDoneByOwner(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{State: TaskStateInProgress, InProgressBy: worker.ID})

	task, err := eng.ToggleDone(context.Background(), "task-001", worker)
	require.NoError(t, err)

	assert.Equal(t, TaskStateDone, task.State)
	assert.Empty(t, task.InProgressBy)
	assert.Equal(t, worker.ID, task.CompletedBy)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, fixedNow, *task.CompletedAt)
}

// TestToggleDoneIdempotent 测试重复完成不产生额外写入
func TestToggleDoneIdempotent(t *testing.T) {
	store := newMemStore()
	eng, _, history := newTestEngine(store, allPermsGate("WORKER"))
	done := fixedNow.Add(-time.Hour)
	seedTask(t, store, &Task{State: TaskStateDone, CompletedBy: worker.ID, CompletedAt: &done})

	task, err := eng.ToggleDone(context.Background(), "task-001", worker)
	require.NoError(t, err)
	assert.Equal(t, done, *task.CompletedAt, "completedAt must not change")
	assert.Equal(t, int64(0), task.Version)
	assert.Empty(t, history.changes)
}

// TestToggleDonePendingNeedsDirectPermission 测试跳过领取直接完成
func TestToggleDonePendingNeedsDirectPermission(t *testing.T) {
	store := newMemStore()
	gate := &mapGate{grants: map[string]map[string]bool{
		"WORKER": {PermBtnFinish: true},
		"LEADER": {PermBtnFinish: true, PermBtnFinishDirect: true},
	}}
	eng, _, _ := newTestEngine(store, gate)
	seedTask(t, store, &Task{})

	_, err := eng.ToggleDone(context.Background(), "task-001", worker)
	assert.ErrorIs(t, err, ErrNotClaimable)

	task, err := eng.ToggleDone(context.Background(), "task-001", leader)
	require.NoError(t, err)
	assert.Equal(t, TaskStateDone, task.State)
	assert.Equal(t, leader.ID, task.CompletedBy)
}

// TestToggleDoneOtherOwner 测试完成他人持有的任务
func TestToggleDoneOtherOwner(t *testing.T) {
	store := newMemStore()
	gate := &mapGate{grants: map[string]map[string]bool{
		"WORKER": {PermBtnFinish: true},
		"LEADER": {PermBtnFinish: true, PermBtnFinishDirect: true},
	}}
	eng, _, _ := newTestEngine(store, gate)
	seedTask(t, store, &Task{State: TaskStateInProgress, InProgressBy: "someone-else"})

	_, err := eng.ToggleDone(context.Background(), "task-001", worker)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	task, err := eng.ToggleDone(context.Background(), "task-001", leader)
	require.NoError(t, err)
	assert.Equal(t, TaskStateDone, task.State)
}

// TestToggleBlock 测试进入查找状态
func TestToggleBlock(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{State: TaskStateInProgress, InProgressBy: worker.ID})

	task, err := eng.ToggleBlock(context.Background(), "task-001", worker)
	require.NoError(t, err)

	assert.Equal(t, TaskStateBlocked, task.State)
	assert.Equal(t, worker.ID, task.SearchedBy)
	assert.Empty(t, task.InProgressBy, "holder must be released when search starts")
}

// TestToggleBlockConfirmsExisting 测试对已锁定任务再次调用不翻转
func TestToggleBlockConfirmsExisting(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{State: TaskStateBlocked, SearchedBy: "other"})

	task, err := eng.ToggleBlock(context.Background(), "task-001", worker)
	require.NoError(t, err)
	assert.Equal(t, TaskStateBlocked, task.State)
	assert.Equal(t, "other", task.SearchedBy)
	assert.Equal(t, int64(0), task.Version)
}

// TestToggleBlockRejectedStates 测试完成或缺料任务不能进入查找
func TestToggleBlockRejectedStates(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{ID: "t-done", State: TaskStateDone, CompletedAt: &fixedNow})
	seedTask(t, store, &Task{ID: "t-missing", State: TaskStateMissing, MissingReportedBy: "x", MissingReason: "gone"})

	_, err := eng.ToggleBlock(context.Background(), "t-done", worker)
	assert.ErrorIs(t, err, ErrNotClaimable)

	_, err = eng.ToggleBlock(context.Background(), "t-missing", worker)
	assert.ErrorIs(t, err, ErrNotClaimable)
}

// TestExhaustSearch 测试查找结束回到待处理
func TestExhaustSearch(t *testing.T) {
	store := newMemStore()
	eng, sink, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{State: TaskStateBlocked, SearchedBy: worker.ID})

	task, err := eng.ExhaustSearch(context.Background(), "task-001", worker)
	require.NoError(t, err)

	assert.Equal(t, TaskStatePending, task.State)
	assert.Empty(t, task.SearchedBy)
	assert.Zero(t, sink.count(), "exhausting a search must not notify")
}

// TestExhaustSearchNotBlocked 测试非查找状态不能结束查找
func TestExhaustSearchNotBlocked(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{})

	_, err := eng.ExhaustSearch(context.Background(), "task-001", worker)
	assert.ErrorIs(t, err, ErrNotClaimable)
}

// TestToggleMissingRequiresReason 测试缺料上报必须带原因
func TestToggleMissingRequiresReason(t *testing.T) {
	store := newMemStore()
	eng, sink, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{State: TaskStateBlocked, SearchedBy: worker.ID})

	_, err := eng.ToggleMissing(context.Background(), "task-001", worker, "   ")
	assert.ErrorIs(t, err, ErrReasonRequired)
	assert.Zero(t, sink.count())
}

// TestToggleMissing 测试缺料上报派生恰好一条通知
func TestToggleMissing(t *testing.T) {
	store := newMemStore()
	eng, sink, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{State: TaskStateBlocked, SearchedBy: worker.ID, PartNumber: "PN-77"})

	task, err := eng.ToggleMissing(context.Background(), "task-001", worker, "not on shelf 4B")
	require.NoError(t, err)

	assert.Equal(t, TaskStateMissing, task.State)
	assert.Equal(t, "not on shelf 4B", task.MissingReason)
	assert.Equal(t, worker.ID, task.MissingReportedBy)
	assert.Empty(t, task.SearchedBy)

	require.Equal(t, 1, sink.count())
	n := sink.notifications[0]
	assert.Equal(t, "PN-77", n.PartNumber)
	assert.Equal(t, "not on shelf 4B", n.Reason)
	assert.Equal(t, worker.ID, n.ReportedBy)
	assert.Equal(t, fixedNow, n.CreatedAt)
}

// TestToggleMissingFromPending 测试未经查找直接上报缺料
func TestToggleMissingFromPending(t *testing.T) {
	store := newMemStore()
	eng, sink, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{})

	task, err := eng.ToggleMissing(context.Background(), "task-001", worker, "bin empty")
	require.NoError(t, err)
	assert.Equal(t, TaskStateMissing, task.State)
	assert.Equal(t, 1, sink.count())
}

// TestToggleMissingRejectedStates 测试进行中或已完成任务不能上报缺料
func TestToggleMissingRejectedStates(t *testing.T) {
	store := newMemStore()
	eng, sink, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{ID: "t-ip", State: TaskStateInProgress, InProgressBy: "x"})
	seedTask(t, store, &Task{ID: "t-done", State: TaskStateDone, CompletedAt: &fixedNow})

	_, err := eng.ToggleMissing(context.Background(), "t-ip", worker, "gone")
	assert.ErrorIs(t, err, ErrNotClaimable)

	_, err = eng.ToggleMissing(context.Background(), "t-done", worker, "gone")
	assert.ErrorIs(t, err, ErrNotClaimable)
	assert.Zero(t, sink.count())
}

// TestToggleMissingNotifierFailure 测试通知投递失败不回滚任务变更
func TestToggleMissingNotifierFailure(t *testing.T) {
	store := newMemStore()
	eng, sink, _ := newTestEngine(store, allPermsGate("WORKER"))
	sink.fail = true
	seedTask(t, store, &Task{})

	task, err := eng.ToggleMissing(context.Background(), "task-001", worker, "gone")
	require.NoError(t, err)
	assert.Equal(t, TaskStateMissing, task.State)
}

// TestToggleManualBlockRank 测试手动锁定的等级门槛
func TestToggleManualBlockRank(t *testing.T) {
	store := newMemStore()
	gate := allPermsGate("WORKER")
	gate.grants["LEADER"] = gate.grants["WORKER"]
	eng, _, _ := newTestEngine(store, gate)
	seedTask(t, store, &Task{})

	_, err := eng.ToggleManualBlock(context.Background(), "task-001", worker)
	assert.ErrorIs(t, err, ErrForbidden, "rank 1 is below the threshold")

	task, err := eng.ToggleManualBlock(context.Background(), "task-001", leader)
	require.NoError(t, err)
	assert.True(t, task.IsManuallyBlocked)
	assert.Equal(t, TaskStatePending, task.State, "manual block is orthogonal to the main state")

	task, err = eng.ToggleManualBlock(context.Background(), "task-001", leader)
	require.NoError(t, err)
	assert.False(t, task.IsManuallyBlocked)
}

// TestToggleManualBlockAdmin 测试管理员不受等级门槛限制
func TestToggleManualBlockAdmin(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, &mapGate{grants: map[string]map[string]bool{}})
	seedTask(t, store, &Task{})

	lowRankAdmin := Actor{ID: "admin-2", Role: RoleAdmin, Rank: 0}
	task, err := eng.ToggleManualBlock(context.Background(), "task-001", lowRankAdmin)
	require.NoError(t, err)
	assert.True(t, task.IsManuallyBlocked)
}

// TestToggleManualBlockDone 测试已完成任务不能手动锁定
func TestToggleManualBlockDone(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("LEADER"))
	seedTask(t, store, &Task{State: TaskStateDone, CompletedAt: &fixedNow})

	_, err := eng.ToggleManualBlock(context.Background(), "task-001", leader)
	assert.ErrorIs(t, err, ErrNotClaimable)
}

// TestMarkAsIncorrect 测试标记数据错误
func TestMarkAsIncorrect(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("LEADER"))
	seedTask(t, store, &Task{State: TaskStateInProgress, InProgressBy: worker.ID})

	task, err := eng.MarkAsIncorrect(context.Background(), "task-001", leader)
	require.NoError(t, err)
	assert.True(t, task.IsIncorrect)
	assert.Equal(t, TaskStateInProgress, task.State, "marking incorrect is an annotation only")
	assert.Equal(t, worker.ID, task.InProgressBy)

	// 重复标记不再写入
	task, err = eng.MarkAsIncorrect(context.Background(), "task-001", leader)
	require.NoError(t, err)
	assert.Equal(t, int64(1), task.Version)
}

// TestMarkAsIncorrectDone 测试已完成任务不能标记错误
func TestMarkAsIncorrectDone(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("LEADER"))
	seedTask(t, store, &Task{State: TaskStateDone, CompletedAt: &fixedNow})

	_, err := eng.MarkAsIncorrect(context.Background(), "task-001", leader)
	assert.ErrorIs(t, err, ErrNotClaimable)
}

// TestReleaseTask 测试持有人放弃任务
func TestReleaseTask(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{State: TaskStateInProgress, InProgressBy: worker.ID, Priority: PriorityUrgent})

	task, err := eng.ReleaseTask(context.Background(), "task-001", worker)
	require.NoError(t, err)
	assert.Equal(t, TaskStatePending, task.State)
	assert.Empty(t, task.InProgressBy)
	assert.Equal(t, PriorityUrgent, task.Priority, "priority survives release")
}

// TestReleaseTaskNotOwner 测试非持有人不能放弃
func TestReleaseTaskNotOwner(t *testing.T) {
	store := newMemStore()
	gate := allPermsGate("WORKER")
	gate.grants["LEADER"] = gate.grants["WORKER"]
	eng, _, _ := newTestEngine(store, gate)
	seedTask(t, store, &Task{State: TaskStateInProgress, InProgressBy: worker.ID})

	_, err := eng.ReleaseTask(context.Background(), "task-001", leader)
	assert.ErrorIs(t, err, ErrNotOwner)
}

// TestReleaseTaskNotInProgress 测试未领取任务不能放弃
func TestReleaseTaskNotInProgress(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{})

	_, err := eng.ReleaseTask(context.Background(), "task-001", worker)
	assert.ErrorIs(t, err, ErrNotClaimable)
}

// TestAddNote 测试备注覆盖且不改变状态
func TestAddNote(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{State: TaskStateInProgress, InProgressBy: worker.ID, Note: "old"})

	task, err := eng.AddNote(context.Background(), "task-001", worker, "check rack 12")
	require.NoError(t, err)
	assert.Equal(t, "check rack 12", task.Note)
	assert.Equal(t, TaskStateInProgress, task.State)
}

// TestForbiddenNeverMutates 测试权限拒绝不产生任何写入
func TestForbiddenNeverMutates(t *testing.T) {
	store := newMemStore()
	eng, sink, history := newTestEngine(store, &mapGate{grants: map[string]map[string]bool{}})
	seedTask(t, store, &Task{})

	ctx := context.Background()
	ops := []func() error{
		func() error { _, err := eng.SetInProgress(ctx, "task-001", worker); return err },
		func() error { _, err := eng.ToggleDone(ctx, "task-001", worker); return err },
		func() error { _, err := eng.ToggleBlock(ctx, "task-001", worker); return err },
		func() error { _, err := eng.ExhaustSearch(ctx, "task-001", worker); return err },
		func() error { _, err := eng.ToggleMissing(ctx, "task-001", worker, "gone"); return err },
		func() error { _, err := eng.ToggleManualBlock(ctx, "task-001", worker); return err },
		func() error { _, err := eng.MarkAsIncorrect(ctx, "task-001", worker); return err },
		func() error { _, err := eng.ReleaseTask(ctx, "task-001", worker); return err },
		func() error { _, err := eng.AddNote(ctx, "task-001", worker, "n"); return err },
		func() error { _, err := eng.StartAudit(ctx, "task-001", worker); return err },
		func() error { _, err := eng.FinishAudit(ctx, "task-001", worker, AuditOutcomeFound, "n"); return err },
	}
	for _, op := range ops {
		assert.ErrorIs(t, op(), ErrForbidden)
	}

	stored, err := store.Get(ctx, "task-001")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Version)
	assert.Zero(t, sink.count())
	assert.Empty(t, history.changes)
}

// TestStoreUnavailable 测试存储故障透传
func TestStoreUnavailable(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))
	seedTask(t, store, &Task{})
	store.fail = true

	_, err := eng.SetInProgress(context.Background(), "task-001", worker)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

// TestTaskNotFound 测试任务不存在
func TestTaskNotFound(t *testing.T) {
	store := newMemStore()
	eng, _, _ := newTestEngine(store, allPermsGate("WORKER"))

	_, err := eng.SetInProgress(context.Background(), "nope", worker)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

// TestTaskValidateStatePairs 测试主状态与持有人字段的配对不变量
func TestTaskValidateStatePairs(t *testing.T) {
	base := Task{
		ID:           "t-1",
		PartNumber:   "PN-1",
		Priority:     PriorityNormal,
		QuantityUnit: UnitPieces,
		State:        TaskStatePending,
	}
	assert.NoError(t, base.Validate())

	inProgressNoHolder := base
	inProgressNoHolder.State = TaskStateInProgress
	assert.Error(t, inProgressNoHolder.Validate())

	holderNotInProgress := base
	holderNotInProgress.InProgressBy = "w-1"
	assert.Error(t, holderNotInProgress.Validate())

	missingNoReporter := base
	missingNoReporter.State = TaskStateMissing
	assert.Error(t, missingNoReporter.Validate())

	doneNoTimestamp := base
	doneNoTimestamp.State = TaskStateDone
	assert.Error(t, doneNoTimestamp.Validate())

	auditResultNoAuditor := base
	auditResultNoAuditor.AuditResult = AuditResultOK
	assert.Error(t, auditResultNoAuditor.Validate())
}

// TestTaskClone 测试深拷贝不共享指针字段
func TestTaskClone(t *testing.T) {
	at := fixedNow
	task := &Task{ID: "t-1", CompletedAt: &at, AuditedAt: &at}
	clone := task.Clone()

	*clone.CompletedAt = fixedNow.Add(time.Hour)
	assert.Equal(t, fixedNow, *task.CompletedAt)
	assert.NotSame(t, task.AuditedAt, clone.AuditedAt)
}
