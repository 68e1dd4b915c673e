package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/model"
	"github.com/mautops/warehouse-gin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var baseTime = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

// setupTaskDB 创建测试数据库
func setupTaskDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&model.TaskModel{})
	require.NoError(t, err)

	return db
}

// newTaskModel 构造待入库的任务模型
func newTaskModel(id string) *model.TaskModel {
	return &model.TaskModel{
		ID:           id,
		PartNumber:   "PN-1000",
		Quantity:     4,
		QuantityUnit: "pcs",
		Priority:     "NORMAL",
		State:        "pending",
		CreatedBy:    "leader-1",
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
}

// TestTaskRepositoryCreateAndFind 测试任务写入与查找
func TestTaskRepositoryCreateAndFind(t *testing.T) {
	db := setupTaskDB(t)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTaskModel("task-001")))

	found, err := repo.FindByID(ctx, "task-001")
	require.NoError(t, err)
	assert.Equal(t, "PN-1000", found.PartNumber)
	assert.Equal(t, int64(0), found.Version)

	_, err = repo.FindByID(ctx, "nope")
	assert.True(t, repository.IsNotFound(err))
}

// TestTaskRepositoryCreateInvalid 测试非法模型被拒绝
func TestTaskRepositoryCreateInvalid(t *testing.T) {
	db := setupTaskDB(t)
	repo := repository.NewTaskRepository(db)

	tm := newTaskModel("task-001")
	tm.PartNumber = ""
	assert.Error(t, repo.Create(context.Background(), tm))
}

// TestTaskRepositoryUpdateGuarded 测试乐观锁更新
func TestTaskRepositoryUpdateGuarded(t *testing.T) {
	db := setupTaskDB(t)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTaskModel("task-001")))

	// 版本匹配,写入成功
	next := newTaskModel("task-001")
	next.State = "in_progress"
	next.InProgressBy = "worker-1"
	next.Version = 1
	require.NoError(t, repo.UpdateGuarded(ctx, next, 0))

	found, err := repo.FindByID(ctx, "task-001")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", found.State)
	assert.Equal(t, "worker-1", found.InProgressBy)
	assert.Equal(t, int64(1), found.Version)

	// 旧版本写入,冲突
	stale := newTaskModel("task-001")
	stale.State = "done"
	stale.Version = 1
	err = repo.UpdateGuarded(ctx, stale, 0)
	assert.ErrorIs(t, err, engine.ErrConflict)

	// 冲突不写入任何字段
	found, err = repo.FindByID(ctx, "task-001")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", found.State)

	// 行不存在
	ghost := newTaskModel("ghost")
	err = repo.UpdateGuarded(ctx, ghost, 0)
	assert.True(t, repository.IsNotFound(err))
}

// TestTaskRepositoryUpdateGuardedClearsFields 测试零值字段被写入
func TestTaskRepositoryUpdateGuardedClearsFields(t *testing.T) {
	db := setupTaskDB(t)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	claimed := newTaskModel("task-001")
	claimed.State = "in_progress"
	claimed.InProgressBy = "worker-1"
	require.NoError(t, repo.Create(ctx, claimed))

	// 放弃任务:持有人字段必须被清空而不是被忽略
	released := newTaskModel("task-001")
	released.State = "pending"
	released.InProgressBy = ""
	released.Version = 1
	require.NoError(t, repo.UpdateGuarded(ctx, released, 0))

	found, err := repo.FindByID(ctx, "task-001")
	require.NoError(t, err)
	assert.Equal(t, "pending", found.State)
	assert.Empty(t, found.InProgressBy)
}

// TestTaskRepositoryFindByFilter 测试过滤查询
func TestTaskRepositoryFindByFilter(t *testing.T) {
	db := setupTaskDB(t)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	pending := newTaskModel("t-pending")
	require.NoError(t, repo.Create(ctx, pending))

	urgent := newTaskModel("t-urgent")
	urgent.Priority = "URGENT"
	urgent.CreatedAt = baseTime.Add(time.Minute)
	require.NoError(t, repo.Create(ctx, urgent))

	done := newTaskModel("t-done")
	done.State = "done"
	done.CreatedAt = baseTime.Add(2 * time.Minute)
	require.NoError(t, repo.Create(ctx, done))

	// 默认不含已完成任务
	tasks, err := repo.FindByFilter(ctx, &repository.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	// 显式包含已完成任务
	tasks, err = repo.FindByFilter(ctx, &repository.TaskFilter{IncludeDone: true})
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	// 按状态过滤
	state := "done"
	tasks, err = repo.FindByFilter(ctx, &repository.TaskFilter{State: &state})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t-done", tasks[0].ID)

	// 按优先级过滤
	priority := "URGENT"
	tasks, err = repo.FindByFilter(ctx, &repository.TaskFilter{Priority: &priority})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t-urgent", tasks[0].ID)

	// 按时间窗口过滤
	start := baseTime.Add(30 * time.Second)
	tasks, err = repo.FindByFilter(ctx, &repository.TaskFilter{StartTime: &start, IncludeDone: true})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

// TestTaskRepositoryDelete 测试硬删除
func TestTaskRepositoryDelete(t *testing.T) {
	db := setupTaskDB(t)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTaskModel("task-001")))
	require.NoError(t, repo.Delete(ctx, "task-001"))

	_, err := repo.FindByID(ctx, "task-001")
	assert.True(t, repository.IsNotFound(err))

	err = repo.Delete(ctx, "task-001")
	assert.True(t, repository.IsNotFound(err))
}

// TestTaskRepositoryCountByState 测试按状态统计
func TestTaskRepositoryCountByState(t *testing.T) {
	db := setupTaskDB(t)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	for i, state := range []string{"pending", "pending", "done"} {
		tm := newTaskModel("task-00" + string(rune('1'+i)))
		tm.State = state
		require.NoError(t, repo.Create(ctx, tm))
	}

	counts, err := repo.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["pending"])
	assert.Equal(t, int64(1), counts["done"])
	assert.Zero(t, counts["missing"])
}
