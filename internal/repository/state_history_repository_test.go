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

// setupHistoryDB 创建测试数据库
func setupHistoryDB(t *testing.T) repository.StateHistoryRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.StateHistoryModel{}))
	return repository.NewStateHistoryRepository(db)
}

// TestStateHistoryRepositoryFindByTaskID 测试历史按时间升序
func TestStateHistoryRepositoryFindByTaskID(t *testing.T) {
	repo := setupHistoryDB(t)
	ctx := context.Background()

	entries := []*model.StateHistoryModel{
		{ID: "h-2", TaskID: "task-001", FromState: "pending", ToState: "in_progress", Operator: "worker-1", CreatedAt: baseTime.Add(time.Minute)},
		{ID: "h-1", TaskID: "task-001", ToState: "pending", Operator: "leader-1", CreatedAt: baseTime},
		{ID: "h-other", TaskID: "task-002", ToState: "pending", Operator: "leader-1", CreatedAt: baseTime},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(ctx, e))
	}

	history, err := repo.FindByTaskID(ctx, "task-001")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "h-1", history[0].ID, "oldest first")
	assert.Equal(t, "h-2", history[1].ID)
}

// TestHistorySinkRecord 测试引擎历史出口落库
func TestHistorySinkRecord(t *testing.T) {
	repo := setupHistoryDB(t)
	sink := repository.NewHistorySink(repo)
	ctx := context.Background()

	err := sink.Record(ctx, &engine.StateChange{
		TaskID:   "task-001",
		From:     engine.TaskStatePending,
		To:       engine.TaskStateInProgress,
		Operator: "worker-1",
		Reason:   "task claimed",
		Time:     baseTime,
	})
	require.NoError(t, err)

	history, err := repo.FindByTaskID(ctx, "task-001")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID)
	assert.Equal(t, "pending", history[0].FromState)
	assert.Equal(t, "in_progress", history[0].ToState)
	assert.Equal(t, "task claimed", history[0].Reason)
	assert.Equal(t, "worker-1", history[0].Operator)
}
