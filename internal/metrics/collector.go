package metrics

import (
	"context"
	"time"

	"github.com/mautops/warehouse-gin/internal/repository"
	"gorm.io/gorm"
)

// Collector 指标收集器
// 定期刷新数据库连接数和任务状态分布两类快照型指标
type Collector struct {
	db       *gorm.DB
	tasks    repository.TaskRepository
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, tasks repository.TaskRepository, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		tasks:    tasks,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	c.started = true
	go c.collect()
}

// Stop 停止指标收集器,未启动时直接返回
func (c *Collector) Stop() {
	c.cancel()
	if c.started {
		<-c.done
	}
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = UpdateDatabaseConnections(c.db)
			c.refreshTasksByState()
		}
	}
}

// refreshTasksByState 刷新任务状态分布
func (c *Collector) refreshTasksByState() {
	if c.tasks == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()

	counts, err := c.tasks.CountByState(ctx)
	if err != nil {
		return
	}

	// 未出现的状态归零,避免残留旧值
	for _, state := range []string{"pending", "in_progress", "blocked", "missing", "done"} {
		UpdateTasksByState(state, float64(counts[state]))
	}
}
