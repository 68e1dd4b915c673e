package ordering

import (
	"sort"

	"github.com/mautops/warehouse-gin/internal/engine"
)

// 工人看板的任务排序
// 确定性全序:优先级(紧急在前)为主键,创建时间升序为次键(同级 FIFO),
// 最后用 ID 兜底保证全序。blocked/missing 任务保留在原位置,
// 由前端视觉降级(Demoted),引擎不调整其名次,保证解除后回到 pending 时
// 的排队公平性

// priorityRank 数值越小越靠前
var priorityRank = map[engine.Priority]int{
	engine.PriorityUrgent: 0,
	engine.PriorityNormal: 1,
	engine.PriorityLow:    2,
}

// Less 两个任务的排序比较
func Less(a, b *engine.Task) bool {
	ra, rb := rank(a.Priority), rank(b.Priority)
	if ra != rb {
		return ra < rb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Sort 原地排序可见任务集
func Sort(tasks []*engine.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Less(tasks[i], tasks[j])
	})
}

// Demoted 任务是否应被前端视觉降级(不隐藏)
func Demoted(t *engine.Task) bool {
	return t.State == engine.TaskStateBlocked ||
		t.State == engine.TaskStateMissing ||
		t.IsManuallyBlocked
}

func rank(p engine.Priority) int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	// 未知优先级排在普通之后、低之前,避免误置顶
	return 2
}
