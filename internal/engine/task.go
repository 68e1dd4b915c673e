package engine

import (
	"errors"
	"strings"
	"time"
)

// TaskState 任务主状态
// 同一时刻有且仅有一个主状态,叠加标记(手动锁定/标记错误/盘点中)与主状态正交
type TaskState string

const (
	TaskStatePending    TaskState = "pending"
	TaskStateInProgress TaskState = "in_progress"
	TaskStateBlocked    TaskState = "blocked"
	TaskStateMissing    TaskState = "missing"
	TaskStateDone       TaskState = "done"
)

// Priority 任务优先级
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityUrgent Priority = "URGENT"
)

// QuantityUnit 数量单位
type QuantityUnit string

const (
	UnitPieces QuantityUnit = "pcs"
	UnitBoxes  QuantityUnit = "boxes"
	UnitPallet QuantityUnit = "pallet"
)

// AuditResult 稽核结论
type AuditResult string

const (
	AuditResultOK  AuditResult = "OK"  // 稽核确认物料找到
	AuditResultNOK AuditResult = "NOK" // 稽核确认物料缺失
)

// AuditOutcome 稽核操作入参
type AuditOutcome string

const (
	AuditOutcomeFound   AuditOutcome = "found"
	AuditOutcomeMissing AuditOutcome = "missing"
)

// 特殊零件号,用于区分盘点/废料称重/辅助作业任务
// 这些任务与生产任务共用同一数据结构
const (
	PartNumberInventory = "#INVENTORY"
	PartNumberScrap     = "#SCRAP"
	PartNumberActivity  = "#ACTIVITY"
)

// Actor 操作人
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Rank int    `json:"rank"`
}

// Task 任务领域对象
// 字段 JSON 名称是对外契约,导出器和前端依赖这些名称,不可变更
type Task struct {
	ID           string       `json:"id"`
	IsLogistics  bool         `json:"isLogistics"`
	IsProduction bool         `json:"isProduction"`
	IsActivity   bool         `json:"isActivity"`

	PartNumber     string       `json:"partNumber"`
	Workplace      string       `json:"workplace"`
	Quantity       int          `json:"quantity"`
	QuantityUnit   QuantityUnit `json:"quantityUnit"`
	Priority       Priority     `json:"priority"`
	Note           string       `json:"note,omitempty"`
	Plate          string       `json:"plate,omitempty"`
	SourceSectorID string       `json:"sourceSectorId,omitempty"`
	TargetSectorID string       `json:"targetSectorId,omitempty"`

	State             TaskState   `json:"state"`
	InProgressBy      string      `json:"inProgressBy,omitempty"`
	SearchedBy        string      `json:"searchedBy,omitempty"`
	MissingReason     string      `json:"missingReason,omitempty"`
	MissingReportedBy string      `json:"missingReportedBy,omitempty"`
	IsManuallyBlocked bool        `json:"isManuallyBlocked"`
	IsIncorrect       bool        `json:"isIncorrect"`
	IsAuditInProgress bool        `json:"isAuditInProgress"`
	AuditedBy         string      `json:"auditedBy,omitempty"`
	AuditResult       AuditResult `json:"auditResult,omitempty"`
	AuditNote         string      `json:"auditNote,omitempty"`
	AuditedAt         *time.Time  `json:"auditedAt,omitempty"`

	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedBy string     `json:"completedBy,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Version 乐观锁版本号,每次写入递增
	Version int64 `json:"version"`
}

// Clone 深拷贝任务对象
func (t *Task) Clone() *Task {
	c := *t
	if t.AuditedAt != nil {
		at := *t.AuditedAt
		c.AuditedAt = &at
	}
	if t.CompletedAt != nil {
		ct := *t.CompletedAt
		c.CompletedAt = &ct
	}
	return &c
}

// IsDone 任务是否已完成(终态)
func (t *Task) IsDone() bool {
	return t.State == TaskStateDone
}

// Validate 校验任务对象的状态不变量
// 主状态与持有人字段必须成对出现(见仓储层与测试)
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task ID is required")
	}
	if strings.TrimSpace(t.PartNumber) == "" {
		return errors.New("part number is required")
	}
	switch t.Priority {
	case PriorityLow, PriorityNormal, PriorityUrgent:
	default:
		return errors.New("invalid priority")
	}
	switch t.QuantityUnit {
	case UnitPieces, UnitBoxes, UnitPallet:
	default:
		return errors.New("invalid quantity unit")
	}
	if (t.State == TaskStateInProgress) != (t.InProgressBy != "") {
		return errors.New("inProgressBy must be set exactly when task is in progress")
	}
	if (t.State == TaskStateBlocked) != (t.SearchedBy != "") {
		return errors.New("searchedBy must be set exactly when task is blocked")
	}
	if (t.State == TaskStateMissing) != (t.MissingReportedBy != "") {
		return errors.New("missingReportedBy must be set exactly when task is missing")
	}
	if (t.AuditResult != "") != (t.AuditedBy != "") {
		return errors.New("auditedBy must be set exactly when auditResult is set")
	}
	if t.State == TaskStateDone && t.CompletedAt == nil {
		return errors.New("completedAt must be set on done tasks")
	}
	return nil
}
