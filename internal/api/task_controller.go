package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/warehouse-gin/internal/auth"
	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/service"
	"github.com/mautops/warehouse-gin/internal/utils"
)

// TaskController 任务控制器
type TaskController struct {
	taskService service.TaskService
}

// NewTaskController 创建任务控制器
func NewTaskController(taskService service.TaskService) *TaskController {
	return &TaskController{
		taskService: taskService,
	}
}

// MissingRequest 缺料上报请求
// @Description 缺料上报的请求参数
type MissingRequest struct {
	Reason string `json:"reason" example:"货位为空" binding:"required"` // 缺料原因
}

// NoteRequest 备注请求
// @Description 追加备注的请求参数
type NoteRequest struct {
	Note string `json:"note" example:"放到了 B 区缓存架"` // 备注内容,覆盖原备注
}

// FinishAuditRequest 结束稽核请求
// @Description 结束稽核的请求参数
type FinishAuditRequest struct {
	Outcome string `json:"outcome" example:"found" binding:"required"` // 稽核结果: found, missing
	Note    string `json:"note" example:"在备用货位找到" binding:"required"`  // 稽核说明
}

// validateTaskID 验证任务 ID 并返回错误响应(如果无效)
func (c *TaskController) validateTaskID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateTaskID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid task ID", err.Error())
		return false
	}
	return true
}

// actor 从请求上下文提取操作人
func (c *TaskController) actor(ctx *gin.Context) (engine.Actor, bool) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		Error(ctx, http.StatusUnauthorized, "missing operator identity", "")
		return engine.Actor{}, false
	}
	return actor, true
}

// Create 创建任务
// @Summary      创建任务
// @Description  创建生产/物流任务,初始状态为 pending
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        request body engine.CreateTaskRequest true "任务信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks [post]
// @Security     BearerAuth
func (c *TaskController) Create(ctx *gin.Context) {
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}

	var req engine.CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := utils.ValidatePartNumber(req.PartNumber); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid part number", err.Error())
		return
	}
	req.Note = utils.SanitizeString(req.Note)

	task, err := c.taskService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Get 获取任务
// @Summary      获取任务详情
// @Description  根据 ID 获取任务详情
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id} [get]
// @Security     BearerAuth
func (c *TaskController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}

	task, err := c.taskService.Get(ctx.Request.Context(), id)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Claim 领取任务
// @Summary      领取任务
// @Description  将 pending 任务置为 in_progress 并记录持有人
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /tasks/{id}/claim [post]
// @Security     BearerAuth
func (c *TaskController) Claim(ctx *gin.Context) {
	c.transition(ctx, c.taskService.SetInProgress)
}

// Finish 完成任务
// @Summary      完成任务
// @Description  将任务置为终态 done
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /tasks/{id}/finish [post]
// @Security     BearerAuth
func (c *TaskController) Finish(ctx *gin.Context) {
	c.transition(ctx, c.taskService.ToggleDone)
}

// Search 进入查找状态
// @Summary      进入查找状态
// @Description  物料不在货位,任务转入 blocked 并记录查找人
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /tasks/{id}/search [post]
// @Security     BearerAuth
func (c *TaskController) Search(ctx *gin.Context) {
	c.transition(ctx, c.taskService.ToggleBlock)
}

// ExhaustSearch 结束本轮查找
// @Summary      结束本轮查找
// @Description  blocked 任务回到 pending,可再次查找或上报缺料
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /tasks/{id}/exhaust-search [post]
// @Security     BearerAuth
func (c *TaskController) ExhaustSearch(ctx *gin.Context) {
	c.transition(ctx, c.taskService.ExhaustSearch)
}

// ReportMissing 上报缺料
// @Summary      上报缺料
// @Description  任务转入 missing 并广播缺料通知,原因必填
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body MissingRequest true "缺料原因"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /tasks/{id}/missing [post]
// @Security     BearerAuth
func (c *TaskController) ReportMissing(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}

	var req MissingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := c.taskService.ToggleMissing(ctx.Request.Context(), id, actor, utils.SanitizeString(req.Reason))
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, task)
}

// ManualBlock 设置/清除手动锁定
// @Summary      手动锁定开关
// @Description  班组长及以上可锁定任务,锁定任务不可领取,再次调用解除
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks/{id}/manual-block [post]
// @Security     BearerAuth
func (c *TaskController) ManualBlock(ctx *gin.Context) {
	c.transition(ctx, c.taskService.ToggleManualBlock)
}

// MarkIncorrect 标记任务数据有误
// @Summary      标记数据有误
// @Description  给任务叠加数据有误标记,不改变主状态
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /tasks/{id}/incorrect [post]
// @Security     BearerAuth
func (c *TaskController) MarkIncorrect(ctx *gin.Context) {
	c.transition(ctx, c.taskService.MarkAsIncorrect)
}

// Release 放弃已领取的任务
// @Summary      放弃任务
// @Description  持有人放弃 in_progress 任务,任务回到 pending
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks/{id}/release [post]
// @Security     BearerAuth
func (c *TaskController) Release(ctx *gin.Context) {
	c.transition(ctx, c.taskService.ReleaseTask)
}

// Note 追加备注
// @Summary      追加备注
// @Description  覆盖任务备注,不改变任务状态
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body NoteRequest true "备注内容"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks/{id}/note [post]
// @Security     BearerAuth
func (c *TaskController) Note(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}

	var req NoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := c.taskService.AddNote(ctx.Request.Context(), id, actor, utils.SanitizeString(req.Note))
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, task)
}

// StartAudit 开始稽核
// @Summary      开始稽核
// @Description  对 missing 任务开始缺料稽核,同一任务同时只允许一次稽核
// @Tags         稽核
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /tasks/{id}/audit/start [post]
// @Security     BearerAuth
func (c *TaskController) StartAudit(ctx *gin.Context) {
	c.transition(ctx, c.taskService.StartAudit)
}

// FinishAudit 结束稽核
// @Summary      结束稽核
// @Description  以 found/missing 结论结束稽核并广播结果,说明必填
// @Tags         稽核
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body FinishAuditRequest true "稽核结论"
// @Success      200  {object}  Response
// @Failure      422  {object}  ErrorResponse
// @Router       /tasks/{id}/audit/finish [post]
// @Security     BearerAuth
func (c *TaskController) FinishAudit(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}

	var req FinishAuditRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := c.taskService.FinishAudit(ctx.Request.Context(), id, actor,
		engine.AuditOutcome(req.Outcome), utils.SanitizeString(req.Note))
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Delete 删除任务
// @Summary      删除任务
// @Description  管理操作,直接删除误建任务
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id} [delete]
// @Security     BearerAuth
func (c *TaskController) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}

	if err := c.taskService.Delete(ctx.Request.Context(), id, actor); err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// transition 无请求体转换操作的公共路径
func (c *TaskController) transition(ctx *gin.Context, fn func(ctx context.Context, id string, actor engine.Actor) (*engine.Task, error)) {
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}

	task, err := fn(ctx.Request.Context(), id, actor)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, task)
}
