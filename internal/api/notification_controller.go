package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mautops/warehouse-gin/internal/auth"
	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/service"
	"github.com/mautops/warehouse-gin/internal/utils"
)

// NotificationController 通知控制器
type NotificationController struct {
	notificationService service.NotificationService
}

// NewNotificationController 创建通知控制器
func NewNotificationController(notificationService service.NotificationService) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
	}
}

// actor 从请求上下文提取操作人
func (c *NotificationController) actor(ctx *gin.Context) (engine.Actor, bool) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		Error(ctx, http.StatusUnauthorized, "missing operator identity", "")
		return engine.Actor{}, false
	}
	return actor, true
}

// List 查询通知列表
// @Summary      查询通知列表
// @Description  按时间倒序返回缺料/稽核通知
// @Tags         通知
// @Produce      json
// @Param        unacknowledged query bool false "仅未确认"
// @Success      200  {object}  Response
// @Router       /notifications [get]
// @Security     BearerAuth
func (c *NotificationController) List(ctx *gin.Context) {
	unacknowledgedOnly := false
	if v := ctx.Query("unacknowledged"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid unacknowledged", err.Error())
			return
		}
		unacknowledgedOnly = b
	}

	notifications, err := c.notificationService.List(ctx.Request.Context(), unacknowledgedOnly)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, notifications)
}

// Acknowledge 确认通知
// @Summary      确认通知
// @Description  标记通知已被处理,重复确认是幂等的
// @Tags         通知
// @Produce      json
// @Param        id path string true "通知 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /notifications/{id}/ack [post]
// @Security     BearerAuth
func (c *NotificationController) Acknowledge(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateTaskID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid notification ID", err.Error())
		return
	}
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}

	if err := c.notificationService.Acknowledge(ctx.Request.Context(), id, actor); err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// Delete 清除通知
// @Summary      清除通知
// @Description  删除通知记录,不影响其引用的任务
// @Tags         通知
// @Produce      json
// @Param        id path string true "通知 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /notifications/{id} [delete]
// @Security     BearerAuth
func (c *NotificationController) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateTaskID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid notification ID", err.Error())
		return
	}
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}

	if err := c.notificationService.Delete(ctx.Request.Context(), id, actor); err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, nil)
}
