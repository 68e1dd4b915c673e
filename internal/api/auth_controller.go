package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/warehouse-gin/internal/auth"
	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/repository"
	"github.com/mautops/warehouse-gin/internal/service"
	"github.com/mautops/warehouse-gin/internal/utils"
)

// AuthController 认证与操作员管理控制器
type AuthController struct {
	authService service.AuthService
}

// NewAuthController 创建认证控制器
func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

// LoginRequest 登录请求
// @Description 工牌号 + PIN 登录
type LoginRequest struct {
	OperatorID string `json:"operatorId" example:"W1024" binding:"required"` // 工牌号
	PIN        string `json:"pin" example:"4711" binding:"required"`         // PIN
}

// OperatorRequest 创建/更新操作员请求
// @Description 操作员信息,更新时 pin 为空表示保留原 PIN
type OperatorRequest struct {
	ID     string `json:"id" example:"W1024"`         // 工牌号,创建时必填
	Name   string `json:"name" example:"张伟"`          // 姓名
	Role   string `json:"role" example:"WORKER"`      // 角色名
	PIN    string `json:"pin" example:"4711"`         // PIN
	Active bool   `json:"active" example:"true"`      // 是否启用
}

// operatorView 操作员响应视图,不包含 PIN 哈希
type operatorView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// actor 从请求上下文提取操作人
func (c *AuthController) actor(ctx *gin.Context) (engine.Actor, bool) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		Error(ctx, http.StatusUnauthorized, "missing operator identity", "")
		return engine.Actor{}, false
	}
	return actor, true
}

// Login 登录
// @Summary      操作员登录
// @Description  校验工牌号与 PIN,签发覆盖一个班次的令牌
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "登录信息"
// @Success      200  {object}  Response
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := utils.ValidateActorID(req.OperatorID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid operator ID", err.Error())
		return
	}

	token, op, err := c.authService.Login(ctx.Request.Context(), req.OperatorID, req.PIN)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, gin.H{
		"token":    token,
		"operator": toOperatorView(op.ID, op.Name, op.RoleName, op.Active),
	})
}

// CreateOperator 创建操作员
// @Summary      创建操作员
// @Tags         操作员管理
// @Accept       json
// @Produce      json
// @Param        request body OperatorRequest true "操作员信息"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /operators [post]
// @Security     BearerAuth
func (c *AuthController) CreateOperator(ctx *gin.Context) {
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}

	var req OperatorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := utils.ValidateActorID(req.ID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid operator ID", err.Error())
		return
	}

	op, err := c.authService.CreateOperator(ctx.Request.Context(), actor, req.ID, req.Name, req.Role, req.PIN)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, toOperatorView(op.ID, op.Name, op.RoleName, op.Active))
}

// ListOperators 查询操作员列表
// @Summary      查询操作员列表
// @Tags         操作员管理
// @Produce      json
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /operators [get]
// @Security     BearerAuth
func (c *AuthController) ListOperators(ctx *gin.Context) {
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}

	ops, err := c.authService.ListOperators(ctx.Request.Context(), actor)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	views := make([]*operatorView, 0, len(ops))
	for _, op := range ops {
		views = append(views, toOperatorView(op.ID, op.Name, op.RoleName, op.Active))
	}

	Success(ctx, views)
}

// UpdateOperator 更新操作员
// @Summary      更新操作员
// @Tags         操作员管理
// @Accept       json
// @Produce      json
// @Param        id path string true "工牌号"
// @Param        request body OperatorRequest true "操作员信息"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /operators/{id} [put]
// @Security     BearerAuth
func (c *AuthController) UpdateOperator(ctx *gin.Context) {
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")

	var req OperatorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	op, err := c.authService.UpdateOperator(ctx.Request.Context(), actor, id, req.Name, req.Role, req.PIN, req.Active)
	if err != nil {
		if repository.IsNotFound(err) {
			Error(ctx, http.StatusNotFound, "operator not found", err.Error())
			return
		}
		EngineError(ctx, err)
		return
	}

	Success(ctx, toOperatorView(op.ID, op.Name, op.RoleName, op.Active))
}

// DeleteOperator 删除操作员
// @Summary      删除操作员
// @Tags         操作员管理
// @Produce      json
// @Param        id path string true "工牌号"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /operators/{id} [delete]
// @Security     BearerAuth
func (c *AuthController) DeleteOperator(ctx *gin.Context) {
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")

	if err := c.authService.DeleteOperator(ctx.Request.Context(), actor, id); err != nil {
		if repository.IsNotFound(err) {
			Error(ctx, http.StatusNotFound, "operator not found", err.Error())
			return
		}
		EngineError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// toOperatorView 构造操作员视图
func toOperatorView(id, name, role string, active bool) *operatorView {
	return &operatorView{
		ID:     id,
		Name:   name,
		Role:   role,
		Active: active,
	}
}
