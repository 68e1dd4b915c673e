package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/warehouse-gin/internal/auth"
	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/repository"
	"github.com/mautops/warehouse-gin/internal/service"
)

// RoleController 角色控制器
type RoleController struct {
	roleService service.RoleService
}

// NewRoleController 创建角色控制器
func NewRoleController(roleService service.RoleService) *RoleController {
	return &RoleController{
		roleService: roleService,
	}
}

// RoleRequest 创建/更新角色请求
// @Description 角色的等级与权限集合
type RoleRequest struct {
	Name        string   `json:"name" example:"LEADER" binding:"required"` // 角色名
	Rank        int      `json:"rank" example:"2"`                         // 角色等级
	Permissions []string `json:"permissions" binding:"required"`           // 权限名集合
}

// roleView 角色响应视图,权限集合展开为数组
type roleView struct {
	Name        string   `json:"name"`
	Rank        int      `json:"rank"`
	Permissions []string `json:"permissions"`
}

// actor 从请求上下文提取操作人
func (c *RoleController) actor(ctx *gin.Context) (engine.Actor, bool) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		Error(ctx, http.StatusUnauthorized, "missing operator identity", "")
		return engine.Actor{}, false
	}
	return actor, true
}

// Create 创建角色
// @Summary      创建角色
// @Description  创建角色并授予权限集合
// @Tags         角色管理
// @Accept       json
// @Produce      json
// @Param        request body RoleRequest true "角色信息"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /roles [post]
// @Security     BearerAuth
func (c *RoleController) Create(ctx *gin.Context) {
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}

	var req RoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	role, err := c.roleService.Create(ctx.Request.Context(), actor, req.Name, req.Rank, req.Permissions)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, toRoleView(role.Name, role.Rank, req.Permissions))
}

// List 查询所有角色
// @Summary      查询角色列表
// @Tags         角色管理
// @Produce      json
// @Success      200  {object}  Response
// @Router       /roles [get]
// @Security     BearerAuth
func (c *RoleController) List(ctx *gin.Context) {
	roles, err := c.roleService.List(ctx.Request.Context())
	if err != nil {
		EngineError(ctx, err)
		return
	}

	views := make([]*roleView, 0, len(roles))
	for _, role := range roles {
		set, err := role.PermissionSet()
		if err != nil {
			continue
		}
		perms := make([]string, 0, len(set))
		for p := range set {
			perms = append(perms, p)
		}
		views = append(views, toRoleView(role.Name, role.Rank, perms))
	}

	Success(ctx, views)
}

// Update 更新角色
// @Summary      更新角色
// @Description  覆盖角色的等级与权限集合
// @Tags         角色管理
// @Accept       json
// @Produce      json
// @Param        name path string true "角色名"
// @Param        request body RoleRequest true "角色信息"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /roles/{name} [put]
// @Security     BearerAuth
func (c *RoleController) Update(ctx *gin.Context) {
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}
	name := ctx.Param("name")

	var req RoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	role, err := c.roleService.Update(ctx.Request.Context(), actor, name, req.Rank, req.Permissions)
	if err != nil {
		if repository.IsNotFound(err) {
			Error(ctx, http.StatusNotFound, "role not found", err.Error())
			return
		}
		EngineError(ctx, err)
		return
	}

	Success(ctx, toRoleView(role.Name, role.Rank, req.Permissions))
}

// Delete 删除角色
// @Summary      删除角色
// @Tags         角色管理
// @Produce      json
// @Param        name path string true "角色名"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /roles/{name} [delete]
// @Security     BearerAuth
func (c *RoleController) Delete(ctx *gin.Context) {
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}
	name := ctx.Param("name")

	if err := c.roleService.Delete(ctx.Request.Context(), actor, name); err != nil {
		if repository.IsNotFound(err) {
			Error(ctx, http.StatusNotFound, "role not found", err.Error())
			return
		}
		EngineError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// toRoleView 构造角色视图
func toRoleView(name string, rank int, permissions []string) *roleView {
	if permissions == nil {
		permissions = []string{}
	}
	return &roleView{
		Name:        name,
		Rank:        rank,
		Permissions: permissions,
	}
}
