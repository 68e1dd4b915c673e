package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/repository"
	"github.com/sirupsen/logrus"
)

// RoleGate 基于角色表的权限断言实现
// 查不到角色、权限集合解析失败、数据库错误统一按拒绝处理
type RoleGate struct {
	roles  repository.RoleRepository
	cache  *PermissionCache
	logger *logrus.Logger
}

var _ engine.PermissionGate = (*RoleGate)(nil)

// NewRoleGate 创建权限断言
func NewRoleGate(roles repository.RoleRepository, cacheTTL time.Duration, logger *logrus.Logger) *RoleGate {
	if logger == nil {
		logger = logrus.New()
	}
	return &RoleGate{
		roles:  roles,
		cache:  NewPermissionCache(cacheTTL),
		logger: logger,
	}
}

// Can 判定角色是否持有指定权限
func (g *RoleGate) Can(role string, permission string) bool {
	cacheKey := fmt.Sprintf("%s:%s", role, permission)
	if value, found := g.cache.Get(cacheKey); found {
		return value
	}

	allowed := g.lookup(role, permission)
	g.cache.Set(cacheKey, allowed)
	return allowed
}

// lookup 查询角色表并解析权限集合
func (g *RoleGate) lookup(role string, permission string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rm, err := g.roles.FindByName(ctx, role)
	if err != nil {
		if !repository.IsNotFound(err) {
			g.logger.WithError(err).WithField("role", role).Warn("permission lookup failed, denying")
		}
		return false
	}

	set, err := rm.PermissionSet()
	if err != nil {
		g.logger.WithError(err).WithField("role", role).Warn("invalid permission set, denying")
		return false
	}

	_, ok := set[permission]
	return ok
}

// Invalidate 清空缓存,角色创建/更新/删除后调用
func (g *RoleGate) Invalidate() {
	g.cache.Clear()
}
