package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/model"
	"github.com/mautops/warehouse-gin/internal/repository"
)

// ErrRoleProtected ADMIN 角色不允许修改或删除
var ErrRoleProtected = errors.New("role is protected")

// RoleService 角色服务接口
type RoleService interface {
	Create(ctx context.Context, actor engine.Actor, name string, rank int, permissions []string) (*model.RoleModel, error)
	Get(ctx context.Context, name string) (*model.RoleModel, error)
	List(ctx context.Context) ([]*model.RoleModel, error)
	Update(ctx context.Context, actor engine.Actor, name string, rank int, permissions []string) (*model.RoleModel, error)
	Delete(ctx context.Context, actor engine.Actor, name string) error
}

// RoleGateInvalidator 角色变更后需要失效的权限缓存
type RoleGateInvalidator interface {
	Invalidate()
}

// roleService 角色服务实现
type roleService struct {
	roles       repository.RoleRepository
	gate        engine.PermissionGate
	invalidator RoleGateInvalidator
}

// NewRoleService 创建角色服务
func NewRoleService(roles repository.RoleRepository, gate engine.PermissionGate, invalidator RoleGateInvalidator) RoleService {
	return &roleService{
		roles:       roles,
		gate:        gate,
		invalidator: invalidator,
	}
}

// Create 创建角色
func (s *roleService) Create(ctx context.Context, actor engine.Actor, name string, rank int, permissions []string) (*model.RoleModel, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}
	if name == engine.RoleAdmin {
		return nil, ErrRoleProtected
	}

	payload, err := json.Marshal(permissions)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	role := &model.RoleModel{
		Name:        name,
		Rank:        rank,
		Permissions: payload,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}

	s.invalidate()
	return role, nil
}

// Get 查询角色
func (s *roleService) Get(ctx context.Context, name string) (*model.RoleModel, error) {
	return s.roles.FindByName(ctx, name)
}

// List 查询所有角色
func (s *roleService) List(ctx context.Context) ([]*model.RoleModel, error) {
	return s.roles.FindAll(ctx)
}

// Update 更新角色等级与权限集合
func (s *roleService) Update(ctx context.Context, actor engine.Actor, name string, rank int, permissions []string) (*model.RoleModel, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}
	if name == engine.RoleAdmin {
		return nil, ErrRoleProtected
	}

	payload, err := json.Marshal(permissions)
	if err != nil {
		return nil, err
	}

	role := &model.RoleModel{
		Name:        name,
		Rank:        rank,
		Permissions: payload,
		UpdatedAt:   time.Now(),
	}
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}

	s.invalidate()
	return role, nil
}

// Delete 删除角色
func (s *roleService) Delete(ctx context.Context, actor engine.Actor, name string) error {
	if err := s.requireManage(actor); err != nil {
		return err
	}
	if name == engine.RoleAdmin {
		return ErrRoleProtected
	}

	if err := s.roles.Delete(ctx, name); err != nil {
		return err
	}

	s.invalidate()
	return nil
}

// requireManage 校验角色管理权限
func (s *roleService) requireManage(actor engine.Actor) error {
	if actor.Role == engine.RoleAdmin {
		return nil
	}
	if !s.gate.Can(actor.Role, engine.PermManageRoles) {
		return engine.ErrForbidden
	}
	return nil
}

// invalidate 角色变更后清空权限缓存
func (s *roleService) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}
