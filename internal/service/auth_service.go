package service

import (
	"context"
	"errors"
	"time"

	"github.com/mautops/warehouse-gin/internal/auth"
	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/model"
	"github.com/mautops/warehouse-gin/internal/repository"
	"github.com/sirupsen/logrus"
)

// ErrInvalidCredentials 工牌号或 PIN 不正确
// 工牌号不存在和 PIN 错误返回同一个错误,不暴露哪一半错了
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService 认证服务接口
// 操作员用工牌号 + PIN 在平板上登录,换取覆盖整个班次的令牌
type AuthService interface {
	Login(ctx context.Context, operatorID string, pin string) (string, *model.OperatorModel, error)
	CreateOperator(ctx context.Context, actor engine.Actor, id, name, roleName, pin string) (*model.OperatorModel, error)
	ListOperators(ctx context.Context, actor engine.Actor) ([]*model.OperatorModel, error)
	UpdateOperator(ctx context.Context, actor engine.Actor, id, name, roleName, pin string, active bool) (*model.OperatorModel, error)
	DeleteOperator(ctx context.Context, actor engine.Actor, id string) error
}

// authService 认证服务实现
type authService struct {
	operators repository.OperatorRepository
	roles     repository.RoleRepository
	tokens    *auth.TokenManager
	gate      engine.PermissionGate
	logger    *logrus.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(
	operators repository.OperatorRepository,
	roles repository.RoleRepository,
	tokens *auth.TokenManager,
	gate engine.PermissionGate,
	logger *logrus.Logger,
) AuthService {
	if logger == nil {
		logger = logrus.New()
	}
	return &authService{
		operators: operators,
		roles:     roles,
		tokens:    tokens,
		gate:      gate,
		logger:    logger,
	}
}

// Login 校验 PIN 并签发令牌
func (s *authService) Login(ctx context.Context, operatorID string, pin string) (string, *model.OperatorModel, error) {
	op, err := s.operators.FindByID(ctx, operatorID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !op.Active {
		return "", nil, ErrInvalidCredentials
	}
	if !auth.VerifyPIN(pin, op.PINHash) {
		return "", nil, ErrInvalidCredentials
	}

	// 角色等级在登录时固化到令牌
	rank := 0
	if op.RoleName == engine.RoleAdmin {
		rank = 99
	} else if role, err := s.roles.FindByName(ctx, op.RoleName); err == nil {
		rank = role.Rank
	}

	token, err := s.tokens.IssueToken(op.ID, op.RoleName, rank)
	if err != nil {
		return "", nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"operator": op.ID,
		"role":     op.RoleName,
	}).Info("operator logged in")

	return token, op, nil
}

// CreateOperator 创建操作员
func (s *authService) CreateOperator(ctx context.Context, actor engine.Actor, id, name, roleName, pin string) (*model.OperatorModel, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}

	pinHash, err := auth.HashPIN(pin)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	op := &model.OperatorModel{
		ID:        id,
		Name:      name,
		RoleName:  roleName,
		PINHash:   pinHash,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.operators.Create(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// ListOperators 查询所有操作员
func (s *authService) ListOperators(ctx context.Context, actor engine.Actor) ([]*model.OperatorModel, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}
	return s.operators.FindAll(ctx)
}

// UpdateOperator 更新操作员,pin 为空时保留原 PIN
func (s *authService) UpdateOperator(ctx context.Context, actor engine.Actor, id, name, roleName, pin string, active bool) (*model.OperatorModel, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}

	op, err := s.operators.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		op.Name = name
	}
	if roleName != "" {
		op.RoleName = roleName
	}
	if pin != "" {
		pinHash, err := auth.HashPIN(pin)
		if err != nil {
			return nil, err
		}
		op.PINHash = pinHash
	}
	op.Active = active
	op.UpdatedAt = time.Now()

	if err := s.operators.Update(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// DeleteOperator 删除操作员
func (s *authService) DeleteOperator(ctx context.Context, actor engine.Actor, id string) error {
	if err := s.requireManage(actor); err != nil {
		return err
	}
	return s.operators.Delete(ctx, id)
}

// requireManage 操作员管理与角色管理共用同一权限
func (s *authService) requireManage(actor engine.Actor) error {
	if actor.Role == engine.RoleAdmin {
		return nil
	}
	if !s.gate.Can(actor.Role, engine.PermManageRoles) {
		return engine.ErrForbidden
	}
	return nil
}
