package container

import (
	"fmt"
	"time"

	"github.com/mautops/warehouse-gin/internal/api"
	"github.com/mautops/warehouse-gin/internal/auth"
	"github.com/mautops/warehouse-gin/internal/config"
	"github.com/mautops/warehouse-gin/internal/database"
	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/metrics"
	"github.com/mautops/warehouse-gin/internal/repository"
	"github.com/mautops/warehouse-gin/internal/service"
	"github.com/mautops/warehouse-gin/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理数据库、仓储、引擎与服务的装配
type Container struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *logrus.Logger

	tasks         repository.TaskRepository
	roles         repository.RoleRepository
	notifications repository.NotificationRepository
	history       repository.StateHistoryRepository
	auditLogs     repository.AuditLogRepository
	operators     repository.OperatorRepository

	gate      *auth.RoleGate
	tokens    *auth.TokenManager
	hub       *websocket.Hub
	eng       *engine.Engine
	collector *metrics.Collector

	taskService         service.TaskService
	queryService        service.QueryService
	notificationService service.NotificationService
	roleService         service.RoleService
	authService         service.AuthService
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	logger, err := api.NewLoggerFromConfig(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// 初始化数据库(带重试机制)
	// 默认重试 3 次,初始间隔 1 秒,指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 仓储层
	tasks := repository.NewTaskRepository(db)
	roles := repository.NewRoleRepository(db)
	notifications := repository.NewNotificationRepository(db)
	history := repository.NewStateHistoryRepository(db)
	auditLogs := repository.NewAuditLogRepository(db)
	operators := repository.NewOperatorRepository(db)

	// 权限断言与令牌管理
	gate := auth.NewRoleGate(roles, time.Duration(cfg.Auth.PermissionCacheTTL)*time.Second, logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Second)

	// 看板事件中心
	hub := websocket.NewHub(logger)

	// 通知服务同时作为引擎的通知出口
	notificationService := service.NewNotificationService(notifications, gate, hub, logger)

	// 任务生命周期引擎
	eng := engine.New(engine.Config{
		Store:              repository.NewTaskStore(tasks),
		Gate:               gate,
		Notifier:           notificationService,
		History:            repository.NewHistorySink(history),
		Logger:             logger,
		ManualBlockMinRank: cfg.Engine.ManualBlockMinRank,
	})

	// 服务层
	taskService := service.NewTaskService(eng, repository.NewTaskStore(tasks), tasks, auditLogs, gate, hub, logger)
	queryService := service.NewQueryService(tasks, history)
	roleService := service.NewRoleService(roles, gate, gate)
	authService := service.NewAuthService(operators, roles, tokens, gate, logger)

	// 指标收集器
	collector := metrics.NewCollector(db, tasks, 15*time.Second)

	return &Container{
		cfg:                 cfg,
		db:                  db,
		logger:              logger,
		tasks:               tasks,
		roles:               roles,
		notifications:       notifications,
		history:             history,
		auditLogs:           auditLogs,
		operators:           operators,
		gate:                gate,
		tokens:              tokens,
		hub:                 hub,
		eng:                 eng,
		collector:           collector,
		taskService:         taskService,
		queryService:        queryService,
		notificationService: notificationService,
		roleService:         roleService,
		authService:         authService,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// Hub 获取看板事件中心
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Tokens 获取令牌管理器
func (c *Container) Tokens() *auth.TokenManager {
	return c.tokens
}

// Engine 获取任务生命周期引擎
func (c *Container) Engine() *engine.Engine {
	return c.eng
}

// Collector 获取指标收集器
func (c *Container) Collector() *metrics.Collector {
	return c.collector
}

// TaskService 获取任务服务
func (c *Container) TaskService() service.TaskService {
	return c.taskService
}

// QueryService 获取任务查询服务
func (c *Container) QueryService() service.QueryService {
	return c.queryService
}

// NotificationService 获取通知服务
func (c *Container) NotificationService() service.NotificationService {
	return c.notificationService
}

// RoleService 获取角色服务
func (c *Container) RoleService() service.RoleService {
	return c.roleService
}

// AuthService 获取认证服务
func (c *Container) AuthService() service.AuthService {
	return c.authService
}

// Roles 获取角色仓储,seed 命令使用
func (c *Container) Roles() repository.RoleRepository {
	return c.roles
}

// Operators 获取操作员仓储,seed 命令使用
func (c *Container) Operators() repository.OperatorRepository {
	return c.operators
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.collector != nil {
		c.collector.Stop()
	}
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
