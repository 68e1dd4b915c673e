package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/warehouse-gin/internal/auth"
	"github.com/mautops/warehouse-gin/internal/config"
	"github.com/mautops/warehouse-gin/internal/websocket"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Config *config.Config
	DB     *gorm.DB
	Hub    *websocket.Hub
	Tokens *auth.TokenManager

	Tasks         *TaskController
	Query         *QueryController
	Notifications *NotificationController
	Roles         *RoleController
	Auth          *AuthController
}

// SetupRoutes 配置路由
func SetupRoutes(deps *RouterDeps) *gin.Engine {
	if deps.Config != nil && deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(ErrorHandlerMiddleware())
	if deps.Config != nil {
		router.Use(CORSMiddleware(deps.Config.CORS.AllowedOrigins))
		if deps.Config.RateLimit.RPS > 0 {
			router.Use(RateLimitMiddleware(deps.Config.RateLimit.RPS, deps.Config.RateLimit.Burst))
		}
		if deps.Config.Tracing.Enabled {
			router.Use(TracingMiddleware())
		}
	}

	// 健康检查
	healthController := NewHealthController(deps.DB)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由,看板订阅全量事件流
	if deps.Hub != nil && deps.Tokens != nil {
		router.GET("/ws/dashboard", websocket.Handler(deps.Hub, deps.Tokens))
	}

	// SSE 路由
	if deps.Hub != nil && deps.Tokens != nil {
		router.GET("/sse/dashboard", SSEHandler(deps.Hub, deps.Tokens))
	}

	// Swagger UI 路由
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 路由组
	v1 := router.Group("/api/v1")

	// 登录不需要令牌
	if deps.Auth != nil {
		v1.POST("/auth/login", deps.Auth.Login)
	}

	// 其余路由要求令牌
	authed := v1.Group("")
	if deps.Tokens != nil {
		authed.Use(auth.AuthMiddleware(deps.Tokens))
	}
	{
		// 任务管理路由
		if deps.Tasks != nil {
			tasks := authed.Group("/tasks")
			{
				tasks.POST("", deps.Tasks.Create)
				tasks.GET("/:id", deps.Tasks.Get)
				tasks.DELETE("/:id", deps.Tasks.Delete)
				tasks.POST("/:id/claim", deps.Tasks.Claim)
				tasks.POST("/:id/finish", deps.Tasks.Finish)
				tasks.POST("/:id/search", deps.Tasks.Search)
				tasks.POST("/:id/exhaust-search", deps.Tasks.ExhaustSearch)
				tasks.POST("/:id/missing", deps.Tasks.ReportMissing)
				tasks.POST("/:id/manual-block", deps.Tasks.ManualBlock)
				tasks.POST("/:id/incorrect", deps.Tasks.MarkIncorrect)
				tasks.POST("/:id/release", deps.Tasks.Release)
				tasks.POST("/:id/note", deps.Tasks.Note)
				tasks.POST("/:id/audit/start", deps.Tasks.StartAudit)
				tasks.POST("/:id/audit/finish", deps.Tasks.FinishAudit)
			}
		}

		// 任务查询路由
		if deps.Query != nil {
			authed.GET("/tasks", deps.Query.List)
			authed.GET("/tasks/:id/history", deps.Query.History)
		}

		// 通知路由
		if deps.Notifications != nil {
			notifications := authed.Group("/notifications")
			{
				notifications.GET("", deps.Notifications.List)
				notifications.POST("/:id/ack", deps.Notifications.Acknowledge)
				notifications.DELETE("/:id", deps.Notifications.Delete)
			}
		}

		// 角色管理路由
		if deps.Roles != nil {
			roles := authed.Group("/roles")
			{
				roles.POST("", deps.Roles.Create)
				roles.GET("", deps.Roles.List)
				roles.PUT("/:name", deps.Roles.Update)
				roles.DELETE("/:name", deps.Roles.Delete)
			}
		}

		// 操作员管理路由
		if deps.Auth != nil {
			operators := authed.Group("/operators")
			{
				operators.POST("", deps.Auth.CreateOperator)
				operators.GET("", deps.Auth.ListOperators)
				operators.PUT("/:id", deps.Auth.UpdateOperator)
				operators.DELETE("/:id", deps.Auth.DeleteOperator)
			}
		}
	}

	return router
}
