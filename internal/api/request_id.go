package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mautops/warehouse-gin/internal/service"
)

// RequestIDMiddleware 请求 ID 中间件
// 调用方可通过 X-Request-ID 传入自己的请求 ID,否则生成一个
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		// 注入请求上下文,审计日志从这里取请求 ID
		ctx := context.WithValue(c.Request.Context(), service.ContextKeyRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
