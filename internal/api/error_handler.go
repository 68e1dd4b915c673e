package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/service"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				Error(c, http.StatusInternalServerError, "internal server error", err.Error())
			}
		}
	}
}

// EngineError 将引擎错误映射为 HTTP 错误响应
// 权限拒绝 403,并发与占用冲突 409,业务规则拒绝 422,存储故障 503
func EngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrForbidden):
		Error(c, http.StatusForbidden, "operation not permitted", err.Error())
	case errors.Is(err, engine.ErrNotOwner):
		Error(c, http.StatusForbidden, "task is held by another operator", err.Error())
	case errors.Is(err, engine.ErrAlreadyClaimed):
		Error(c, http.StatusConflict, "task already claimed", err.Error())
	case errors.Is(err, engine.ErrAuditAlreadyRunning):
		Error(c, http.StatusConflict, "audit already in progress", err.Error())
	case errors.Is(err, engine.ErrConflict):
		Error(c, http.StatusConflict, "task was modified concurrently", err.Error())
	case errors.Is(err, engine.ErrNotClaimable):
		Error(c, http.StatusUnprocessableEntity, "task state does not allow this operation", err.Error())
	case errors.Is(err, engine.ErrReasonRequired):
		Error(c, http.StatusUnprocessableEntity, "reason is required", err.Error())
	case errors.Is(err, engine.ErrNoteRequired):
		Error(c, http.StatusUnprocessableEntity, "note is required", err.Error())
	case errors.Is(err, engine.ErrTaskNotFound):
		Error(c, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, service.ErrNotificationNotFound):
		Error(c, http.StatusNotFound, "notification not found", err.Error())
	case errors.Is(err, engine.ErrStoreUnavailable):
		Error(c, http.StatusServiceUnavailable, "storage unavailable", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		Error(c, http.StatusUnauthorized, "invalid credentials", err.Error())
	case errors.Is(err, service.ErrRoleProtected):
		Error(c, http.StatusUnprocessableEntity, "role is protected", err.Error())
	default:
		Error(c, http.StatusInternalServerError, "internal server error", err.Error())
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}
