package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mautops/warehouse-gin/internal/engine"
	"github.com/mautops/warehouse-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// engineErrorStatus 执行 EngineError 并返回响应状态码
func engineErrorStatus(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	EngineError(c, err)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

// TestEngineErrorMapping 测试引擎错误到 HTTP 状态码的映射
func TestEngineErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"forbidden", engine.ErrForbidden, http.StatusForbidden},
		{"not owner", engine.ErrNotOwner, http.StatusForbidden},
		{"already claimed", engine.ErrAlreadyClaimed, http.StatusConflict},
		{"audit running", engine.ErrAuditAlreadyRunning, http.StatusConflict},
		{"version conflict", engine.ErrConflict, http.StatusConflict},
		{"not claimable", engine.ErrNotClaimable, http.StatusUnprocessableEntity},
		{"reason required", engine.ErrReasonRequired, http.StatusUnprocessableEntity},
		{"note required", engine.ErrNoteRequired, http.StatusUnprocessableEntity},
		{"not found", engine.ErrTaskNotFound, http.StatusNotFound},
		{"notification not found", service.ErrNotificationNotFound, http.StatusNotFound},
		{"store unavailable", engine.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"role protected", service.ErrRoleProtected, http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := engineErrorStatus(t, tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.status, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

// TestEngineErrorWrappedErrors 测试包装后的引擎错误仍被正确映射
func TestEngineErrorWrappedErrors(t *testing.T) {
	status, body := engineErrorStatus(t, fmt.Errorf("task already claimed by worker-1: %w", engine.ErrAlreadyClaimed))
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body.Detail, "worker-1")

	status, _ = engineErrorStatus(t, fmt.Errorf("task is done: %w", engine.ErrNotClaimable))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

// TestErrorHandlerMiddleware 测试错误处理中间件
func TestErrorHandlerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlerMiddleware())
	router.GET("/api-error", func(c *gin.Context) {
		c.Error(WrapError(errors.New("no such record"), http.StatusNotFound, "not found"))
	})
	router.GET("/plain-error", func(c *gin.Context) {
		c.Error(errors.New("boom"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api-error", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no such record")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain-error", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// TestSuccessResponse 测试统一成功响应格式
func TestSuccessResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, map[string]string{"id": "task-001"})

	assert.Equal(t, http.StatusOK, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "success", body.Message)
}

// TestErrorResponseCodeFallback 测试非法状态码回退为 500
func TestErrorResponseCodeFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, 42, "weird", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
