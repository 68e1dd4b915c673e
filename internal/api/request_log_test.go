package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mautops/warehouse-gin/internal/auth"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRequestLogMiddlewareFields 测试请求日志携带操作人与资源标识
func TestRequestLogMiddlewareFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := GetLogger()
	logger.SetOutput(io.Discard)
	hook := test.NewLocal(logger)
	defer hook.Reset()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, "worker-1")
	}, RequestLogMiddleware())
	router.POST("/api/v1/tasks/:id/in-progress", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tasks/task-001/in-progress", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "worker-1", entry.Data["operator"])
	assert.Equal(t, "task-001", entry.Data["resource_id"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
}

// TestRequestLogMiddlewareAnonymous 测试未认证请求不携带操作人字段
func TestRequestLogMiddlewareAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := GetLogger()
	logger.SetOutput(io.Discard)
	hook := test.NewLocal(logger)
	defer hook.Reset()

	router := gin.New()
	router.Use(RequestLogMiddleware())
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.NotContains(t, entry.Data, "operator")
	assert.NotContains(t, entry.Data, "resource_id")
}
