package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestPermissionCacheSetGet 测试缓存读写
func TestPermissionCacheSetGet(t *testing.T) {
	cache := NewPermissionCache(time.Minute)

	cache.Set("WORKER:perm_btn_finish", true)
	cache.Set("WORKER:perm_btn_missing", false)

	value, found := cache.Get("WORKER:perm_btn_finish")
	assert.True(t, found)
	assert.True(t, value)

	value, found = cache.Get("WORKER:perm_btn_missing")
	assert.True(t, found)
	assert.False(t, value, "negative results are cached too")

	_, found = cache.Get("WORKER:perm_btn_audit")
	assert.False(t, found)
}

// TestPermissionCacheExpiry 测试缓存过期
func TestPermissionCacheExpiry(t *testing.T) {
	cache := NewPermissionCache(10 * time.Millisecond)

	cache.Set("WORKER:perm_btn_finish", true)
	time.Sleep(20 * time.Millisecond)

	_, found := cache.Get("WORKER:perm_btn_finish")
	assert.False(t, found)
}

// TestPermissionCacheClear 测试清空缓存
func TestPermissionCacheClear(t *testing.T) {
	cache := NewPermissionCache(time.Minute)
	cache.Set("WORKER:perm_btn_finish", true)
	cache.Set("LEADER:perm_btn_audit", true)

	cache.Clear()

	_, found := cache.Get("WORKER:perm_btn_finish")
	assert.False(t, found)
	_, found = cache.Get("LEADER:perm_btn_audit")
	assert.False(t, found)
}
