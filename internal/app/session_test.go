package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
	"github.com/taoyao-code/gt06-gateway/internal/session"
	redisstorage "github.com/taoyao-code/gt06-gateway/internal/storage/redis"
)

func TestNewSessionManager_MemoryFallback(t *testing.T) {
	cfg := cfgpkg.SessionConfig{HeartbeatTimeout: time.Minute}

	mgr := NewSessionManager(cfg, nil, "test-server", zap.NewNop())
	_, ok := mgr.(*session.Manager)
	assert.True(t, ok, "Redis 未启用时使用内存会话管理器")

	// 未连接的客户端同样回退
	mgr = NewSessionManager(cfg, &redisstorage.Client{}, "test-server", zap.NewNop())
	_, ok = mgr.(*session.Manager)
	assert.True(t, ok)

	now := time.Now()
	mgr.OnHeartbeat("0867010070001558", now.Add(-30*time.Second))
	assert.True(t, mgr.IsOnline("0867010070001558", now))
	assert.False(t, mgr.IsOnline("0867010070001558", now.Add(time.Minute)))
}

func TestGenerateServerID(t *testing.T) {
	t.Setenv("SERVER_ID", "")
	id := GenerateServerID()
	assert.Contains(t, id, "gt06-gateway-")
	assert.NotEqual(t, id, GenerateServerID())

	t.Setenv("SERVER_ID", "gw-01")
	assert.Equal(t, "gw-01", GenerateServerID())
}
