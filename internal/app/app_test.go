package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
	"github.com/taoyao-code/gt06-gateway/internal/session"
	"github.com/taoyao-code/gt06-gateway/internal/storage"
)

func baseConfig() *cfgpkg.Config {
	return &cfgpkg.Config{
		TCP:     cfgpkg.TCPConfig{MaxBufferBytes: 4096},
		GT06:    cfgpkg.GT06Config{MaxFrameLen: 1024, ChecksumPolicy: "drop"},
		Storage: cfgpkg.StorageConfig{BreakerThreshold: 2, BreakerTimeout: time.Minute},
	}
}

func TestNewProtocolOptions(t *testing.T) {
	opts, err := NewProtocolOptions(baseConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1024, opts.MaxFrameLen)
	assert.Equal(t, 4096, opts.MaxUnframed)
	assert.Equal(t, gt06.ChecksumDrop, opts.ChecksumPolicy)
	assert.Same(t, gt06.DefaultTable, opts.Table)
}

func TestNewProtocolOptions_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocols.yaml")
	require.NoError(t, os.WriteFile(path, []byte("names:\n  0x57: WIFI_OFFLINE_V2\nack: [0x13]\n"), 0o600))

	cfg := baseConfig()
	cfg.GT06.ProtocolNamesPath = path
	opts, err := NewProtocolOptions(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "WIFI_OFFLINE_V2", opts.Table.Name(0x57))
	assert.True(t, opts.Table.NeedsAck(0x13))
	assert.False(t, gt06.DefaultTable.NeedsAck(0x13), "覆盖不影响默认表")
}

func TestNewProtocolOptions_Errors(t *testing.T) {
	cfg := baseConfig()
	cfg.GT06.ChecksumPolicy = "strict"
	_, err := NewProtocolOptions(cfg, zap.NewNop())
	assert.Error(t, err)

	cfg = baseConfig()
	cfg.GT06.ProtocolNamesPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewProtocolOptions(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNewStore_MemoryFallback(t *testing.T) {
	guard := NewStore(baseConfig().Storage, nil, zap.NewNop())
	require.NotNil(t, guard.Breaker())

	rec := &gt06.Record{Protocol: gt06.ProtoLogin, ProtocolName: "LOGIN", Login: &gt06.Login{TerminalID: "0867010070001558"}}
	id, err := guard.Store(context.Background(), rec, storage.Peer{IP: "127.0.0.1", Port: 5000, ConnID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

type fixedConns int

func (n fixedConns) ActiveConnections() int { return int(n) }

func TestRunGaugeSampler(t *testing.T) {
	_, appm := NewMetrics()
	sess := session.New(time.Minute)
	sess.OnHeartbeat("a", time.Now())
	sess.OnHeartbeat("b", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunGaugeSampler(ctx, time.Hour, appm, sess, fixedConns(3))
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(appm.OnlineGauge) == 2 && testutil.ToFloat64(appm.ActiveConnections) == 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampler did not stop")
	}
}

func TestNewProtocolOptions_ExampleOverlay(t *testing.T) {
	cfg := baseConfig()
	cfg.GT06.ProtocolNamesPath = "../../configs/protocols.example.yaml"
	opts, err := NewProtocolOptions(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "FILE_TRANSFER", opts.Table.Name(0x8D))
	assert.Equal(t, "LOGIN", opts.Table.Name(gt06.ProtoLogin))
}
