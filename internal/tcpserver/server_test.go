package tcpserver

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
)

func startServer(t *testing.T, cfg cfgpkg.TCPConfig, h func(cc *ConnContext), opts ...func(*Server)) *Server {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	s := New(cfg, nil)
	s.SetConnHandler(h)
	for _, o := range opts {
		o(s)
	}
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	c, err := net.DialTimeout("tcp", s.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestServer_EchoInOrder(t *testing.T) {
	s := startServer(t, cfgpkg.TCPConfig{IdleTimeout: time.Minute}, func(cc *ConnContext) {
		cc.SetOnRead(func(b []byte) error { return cc.Write(b) })
	})
	c := dial(t, s)

	msg := []byte("0123456789")
	_, err := c.Write(msg)
	require.NoError(t, err)

	got := make([]byte, len(msg))
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = io.ReadFull(c, got)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestServer_IdleTimeoutCloses(t *testing.T) {
	reasons := make(chan error, 1)
	s := startServer(t, cfgpkg.TCPConfig{IdleTimeout: 100 * time.Millisecond}, func(cc *ConnContext) {
		cc.SetOnClose(func(reason error) { reasons <- reason })
	})
	c := dial(t, s)

	select {
	case reason := <-reasons:
		assert.ErrorIs(t, reason, ErrIdleTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("连接未因空闲超时关闭")
	}

	// 服务端已关闭，客户端读到 EOF
	require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
	_, err := c.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestServer_HandlerErrorCloses(t *testing.T) {
	boom := errors.New("overflow")
	reasons := make(chan error, 1)
	s := startServer(t, cfgpkg.TCPConfig{IdleTimeout: time.Minute}, func(cc *ConnContext) {
		cc.SetOnRead(func([]byte) error { return boom })
		cc.SetOnClose(func(reason error) { reasons <- reason })
	})
	c := dial(t, s)
	_, err := c.Write([]byte{0x01})
	require.NoError(t, err)

	select {
	case reason := <-reasons:
		assert.ErrorIs(t, reason, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("回调错误后连接未关闭")
	}
}

func TestServer_ConnectionLimit(t *testing.T) {
	var mu sync.Mutex
	var rejected []string
	s := startServer(t, cfgpkg.TCPConfig{IdleTimeout: time.Minute, MaxConnections: 1}, nil, func(s *Server) {
		s.SetMetricsCallbacks(nil, func(reason string) {
			mu.Lock()
			rejected = append(rejected, reason)
			mu.Unlock()
		}, nil)
	})

	_ = dial(t, s)
	require.Eventually(t, func() bool { return s.ActiveConnections() == 1 }, 2*time.Second, 10*time.Millisecond)

	c2 := dial(t, s)
	require.NoError(t, c2.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := c2.Read(make([]byte, 1))
	assert.Error(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(rejected) == 1 && rejected[0] == "limit"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, s.MaxConnections())
	require.NotNil(t, s.GetLimiterStats())
}

func TestServer_ShutdownClosesConnections(t *testing.T) {
	reasons := make(chan error, 1)
	cfg := cfgpkg.TCPConfig{Addr: "127.0.0.1:0", IdleTimeout: time.Minute}
	s := New(cfg, nil)
	s.SetConnHandler(func(cc *ConnContext) {
		cc.SetOnClose(func(reason error) { reasons <- reason })
	})
	require.NoError(t, s.Start())
	_ = dial(t, s)
	require.Eventually(t, func() bool { return s.ActiveConnections() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case reason := <-reasons:
		assert.ErrorIs(t, reason, ErrServerClosed)
	default:
		t.Fatal("关闭回调未执行")
	}
	assert.Equal(t, 0, s.ActiveConnections())
}
