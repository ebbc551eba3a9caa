package session

import (
	"sync"
	"time"
)

// Manager 内存会话管理：记录终端最近上报时间与绑定连接，单实例部署使用
type Manager struct {
	mu       sync.RWMutex
	lastSeen map[string]time.Time // terminalID -> last seen
	tcpDown  map[string]time.Time
	timeout  time.Duration
	conns    map[string]interface{}
}

var _ SessionManager = (*Manager)(nil)

func New(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Manager{
		lastSeen: make(map[string]time.Time),
		tcpDown:  make(map[string]time.Time),
		timeout:  timeout,
		conns:    make(map[string]interface{}),
	}
}

// OnHeartbeat 更新终端最近上报时间
func (m *Manager) OnHeartbeat(terminalID string, t time.Time) {
	m.mu.Lock()
	m.lastSeen[terminalID] = t
	m.mu.Unlock()
}

// Bind 绑定终端号到连接对象（opaque），重复绑定将覆盖
func (m *Manager) Bind(terminalID string, conn interface{}) {
	m.mu.Lock()
	m.conns[terminalID] = conn
	if _, ok := m.lastSeen[terminalID]; !ok {
		m.lastSeen[terminalID] = time.Now()
	}
	m.mu.Unlock()
}

// Unbind 仅当终端仍绑定在 conn 上时解除
func (m *Manager) Unbind(terminalID string, conn interface{}) {
	m.mu.Lock()
	if cur, ok := m.conns[terminalID]; ok && cur == conn {
		delete(m.conns, terminalID)
	}
	m.mu.Unlock()
}

// OnTCPClosed 记录TCP断开事件
func (m *Manager) OnTCPClosed(terminalID string, t time.Time) {
	m.mu.Lock()
	m.tcpDown[terminalID] = t
	m.mu.Unlock()
}

// GetConn 返回绑定的连接对象
func (m *Manager) GetConn(terminalID string) (interface{}, bool) {
	m.mu.RLock()
	c, ok := m.conns[terminalID]
	m.mu.RUnlock()
	return c, ok
}

// IsOnline 判断终端是否在线
func (m *Manager) IsOnline(terminalID string, now time.Time) bool {
	m.mu.RLock()
	ts, ok := m.lastSeen[terminalID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return now.Sub(ts) <= m.timeout
}

// Presence 返回终端在线状态
func (m *Manager) Presence(terminalID string, now time.Time) (Presence, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.lastSeen[terminalID]
	if !ok {
		return Presence{}, false
	}
	return Presence{
		TerminalID:  terminalID,
		LastSeen:    ts,
		LastTCPDown: m.tcpDown[terminalID],
		Online:      now.Sub(ts) <= m.timeout,
	}, true
}

// OnlineCount 返回当前在线终端数量
func (m *Manager) OnlineCount(now time.Time) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, ts := range m.lastSeen {
		if now.Sub(ts) <= m.timeout {
			count++
		}
	}
	return count
}
