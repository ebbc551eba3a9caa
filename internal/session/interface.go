package session

import "time"

// Presence 终端在线状态快照
type Presence struct {
	TerminalID  string    `json:"terminalId"`
	ServerID    string    `json:"serverId,omitempty"`
	LastSeen    time.Time `json:"lastSeen"`
	LastTCPDown time.Time `json:"lastTcpDown,omitempty"`
	Online      bool      `json:"online"`
}

// SessionManager 终端在线管理接口，支持内存和Redis两种实现
type SessionManager interface {
	// OnHeartbeat 更新终端最近上报时间（任意数据帧均视为心跳）
	OnHeartbeat(terminalID string, t time.Time)

	// Bind 登录后绑定终端号到连接对象，重复绑定将覆盖
	Bind(terminalID string, conn interface{})

	// Unbind 解除绑定；终端已在其他连接重新登录时不做任何处理
	Unbind(terminalID string, conn interface{})

	// OnTCPClosed 记录TCP断开事件
	OnTCPClosed(terminalID string, t time.Time)

	// GetConn 返回绑定的连接对象（Redis 实现仅限本实例连接）
	GetConn(terminalID string) (interface{}, bool)

	// IsOnline 判断终端是否在线（仅心跳）
	IsOnline(terminalID string, now time.Time) bool

	// Presence 返回终端在线状态，未见过的终端返回 false
	Presence(terminalID string, now time.Time) (Presence, bool)

	// OnlineCount 返回当前在线终端数量
	OnlineCount(now time.Time) int
}
