package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisOpTimeout 单次 Redis 操作超时，避免 Redis 抖动阻塞连接协程
const redisOpTimeout = 2 * time.Second

// RedisManager Redis版本的会话管理器，支持多实例部署
type RedisManager struct {
	client   *redis.Client
	serverID string        // 当前服务器实例ID
	timeout  time.Duration // 心跳超时时间

	// 本地连接缓存 (connID -> connection object)
	mu        sync.RWMutex
	localConn map[string]interface{}
}

var _ SessionManager = (*RedisManager)(nil)

// sessionData Redis存储的会话数据结构
type sessionData struct {
	TerminalID  string    `json:"terminal_id"`
	ConnID      string    `json:"conn_id"`
	ServerID    string    `json:"server_id"`
	LastSeen    time.Time `json:"last_seen"`
	LastTCPDown time.Time `json:"last_tcp_down,omitempty"`
}

// Redis Key设计
const (
	// gt06:session:device:{terminalID} -> sessionData JSON
	keyDevicePrefix = "gt06:session:device:"

	// gt06:session:conn:{connID} -> terminalID
	keyConnPrefix = "gt06:session:conn:"

	// gt06:session:server:{serverID}:conns -> Set[connID]
	keyServerConnsPrefix = "gt06:session:server:"
)

// NewRedisManager 创建Redis会话管理器
func NewRedisManager(client *redis.Client, serverID string, timeout time.Duration) *RedisManager {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if serverID == "" {
		serverID = uuid.New().String()
	}
	return &RedisManager{
		client:    client,
		serverID:  serverID,
		timeout:   timeout,
		localConn: make(map[string]interface{}),
	}
}

// ServerID 当前实例ID
func (m *RedisManager) ServerID() string { return m.serverID }

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

// OnHeartbeat 更新终端最近上报时间
func (m *RedisManager) OnHeartbeat(terminalID string, t time.Time) {
	ctx, cancel := opContext()
	defer cancel()

	data, err := m.getSessionData(ctx, terminalID)
	if err != nil {
		data = &sessionData{TerminalID: terminalID}
	}
	data.LastSeen = t
	_ = m.setSessionData(ctx, terminalID, data)
}

// Bind 绑定终端号到连接对象
func (m *RedisManager) Bind(terminalID string, conn interface{}) {
	ctx, cancel := opContext()
	defer cancel()

	connID := uuid.New().String()

	m.mu.Lock()
	m.localConn[connID] = conn
	m.mu.Unlock()

	// 覆盖本实例上的旧绑定
	if old, err := m.getSessionData(ctx, terminalID); err == nil && old.ServerID == m.serverID && old.ConnID != "" {
		m.dropLocal(ctx, old.ConnID)
	}

	data := &sessionData{
		TerminalID: terminalID,
		ConnID:     connID,
		ServerID:   m.serverID,
		LastSeen:   time.Now(),
	}
	_ = m.setSessionData(ctx, terminalID, data)

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, keyConnPrefix+connID, terminalID, m.timeout*2)
	pipe.SAdd(ctx, m.serverConnsKey(), connID)
	_, _ = pipe.Exec(ctx)
}

// Unbind 仅当终端仍绑定在本实例的 conn 上时解除
func (m *RedisManager) Unbind(terminalID string, conn interface{}) {
	ctx, cancel := opContext()
	defer cancel()

	data, err := m.getSessionData(ctx, terminalID)
	if err != nil || data.ServerID != m.serverID {
		return
	}
	m.mu.RLock()
	cur, ok := m.localConn[data.ConnID]
	m.mu.RUnlock()
	if !ok || cur != conn {
		return
	}

	m.dropLocal(ctx, data.ConnID)
	data.ConnID = ""
	data.ServerID = ""
	_ = m.setSessionData(ctx, terminalID, data)
}

func (m *RedisManager) dropLocal(ctx context.Context, connID string) {
	m.mu.Lock()
	delete(m.localConn, connID)
	m.mu.Unlock()

	pipe := m.client.TxPipeline()
	pipe.Del(ctx, keyConnPrefix+connID)
	pipe.SRem(ctx, m.serverConnsKey(), connID)
	_, _ = pipe.Exec(ctx)
}

// OnTCPClosed 记录TCP断开事件
func (m *RedisManager) OnTCPClosed(terminalID string, t time.Time) {
	ctx, cancel := opContext()
	defer cancel()

	data, err := m.getSessionData(ctx, terminalID)
	if err != nil {
		return
	}
	data.LastTCPDown = t
	_ = m.setSessionData(ctx, terminalID, data)
}

// GetConn 获取绑定的连接对象（仅限本地连接）
func (m *RedisManager) GetConn(terminalID string) (interface{}, bool) {
	ctx, cancel := opContext()
	defer cancel()

	data, err := m.getSessionData(ctx, terminalID)
	if err != nil || data.ServerID != m.serverID {
		return nil, false
	}

	m.mu.RLock()
	conn, ok := m.localConn[data.ConnID]
	m.mu.RUnlock()
	return conn, ok
}

// IsOnline 判断终端是否在线（仅心跳）
func (m *RedisManager) IsOnline(terminalID string, now time.Time) bool {
	p, ok := m.Presence(terminalID, now)
	return ok && p.Online
}

// Presence 返回终端在线状态
func (m *RedisManager) Presence(terminalID string, now time.Time) (Presence, bool) {
	ctx, cancel := opContext()
	defer cancel()

	data, err := m.getSessionData(ctx, terminalID)
	if err != nil {
		return Presence{}, false
	}
	return data.presence(now, m.timeout), true
}

func (d *sessionData) presence(now time.Time, timeout time.Duration) Presence {
	return Presence{
		TerminalID:  d.TerminalID,
		ServerID:    d.ServerID,
		LastSeen:    d.LastSeen,
		LastTCPDown: d.LastTCPDown,
		Online:      now.Sub(d.LastSeen) <= timeout,
	}
}

// OnlineCount 扫描全部终端会话，返回在线数量
func (m *RedisManager) OnlineCount(now time.Time) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*redisOpTimeout)
	defer cancel()

	var cursor uint64
	count := 0
	for {
		keys, nextCursor, err := m.client.Scan(ctx, cursor, keyDevicePrefix+"*", 100).Result()
		if err != nil {
			break
		}
		if len(keys) > 0 {
			vals, err := m.client.MGet(ctx, keys...).Result()
			if err != nil {
				break
			}
			for _, v := range vals {
				s, ok := v.(string)
				if !ok {
					continue
				}
				var data sessionData
				if json.Unmarshal([]byte(s), &data) == nil && now.Sub(data.LastSeen) <= m.timeout {
					count++
				}
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return count
}

// --- 辅助方法 ---

func (m *RedisManager) getSessionData(ctx context.Context, terminalID string) (*sessionData, error) {
	val, err := m.client.Get(ctx, keyDevicePrefix+terminalID).Result()
	if err != nil {
		return nil, err
	}

	var data sessionData
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (m *RedisManager) setSessionData(ctx context.Context, terminalID string, data *sessionData) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	// 设置过期时间为心跳超时的2倍
	return m.client.Set(ctx, keyDevicePrefix+terminalID, jsonData, m.timeout*2).Err()
}

func (m *RedisManager) serverConnsKey() string {
	return fmt.Sprintf("%s%s:conns", keyServerConnsPrefix, m.serverID)
}

// Cleanup 清理本实例的所有绑定（用于优雅关闭）
func (m *RedisManager) Cleanup() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*redisOpTimeout)
	defer cancel()

	connIDs, err := m.client.SMembers(ctx, m.serverConnsKey()).Result()
	if err != nil {
		return err
	}

	for _, connID := range connIDs {
		terminalID, err := m.client.Get(ctx, keyConnPrefix+connID).Result()
		if err != nil {
			continue
		}
		m.mu.RLock()
		conn := m.localConn[connID]
		m.mu.RUnlock()
		m.Unbind(terminalID, conn)
	}

	m.mu.Lock()
	m.localConn = make(map[string]interface{})
	m.mu.Unlock()
	return m.client.Del(ctx, m.serverConnsKey()).Err()
}
