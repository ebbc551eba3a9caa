package storage

import (
	"context"
	"sync"
	"time"

	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
)

// DefaultMemoryCapacity 内存存储保留的最大记录数
const DefaultMemoryCapacity = 10000

// StoredRecord 内存存储中的一条记录
type StoredRecord struct {
	ID     int64
	Record *gt06.Record
	Peer   Peer
}

// DeviceSession 终端会话
type DeviceSession struct {
	TerminalID    string
	IP            string
	Port          int
	Start         time.Time
	End           *time.Time
	LastHeartbeat time.Time
	TotalPackets  int64
	Active        bool
}

// MemoryStore 无数据库时使用的进程内存储，超出容量后淘汰最旧记录
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	capacity int
	records  []StoredRecord
	sessions map[string]*DeviceSession
	closed   []DeviceSession
}

// NewMemoryStore 创建内存存储；capacity<=0 取默认值
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity, sessions: make(map[string]*DeviceSession)}
}

// Store 实现 Store
func (m *MemoryStore) Store(ctx context.Context, rec *gt06.Record, peer Peer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	if len(m.records) >= m.capacity {
		m.records = append(m.records[:0], m.records[1:]...)
	}
	m.records = append(m.records, StoredRecord{ID: id, Record: rec, Peer: peer})

	if tid := TerminalOf(rec, peer); tid != "" {
		s, ok := m.sessions[tid]
		if !ok {
			s = &DeviceSession{TerminalID: tid, IP: peer.IP, Port: peer.Port, Start: rec.ReceivedAt, Active: true}
			m.sessions[tid] = s
		}
		s.LastHeartbeat = rec.ReceivedAt
		s.TotalPackets++
	}
	return id, nil
}

// CloseSession 实现 Store
func (m *MemoryStore) CloseSession(_ context.Context, terminalID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[terminalID]
	if !ok {
		return nil
	}
	delete(m.sessions, terminalID)
	end := at
	s.End = &end
	s.Active = false
	m.closed = append(m.closed, *s)
	return nil
}

// Get 按 id 取记录
func (m *MemoryStore) Get(id int64) (StoredRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ID == id {
			return r, true
		}
	}
	return StoredRecord{}, false
}

// Records 按写入顺序返回快照
func (m *MemoryStore) Records() []StoredRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StoredRecord, len(m.records))
	copy(out, m.records)
	return out
}

// ActiveSessions 活动会话快照
func (m *MemoryStore) ActiveSessions() []DeviceSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DeviceSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out
}

// ClosedSessions 已结束会话快照
func (m *MemoryStore) ClosedSessions() []DeviceSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DeviceSession, len(m.closed))
	copy(out, m.closed)
	return out
}
