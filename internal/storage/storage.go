package storage

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
)

// Peer 记录来源连接
type Peer struct {
	IP     string
	Port   int
	ConnID uint64
	// TerminalID 连接登录后绑定的终端号，登录前为空
	TerminalID string
}

// PeerFromAddr 由远端地址构造 Peer
func PeerFromAddr(addr net.Addr, connID uint64) Peer {
	p := Peer{ConnID: connID}
	if addr == nil {
		return p
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		p.IP = addr.String()
		return p
	}
	p.IP = host
	p.Port, _ = strconv.Atoi(port)
	return p
}

// String ip:port
func (p Peer) String() string { return net.JoinHostPort(p.IP, strconv.Itoa(p.Port)) }

// Store 解码记录的持久化接口。
// 约束：
// - 实现必须自行保证并发安全，多个连接协程会同时调用
// - Store 返回的 id 可用于查询 API 取回该记录
// - 记录携带终端号（登录帧或连接已绑定）时，同一事务内刷新终端会话
type Store interface {
	Store(ctx context.Context, rec *gt06.Record, peer Peer) (int64, error)
	// CloseSession 终端断开时结束其活动会话
	CloseSession(ctx context.Context, terminalID string, at time.Time) error
}

// Publisher 记录旁路发布（位置缓存、记录流），失败不影响主存储
type Publisher interface {
	Publish(ctx context.Context, id int64, rec *gt06.Record, peer Peer) error
}

// TerminalOf 记录所属终端：登录帧携带的终端号优先，其次为连接绑定的终端号
func TerminalOf(rec *gt06.Record, peer Peer) string {
	if id := rec.TerminalID(); id != "" {
		return id
	}
	return peer.TerminalID
}
