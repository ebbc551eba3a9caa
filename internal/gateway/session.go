package gateway

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/gt06-gateway/internal/metrics"
	"github.com/taoyao-code/gt06-gateway/internal/protocol/adapter"
	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
	"github.com/taoyao-code/gt06-gateway/internal/session"
	"github.com/taoyao-code/gt06-gateway/internal/storage"
)

// ErrSessionClosed 会话已进入关闭流程
var ErrSessionClosed = errors.New("gateway: session closed")

// closeTimeout 断开时结束存储会话的超时
const closeTimeout = 3 * time.Second

// State 连接会话状态
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport 会话所需的连接能力，由 tcpserver.ConnContext 实现
type Transport interface {
	ID() uint64
	RemoteAddr() net.Addr
	Write(b []byte) error
}

// Deps 会话依赖，除 Logger 外均可为 nil
type Deps struct {
	Store     storage.Store
	Publisher storage.Publisher
	Sessions  session.SessionManager
	Metrics   *metrics.AppMetrics
	Logger    *zap.Logger
	// Protocol 切帧与解码参数；Hooks 由会话自行安装
	Protocol gt06.Options
}

// Session 单个终端连接：独占一个切帧缓冲与解码器，随连接创建与销毁。
// HandleBytes 只在连接读协程中调用；Close 可在任意协程调用且只生效一次
type Session struct {
	deps    Deps
	log     *zap.Logger
	tr      Transport
	adapter adapter.Adapter
	peer    storage.Peer
	sniffed bool

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	terminalID string
	records    uint64
}

// NewSession 为连接创建会话，初始状态为 Open
func NewSession(tr Transport, deps Deps) *Session {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		deps: deps,
		tr:   tr,
		peer: storage.PeerFromAddr(tr.RemoteAddr(), tr.ID()),
	}
	s.log = log.With(zap.Uint64("conn_id", tr.ID()), zap.String("remote_addr", s.peer.String()))
	s.ctx, s.cancel = context.WithCancel(context.Background())

	opts := deps.Protocol
	opts.Hooks = gt06.Hooks{OnDiscard: s.onDiscard, OnChecksum: s.onChecksum}
	s.adapter = gt06.NewAdapter(opts)
	return s
}

// State 当前状态
func (s *Session) State() State { return State(s.state.Load()) }

// TerminalID 已登录的终端号，登录前为空
func (s *Session) TerminalID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminalID
}

// HandleBytes 处理一段上行字节。返回错误表示连接应被关闭：
// 缓冲超限（gt06.ErrBufferOverflow）或确认帧写回失败
func (s *Session) HandleBytes(p []byte) error {
	if s.State() != StateOpen {
		return ErrSessionClosed
	}
	if !s.sniffed && len(p) >= 2 {
		s.sniffed = true
		if !s.adapter.Sniff(p) {
			s.log.Debug("first bytes are not a gt06 start marker", zap.Int("len", len(p)))
		}
	}
	err := s.adapter.ProcessBytes(p, s.handleRecord)
	if errors.Is(err, gt06.ErrBufferOverflow) {
		if m := s.deps.Metrics; m != nil {
			m.BufferOverflows.Inc()
		}
		s.log.Warn("reassembly buffer overflow, closing connection",
			zap.Int("buffered", s.adapter.Buffered()),
			zap.Int("max_unframed", s.deps.Protocol.MaxUnframed))
	}
	return err
}

func (s *Session) handleRecord(rec *gt06.Record) error {
	m := s.deps.Metrics
	if m != nil {
		variant := "standard"
		if rec.Extended {
			variant = "extended"
		}
		m.FramesTotal.WithLabelValues(variant).Inc()
		m.RecordsTotal.WithLabelValues(rec.ProtocolName).Inc()
	}

	// 确认帧先于下一帧写回
	if rec.NeedsAck {
		if err := s.tr.Write(gt06.BuildAck(rec.SerialNumber, rec.Protocol)); err != nil {
			if m != nil {
				m.AckTotal.WithLabelValues("error").Inc()
			}
			s.log.Warn("write ack failed",
				zap.String("protocol", rec.ProtocolName),
				zap.Uint16("serial", rec.SerialNumber),
				zap.Error(err))
			return err
		}
		if m != nil {
			m.AckTotal.WithLabelValues("ok").Inc()
		}
	}

	tid := s.observe(rec)
	peer := s.peer
	peer.TerminalID = tid

	s.log.Debug("record decoded",
		zap.String("protocol", rec.ProtocolName),
		zap.Uint16("serial", rec.SerialNumber),
		zap.Int("length", rec.Length),
		zap.String("terminal_id", tid))

	s.store(rec, peer)
	return nil
}

// observe 处理登录绑定与心跳，返回记录所属终端号
func (s *Session) observe(rec *gt06.Record) string {
	s.mu.Lock()
	s.records++
	prev := s.terminalID
	if id := rec.TerminalID(); id != "" {
		s.terminalID = id
	}
	tid := s.terminalID
	s.mu.Unlock()

	sess := s.deps.Sessions
	if tid != prev {
		if sess != nil {
			if prev != "" {
				sess.Unbind(prev, s)
			}
			sess.Bind(tid, s)
		}
		s.log.Info("terminal login",
			zap.String("terminal_id", tid),
			zap.String("previous", prev))
	}
	if tid == "" {
		return ""
	}
	if sess != nil {
		sess.OnHeartbeat(tid, rec.ReceivedAt)
	}
	if rec.Protocol == gt06.ProtoStatusInfo || rec.Protocol == gt06.ProtoHeartbeat {
		if m := s.deps.Metrics; m != nil {
			m.HeartbeatTotal.Inc()
		}
	}
	return tid
}

// store 写入存储与旁路发布；失败只记录，不影响后续帧
func (s *Session) store(rec *gt06.Record, peer storage.Peer) {
	st := s.deps.Store
	if st == nil {
		return
	}
	m := s.deps.Metrics
	start := time.Now()
	id, err := st.Store(s.ctx, rec, peer)
	if m != nil {
		m.StoreDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		result := "error"
		if errors.Is(err, storage.ErrCircuitOpen) {
			result = "circuit_open"
		}
		if m != nil {
			m.StoreTotal.WithLabelValues(result).Inc()
		}
		s.log.Warn("store record failed",
			zap.String("protocol", rec.ProtocolName),
			zap.String("terminal_id", peer.TerminalID),
			zap.String("result", result),
			zap.Error(err))
		return
	}
	if m != nil {
		m.StoreTotal.WithLabelValues("ok").Inc()
	}

	if pub := s.deps.Publisher; pub != nil {
		if err := pub.Publish(s.ctx, id, rec, peer); err != nil {
			if m != nil {
				m.CacheWriteErrors.Inc()
			}
			s.log.Debug("publish record failed", zap.Int64("packet_id", id), zap.Error(err))
		}
	}
}

func (s *Session) onDiscard(reason gt06.DiscardReason, n int) {
	if m := s.deps.Metrics; m != nil {
		m.DiscardedBytes.WithLabelValues(string(reason)).Add(float64(n))
	}
	s.log.Warn("gt06 bytes discarded", zap.String("reason", string(reason)), zap.Int("bytes", n))
}

func (s *Session) onChecksum(f gt06.Frame, ok bool) {
	result := "ok"
	if !ok {
		result = "mismatch"
		s.log.Warn("gt06 checksum mismatch",
			zap.String("reason", "checksum"),
			zap.Uint8("protocol", f.Protocol()),
			zap.Uint16("serial", f.Serial()),
			zap.Int("bytes", len(f.Raw)),
			zap.Stringer("policy", s.deps.Protocol.ChecksumPolicy))
	}
	if m := s.deps.Metrics; m != nil {
		m.ChecksumTotal.WithLabelValues(result).Inc()
	}
}

// Close 进入 Closing：丢弃未成帧字节，结束终端会话，最终进入 Closed。重复调用无效果
func (s *Session) Close(reason error) {
	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return
	}
	s.cancel()

	s.mu.Lock()
	tid, records := s.terminalID, s.records
	s.mu.Unlock()

	s.log.Info("connection closed",
		zap.String("terminal_id", tid),
		zap.Uint64("records", records),
		zap.Int("discarded_buffered", s.adapter.Buffered()),
		zap.NamedError("reason", reason))

	if tid != "" {
		now := time.Now()
		if sess := s.deps.Sessions; sess != nil {
			sess.OnTCPClosed(tid, now)
			sess.Unbind(tid, s)
		}
		if st := s.deps.Store; st != nil {
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			if err := st.CloseSession(ctx, tid, now); err != nil {
				s.log.Warn("close device session failed", zap.String("terminal_id", tid), zap.Error(err))
			}
			cancel()
		}
	}
	s.state.Store(int32(StateClosed))
}
