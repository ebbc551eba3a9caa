package tcpserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
)

// ErrServerClosed 服务器关闭导致连接被断开
var ErrServerClosed = errors.New("tcpserver: server closed")

// Server GT06 终端 TCP 接入服务
type Server struct {
	cfg        cfgpkg.TCPConfig
	log        *zap.Logger
	ln         net.Listener
	wg         sync.WaitGroup
	stopC      chan struct{}
	stopOnce   sync.Once
	nextConnID atomic.Uint64

	limiter     *ConnectionLimiter
	rateLimiter *RateLimiter

	mu    sync.Mutex
	conns map[uint64]*ConnContext

	onConn func(cc *ConnContext)
	// 可选指标回调
	onAccept    func()
	onReject    func(reason string)
	onRecvBytes func(n int)
}

// New 创建 TCP 服务器
func New(cfg cfgpkg.TCPConfig, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 4096
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:   cfg,
		log:   log,
		stopC: make(chan struct{}),
		conns: make(map[uint64]*ConnContext),
	}
	if cfg.MaxConnections > 0 {
		s.limiter = NewConnectionLimiter(cfg.MaxConnections, 0)
	}
	if cfg.AcceptRate > 0 {
		s.rateLimiter = NewRateLimiter(cfg.AcceptRate, cfg.AcceptBurst)
	}
	return s
}

// SetConnHandler 设置新连接回调：在读循环启动前调用，用于安装读/关闭回调
func (s *Server) SetConnHandler(h func(cc *ConnContext)) { s.onConn = h }

// SetMetricsCallbacks 设置指标回调
func (s *Server) SetMetricsCallbacks(onAccept func(), onReject func(reason string), onRecvBytes func(int)) {
	s.onAccept, s.onReject, s.onRecvBytes = onAccept, onReject, onRecvBytes
}

// Start 监听并接受连接（非阻塞，内部 goroutine）
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Info("tcp server listening", zap.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
	return nil
}

// Addr 实际监听地址（Start 之后有效）
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.stopC:
				return
			default:
			}
			// 短暂错误等待后重试
			s.log.Warn("tcp accept error", zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			continue
		}

		if s.rateLimiter != nil && !s.rateLimiter.Allow() {
			s.reject(conn, "rate")
			continue
		}
		if s.limiter != nil && !s.limiter.TryAcquire() {
			s.reject(conn, "limit")
			continue
		}
		if s.onAccept != nil {
			s.onAccept()
		}

		cc := newConnContext(s, conn)
		if !s.track(cc) {
			// 关闭过程中到达的连接
			_ = conn.Close()
			s.releasePermit()
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if s.onConn != nil {
				s.onConn(cc)
			}
			cc.run()
		}()
	}
}

func (s *Server) reject(conn net.Conn, reason string) {
	s.log.Warn("tcp connection rejected",
		zap.String("remote_addr", conn.RemoteAddr().String()),
		zap.String("reason", reason))
	if s.onReject != nil {
		s.onReject(reason)
	}
	_ = conn.Close()
}

func (s *Server) track(cc *ConnContext) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.stopC:
		return false
	default:
	}
	s.conns[cc.id] = cc
	return true
}

func (s *Server) untrack(cc *ConnContext) {
	s.mu.Lock()
	delete(s.conns, cc.id)
	s.mu.Unlock()
	s.releasePermit()
}

func (s *Server) releasePermit() {
	if s.limiter != nil {
		s.limiter.Release()
	}
}

// ActiveConnections 当前连接数
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// MaxConnections 最大连接数，0 表示未限制
func (s *Server) MaxConnections() int {
	if s.limiter == nil {
		return 0
	}
	return s.limiter.MaxConnections()
}

// GetLimiterStats 连接限流统计，未启用时返回 nil
func (s *Server) GetLimiterStats() *LimiterStats {
	if s.limiter == nil {
		return nil
	}
	st := s.limiter.Stats()
	return &st
}

// GetRateLimiterStats 接入速率统计，未启用时返回 nil
func (s *Server) GetRateLimiterStats() *RateLimiterStats {
	if s.rateLimiter == nil {
		return nil
	}
	st := s.rateLimiter.Stats()
	return &st
}

// Shutdown 关闭监听与全部连接，并等待连接协程退出
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.stopC)
		conns := make([]*ConnContext, 0, len(s.conns))
		for _, cc := range s.conns {
			conns = append(conns, cc)
		}
		s.mu.Unlock()

		if s.ln != nil {
			_ = s.ln.Close()
		}
		for _, cc := range conns {
			cc.closeWith(ErrServerClosed)
		}
	})

	ch := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
