package tcpserver

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrConnClosed 连接已关闭
	ErrConnClosed = errors.New("tcpserver: connection closed")
	// ErrIdleTimeout 超过空闲时长未收到任何数据
	ErrIdleTimeout = errors.New("tcpserver: idle timeout")
)

// ConnContext 单个 TCP 连接：读循环与回调在同一协程内串行执行
type ConnContext struct {
	s         *Server
	c         net.Conn
	id        uint64
	createdAt time.Time

	wmu       sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	reason    error

	onRead  func([]byte) error
	onClose func(reason error)
	doneC   chan struct{}
}

func newConnContext(s *Server, c net.Conn) *ConnContext {
	return &ConnContext{
		s:         s,
		c:         c,
		id:        s.nextConnID.Add(1),
		createdAt: time.Now(),
		doneC:     make(chan struct{}),
	}
}

// ID 返回连接ID（单进程唯一递增）
func (cc *ConnContext) ID() uint64 { return cc.id }

// RemoteAddr 返回远端地址
func (cc *ConnContext) RemoteAddr() net.Addr { return cc.c.RemoteAddr() }

// CreatedAt 连接建立时间
func (cc *ConnContext) CreatedAt() time.Time { return cc.createdAt }

// SetOnRead 安装读取回调；返回错误时连接以该错误为原因关闭
func (cc *ConnContext) SetOnRead(h func([]byte) error) { cc.onRead = h }

// SetOnClose 安装关闭回调，读循环退出后调用一次
func (cc *ConnContext) SetOnClose(h func(reason error)) { cc.onClose = h }

// Write 同步写入：持锁写完整个缓冲，保证同一连接上的写入顺序
func (cc *ConnContext) Write(b []byte) error {
	if cc.closed.Load() {
		return ErrConnClosed
	}
	cc.wmu.Lock()
	defer cc.wmu.Unlock()
	if to := cc.s.cfg.WriteTimeout; to > 0 {
		_ = cc.c.SetWriteDeadline(time.Now().Add(to))
	}
	if _, err := cc.c.Write(b); err != nil {
		cc.closeWith(err)
		return err
	}
	return nil
}

// Close 主动关闭连接
func (cc *ConnContext) Close() error {
	cc.closeWith(ErrConnClosed)
	return nil
}

// Done 返回连接关闭通知通道
func (cc *ConnContext) Done() <-chan struct{} { return cc.doneC }

// Err 连接关闭原因，未关闭时为 nil
func (cc *ConnContext) Err() error {
	select {
	case <-cc.doneC:
		return cc.reason
	default:
		return nil
	}
}

func (cc *ConnContext) closeWith(reason error) {
	cc.closeOnce.Do(func() {
		cc.reason = reason
		cc.closed.Store(true)
		_ = cc.c.Close()
	})
}

// run 读循环，阻塞直至连接结束
func (cc *ConnContext) run() {
	defer func() {
		cc.closeWith(io.EOF)
		cc.s.untrack(cc)
		if cc.onClose != nil {
			cc.onClose(cc.reason)
		}
		close(cc.doneC)
	}()

	idle := cc.s.cfg.IdleTimeout
	buf := make([]byte, cc.s.cfg.ReadBufferSize)
	for {
		// 空闲超时为硬性截止：超时即关闭，不续期
		if idle > 0 {
			_ = cc.c.SetReadDeadline(time.Now().Add(idle))
		}
		n, err := cc.c.Read(buf)
		if n > 0 {
			if cc.s.onRecvBytes != nil {
				cc.s.onRecvBytes(n)
			}
			if cc.onRead != nil {
				if herr := cc.onRead(buf[:n]); herr != nil {
					cc.closeWith(herr)
					return
				}
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				cc.closeWith(ErrIdleTimeout)
			} else {
				cc.closeWith(err)
			}
			return
		}
	}
}
