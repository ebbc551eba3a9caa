package storage

import (
	"context"
	"time"

	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
)

// Guard 为 Store 增加单次写入超时与熔断保护
type Guard struct {
	store   Store
	breaker *CircuitBreaker
	timeout time.Duration
}

// NewGuard 包装 store；timeout<=0 表示不额外设置超时
func NewGuard(store Store, breaker *CircuitBreaker, timeout time.Duration) *Guard {
	if breaker == nil {
		breaker = NewCircuitBreaker(0, 0)
	}
	return &Guard{store: store, breaker: breaker, timeout: timeout}
}

// Breaker 返回熔断器（用于健康检查）
func (g *Guard) Breaker() *CircuitBreaker { return g.breaker }

func (g *Guard) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

// Store 实现 Store；熔断期间直接返回 ErrCircuitOpen
func (g *Guard) Store(ctx context.Context, rec *gt06.Record, peer Peer) (int64, error) {
	var id int64
	err := g.breaker.Call(func() error {
		cctx, cancel := g.withTimeout(ctx)
		defer cancel()
		var err error
		id, err = g.store.Store(cctx, rec, peer)
		return err
	})
	return id, err
}

// CloseSession 实现 Store
func (g *Guard) CloseSession(ctx context.Context, terminalID string, at time.Time) error {
	return g.breaker.Call(func() error {
		cctx, cancel := g.withTimeout(ctx)
		defer cancel()
		return g.store.CloseSession(cctx, terminalID, at)
	})
}
