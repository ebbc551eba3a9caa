package health

import (
	"sync/atomic"

	"github.com/taoyao-code/gt06-gateway/internal/storage"
)

// Readiness 网关生命周期就绪标志。
// 存储就绪且终端端口已监听时就绪；启用 Redis 时还要求 Redis 可用；存储熔断打开期间不就绪
type Readiness struct {
	store         atomic.Bool
	tcp           atomic.Bool
	redis         atomic.Bool
	redisRequired atomic.Bool
	breaker       atomic.Pointer[storage.CircuitBreaker]
}

// New 创建就绪标志，初始均未就绪
func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetStoreReady(v bool) { r.store.Store(v) }
func (r *Readiness) SetTCPReady(v bool)   { r.tcp.Store(v) }

// RequireRedis 启用 Redis 后调用，此后 Redis 就绪才算整体就绪
func (r *Readiness) RequireRedis()        { r.redisRequired.Store(true) }
func (r *Readiness) SetRedisReady(v bool) { r.redis.Store(v) }

// WatchBreaker 关联存储熔断器
func (r *Readiness) WatchBreaker(b *storage.CircuitBreaker) { r.breaker.Store(b) }

// Pending 尚未就绪的项目
func (r *Readiness) Pending() []string {
	var out []string
	if !r.store.Load() {
		out = append(out, "store")
	}
	if b := r.breaker.Load(); b != nil && b.State() == storage.StateOpen {
		out = append(out, "store_circuit_open")
	}
	if r.redisRequired.Load() && !r.redis.Load() {
		out = append(out, "redis")
	}
	if !r.tcp.Load() {
		out = append(out, "tcp")
	}
	return out
}

// Ready 全部就绪
func (r *Readiness) Ready() bool { return len(r.Pending()) == 0 }
