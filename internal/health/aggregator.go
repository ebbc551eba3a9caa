package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout 单项检查超时
const DefaultCheckTimeout = 2 * time.Second

type entry struct {
	checker  Checker
	optional bool
}

// Aggregator 汇总网关各依赖的检查结果。
// 关键组件（存储、数据库、终端接入）决定整体状态；可选组件（Redis 位置缓存与在线表）失败时整体只降级
type Aggregator struct {
	mu      sync.RWMutex
	entries []entry
	timeout time.Duration
	started time.Time
	now     func() time.Time
}

// NewAggregator 创建聚合器；timeout<=0 取 DefaultCheckTimeout
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Aggregator{timeout: timeout, started: time.Now(), now: time.Now}
}

// Add 注册关键组件
func (a *Aggregator) Add(c Checker) { a.add(c, false) }

// AddOptional 注册可选组件
func (a *Aggregator) AddOptional(c Checker) { a.add(c, true) }

func (a *Aggregator) add(c Checker, optional bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry{checker: c, optional: optional})
}

// Report 健康报告
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Report 并发执行全部检查，每项受单独超时约束
func (a *Aggregator) Report(ctx context.Context) Report {
	a.mu.RLock()
	entries := make([]entry, len(a.entries))
	copy(entries, a.entries)
	a.mu.RUnlock()

	results := make([]CheckResult, len(entries))
	var g errgroup.Group
	for i, e := range entries {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			r := e.checker.Check(cctx)
			r.Optional = e.optional
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{
		Status:    StatusHealthy,
		Timestamp: a.now(),
		Uptime:    a.now().Sub(a.started).Truncate(time.Second).String(),
		Checks:    make(map[string]CheckResult, len(entries)),
	}
	for i, e := range entries {
		r := results[i]
		rep.Checks[e.checker.Name()] = r
		if s := effective(r); s.rank() > rep.Status.rank() {
			rep.Status = s
		}
	}
	return rep
}

func effective(r CheckResult) Status {
	if r.Optional && r.Status == StatusUnhealthy {
		return StatusDegraded
	}
	return r.Status
}

// Uptime 聚合器创建以来的时长
func (a *Aggregator) Uptime() time.Duration { return a.now().Sub(a.started) }
