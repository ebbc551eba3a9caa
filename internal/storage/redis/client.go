package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
)

// ErrDisabled 配置未启用 Redis
var ErrDisabled = errors.New("redis is not enabled")

const defaultPingTimeout = 5 * time.Second

// Client 网关共用的 Redis 连接：在线表、位置缓存与记录流
type Client struct {
	*redis.Client
	streamKey string
}

// Options 由配置构造 go-redis 参数
func Options(cfg cfgpkg.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewClient 连接并探活，探活超时沿用 dialTimeout
func NewClient(ctx context.Context, cfg cfgpkg.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	rdb := redis.NewClient(Options(cfg))

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Client{Client: rdb, streamKey: cfg.StreamKey}, nil
}

// Snapshot 一次检查得到的连接与记录流状态
type Snapshot struct {
	RTT          time.Duration
	Pool         *redis.PoolStats
	StreamKey    string
	StreamLength int64 // 未配置记录流时为 -1
}

// Snapshot ping 并读取连接池统计与记录流长度
func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	if err := c.Ping(ctx).Err(); err != nil {
		return Snapshot{}, err
	}
	p := Snapshot{RTT: time.Since(start), Pool: c.PoolStats(), StreamKey: c.streamKey, StreamLength: -1}
	if c.streamKey == "" {
		return p, nil
	}
	n, err := c.XLen(ctx, c.streamKey).Result()
	if err != nil {
		return p, fmt.Errorf("xlen %s: %w", c.streamKey, err)
	}
	p.StreamLength = n
	return p, nil
}

// Close 关闭连接，可在 nil 上调用
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
