package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
)

const (
	applicationName   = "gt06-gateway"
	defaultMaxConns   = 20
	defaultMinConns   = 2
	defaultLifetime   = time.Hour
	idleTimeout       = 30 * time.Minute
	healthCheckPeriod = time.Minute
	pingTimeout       = 3 * time.Second
)

// PoolConfig 由数据库配置构造连接池参数。
// 写入路径每条记录在一个事务里占用一个连接，MaxConns 即并发落库上限
func PoolConfig(cfg cfgpkg.DatabaseConfig, logger *zap.Logger) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if _, ok := pc.ConnConfig.RuntimeParams["application_name"]; !ok {
		pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pc.MaxConns = defaultMaxConns
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	pc.MinConns = min(int32(defaultMinConns), pc.MaxConns)
	if cfg.MaxIdleConns > 0 {
		pc.MinConns = min(int32(cfg.MaxIdleConns), pc.MaxConns)
	}
	pc.MaxConnLifetime = defaultLifetime
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.MaxConnIdleTime = idleTimeout
	pc.HealthCheckPeriod = healthCheckPeriod

	// SQL 跟踪只在 debug 级别挂载
	if logger != nil && logger.Core().Enabled(zap.DebugLevel) {
		pc.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   &sqlLogger{log: logger.Named("sql")},
			LogLevel: tracelog.LogLevelDebug,
		}
	}
	return pc, nil
}

// NewPool 创建记录库连接池并探活，失败时关闭已建立的连接
func NewPool(ctx context.Context, cfg cfgpkg.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	pc, err := PoolConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database %s@%s: %w", pc.ConnConfig.Database, pc.ConnConfig.Host, err)
	}
	if logger != nil {
		logger.Info("record store pool connected",
			zap.String("host", pc.ConnConfig.Host),
			zap.String("database", pc.ConnConfig.Database),
			zap.Int32("max_conns", pc.MaxConns),
			zap.Int32("min_conns", pc.MinConns))
	}
	return pool, nil
}

// sqlLogger 把 pgx 跟踪输出转到 zap
type sqlLogger struct {
	log *zap.Logger
}

func (l *sqlLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	fields := make([]zap.Field, 0, len(data))
	for k, v := range data {
		switch k {
		case "args":
			// 参数里是终端原始帧和坐标，只记录个数
			if args, ok := v.([]any); ok {
				fields = append(fields, zap.Int("arg_count", len(args)))
				continue
			}
		case "time":
			if d, ok := v.(time.Duration); ok {
				fields = append(fields, zap.Duration("elapsed", d))
				continue
			}
		}
		fields = append(fields, zap.Any(k, v))
	}

	switch level {
	case tracelog.LogLevelError:
		l.log.Error(msg, fields...)
	case tracelog.LogLevelWarn:
		l.log.Warn(msg, fields...)
	case tracelog.LogLevelInfo:
		l.log.Info(msg, fields...)
	default:
		l.log.Debug(msg, fields...)
	}
}
