package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/gorm"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
	"github.com/taoyao-code/gt06-gateway/internal/migrate"
	"github.com/taoyao-code/gt06-gateway/internal/storage/gormrepo"
	pgstorage "github.com/taoyao-code/gt06-gateway/internal/storage/pg"
)

// ConnectDBAndMigrate 建立数据库连接并按需执行内嵌迁移
func ConnectDBAndMigrate(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	dbpool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, err
	}
	if cfg.AutoMigrate {
		if err = (migrate.Runner{}).Up(ctx, dbpool); err != nil {
			log.Error("db migrate error", zap.Error(err))
			dbpool.Close()
			return nil, err
		}
		log.Info("db migrations applied")
	}
	return dbpool, nil
}

// CloseStaleSessions 启动时关闭上次进程遗留的活跃会话
func CloseStaleSessions(ctx context.Context, repo *pgstorage.Repository, log *zap.Logger) {
	n, err := repo.CloseStaleSessions(ctx, time.Now())
	if err != nil {
		log.Warn("close stale sessions failed", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("stale device sessions closed", zap.Int64("count", n))
	}
}

// NewQueryRepo 在同一连接池上构建只读查询仓库
func NewQueryRepo(pool *pgxpool.Pool) (*gormrepo.QueryRepo, *gorm.DB, error) {
	db, err := gormrepo.Open(pool)
	if err != nil {
		return nil, nil, err
	}
	return gormrepo.New(db), db, nil
}
