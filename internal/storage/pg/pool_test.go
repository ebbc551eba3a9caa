package pg

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
)

func TestPoolConfig_Defaults(t *testing.T) {
	pc, err := PoolConfig(cfgpkg.DatabaseConfig{DSN: "postgres://gw:pw@db:5432/gt06?sslmode=disable"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, int32(defaultMaxConns), pc.MaxConns)
	assert.Equal(t, int32(defaultMinConns), pc.MinConns)
	assert.Equal(t, defaultLifetime, pc.MaxConnLifetime)
	assert.Equal(t, applicationName, pc.ConnConfig.RuntimeParams["application_name"])
	assert.Nil(t, pc.ConnConfig.Tracer)
}

func TestPoolConfig_Overrides(t *testing.T) {
	pc, err := PoolConfig(cfgpkg.DatabaseConfig{
		DSN:             "postgres://gw:pw@db:5432/gt06?application_name=replay",
		MaxOpenConns:    4,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
	}, zap.NewExample())
	require.NoError(t, err)
	assert.Equal(t, int32(4), pc.MaxConns)
	assert.Equal(t, int32(4), pc.MinConns, "空闲下限不超过上限")
	assert.Equal(t, 5*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, "replay", pc.ConnConfig.RuntimeParams["application_name"])
	assert.NotNil(t, pc.ConnConfig.Tracer)
}

func TestPoolConfig_BadDSN(t *testing.T) {
	_, err := PoolConfig(cfgpkg.DatabaseConfig{DSN: "postgres://%zz"}, nil)
	assert.Error(t, err)
}

func TestSQLLogger_HidesArgs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &sqlLogger{log: zap.New(core)}

	l.Log(context.Background(), tracelog.LogLevelInfo, "Query", map[string]any{
		"sql":  "INSERT INTO gt06_packets VALUES ($1)",
		"args": []any{"7878..."},
		"time": 3 * time.Millisecond,
	})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(1), fields["arg_count"])
	assert.NotContains(t, fields, "args")
	assert.Equal(t, 3*time.Millisecond, fields["elapsed"])
}
