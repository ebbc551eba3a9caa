package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GT06_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gt06-gateway", cfg.App.Name)
	assert.Equal(t, ":5023", cfg.TCP.Addr)
	assert.Equal(t, 30*time.Minute, cfg.TCP.IdleTimeout)
	assert.Equal(t, 1024, cfg.GT06.MaxFrameLen)
	assert.Equal(t, "warn", cfg.GT06.ChecksumPolicy)
	assert.Equal(t, 64*1024, cfg.TCP.MaxBufferBytes)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 5, cfg.Storage.BreakerThreshold)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tcp:
  addr: ":6000"
  idleTimeout: 5m
gt06:
  checksumPolicy: drop
api:
  auth:
    enabled: true
    apiKeys: ["k1", "k2"]
`), 0o600))
	t.Setenv("GT06_TCP_MAXCONNECTIONS", "42")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.TCP.Addr)
	assert.Equal(t, 5*time.Minute, cfg.TCP.IdleTimeout)
	assert.Equal(t, "drop", cfg.GT06.ChecksumPolicy)
	assert.Equal(t, 42, cfg.TCP.MaxConnections)
	assert.Equal(t, []string{"k1", "k2"}, cfg.API.Auth.APIKeys)
}

func TestLoad_ConfigEnvVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  env: prod\n"), 0o600))
	t.Setenv("GT06_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.App.Env)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tcp: [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			TCP:  TCPConfig{IdleTimeout: time.Minute, MaxBufferBytes: 4096},
			GT06: GT06Config{MaxFrameLen: 1024, ChecksumPolicy: "warn"},
		}
	}

	c := valid()
	assert.NoError(t, c.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"帧长度非正", func(c *Config) { c.GT06.MaxFrameLen = 0 }},
		{"缓冲小于帧长", func(c *Config) { c.TCP.MaxBufferBytes = 512 }},
		{"未知校验策略", func(c *Config) { c.GT06.ChecksumPolicy = "strict" }},
		{"空闲超时", func(c *Config) { c.TCP.IdleTimeout = 0 }},
		{"数据库缺少DSN", func(c *Config) { c.Database.Enabled = true }},
		{"认证缺少密钥", func(c *Config) { c.API.Auth.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("GT06_CONFIG", "")
	cfg, err := Load("../../configs/example.yaml")
	require.NoError(t, err)
	assert.Equal(t, ":5023", cfg.TCP.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Session.HeartbeatTimeout)
	assert.Equal(t, "gt06:records", cfg.Redis.StreamKey)
	assert.Empty(t, cfg.API.Auth.APIKeys)
}
