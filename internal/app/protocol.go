package app

import (
	"fmt"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
)

// NewProtocolOptions 由配置构造每连接适配器参数（协议表进程内共享）
func NewProtocolOptions(cfg *cfgpkg.Config, log *zap.Logger) (gt06.Options, error) {
	policy, err := gt06.ParseChecksumPolicy(cfg.GT06.ChecksumPolicy)
	if err != nil {
		return gt06.Options{}, err
	}
	table, err := gt06.LoadProtocolTable(cfg.GT06.ProtocolNamesPath)
	if err != nil {
		return gt06.Options{}, fmt.Errorf("load protocol table: %w", err)
	}
	if cfg.GT06.ProtocolNamesPath != "" {
		log.Info("protocol table overlay loaded", zap.String("path", cfg.GT06.ProtocolNamesPath))
	}
	return gt06.Options{
		MaxFrameLen:    cfg.GT06.MaxFrameLen,
		MaxUnframed:    cfg.TCP.MaxBufferBytes,
		ChecksumPolicy: policy,
		Table:          table,
	}, nil
}
