package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gt06-gateway/internal/config"
	"github.com/taoyao-code/gt06-gateway/internal/logging"
	"github.com/taoyao-code/gt06-gateway/internal/simulator"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5023", "网关 TCP 地址")
	terminal := flag.String("terminal", "0867010070001558", "终端号（16 位十六进制）")
	reports := flag.Int("reports", 5, "上报轮数")
	interval := flag.Duration("interval", 2*time.Second, "每轮间隔")
	alarmEvery := flag.Int("alarm-every", 3, "每隔多少轮发送一次报警，0 表示不发送")
	chunks := flag.Int("chunks", 4, "每帧最多切成的片数")
	seed := flag.Uint64("seed", 0, "随机种子，0 表示按时间")
	level := flag.String("log-level", "info", "日志级别")
	flag.Parse()

	log, err := logging.InitLogger(cfgpkg.LoggingConfig{Level: *level, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := simulator.New(simulator.Config{
		Addr:       *addr,
		TerminalID: *terminal,
		DeviceType: 0x8075,
		Reports:    *reports,
		Interval:   *interval,
		AlarmEvery: *alarmEvery,
		MaxChunks:  *chunks,
		ChunkDelay: 5 * time.Millisecond,
		Seed:       *seed,
	}, log)

	res, err := sim.Run(ctx)
	if res != nil {
		log.Info("simulation finished",
			zap.Int("frames_sent", res.FramesSent),
			zap.Int("bytes_sent", res.BytesSent),
			zap.Int("acks_wanted", res.AcksWanted),
			zap.Int("acks_received", len(res.Acks)))
	}
	if err != nil {
		log.Error("simulation failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}
