// Package simulator GT06 终端模拟器：登录后周期上报状态、定位、报警与 WiFi 数据，
// 每帧随机切片发送以覆盖网关的分包重组
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
)

// Config 模拟器参数
type Config struct {
	Addr       string
	TerminalID string
	DeviceType uint16
	// Reports 上报轮数，每轮发送状态、定位与 WiFi 各一帧
	Reports  int
	Interval time.Duration
	// AlarmEvery 每隔多少轮附带一次报警，0 表示不发送
	AlarmEvery int
	MaxChunks  int
	ChunkDelay time.Duration
	AckWait    time.Duration
	Seed       uint64
	Origin     Fix
	Cell       Cell
}

// Result 运行统计
type Result struct {
	FramesSent int
	BytesSent  int
	AcksWanted int
	Acks       []Ack
}

// Ack 收到的确认帧
type Ack struct {
	Protocol byte
	Serial   uint16
}

// Simulator 单终端模拟器
type Simulator struct {
	cfg    Config
	log    *zap.Logger
	rnd    *rand.Rand
	serial uint16
}

// New 创建模拟器，未设置的参数取默认值
func New(cfg Config, log *zap.Logger) *Simulator {
	if cfg.TerminalID == "" {
		cfg.TerminalID = "0867010070001558"
	}
	if cfg.Reports <= 0 {
		cfg.Reports = 1
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = 4
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = 2 * time.Second
	}
	if cfg.Origin.Latitude == 0 && cfg.Origin.Longitude == 0 {
		cfg.Origin = Fix{Latitude: 22.546096, Longitude: 114.05611, Satellites: 9}
	}
	if cfg.Cell.MCC == 0 {
		cfg.Cell = Cell{MCC: 460, MNC: 0, LAC: 0x287D, CellID: 0x1FB8}
	}
	if log == nil {
		log = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Simulator{cfg: cfg, log: log, rnd: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

func (s *Simulator) nextSerial() uint16 {
	s.serial++
	return s.serial
}

// Run 连接网关并完成全部上报，等待需确认帧的回复后返回
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.cfg.Addr, err)
	}
	defer conn.Close()
	s.log.Info("connected", zap.String("addr", s.cfg.Addr), zap.String("terminal_id", s.cfg.TerminalID))

	res := &Result{}
	acks := make(chan Ack, 64)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go s.readAcks(conn, acks, readErr, done)

	send := func(frame []byte) error {
		proto := frame[3]
		if gt06.DefaultTable.NeedsAck(proto) {
			res.AcksWanted++
		}
		for _, chunk := range SplitRandom(frame, s.rnd, s.cfg.MaxChunks) {
			if _, err := conn.Write(chunk); err != nil {
				return err
			}
			res.BytesSent += len(chunk)
			if s.cfg.ChunkDelay > 0 {
				time.Sleep(s.cfg.ChunkDelay)
			}
		}
		res.FramesSent++
		s.log.Debug("frame sent",
			zap.String("protocol", gt06.DefaultTable.Name(proto)),
			zap.Int("bytes", len(frame)))
		return nil
	}

	login, err := LoginFrame(s.cfg.TerminalID, s.cfg.DeviceType, 0, s.nextSerial())
	if err != nil {
		return nil, err
	}
	if err := send(login); err != nil {
		return res, err
	}

	fix := s.cfg.Origin
	for i := 1; i <= s.cfg.Reports; i++ {
		now := time.Now().UTC().Truncate(time.Second)
		fix = s.walk(fix)
		fix.Time = now

		frames := [][]byte{
			StatusFrame(0x4A, 3.9+s.rnd.Float64()*0.3, byte(1+s.rnd.IntN(4)), s.nextSerial()),
			GPSFrame(fix, s.cfg.Cell, s.nextSerial()),
			WiFiFrame(now, s.randomAPs(), s.nextSerial()),
		}
		if s.cfg.AlarmEvery > 0 && i%s.cfg.AlarmEvery == 0 {
			frames = append(frames, AlarmFrame(0x01, fix, s.cfg.Cell, s.nextSerial()))
		}
		for _, f := range frames {
			if err := send(f); err != nil {
				return res, err
			}
		}
		if i < s.cfg.Reports && s.cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(s.cfg.Interval):
			}
		}
	}

	timer := time.NewTimer(s.cfg.AckWait)
	defer timer.Stop()
	for len(res.Acks) < res.AcksWanted {
		select {
		case a := <-acks:
			res.Acks = append(res.Acks, a)
		case err := <-readErr:
			res.Acks = append(res.Acks, drain(acks)...)
			if len(res.Acks) >= res.AcksWanted {
				return res, nil
			}
			return res, fmt.Errorf("read acks: %w", err)
		case <-timer.C:
			return res, fmt.Errorf("received %d of %d acks", len(res.Acks), res.AcksWanted)
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
	return res, nil
}

func (s *Simulator) readAcks(conn net.Conn, out chan<- Ack, readErr chan<- error, done <-chan struct{}) {
	dec := gt06.NewStreamDecoder(64, 1024)
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames, ferr := dec.Feed(buf[:n])
			for _, f := range frames {
				a := Ack{Protocol: f.Protocol(), Serial: f.Serial()}
				s.log.Info("ack received",
					zap.String("protocol", gt06.DefaultTable.Name(a.Protocol)),
					zap.Uint16("serial", a.Serial),
					zap.String("raw", fmt.Sprintf("%X", f.Raw)))
				select {
				case out <- a:
				case <-done:
					return
				}
			}
			if ferr != nil {
				readErr <- ferr
				return
			}
		}
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				readErr <- err
			}
			return
		}
	}
}

func drain(ch <-chan Ack) []Ack {
	var out []Ack
	for {
		select {
		case a := <-ch:
			out = append(out, a)
		default:
			return out
		}
	}
}

// walk 在上一点附近随机游走
func (s *Simulator) walk(f Fix) Fix {
	f.Latitude += (s.rnd.Float64() - 0.5) * 0.001
	f.Longitude += (s.rnd.Float64() - 0.5) * 0.001
	f.Speed = uint8(s.rnd.IntN(80))
	f.Course = uint16(s.rnd.IntN(360))
	return f
}

func (s *Simulator) randomAPs() []AP {
	aps := make([]AP, 1+s.rnd.IntN(3))
	for i := range aps {
		for j := range aps[i].MAC {
			aps[i].MAC[j] = byte(s.rnd.IntN(256))
		}
		aps[i].RSSI = byte(40 + s.rnd.IntN(50))
	}
	return aps
}
