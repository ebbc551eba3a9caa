package simulator

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
)

// Fix 模拟定位点
type Fix struct {
	Time       time.Time
	Latitude   float64
	Longitude  float64
	Speed      uint8
	Course     uint16
	Satellites uint8
}

// Cell 模拟基站
type Cell struct {
	MCC    uint16
	MNC    uint8
	LAC    uint16
	CellID uint32
}

// AP WiFi 热点
type AP struct {
	MAC  [6]byte
	RSSI uint8
}

// LoginFrame 登录包：终端号 16 位十六进制 BCD | 设备类型 | 时区
func LoginFrame(terminalID string, deviceType uint16, tz int16, serial uint16) ([]byte, error) {
	id, err := hex.DecodeString(terminalID)
	if err != nil || len(id) != 8 {
		return nil, fmt.Errorf("terminal id must be 16 hex digits: %q", terminalID)
	}
	p := make([]byte, 0, 12)
	p = append(p, id...)
	p = binary.BigEndian.AppendUint16(p, deviceType)
	p = binary.BigEndian.AppendUint16(p, uint16(tz))
	return gt06.BuildFrame(gt06.ProtoLogin, p, serial), nil
}

// StatusFrame 心跳/状态包：信息位 | 电压(0.01V) | 信号 | 语言
func StatusFrame(info byte, voltage float64, signal byte, serial uint16) []byte {
	p := []byte{info}
	p = binary.BigEndian.AppendUint16(p, uint16(math.Round(voltage*100)))
	p = append(p, signal, 0x00, 0x02)
	return gt06.BuildFrame(gt06.ProtoStatusInfo, p, serial)
}

// GPSFrame GPS+LBS 定位包（0x12）
func GPSFrame(fix Fix, cell Cell, serial uint16) []byte {
	p := appendGPSLBS(nil, fix, cell)
	return gt06.BuildFrame(gt06.ProtoGPSLBSStatus2, p, serial)
}

// AlarmFrame 报警包：报警位 | 定位 | 基站
func AlarmFrame(flags byte, fix Fix, cell Cell, serial uint16) []byte {
	p := appendGPSLBS([]byte{flags}, fix, cell)
	return gt06.BuildFrame(gt06.ProtoAlarmData, p, serial)
}

// WiFiFrame WiFi 定位包：时间 | 数量 | (MAC + RSSI)*N
func WiFiFrame(at time.Time, aps []AP, serial uint16) []byte {
	p := appendDateTime(nil, at)
	p = append(p, byte(len(aps)))
	for _, ap := range aps {
		p = append(p, ap.MAC[:]...)
		p = append(p, ap.RSSI)
	}
	return gt06.BuildFrame(gt06.ProtoWiFiPositioning, p, serial)
}

func appendGPSLBS(p []byte, fix Fix, cell Cell) []byte {
	p = appendDateTime(p, fix.Time)
	p = append(p, 0xC0|fix.Satellites&0x0F)
	p = binary.BigEndian.AppendUint32(p, uint32(math.Round(math.Abs(fix.Latitude)*60*30000)))
	p = binary.BigEndian.AppendUint32(p, uint32(math.Round(math.Abs(fix.Longitude)*60*30000)))
	p = append(p, fix.Speed)

	cs := fix.Course&0x03FF | 0x1000 // 已定位
	if fix.Latitude >= 0 {
		cs |= 0x0400
	}
	if fix.Longitude < 0 {
		cs |= 0x0800
	}
	p = binary.BigEndian.AppendUint16(p, cs)

	p = binary.BigEndian.AppendUint16(p, cell.MCC)
	p = append(p, cell.MNC)
	p = binary.BigEndian.AppendUint16(p, cell.LAC)
	return append(p, byte(cell.CellID>>16), byte(cell.CellID>>8), byte(cell.CellID))
}

func appendDateTime(p []byte, t time.Time) []byte {
	t = t.UTC()
	return append(p, byte(t.Year()-2000), byte(t.Month()), byte(t.Day()),
		byte(t.Hour()), byte(t.Minute()), byte(t.Second()))
}

// SplitRandom 将数据切成随机长度的片段，模拟 TCP 分包
func SplitRandom(b []byte, rnd *rand.Rand, maxChunks int) [][]byte {
	if maxChunks < 1 || len(b) <= 1 {
		return [][]byte{b}
	}
	n := 1 + rnd.IntN(maxChunks)
	if n > len(b) {
		n = len(b)
	}
	chunks := make([][]byte, 0, n)
	rest := b
	for i := n; i > 1; i-- {
		// 保证剩余每片至少 1 字节
		cut := 1 + rnd.IntN(len(rest)-i+1)
		chunks = append(chunks, rest[:cut])
		rest = rest[cut:]
	}
	return append(chunks, rest)
}
