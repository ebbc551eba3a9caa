package gt06

import (
	"encoding/binary"
	"math"
	"time"
)

// 航向状态字
const (
	courseDifferential = 0x2000 // 置位为差分定位，清零为实时定位
	coursePositioned   = 0x1000 // 已定位
	courseWest         = 0x0800 // 西经
	courseNorth        = 0x0400 // 北纬
	courseMask         = 0x03FF
)

// 原始坐标单位：1/30000 分
const coordDivisor = 60.0 * 30000.0

// gpsBlockLen 经纬度(8) + 速度(1) + 航向状态(2)
const gpsBlockLen = 11

// lbsBlockLen MCC 2 | MNC 1 | LAC 2 | CellID 3
const lbsBlockLen = 8

// 0xA0 扫描 LBS 时认可的 MCC 范围
const (
	minMCC = 100
	maxMCC = 999
)

// decodeGPSLBS 解析 "时间 | GPS 信息 | 坐标 | LBS" 布局，返回已消费的字节数。
// GPS 信息字节为 0 时坐标字节不出现
func decodeGPSLBS(p []byte, r *Record) int {
	if len(p) < 6 {
		return 0
	}
	fix := &GPSFix{Time: decodeDateTime(p[:6])}
	off := 6
	r.GPS = fix

	if off >= len(p) {
		return off
	}
	info := p[off]
	off++
	fix.Satellites = info & 0x0F
	if info != 0 && off+gpsBlockLen <= len(p) {
		off += decodeCoordinates(p[off:off+gpsBlockLen], fix)
	}

	if cell := decodeLBS(p[off:]); cell != nil {
		r.LBS = cell
		off += lbsBlockLen
	}
	return off
}

// decodeGPSLBSA0 0xA0 布局：时间(6) | 保留(1) | 坐标(11) | LBS。
// 保留字节不作为坐标是否存在的依据；LBS 起点不固定，向后查找首个合理的 MCC
func decodeGPSLBSA0(p []byte, r *Record) int {
	if len(p) < 6 {
		return 0
	}
	fix := &GPSFix{Time: decodeDateTime(p[:6])}
	r.GPS = fix
	off := 7
	if off >= len(p) {
		return len(p)
	}
	if off+gpsBlockLen <= len(p) {
		off += decodeCoordinates(p[off:off+gpsBlockLen], fix)
	}

	for i := off; i+lbsBlockLen <= len(p); i++ {
		if mcc := binary.BigEndian.Uint16(p[i : i+2]); mcc >= minMCC && mcc <= maxMCC {
			r.LBS = decodeLBS(p[i:])
			return i + lbsBlockLen
		}
	}
	return off
}

func decodeCoordinates(p []byte, fix *GPSFix) int {
	lat := roundCoord(float64(binary.BigEndian.Uint32(p[0:4])) / coordDivisor)
	lon := roundCoord(float64(binary.BigEndian.Uint32(p[4:8])) / coordDivisor)
	fix.Speed = p[8]
	cs := binary.BigEndian.Uint16(p[9:11])
	fix.Course = cs & courseMask
	fix.RealTime = cs&courseDifferential == 0
	fix.Positioned = cs&coursePositioned != 0
	fix.East = cs&courseWest == 0
	fix.North = cs&courseNorth != 0
	if !fix.North {
		lat = -lat
	}
	if !fix.East {
		lon = -lon
	}
	fix.Latitude = &lat
	fix.Longitude = &lon
	return gpsBlockLen
}

func decodeLBS(p []byte) *CellTower {
	if len(p) < lbsBlockLen {
		return nil
	}
	return &CellTower{
		MCC:    binary.BigEndian.Uint16(p[0:2]),
		MNC:    uint16(p[2]),
		LAC:    binary.BigEndian.Uint16(p[3:5]),
		CellID: uint32(p[5])<<16 | uint32(p[6])<<8 | uint32(p[7]),
	}
}

// decodeDateTime 解析 YY MM DD hh mm ss（UTC）；非法日历值返回 nil
func decodeDateTime(p []byte) *time.Time {
	year := 2000 + int(p[0])
	month, day := int(p[1]), int(p[2])
	hour, minute, sec := int(p[3]), int(p[4]), int(p[5])
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 59 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	// 拒绝 2 月 30 日这类被 time.Date 自动进位的日期
	if t.Day() != day {
		return nil
	}
	return &t
}

func roundCoord(v float64) float64 { return math.Round(v*1e6) / 1e6 }
