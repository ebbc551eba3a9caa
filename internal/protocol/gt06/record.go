package gt06

import (
	"encoding/hex"
	"strings"
	"time"
)

// Record 单帧解码结果，构造后不再修改
type Record struct {
	Raw          []byte    `json:"-"`
	ReceivedAt   time.Time `json:"receivedAt"`
	Length       int       `json:"length"`
	Protocol     byte      `json:"protocol"`
	ProtocolName string    `json:"protocolName"`
	SerialNumber uint16    `json:"serialNumber"`
	Checksum     uint16    `json:"checksum"`
	NeedsAck     bool      `json:"needsAck"`
	Extended     bool      `json:"isExtended"`

	Login   *Login          `json:"login,omitempty"`
	GPS     *GPSFix         `json:"gps,omitempty"`
	LBS     *CellTower      `json:"lbs,omitempty"`
	Status  *TerminalStatus `json:"status,omitempty"`
	Alarm   *AlarmFlags     `json:"alarm,omitempty"`
	WiFi    *WiFiScan       `json:"wifi,omitempty"`
	ICCID   string          `json:"iccid,omitempty"`
	Command *Command        `json:"command,omitempty"`
	Text    *TextPayload    `json:"text,omitempty"`

	// ExtraHex GPS/LBS 解析后剩余未识别字节
	ExtraHex string `json:"extraHex,omitempty"`
	// ExtendedHex 0x19 偏移 30 之后的扩展数据
	ExtendedHex string `json:"extendedHex,omitempty"`
	// DataHex 未知协议的原始数据区
	DataHex string `json:"dataHex,omitempty"`
}

// RawHex 原始帧的大写十六进制
func (r *Record) RawHex() string { return upperHex(r.Raw) }

// TerminalID 登录帧携带的终端号，其他帧为空
func (r *Record) TerminalID() string {
	if r.Login == nil {
		return ""
	}
	return r.Login.TerminalID
}

// HasPosition 是否带有有效经纬度
func (r *Record) HasPosition() bool {
	return r.GPS != nil && r.GPS.Latitude != nil && r.GPS.Longitude != nil
}

// Login 登录信息
type Login struct {
	TerminalID     string  `json:"terminalId"`
	DeviceType     *uint16 `json:"deviceType,omitempty"`
	TimezoneOffset *int16  `json:"timezoneOffset,omitempty"`
}

// GPSFix GPS 定位信息；经纬度已按半球修正符号
type GPSFix struct {
	Time       *time.Time `json:"time,omitempty"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	Speed      uint8      `json:"speed"`
	Course     uint16     `json:"course"`
	Satellites uint8      `json:"satellites"`
	RealTime   bool       `json:"realTime"` // 实时定位（非差分）
	Positioned bool       `json:"positioned"`
	East       bool       `json:"east"`
	North      bool       `json:"north"`
}

// CellTower 基站信息
type CellTower struct {
	MCC    uint16 `json:"mcc"`
	MNC    uint16 `json:"mnc"`
	LAC    uint16 `json:"lac"`
	CellID uint32 `json:"cellId"`
}

// TerminalStatus 终端状态信息
type TerminalStatus struct {
	OilElectricity bool     `json:"oilElectricity"`
	GPSTracking    bool     `json:"gpsTracking"`
	Charging       bool     `json:"charging"`
	ACCHigh        bool     `json:"accHigh"`
	Defence        bool     `json:"defence"`
	LowBattery     bool     `json:"lowBattery"`
	GSMSignal      uint8    `json:"gsmSignal"`
	Voltage        *float64 `json:"voltage,omitempty"`
	SignalStrength *uint8   `json:"signalStrength,omitempty"`
	AlarmLanguage  *uint16  `json:"alarmLanguage,omitempty"`
}

// AlarmFlags 报警位，各位相互独立
type AlarmFlags struct {
	Emergency       bool `json:"emergency"`
	Overspeed       bool `json:"overspeed"`
	LowPower        bool `json:"lowPower"`
	Shock           bool `json:"shock"`
	IntoArea        bool `json:"intoArea"`
	OutArea         bool `json:"outArea"`
	LongNoOperation bool `json:"longNoOperation"`
	Distance        bool `json:"distance"`
}

// Any 是否有任一报警位
func (a AlarmFlags) Any() bool {
	return a.Emergency || a.Overspeed || a.LowPower || a.Shock ||
		a.IntoArea || a.OutArea || a.LongNoOperation || a.Distance
}

// WiFiScan WiFi 扫描结果
type WiFiScan struct {
	Time         *time.Time    `json:"time,omitempty"`
	Count        int           `json:"count"`
	AccessPoints []AccessPoint `json:"accessPoints"`
}

// AccessPoint 单个热点
type AccessPoint struct {
	MAC  string `json:"mac"`
	RSSI uint8  `json:"rssi"`
}

// Command 指令类数据（0x8A）
type Command struct {
	Type byte   `json:"type"`
	Hex  string `json:"hex"`
}

// TextPayload 文本类数据；仅当全部为可打印 ASCII 时填充 Text
type TextPayload struct {
	Hex  string `json:"hex"`
	Text string `json:"text,omitempty"`
}

func upperHex(b []byte) string { return strings.ToUpper(hex.EncodeToString(b)) }
