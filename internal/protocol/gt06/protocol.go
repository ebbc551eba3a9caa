package gt06

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// 协议号
const (
	ProtoLogin             byte = 0x01
	ProtoGPSPositioning    byte = 0x02
	ProtoHeartbeat         byte = 0x03
	ProtoGPSLBSStatus      byte = 0x10
	ProtoGPSLBSAlarm       byte = 0x11
	ProtoGPSLBSStatus2     byte = 0x12
	ProtoStatusInfo        byte = 0x13
	ProtoStringInfo        byte = 0x15
	ProtoAlarmData         byte = 0x16
	ProtoLBSPhone          byte = 0x18
	ProtoGPSLBSExtend      byte = 0x19
	ProtoGPSLBSData        byte = 0x1A
	ProtoOnlineCommand     byte = 0x21
	ProtoLocationRequest   byte = 0x22
	ProtoWiFiPositioning   byte = 0x30
	ProtoICCID             byte = 0x69
	ProtoLocationReporting byte = 0x70
	ProtoStatusCommand     byte = 0x8A
	ProtoInfoTransmission  byte = 0x94
	ProtoExtendedCommand98 byte = 0x98
	ProtoExtendedCommand99 byte = 0x99
	ProtoGPSLBSStatusA0    byte = 0xA0
)

// UnknownProtocol 未登记协议号的名称
const UnknownProtocol = "UNKNOWN"

var defaultNames = map[byte]string{
	0x01: "LOGIN",
	0x02: "GPS_POSITIONING",
	0x03: "HEARTBEAT",
	0x04: "TERMINAL_RESPONSE",
	0x05: "TERMINAL_COMMAND",
	0x08: "REQUEST_RESPONSE",
	0x10: "GPS_LBS_STATUS",
	0x11: "GPS_LBS_ALARM",
	0x12: "GPS_LBS_STATUS_2",
	0x13: "STATUS_INFO",
	0x15: "STRING_INFO",
	0x16: "ALARM_DATA",
	0x17: "GPS_LBS_MULTIPLE",
	0x18: "LBS_PHONE",
	0x19: "GPS_LBS_EXTEND",
	0x1A: "GPS_LBS_DATA",
	0x21: "ONLINE_COMMAND",
	0x22: "LOCATION_REQUEST",
	0x23: "LOCATION_DATA",
	0x26: "ALARM_DATA_26",
	0x27: "TIME_REQUEST",
	0x28: "INFO_TRANSMISSION",
	0x2A: "PHOTO_DATA",
	0x30: "WIFI_POSITIONING",
	0x31: "MANUAL_POSITIONING",
	0x32: "AUTOMATIC_POSITIONING",
	0x33: "AGPS_REQUEST",
	0x34: "AGPS_COMMAND",
	0x40: "PERIPHERAL_SYSTEMS",
	0x41: "FORWARD_MESSAGE",
	0x42: "FORWARD_QUESTION",
	0x43: "FORWARD_MONITOR",
	0x44: "FORWARD_COMMAND",
	0x57: "WIFI_OFFLINE",
	0x58: "GPS_DRIVER_BEHAVIOR",
	0x69: "ICCID_INFO",
	0x70: "LOCATION_REPORTING",
	0x80: "COMMAND_0X80",
	0x81: "COMMAND_0X81",
	0x82: "COMMAND_0X82",
	0x8A: "GPS_LBS_STATUS_8A",
	0x90: "COMMAND_0X90",
	0x91: "COMMAND_0X91",
	0x92: "COMMAND_0X92",
	0x93: "COMMAND_0X93",
	0x94: "INFORMATION_TRANSMISSION",
	0x95: "COMMAND_0X95",
	0x98: "COMMAND_0X98",
	0x99: "COMMAND_0X99",
	0xA0: "GPS_LBS_STATUS_A0",
}

// 需要回复确认帧的协议号
var defaultAck = []byte{ProtoLogin, ProtoOnlineCommand, ProtoStringInfo, ProtoAlarmData, ProtoLBSPhone, ProtoGPSLBSExtend}

// Table 协议号 -> 名称 / 是否需要确认，构造后只读，可被多个连接共享
type Table struct {
	names [256]string
	ack   [256]bool
}

// DefaultTable 进程级默认协议表
var DefaultTable = newDefaultTable()

func newDefaultTable() *Table {
	t := &Table{}
	for code, name := range defaultNames {
		t.names[code] = name
	}
	for _, code := range defaultAck {
		t.ack[code] = true
	}
	return t
}

// Name 返回协议名称，未登记返回 UNKNOWN
func (t *Table) Name(code byte) string {
	if n := t.names[code]; n != "" {
		return n
	}
	return UnknownProtocol
}

// Known 协议号是否已登记
func (t *Table) Known(code byte) bool { return t.names[code] != "" }

// NeedsAck 协议号是否需要回复确认帧
func (t *Table) NeedsAck(code byte) bool { return t.ack[code] }

// Overlay 协议表覆盖文件格式
//
//	names:
//	  0x57: WIFI_OFFLINE_V2
//	ack: [0x13]
type Overlay struct {
	Names map[int]string `yaml:"names"`
	Ack   []int          `yaml:"ack"`
}

// WithOverlay 基于当前表复制出新表，应用覆盖项
func (t *Table) WithOverlay(o Overlay) (*Table, error) {
	nt := *t
	for code, name := range o.Names {
		if code < 0 || code > 0xFF {
			return nil, fmt.Errorf("protocol code out of range: %d", code)
		}
		if name == "" {
			return nil, fmt.Errorf("empty protocol name for 0x%02X", code)
		}
		nt.names[code] = name
	}
	for _, code := range o.Ack {
		if code < 0 || code > 0xFF {
			return nil, fmt.Errorf("ack protocol code out of range: %d", code)
		}
		nt.ack[code] = true
	}
	return &nt, nil
}

// LoadProtocolTable 在默认表之上加载 YAML 覆盖；path 为空时返回默认表
func LoadProtocolTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocol table: %w", err)
	}
	var o Overlay
	if err := yaml.Unmarshal(b, &o); err != nil {
		return nil, fmt.Errorf("unmarshal protocol table: %w", err)
	}
	return DefaultTable.WithOverlay(o)
}
