package models

import (
	"time"
)

// 注意：
// - 保持与 internal/migrate/sql/0001_gt06_init_up.sql 完全对齐
// - 不使用 gorm.Model，显式声明每个字段，避免隐式 DeletedAt
// - 写入路径走 pgx，这里的模型仅用于只读查询

// Packet 映射 gt06_packets 表
type Packet struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RawHex       string    `gorm:"column:raw_hex;type:text;not null" json:"rawHex"`
	ReceivedAt   time.Time `gorm:"column:received_at;not null" json:"receivedAt"`
	Length       int32     `gorm:"column:length;not null" json:"length"`
	Protocol     int16     `gorm:"column:protocol;not null" json:"protocol"`
	ProtocolName string    `gorm:"column:protocol_name;type:text;not null" json:"protocolName"`
	SerialNumber int32     `gorm:"column:serial_number;not null" json:"serialNumber"`
	Checksum     int32     `gorm:"column:checksum;not null" json:"checksum"`
	NeedsAck     bool      `gorm:"column:needs_ack;not null" json:"needsAck"`
	IsExtended   bool      `gorm:"column:is_extended;not null" json:"isExtended"`
	// 终端号，登录前的数据包为空
	TerminalID     *string `gorm:"column:terminal_id;type:text" json:"terminalId,omitempty"`
	DeviceType     *int32  `gorm:"column:device_type" json:"deviceType,omitempty"`
	TimezoneOffset *int32  `gorm:"column:timezone_offset" json:"timezoneOffset,omitempty"`
	ICCID          *string `gorm:"column:iccid;type:text" json:"iccid,omitempty"`
	ExtraHex       *string `gorm:"column:extra_hex;type:text" json:"extraHex,omitempty"`
	ExtendedHex    *string `gorm:"column:extended_hex;type:text" json:"extendedHex,omitempty"`
	DataHex        *string `gorm:"column:data_hex;type:text" json:"dataHex,omitempty"`
	ClientIP       *string `gorm:"column:client_ip;type:text" json:"clientIp,omitempty"`
	ClientPort     *int32  `gorm:"column:client_port" json:"clientPort,omitempty"`

	GPS    *GPS    `gorm:"foreignKey:PacketID" json:"gps,omitempty"`
	LBS    *LBS    `gorm:"foreignKey:PacketID" json:"lbs,omitempty"`
	Status *Status `gorm:"foreignKey:PacketID" json:"status,omitempty"`
	Alarm  *Alarm  `gorm:"foreignKey:PacketID" json:"alarm,omitempty"`
	WiFi   *WiFi   `gorm:"foreignKey:PacketID" json:"wifi,omitempty"`
}

func (Packet) TableName() string { return "gt06_packets" }

// GPS 映射 gt06_gps 表
type GPS struct {
	ID         int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PacketID   int64      `gorm:"column:packet_id;not null;index" json:"packetId"`
	GPSTime    *time.Time `gorm:"column:gps_time" json:"gpsTime,omitempty"`
	Latitude   *float64   `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude  *float64   `gorm:"column:longitude" json:"longitude,omitempty"`
	Speed      int16      `gorm:"column:speed;not null" json:"speed"`
	Course     int16      `gorm:"column:course;not null" json:"course"`
	Satellites int16      `gorm:"column:satellites;not null" json:"satellites"`
	RealTime   bool       `gorm:"column:real_time;not null" json:"realTime"`
	Positioned bool       `gorm:"column:positioned;not null" json:"positioned"`
	East       bool       `gorm:"column:east;not null" json:"east"`
	North      bool       `gorm:"column:north;not null" json:"north"`
}

func (GPS) TableName() string { return "gt06_gps" }

// LBS 映射 gt06_lbs 表
type LBS struct {
	ID       int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PacketID int64 `gorm:"column:packet_id;not null;index" json:"packetId"`
	MCC      int32 `gorm:"column:mcc;not null" json:"mcc"`
	MNC      int32 `gorm:"column:mnc;not null" json:"mnc"`
	LAC      int64 `gorm:"column:lac;not null" json:"lac"`
	CellID   int64 `gorm:"column:cell_id;not null" json:"cellId"`
}

func (LBS) TableName() string { return "gt06_lbs" }

// Status 映射 gt06_status 表
type Status struct {
	ID             int64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PacketID       int64    `gorm:"column:packet_id;not null;index" json:"packetId"`
	OilElectricity bool     `gorm:"column:oil_electricity;not null" json:"oilElectricity"`
	GPSTracking    bool     `gorm:"column:gps_tracking;not null" json:"gpsTracking"`
	Charging       bool     `gorm:"column:charging;not null" json:"charging"`
	ACCHigh        bool     `gorm:"column:acc_high;not null" json:"accHigh"`
	Defence        bool     `gorm:"column:defence;not null" json:"defence"`
	LowBattery     bool     `gorm:"column:low_battery;not null" json:"lowBattery"`
	GSMSignal      int16    `gorm:"column:gsm_signal;not null" json:"gsmSignal"`
	Voltage        *float64 `gorm:"column:voltage" json:"voltage,omitempty"`
	SignalStrength *int16   `gorm:"column:signal_strength" json:"signalStrength,omitempty"`
	AlarmLanguage  *int32   `gorm:"column:alarm_language" json:"alarmLanguage,omitempty"`
}

func (Status) TableName() string { return "gt06_status" }

// Alarm 映射 gt06_alarms 表
type Alarm struct {
	ID              int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PacketID        int64 `gorm:"column:packet_id;not null;index" json:"packetId"`
	Emergency       bool  `gorm:"column:emergency;not null" json:"emergency"`
	Overspeed       bool  `gorm:"column:overspeed;not null" json:"overspeed"`
	LowPower        bool  `gorm:"column:low_power;not null" json:"lowPower"`
	Shock           bool  `gorm:"column:shock;not null" json:"shock"`
	IntoArea        bool  `gorm:"column:into_area;not null" json:"intoArea"`
	OutArea         bool  `gorm:"column:out_area;not null" json:"outArea"`
	LongNoOperation bool  `gorm:"column:long_no_operation;not null" json:"longNoOperation"`
	Distance        bool  `gorm:"column:distance;not null" json:"distance"`
}

func (Alarm) TableName() string { return "gt06_alarms" }

// WiFi 映射 gt06_wifi 表
type WiFi struct {
	ID           int64             `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PacketID     int64             `gorm:"column:packet_id;not null;index" json:"packetId"`
	WiFiTime     *time.Time        `gorm:"column:wifi_time" json:"wifiTime,omitempty"`
	WiFiCount    int32             `gorm:"column:wifi_count;not null" json:"wifiCount"`
	AccessPoints []WiFiAccessPoint `gorm:"foreignKey:WiFiID" json:"accessPoints"`
}

func (WiFi) TableName() string { return "gt06_wifi" }

// WiFiAccessPoint 映射 gt06_wifi_aps 表
type WiFiAccessPoint struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	WiFiID int64  `gorm:"column:wifi_id;not null;index" json:"wifiId"`
	MAC    string `gorm:"column:mac;type:text;not null" json:"mac"`
	RSSI   int16  `gorm:"column:rssi;not null" json:"rssi"`
}

func (WiFiAccessPoint) TableName() string { return "gt06_wifi_aps" }

// DeviceSession 映射 gt06_device_sessions 表
type DeviceSession struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TerminalID    string     `gorm:"column:terminal_id;type:text;not null" json:"terminalId"`
	SessionStart  time.Time  `gorm:"column:session_start;not null" json:"sessionStart"`
	SessionEnd    *time.Time `gorm:"column:session_end" json:"sessionEnd,omitempty"`
	ClientIP      *string    `gorm:"column:client_ip;type:text" json:"clientIp,omitempty"`
	ClientPort    *int32     `gorm:"column:client_port" json:"clientPort,omitempty"`
	LastHeartbeat *time.Time `gorm:"column:last_heartbeat" json:"lastHeartbeat,omitempty"`
	TotalPackets  int64      `gorm:"column:total_packets;not null" json:"totalPackets"`
	// active / closed
	Status string `gorm:"column:status;type:text;not null" json:"status"`
}

func (DeviceSession) TableName() string { return "gt06_device_sessions" }

// DeviceSummary 按终端聚合的数据包统计（查询结果，不对应表）
type DeviceSummary struct {
	TerminalID  string    `gorm:"column:terminal_id" json:"terminalId"`
	PacketCount int64     `gorm:"column:packet_count" json:"packetCount"`
	FirstSeen   time.Time `gorm:"column:first_seen" json:"firstSeen"`
	LastSeen    time.Time `gorm:"column:last_seen" json:"lastSeen"`
}

// GPSPoint 定位点（gt06_gps 关联数据包的终端号与接收时间）
type GPSPoint struct {
	GPS
	TerminalID *string   `gorm:"column:terminal_id" json:"terminalId,omitempty"`
	Protocol   int16     `gorm:"column:protocol" json:"protocol"`
	ReceivedAt time.Time `gorm:"column:received_at" json:"receivedAt"`
}

// AlarmEvent 报警（gt06_alarms 关联数据包）
type AlarmEvent struct {
	Alarm
	TerminalID *string   `gorm:"column:terminal_id" json:"terminalId,omitempty"`
	ReceivedAt time.Time `gorm:"column:received_at" json:"receivedAt"`
	Latitude   *float64  `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude  *float64  `gorm:"column:longitude" json:"longitude,omitempty"`
}
