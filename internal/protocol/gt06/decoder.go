package gt06

import "time"

// Decoder 单帧解码器。协议表只读共享，解码过程无锁
type Decoder struct {
	table *Table
	now   func() time.Time
}

// NewDecoder 创建解码器；table 为 nil 时使用 DefaultTable
func NewDecoder(table *Table) *Decoder {
	if table == nil {
		table = DefaultTable
	}
	return &Decoder{table: table, now: time.Now}
}

// Decode 解码完整帧。负载不足时对应字段留空，不返回错误
func (d *Decoder) Decode(f Frame) *Record {
	proto := f.Protocol()
	r := &Record{
		Raw:          f.Raw,
		ReceivedAt:   d.now(),
		Length:       f.Length(),
		Protocol:     proto,
		ProtocolName: d.table.Name(proto),
		SerialNumber: f.Serial(),
		Checksum:     f.Checksum(),
		NeedsAck:     d.table.NeedsAck(proto),
		Extended:     f.Extended,
	}
	p := f.Payload()

	switch proto {
	case ProtoLogin:
		decodeLogin(p, r)
	case ProtoGPSLBSStatus, ProtoGPSLBSAlarm, ProtoGPSLBSStatus2, ProtoLocationRequest,
		ProtoGPSLBSData, ProtoLocationReporting:
		d.gpsWithTail(p, decodeGPSLBS, r)
	case ProtoGPSLBSStatusA0:
		d.gpsWithTail(p, decodeGPSLBSA0, r)
	case ProtoGPSLBSExtend:
		d.gpsWithTail(p, decodeGPSLBS, r)
		if len(p) > 30 {
			r.ExtendedHex = upperHex(p[30:])
		}
	case ProtoStatusInfo:
		decodeStatus(p, r)
	case ProtoAlarmData:
		if len(p) >= 1 {
			r.Alarm = decodeAlarmFlags(p[0])
			if len(p) > 1 {
				d.gpsWithTail(p[1:], decodeGPSLBS, r)
			}
		}
	case ProtoWiFiPositioning:
		decodeWiFi(p, r)
	case ProtoICCID:
		r.ICCID = decodeICCID(p)
	case ProtoStatusCommand:
		if len(p) >= 1 {
			r.Command = &Command{Type: p[0], Hex: upperHex(p[1:])}
		}
	case ProtoInfoTransmission, ProtoExtendedCommand98, ProtoExtendedCommand99:
		r.Text = decodeText(p)
	default:
		r.DataHex = upperHex(p)
	}
	return r
}

func (d *Decoder) gpsWithTail(p []byte, decode func([]byte, *Record) int, r *Record) {
	n := decode(p, r)
	if n < len(p) {
		r.ExtraHex = upperHex(p[n:])
	}
}
