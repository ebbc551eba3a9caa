package gt06

import "encoding/binary"

func decodeLogin(p []byte, r *Record) {
	if len(p) < 8 {
		return
	}
	l := &Login{TerminalID: upperHex(p[:8])}
	if len(p) >= 10 {
		dt := binary.BigEndian.Uint16(p[8:10])
		l.DeviceType = &dt
	}
	if len(p) >= 12 {
		tz := int16(binary.BigEndian.Uint16(p[10:12]))
		l.TimezoneOffset = &tz
	}
	r.Login = l
}

// decodeStatus 终端信息位：bit0 油电 bit1 GPS 追踪 bit2 充电 bit3 ACC bit4 设防 bit5 低电，bit6-7 GSM 强度
func decodeStatus(p []byte, r *Record) {
	if len(p) < 1 {
		return
	}
	b := p[0]
	s := &TerminalStatus{
		OilElectricity: b&0x01 != 0,
		GPSTracking:    b&0x02 != 0,
		Charging:       b&0x04 != 0,
		ACCHigh:        b&0x08 != 0,
		Defence:        b&0x10 != 0,
		LowBattery:     b&0x20 != 0,
		GSMSignal:      (b >> 6) & 0x03,
	}
	if len(p) >= 3 {
		v := float64(binary.BigEndian.Uint16(p[1:3])) / 100
		s.Voltage = &v
	}
	if len(p) >= 4 {
		sig := p[3]
		s.SignalStrength = &sig
	}
	if len(p) >= 6 {
		lang := binary.BigEndian.Uint16(p[4:6])
		s.AlarmLanguage = &lang
	}
	r.Status = s
}

func decodeAlarmFlags(b byte) *AlarmFlags {
	return &AlarmFlags{
		Emergency:       b&0x01 != 0,
		Overspeed:       b&0x02 != 0,
		LowPower:        b&0x04 != 0,
		Shock:           b&0x08 != 0,
		IntoArea:        b&0x10 != 0,
		OutArea:         b&0x20 != 0,
		LongNoOperation: b&0x40 != 0,
		Distance:        b&0x80 != 0,
	}
}

func decodeWiFi(p []byte, r *Record) {
	if len(p) < 6 {
		return
	}
	w := &WiFiScan{Time: decodeDateTime(p[:6]), AccessPoints: []AccessPoint{}}
	r.WiFi = w
	off := 6
	if off >= len(p) {
		return
	}
	w.Count = int(p[off])
	off++
	for i := 0; i < w.Count && off+7 <= len(p); i++ {
		w.AccessPoints = append(w.AccessPoints, AccessPoint{
			MAC:  upperHex(p[off : off+6]),
			RSSI: p[off+6],
		})
		off += 7
	}
	if off < len(p) {
		r.ExtraHex = upperHex(p[off:])
	}
}

const hexDigits = "0123456789ABCDEF"

// decodeICCID 10 字节 BCD，每字节先低半字节后高半字节。
// 非 BCD 半字节（19 位 ICCID 末尾的 F 填充）按单个十六进制字符输出，结果固定 20 个字符
func decodeICCID(p []byte) string {
	if len(p) < 10 {
		return ""
	}
	out := make([]byte, 0, 20)
	for _, b := range p[:10] {
		out = append(out, hexDigits[b&0x0F], hexDigits[b>>4])
	}
	return string(out)
}

func decodeText(p []byte) *TextPayload {
	if len(p) == 0 {
		return nil
	}
	t := &TextPayload{Hex: upperHex(p)}
	if printableASCII(p) {
		t.Text = string(p)
	}
	return t
}

func printableASCII(p []byte) bool {
	for _, c := range p {
		if c < 0x20 || c > 0x7E {
			return false
		}
	}
	return true
}
