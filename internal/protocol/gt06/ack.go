package gt06

import "encoding/binary"

// AckLen 确认帧固定长度
const AckLen = 10

// BuildAck 构造确认帧：78 78 05 proto serial(2) crc(2) 0D 0A，CRC 覆盖 len..serial
func BuildAck(serial uint16, protocol byte) []byte {
	buf := make([]byte, AckLen)
	buf[0], buf[1] = startStandard[0], startStandard[1]
	buf[2] = 0x05
	buf[3] = protocol
	binary.BigEndian.PutUint16(buf[4:6], serial)
	binary.BigEndian.PutUint16(buf[6:8], CRC16(buf[2:6]))
	buf[8], buf[9] = stopMarker[0], stopMarker[1]
	return buf
}
