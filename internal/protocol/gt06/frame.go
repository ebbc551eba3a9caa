package gt06

import "encoding/binary"

// 帧布局：
// 标准帧 0x78 0x78 | len[1] | proto[1] | payload[len-5] | serial[2] | crc[2] | 0x0D 0x0A
// 扩展帧 0x79 0x79 | len[2,BE] | proto[1] | payload[len-1] | 0x0D 0x0A
var (
	startStandard = [2]byte{0x78, 0x78}
	startExtended = [2]byte{0x79, 0x79}
	stopMarker    = [2]byte{0x0D, 0x0A}
)

const (
	// MinFrameLen 最短可能的帧长度，缓冲不足该值时不尝试切帧
	MinFrameLen = 5
	// DefaultMaxFrameLen 单帧长度上限，超出视为畸形帧
	DefaultMaxFrameLen = 1024

	// 标准帧 len 至少覆盖 proto+serial+crc
	minStandardLen = 5
	// 扩展帧 len 至少覆盖 proto
	minExtendedLen = 1
)

// Frame 一个完整、已通过停止位校验的帧（只读）
type Frame struct {
	Raw      []byte
	Extended bool
}

// Length 返回帧头声明的长度字段
func (f Frame) Length() int {
	if f.Extended {
		return int(binary.BigEndian.Uint16(f.Raw[2:4]))
	}
	return int(f.Raw[2])
}

func (f Frame) protocolOffset() int {
	if f.Extended {
		return 4
	}
	return 3
}

// Protocol 返回协议号
func (f Frame) Protocol() byte { return f.Raw[f.protocolOffset()] }

// Payload 返回去掉起始位、长度、协议号、序列号、校验和停止位之后的数据区
func (f Frame) Payload() []byte {
	start := f.protocolOffset() + 1
	end := len(f.Raw) - 2
	if !f.Extended {
		end = len(f.Raw) - 6
	}
	if end < start {
		return nil
	}
	return f.Raw[start:end]
}

// Serial 标准帧的信息序列号，扩展帧为 0
func (f Frame) Serial() uint16 {
	if f.Extended {
		return 0
	}
	return binary.BigEndian.Uint16(f.Raw[len(f.Raw)-6:])
}

// Checksum 标准帧头中携带的校验值，扩展帧为 0
func (f Frame) Checksum() uint16 {
	if f.Extended {
		return 0
	}
	return binary.BigEndian.Uint16(f.Raw[len(f.Raw)-4:])
}

// frameTotalLen 由起始位之后的长度字段计算整帧长度；need 表示读取长度字段所需的最少字节
func frameTotalLen(b []byte, extended bool) (total int, declared int, need int) {
	if extended {
		if len(b) < 4 {
			return 0, 0, 4
		}
		declared = int(binary.BigEndian.Uint16(b[2:4]))
		return declared + 6, declared, 4
	}
	if len(b) < 3 {
		return 0, 0, 3
	}
	declared = int(b[2])
	return declared + 5, declared, 3
}

// BuildFrame 构造标准帧，校验字段使用 CRC-16/X.25（覆盖 len..serial）
func BuildFrame(protocol byte, payload []byte, serial uint16) []byte {
	n := 1 + len(payload) + 2 + 2
	buf := make([]byte, 0, n+5)
	buf = append(buf, startStandard[:]...)
	buf = append(buf, byte(n), protocol)
	buf = append(buf, payload...)
	buf = binary.BigEndian.AppendUint16(buf, serial)
	buf = binary.BigEndian.AppendUint16(buf, CRC16(buf[2:]))
	return append(buf, stopMarker[:]...)
}

// BuildExtendedFrame 构造扩展帧（无序列号与校验）
func BuildExtendedFrame(protocol byte, payload []byte) []byte {
	n := 1 + len(payload)
	buf := make([]byte, 0, n+6)
	buf = append(buf, startExtended[:]...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(n))
	buf = append(buf, protocol)
	buf = append(buf, payload...)
	return append(buf, stopMarker[:]...)
}
