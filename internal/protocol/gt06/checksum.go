package gt06

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ChecksumPolicy 上行帧头校验值的处理策略
type ChecksumPolicy int

const (
	// ChecksumIgnore 不校验
	ChecksumIgnore ChecksumPolicy = iota
	// ChecksumWarn 校验失败仅记录，帧照常处理
	ChecksumWarn
	// ChecksumDrop 校验失败按成帧错误丢弃（不产生记录也不回复）
	ChecksumDrop
)

func (p ChecksumPolicy) String() string {
	switch p {
	case ChecksumIgnore:
		return "ignore"
	case ChecksumWarn:
		return "warn"
	case ChecksumDrop:
		return "drop"
	default:
		return fmt.Sprintf("ChecksumPolicy(%d)", int(p))
	}
}

// ParseChecksumPolicy 解析配置值，空串取 warn
func ParseChecksumPolicy(s string) (ChecksumPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore":
		return ChecksumIgnore, nil
	case "", "warn":
		return ChecksumWarn, nil
	case "drop":
		return ChecksumDrop, nil
	default:
		return ChecksumWarn, fmt.Errorf("unknown checksum policy %q", s)
	}
}

// VerifyChecksum 重新计算标准帧 len..serial 的 CRC-16/X.25 并与帧头校验值比较。
// 扩展帧没有校验字段，applicable 返回 false
func VerifyChecksum(f Frame) (ok bool, applicable bool) {
	if f.Extended || len(f.Raw) < 10 {
		return false, false
	}
	body := f.Raw[2 : len(f.Raw)-4]
	want := binary.BigEndian.Uint16(f.Raw[len(f.Raw)-4:])
	return CRC16(body) == want, true
}
