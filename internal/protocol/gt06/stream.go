package gt06

import "errors"

// ErrBufferOverflow 连续收到过多无法成帧的字节，调用方应关闭连接
var ErrBufferOverflow = errors.New("gt06: too many bytes without a complete frame")

// DiscardReason 丢弃字节的原因（仅用于日志与指标）
type DiscardReason string

const (
	DiscardNoise     DiscardReason = "noise"      // 起始位之前的噪声或找不到起始位
	DiscardBadLength DiscardReason = "bad_length" // 长度字段非法或超出上限
	DiscardBadStop   DiscardReason = "bad_stop"   // 停止位不匹配
	DiscardChecksum  DiscardReason = "checksum"   // 校验失败（drop 策略）
)

// DefaultMaxUnframed 缓冲区允许保留的最大字节数（已丢弃的噪声不计入）
const DefaultMaxUnframed = 64 * 1024

// StreamDecoder 处理半包/粘包的流式切帧器，每个连接独占一个实例
type StreamDecoder struct {
	buf         []byte
	maxFrameLen int // 单帧上限，避免畸形长度导致无界缓冲
	maxUnframed int // 缓冲区字节上限
	onDiscard   func(reason DiscardReason, n int)
}

// NewStreamDecoder 创建流式切帧器，非正数参数取默认值
func NewStreamDecoder(maxFrameLen, maxUnframed int) *StreamDecoder {
	if maxFrameLen <= 0 {
		maxFrameLen = DefaultMaxFrameLen
	}
	if maxUnframed <= 0 {
		maxUnframed = DefaultMaxUnframed
	}
	return &StreamDecoder{maxFrameLen: maxFrameLen, maxUnframed: maxUnframed}
}

// SetDiscardHook 安装丢弃回调
func (d *StreamDecoder) SetDiscardHook(h func(reason DiscardReason, n int)) { d.onDiscard = h }

// Buffered 当前缓冲的字节数
func (d *StreamDecoder) Buffered() int { return len(d.buf) }

// Reset 清空缓冲
func (d *StreamDecoder) Reset() {
	d.buf = nil
}

// Feed 追加数据并尽可能切出完整帧；帧按完成顺序返回
func (d *StreamDecoder) Feed(p []byte) ([]Frame, error) {
	d.buf = append(d.buf, p...)
	var frames []Frame

	for len(d.buf) >= MinFrameLen {
		start, extended := indexStart(d.buf)
		if start < 0 {
			// 末尾单字节可能是跨读边界的起始位，保留
			keep := 0
			if last := d.buf[len(d.buf)-1]; last == startStandard[0] || last == startExtended[0] {
				keep = 1
			}
			d.discard(DiscardNoise, len(d.buf)-keep)
			d.buf = append(d.buf[:0], d.buf[len(d.buf)-keep:]...)
			break
		}
		if start > 0 {
			d.discard(DiscardNoise, start)
			d.buf = d.buf[start:]
		}

		total, declared, need := frameTotalLen(d.buf, extended)
		if len(d.buf) < need {
			break
		}
		if !validDeclared(declared, extended) || total > d.maxFrameLen {
			d.discard(DiscardBadLength, 1)
			d.buf = d.buf[1:]
			continue
		}
		if len(d.buf) < total {
			// 半包，等待更多数据
			break
		}
		if d.buf[total-2] != stopMarker[0] || d.buf[total-1] != stopMarker[1] {
			// 逐字节重新同步
			d.discard(DiscardBadStop, 1)
			d.buf = d.buf[1:]
			continue
		}

		raw := make([]byte, total)
		copy(raw, d.buf[:total])
		frames = append(frames, Frame{Raw: raw, Extended: extended})
		d.buf = d.buf[total:]
	}

	if len(d.buf) == 0 {
		d.buf = nil
	}
	// 切帧后仍保留的字节超限：半包声明的长度超过缓冲上限
	if len(d.buf) > d.maxUnframed {
		d.Reset()
		return frames, ErrBufferOverflow
	}
	return frames, nil
}

func (d *StreamDecoder) discard(reason DiscardReason, n int) {
	if n > 0 && d.onDiscard != nil {
		d.onDiscard(reason, n)
	}
}

func validDeclared(declared int, extended bool) bool {
	if extended {
		return declared >= minExtendedLen
	}
	return declared >= minStandardLen
}

// indexStart 查找下一个起始位（0x7878 或 0x7979）
func indexStart(b []byte) (int, bool) {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == startStandard[0] && b[i+1] == startStandard[1] {
			return i, false
		}
		if b[i] == startExtended[0] && b[i+1] == startExtended[1] {
			return i, true
		}
	}
	return -1, false
}
