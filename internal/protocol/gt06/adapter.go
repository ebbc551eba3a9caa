package gt06

// Hooks 适配器事件回调，均可为 nil
type Hooks struct {
	// OnDiscard 成帧阶段丢弃字节
	OnDiscard func(reason DiscardReason, n int)
	// OnChecksum 标准帧校验结果（策略为 ignore 时不回调）
	OnChecksum func(f Frame, ok bool)
}

// Options 适配器参数
type Options struct {
	MaxFrameLen    int
	MaxUnframed    int
	ChecksumPolicy ChecksumPolicy
	Table          *Table
	Hooks          Hooks
}

// Adapter GT06 协议适配器：流式切帧 + 校验策略 + 解码。每个连接独占一个实例
type Adapter struct {
	stream  *StreamDecoder
	decoder *Decoder
	policy  ChecksumPolicy
	hooks   Hooks
}

// NewAdapter 创建适配器
func NewAdapter(opts Options) *Adapter {
	s := NewStreamDecoder(opts.MaxFrameLen, opts.MaxUnframed)
	s.SetDiscardHook(opts.Hooks.OnDiscard)
	return &Adapter{
		stream:  s,
		decoder: NewDecoder(opts.Table),
		policy:  opts.ChecksumPolicy,
		hooks:   opts.Hooks,
	}
}

// Sniff 判断前缀是否为 GT06 起始位
func (a *Adapter) Sniff(prefix []byte) bool {
	if len(prefix) < 2 {
		return false
	}
	return (prefix[0] == startStandard[0] && prefix[1] == startStandard[1]) ||
		(prefix[0] == startExtended[0] && prefix[1] == startExtended[1])
}

// Buffered 尚未成帧的缓冲字节数
func (a *Adapter) Buffered() int { return a.stream.Buffered() }

// ProcessBytes 处理上行字节流，按成帧顺序逐条回调 handle。
// handle 返回错误时立即停止并返回该错误，同批剩余帧不再处理
func (a *Adapter) ProcessBytes(p []byte, handle func(*Record) error) error {
	frames, ferr := a.stream.Feed(p)
	for _, f := range frames {
		if !a.accept(f) {
			continue
		}
		if err := handle(a.decoder.Decode(f)); err != nil {
			return err
		}
	}
	return ferr
}

func (a *Adapter) accept(f Frame) bool {
	if a.policy == ChecksumIgnore {
		return true
	}
	ok, applicable := VerifyChecksum(f)
	if !applicable {
		return true
	}
	if a.hooks.OnChecksum != nil {
		a.hooks.OnChecksum(f, ok)
	}
	if !ok && a.policy == ChecksumDrop {
		if a.hooks.OnDiscard != nil {
			a.hooks.OnDiscard(DiscardChecksum, len(f.Raw))
		}
		return false
	}
	return true
}
