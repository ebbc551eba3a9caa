package adapter

import "github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"

// Adapter 连接级协议适配器：网关会话只依赖此接口
// 要求：
// - Sniff 用于首包初判
// - ProcessBytes 处理来自连接的原始字节流（内部负责半包/粘包），每解出一条记录回调一次
// - Buffered 返回尚未成帧的缓冲字节数
type Adapter interface {
	Sniff(prefix []byte) bool
	ProcessBytes(p []byte, handle func(*gt06.Record) error) error
	Buffered() int
}

var _ Adapter = (*gt06.Adapter)(nil)
