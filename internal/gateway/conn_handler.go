package gateway

import (
	"github.com/taoyao-code/gt06-gateway/internal/tcpserver"
)

// NewConnHandler 构建 TCP 连接处理器：每个连接创建独立会话，
// 读回调驱动切帧与解码，连接结束时关闭会话
func NewConnHandler(deps Deps) func(*tcpserver.ConnContext) {
	return func(cc *tcpserver.ConnContext) {
		s := NewSession(cc, deps)
		cc.SetOnRead(s.HandleBytes)
		cc.SetOnClose(s.Close)
	}
}
