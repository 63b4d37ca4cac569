package public

import "github.com/soundmarket/internal/provider"

// Handler 集成与公开接口处理器入口
// 说明：销售回调与计数上报由上游系统调用，证书验证对外公开。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
