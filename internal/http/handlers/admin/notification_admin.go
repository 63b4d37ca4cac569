package admin

import (
	handlershared "github.com/soundmarket/internal/http/handlers/shared"
	"github.com/soundmarket/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetUserNotifications 分页查询用户收到的站内通知
func (h *Handler) GetUserNotifications(c *gin.Context) {
	userID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := handlershared.QueryPagination(c)
	rows, total, err := h.NotificationRepo.ListByUser(userID, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "获取通知列表失败", err)
		return
	}
	response.SuccessWithPage(c, rows, handlershared.BuildPagination(page, pageSize, total))
}
