package admin

import (
	handlershared "github.com/soundmarket/internal/http/handlers/shared"
	"github.com/soundmarket/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ItemStatusUpdateRequest 作品审核状态更新请求
type ItemStatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// UpdateItemStatus 审核作品（通过/驳回/下架）
func (h *Handler) UpdateItemStatus(c *gin.Context) {
	operator, ok := getAdminSubject(c)
	if !ok {
		return
	}
	itemID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req ItemStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	item, err := h.ItemService.UpdateStatus(c.Request.Context(), itemID, req.Status, req.Reason)
	if err != nil {
		respondServiceError(c, err, "更新作品状态失败")
		return
	}
	requestLog(c).Infow("admin_item_status_updated",
		"item_id", itemID,
		"status", item.Status,
		"operator", operator,
	)
	response.Success(c, item)
}
