package public

import (
	handlershared "github.com/soundmarket/internal/http/handlers/shared"
	"github.com/soundmarket/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RecordItemDownload 上报一次作品下载
func (h *Handler) RecordItemDownload(c *gin.Context) {
	itemID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.ItemService.RecordDownload(c.Request.Context(), itemID); err != nil {
		respondServiceError(c, err, "记录下载失败")
		return
	}
	response.Success(c, gin.H{"item_id": itemID})
}

// RecordItemPlay 上报一次作品播放
func (h *Handler) RecordItemPlay(c *gin.Context) {
	itemID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.ItemService.RecordPlay(c.Request.Context(), itemID); err != nil {
		respondServiceError(c, err, "记录播放失败")
		return
	}
	response.Success(c, gin.H{"item_id": itemID})
}
