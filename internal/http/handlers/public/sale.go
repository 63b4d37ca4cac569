package public

import (
	"strings"
	"time"

	"github.com/soundmarket/internal/http/response"
	"github.com/soundmarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SaleRequest 销售结算回调请求（支付已在上游完成）
type SaleRequest struct {
	TransactionID string          `json:"transaction_id"`
	BuyerID       uint            `json:"buyer_id" binding:"required"`
	SellerID      uint            `json:"seller_id"`
	ItemType      string          `json:"item_type" binding:"required"`
	ItemID        uint            `json:"item_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	SettledAt     *time.Time      `json:"settled_at"`
}

// CreateSale 记录一笔销售并完成佣金结算
func (h *Handler) CreateSale(c *gin.Context) {
	var req SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	settlement, err := h.SettlementService.Settle(c.Request.Context(), service.SettleInput{
		TransactionID: strings.TrimSpace(req.TransactionID),
		BuyerID:       req.BuyerID,
		SellerID:      req.SellerID,
		ItemType:      req.ItemType,
		ItemID:        req.ItemID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		SettledAt:     req.SettledAt,
	})
	if err != nil {
		respondServiceError(c, err, "销售结算失败")
		return
	}
	response.Success(c, settlement)
}
