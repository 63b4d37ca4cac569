package admin

import (
	"strings"

	handlershared "github.com/soundmarket/internal/http/handlers/shared"
	"github.com/soundmarket/internal/http/response"
	"github.com/soundmarket/internal/repository"

	"github.com/gin-gonic/gin"
)

// SettlementRefundRequest 结算退款请求
type SettlementRefundRequest struct {
	Reason string `json:"reason"`
}

// GetSettlements 分页查询结算记录
func (h *Handler) GetSettlements(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	sellerID, ok := handlershared.ParseUintQuery(c, "seller_id")
	if !ok {
		return
	}
	buyerID, ok := handlershared.ParseUintQuery(c, "buyer_id")
	if !ok {
		return
	}
	itemID, ok := handlershared.ParseUintQuery(c, "item_id")
	if !ok {
		return
	}
	from, ok := parseTimeQuery(c, "from", false)
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to", true)
	if !ok {
		return
	}

	settlements, total, err := h.SettlementService.List(repository.SettlementListFilter{
		Page:        page,
		PageSize:    pageSize,
		SellerID:    sellerID,
		BuyerID:     buyerID,
		ItemType:    strings.TrimSpace(c.Query("item_type")),
		ItemID:      itemID,
		Status:      strings.TrimSpace(c.Query("status")),
		SettledFrom: from,
		SettledTo:   to,
		Search:      strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取结算列表失败", err)
		return
	}
	response.SuccessWithPage(c, settlements, handlershared.BuildPagination(page, pageSize, total))
}

// GetSettlement 按交易号获取结算详情
func (h *Handler) GetSettlement(c *gin.Context) {
	settlement, err := h.SettlementService.GetByTransactionID(strings.TrimSpace(c.Param("transaction_id")))
	if err != nil {
		respondServiceError(c, err, "获取结算详情失败")
		return
	}
	response.Success(c, settlement)
}

// RefundSettlement 标记结算为已退款
func (h *Handler) RefundSettlement(c *gin.Context) {
	operator, ok := getAdminSubject(c)
	if !ok {
		return
	}
	var req SettlementRefundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "请求参数错误", err)
			return
		}
	}
	transactionID := strings.TrimSpace(c.Param("transaction_id"))
	settlement, err := h.SettlementService.Refund(transactionID, req.Reason)
	if err != nil {
		respondServiceError(c, err, "结算退款失败")
		return
	}
	requestLog(c).Infow("admin_settlement_refunded",
		"transaction_id", transactionID,
		"operator", operator,
	)
	response.SuccessWithMsg(c, "退款已登记", settlement)
}

// GetSellerRevenue 汇总卖家的有效结算收入
func (h *Handler) GetSellerRevenue(c *gin.Context) {
	sellerID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	aggregate, err := h.SettlementService.SellerRevenue(sellerID)
	if err != nil {
		respondServiceError(c, err, "获取卖家收入失败")
		return
	}
	response.Success(c, gin.H{
		"seller_id": sellerID,
		"revenue":   aggregate,
	})
}

// GetCommissionSummary 汇总时间区间内的平台佣金
func (h *Handler) GetCommissionSummary(c *gin.Context) {
	from, ok := parseTimeQuery(c, "from", false)
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to", true)
	if !ok {
		return
	}
	summary, err := h.SettlementService.CommissionSummary(from, to)
	if err != nil {
		respondServiceError(c, err, "获取佣金汇总失败")
		return
	}
	response.Success(c, summary)
}
