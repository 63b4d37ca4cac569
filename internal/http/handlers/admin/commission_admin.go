package admin

import (
	"strings"

	"github.com/soundmarket/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CommissionSettingUpdateRequest 佣金比例更新请求
type CommissionSettingUpdateRequest struct {
	Rate     *decimal.Decimal `json:"rate"`
	IsActive *bool            `json:"is_active"`
}

// GetCommissionSettings 获取佣金配置（含默认值与生效值）
func (h *Handler) GetCommissionSettings(c *gin.Context) {
	views, err := h.CommissionPolicy.List(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "获取佣金配置失败", err)
		return
	}
	response.Success(c, views)
}

// UpdateCommissionSetting 更新指定键的佣金比例
func (h *Handler) UpdateCommissionSetting(c *gin.Context) {
	operator, ok := getAdminSubject(c)
	if !ok {
		return
	}
	var req CommissionSettingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	if req.Rate == nil {
		respondError(c, response.CodeBadRequest, "佣金比例不能为空", nil)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	key := strings.TrimSpace(c.Param("key"))
	setting, err := h.CommissionPolicy.SetRate(c.Request.Context(), key, *req.Rate, active, operator)
	if err != nil {
		respondServiceError(c, err, "保存佣金配置失败")
		return
	}
	requestLog(c).Infow("admin_commission_setting_updated",
		"key", setting.Key,
		"rate", setting.Rate.String(),
		"is_active", setting.IsActive,
		"operator", operator,
	)
	response.Success(c, setting)
}
