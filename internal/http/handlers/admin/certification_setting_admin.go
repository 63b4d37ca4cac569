package admin

import (
	"github.com/soundmarket/internal/http/response"
	"github.com/soundmarket/internal/service"

	"github.com/gin-gonic/gin"
)

// CertificationSettingResponse 认证等级配置响应
type CertificationSettingResponse struct {
	Tiers         []service.TierThreshold `json:"tiers"`
	MetricSources map[string]string       `json:"metric_sources"`
}

func newCertificationSettingResponse(setting service.CertificationSetting) CertificationSettingResponse {
	return CertificationSettingResponse{
		Tiers:         setting.OrderedTiers(),
		MetricSources: setting.MetricSources,
	}
}

// GetCertificationSettings 获取当前生效的认证等级配置
func (h *Handler) GetCertificationSettings(c *gin.Context) {
	setting, err := h.CertificationEngine.Setting()
	if err != nil {
		respondError(c, response.CodeInternal, "获取认证配置失败", err)
		return
	}
	response.Success(c, newCertificationSettingResponse(setting))
}

// UpdateCertificationSettings 覆盖认证等级门槛与指标来源
func (h *Handler) UpdateCertificationSettings(c *gin.Context) {
	var req service.CertificationSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	setting, err := h.SettingService.UpdateCertificationSetting(req, h.CertificationEngine.Defaults())
	if err != nil {
		respondServiceError(c, err, "保存认证配置失败")
		return
	}
	response.Success(c, newCertificationSettingResponse(setting))
}
