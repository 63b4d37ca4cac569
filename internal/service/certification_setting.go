package service

import (
	"fmt"
	"strings"

	"github.com/soundmarket/internal/config"
	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/models"
)

// CertificationSetting 认证等级与指标来源配置
type CertificationSetting struct {
	Tiers         map[string]int64  `json:"tiers"`
	MetricSources map[string]string `json:"metric_sources"`
}

// TierThreshold 单个认证等级门槛
type TierThreshold struct {
	Tier      string `json:"tier"`
	Rank      int    `json:"rank"`
	Threshold int64  `json:"threshold"`
}

// CertificationSettingFromConfig 从启动配置构建默认认证配置
func CertificationSettingFromConfig(cfg config.CertificationConfig) CertificationSetting {
	setting := CertificationSetting{
		Tiers:         make(map[string]int64, len(cfg.Tiers)),
		MetricSources: make(map[string]string, len(cfg.MetricSources)),
	}
	for tier, threshold := range cfg.Tiers {
		setting.Tiers[strings.ToLower(strings.TrimSpace(tier))] = threshold
	}
	for key, source := range cfg.MetricSources {
		setting.MetricSources[strings.ToLower(strings.TrimSpace(key))] = strings.ToLower(strings.TrimSpace(source))
	}
	return setting
}

// MetricSourceKey 生成 (作品类型, 计价类型) 的指标来源键
func MetricSourceKey(itemType, pricingClass string) string {
	return strings.ToLower(strings.TrimSpace(itemType)) + ":" + strings.ToLower(strings.TrimSpace(pricingClass))
}

// OrderedTiers 按固定等级顺序返回门槛表
func (s CertificationSetting) OrderedTiers() []TierThreshold {
	result := make([]TierThreshold, 0, len(constants.CertificationTiers))
	for idx, tier := range constants.CertificationTiers {
		threshold, ok := s.Tiers[tier]
		if !ok {
			continue
		}
		result = append(result, TierThreshold{Tier: tier, Rank: idx + 1, Threshold: threshold})
	}
	return result
}

// ValidateCertificationSetting 校验认证配置：等级门槛为正且严格递增，指标来源合法
func ValidateCertificationSetting(setting CertificationSetting) error {
	if len(setting.Tiers) == 0 {
		return fmt.Errorf("%w: 至少需要一个认证等级", ErrCertificationConfigInvalid)
	}
	for tier := range setting.Tiers {
		if tierRank(tier) == 0 {
			return fmt.Errorf("%w: 未知认证等级 %s", ErrCertificationConfigInvalid, tier)
		}
	}
	var previous int64
	for _, item := range setting.OrderedTiers() {
		if item.Threshold <= 0 {
			return fmt.Errorf("%w: %s 门槛必须大于 0", ErrCertificationConfigInvalid, item.Tier)
		}
		if item.Threshold <= previous {
			return fmt.Errorf("%w: %s 门槛必须高于上一等级", ErrCertificationConfigInvalid, item.Tier)
		}
		previous = item.Threshold
	}
	for key, source := range setting.MetricSources {
		parts := strings.Split(key, ":")
		if len(parts) != 2 || !isValidItemType(parts[0]) || !isValidPricingClass(parts[1]) {
			return fmt.Errorf("%w: 指标来源键 %s 无效", ErrCertificationConfigInvalid, key)
		}
		if !isKnownMetricSource(source) {
			return fmt.Errorf("%w: 指标来源 %s 无效", ErrCertificationConfigInvalid, source)
		}
	}
	return nil
}

// CertificationSettingToMap 转换为 settings 存储结构
func CertificationSettingToMap(setting CertificationSetting) map[string]interface{} {
	tiers := make(map[string]interface{}, len(setting.Tiers))
	for tier, threshold := range setting.Tiers {
		tiers[tier] = threshold
	}
	sources := make(map[string]interface{}, len(setting.MetricSources))
	for key, source := range setting.MetricSources {
		sources[key] = source
	}
	return map[string]interface{}{
		"tiers":          tiers,
		"metric_sources": sources,
	}
}

// certificationSettingFromJSON 以 fallback 为基础合并 settings 中的覆盖项
// 门槛 <= 0 表示停用该等级。
func certificationSettingFromJSON(raw models.JSON, fallback CertificationSetting) CertificationSetting {
	result := cloneCertificationSetting(fallback)
	if tiersRaw, ok := raw["tiers"].(map[string]interface{}); ok {
		for tier, value := range tiersRaw {
			threshold, err := parseSettingInt64(value)
			if err != nil {
				continue
			}
			normalized := strings.ToLower(strings.TrimSpace(tier))
			if threshold <= 0 {
				delete(result.Tiers, normalized)
				continue
			}
			result.Tiers[normalized] = threshold
		}
	}
	if sourcesRaw, ok := raw["metric_sources"].(map[string]interface{}); ok {
		for key, value := range sourcesRaw {
			source := strings.ToLower(parseSettingString(value))
			if source == "" {
				continue
			}
			result.MetricSources[strings.ToLower(strings.TrimSpace(key))] = source
		}
	}
	return result
}

func cloneCertificationSetting(setting CertificationSetting) CertificationSetting {
	result := CertificationSetting{
		Tiers:         make(map[string]int64, len(setting.Tiers)),
		MetricSources: make(map[string]string, len(setting.MetricSources)),
	}
	for k, v := range setting.Tiers {
		result.Tiers[k] = v
	}
	for k, v := range setting.MetricSources {
		result.MetricSources[k] = v
	}
	return result
}

// GetCertificationSetting 获取认证配置（settings 覆盖启动配置，非法时回退）
func (s *SettingService) GetCertificationSetting(fallback CertificationSetting) (CertificationSetting, error) {
	if s == nil {
		return fallback, nil
	}
	value, err := s.GetByKey(constants.SettingKeyCertificationConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	merged := certificationSettingFromJSON(value, fallback)
	if err := ValidateCertificationSetting(merged); err != nil {
		logger.Warnw("certification_setting_invalid_fallback", "error", err)
		return fallback, nil
	}
	return merged, nil
}

// UpdateCertificationSetting 更新认证配置
// 请求中的等级与指标来源覆盖到 fallback 之上，未出现的项沿用 fallback。
// 某等级门槛传 0 表示停用该等级，停用记录会随配置保存，已签发的该等级证书不受影响。
func (s *SettingService) UpdateCertificationSetting(setting CertificationSetting, fallback CertificationSetting) (CertificationSetting, error) {
	for tier := range setting.Tiers {
		if tierRank(strings.ToLower(strings.TrimSpace(tier))) == 0 {
			return fallback, fmt.Errorf("%w: 未知认证等级 %s", ErrCertificationConfigInvalid, tier)
		}
	}
	merged := certificationSettingFromJSON(models.JSON(CertificationSettingToMap(setting)), fallback)
	if err := ValidateCertificationSetting(merged); err != nil {
		return fallback, err
	}
	stored := CertificationSettingToMap(merged)
	storedTiers := stored["tiers"].(map[string]interface{})
	for tier, threshold := range setting.Tiers {
		if threshold <= 0 {
			storedTiers[strings.ToLower(strings.TrimSpace(tier))] = int64(0)
		}
	}
	if _, err := s.Update(constants.SettingKeyCertificationConfig, stored); err != nil {
		return fallback, err
	}
	return merged, nil
}

func tierRank(tier string) int {
	for idx, item := range constants.CertificationTiers {
		if item == tier {
			return idx + 1
		}
	}
	return 0
}

func isValidItemType(itemType string) bool {
	return itemType == constants.ItemTypeSound || itemType == constants.ItemTypeEvent
}

func isValidPricingClass(pricingClass string) bool {
	return pricingClass == constants.PricingClassFree || pricingClass == constants.PricingClassPaid
}

func isKnownMetricSource(source string) bool {
	switch source {
	case constants.MetricSourceDownloads, constants.MetricSourcePlays, constants.MetricSourceSales:
		return true
	default:
		return false
	}
}
