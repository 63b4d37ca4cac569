package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soundmarket/internal/cache"
	"github.com/soundmarket/internal/config"
	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/repository"

	"github.com/shopspring/decimal"
)

const commissionRateCachePrefix = "commission:rate:"

var (
	commissionRateMin = decimal.Zero
	commissionRateMax = decimal.NewFromInt(100)
)

// CommissionPolicy 平台佣金比例策略
type CommissionPolicy struct {
	repo      repository.CommissionSettingRepository
	defaults  map[string]decimal.Decimal
	cacheTTL  time.Duration
	rateCache cache.VersionedStore
}

// commissionRateCacheEntry 缓存中的比例快照（inactive 也缓存，避免穿透）
type commissionRateCacheEntry struct {
	Rate   string `json:"rate"`
	Active bool   `json:"active"`
	Found  bool   `json:"found"`
}

// NewCommissionPolicy 创建佣金策略
func NewCommissionPolicy(repo repository.CommissionSettingRepository, cfg config.CommissionConfig) *CommissionPolicy {
	ttl := time.Duration(cfg.RateCacheSeconds) * time.Second
	return &CommissionPolicy{
		repo: repo,
		defaults: map[string]decimal.Decimal{
			constants.CommissionKeySound: decimal.NewFromFloat(cfg.DefaultSoundRate).Round(models.MoneyScale),
			constants.CommissionKeyEvent: decimal.NewFromFloat(cfg.DefaultEventRate).Round(models.MoneyScale),
		},
		cacheTTL:  ttl,
		rateCache: cache.NewVersionedStore(),
	}
}

// CommissionKeyForItemType 返回作品类型对应的佣金配置键
func CommissionKeyForItemType(itemType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(itemType)) {
	case constants.ItemTypeSound:
		return constants.CommissionKeySound, nil
	case constants.ItemTypeEvent:
		return constants.CommissionKeyEvent, nil
	default:
		return "", ErrItemTypeInvalid
	}
}

// DefaultRate 返回配置键的启动默认比例
func (p *CommissionPolicy) DefaultRate(key string) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	if rate, ok := p.defaults[key]; ok {
		return rate
	}
	return decimal.Zero
}

// ResolveRate 解析当前佣金比例，配置缺失、停用或读取失败时返回 fallback
func (p *CommissionPolicy) ResolveRate(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal {
	normalized := strings.TrimSpace(key)
	if p == nil || p.repo == nil || normalized == "" {
		return fallback
	}

	cacheKey := commissionRateCachePrefix + normalized
	useCache := p.cacheTTL > 0 && p.rateCache != nil
	var entry commissionRateCacheEntry
	hit := false
	if useCache {
		var err error
		hit, err = p.rateCache.GetJSON(ctx, cacheKey, &entry)
		if err != nil {
			logger.Warnw("commission_rate_cache_read_failed", "key", normalized, "error", err)
			hit = false
		}
	}
	if !hit {
		// 回源前记录版本，期间有写入时不回填旧值
		var version int64
		versionOK := false
		if useCache {
			v, err := p.rateCache.Version(ctx, cacheKey)
			if err != nil {
				logger.Warnw("commission_rate_cache_version_failed", "key", normalized, "error", err)
			} else {
				version, versionOK = v, true
			}
		}
		setting, err := p.repo.GetByKey(normalized)
		if err != nil {
			logger.Warnw("commission_rate_load_failed", "key", normalized, "error", err)
			return fallback
		}
		entry = commissionRateCacheEntry{}
		if setting != nil {
			entry = commissionRateCacheEntry{
				Rate:   setting.Rate.Decimal.StringFixed(models.MoneyScale),
				Active: setting.IsActive,
				Found:  true,
			}
		}
		if versionOK {
			stored, err := p.rateCache.SetJSONIfVersion(ctx, cacheKey, version, entry, p.cacheTTL)
			if err != nil {
				logger.Warnw("commission_rate_cache_write_failed", "key", normalized, "error", err)
			} else if !stored {
				logger.Debugw("commission_rate_cache_fill_skipped", "key", normalized, "version", version)
			}
		}
	}

	if !entry.Found || !entry.Active {
		return fallback
	}
	rate, err := decimal.NewFromString(entry.Rate)
	if err != nil || !isValidCommissionRate(rate) {
		logger.Warnw("commission_rate_invalid_fallback", "key", normalized, "rate", entry.Rate)
		return fallback
	}
	return rate.Round(models.MoneyScale)
}

// RateForItemType 解析作品类型当前适用的佣金比例（回退到启动默认值）
func (p *CommissionPolicy) RateForItemType(ctx context.Context, itemType string) (decimal.Decimal, error) {
	key, err := CommissionKeyForItemType(itemType)
	if err != nil {
		return decimal.Zero, err
	}
	return p.ResolveRate(ctx, key, p.DefaultRate(key)), nil
}

// SetRate 更新佣金比例，只影响之后的结算
func (p *CommissionPolicy) SetRate(ctx context.Context, key string, rate decimal.Decimal, active bool, updatedBy string) (*models.CommissionSetting, error) {
	normalized := strings.TrimSpace(key)
	if normalized != constants.CommissionKeySound && normalized != constants.CommissionKeyEvent {
		return nil, fmt.Errorf("%w: %s", ErrCommissionKeyInvalid, normalized)
	}
	if !isValidCommissionRate(rate) {
		return nil, ErrCommissionRateInvalid
	}
	setting := &models.CommissionSetting{
		Key:       normalized,
		Rate:      models.NewMoneyFromDecimal(rate),
		IsActive:  active,
		UpdatedBy: strings.TrimSpace(updatedBy),
		UpdatedAt: time.Now(),
	}
	if err := p.repo.Upsert(setting); err != nil {
		return nil, err
	}
	if p.rateCache != nil {
		if err := p.rateCache.Invalidate(ctx, commissionRateCachePrefix+normalized); err != nil {
			logger.Warnw("commission_rate_cache_invalidate_failed", "key", normalized, "error", err)
		}
	}
	logger.Infow("commission_rate_updated",
		"key", normalized,
		"rate", setting.Rate.String(),
		"is_active", active,
		"updated_by", setting.UpdatedBy,
	)
	return p.repo.GetByKey(normalized)
}

// CommissionRateView 佣金配置展示（含生效比例）
type CommissionRateView struct {
	Key           string        `json:"key"`
	Rate          *models.Money `json:"rate,omitempty"`
	IsActive      bool          `json:"is_active"`
	DefaultRate   models.Money  `json:"default_rate"`
	EffectiveRate models.Money  `json:"effective_rate"`
	UpdatedBy     string        `json:"updated_by,omitempty"`
	UpdatedAt     *time.Time    `json:"updated_at,omitempty"`
}

// List 列出所有已知类别的佣金配置与生效比例
func (p *CommissionPolicy) List(ctx context.Context) ([]CommissionRateView, error) {
	rows, err := p.repo.List()
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]models.CommissionSetting, len(rows))
	for _, row := range rows {
		byKey[row.Key] = row
	}
	keys := []string{constants.CommissionKeySound, constants.CommissionKeyEvent}
	result := make([]CommissionRateView, 0, len(keys))
	for _, key := range keys {
		fallback := p.DefaultRate(key)
		view := CommissionRateView{
			Key:           key,
			DefaultRate:   models.NewMoneyFromDecimal(fallback),
			EffectiveRate: models.NewMoneyFromDecimal(p.ResolveRate(ctx, key, fallback)),
		}
		if row, ok := byKey[key]; ok {
			rate := row.Rate
			updatedAt := row.UpdatedAt
			view.Rate = &rate
			view.IsActive = row.IsActive
			view.UpdatedBy = row.UpdatedBy
			view.UpdatedAt = &updatedAt
		}
		result = append(result, view)
	}
	return result, nil
}

func isValidCommissionRate(rate decimal.Decimal) bool {
	return !rate.LessThan(commissionRateMin) && !rate.GreaterThan(commissionRateMax)
}
