package models

import (
	"errors"
	"strings"

	"github.com/soundmarket/internal/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InitDefaultCommissionSettings 初始化默认佣金配置（已存在的键不覆盖）
func InitDefaultCommissionSettings(db *gorm.DB, defaults map[string]decimal.Decimal) error {
	if db == nil {
		return errors.New("db is nil")
	}
	for key, rate := range defaults {
		normalized := strings.TrimSpace(key)
		if normalized == "" {
			continue
		}
		var existing CommissionSetting
		err := db.Where("key = ?", normalized).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		setting := CommissionSetting{
			Key:       normalized,
			Rate:      NewMoneyFromDecimal(rate),
			IsActive:  true,
			UpdatedBy: "system",
		}
		if err := db.Create(&setting).Error; err != nil {
			return err
		}
		logger.Infow("commission_setting_seeded", "key", normalized, "rate", setting.Rate.String())
	}
	return nil
}
