package repository

import (
	"errors"
	"strings"

	"github.com/soundmarket/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionSettingRepository 佣金配置数据访问接口
type CommissionSettingRepository interface {
	GetByKey(key string) (*models.CommissionSetting, error)
	List() ([]models.CommissionSetting, error)
	Upsert(setting *models.CommissionSetting) error
}

// GormCommissionSettingRepository GORM 实现
type GormCommissionSettingRepository struct {
	db *gorm.DB
}

// NewCommissionSettingRepository 创建佣金配置仓库
func NewCommissionSettingRepository(db *gorm.DB) *GormCommissionSettingRepository {
	return &GormCommissionSettingRepository{db: db}
}

// GetByKey 获取佣金配置
func (r *GormCommissionSettingRepository) GetByKey(key string) (*models.CommissionSetting, error) {
	normalized := strings.TrimSpace(key)
	if normalized == "" {
		return nil, nil
	}
	var setting models.CommissionSetting
	if err := r.db.Where("key = ?", normalized).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// List 列出全部佣金配置
func (r *GormCommissionSettingRepository) List() ([]models.CommissionSetting, error) {
	var rows []models.CommissionSetting
	if err := r.db.Order("key asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert 按 key 更新或创建佣金配置
func (r *GormCommissionSettingRepository) Upsert(setting *models.CommissionSetting) error {
	if setting == nil {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "is_active", "updated_by", "updated_at"}),
	}).Create(setting).Error
}
