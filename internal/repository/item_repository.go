package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/models"

	"gorm.io/gorm"
)

// ItemRepository 作品数据访问接口
type ItemRepository interface {
	GetByID(id uint) (*models.Item, error)
	ListPublishedIDsAfter(afterID uint, limit int) ([]uint, error)
	UpdateStatus(id uint, status, reason string, reviewedAt time.Time) (bool, error)
	IncrementCounter(id uint, column string) (int64, error)
}

// GormItemRepository GORM 实现
type GormItemRepository struct {
	db *gorm.DB
}

// NewItemRepository 创建作品仓库
func NewItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// GetByID 按ID获取作品（含所有者）
func (r *GormItemRepository) GetByID(id uint) (*models.Item, error) {
	if id == 0 {
		return nil, nil
	}
	var item models.Item
	if err := r.db.Preload("Owner").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListPublishedIDsAfter 以游标方式分批列出已发布作品ID
func (r *GormItemRepository) ListPublishedIDsAfter(afterID uint, limit int) ([]uint, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uint
	if err := r.db.Model(&models.Item{}).
		Where("status = ? AND id > ?", constants.ItemStatusPublished, afterID).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateStatus 更新作品审核状态，返回状态是否由本次调用改变
// 状态已是目标值时只刷新审核备注与时间。
func (r *GormItemRepository) UpdateStatus(id uint, status, reason string, reviewedAt time.Time) (bool, error) {
	if id == 0 {
		return false, nil
	}
	normalized := strings.TrimSpace(status)
	result := r.db.Model(&models.Item{}).
		Where("id = ? AND status <> ?", id, normalized).
		Updates(map[string]interface{}{
			"status":        normalized,
			"review_reason": strings.TrimSpace(reason),
			"reviewed_at":   reviewedAt,
			"updated_at":    reviewedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	err := r.db.Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"review_reason": strings.TrimSpace(reason),
			"reviewed_at":   reviewedAt,
			"updated_at":    reviewedAt,
		}).Error
	return false, err
}

// IncrementCounter 原子递增计数器列，返回受影响行数
func (r *GormItemRepository) IncrementCounter(id uint, column string) (int64, error) {
	switch column {
	case "download_count", "play_count":
	default:
		return 0, errors.New("unsupported counter column: " + column)
	}
	result := r.db.Model(&models.Item{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
