package repository

import (
	"github.com/soundmarket/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository 站内通知数据访问接口
type NotificationRepository interface {
	Create(notification *models.Notification) error
	ListByUser(userID uint, page, pageSize int) ([]models.Notification, int64, error)
}

// GormNotificationRepository GORM 实现
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓库
func NewNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create 写入通知
func (r *GormNotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// ListByUser 分页查询用户通知
func (r *GormNotificationRepository) ListByUser(userID uint, page, pageSize int) ([]models.Notification, int64, error) {
	query := r.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Notification
	if err := applyPagination(query, page, pageSize).Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
