package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/soundmarket/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CertificationRepository 认证证书数据访问接口
type CertificationRepository interface {
	ListByItem(itemID uint) ([]models.Certification, error)
	CreateIfAbsent(cert *models.Certification) (bool, error)
	UpdateMetric(id uint, metricValue, threshold int64, metricSource string, updatedAt time.Time) error
	SetActive(id uint, active bool, updatedAt time.Time) (int64, error)
	GetByID(id uint) (*models.Certification, error)
	GetByNumber(number string) (*models.Certification, error)
	List(filter CertificationListFilter) ([]models.Certification, int64, error)
}

// GormCertificationRepository GORM 实现
type GormCertificationRepository struct {
	db *gorm.DB
}

// NewCertificationRepository 创建认证仓库
func NewCertificationRepository(db *gorm.DB) *GormCertificationRepository {
	return &GormCertificationRepository{db: db}
}

// ListByItem 查询作品全部认证（含已停用），按等级升序
func (r *GormCertificationRepository) ListByItem(itemID uint) ([]models.Certification, error) {
	if itemID == 0 {
		return []models.Certification{}, nil
	}
	var rows []models.Certification
	if err := r.db.Where("item_id = ?", itemID).Order("tier_rank asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateIfAbsent 按 (item_id, tier) 插入认证，已存在时不做修改并返回 false
func (r *GormCertificationRepository) CreateIfAbsent(cert *models.Certification) (bool, error) {
	if cert == nil {
		return false, nil
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "tier"}},
		DoNothing: true,
	}).Create(cert)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateMetric 刷新认证的指标值与门槛（不修改达成时间与证书编号）
func (r *GormCertificationRepository) UpdateMetric(id uint, metricValue, threshold int64, metricSource string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Certification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"metric_value":      metricValue,
			"threshold_reached": threshold,
			"metric_source":     metricSource,
			"updated_at":        updatedAt,
		}).Error
}

// SetActive 切换认证有效状态
func (r *GormCertificationRepository) SetActive(id uint, active bool, updatedAt time.Time) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Certification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// GetByID 按ID获取认证
func (r *GormCertificationRepository) GetByID(id uint) (*models.Certification, error) {
	if id == 0 {
		return nil, nil
	}
	var cert models.Certification
	if err := r.db.First(&cert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cert, nil
}

// GetByNumber 按证书编号获取认证
func (r *GormCertificationRepository) GetByNumber(number string) (*models.Certification, error) {
	normalized := strings.ToUpper(strings.TrimSpace(number))
	if normalized == "" {
		return nil, nil
	}
	var cert models.Certification
	if err := r.db.Preload("Item").Where("certificate_number = ?", normalized).First(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cert, nil
}

// List 查询认证列表
func (r *GormCertificationRepository) List(filter CertificationListFilter) ([]models.Certification, int64, error) {
	query := r.db.Model(&models.Certification{}).Preload("Item")
	if filter.ItemID != 0 {
		query = query.Where("item_id = ?", filter.ItemID)
	}
	if filter.OwnerID != 0 {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if tier := strings.TrimSpace(filter.Tier); tier != "" {
		query = query.Where("tier = ?", tier)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		titleCondition, titleArgs := buildLikeCondition(r.db, []string{"title"})
		itemIDs := r.db.Model(&models.Item{}).Select("id").Where(titleCondition, repeatLikeArgs(like, titleArgs)...)
		numberCondition, numberArgs := buildLikeCondition(r.db, []string{"certificate_number"})
		query = query.Where("("+numberCondition+") OR item_id IN (?)", append(repeatLikeArgs(like, numberArgs), itemIDs)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Certification
	if err := query.Order("achieved_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
