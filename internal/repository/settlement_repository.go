package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementRepository 结算记录数据访问接口
type SettlementRepository interface {
	Create(settlement *models.Settlement) error
	GetByTransactionID(transactionID string) (*models.Settlement, error)
	MarkRefunded(transactionID, reason string, refundedAt time.Time) (int64, error)
	List(filter SettlementListFilter) ([]models.Settlement, int64, error)
	CountCompletedByItem(itemType string, itemID uint) (int64, error)
	SumBySeller(sellerID uint) (SettlementAggregate, error)
	SumByItemType(from, to *time.Time) ([]SettlementTypeAggregate, error)
}

// GormSettlementRepository GORM 实现
type GormSettlementRepository struct {
	db *gorm.DB
}

// NewSettlementRepository 创建结算仓库
func NewSettlementRepository(db *gorm.DB) *GormSettlementRepository {
	return &GormSettlementRepository{db: db}
}

// Create 写入结算记录（交易号冲突由唯一索引保证）
func (r *GormSettlementRepository) Create(settlement *models.Settlement) error {
	return r.db.Create(settlement).Error
}

// GetByTransactionID 按交易号获取结算记录
func (r *GormSettlementRepository) GetByTransactionID(transactionID string) (*models.Settlement, error) {
	txID := strings.TrimSpace(transactionID)
	if txID == "" {
		return nil, nil
	}
	var settlement models.Settlement
	if err := r.db.Where("transaction_id = ?", txID).First(&settlement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settlement, nil
}

// MarkRefunded 将已完成的结算标记为退款，仅修改状态字段
func (r *GormSettlementRepository) MarkRefunded(transactionID, reason string, refundedAt time.Time) (int64, error) {
	result := r.db.Model(&models.Settlement{}).
		Where("transaction_id = ? AND status = ?", strings.TrimSpace(transactionID), constants.SettlementStatusCompleted).
		Updates(map[string]interface{}{
			"status":        constants.SettlementStatusRefunded,
			"refunded_at":   refundedAt,
			"refund_reason": strings.TrimSpace(reason),
			"updated_at":    refundedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// List 查询结算列表
func (r *GormSettlementRepository) List(filter SettlementListFilter) ([]models.Settlement, int64, error) {
	query := r.db.Model(&models.Settlement{})
	if filter.SellerID != 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.BuyerID != 0 {
		query = query.Where("buyer_id = ?", filter.BuyerID)
	}
	if itemType := strings.TrimSpace(filter.ItemType); itemType != "" {
		query = query.Where("item_type = ?", itemType)
	}
	if filter.ItemID != 0 {
		query = query.Where("item_id = ?", filter.ItemID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.SettledFrom != nil {
		query = query.Where("settled_at >= ?", *filter.SettledFrom)
	}
	if filter.SettledTo != nil {
		query = query.Where("settled_at <= ?", *filter.SettledTo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"transaction_id"})
		query = query.Where(condition, repeatLikeArgs("%"+search+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Settlement
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountCompletedByItem 统计作品已完成的销售次数
func (r *GormSettlementRepository) CountCompletedByItem(itemType string, itemID uint) (int64, error) {
	if itemID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.Settlement{}).
		Where("item_type = ? AND item_id = ? AND status = ?", itemType, itemID, constants.SettlementStatusCompleted).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

type settlementAggregateRow struct {
	ItemType         string          `gorm:"column:item_type"`
	Total            int64           `gorm:"column:total"`
	Amount           decimal.Decimal `gorm:"column:amount"`
	SellerAmount     decimal.Decimal `gorm:"column:seller_amount"`
	CommissionAmount decimal.Decimal `gorm:"column:commission_amount"`
}

const settlementAggregateSelect = "COUNT(*) AS total, " +
	"COALESCE(SUM(amount), 0) AS amount, " +
	"COALESCE(SUM(seller_amount), 0) AS seller_amount, " +
	"COALESCE(SUM(commission_amount), 0) AS commission_amount"

// SumBySeller 汇总卖家已完成结算（读时聚合）
func (r *GormSettlementRepository) SumBySeller(sellerID uint) (SettlementAggregate, error) {
	result := emptySettlementAggregate()
	if sellerID == 0 {
		return result, nil
	}
	var row settlementAggregateRow
	if err := r.db.Model(&models.Settlement{}).
		Select(settlementAggregateSelect).
		Where("seller_id = ? AND status = ?", sellerID, constants.SettlementStatusCompleted).
		Scan(&row).Error; err != nil {
		return result, err
	}
	return row.toAggregate(), nil
}

// SumByItemType 按作品类型汇总平台佣金
func (r *GormSettlementRepository) SumByItemType(from, to *time.Time) ([]SettlementTypeAggregate, error) {
	query := r.db.Model(&models.Settlement{}).
		Select("item_type, "+settlementAggregateSelect).
		Where("status = ?", constants.SettlementStatusCompleted)
	if from != nil {
		query = query.Where("settled_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("settled_at <= ?", *to)
	}
	var rows []settlementAggregateRow
	if err := query.Group("item_type").Order("item_type asc").Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]SettlementTypeAggregate, 0, len(rows))
	for _, row := range rows {
		result = append(result, SettlementTypeAggregate{
			ItemType:            row.ItemType,
			SettlementAggregate: row.toAggregate(),
		})
	}
	return result, nil
}

func emptySettlementAggregate() SettlementAggregate {
	return SettlementAggregate{
		Amount:           decimal.Zero,
		SellerAmount:     decimal.Zero,
		CommissionAmount: decimal.Zero,
	}
}

func (row settlementAggregateRow) toAggregate() SettlementAggregate {
	return SettlementAggregate{
		Count:            row.Total,
		Amount:           row.Amount.Round(models.MoneyScale),
		SellerAmount:     row.SellerAmount.Round(models.MoneyScale),
		CommissionAmount: row.CommissionAmount.Round(models.MoneyScale),
	}
}
