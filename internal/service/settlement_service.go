package service

import (
	"context"
	"strings"
	"time"

	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/queue"
	"github.com/soundmarket/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SettlementBreakdown 一笔成交的拆分结果
type SettlementBreakdown struct {
	Amount           decimal.Decimal `json:"amount"`
	Rate             decimal.Decimal `json:"rate"`
	SellerAmount     decimal.Decimal `json:"seller_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
}

// CalculateSettlement 按比例拆分成交金额：佣金四舍五入到分，卖家所得为差额
func CalculateSettlement(amount, rate decimal.Decimal) (SettlementBreakdown, error) {
	gross := amount.Round(models.MoneyScale)
	if gross.LessThanOrEqual(decimal.Zero) {
		return SettlementBreakdown{}, ErrSettlementAmountInvalid
	}
	if !isValidCommissionRate(rate) {
		return SettlementBreakdown{}, ErrCommissionRateInvalid
	}
	normalizedRate := rate.Round(models.MoneyScale)
	commission := gross.Mul(normalizedRate).Div(hundred).Round(models.MoneyScale)
	return SettlementBreakdown{
		Amount:           gross,
		Rate:             normalizedRate,
		SellerAmount:     gross.Sub(commission),
		CommissionAmount: commission,
	}, nil
}

// SettleInput 销售结算入参
type SettleInput struct {
	TransactionID string
	BuyerID       uint
	SellerID      uint
	ItemType      string
	ItemID        uint
	Amount        decimal.Decimal
	Currency      string
	SettledAt     *time.Time
}

// CommissionSummary 平台佣金汇总
type CommissionSummary struct {
	From   *time.Time                           `json:"from,omitempty"`
	To     *time.Time                           `json:"to,omitempty"`
	Items  []repository.SettlementTypeAggregate `json:"items"`
	Totals repository.SettlementAggregate       `json:"totals"`
}

// SettlementService 销售结算服务
type SettlementService struct {
	repo            repository.SettlementRepository
	itemRepo        repository.ItemRepository
	policy          *CommissionPolicy
	queueClient     *queue.Client
	defaultCurrency string
}

// NewSettlementService 创建结算服务
func NewSettlementService(
	repo repository.SettlementRepository,
	itemRepo repository.ItemRepository,
	policy *CommissionPolicy,
	queueClient *queue.Client,
	defaultCurrency string,
) *SettlementService {
	currency := strings.ToUpper(strings.TrimSpace(defaultCurrency))
	if currency == "" {
		currency = constants.CurrencyDefault
	}
	return &SettlementService{
		repo:            repo,
		itemRepo:        itemRepo,
		policy:          policy,
		queueClient:     queueClient,
		defaultCurrency: currency,
	}
}

// Settle 记录一笔已完成销售：快照当前佣金比例并拆分金额
func (s *SettlementService) Settle(ctx context.Context, input SettleInput) (*models.Settlement, error) {
	itemType := strings.ToLower(strings.TrimSpace(input.ItemType))
	if !isValidItemType(itemType) {
		return nil, ErrItemTypeInvalid
	}
	if input.ItemID == 0 || input.BuyerID == 0 {
		return nil, ErrSettlementInputInvalid
	}
	currency, err := s.normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	sellerID := input.SellerID
	if s.itemRepo != nil {
		item, err := s.itemRepo.GetByID(input.ItemID)
		if err != nil {
			return nil, err
		}
		if item == nil || item.ItemType != itemType {
			return nil, ErrItemNotFound
		}
		if sellerID == 0 {
			sellerID = item.OwnerID
		}
		if sellerID != item.OwnerID {
			return nil, ErrSettlementInputInvalid
		}
	}
	if sellerID == 0 {
		return nil, ErrSettlementInputInvalid
	}

	rate, err := s.policy.RateForItemType(ctx, itemType)
	if err != nil {
		return nil, err
	}
	breakdown, err := CalculateSettlement(input.Amount, rate)
	if err != nil {
		return nil, err
	}

	txID := strings.TrimSpace(input.TransactionID)
	if txID == "" {
		txID = uuid.NewString()
	}
	settledAt := time.Now()
	if input.SettledAt != nil && !input.SettledAt.IsZero() {
		settledAt = *input.SettledAt
	}

	settlement := &models.Settlement{
		TransactionID:    txID,
		BuyerID:          input.BuyerID,
		SellerID:         sellerID,
		ItemType:         itemType,
		ItemID:           input.ItemID,
		Amount:           models.NewMoneyFromDecimal(breakdown.Amount),
		SellerAmount:     models.NewMoneyFromDecimal(breakdown.SellerAmount),
		CommissionAmount: models.NewMoneyFromDecimal(breakdown.CommissionAmount),
		CommissionRate:   models.NewMoneyFromDecimal(breakdown.Rate),
		Currency:         currency,
		Status:           constants.SettlementStatusCompleted,
		SettledAt:        settledAt,
	}
	if err := s.repo.Create(settlement); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrTransactionConflict
		}
		return nil, err
	}

	logger.Infow("settlement_created",
		"transaction_id", settlement.TransactionID,
		"item_type", settlement.ItemType,
		"item_id", settlement.ItemID,
		"amount", settlement.Amount.String(),
		"commission_rate", settlement.CommissionRate.String(),
		"commission_amount", settlement.CommissionAmount.String(),
	)

	if s.queueClient != nil {
		if err := s.queueClient.EnqueueCertificationEvaluate(queue.CertificationEvaluatePayload{ItemID: settlement.ItemID}); err != nil {
			logger.Warnw("settlement_enqueue_certification_failed",
				"transaction_id", settlement.TransactionID,
				"item_id", settlement.ItemID,
				"error", err,
			)
		}
	}
	return settlement, nil
}

// Refund 将结算标记为已退款，金额与比例保持不变
func (s *SettlementService) Refund(transactionID, reason string) (*models.Settlement, error) {
	settlement, err := s.repo.GetByTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	if settlement == nil {
		return nil, ErrSettlementNotFound
	}
	if settlement.Status != constants.SettlementStatusCompleted {
		return nil, ErrSettlementStatusInvalid
	}
	affected, err := s.repo.MarkRefunded(settlement.TransactionID, reason, time.Now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrSettlementStatusInvalid
	}
	logger.Infow("settlement_refunded",
		"transaction_id", settlement.TransactionID,
		"reason", strings.TrimSpace(reason),
	)
	return s.repo.GetByTransactionID(settlement.TransactionID)
}

// GetByTransactionID 按交易号获取结算记录
func (s *SettlementService) GetByTransactionID(transactionID string) (*models.Settlement, error) {
	settlement, err := s.repo.GetByTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	if settlement == nil {
		return nil, ErrSettlementNotFound
	}
	return settlement, nil
}

// List 查询结算列表
func (s *SettlementService) List(filter repository.SettlementListFilter) ([]models.Settlement, int64, error) {
	return s.repo.List(filter)
}

// SellerRevenue 读时汇总卖家已完成结算收入
func (s *SettlementService) SellerRevenue(sellerID uint) (repository.SettlementAggregate, error) {
	if sellerID == 0 {
		return repository.SettlementAggregate{}, ErrSettlementInputInvalid
	}
	return s.repo.SumBySeller(sellerID)
}

// CommissionSummary 读时汇总平台佣金（按作品类型）
func (s *SettlementService) CommissionSummary(from, to *time.Time) (CommissionSummary, error) {
	if from != nil && to != nil && from.After(*to) {
		return CommissionSummary{}, ErrSettlementInputInvalid
	}
	items, err := s.repo.SumByItemType(from, to)
	if err != nil {
		return CommissionSummary{}, err
	}
	totals := repository.SettlementAggregate{
		Amount:           decimal.Zero,
		SellerAmount:     decimal.Zero,
		CommissionAmount: decimal.Zero,
	}
	for _, item := range items {
		totals.Count += item.Count
		totals.Amount = totals.Amount.Add(item.Amount)
		totals.SellerAmount = totals.SellerAmount.Add(item.SellerAmount)
		totals.CommissionAmount = totals.CommissionAmount.Add(item.CommissionAmount)
	}
	return CommissionSummary{From: from, To: to, Items: items, Totals: totals}, nil
}

func (s *SettlementService) normalizeCurrency(raw string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		return s.defaultCurrency, nil
	}
	if len(currency) != 3 {
		return "", ErrCurrencyInvalid
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", ErrCurrencyInvalid
		}
	}
	return currency, nil
}
