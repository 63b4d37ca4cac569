package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementListFilter 查询结算列表的过滤条件
type SettlementListFilter struct {
	Page        int
	PageSize    int
	SellerID    uint
	BuyerID     uint
	ItemType    string
	ItemID      uint
	Status      string
	SettledFrom *time.Time
	SettledTo   *time.Time
	Search      string
}

// CertificationListFilter 查询认证列表的过滤条件
type CertificationListFilter struct {
	Page       int
	PageSize   int
	ItemID     uint
	OwnerID    uint
	Tier       string
	ActiveOnly bool
	Search     string
}

// SettlementAggregate 结算金额聚合
type SettlementAggregate struct {
	Count            int64           `json:"count"`
	Amount           decimal.Decimal `json:"amount"`
	SellerAmount     decimal.Decimal `json:"seller_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
}

// SettlementTypeAggregate 按作品类型的结算金额聚合
type SettlementTypeAggregate struct {
	ItemType string `json:"item_type"`
	SettlementAggregate
}
