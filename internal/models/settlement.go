package models

import "time"

// Settlement 一笔已完成销售的结算记录（创建后金额与佣金比例不可变）
type Settlement struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                                 // 主键
	TransactionID    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_id"`          // 交易号（全局唯一）
	BuyerID          uint       `gorm:"not null;index" json:"buyer_id"`                                       // 买家ID
	SellerID         uint       `gorm:"not null;index" json:"seller_id"`                                      // 卖家ID
	ItemType         string     `gorm:"type:varchar(20);not null;index:idx_settlement_item" json:"item_type"` // 作品类型（sound/event）
	ItemID           uint       `gorm:"not null;index:idx_settlement_item" json:"item_id"`                    // 作品ID
	Amount           Money      `gorm:"type:decimal(20,2);not null" json:"amount"`                            // 成交金额
	SellerAmount     Money      `gorm:"type:decimal(20,2);not null" json:"seller_amount"`                     // 卖家所得
	CommissionAmount Money      `gorm:"type:decimal(20,2);not null" json:"commission_amount"`                 // 平台佣金
	CommissionRate   Money      `gorm:"type:decimal(10,2);not null" json:"commission_rate"`                   // 成交时佣金比例快照
	Currency         string     `gorm:"type:varchar(10);not null" json:"currency"`                            // 币种
	Status           string     `gorm:"type:varchar(20);not null;index" json:"status"`                        // 结算状态
	SettledAt        time.Time  `gorm:"not null;index" json:"settled_at"`                                     // 结算时间
	RefundedAt       *time.Time `gorm:"index" json:"refunded_at,omitempty"`                                   // 退款时间
	RefundReason     string     `gorm:"type:varchar(255)" json:"refund_reason,omitempty"`                     // 退款原因
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                              // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                                           // 更新时间
}

// TableName 指定表名
func (Settlement) TableName() string {
	return "settlements"
}
