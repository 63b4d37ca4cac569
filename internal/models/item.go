package models

import "time"

// Item 可售作品（音效或活动），计数器由外部系统维护
type Item struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                            // 主键
	ItemType      string     `gorm:"type:varchar(20);not null;index" json:"item_type"`                // 作品类型（sound/event）
	OwnerID       uint       `gorm:"not null;index" json:"owner_id"`                                  // 所有者ID
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`                         // 标题
	PricingClass  string     `gorm:"type:varchar(20);not null;default:'free'" json:"pricing_class"`   // 计价类型（free/paid）
	Price         Money      `gorm:"type:decimal(20,2);not null;default:0" json:"price"`              // 售价
	Status        string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"` // 审核状态
	ReviewReason  string     `gorm:"type:varchar(255)" json:"review_reason,omitempty"`                // 审核备注
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`                                           // 审核时间
	DownloadCount int64      `gorm:"not null;default:0" json:"download_count"`                        // 下载次数
	PlayCount     int64      `gorm:"not null;default:0" json:"play_count"`                            // 播放次数
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt     time.Time  `json:"updated_at"`                                                      // 更新时间

	Owner *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"` // 所有者
}

// TableName 指定表名
func (Item) TableName() string {
	return "items"
}
