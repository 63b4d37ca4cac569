package models

import "time"

// Certification 作品认证证书（同一作品每个等级最多一条，只可停用不可删除）
type Certification struct {
	ID                uint      `gorm:"primarykey" json:"id"`                                                                     // 主键
	ItemID            uint      `gorm:"not null;uniqueIndex:idx_certification_item_tier,priority:1" json:"item_id"`               // 作品ID
	OwnerID           uint      `gorm:"not null;index" json:"owner_id"`                                                           // 作品所有者ID
	Tier              string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_certification_item_tier,priority:2" json:"tier"` // 认证等级
	TierRank          int       `gorm:"not null;default:0;index" json:"tier_rank"`                                                // 等级序号（bronze=1）
	ThresholdReached  int64     `gorm:"not null;default:0" json:"threshold_reached"`                                              // 达成的门槛值
	MetricValue       int64     `gorm:"not null;default:0" json:"metric_value"`                                                   // 评估时的指标值
	MetricSource      string    `gorm:"type:varchar(20);not null" json:"metric_source"`                                           // 指标来源
	CertificateNumber string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"certificate_number"`                          // 证书编号
	AchievedAt        time.Time `gorm:"not null;index" json:"achieved_at"`                                                        // 达成时间
	IsActive          bool      `gorm:"not null;default:true;index" json:"is_active"`                                             // 是否有效
	CreatedAt         time.Time `json:"created_at"`                                                                               // 创建时间
	UpdatedAt         time.Time `json:"updated_at"`                                                                               // 更新时间

	Item *Item `gorm:"foreignKey:ItemID" json:"item,omitempty"` // 关联作品
}

// TableName 指定表名
func (Certification) TableName() string {
	return "certifications"
}
