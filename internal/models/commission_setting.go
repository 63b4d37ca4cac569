package models

import "time"

// CommissionSetting 平台佣金配置（按销售类别区分）
type CommissionSetting struct {
	ID        uint      `gorm:"primarykey" json:"id"`                             // 主键
	Key       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"key"` // 配置键（如 sound_commission）
	Rate      Money     `gorm:"type:decimal(10,2);not null" json:"rate"`          // 佣金比例（百分比）
	IsActive  bool      `gorm:"not null;index" json:"is_active"`                  // 是否启用
	UpdatedBy string    `gorm:"type:varchar(120)" json:"updated_by,omitempty"`    // 最后修改人
	CreatedAt time.Time `json:"created_at"`                                       // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                       // 更新时间
}

// TableName 指定表名
func (CommissionSetting) TableName() string {
	return "commission_settings"
}
