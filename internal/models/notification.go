package models

import "time"

// Notification 站内通知（database 渠道）
type Notification struct {
	ID        uint       `gorm:"primarykey" json:"id"`                              // 主键
	UserID    uint       `gorm:"not null;index" json:"user_id"`                     // 接收用户
	EventType string     `gorm:"type:varchar(50);not null;index" json:"event_type"` // 事件类型
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`           // 标题
	DataJSON  JSON       `gorm:"type:json" json:"data"`                             // 事件数据
	ReadAt    *time.Time `json:"read_at,omitempty"`                                 // 已读时间
	CreatedAt time.Time  `gorm:"index" json:"created_at"`                           // 创建时间
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
