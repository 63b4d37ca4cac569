package models

import "time"

// User 用户（买家/卖家），账号体系由外部认证服务维护
type User struct {
	ID          uint      `gorm:"primarykey" json:"id"`                  // 主键
	Email       string    `gorm:"type:varchar(255);index" json:"email"`  // 邮箱
	DisplayName string    `gorm:"type:varchar(120)" json:"display_name"` // 显示名称
	Locale      string    `gorm:"type:varchar(20)" json:"locale"`        // 语言偏好
	CreatedAt   time.Time `json:"created_at"`                            // 创建时间
	UpdatedAt   time.Time `json:"updated_at"`                            // 更新时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
