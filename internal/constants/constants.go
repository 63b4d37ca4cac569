package constants

// 作品类型常量
const (
	ItemTypeSound = "sound"
	ItemTypeEvent = "event"
)

// 作品计价类型常量
const (
	PricingClassFree = "free"
	PricingClassPaid = "paid"
)

// 作品审核状态常量
const (
	ItemStatusPending     = "pending"
	ItemStatusPublished   = "published"
	ItemStatusRejected    = "rejected"
	ItemStatusUnpublished = "unpublished"
)

// 结算状态常量
const (
	SettlementStatusCompleted = "completed"
	SettlementStatusRefunded  = "refunded"
)

// 佣金配置键常量
const (
	CommissionKeySound = "sound_commission"
	CommissionKeyEvent = "event_commission"
)

// 认证等级常量（按门槛从低到高）
const (
	CertificationTierBronze   = "bronze"
	CertificationTierSilver   = "silver"
	CertificationTierGold     = "gold"
	CertificationTierPlatinum = "platinum"
	CertificationTierDiamond  = "diamond"
)

// CertificationTiers 认证等级的固定顺序
var CertificationTiers = []string{
	CertificationTierBronze,
	CertificationTierSilver,
	CertificationTierGold,
	CertificationTierPlatinum,
	CertificationTierDiamond,
}

// 认证指标来源常量
const (
	MetricSourceDownloads = "downloads"
	MetricSourcePlays     = "plays"
	MetricSourceSales     = "sales"
)

// 通知渠道常量
const (
	NotificationChannelDatabase = "database"
	NotificationChannelLog      = "log"
)

// 通知事件常量
const (
	NotificationEventItemApproved = "item_approved"
	NotificationEventItemRejected = "item_rejected"
)

// 队列常量
const (
	QueueDefault                 = "default"
	TaskCertificationEvaluate    = "certification:evaluate_item"
	TaskCertificationEvaluateAll = "certification:evaluate_all"
	TaskItemStatusNotify         = "item:status_notify"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "sm"
)

// 设置键常量
const (
	SettingKeyCertificationConfig = "certification_config"
)

// 默认货币
const (
	CurrencyDefault = "USD"
)
