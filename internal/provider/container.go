package provider

import (
	"time"

	"github.com/soundmarket/internal/cache"
	"github.com/soundmarket/internal/config"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/queue"
	"github.com/soundmarket/internal/repository"
	"github.com/soundmarket/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo              repository.UserRepository
	ItemRepo              repository.ItemRepository
	CommissionSettingRepo repository.CommissionSettingRepository
	SettlementRepo        repository.SettlementRepository
	CertificationRepo     repository.CertificationRepository
	NotificationRepo      repository.NotificationRepository
	SettingRepo           repository.SettingRepository

	// Services
	SettingService         *service.SettingService
	CommissionPolicy       *service.CommissionPolicy
	SettlementService      *service.SettlementService
	MetricAggregator       *service.MetricAggregator
	CertificationEngine    *service.CertificationEngine
	CertificateRenderer    *service.DocumentCertificateRenderer
	ItemService            *service.ItemService
	StatusNotifier         service.StatusNotifier
	NotificationDispatcher *service.NotificationDispatcher
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	return NewContainerWithDB(cfg, models.DB, queueClient)
}

// NewContainerWithDB 使用指定数据库与队列客户端初始化容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) *Container {
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.UserRepo = repository.NewUserRepository(db)
	c.ItemRepo = repository.NewItemRepository(db)
	c.CommissionSettingRepo = repository.NewCommissionSettingRepository(db)
	c.SettlementRepo = repository.NewSettlementRepository(db)
	c.CertificationRepo = repository.NewCertificationRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

func (c *Container) initServices() {
	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.CommissionPolicy = service.NewCommissionPolicy(c.CommissionSettingRepo, c.Config.Commission)
	c.SettlementService = service.NewSettlementService(
		c.SettlementRepo,
		c.ItemRepo,
		c.CommissionPolicy,
		c.QueueClient,
		c.Config.Commission.Currency,
	)
	c.MetricAggregator = service.NewMetricAggregator(c.SettlementRepo)

	lockTTL := time.Duration(c.Config.Certification.LockTTLSeconds) * time.Second
	c.CertificationEngine = service.NewCertificationEngine(
		c.ItemRepo,
		c.CertificationRepo,
		c.SettingService,
		c.MetricAggregator,
		cache.NewLocker(lockTTL),
		service.CertificationEngineOptions{
			Defaults:    service.CertificationSettingFromConfig(c.Config.Certification),
			BatchSize:   c.Config.Certification.BatchSize,
			Concurrency: c.Config.Certification.Concurrency,
		},
	)
	if err := service.ValidateCertificationSetting(c.CertificationEngine.Defaults()); err != nil {
		logger.Errorw("provider_certification_defaults_invalid", "error", err)
		panic(err)
	}
	c.CertificateRenderer = service.NewDocumentCertificateRenderer(
		c.CertificationRepo,
		c.ItemRepo,
		c.UserRepo,
		c.Config.Certification.Issuer,
	)

	c.NotificationDispatcher = service.NewNotificationDispatcher(c.Config.Notification.Channels, c.NotificationRepo)
	c.StatusNotifier = service.NewQueueStatusNotifier(c.QueueClient, c.NotificationDispatcher)
	c.ItemService = service.NewItemService(c.ItemRepo, c.StatusNotifier, c.QueueClient)
}
