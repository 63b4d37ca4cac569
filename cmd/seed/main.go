package main

import (
	"context"
	"fmt"

	"github.com/soundmarket/internal/config"
	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/provider"
	"github.com/soundmarket/internal/service"

	"github.com/shopspring/decimal"
)

type seedItem struct {
	Title         string
	ItemType      string
	PricingClass  string
	Price         string
	DownloadCount int64
	PlayCount     int64
	Sales         int
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultCommissionSettings(models.DB, map[string]decimal.Decimal{
		constants.CommissionKeySound: decimal.NewFromFloat(cfg.Commission.DefaultSoundRate),
		constants.CommissionKeyEvent: decimal.NewFromFloat(cfg.Commission.DefaultEventRate),
	}); err != nil {
		stdLog.Fatalf("Failed to seed commission settings: %v", err)
	}

	// 添加用户
	users := []models.User{
		{Email: "composer@example.com", DisplayName: "Aria Composer", Locale: "en-US"},
		{Email: "organizer@example.com", DisplayName: "Live Nights", Locale: "zh-CN"},
		{Email: "listener@example.com", DisplayName: "Curious Listener", Locale: "en-US"},
	}
	for i := range users {
		if err := models.DB.Where("email = ?", users[i].Email).FirstOrCreate(&users[i]).Error; err != nil {
			stdLog.Fatalf("Failed to create user %s: %v", users[i].Email, err)
		}
	}
	composer, organizer, listener := users[0], users[1], users[2]

	// 添加作品
	items := []seedItem{
		{Title: "Ocean Waves Ambience", ItemType: constants.ItemTypeSound, PricingClass: constants.PricingClassFree, DownloadCount: 12500},
		{Title: "Cinematic Impact Pack", ItemType: constants.ItemTypeSound, PricingClass: constants.PricingClassPaid, Price: "19.99", Sales: 3},
		{Title: "Open Mic Night", ItemType: constants.ItemTypeEvent, PricingClass: constants.PricingClassFree, PlayCount: 5200},
		{Title: "Midnight Jazz Session", ItemType: constants.ItemTypeEvent, PricingClass: constants.PricingClassPaid, Price: "45.00", Sales: 2},
	}

	ctx := context.Background()
	container := provider.NewContainerWithDB(cfg, models.DB, nil)
	for idx, seed := range items {
		ownerID := composer.ID
		if seed.ItemType == constants.ItemTypeEvent {
			ownerID = organizer.ID
		}
		price := decimal.Zero
		if seed.Price != "" {
			price = decimal.RequireFromString(seed.Price)
		}
		item := models.Item{
			ItemType:      seed.ItemType,
			OwnerID:       ownerID,
			Title:         seed.Title,
			PricingClass:  seed.PricingClass,
			Price:         models.NewMoneyFromDecimal(price),
			Status:        constants.ItemStatusPublished,
			DownloadCount: seed.DownloadCount,
			PlayCount:     seed.PlayCount,
		}
		if err := models.DB.Where("title = ? AND owner_id = ?", item.Title, item.OwnerID).FirstOrCreate(&item).Error; err != nil {
			stdLog.Printf("Failed to create item %s: %v", seed.Title, err)
			continue
		}
		stdLog.Printf("Item ready: %s (id=%d)", item.Title, item.ID)

		for n := 0; n < seed.Sales; n++ {
			settlement, err := container.SettlementService.Settle(ctx, service.SettleInput{
				TransactionID: fmt.Sprintf("seed-%d-%d", idx, n),
				BuyerID:       listener.ID,
				ItemType:      item.ItemType,
				ItemID:        item.ID,
				Amount:        price,
			})
			if err != nil {
				stdLog.Printf("Skip sale seed-%d-%d: %v", idx, n, err)
				continue
			}
			stdLog.Printf("Settled %s: seller=%s commission=%s", settlement.TransactionID, settlement.SellerAmount, settlement.CommissionAmount)
		}
	}

	summary, err := container.CertificationEngine.EvaluateAll(ctx, false)
	if err != nil {
		stdLog.Fatalf("Failed to evaluate certifications: %v", err)
	}
	stdLog.Printf("Certification pass: evaluated=%d issued=%d failed=%d", summary.Evaluated, summary.Issued, summary.Failed)
	stdLog.Println("Seed completed")
}
