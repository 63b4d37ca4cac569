package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/soundmarket/internal/config"
	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func testCommissionConfig() config.CommissionConfig {
	return config.CommissionConfig{
		DefaultSoundRate: 15,
		DefaultEventRate: 10,
		Currency:         "USD",
	}
}

func testCertificationDefaults() CertificationSetting {
	return CertificationSettingFromConfig(config.CertificationConfig{
		Tiers: map[string]int64{
			constants.CertificationTierBronze:   1000,
			constants.CertificationTierSilver:   5000,
			constants.CertificationTierGold:     10000,
			constants.CertificationTierPlatinum: 50000,
			constants.CertificationTierDiamond:  100000,
		},
		MetricSources: map[string]string{
			"sound:free": constants.MetricSourceDownloads,
			"sound:paid": constants.MetricSourceSales,
			"event:free": constants.MetricSourcePlays,
			"event:paid": constants.MetricSourceSales,
		},
	})
}

func createServiceTestUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	user := models.User{
		Email:       name + "@example.com",
		DisplayName: name,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func createServiceTestItem(t *testing.T, db *gorm.DB, ownerID uint, itemType, pricingClass, status string, downloads, plays int64) models.Item {
	t.Helper()
	item := models.Item{
		ItemType:      itemType,
		OwnerID:       ownerID,
		Title:         fmt.Sprintf("%s-%s-%d", itemType, pricingClass, time.Now().UnixNano()),
		PricingClass:  pricingClass,
		Status:        status,
		DownloadCount: downloads,
		PlayCount:     plays,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create item failed: %v", err)
	}
	return item
}

type certificationTestEnv struct {
	db       *gorm.DB
	engine   *CertificationEngine
	settings *SettingService
	itemRepo *repository.GormItemRepository
	certRepo *repository.GormCertificationRepository
}

func setupCertificationEngineTest(t *testing.T) certificationTestEnv {
	t.Helper()
	db := setupServiceTestDB(t, "certification_engine_test")
	itemRepo := repository.NewItemRepository(db)
	certRepo := repository.NewCertificationRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)
	settings := NewSettingService(repository.NewSettingRepository(db))
	engine := NewCertificationEngine(
		itemRepo,
		certRepo,
		settings,
		NewMetricAggregator(settlementRepo),
		nil,
		CertificationEngineOptions{Defaults: testCertificationDefaults(), BatchSize: 2, Concurrency: 3},
	)
	return certificationTestEnv{db: db, engine: engine, settings: settings, itemRepo: itemRepo, certRepo: certRepo}
}
