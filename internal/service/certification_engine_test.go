package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCertificationEngineIssuesEveryReachedTier(t *testing.T) {
	env := setupCertificationEngineTest(t)
	owner := createServiceTestUser(t, env.db, "producer")
	item := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusPublished, 12000, 0)

	result, err := env.engine.EvaluateItem(context.Background(), item.ID, false)
	if err != nil {
		t.Fatalf("evaluate item failed: %v", err)
	}
	if result.CurrentTier != constants.CertificationTierGold {
		t.Fatalf("expected gold, got %s", result.CurrentTier)
	}
	if result.MetricSource != constants.MetricSourceDownloads || result.MetricValue != 12000 {
		t.Fatalf("unexpected metric reading: %s=%d", result.MetricSource, result.MetricValue)
	}
	if len(result.Issued) != 3 {
		t.Fatalf("expected bronze, silver and gold, got %d", len(result.Issued))
	}

	rows, err := env.certRepo.ListByItem(item.ID)
	if err != nil {
		t.Fatalf("list certifications failed: %v", err)
	}
	want := []string{constants.CertificationTierBronze, constants.CertificationTierSilver, constants.CertificationTierGold}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	pattern := regexp.MustCompile(`^CERT-\d{8}-[A-Z2-9]{10}$`)
	numbers := make(map[string]struct{})
	for idx, row := range rows {
		if row.Tier != want[idx] || row.TierRank != idx+1 {
			t.Fatalf("unexpected tier at %d: %s rank %d", idx, row.Tier, row.TierRank)
		}
		if row.OwnerID != owner.ID || !row.IsActive {
			t.Fatalf("unexpected certification: %+v", row)
		}
		if !pattern.MatchString(row.CertificateNumber) {
			t.Fatalf("unexpected certificate number format: %s", row.CertificateNumber)
		}
		numbers[row.CertificateNumber] = struct{}{}
	}
	if len(numbers) != len(rows) {
		t.Fatalf("certificate numbers must be unique")
	}

	again, err := env.engine.EvaluateItem(context.Background(), item.ID, false)
	if err != nil {
		t.Fatalf("second evaluate failed: %v", err)
	}
	if len(again.Issued) != 0 || again.Refreshed != 0 {
		t.Fatalf("re-evaluation must be idempotent, got %+v", again)
	}
}

func TestCertificationEngineThresholdBoundaries(t *testing.T) {
	env := setupCertificationEngineTest(t)
	owner := createServiceTestUser(t, env.db, "boundary")
	below := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeEvent, constants.PricingClassFree, constants.ItemStatusPublished, 0, 999)
	exact := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeEvent, constants.PricingClassFree, constants.ItemStatusPublished, 0, 1000)

	result, err := env.engine.EvaluateItem(context.Background(), below.ID, false)
	if err != nil {
		t.Fatalf("evaluate below failed: %v", err)
	}
	if len(result.Issued) != 0 || result.CurrentTier != "" {
		t.Fatalf("expected no certification below threshold, got %+v", result)
	}

	result, err = env.engine.EvaluateItem(context.Background(), exact.ID, false)
	if err != nil {
		t.Fatalf("evaluate exact failed: %v", err)
	}
	if result.MetricSource != constants.MetricSourcePlays {
		t.Fatalf("free events must use plays, got %s", result.MetricSource)
	}
	if len(result.Issued) != 1 || result.Issued[0].Tier != constants.CertificationTierBronze {
		t.Fatalf("expected bronze at exact threshold, got %+v", result.Issued)
	}
}

func TestCertificationEngineForceRefreshKeepsIdentity(t *testing.T) {
	env := setupCertificationEngineTest(t)
	owner := createServiceTestUser(t, env.db, "force")
	item := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusPublished, 6000, 0)

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env.engine.now = func() time.Time { return fixed }
	if _, err := env.engine.EvaluateItem(context.Background(), item.ID, false); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	before, err := env.certRepo.ListByItem(item.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if err := env.db.Model(&models.Item{}).Where("id = ?", item.ID).Update("download_count", 9000).Error; err != nil {
		t.Fatalf("update downloads failed: %v", err)
	}
	env.engine.now = func() time.Time { return fixed.Add(48 * time.Hour) }

	plain, err := env.engine.EvaluateItem(context.Background(), item.ID, false)
	if err != nil {
		t.Fatalf("plain evaluate failed: %v", err)
	}
	if plain.Refreshed != 0 {
		t.Fatalf("non-force evaluation must not refresh metrics")
	}

	forced, err := env.engine.EvaluateItem(context.Background(), item.ID, true)
	if err != nil {
		t.Fatalf("force evaluate failed: %v", err)
	}
	if forced.Refreshed != 2 || len(forced.Issued) != 0 {
		t.Fatalf("expected 2 refreshed and none issued, got %+v", forced)
	}

	after, err := env.certRepo.ListByItem(item.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for idx := range after {
		if after[idx].MetricValue != 9000 {
			t.Fatalf("expected refreshed metric value, got %d", after[idx].MetricValue)
		}
		if after[idx].CertificateNumber != before[idx].CertificateNumber {
			t.Fatalf("force must not change certificate number")
		}
		if !after[idx].AchievedAt.Equal(before[idx].AchievedAt) {
			t.Fatalf("force must not change achieved_at: %v != %v", after[idx].AchievedAt, before[idx].AchievedAt)
		}
	}
}

func TestCertificationEngineSkipsUnpublishedAndMissing(t *testing.T) {
	env := setupCertificationEngineTest(t)
	owner := createServiceTestUser(t, env.db, "pending")
	item := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusPending, 50000, 0)

	result, err := env.engine.EvaluateItem(context.Background(), item.ID, false)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("expected unpublished item to be skipped")
	}
	rows, err := env.certRepo.ListByItem(item.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("unpublished item must not be certified")
	}

	if _, err := env.engine.EvaluateItem(context.Background(), 99999, false); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestCertificationEngineSalesMetricWithSettingOverride(t *testing.T) {
	env := setupCertificationEngineTest(t)
	owner := createServiceTestUser(t, env.db, "seller")
	item := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassPaid, constants.ItemStatusPublished, 100000, 0)

	_, err := env.settings.UpdateCertificationSetting(CertificationSetting{
		Tiers: map[string]int64{
			constants.CertificationTierBronze:   2,
			constants.CertificationTierSilver:   3,
			constants.CertificationTierGold:     4,
			constants.CertificationTierPlatinum: 5,
			constants.CertificationTierDiamond:  6,
		},
	}, env.engine.Defaults())
	if err != nil {
		t.Fatalf("update certification setting failed: %v", err)
	}

	settlementRepo := repository.NewSettlementRepository(env.db)
	statuses := []string{constants.SettlementStatusCompleted, constants.SettlementStatusCompleted, constants.SettlementStatusRefunded}
	for idx, status := range statuses {
		row := &models.Settlement{
			TransactionID:    "sale-" + string(rune('a'+idx)),
			BuyerID:          1,
			SellerID:         owner.ID,
			ItemType:         constants.ItemTypeSound,
			ItemID:           item.ID,
			Amount:           models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			SellerAmount:     models.NewMoneyFromDecimal(decimal.RequireFromString("8.5")),
			CommissionAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("1.5")),
			CommissionRate:   models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
			Currency:         constants.CurrencyDefault,
			Status:           status,
			SettledAt:        time.Now(),
		}
		if err := settlementRepo.Create(row); err != nil {
			t.Fatalf("create settlement failed: %v", err)
		}
	}

	result, err := env.engine.EvaluateItem(context.Background(), item.ID, false)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if result.MetricSource != constants.MetricSourceSales || result.MetricValue != 2 {
		t.Fatalf("paid sounds must count completed sales, got %s=%d", result.MetricSource, result.MetricValue)
	}
	if result.CurrentTier != constants.CertificationTierBronze || len(result.Issued) != 1 {
		t.Fatalf("expected bronze only, got %+v", result)
	}
}

func TestCertificationEngineConcurrentEvaluationDoesNotDuplicate(t *testing.T) {
	env := setupCertificationEngineTest(t)
	owner := createServiceTestUser(t, env.db, "concurrent")
	item := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusPublished, 12000, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.engine.EvaluateItem(context.Background(), item.ID, false); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent evaluate failed: %v", err)
	}

	var count int64
	if err := env.db.Model(&models.Certification{}).Where("item_id = ?", item.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 certifications, got %d", count)
	}
}

type missingItemRepo struct {
	repository.ItemRepository
	injected bool
}

func (r *missingItemRepo) ListPublishedIDsAfter(afterID uint, limit int) ([]uint, error) {
	ids, err := r.ItemRepository.ListPublishedIDsAfter(afterID, limit)
	if err != nil {
		return nil, err
	}
	if !r.injected && len(ids) < limit {
		r.injected = true
		ids = append(ids, 99999)
	}
	return ids, nil
}

func TestCertificationEngineEvaluateAllCountsFailures(t *testing.T) {
	env := setupCertificationEngineTest(t)
	owner := createServiceTestUser(t, env.db, "batch")
	createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusPublished, 12000, 0)
	createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeEvent, constants.PricingClassFree, constants.ItemStatusPublished, 0, 5000)
	createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusPublished, 10, 0)
	createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusRejected, 90000, 0)
	createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, "bundle", constants.ItemStatusPublished, 90000, 0)

	engine := NewCertificationEngine(
		&missingItemRepo{ItemRepository: env.itemRepo},
		env.certRepo,
		env.settings,
		NewMetricAggregator(repository.NewSettlementRepository(env.db)),
		nil,
		CertificationEngineOptions{Defaults: testCertificationDefaults(), BatchSize: 2, Concurrency: 2},
	)

	core, logs := observer.New(zap.WarnLevel)
	previous := logger.L
	logger.L = zap.New(core)
	t.Cleanup(func() { logger.L = previous })

	summary, err := engine.EvaluateAll(context.Background(), false)
	if err != nil {
		t.Fatalf("evaluate all failed: %v", err)
	}
	if logs.FilterMessage("certification_item_missing").Len() != 1 {
		t.Fatalf("expected one missing-item log, got %d", logs.FilterMessage("certification_item_missing").Len())
	}
	if summary.Evaluated != 3 {
		t.Fatalf("expected 3 evaluated, got %d", summary.Evaluated)
	}
	if summary.Failed != 1 || len(summary.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %+v", summary)
	}
	if summary.Missing != 1 {
		t.Fatalf("expected 1 missing, got %d", summary.Missing)
	}
	if summary.Issued != 5 {
		t.Fatalf("expected 5 issued (3 + 2), got %d", summary.Issued)
	}

	var rejected int64
	if err := env.db.Model(&models.Certification{}).
		Joins("JOIN items ON items.id = certifications.item_id").
		Where("items.status = ?", constants.ItemStatusRejected).
		Count(&rejected).Error; err != nil {
		t.Fatalf("count rejected failed: %v", err)
	}
	if rejected != 0 {
		t.Fatalf("rejected items must not be certified")
	}
}

func TestCertificationEngineEvaluateAllRespectsCancellation(t *testing.T) {
	env := setupCertificationEngineTest(t)
	owner := createServiceTestUser(t, env.db, "cancel")
	createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusPublished, 12000, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := env.engine.EvaluateAll(ctx, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if !summary.Canceled || summary.Evaluated != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestCertificationEngineSetActive(t *testing.T) {
	env := setupCertificationEngineTest(t)
	owner := createServiceTestUser(t, env.db, "toggle")
	item := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusPublished, 1500, 0)

	result, err := env.engine.EvaluateItem(context.Background(), item.ID, false)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	certID := result.Issued[0].ID

	cert, err := env.engine.SetActive(certID, false)
	if err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if cert.IsActive {
		t.Fatalf("expected inactive certification")
	}

	again, err := env.engine.EvaluateItem(context.Background(), item.ID, false)
	if err != nil {
		t.Fatalf("re-evaluate failed: %v", err)
	}
	if len(again.Issued) != 0 {
		t.Fatalf("deactivated certification must not be re-issued")
	}

	cert, err = env.engine.SetActive(certID, true)
	if err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}
	if !cert.IsActive {
		t.Fatalf("expected active certification")
	}
	if _, err := env.engine.SetActive(424242, false); !errors.Is(err, ErrCertificationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
