package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupSettlementRepositoryTest(t *testing.T) (*GormSettlementRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:settlement_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Settlement{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewSettlementRepository(db), db
}

func newTestSettlement(txID string, sellerID uint, itemType string, itemID uint, amount, seller, commission string, settledAt time.Time) *models.Settlement {
	return &models.Settlement{
		TransactionID:    txID,
		BuyerID:          900,
		SellerID:         sellerID,
		ItemType:         itemType,
		ItemID:           itemID,
		Amount:           models.NewMoneyFromDecimal(decimal.RequireFromString(amount)),
		SellerAmount:     models.NewMoneyFromDecimal(decimal.RequireFromString(seller)),
		CommissionAmount: models.NewMoneyFromDecimal(decimal.RequireFromString(commission)),
		CommissionRate:   models.NewMoneyFromDecimal(decimal.RequireFromString("15")),
		Currency:         constants.CurrencyDefault,
		Status:           constants.SettlementStatusCompleted,
		SettledAt:        settledAt,
	}
}

func TestSettlementRepositoryCreateDuplicateTransaction(t *testing.T) {
	repo, _ := setupSettlementRepositoryTest(t)
	now := time.Now().UTC()

	if err := repo.Create(newTestSettlement("tx-1", 1, constants.ItemTypeSound, 10, "3000", "2550", "450", now)); err != nil {
		t.Fatalf("create settlement failed: %v", err)
	}
	err := repo.Create(newTestSettlement("tx-1", 1, constants.ItemTypeSound, 10, "10", "8.5", "1.5", now))
	if err == nil {
		t.Fatalf("expected duplicate transaction error")
	}
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	got, err := repo.GetByTransactionID("tx-1")
	if err != nil {
		t.Fatalf("get settlement failed: %v", err)
	}
	if got == nil || !got.Amount.Equal(decimal.RequireFromString("3000")) {
		t.Fatalf("unexpected settlement: %+v", got)
	}
	missing, err := repo.GetByTransactionID("tx-missing")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing transaction, got %+v err=%v", missing, err)
	}
}

func TestSettlementRepositoryMarkRefundedOnlyOnce(t *testing.T) {
	repo, _ := setupSettlementRepositoryTest(t)
	now := time.Now().UTC()
	if err := repo.Create(newTestSettlement("tx-refund", 1, constants.ItemTypeEvent, 3, "100", "90", "10", now)); err != nil {
		t.Fatalf("create settlement failed: %v", err)
	}

	affected, err := repo.MarkRefunded("tx-refund", "chargeback", now)
	if err != nil {
		t.Fatalf("mark refunded failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row affected, got %d", affected)
	}
	affected, err = repo.MarkRefunded("tx-refund", "again", now)
	if err != nil {
		t.Fatalf("second mark refunded failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected second refund to be a no-op, got %d", affected)
	}

	got, err := repo.GetByTransactionID("tx-refund")
	if err != nil {
		t.Fatalf("get settlement failed: %v", err)
	}
	if got.Status != constants.SettlementStatusRefunded || got.RefundReason != "chargeback" || got.RefundedAt == nil {
		t.Fatalf("unexpected refunded settlement: %+v", got)
	}
	if !got.CommissionAmount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("refund must not change amounts, got %s", got.CommissionAmount.String())
	}
}

func TestSettlementRepositoryAggregates(t *testing.T) {
	repo, _ := setupSettlementRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	rows := []*models.Settlement{
		newTestSettlement("tx-a", 1, constants.ItemTypeSound, 10, "3000", "2550", "450", now.Add(-2*time.Hour)),
		newTestSettlement("tx-b", 1, constants.ItemTypeSound, 10, "10.01", "8.51", "1.50", now.Add(-time.Hour)),
		newTestSettlement("tx-c", 1, constants.ItemTypeEvent, 20, "200", "180", "20", now),
		newTestSettlement("tx-d", 2, constants.ItemTypeSound, 11, "50", "42.50", "7.50", now),
	}
	for _, row := range rows {
		if err := repo.Create(row); err != nil {
			t.Fatalf("create settlement %s failed: %v", row.TransactionID, err)
		}
	}
	if _, err := repo.MarkRefunded("tx-c", "refund", now); err != nil {
		t.Fatalf("mark refunded failed: %v", err)
	}

	count, err := repo.CountCompletedByItem(constants.ItemTypeSound, 10)
	if err != nil {
		t.Fatalf("count completed failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 completed sales, got %d", count)
	}
	count, err = repo.CountCompletedByItem(constants.ItemTypeEvent, 20)
	if err != nil {
		t.Fatalf("count completed failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("refunded sales must not count, got %d", count)
	}

	seller, err := repo.SumBySeller(1)
	if err != nil {
		t.Fatalf("sum by seller failed: %v", err)
	}
	if seller.Count != 2 {
		t.Fatalf("expected 2 completed settlements, got %d", seller.Count)
	}
	if !seller.Amount.Equal(decimal.RequireFromString("3010.01")) {
		t.Fatalf("unexpected seller amount total: %s", seller.Amount.String())
	}
	if !seller.SellerAmount.Equal(decimal.RequireFromString("2558.51")) {
		t.Fatalf("unexpected seller revenue: %s", seller.SellerAmount.String())
	}
	if !seller.SellerAmount.Add(seller.CommissionAmount).Equal(seller.Amount) {
		t.Fatalf("aggregate must keep seller + commission == amount")
	}

	byType, err := repo.SumByItemType(nil, nil)
	if err != nil {
		t.Fatalf("sum by item type failed: %v", err)
	}
	if len(byType) != 1 || byType[0].ItemType != constants.ItemTypeSound {
		t.Fatalf("expected only sound totals, got %+v", byType)
	}
	if !byType[0].CommissionAmount.Equal(decimal.RequireFromString("459")) {
		t.Fatalf("unexpected commission total: %s", byType[0].CommissionAmount.String())
	}

	from := now.Add(-90 * time.Minute)
	windowed, err := repo.SumByItemType(&from, nil)
	if err != nil {
		t.Fatalf("sum by item type window failed: %v", err)
	}
	if len(windowed) != 1 || windowed[0].Count != 2 {
		t.Fatalf("unexpected windowed totals: %+v", windowed)
	}
}

func TestSettlementRepositoryListFilters(t *testing.T) {
	repo, _ := setupSettlementRepositoryTest(t)
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		row := newTestSettlement(fmt.Sprintf("tx-list-%d", i), uint(1+i%2), constants.ItemTypeSound, 10, "10", "8.50", "1.50", now)
		if err := repo.Create(row); err != nil {
			t.Fatalf("create settlement failed: %v", err)
		}
	}

	rows, total, err := repo.List(SettlementListFilter{Page: 1, PageSize: 2, SellerID: 1})
	if err != nil {
		t.Fatalf("list settlements failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 settlements for seller 1, got %d", total)
	}
	if len(rows) != 2 {
		t.Fatalf("expected page size 2, got %d", len(rows))
	}
	if rows[0].ID < rows[1].ID {
		t.Fatalf("expected id desc order")
	}
}

func TestSettlementRepositoryListFiltersBySettledAt(t *testing.T) {
	repo, _ := setupSettlementRepositoryTest(t)
	lastMonth := time.Now().UTC().AddDate(0, -1, 0)
	if err := repo.Create(newTestSettlement("tx-old", 1, constants.ItemTypeSound, 10, "10", "8.50", "1.50", lastMonth)); err != nil {
		t.Fatalf("create settlement failed: %v", err)
	}
	if err := repo.Create(newTestSettlement("tx-new", 1, constants.ItemTypeSound, 10, "10", "8.50", "1.50", time.Now().UTC())); err != nil {
		t.Fatalf("create settlement failed: %v", err)
	}

	// 两条记录都是刚插入的，只有 settled_at 不同
	from := lastMonth.Add(-time.Hour)
	to := lastMonth.Add(time.Hour)
	rows, total, err := repo.List(SettlementListFilter{Page: 1, PageSize: 10, SettledFrom: &from, SettledTo: &to})
	if err != nil {
		t.Fatalf("list settlements failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].TransactionID != "tx-old" {
		t.Fatalf("expected only tx-old in range, got total=%d rows=%+v", total, rows)
	}
}
