package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/repository"

	"github.com/shopspring/decimal"
)

func TestCommissionPolicyResolveRateFallback(t *testing.T) {
	db := setupServiceTestDB(t, "commission_policy_test")
	policy := NewCommissionPolicy(repository.NewCommissionSettingRepository(db), testCommissionConfig())
	ctx := context.Background()

	fallback := decimal.RequireFromString("12.5")
	if got := policy.ResolveRate(ctx, constants.CommissionKeySound, fallback); !got.Equal(fallback) {
		t.Fatalf("missing setting must return fallback, got %s", got.String())
	}
	if got := policy.ResolveRate(ctx, "", fallback); !got.Equal(fallback) {
		t.Fatalf("empty key must return fallback, got %s", got.String())
	}

	if _, err := policy.SetRate(ctx, constants.CommissionKeySound, decimal.NewFromInt(7), true, "ops"); err != nil {
		t.Fatalf("set rate failed: %v", err)
	}
	if got := policy.ResolveRate(ctx, constants.CommissionKeySound, fallback); !got.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected stored rate 7, got %s", got.String())
	}

	rate, err := policy.RateForItemType(ctx, constants.ItemTypeEvent)
	if err != nil {
		t.Fatalf("rate for event failed: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected event default 10, got %s", rate.String())
	}
	if _, err := policy.RateForItemType(ctx, "album"); !errors.Is(err, ErrItemTypeInvalid) {
		t.Fatalf("expected item type invalid, got %v", err)
	}
}

func TestCommissionPolicySetRateValidation(t *testing.T) {
	db := setupServiceTestDB(t, "commission_policy_validate_test")
	policy := NewCommissionPolicy(repository.NewCommissionSettingRepository(db), testCommissionConfig())
	ctx := context.Background()

	cases := []struct {
		name string
		key  string
		rate string
		want error
	}{
		{name: "above 100", key: constants.CommissionKeySound, rate: "100.01", want: ErrCommissionRateInvalid},
		{name: "negative", key: constants.CommissionKeyEvent, rate: "-1", want: ErrCommissionRateInvalid},
		{name: "unknown key", key: "album_commission", rate: "5", want: ErrCommissionKeyInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := policy.SetRate(ctx, tc.key, decimal.RequireFromString(tc.rate), true, "ops")
			if !errors.Is(err, tc.want) || !errors.Is(err, ErrValidation) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	for _, boundary := range []string{"0", "100"} {
		if _, err := policy.SetRate(ctx, constants.CommissionKeyEvent, decimal.RequireFromString(boundary), true, "ops"); err != nil {
			t.Fatalf("boundary rate %s must be accepted: %v", boundary, err)
		}
	}
}

func TestCommissionPolicyList(t *testing.T) {
	db := setupServiceTestDB(t, "commission_policy_list_test")
	policy := NewCommissionPolicy(repository.NewCommissionSettingRepository(db), testCommissionConfig())
	ctx := context.Background()

	if _, err := policy.SetRate(ctx, constants.CommissionKeyEvent, decimal.NewFromInt(25), false, "ops"); err != nil {
		t.Fatalf("set rate failed: %v", err)
	}
	views, err := policy.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(views))
	}
	sound, event := views[0], views[1]
	if sound.Rate != nil || !sound.EffectiveRate.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("unexpected sound view: %+v", sound)
	}
	if event.Rate == nil || !event.Rate.Equal(decimal.NewFromInt(25)) || event.IsActive {
		t.Fatalf("unexpected event view: %+v", event)
	}
	if !event.EffectiveRate.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("inactive rate must resolve to default, got %s", event.EffectiveRate.String())
	}
}

type memoryVersionedStore struct {
	mu       sync.Mutex
	values   map[string][]byte
	versions map[string]int64
}

func newMemoryVersionedStore() *memoryVersionedStore {
	return &memoryVersionedStore{values: map[string][]byte{}, versions: map[string]int64{}}
}

func (s *memoryVersionedStore) Version(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[key], nil
}

func (s *memoryVersionedStore) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (s *memoryVersionedStore) SetJSONIfVersion(_ context.Context, key string, version int64, value interface{}, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[key] != version {
		return false, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	s.values[key] = raw
	return true, nil
}

func (s *memoryVersionedStore) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[key]++
	delete(s.values, key)
	return nil
}

// interleavingCommissionRepo 在第一次读取返回前执行 onRead，模拟读写交错
type interleavingCommissionRepo struct {
	repository.CommissionSettingRepository
	onRead func()
	fired  bool
}

func (r *interleavingCommissionRepo) GetByKey(key string) (*models.CommissionSetting, error) {
	setting, err := r.CommissionSettingRepository.GetByKey(key)
	if !r.fired && r.onRead != nil {
		r.fired = true
		r.onRead()
	}
	return setting, err
}

func TestCommissionPolicyCacheServesHitsAndDropsStaleFill(t *testing.T) {
	db := setupServiceTestDB(t, "commission_policy_cache_test")
	ctx := context.Background()
	cfg := testCommissionConfig()
	cfg.RateCacheSeconds = 60
	store := newMemoryVersionedStore()

	base := repository.NewCommissionSettingRepository(db)
	seed := NewCommissionPolicy(base, cfg)
	seed.rateCache = store
	if _, err := seed.SetRate(ctx, constants.CommissionKeySound, decimal.NewFromInt(15), true, "ops"); err != nil {
		t.Fatalf("seed rate failed: %v", err)
	}

	repo := &interleavingCommissionRepo{CommissionSettingRepository: base}
	policy := NewCommissionPolicy(repo, cfg)
	policy.rateCache = store
	repo.onRead = func() {
		if _, err := policy.SetRate(ctx, constants.CommissionKeySound, decimal.NewFromInt(30), true, "ops"); err != nil {
			t.Errorf("set rate failed: %v", err)
		}
	}

	// 回源读到旧值 15，回填时版本已变化
	if got := policy.ResolveRate(ctx, constants.CommissionKeySound, decimal.Zero); !got.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("in-flight read want 15 got %s", got.String())
	}
	if got := policy.ResolveRate(ctx, constants.CommissionKeySound, decimal.Zero); !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("rate after update want 30 got %s", got.String())
	}

	// 绕过策略直接改库，命中缓存时仍返回缓存值
	if err := db.Model(&models.CommissionSetting{}).
		Where("key = ?", constants.CommissionKeySound).
		Update("rate", models.NewMoneyFromDecimal(decimal.NewFromInt(40))).Error; err != nil {
		t.Fatalf("direct update failed: %v", err)
	}
	if got := policy.ResolveRate(ctx, constants.CommissionKeySound, decimal.Zero); !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("cached rate want 30 got %s", got.String())
	}
	if _, err := policy.SetRate(ctx, constants.CommissionKeySound, decimal.NewFromInt(20), true, "ops"); err != nil {
		t.Fatalf("set rate failed: %v", err)
	}
	if got := policy.ResolveRate(ctx, constants.CommissionKeySound, decimal.Zero); !got.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("rate after second update want 20 got %s", got.String())
	}
}
