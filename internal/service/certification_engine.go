package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/soundmarket/internal/cache"
	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/repository"

	"golang.org/x/sync/errgroup"
)

const (
	certificateNumberPrefix     = "CERT"
	certificateNumberRandomSize = 10
	certificateNumberMaxAttempt = 5
	certificationLockPrefix     = "certification:item:"
	defaultEvaluateBatchSize    = 200
	defaultEvaluateConcurrency  = 4
)

// EvaluationResult 单个作品的评估结果
type EvaluationResult struct {
	ItemID       uint                   `json:"item_id"`
	Skipped      bool                   `json:"skipped"`
	SkipReason   string                 `json:"skip_reason,omitempty"`
	MetricSource string                 `json:"metric_source,omitempty"`
	MetricValue  int64                  `json:"metric_value"`
	CurrentTier  string                 `json:"current_tier,omitempty"`
	Issued       []models.Certification `json:"issued"`
	Refreshed    int                    `json:"refreshed"`
}

// EvaluationFailure 批量评估中的单项失败
type EvaluationFailure struct {
	ItemID uint   `json:"item_id"`
	Error  string `json:"error"`
}

// EvaluationSummary 批量评估汇总
type EvaluationSummary struct {
	Evaluated  int                 `json:"evaluated"`
	Skipped    int                 `json:"skipped"`
	Missing    int                 `json:"missing"`
	Failed     int                 `json:"failed"`
	Issued     int                 `json:"issued"`
	Refreshed  int                 `json:"refreshed"`
	Canceled   bool                `json:"canceled"`
	Failures   []EvaluationFailure `json:"failures,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// CertificationEngineOptions 认证引擎运行参数
type CertificationEngineOptions struct {
	Defaults    CertificationSetting
	BatchSize   int
	Concurrency int
}

// CertificationEngine 认证评估引擎
type CertificationEngine struct {
	itemRepo       repository.ItemRepository
	certRepo       repository.CertificationRepository
	settingService *SettingService
	aggregator     *MetricAggregator
	locker         cache.Locker
	defaults       CertificationSetting
	batchSize      int
	concurrency    int
	now            func() time.Time
}

// NewCertificationEngine 创建认证引擎
func NewCertificationEngine(
	itemRepo repository.ItemRepository,
	certRepo repository.CertificationRepository,
	settingService *SettingService,
	aggregator *MetricAggregator,
	locker cache.Locker,
	opts CertificationEngineOptions,
) *CertificationEngine {
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultEvaluateBatchSize
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultEvaluateConcurrency
	}
	return &CertificationEngine{
		itemRepo:       itemRepo,
		certRepo:       certRepo,
		settingService: settingService,
		aggregator:     aggregator,
		locker:         locker,
		defaults:       opts.Defaults,
		batchSize:      batchSize,
		concurrency:    concurrency,
		now:            time.Now,
	}
}

// Setting 返回当前生效的认证配置
func (e *CertificationEngine) Setting() (CertificationSetting, error) {
	return e.settingService.GetCertificationSetting(e.defaults)
}

// Defaults 返回启动配置中的认证默认值
func (e *CertificationEngine) Defaults() CertificationSetting {
	return e.defaults
}

// EvaluateItem 评估单个作品并补发已达成的等级认证
func (e *CertificationEngine) EvaluateItem(ctx context.Context, itemID uint, force bool) (*EvaluationResult, error) {
	if itemID == 0 {
		return nil, ErrItemNotFound
	}
	release, err := e.locker.Lock(ctx, fmt.Sprintf("%s%d", certificationLockPrefix, itemID))
	if err != nil {
		return nil, err
	}
	defer release()

	item, err := e.itemRepo.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	result := &EvaluationResult{ItemID: item.ID, Issued: []models.Certification{}}
	if item.Status != constants.ItemStatusPublished {
		result.Skipped = true
		result.SkipReason = "not_published"
		return result, nil
	}

	setting, err := e.Setting()
	if err != nil {
		return nil, err
	}
	reading, err := e.aggregator.CurrentMetric(ctx, item, setting.MetricSources)
	if err != nil {
		return nil, err
	}
	result.MetricSource = reading.Source
	result.MetricValue = reading.Value

	reached := reachedTiers(setting.OrderedTiers(), reading.Value)
	if len(reached) == 0 {
		return result, nil
	}
	result.CurrentTier = reached[len(reached)-1].Tier

	existing, err := e.certRepo.ListByItem(item.ID)
	if err != nil {
		return nil, err
	}
	byTier := make(map[string]models.Certification, len(existing))
	for _, cert := range existing {
		byTier[cert.Tier] = cert
	}

	now := e.now()
	for _, tier := range reached {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if cert, ok := byTier[tier.Tier]; ok {
			if !force {
				continue
			}
			if err := e.certRepo.UpdateMetric(cert.ID, reading.Value, tier.Threshold, reading.Source, now); err != nil {
				return result, err
			}
			result.Refreshed++
			continue
		}
		cert, created, err := e.issue(item, tier, reading, now)
		if err != nil {
			return result, err
		}
		if !created {
			continue
		}
		result.Issued = append(result.Issued, *cert)
		logger.Infow("certification_issued",
			"item_id", item.ID,
			"tier", cert.Tier,
			"certificate_number", cert.CertificateNumber,
			"metric_source", cert.MetricSource,
			"metric_value", cert.MetricValue,
		)
	}
	return result, nil
}

// issue 生成证书编号并写入，编号冲突时重试
func (e *CertificationEngine) issue(item *models.Item, tier TierThreshold, reading MetricReading, now time.Time) (*models.Certification, bool, error) {
	for attempt := 0; attempt < certificateNumberMaxAttempt; attempt++ {
		number, err := generateCertificateNumber(now)
		if err != nil {
			return nil, false, err
		}
		cert := &models.Certification{
			ItemID:            item.ID,
			OwnerID:           item.OwnerID,
			Tier:              tier.Tier,
			TierRank:          tier.Rank,
			ThresholdReached:  tier.Threshold,
			MetricValue:       reading.Value,
			MetricSource:      reading.Source,
			CertificateNumber: number,
			AchievedAt:        now,
			IsActive:          true,
		}
		created, err := e.certRepo.CreateIfAbsent(cert)
		if err == nil {
			return cert, created, nil
		}
		if !repository.IsUniqueViolation(err) {
			return nil, false, err
		}
		logger.Warnw("certificate_number_collision", "item_id", item.ID, "tier", tier.Tier, "attempt", attempt+1)
	}
	return nil, false, ErrCertificateNumberExhausted
}

// EvaluateAll 分批评估所有已发布作品，单项失败计入汇总不会中断整体
func (e *CertificationEngine) EvaluateAll(ctx context.Context, force bool) (EvaluationSummary, error) {
	summary := EvaluationSummary{StartedAt: e.now()}
	var mu sync.Mutex
	var cursor uint

	for {
		if err := ctx.Err(); err != nil {
			summary.Canceled = true
			summary.FinishedAt = e.now()
			return summary, err
		}
		ids, err := e.itemRepo.ListPublishedIDsAfter(cursor, e.batchSize)
		if err != nil {
			summary.FinishedAt = e.now()
			return summary, err
		}
		if len(ids) == 0 {
			break
		}
		cursor = ids[len(ids)-1]

		var group errgroup.Group
		group.SetLimit(e.concurrency)
		for _, id := range ids {
			itemID := id
			group.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				result, err := e.EvaluateItem(ctx, itemID, force)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					if result.Skipped {
						summary.Skipped++
						return nil
					}
					summary.Evaluated++
					summary.Issued += len(result.Issued)
					summary.Refreshed += result.Refreshed
				case errors.Is(err, ErrItemNotFound):
					summary.Missing++
					logger.Warnw("certification_item_missing", "item_id", itemID)
				case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
					summary.Canceled = true
				default:
					summary.Failed++
					summary.Failures = append(summary.Failures, EvaluationFailure{ItemID: itemID, Error: err.Error()})
					logger.Warnw("certification_item_evaluate_failed", "item_id", itemID, "error", err)
				}
				return nil
			})
		}
		_ = group.Wait()

		if len(ids) < e.batchSize {
			break
		}
	}

	summary.FinishedAt = e.now()
	if err := ctx.Err(); err != nil {
		summary.Canceled = true
		return summary, err
	}
	logger.Infow("certification_evaluate_all_finished",
		"evaluated", summary.Evaluated,
		"skipped", summary.Skipped,
		"missing", summary.Missing,
		"failed", summary.Failed,
		"issued", summary.Issued,
		"refreshed", summary.Refreshed,
		"force", force,
	)
	return summary, nil
}

// SetActive 启用或停用认证（记录保留）
func (e *CertificationEngine) SetActive(id uint, active bool) (*models.Certification, error) {
	cert, err := e.certRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, ErrCertificationNotFound
	}
	if cert.IsActive != active {
		if _, err := e.certRepo.SetActive(cert.ID, active, e.now()); err != nil {
			return nil, err
		}
		logger.Infow("certification_active_changed",
			"certification_id", cert.ID,
			"certificate_number", cert.CertificateNumber,
			"is_active", active,
		)
	}
	return e.certRepo.GetByID(cert.ID)
}

// List 查询认证列表
func (e *CertificationEngine) List(filter repository.CertificationListFilter) ([]models.Certification, int64, error) {
	return e.certRepo.List(filter)
}

// ListByItem 查询作品的全部认证
func (e *CertificationEngine) ListByItem(itemID uint) ([]models.Certification, error) {
	return e.certRepo.ListByItem(itemID)
}

// GetByNumber 按证书编号查询认证
func (e *CertificationEngine) GetByNumber(number string) (*models.Certification, error) {
	cert, err := e.certRepo.GetByNumber(number)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, ErrCertificationNotFound
	}
	return cert, nil
}

// reachedTiers 返回指标值已达到的全部等级（门槛按升序）
func reachedTiers(tiers []TierThreshold, value int64) []TierThreshold {
	result := make([]TierThreshold, 0, len(tiers))
	for _, tier := range tiers {
		if value < tier.Threshold {
			break
		}
		result = append(result, tier)
	}
	return result
}

func generateCertificateNumber(now time.Time) (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(certificateNumberRandomSize)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < certificateNumberRandomSize; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return fmt.Sprintf("%s-%s-%s", certificateNumberPrefix, now.UTC().Format("20060102"), builder.String()), nil
}
