package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/repository"
)

// MetricSource 认证指标来源
type MetricSource interface {
	Name() string
	Value(ctx context.Context, item *models.Item) (int64, error)
}

// MetricReading 一次指标读取结果
type MetricReading struct {
	Source string `json:"source"`
	Value  int64  `json:"value"`
}

type downloadsMetricSource struct{}

func (downloadsMetricSource) Name() string { return constants.MetricSourceDownloads }

func (downloadsMetricSource) Value(_ context.Context, item *models.Item) (int64, error) {
	return item.DownloadCount, nil
}

type playsMetricSource struct{}

func (playsMetricSource) Name() string { return constants.MetricSourcePlays }

func (playsMetricSource) Value(_ context.Context, item *models.Item) (int64, error) {
	return item.PlayCount, nil
}

// salesMetricSource 读时统计已完成的结算笔数
type salesMetricSource struct {
	repo repository.SettlementRepository
}

func (salesMetricSource) Name() string { return constants.MetricSourceSales }

func (s salesMetricSource) Value(_ context.Context, item *models.Item) (int64, error) {
	return s.repo.CountCompletedByItem(item.ItemType, item.ID)
}

// MetricAggregator 按 (作品类型, 计价类型) 选择指标来源
type MetricAggregator struct {
	sources map[string]MetricSource
}

// NewMetricAggregator 创建指标聚合器并注册内置来源
func NewMetricAggregator(settlementRepo repository.SettlementRepository) *MetricAggregator {
	aggregator := &MetricAggregator{sources: make(map[string]MetricSource)}
	aggregator.Register(downloadsMetricSource{})
	aggregator.Register(playsMetricSource{})
	if settlementRepo != nil {
		aggregator.Register(salesMetricSource{repo: settlementRepo})
	}
	return aggregator
}

// Register 注册或替换指标来源
func (a *MetricAggregator) Register(source MetricSource) {
	if source == nil {
		return
	}
	a.sources[strings.ToLower(source.Name())] = source
}

// CurrentMetric 读取作品当前指标值，mapping 为 "type:pricing_class" -> 来源名
func (a *MetricAggregator) CurrentMetric(ctx context.Context, item *models.Item, mapping map[string]string) (MetricReading, error) {
	if item == nil {
		return MetricReading{}, ErrItemNotFound
	}
	key := MetricSourceKey(item.ItemType, item.PricingClass)
	name, ok := mapping[key]
	if !ok {
		return MetricReading{}, fmt.Errorf("%w: %s", ErrMetricSourceUnsupported, key)
	}
	source, ok := a.sources[strings.ToLower(name)]
	if !ok {
		return MetricReading{}, fmt.Errorf("%w: %s", ErrMetricSourceUnsupported, name)
	}
	value, err := source.Value(ctx, item)
	if err != nil {
		return MetricReading{}, err
	}
	if value < 0 {
		value = 0
	}
	return MetricReading{Source: source.Name(), Value: value}, nil
}
