package service

import (
	"context"
	"strings"
	"time"

	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/queue"
	"github.com/soundmarket/internal/repository"

	"github.com/hibiken/asynq"
)

// counterEvaluateDebounce 同一作品计数触发评估的去重窗口
const counterEvaluateDebounce = time.Minute

// ItemService 作品计数与审核服务
type ItemService struct {
	repo        repository.ItemRepository
	notifier    StatusNotifier
	queueClient *queue.Client
}

// NewItemService 创建作品服务
func NewItemService(repo repository.ItemRepository, notifier StatusNotifier, queueClient *queue.Client) *ItemService {
	return &ItemService{repo: repo, notifier: notifier, queueClient: queueClient}
}

// GetByID 获取作品
func (s *ItemService) GetByID(id uint) (*models.Item, error) {
	item, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// RecordDownload 原子递增下载次数
func (s *ItemService) RecordDownload(ctx context.Context, itemID uint) error {
	return s.incrementCounter(ctx, itemID, "download_count")
}

// RecordPlay 原子递增播放次数
func (s *ItemService) RecordPlay(ctx context.Context, itemID uint) error {
	return s.incrementCounter(ctx, itemID, "play_count")
}

func (s *ItemService) incrementCounter(_ context.Context, itemID uint, column string) error {
	if itemID == 0 {
		return ErrItemNotFound
	}
	affected, err := s.repo.IncrementCounter(itemID, column)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	s.enqueueEvaluate(itemID, asynq.Unique(counterEvaluateDebounce))
	return nil
}

// UpdateStatus 更新作品审核状态，通过或驳回时发出状态变更事件
func (s *ItemService) UpdateStatus(ctx context.Context, itemID uint, status, reason string) (*models.Item, error) {
	normalized := strings.ToLower(strings.TrimSpace(status))
	switch normalized {
	case constants.ItemStatusPending, constants.ItemStatusPublished, constants.ItemStatusRejected, constants.ItemStatusUnpublished:
	default:
		return nil, ErrItemStatusInvalid
	}
	item, err := s.repo.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	previous := item.Status
	now := time.Now()
	changed, err := s.repo.UpdateStatus(item.ID, normalized, reason, now)
	if err != nil {
		return nil, err
	}
	logger.Infow("item_status_updated",
		"item_id", item.ID,
		"from", previous,
		"to", normalized,
		"changed", changed,
	)

	// 只有完成状态迁移的调用发出事件
	if changed && (normalized == constants.ItemStatusPublished || normalized == constants.ItemStatusRejected) {
		if s.notifier != nil {
			s.notifier.NotifyItemStatusChanged(ctx, ItemStatusChangedEvent{
				ItemID:     item.ID,
				OwnerID:    item.OwnerID,
				ItemType:   item.ItemType,
				Title:      item.Title,
				Status:     normalized,
				Reason:     strings.TrimSpace(reason),
				OccurredAt: now,
			})
		}
		if normalized == constants.ItemStatusPublished {
			s.enqueueEvaluate(item.ID)
		}
	}
	return s.repo.GetByID(item.ID)
}

func (s *ItemService) enqueueEvaluate(itemID uint, opts ...asynq.Option) {
	if s.queueClient == nil {
		return
	}
	if err := s.queueClient.EnqueueCertificationEvaluate(queue.CertificationEvaluatePayload{ItemID: itemID}, opts...); err != nil {
		logger.Warnw("item_enqueue_certification_failed", "item_id", itemID, "error", err)
	}
}
