package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/models"
	"github.com/soundmarket/internal/queue"
	"github.com/soundmarket/internal/repository"
)

const notificationTitleMaxRunes = 255

// ItemStatusChangedEvent 作品审核状态变更事件
type ItemStatusChangedEvent struct {
	ItemID     uint
	OwnerID    uint
	ItemType   string
	Title      string
	Status     string
	Reason     string
	OccurredAt time.Time
}

// StatusNotifier 审核状态变更通知（投递后即返回）
type StatusNotifier interface {
	NotifyItemStatusChanged(ctx context.Context, event ItemStatusChangedEvent)
}

// QueueStatusNotifier 通过异步队列投递状态变更事件
// 队列不可用时直接交给 fallback 分发器，分发失败仅记录日志。
type QueueStatusNotifier struct {
	client   *queue.Client
	fallback *NotificationDispatcher
}

// NewQueueStatusNotifier 创建队列通知器
func NewQueueStatusNotifier(client *queue.Client, fallback *NotificationDispatcher) *QueueStatusNotifier {
	return &QueueStatusNotifier{client: client, fallback: fallback}
}

// NotifyItemStatusChanged 入队状态通知任务，失败仅记录日志
func (n *QueueStatusNotifier) NotifyItemStatusChanged(ctx context.Context, event ItemStatusChangedEvent) {
	if n == nil {
		return
	}
	if n.client == nil || !n.client.Enabled() {
		if n.fallback == nil {
			logger.Debugw("item_status_notify_skipped", "item_id", event.ItemID, "reason", "queue_disabled")
			return
		}
		if err := n.fallback.Dispatch(ctx, event); err != nil {
			logger.Warnw("item_status_notify_inline_failed", "item_id", event.ItemID, "status", event.Status, "error", err)
		}
		return
	}
	if err := n.client.EnqueueItemStatusNotify(queue.ItemStatusNotifyPayload{
		ItemID:     event.ItemID,
		OwnerID:    event.OwnerID,
		ItemType:   event.ItemType,
		Title:      event.Title,
		Status:     event.Status,
		Reason:     event.Reason,
		OccurredAt: event.OccurredAt,
	}); err != nil {
		logger.Warnw("item_status_notify_enqueue_failed", "item_id", event.ItemID, "status", event.Status, "error", err)
	}
}

// NotificationChannel 通知投递渠道
type NotificationChannel interface {
	Name() string
	Deliver(ctx context.Context, event ItemStatusChangedEvent) error
}

// DatabaseNotificationChannel 写入站内通知表
type DatabaseNotificationChannel struct {
	repo repository.NotificationRepository
}

// NewDatabaseNotificationChannel 创建站内通知渠道
func NewDatabaseNotificationChannel(repo repository.NotificationRepository) *DatabaseNotificationChannel {
	return &DatabaseNotificationChannel{repo: repo}
}

// Name 渠道名称
func (c *DatabaseNotificationChannel) Name() string {
	return constants.NotificationChannelDatabase
}

// Deliver 写入通知记录
func (c *DatabaseNotificationChannel) Deliver(_ context.Context, event ItemStatusChangedEvent) error {
	if event.OwnerID == 0 {
		return nil
	}
	eventType, title := describeItemStatusEvent(event)
	return c.repo.Create(&models.Notification{
		UserID:    event.OwnerID,
		EventType: eventType,
		Title:     truncateRunes(title, notificationTitleMaxRunes),
		DataJSON: models.JSON{
			"item_id":   event.ItemID,
			"item_type": event.ItemType,
			"status":    event.Status,
			"reason":    event.Reason,
		},
		CreatedAt: event.OccurredAt,
	})
}

// LogNotificationChannel 输出结构化日志
type LogNotificationChannel struct{}

// Name 渠道名称
func (LogNotificationChannel) Name() string {
	return constants.NotificationChannelLog
}

// Deliver 记录日志
func (LogNotificationChannel) Deliver(_ context.Context, event ItemStatusChangedEvent) error {
	eventType, title := describeItemStatusEvent(event)
	logger.Infow("item_status_notification",
		"event", eventType,
		"item_id", event.ItemID,
		"owner_id", event.OwnerID,
		"status", event.Status,
		"title", title,
	)
	return nil
}

// NotificationDispatcher 将事件分发到已配置的渠道
type NotificationDispatcher struct {
	channels []NotificationChannel
}

// NewNotificationDispatcher 按配置名称构建渠道列表，未知名称忽略
func NewNotificationDispatcher(names []string, notificationRepo repository.NotificationRepository) *NotificationDispatcher {
	dispatcher := &NotificationDispatcher{}
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		switch name {
		case constants.NotificationChannelDatabase:
			if notificationRepo == nil {
				continue
			}
			dispatcher.channels = append(dispatcher.channels, NewDatabaseNotificationChannel(notificationRepo))
		case constants.NotificationChannelLog:
			dispatcher.channels = append(dispatcher.channels, LogNotificationChannel{})
		default:
			logger.Warnw("notification_channel_unknown", "channel", raw)
		}
	}
	return dispatcher
}

// Channels 返回渠道名称
func (d *NotificationDispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, channel := range d.channels {
		names = append(names, channel.Name())
	}
	return names
}

// Dispatch 逐个渠道投递，所有渠道都失败时返回错误
func (d *NotificationDispatcher) Dispatch(ctx context.Context, event ItemStatusChangedEvent) error {
	if d == nil || len(d.channels) == 0 {
		return nil
	}
	var errs []error
	for _, channel := range d.channels {
		if err := channel.Deliver(ctx, event); err != nil {
			logger.Warnw("notification_channel_deliver_failed",
				"channel", channel.Name(),
				"item_id", event.ItemID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", channel.Name(), err))
		}
	}
	if len(errs) == len(d.channels) {
		return errors.Join(errs...)
	}
	return nil
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func describeItemStatusEvent(event ItemStatusChangedEvent) (string, string) {
	switch event.Status {
	case constants.ItemStatusPublished:
		return constants.NotificationEventItemApproved, fmt.Sprintf("Your %s \"%s\" has been approved", event.ItemType, event.Title)
	case constants.ItemStatusRejected:
		title := fmt.Sprintf("Your %s \"%s\" has been rejected", event.ItemType, event.Title)
		if reason := strings.TrimSpace(event.Reason); reason != "" {
			title += ": " + reason
		}
		return constants.NotificationEventItemRejected, title
	default:
		return "item_" + event.Status, fmt.Sprintf("Your %s \"%s\" is now %s", event.ItemType, event.Title, event.Status)
	}
}
