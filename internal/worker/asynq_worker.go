package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/provider"
	"github.com/soundmarket/internal/queue"
	"github.com/soundmarket/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCertificationEvaluate, c.handleCertificationEvaluate)
	mux.HandleFunc(queue.TaskCertificationEvaluateAll, c.handleCertificationEvaluateAll)
	mux.HandleFunc(queue.TaskItemStatusNotify, c.handleItemStatusNotify)
}

func (c *Consumer) handleCertificationEvaluate(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_certification_evaluate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CertificationEvaluatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_certification_evaluate_unmarshal_failed", "error", err)
		return err
	}
	if payload.ItemID == 0 {
		logger.Debugw("worker_certification_evaluate_skip_invalid_payload", "item_id", payload.ItemID)
		return nil
	}
	if c.CertificationEngine == nil {
		logger.Warnw("worker_certification_evaluate_skip_engine_nil", "item_id", payload.ItemID)
		return nil
	}
	result, err := c.CertificationEngine.EvaluateItem(ctx, payload.ItemID, payload.Force)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			logger.Debugw("worker_certification_evaluate_skip_item_not_found", "item_id", payload.ItemID)
			return nil
		case errors.Is(err, service.ErrValidation):
			logger.Warnw("worker_certification_evaluate_skip_invalid", "item_id", payload.ItemID, "error", err)
			return nil
		default:
			logger.Warnw("worker_certification_evaluate_failed", "item_id", payload.ItemID, "error", err)
			return err
		}
	}
	logger.Debugw("worker_certification_evaluate_done",
		"item_id", result.ItemID,
		"skipped", result.Skipped,
		"current_tier", result.CurrentTier,
		"issued", len(result.Issued),
		"refreshed", result.Refreshed,
	)
	return nil
}

func (c *Consumer) handleCertificationEvaluateAll(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_certification_evaluate_all_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CertificationEvaluateAllPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_certification_evaluate_all_unmarshal_failed", "error", err)
		return err
	}
	if c.CertificationEngine == nil {
		logger.Warnw("worker_certification_evaluate_all_skip_engine_nil")
		return nil
	}
	summary, err := c.CertificationEngine.EvaluateAll(ctx, payload.Force)
	if err != nil {
		logger.Warnw("worker_certification_evaluate_all_failed",
			"requested_by", payload.RequestedBy,
			"evaluated", summary.Evaluated,
			"canceled", summary.Canceled,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleItemStatusNotify(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_item_status_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ItemStatusNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_item_status_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.ItemID == 0 {
		logger.Debugw("worker_item_status_notify_skip_invalid_payload", "item_id", payload.ItemID)
		return nil
	}
	if c.NotificationDispatcher == nil {
		logger.Warnw("worker_item_status_notify_skip_dispatcher_nil", "item_id", payload.ItemID)
		return nil
	}
	event := service.ItemStatusChangedEvent{
		ItemID:     payload.ItemID,
		OwnerID:    payload.OwnerID,
		ItemType:   payload.ItemType,
		Title:      payload.Title,
		Status:     payload.Status,
		Reason:     payload.Reason,
		OccurredAt: payload.OccurredAt,
	}
	if err := c.NotificationDispatcher.Dispatch(ctx, event); err != nil {
		logger.Warnw("worker_item_status_notify_failed", "item_id", payload.ItemID, "status", payload.Status, "error", err)
		return err
	}
	return nil
}
