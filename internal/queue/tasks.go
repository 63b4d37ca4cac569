package queue

import (
	"encoding/json"
	"time"

	"github.com/soundmarket/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCertificationEvaluate 单个作品认证评估任务
	TaskCertificationEvaluate = constants.TaskCertificationEvaluate
	// TaskCertificationEvaluateAll 全量认证评估任务
	TaskCertificationEvaluateAll = constants.TaskCertificationEvaluateAll
	// TaskItemStatusNotify 作品审核状态通知任务
	TaskItemStatusNotify = constants.TaskItemStatusNotify
)

// CertificationEvaluatePayload 单个作品认证评估任务载荷
type CertificationEvaluatePayload struct {
	ItemID uint `json:"item_id"`
	Force  bool `json:"force"`
}

// CertificationEvaluateAllPayload 全量认证评估任务载荷
type CertificationEvaluateAllPayload struct {
	Force       bool   `json:"force"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// ItemStatusNotifyPayload 作品审核状态通知任务载荷
type ItemStatusNotifyPayload struct {
	ItemID     uint      `json:"item_id"`
	OwnerID    uint      `json:"owner_id"`
	ItemType   string    `json:"item_type"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewCertificationEvaluateTask 创建单个作品认证评估任务
func NewCertificationEvaluateTask(payload CertificationEvaluatePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCertificationEvaluate, body), nil
}

// NewCertificationEvaluateAllTask 创建全量认证评估任务
func NewCertificationEvaluateAllTask(payload CertificationEvaluateAllPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCertificationEvaluateAll, body), nil
}

// NewItemStatusNotifyTask 创建作品审核状态通知任务
func NewItemStatusNotifyTask(payload ItemStatusNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskItemStatusNotify, body), nil
}
