package worker

import (
	"context"
	"errors"
	"time"

	"github.com/soundmarket/internal/config"
	"github.com/soundmarket/internal/logger"
	"github.com/soundmarket/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultCertificationEvaluateInterval = time.Hour
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
	interval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
		interval: resolveEvaluateInterval(consumer),
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.CertificationEngine != nil {
		go s.runCertificationEvaluateLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func resolveEvaluateInterval(consumer *Consumer) time.Duration {
	if consumer == nil || consumer.Container == nil || consumer.Config == nil {
		return defaultCertificationEvaluateInterval
	}
	seconds := consumer.Config.Certification.EvaluateIntervalSeconds
	if seconds <= 0 {
		return defaultCertificationEvaluateInterval
	}
	return time.Duration(seconds) * time.Second
}

// runCertificationEvaluateLoop 定时全量评估认证，ctx 结束时中断当前批次
func (s *Service) runCertificationEvaluateLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.CertificationEngine == nil {
		return
	}
	runOnce := func() {
		summary, err := s.consumer.CertificationEngine.EvaluateAll(ctx, false)
		if err != nil {
			logger.Warnw("worker_certification_evaluate_loop_failed",
				"evaluated", summary.Evaluated,
				"canceled", summary.Canceled,
				"error", err,
			)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
