package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soundmarket/internal/constants"
	"github.com/soundmarket/internal/queue"
	"github.com/soundmarket/internal/repository"
)

type recordingStatusNotifier struct {
	mu     sync.Mutex
	events []ItemStatusChangedEvent
}

func (n *recordingStatusNotifier) NotifyItemStatusChanged(_ context.Context, event ItemStatusChangedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func setupItemServiceTest(t *testing.T) (*ItemService, *recordingStatusNotifier, certificationTestEnv) {
	t.Helper()
	env := setupCertificationEngineTest(t)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	t.Cleanup(func() {
		_ = queueClient.Close()
	})
	notifier := &recordingStatusNotifier{}
	return NewItemService(repository.NewItemRepository(env.db), notifier, queueClient), notifier, env
}

func TestItemServiceRecordCounters(t *testing.T) {
	svc, _, env := setupItemServiceTest(t)
	owner := createServiceTestUser(t, env.db, "counter")
	item := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusPublished, 999, 0)
	ctx := context.Background()

	if err := svc.RecordDownload(ctx, item.ID); err != nil {
		t.Fatalf("record download failed: %v", err)
	}
	if err := svc.RecordPlay(ctx, item.ID); err != nil {
		t.Fatalf("record play failed: %v", err)
	}
	got, err := svc.GetByID(item.ID)
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if got.DownloadCount != 1000 || got.PlayCount != 1 {
		t.Fatalf("unexpected counters: downloads=%d plays=%d", got.DownloadCount, got.PlayCount)
	}

	result, err := env.engine.EvaluateItem(ctx, item.ID, false)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if result.CurrentTier != constants.CertificationTierBronze {
		t.Fatalf("expected bronze after crossing threshold, got %q", result.CurrentTier)
	}

	if err := svc.RecordDownload(ctx, 123456); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestItemServiceUpdateStatusNotifiesOnReview(t *testing.T) {
	svc, notifier, env := setupItemServiceTest(t)
	owner := createServiceTestUser(t, env.db, "review")
	item := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeEvent, constants.PricingClassPaid, constants.ItemStatusPending, 0, 0)
	ctx := context.Background()

	updated, err := svc.UpdateStatus(ctx, item.ID, "Published", "")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if updated.Status != constants.ItemStatusPublished || updated.ReviewedAt == nil {
		t.Fatalf("unexpected item after approval: %+v", updated)
	}
	if _, err := svc.UpdateStatus(ctx, item.ID, constants.ItemStatusPublished, ""); err != nil {
		t.Fatalf("repeat approve failed: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, item.ID, constants.ItemStatusRejected, "copyright claim"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, item.ID, constants.ItemStatusUnpublished, ""); err != nil {
		t.Fatalf("unpublish failed: %v", err)
	}

	if len(notifier.events) != 2 {
		t.Fatalf("expected 2 review events, got %d", len(notifier.events))
	}
	if notifier.events[0].Status != constants.ItemStatusPublished || notifier.events[0].OwnerID != owner.ID {
		t.Fatalf("unexpected approval event: %+v", notifier.events[0])
	}
	if notifier.events[1].Status != constants.ItemStatusRejected || notifier.events[1].Reason != "copyright claim" {
		t.Fatalf("unexpected rejection event: %+v", notifier.events[1])
	}

	if _, err := svc.UpdateStatus(ctx, item.ID, "archived", ""); !errors.Is(err, ErrItemStatusInvalid) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 777777, constants.ItemStatusPublished, ""); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestItemServiceConcurrentApprovalNotifiesOnce(t *testing.T) {
	svc, notifier, env := setupItemServiceTest(t)
	owner := createServiceTestUser(t, env.db, "race")
	item := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusPending, 0, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.UpdateStatus(ctx, item.ID, constants.ItemStatusPublished, ""); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("approve failed: %v", err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.events) != 1 {
		t.Fatalf("expected exactly 1 approval event, got %d", len(notifier.events))
	}
}

func TestItemRepositoryUpdateStatusReportsTransition(t *testing.T) {
	_, _, env := setupItemServiceTest(t)
	owner := createServiceTestUser(t, env.db, "transition")
	item := createServiceTestItem(t, env.db, owner.ID, constants.ItemTypeSound, constants.PricingClassFree, constants.ItemStatusPending, 0, 0)

	changed, err := env.itemRepo.UpdateStatus(item.ID, constants.ItemStatusRejected, "noise", time.Now())
	if err != nil || !changed {
		t.Fatalf("first transition want changed, got changed=%v err=%v", changed, err)
	}
	changed, err = env.itemRepo.UpdateStatus(item.ID, constants.ItemStatusRejected, "still noisy", time.Now())
	if err != nil || changed {
		t.Fatalf("repeat transition want unchanged, got changed=%v err=%v", changed, err)
	}
	got, err := env.itemRepo.GetByID(item.ID)
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if got.ReviewReason != "still noisy" {
		t.Fatalf("repeat review must refresh reason, got %q", got.ReviewReason)
	}
}
