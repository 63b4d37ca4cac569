package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	var running int32
	var maxRunning int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), "item:1")
			if err != nil {
				t.Errorf("lock failed: %v", err)
				return
			}
			defer release()
			current := atomic.AddInt32(&running, 1)
			for {
				prev := atomic.LoadInt32(&maxRunning)
				if current <= prev || atomic.CompareAndSwapInt32(&maxRunning, prev, current) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		}()
	}
	wg.Wait()
	if maxRunning != 1 {
		t.Fatalf("expected serialized execution, max concurrent=%d", maxRunning)
	}
}

func TestLocalLockerHonorsContext(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Lock(context.Background(), "item:2")
	if err != nil {
		t.Fatalf("first lock failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "item:2"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	other, err := locker.Lock(context.Background(), "item:3")
	if err != nil {
		t.Fatalf("independent key should lock: %v", err)
	}
	other()
}

func TestNewLockerFallsBackToLocal(t *testing.T) {
	SetClient(nil, "")
	if _, ok := NewLocker(time.Second).(*LocalLocker); !ok {
		t.Fatalf("expected local locker when redis disabled")
	}
	if BuildKey("x") != "sm:x" {
		t.Fatalf("unexpected key: %s", BuildKey("x"))
	}
}
