package syncer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nvats/spliteasy/internal/models"
)

func TestRunReconnectLoop(t *testing.T) {
	cache := signedIn()
	cache.groups = []models.Group{*models.NewGroup("Trip", "alice1", nil)}
	queue := &fakeQueue{}
	queue.Enqueue(models.EntityExpense, "e1")
	remote := &fakeRemote{}

	var online atomic.Bool
	e := NewEngine(cache, queue, Options{
		Remote:    remote,
		Online:    online.Load,
		PaceDelay: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		e.RunReconnectLoop(ctx, ReconnectConfig{
			BackoffMin: time.Millisecond,
			BackoffMax: 5 * time.Millisecond,
		})
	}()

	// Stay offline for a few polling rounds; nothing should happen.
	time.Sleep(20 * time.Millisecond)
	if len(remote.Calls()) != 0 {
		t.Fatalf("expected no remote calls while offline, got %v", remote.Calls())
	}

	online.Store(true)

	deadline := time.After(2 * time.Second)
	for len(queue.Drain()) > 0 || cache.LastSyncTime().IsZero() {
		select {
		case <-deadline:
			t.Fatalf("reconnect never replayed and synced; calls: %v", remote.Calls())
		case <-time.After(time.Millisecond):
		}
	}

	// The queued delete replays before the full push.
	calls := remote.Calls()
	if calls[0] != "delete-expense:e1" {
		t.Errorf("expected the delete replay first, got %v", calls)
	}

	cancel()
	select {
	case <-loopDone:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on context cancellation")
	}
}
