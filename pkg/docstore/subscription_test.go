package docstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitInactive(sub *Subscription) {
	deadline := time.Now().Add(time.Second)
	for sub.Active() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
}

func TestSubscription_ReleasesOnce(t *testing.T) {
	var released atomic.Int32
	sub := newSubscription(context.Background(), func() { released.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Close()
		}()
	}
	wg.Wait()

	if got := released.Load(); got != 1 {
		t.Errorf("release called %d times, want 1", got)
	}
}

func TestSubscription_DeliverAfterClose(t *testing.T) {
	sub := newSubscription(context.Background(), nil)
	calls := 0
	fn := func([]*Document) { calls++ }

	sub.deliver(fn, nil)
	sub.Close()
	sub.deliver(fn, nil)

	if calls != 1 {
		t.Errorf("listener called %d times, want 1", calls)
	}
}

func TestSubscription_NoCallbackAfterCloseWithConcurrentWriters(t *testing.T) {
	for i := 0; i < 200; i++ {
		store := NewMemoryStore()
		ctx, cancel := context.WithCancel(context.Background())

		var closed, late atomic.Bool
		sub, err := store.Watch(context.Background(), "appointments", func([]*Document) {
			if closed.Load() {
				late.Store(true)
			}
		})
		if err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for n := 0; ctx.Err() == nil; n++ {
					_ = store.Set(context.Background(), Path("appointments").Child(fmt.Sprintf("a%d-%d", w, n%8)), map[string]any{"n": n})
				}
			}(w)
		}

		time.Sleep(200 * time.Microsecond)
		sub.Close()
		closed.Store(true)
		time.Sleep(200 * time.Microsecond)
		cancel()
		wg.Wait()

		if late.Load() {
			t.Fatalf("iteration %d: listener ran after Close returned", i)
		}
	}
}

func TestScope_ClosesTrackedSubscriptions(t *testing.T) {
	s := NewMemoryStore()
	scope := NewScope()
	ctx := context.Background()

	for _, c := range []Path{"appointments", "users/u1/appointments"} {
		sub, err := s.Watch(ctx, c, func([]*Document) {})
		if err != nil {
			t.Fatalf("Watch() error = %v", err)
		}
		scope.Track(sub)
	}
	if scope.Len() != 2 || s.WatcherCount() != 2 {
		t.Fatalf("Len() = %d, WatcherCount() = %d", scope.Len(), s.WatcherCount())
	}

	scope.Close()
	scope.Close()

	if scope.Len() != 0 || s.WatcherCount() != 0 {
		t.Errorf("after Close: Len() = %d, WatcherCount() = %d", scope.Len(), s.WatcherCount())
	}

	late, _ := s.Watch(ctx, "appointments", func([]*Document) {})
	scope.Track(late)
	if late.Active() || s.WatcherCount() != 0 {
		t.Error("subscription tracked by a closed scope stayed open")
	}
}
