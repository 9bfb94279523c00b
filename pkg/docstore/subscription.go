package docstore

import (
	"context"
	"sync"
	"sync/atomic"
)

// Subscription is the handle of a running watch. Whoever starts a watch owns
// the handle and must Close it; Close is safe to call more than once and
// from any goroutine. Once Close returns no listener call is running or will
// start, so a listener must not Close its own subscription or write to the
// collection it watches.
type Subscription struct {
	once      sync.Once
	mu        sync.RWMutex
	closed    atomic.Bool
	release   func()
	stopAfter func() bool
}

func newSubscription(ctx context.Context, release func()) *Subscription {
	s := &Subscription{release: release}
	s.stopAfter = context.AfterFunc(ctx, s.Close)
	return s
}

// Close stops deliveries and releases the underlying watch exactly once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		s.mu.Unlock()
		if s.stopAfter != nil {
			s.stopAfter()
		}
		if s.release != nil {
			s.release()
		}
	})
}

func (s *Subscription) Active() bool {
	return !s.closed.Load()
}

func (s *Subscription) deliver(fn Listener, docs []*Document) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return
	}
	fn(docs)
}

// Scope owns a set of subscriptions and releases them together, mirroring the
// lifetime of whatever screen or request started them.
type Scope struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

func NewScope() *Scope {
	return &Scope{}
}

// Track hands sub to the scope. A sub tracked after Close is closed at once.
func (sc *Scope) Track(sub *Subscription) *Subscription {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		sub.Close()
		return sub
	}
	sc.subs = append(sc.subs, sub)
	sc.mu.Unlock()
	return sub
}

func (sc *Scope) Close() {
	sc.mu.Lock()
	subs := sc.subs
	sc.subs = nil
	sc.closed = true
	sc.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (sc *Scope) Len() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.subs)
}
