package stream

import (
	"context"
	"sync"
	"time"
)

// defaultGracePeriod is how long a Shared keeps its pipeline running after
// the last observer detaches. Transient unsubscribe/resubscribe churn (e.g. a
// UI screen being rebuilt) stays within this window and reuses the running
// pipeline instead of tearing it down and starting over.
const defaultGracePeriod = 5 * time.Second

// StartFunc launches a producer pipeline publishing into out. It must return
// promptly, spawning goroutines for ongoing work, and the pipeline must stop
// all of its work when ctx is cancelled.
type StartFunc[T any] func(ctx context.Context, out *Value[T])

// Shared is a reference-counted wrapper around a producer pipeline. The
// pipeline is started when the first observer subscribes, kept alive while at
// least one observer remains, and torn down only after a grace period has
// elapsed with no observers. A new subscription after teardown rebuilds the
// pipeline from scratch.
type Shared[T any] struct {
	mu        sync.Mutex
	start     StartFunc[T]
	grace     time.Duration
	refs      int
	out       *Value[T]
	cancel    context.CancelFunc
	stopTimer *time.Timer
	isClosed  bool
}

// SharedOption customizes a Shared before first use.
type SharedOption func(*sharedConfig)

type sharedConfig struct {
	grace time.Duration
}

// WithGracePeriod overrides how long the pipeline keeps running after the
// last observer detaches.
//
// Default: 5 seconds.
func WithGracePeriod(d time.Duration) SharedOption {
	return func(c *sharedConfig) {
		c.grace = d
	}
}

// NewShared creates a Shared around the given pipeline start function. The
// pipeline is not started until the first Subscribe call.
func NewShared[T any](start StartFunc[T], opts ...SharedOption) *Shared[T] {
	cfg := sharedConfig{grace: defaultGracePeriod}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Shared[T]{
		start: start,
		grace: cfg.grace,
	}
}

// Subscribe attaches an observer, starting the underlying pipeline if it is
// not already running. The returned channel behaves like Value.Subscribe:
// latest item replayed first, subsequent items conflated. The returned
// UnsubscribeFunc releases the observer's reference; when the last reference
// is released the pipeline is stopped after the grace period.
func (s *Shared[T]) Subscribe() (<-chan T, UnsubscribeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	if s.stopTimer != nil {
		s.stopTimer.Stop()
		s.stopTimer = nil
	}

	if s.out == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.out = NewValue[T]()
		s.cancel = cancel
		s.start(ctx, s.out)
	}

	s.refs++
	ch, unsub := s.out.Subscribe()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			unsub()
			s.release()
		})
	}
}

// release drops one observer reference and schedules pipeline teardown when
// none remain.
func (s *Shared[T]) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs--
	if s.refs > 0 || s.out == nil || s.isClosed {
		return
	}

	out := s.out
	s.stopTimer = time.AfterFunc(s.grace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		// A new subscriber may have raced the timer.
		if s.refs > 0 || s.out != out {
			return
		}

		s.teardownLocked()
	})
}

// teardownLocked stops the running pipeline. The caller must hold s.mu.
func (s *Shared[T]) teardownLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.out != nil {
		s.out.Close()
		s.out = nil
	}
	if s.stopTimer != nil {
		s.stopTimer.Stop()
		s.stopTimer = nil
	}
}

// Close stops the pipeline immediately, regardless of attached observers, and
// prevents any future subscriptions. Intended for application shutdown.
func (s *Shared[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isClosed = true
	s.teardownLocked()
}
