// Package walletview produces the UI-facing observables derived from the
// live synchronizer session: a combined wallet snapshot and a flat
// transaction history. Both pipelines run only while observed; they are
// started on the first subscription and torn down a grace period after the
// last one detaches.
package walletview

import (
	"context"
	"time"

	"github.com/gabapcia/walletcore/internal/pkg/stream"
	"github.com/gabapcia/walletcore/internal/pkg/x/chflow"
	"github.com/gabapcia/walletcore/internal/walletsync"
)

// HandleSource is the subset of the wallet coordinator the view layer
// consumes.
type HandleSource interface {
	// Handle exposes the live synchronizer session, or nil when none
	// exists.
	Handle() *stream.Value[walletsync.Handle]
}

// Service exposes the derived wallet observables.
type Service interface {
	// Snapshot subscribes to the combined wallet snapshot. A nil snapshot
	// means no synchronizer session is live.
	Snapshot() (<-chan *WalletSnapshot, stream.UnsubscribeFunc)

	// Transactions subscribes to the flat transaction history. A nil
	// slice means no synchronizer session is live.
	Transactions() (<-chan []walletsync.Transaction, stream.UnsubscribeFunc)

	// Close tears both pipelines down permanently.
	Close()
}

// Option customizes the view service.
type Option func(*config)

type config struct {
	sharedOpts []stream.SharedOption
}

// WithGracePeriod overrides how long the derived pipelines keep running
// after their last observer detaches.
func WithGracePeriod(d time.Duration) Option {
	return func(c *config) {
		c.sharedOpts = append(c.sharedOpts, stream.WithGracePeriod(d))
	}
}

// service is the concrete implementation of the Service interface.
type service struct {
	snapshots    *stream.Shared[*WalletSnapshot]
	transactions *stream.Shared[[]walletsync.Transaction]
}

// Ensure compile-time compliance with the Service interface.
var _ Service = (*service)(nil)

// New creates the view service on top of the coordinator's handle
// observable. No pipeline runs until something subscribes.
func New(handles HandleSource, opts ...Option) *service {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	return &service{
		snapshots: stream.NewShared(func(ctx context.Context, out *stream.Value[*WalletSnapshot]) {
			go supervise(ctx, handles.Handle(), out, nil, aggregateSnapshot)
		}, cfg.sharedOpts...),
		transactions: stream.NewShared(func(ctx context.Context, out *stream.Value[[]walletsync.Transaction]) {
			go supervise(ctx, handles.Handle(), out, nil, aggregateTransactions)
		}, cfg.sharedOpts...),
	}
}

func (s *service) Snapshot() (<-chan *WalletSnapshot, stream.UnsubscribeFunc) {
	return s.snapshots.Subscribe()
}

func (s *service) Transactions() (<-chan []walletsync.Transaction, stream.UnsubscribeFunc) {
	return s.transactions.Subscribe()
}

func (s *service) Close() {
	s.snapshots.Close()
	s.transactions.Close()
}

// supervise reacts to handle changes: it publishes the absent value while no
// session is live and runs one aggregator goroutine per live session,
// stopping it fully before the next session's aggregator starts.
func supervise[T any](
	ctx context.Context,
	handles *stream.Value[walletsync.Handle],
	out *stream.Value[T],
	absent T,
	aggregate func(ctx context.Context, h walletsync.Handle, out *stream.Value[T]),
) {
	handleCh, unsub := handles.Subscribe()
	defer unsub()

	var (
		cancel context.CancelFunc
		done   chan struct{}
	)
	stop := func() {
		if cancel != nil {
			cancel()
			<-done
			cancel = nil
		}
	}
	defer stop()

	for {
		h, ok := chflow.Receive(ctx, handleCh)
		if !ok {
			return
		}

		stop()
		if h == nil {
			out.Publish(absent)
			continue
		}

		aggCtx, aggCancel := context.WithCancel(ctx)
		aggDone := make(chan struct{})
		go func() {
			defer close(aggDone)
			aggregate(aggCtx, h, out)
		}()
		cancel = aggCancel
		done = aggDone
	}
}
