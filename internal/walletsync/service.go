// Package walletsync coordinates the lifecycle of the single synchronizer
// engine session. The coordinator watches the persisted wallet secret and
// keeps exactly one Handle live for it: replacing or wiping the secret tears
// the previous session down completely before a new one is constructed, so
// two engine sessions can never operate on the same on-disk state
// concurrently.
package walletsync

import (
	"context"
	"errors"
	"sync"

	"github.com/gabapcia/walletcore/internal/pkg/logger"
	"github.com/gabapcia/walletcore/internal/pkg/stream"
	"github.com/gabapcia/walletcore/internal/pkg/x/chflow"
	"github.com/gabapcia/walletcore/internal/secretvault"
)

var (
	// ErrServiceAlreadyStarted is returned if Start is called more than once.
	ErrServiceAlreadyStarted = errors.New("service already started")

	// ErrNoActiveWallet is returned by Rescan when no synchronizer session
	// is live.
	ErrNoActiveWallet = errors.New("no active wallet")
)

// SecretVault is the subset of the secret vault the coordinator consumes.
type SecretVault interface {
	// Secret exposes the persisted wallet secret; it publishes only when
	// the persisted secret itself changes.
	Secret() *stream.Value[*secretvault.WalletSecret]

	// Wipe erases the persisted secret.
	Wipe(ctx context.Context) error
}

// Service is the wallet coordinator: it owns the synchronizer session
// lifecycle and the handle observable consumed by the view layer.
type Service interface {
	// Start begins watching the persisted secret and managing the engine
	// session for it. Returns ErrServiceAlreadyStarted when called twice.
	Start(ctx context.Context) error

	// Handle exposes the live synchronizer session, or nil when none
	// exists (no wallet, or engine construction failed).
	Handle() *stream.Value[Handle]

	// Rescan asks the live session to restart scanning from its
	// checkpoint. Returns ErrNoActiveWallet when no session is live.
	Rescan(ctx context.Context) error

	// Wipe closes the live session, waits for the engine to release the
	// wallet state and only then erases the persisted secret.
	Wipe(ctx context.Context) error

	// Close stops the coordinator and closes the live session, if any.
	Close()
}

// service is the concrete implementation of the Service interface.
type service struct {
	engine Engine
	vault  SecretVault

	// mu serializes session construction, teardown and commands issued to
	// the live session, so a command can never reach a session that has
	// already been closed.
	mu            sync.Mutex
	isStarted     bool
	cancel        context.CancelFunc
	done          chan struct{}
	current       Handle
	currentSecret *secretvault.WalletSecret

	handle *stream.Value[Handle]
}

// Ensure compile-time compliance with the Service interface.
var _ Service = (*service)(nil)

// New creates a coordinator for the given engine and vault. Nothing runs
// until Start is called.
func New(engine Engine, vault SecretVault) *service {
	return &service{
		engine: engine,
		vault:  vault,
		handle: stream.NewValue[Handle](),
	}
}

// Start launches the watch loop reacting to persisted secret changes.
func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	secretCh, unsub := s.vault.Secret().Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer unsub()

		for {
			secret, ok := chflow.Receive(ctx, secretCh)
			if !ok {
				return
			}
			s.applySecret(ctx, secret)
		}
	}()

	s.cancel = cancel
	s.done = done
	s.isStarted = true
	return nil
}

// applySecret reconciles the live session with the given persisted secret.
// Backup flag changes never reach this point; only secret changes do.
func (s *service) applySecret(ctx context.Context, secret *secretvault.WalletSecret) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.currentSecret.Equal(secret) {
		return
	}

	s.closeCurrentLocked(ctx)
	s.currentSecret = secret

	if secret == nil {
		s.handle.Publish(nil)
		return
	}

	h, err := s.engine.Open(ctx, *secret)
	if err != nil {
		// A persisted secret without a live session is a distinct degraded
		// condition the UI surfaces; the coordinator reports no handle
		// rather than a broken one.
		logger.Error(ctx, "failed to open synchronizer session",
			"wallet.network", secret.Network,
			"error", err,
		)
		s.handle.Publish(nil)
		return
	}

	s.current = h
	s.handle.Publish(h)
}

// closeCurrentLocked tears the live session down and waits for the engine to
// release it. The caller must hold s.mu.
func (s *service) closeCurrentLocked(ctx context.Context) {
	if s.current == nil {
		return
	}

	if err := s.current.Close(ctx); err != nil {
		logger.Error(ctx, "failed to close synchronizer session", "error", err)
	}
	s.current = nil
}

// Handle exposes the live session observable.
func (s *service) Handle() *stream.Value[Handle] {
	return s.handle
}

// Rescan delegates to the live session. Holding mu across the delegation
// guarantees the session cannot be closed while the rescan call is in
// flight.
func (s *service) Rescan(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoActiveWallet
	}

	return s.current.Rescan(ctx)
}

// Wipe closes the live session, publishes its absence and erases the
// persisted secret. The session is fully released before the erase starts,
// so the engine can never be left doing I/O against an erased secret.
func (s *service) Wipe(ctx context.Context) error {
	s.mu.Lock()
	s.closeCurrentLocked(ctx)
	s.currentSecret = nil
	s.handle.Publish(nil)
	s.mu.Unlock()

	return s.vault.Wipe(ctx)
}

// Close stops the watch loop and the live session.
func (s *service) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	done := s.done
	s.done = nil
	s.mu.Unlock()

	// Wait for the watch loop outside the lock: it may be blocked on
	// applySecret, which needs mu.
	if done != nil {
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeCurrentLocked(context.Background())
	s.handle.Publish(nil)
	s.handle.Close()
	s.isStarted = false
}
