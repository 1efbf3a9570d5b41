// Package secretvault owns the persisted wallet secret and the backup
// confirmation flag. It serializes every write to the two storage tiers
// behind a single mutex so that concurrent user actions can never tear the
// (secret, backup flag) pair, and it derives the wallet secret lifecycle
// state consumed by the UI layer from those two inputs.
package secretvault

import (
	"context"
	"errors"
	"sync"

	"github.com/gabapcia/walletcore/internal/pkg/logger"
	"github.com/gabapcia/walletcore/internal/pkg/resilience/retry"
	"github.com/gabapcia/walletcore/internal/pkg/stream"
	"github.com/gabapcia/walletcore/internal/pkg/validation"
)

var (
	// ErrServiceAlreadyStarted is returned if Start is called more than once.
	ErrServiceAlreadyStarted = errors.New("service already started")

	// ErrWalletExists is returned when creating or restoring a wallet while
	// a secret is already persisted. The existing wallet must be wiped
	// first.
	ErrWalletExists = errors.New("wallet already exists")

	// ErrNoWalletSecret is returned when confirming a backup while no wallet
	// secret is persisted.
	ErrNoWalletSecret = errors.New("no wallet secret persisted")
)

// Service owns the wallet secret lifecycle: creation, restore, backup
// confirmation and wipe, plus the derived SecretState observable.
type Service interface {
	// Start reads the persisted secret and backup flag once and begins
	// publishing the derived SecretState. Before Start completes, observers
	// see SecretStateLoading.
	Start(ctx context.Context) error

	// CreateWallet generates a fresh seed phrase for the given network and
	// persists it. It returns ErrWalletExists when a secret is already
	// persisted. The returned secret is the only chance to show the seed
	// phrase to the user before backup confirmation.
	CreateWallet(ctx context.Context, network Network) (*WalletSecret, error)

	// RestoreWallet persists a wallet from a user-supplied seed phrase. A
	// restored wallet is considered backed up already, so the backup flag is
	// written true in the same exclusive section, after the secret itself.
	RestoreWallet(ctx context.Context, seedPhrase string, network Network, birthday uint64) (*WalletSecret, error)

	// ConfirmBackup records that the user has confirmed backing up the seed
	// phrase. It returns ErrNoWalletSecret when no secret is persisted, so
	// the flag can never be observed true without a secret.
	ConfirmBackup(ctx context.Context) error

	// Wipe erases the persisted secret and resets the backup flag. Wiping
	// when no wallet exists is a no-op.
	Wipe(ctx context.Context) error

	// State exposes the derived secret lifecycle state as a live observable.
	State() *stream.Value[SecretState]

	// Secret exposes the persisted wallet secret as a live observable. It
	// publishes only when the persisted secret itself changes, never on
	// backup flag changes; nil means no secret is persisted.
	Secret() *stream.Value[*WalletSecret]

	// Close terminates the observables. Pending writes complete first.
	Close()
}

// service is the concrete implementation of the Service interface.
type service struct {
	secretStorage SecretStorage
	flagStorage   FlagStorage
	scheduler     BackgroundScheduler
	retry         retry.Retry

	// writeMu is the persistence sequencer: it serializes every write to
	// the two storage tiers and guards the cached pair below. It is held
	// only across storage writes, never across the background scheduler
	// call or any synchronizer engine call.
	writeMu   sync.Mutex
	isStarted bool
	loaded    bool
	present   bool
	current   *WalletSecret
	backedUp  bool

	state  *stream.Value[SecretState]
	secret *stream.Value[*WalletSecret]
}

// Ensure compile-time compliance with the Service interface.
var _ Service = (*service)(nil)

// config holds optional settings for the vault service.
type config struct {
	retry retry.Retry
}

// Option customizes the vault service.
type Option func(*config)

// WithRetry sets the retry policy applied to the background sync enablement
// trigger. Without it the trigger is attempted once.
func WithRetry(r retry.Retry) Option {
	return func(c *config) {
		c.retry = r
	}
}

// New creates the vault service on top of the two storage tiers and the
// background-work scheduler. Observers attached before Start see
// SecretStateLoading.
func New(secretStorage SecretStorage, flagStorage FlagStorage, scheduler BackgroundScheduler, opts ...Option) *service {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &service{
		secretStorage: secretStorage,
		flagStorage:   flagStorage,
		scheduler:     scheduler,
		retry:         cfg.retry,
		state:         stream.NewValue[SecretState](),
		secret:        stream.NewValue[*WalletSecret](),
	}
	s.state.Publish(SecretState{Kind: SecretStateLoading})

	return s
}

// Start reads both persistence tiers once and publishes the initial state.
func (s *service) Start(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.isStarted {
		return ErrServiceAlreadyStarted
	}

	secret, err := s.secretStorage.Load(ctx)
	switch {
	case err == nil:
		s.present, s.current = true, secret
	case errors.Is(err, ErrSecretNotFound):
		s.present, s.current = false, nil
	case errors.Is(err, ErrSecretCorrupted):
		// The secret counts as present; only consumers needing the decoded
		// material are affected.
		logger.Warn(ctx, "persisted wallet secret cannot be decoded", "error", err)
		s.present, s.current = true, nil
	default:
		return err
	}

	backedUp, err := s.flagStorage.BackupComplete(ctx)
	if err != nil {
		return err
	}
	s.backedUp = backedUp

	s.isStarted = true
	s.loaded = true
	s.publishStateLocked()
	s.secret.Publish(s.current)
	return nil
}

// CreateWallet generates and persists a brand new wallet secret.
func (s *service) CreateWallet(ctx context.Context, network Network) (*WalletSecret, error) {
	phrase, err := GenerateSeedPhrase()
	if err != nil {
		return nil, err
	}

	secret := &WalletSecret{
		SeedPhrase: phrase,
		Network:    network,
		Source:     SourceCreated,
	}

	return secret, s.persistWallet(ctx, secret, false)
}

// RestoreWallet persists a wallet recovered from a user-supplied seed phrase.
func (s *service) RestoreWallet(ctx context.Context, seedPhrase string, network Network, birthday uint64) (*WalletSecret, error) {
	if err := ValidateSeedPhrase(seedPhrase); err != nil {
		return nil, err
	}

	secret := &WalletSecret{
		SeedPhrase: seedPhrase,
		Network:    network,
		Source:     SourceRestored,
		Birthday:   birthday,
	}

	return secret, s.persistWallet(ctx, secret, true)
}

// persistWallet validates the secret, writes it under the sequencer lock and
// then, with the lock released, triggers background sync enablement.
func (s *service) persistWallet(ctx context.Context, secret *WalletSecret, markBackedUp bool) error {
	if err := validation.Validate(*secret); err != nil {
		return err
	}

	if err := s.writeSecret(ctx, secret, markBackedUp); err != nil {
		return err
	}

	// The persisted secret is authoritative: a failure to enable background
	// sync is logged and never rolls it back.
	s.enableBackgroundSync(ctx, secret.Network)
	return nil
}

// writeSecret performs the exclusive write section of a wallet persist. The
// secret is always written before the backup flag, so no observer can see
// the flag true without a persisted secret.
func (s *service) writeSecret(ctx context.Context, secret *WalletSecret, markBackedUp bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.present {
		return ErrWalletExists
	}

	if err := s.secretStorage.Save(ctx, *secret); err != nil {
		return err
	}
	s.present, s.current = true, secret

	var flagErr error
	if markBackedUp {
		if flagErr = s.flagStorage.SetBackupComplete(ctx, true); flagErr == nil {
			s.backedUp = true
		}
	}

	s.publishStateLocked()
	s.secret.Publish(s.current)

	// The secret write is authoritative even when the flag write failed;
	// the caller decides whether to retry confirming the backup.
	return flagErr
}

// ConfirmBackup flips the backup-complete flag for the persisted wallet.
func (s *service) ConfirmBackup(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.present {
		return ErrNoWalletSecret
	}

	if err := s.flagStorage.SetBackupComplete(ctx, true); err != nil {
		return err
	}

	s.backedUp = true
	s.publishStateLocked()
	return nil
}

// Wipe erases the wallet. The flag is reset before the secret is deleted so
// that no observer can ever see backup-complete true while no secret exists.
func (s *service) Wipe(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.present {
		return nil
	}

	if err := s.flagStorage.SetBackupComplete(ctx, false); err != nil {
		return err
	}
	s.backedUp = false

	if err := s.secretStorage.Delete(ctx); err != nil {
		s.publishStateLocked()
		return err
	}

	s.present, s.current = false, nil
	s.publishStateLocked()
	s.secret.Publish(nil)
	return nil
}

// State exposes the derived secret lifecycle state.
func (s *service) State() *stream.Value[SecretState] {
	return s.state
}

// Secret exposes the persisted wallet secret.
func (s *service) Secret() *stream.Value[*WalletSecret] {
	return s.secret
}

// Close terminates both observables.
func (s *service) Close() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.state.Close()
	s.secret.Close()
}

// publishStateLocked recomputes and publishes the derived state. The caller
// must hold writeMu.
func (s *service) publishStateLocked() {
	s.state.Publish(deriveState(s.loaded, s.present, s.current, s.backedUp))
}

// enableBackgroundSync fires the post-persist background work trigger. It
// runs outside the sequencer lock; errors are logged and swallowed.
func (s *service) enableBackgroundSync(ctx context.Context, network Network) {
	operation := func() error {
		return s.scheduler.EnableBackgroundSync(ctx, network)
	}

	var err error
	if s.retry != nil {
		err = s.retry.Execute(ctx, operation)
	} else {
		err = operation()
	}

	if err != nil {
		logger.Error(ctx, "failed to enable background sync",
			"wallet.network", network,
			"error", err,
		)
	}
}
