package secretvault

import (
	"context"
	"errors"
)

var (
	// ErrSecretNotFound is returned by SecretStorage.Load when no wallet
	// secret is persisted.
	ErrSecretNotFound = errors.New("wallet secret not found")

	// ErrSecretCorrupted is returned by SecretStorage.Load when secret bytes
	// are persisted but cannot be decoded. The secret still counts as
	// present for state derivation; only consumers that need the decoded
	// material fail.
	ErrSecretCorrupted = errors.New("wallet secret corrupted")
)

// SecretStorage is the encrypted persistence tier for the wallet secret.
//
// Implementations must encrypt at rest and must make Save atomic: a reader
// never observes a partially written secret.
type SecretStorage interface {
	// Load returns the persisted wallet secret. It returns ErrSecretNotFound
	// when nothing is persisted and ErrSecretCorrupted when bytes are
	// persisted but cannot be decoded.
	Load(ctx context.Context) (*WalletSecret, error)

	// Save persists the wallet secret, replacing any previous value.
	Save(ctx context.Context, secret WalletSecret) error

	// Delete erases the persisted wallet secret. Deleting an absent secret
	// is not an error.
	Delete(ctx context.Context) error
}

// FlagStorage is the standard (non-encrypted) persistence tier for
// non-sensitive wallet flags.
type FlagStorage interface {
	// BackupComplete reports whether the user has confirmed backing up the
	// seed phrase. It defaults to false when the flag was never written.
	BackupComplete(ctx context.Context) (bool, error)

	// SetBackupComplete records whether the seed phrase backup has been
	// confirmed.
	SetBackupComplete(ctx context.Context, complete bool) error
}

// BackgroundScheduler enables background synchronization work after a wallet
// secret has been persisted. The call is fire-and-forget from the vault's
// perspective: failures are logged and never roll back the persisted secret.
type BackgroundScheduler interface {
	EnableBackgroundSync(ctx context.Context, network Network) error
}
