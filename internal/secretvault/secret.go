package secretvault

import (
	"errors"

	bip39 "github.com/tyler-smith/go-bip39"
)

// ErrInvalidSeedPhrase indicates that a user-supplied seed phrase is not a
// valid mnemonic.
var ErrInvalidSeedPhrase = errors.New("invalid seed phrase")

// seedEntropyBits is the entropy size used for newly generated wallets,
// producing a 24-word mnemonic.
const seedEntropyBits = 256

// Network identifies which chain a wallet secret belongs to.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// Source records how a wallet secret came into existence.
type Source string

const (
	// SourceCreated marks a wallet generated on this device.
	SourceCreated Source = "created"

	// SourceRestored marks a wallet restored from a user-supplied seed phrase.
	SourceRestored Source = "restored"
)

// WalletSecret is the sensitive seed material of the one wallet this process
// manages, together with its network and provenance. At most one instance is
// persisted at any time; once persisted, the encrypted storage tier owns it
// and in-memory copies are transient.
type WalletSecret struct {
	SeedPhrase string  `validate:"required"`                        // Mnemonic seed phrase, never logged
	Network    Network `validate:"required,oneof=mainnet testnet"`  // Chain the wallet operates on
	Source     Source  `validate:"required,oneof=created restored"` // How the secret was obtained
	Birthday   uint64  // Block height the wallet was created or restored at; 0 means unknown
}

// Equal reports whether two secrets refer to the same persisted wallet.
// Either side may be nil.
func (s *WalletSecret) Equal(other *WalletSecret) bool {
	if s == nil || other == nil {
		return s == other
	}

	return s.SeedPhrase == other.SeedPhrase &&
		s.Network == other.Network &&
		s.Source == other.Source &&
		s.Birthday == other.Birthday
}

// GenerateSeedPhrase produces a new 24-word mnemonic from fresh entropy.
func GenerateSeedPhrase() (string, error) {
	entropy, err := bip39.NewEntropy(seedEntropyBits)
	if err != nil {
		return "", err
	}

	return bip39.NewMnemonic(entropy)
}

// ValidateSeedPhrase checks that a user-supplied phrase is a well-formed
// mnemonic. It returns ErrInvalidSeedPhrase when it is not.
func ValidateSeedPhrase(phrase string) error {
	if !bip39.IsMnemonicValid(phrase) {
		return ErrInvalidSeedPhrase
	}

	return nil
}

// SecretStateKind enumerates the states of the secret lifecycle as consumed
// by the UI layer.
type SecretStateKind uint8

const (
	// SecretStateLoading is the initial state before the persisted secret and
	// backup flag have been read for the first time.
	SecretStateLoading SecretStateKind = iota

	// SecretStateNone means no wallet secret is persisted.
	SecretStateNone

	// SecretStateNeedsBackup means a secret is persisted but the user has not
	// confirmed backing it up yet.
	SecretStateNeedsBackup

	// SecretStateReady means a secret is persisted and its backup has been
	// confirmed.
	SecretStateReady
)

// String returns a human-readable name for the state kind.
func (k SecretStateKind) String() string {
	switch k {
	case SecretStateLoading:
		return "loading"
	case SecretStateNone:
		return "none"
	case SecretStateNeedsBackup:
		return "needs_backup"
	case SecretStateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// SecretState is the derived state of the wallet secret lifecycle. Secret is
// populated only for the NeedsBackup and Ready kinds; in those kinds it may
// still be nil when the persisted bytes exist but cannot be decoded, since
// presence is reported independently of decodability.
type SecretState struct {
	Kind   SecretStateKind
	Secret *WalletSecret
}

// deriveState computes the SecretState from its two inputs. It is a pure
// function: loaded is false until both inputs have been read once, present
// tells whether secret bytes are persisted, secret carries the decoded value
// (nil when undecodable) and backedUp is the backup-complete flag.
func deriveState(loaded, present bool, secret *WalletSecret, backedUp bool) SecretState {
	switch {
	case !loaded:
		return SecretState{Kind: SecretStateLoading}
	case !present:
		return SecretState{Kind: SecretStateNone}
	case backedUp:
		return SecretState{Kind: SecretStateReady, Secret: secret}
	default:
		return SecretState{Kind: SecretStateNeedsBackup, Secret: secret}
	}
}
