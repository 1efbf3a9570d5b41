package walletsync

import (
	"context"
	"time"

	"github.com/gabapcia/walletcore/internal/pkg/stream"
	"github.com/gabapcia/walletcore/internal/secretvault"
)

// SyncStatus describes the overall state of the synchronizer engine.
type SyncStatus string

const (
	// StatusPreparing means the engine is initializing and not yet scanning.
	StatusPreparing SyncStatus = "preparing"

	// StatusSyncing means the engine is downloading and scanning blocks.
	StatusSyncing SyncStatus = "syncing"

	// StatusSynced means the engine is caught up with the chain tip.
	StatusSynced SyncStatus = "synced"

	// StatusDisconnected means the engine lost contact with its data source.
	StatusDisconnected SyncStatus = "disconnected"
)

// Progress reports how far the engine has scanned relative to the chain tip.
type Progress struct {
	ScannedHeight uint64 // Highest block height scanned so far
	ChainHeight   uint64 // Current chain tip height as known by the engine
}

// Amount is a balance or transaction value in the chain's smallest unit.
type Amount int64

// Transaction is the engine's view of a single wallet transaction.
type Transaction struct {
	ID              string    // Engine-assigned transaction identifier
	Amount          Amount    // Net value of the transaction for this wallet
	Fee             Amount    // Fee paid, when known
	Timestamp       time.Time // Block or submission time
	MinedHeight     *uint64   // Height the transaction was mined at; nil while unmined
	SubmitSucceeded bool      // Whether submission to the network succeeded
}

// IsPendingConfirmation reports whether the transaction was submitted
// successfully but has not been mined yet.
func (t Transaction) IsPendingConfirmation() bool {
	return t.SubmitSucceeded && t.MinedHeight == nil
}

// Handle is a live session with the synchronizer engine for one wallet
// secret. At most one handle is live at any instant; only the coordinator
// may construct or close one. All stream accessors stay valid until Close
// returns.
type Handle interface {
	// Status exposes the engine's overall sync state.
	Status() *stream.Value[SyncStatus]

	// Progress exposes scan progress relative to the chain tip.
	Progress() *stream.Value[Progress]

	// OrchardBalance exposes the orchard shielded pool balance.
	OrchardBalance() *stream.Value[Amount]

	// SaplingBalance exposes the sapling shielded pool balance.
	SaplingBalance() *stream.Value[Amount]

	// TransparentBalance exposes the transparent balance.
	TransparentBalance() *stream.Value[Amount]

	// PendingTransactions exposes transactions submitted but not yet final.
	PendingTransactions() *stream.Value[[]Transaction]

	// ClearedTransactions exposes transactions confirmed on chain.
	ClearedTransactions() *stream.Value[[]Transaction]

	// SentTransactions exposes outgoing transactions.
	SentTransactions() *stream.Value[[]Transaction]

	// ReceivedTransactions exposes incoming transactions.
	ReceivedTransactions() *stream.Value[[]Transaction]

	// Rescan restarts scanning from the engine's checkpoint. The engine
	// owns the checkpoint semantics.
	Rescan(ctx context.Context) error

	// Close tears the session down. It returns only once the engine has
	// fully released the wallet's on-disk state, so a replacement session
	// can be constructed safely.
	Close(ctx context.Context) error
}

// Engine constructs synchronizer sessions. It is implemented by an infra
// adapter talking to the actual synchronization engine.
type Engine interface {
	// Open starts a session for the given wallet secret. On failure no
	// session exists and the coordinator reports the absence of a handle.
	Open(ctx context.Context, secret secretvault.WalletSecret) (Handle, error)
}
