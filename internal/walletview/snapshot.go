package walletview

import (
	"context"

	"github.com/gabapcia/walletcore/internal/pkg/stream"
	"github.com/gabapcia/walletcore/internal/walletsync"
)

// WalletSnapshot is the combined wallet state shown on the main screen. It
// is rebuilt whole on every underlying change; consumers never receive a
// partially initialized snapshot.
type WalletSnapshot struct {
	Status             walletsync.SyncStatus // Overall synchronizer state
	Progress           walletsync.Progress   // Scan progress relative to the chain tip
	OrchardBalance     walletsync.Amount     // Orchard shielded pool balance
	SaplingBalance     walletsync.Amount     // Sapling shielded pool balance
	TransparentBalance walletsync.Amount     // Transparent balance
	PendingCount       int                   // Transactions submitted but not yet mined
}

// countPendingConfirmation counts transactions that were submitted
// successfully but have not been mined yet.
func countPendingConfirmation(txs []walletsync.Transaction) int {
	var count int
	for _, tx := range txs {
		if tx.IsPendingConfirmation() {
			count++
		}
	}
	return count
}

// Readiness bits for the snapshot sources.
const (
	readyStatus = 1 << iota
	readyProgress
	readyOrchard
	readySapling
	readyTransparent
	readyPending

	readyAll = readyStatus | readyProgress | readyOrchard | readySapling | readyTransparent | readyPending
)

// aggregateSnapshot combines the session's six state sources into a single
// snapshot stream. Nothing is emitted until every source has produced at
// least one value; after that, every single-source change emits a fresh
// snapshot. It runs until ctx is cancelled or the session's streams close.
func aggregateSnapshot(ctx context.Context, h walletsync.Handle, out *stream.Value[*WalletSnapshot]) {
	statusCh, unsubStatus := h.Status().Subscribe()
	defer unsubStatus()
	progressCh, unsubProgress := h.Progress().Subscribe()
	defer unsubProgress()
	orchardCh, unsubOrchard := h.OrchardBalance().Subscribe()
	defer unsubOrchard()
	saplingCh, unsubSapling := h.SaplingBalance().Subscribe()
	defer unsubSapling()
	transparentCh, unsubTransparent := h.TransparentBalance().Subscribe()
	defer unsubTransparent()
	pendingCh, unsubPending := h.PendingTransactions().Subscribe()
	defer unsubPending()

	var (
		ready   int
		current WalletSnapshot
	)
	emit := func() {
		if ready != readyAll {
			return
		}
		snapshot := current
		out.Publish(&snapshot)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-statusCh:
			if !ok {
				return
			}
			current.Status = v
			ready |= readyStatus
			emit()
		case v, ok := <-progressCh:
			if !ok {
				return
			}
			current.Progress = v
			ready |= readyProgress
			emit()
		case v, ok := <-orchardCh:
			if !ok {
				return
			}
			current.OrchardBalance = v
			ready |= readyOrchard
			emit()
		case v, ok := <-saplingCh:
			if !ok {
				return
			}
			current.SaplingBalance = v
			ready |= readySapling
			emit()
		case v, ok := <-transparentCh:
			if !ok {
				return
			}
			current.TransparentBalance = v
			ready |= readyTransparent
			emit()
		case v, ok := <-pendingCh:
			if !ok {
				return
			}
			current.PendingCount = countPendingConfirmation(v)
			ready |= readyPending
			emit()
		}
	}
}
