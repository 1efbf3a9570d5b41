package walletview

import (
	"context"

	"github.com/gabapcia/walletcore/internal/pkg/stream"
	"github.com/gabapcia/walletcore/internal/walletsync"
)

// aggregateTransactions flattens the session's four transaction categories
// into a single list: cleared, then pending, then sent, then received, each
// category in the order the engine reported it. A transaction belonging to
// more than one category appears once per category.
//
// TODO: collapse duplicates once the engine exposes category membership on
// the transaction itself instead of four separate lists.
func aggregateTransactions(ctx context.Context, h walletsync.Handle, out *stream.Value[[]walletsync.Transaction]) {
	clearedCh, unsubCleared := h.ClearedTransactions().Subscribe()
	defer unsubCleared()
	pendingCh, unsubPending := h.PendingTransactions().Subscribe()
	defer unsubPending()
	sentCh, unsubSent := h.SentTransactions().Subscribe()
	defer unsubSent()
	receivedCh, unsubReceived := h.ReceivedTransactions().Subscribe()
	defer unsubReceived()

	var cleared, pending, sent, received []walletsync.Transaction

	emit := func() {
		combined := make([]walletsync.Transaction, 0, len(cleared)+len(pending)+len(sent)+len(received))
		combined = append(combined, cleared...)
		combined = append(combined, pending...)
		combined = append(combined, sent...)
		combined = append(combined, received...)
		out.Publish(combined)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-clearedCh:
			if !ok {
				return
			}
			cleared = v
			emit()
		case v, ok := <-pendingCh:
			if !ok {
				return
			}
			pending = v
			emit()
		case v, ok := <-sentCh:
			if !ok {
				return
			}
			sent = v
			emit()
		case v, ok := <-receivedCh:
			if !ok {
				return
			}
			received = v
			emit()
		}
	}
}
