package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gabapcia/walletcore/internal/pkg/logger"
	"github.com/gabapcia/walletcore/internal/pkg/stream"
	"github.com/gabapcia/walletcore/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/walletcore/internal/walletsync"
)

type (
	// statusResult is the daemon's response to sync_status.
	statusResult struct {
		Status        walletsync.SyncStatus `json:"status"`
		ScannedHeight uint64                `json:"scanned_height"`
		ChainHeight   uint64                `json:"chain_height"`
	}

	// balancesResult is the daemon's response to wallet_balances.
	balancesResult struct {
		Orchard     walletsync.Amount `json:"orchard"`
		Sapling     walletsync.Amount `json:"sapling"`
		Transparent walletsync.Amount `json:"transparent"`
	}

	// transactionResponse is a single transaction as reported by the daemon.
	transactionResponse struct {
		ID              string  `json:"id"`
		Amount          int64   `json:"amount"`
		Fee             int64   `json:"fee"`
		Timestamp       int64   `json:"timestamp"`
		MinedHeight     *uint64 `json:"mined_height"`
		SubmitSucceeded bool    `json:"submit_succeeded"`
	}

	// transactionsResult is the daemon's response to wallet_transactions.
	transactionsResult struct {
		Cleared  []transactionResponse `json:"cleared"`
		Pending  []transactionResponse `json:"pending"`
		Sent     []transactionResponse `json:"sent"`
		Received []transactionResponse `json:"received"`
	}
)

// toTransactions converts the daemon's wire format into the domain type.
func toTransactions(responses []transactionResponse) []walletsync.Transaction {
	txs := make([]walletsync.Transaction, len(responses))
	for i, res := range responses {
		txs[i] = walletsync.Transaction{
			ID:              res.ID,
			Amount:          walletsync.Amount(res.Amount),
			Fee:             walletsync.Amount(res.Fee),
			Timestamp:       time.Unix(res.Timestamp, 0).UTC(),
			MinedHeight:     res.MinedHeight,
			SubmitSucceeded: res.SubmitSucceeded,
		}
	}

	return txs
}

// handle is a live daemon session. Its polling loop is the only writer to
// the streams; readers are the view aggregators.
type handle struct {
	rpc       jsonrpc.Client
	sessionID string

	cancel context.CancelFunc
	done   chan struct{}

	status      *stream.Value[walletsync.SyncStatus]
	progress    *stream.Value[walletsync.Progress]
	orchard     *stream.Value[walletsync.Amount]
	sapling     *stream.Value[walletsync.Amount]
	transparent *stream.Value[walletsync.Amount]
	pending     *stream.Value[[]walletsync.Transaction]
	cleared     *stream.Value[[]walletsync.Transaction]
	sent        *stream.Value[[]walletsync.Transaction]
	received    *stream.Value[[]walletsync.Transaction]
}

// Compile-time assertion to ensure *handle satisfies the walletsync.Handle interface.
var _ walletsync.Handle = (*handle)(nil)

func newHandle(rpc jsonrpc.Client, sessionID string) *handle {
	return &handle{
		rpc:         rpc,
		sessionID:   sessionID,
		status:      stream.NewValue[walletsync.SyncStatus](),
		progress:    stream.NewValue[walletsync.Progress](),
		orchard:     stream.NewValue[walletsync.Amount](),
		sapling:     stream.NewValue[walletsync.Amount](),
		transparent: stream.NewValue[walletsync.Amount](),
		pending:     stream.NewValue[[]walletsync.Transaction](),
		cleared:     stream.NewValue[[]walletsync.Transaction](),
		sent:        stream.NewValue[[]walletsync.Transaction](),
		received:    stream.NewValue[[]walletsync.Transaction](),
	}
}

// startPolling launches the loop fetching session state from the daemon.
// The loop's lifetime is bound to the handle and ends inside Close.
func (h *handle) startPolling(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	h.cancel = cancel
	h.done = done

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		h.poll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.poll(ctx)
			}
		}
	}()
}

// poll fetches the session's full state once. A fetch failure marks the
// session disconnected instead of failing the handle; the next tick retries.
func (h *handle) poll(ctx context.Context) {
	if err := h.pollStatus(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn(ctx, "failed to fetch sync status", "session_id", h.sessionID, "error", err)
		h.status.Publish(walletsync.StatusDisconnected)
		return
	}

	if err := h.pollBalances(ctx); err != nil && ctx.Err() == nil {
		logger.Warn(ctx, "failed to fetch wallet balances", "session_id", h.sessionID, "error", err)
	}

	if err := h.pollTransactions(ctx); err != nil && ctx.Err() == nil {
		logger.Warn(ctx, "failed to fetch wallet transactions", "session_id", h.sessionID, "error", err)
	}
}

func (h *handle) pollStatus(ctx context.Context) error {
	raw, err := h.rpc.Fetch(ctx, "sync_status", h.sessionID)
	if err != nil {
		return err
	}

	var result statusResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("failed to decode sync_status response: %w", err)
	}

	h.status.Publish(result.Status)
	h.progress.Publish(walletsync.Progress{
		ScannedHeight: result.ScannedHeight,
		ChainHeight:   result.ChainHeight,
	})
	return nil
}

func (h *handle) pollBalances(ctx context.Context) error {
	raw, err := h.rpc.Fetch(ctx, "wallet_balances", h.sessionID)
	if err != nil {
		return err
	}

	var result balancesResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("failed to decode wallet_balances response: %w", err)
	}

	h.orchard.Publish(result.Orchard)
	h.sapling.Publish(result.Sapling)
	h.transparent.Publish(result.Transparent)
	return nil
}

func (h *handle) pollTransactions(ctx context.Context) error {
	raw, err := h.rpc.Fetch(ctx, "wallet_transactions", h.sessionID)
	if err != nil {
		return err
	}

	var result transactionsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("failed to decode wallet_transactions response: %w", err)
	}

	h.cleared.Publish(toTransactions(result.Cleared))
	h.pending.Publish(toTransactions(result.Pending))
	h.sent.Publish(toTransactions(result.Sent))
	h.received.Publish(toTransactions(result.Received))
	return nil
}

func (h *handle) Status() *stream.Value[walletsync.SyncStatus]     { return h.status }
func (h *handle) Progress() *stream.Value[walletsync.Progress]     { return h.progress }
func (h *handle) OrchardBalance() *stream.Value[walletsync.Amount] { return h.orchard }
func (h *handle) SaplingBalance() *stream.Value[walletsync.Amount] { return h.sapling }
func (h *handle) TransparentBalance() *stream.Value[walletsync.Amount] {
	return h.transparent
}
func (h *handle) PendingTransactions() *stream.Value[[]walletsync.Transaction] {
	return h.pending
}
func (h *handle) ClearedTransactions() *stream.Value[[]walletsync.Transaction] {
	return h.cleared
}
func (h *handle) SentTransactions() *stream.Value[[]walletsync.Transaction] {
	return h.sent
}
func (h *handle) ReceivedTransactions() *stream.Value[[]walletsync.Transaction] {
	return h.received
}

// Rescan implements the walletsync.Handle interface.
func (h *handle) Rescan(ctx context.Context) error {
	if _, err := h.rpc.Fetch(ctx, "sync_rescan", h.sessionID); err != nil {
		return fmt.Errorf("failed to request rescan: %w", err)
	}

	return nil
}

// Close implements the walletsync.Handle interface.
//
// It stops the polling loop, waits for it to exit and only then asks the
// daemon to release the session, so no request can race the release.
func (h *handle) Close(ctx context.Context) error {
	h.cancel()
	<-h.done

	h.status.Close()
	h.progress.Close()
	h.orchard.Close()
	h.sapling.Close()
	h.transparent.Close()
	h.pending.Close()
	h.cleared.Close()
	h.sent.Close()
	h.received.Close()

	if _, err := h.rpc.Fetch(ctx, "wallet_close", h.sessionID); err != nil {
		return fmt.Errorf("failed to close synchronizer session: %w", err)
	}

	return nil
}
