// Package jsonrpc implements the walletsync.Engine interface against a
// synchronizer daemon speaking JSON-RPC 2.0. The daemon owns the actual
// chain scanning; this adapter opens sessions, polls their state on an
// interval and feeds the results into the wallet's reactive streams.
package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gabapcia/walletcore/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/walletcore/internal/secretvault"
	"github.com/gabapcia/walletcore/internal/walletsync"
)

// defaultPollInterval is how often a session's state is fetched from the
// daemon. Mobile UIs refresh on the order of seconds; polling faster only
// burns battery.
const defaultPollInterval = 2 * time.Second

// openParams is the payload for the wallet_open method.
type openParams struct {
	SeedPhrase string `json:"seed_phrase"`
	Network    string `json:"network"`
	Birthday   uint64 `json:"birthday"`
}

// openResult is the daemon's response to wallet_open.
type openResult struct {
	SessionID string `json:"session_id"`
}

// engine opens synchronizer sessions against the daemon.
type engine struct {
	rpc          jsonrpc.Client
	pollInterval time.Duration
}

// Compile-time assertion to ensure *engine satisfies the walletsync.Engine interface.
var _ walletsync.Engine = (*engine)(nil)

// Option defines a functional option type used to customize the engine configuration.
type Option func(*engine)

// WithPollInterval configures how often session state is fetched from the
// daemon.
//
// Default: 2 seconds.
func WithPollInterval(d time.Duration) Option {
	return func(e *engine) {
		e.pollInterval = d
	}
}

// NewEngine creates an engine talking to the synchronizer daemon through the
// given JSON-RPC client.
func NewEngine(rpc jsonrpc.Client, opts ...Option) *engine {
	e := &engine{
		rpc:          rpc,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Open implements the walletsync.Engine interface.
//
// It registers the wallet with the daemon via wallet_open and starts the
// polling loop feeding the returned handle's streams. The loop's lifetime is
// bound to the handle, not to ctx: the coordinator ends it through Close.
func (e *engine) Open(ctx context.Context, secret secretvault.WalletSecret) (walletsync.Handle, error) {
	raw, err := e.rpc.Fetch(ctx, "wallet_open", openParams{
		SeedPhrase: secret.SeedPhrase,
		Network:    string(secret.Network),
		Birthday:   secret.Birthday,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open synchronizer session: %w", err)
	}

	var result openResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode wallet_open response: %w", err)
	}

	h := newHandle(e.rpc, result.SessionID)
	h.startPolling(e.pollInterval)
	return h, nil
}
