package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabapcia/walletcore/internal/pkg/logger"
	"github.com/gabapcia/walletcore/internal/secretvault"
	"github.com/gabapcia/walletcore/internal/walletsync"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// rpcCall records a single Fetch invocation.
type rpcCall struct {
	method string
	params []any
}

// rpcStub implements jsonrpc.Client with canned per-method responses.
type rpcStub struct {
	mu        sync.Mutex
	calls     []rpcCall
	responses map[string]json.RawMessage
	errors    map[string]error
}

func newRPCStub() *rpcStub {
	return &rpcStub{
		responses: map[string]json.RawMessage{
			"wallet_open":     json.RawMessage(`{"session_id": "session-1"}`),
			"sync_status":     json.RawMessage(`{"status": "syncing", "scanned_height": 50, "chain_height": 100}`),
			"wallet_balances": json.RawMessage(`{"orchard": 10, "sapling": 20, "transparent": 30}`),
			"wallet_transactions": json.RawMessage(`{
				"cleared":  [{"id": "c1", "amount": 5, "fee": 1, "timestamp": 1700000000, "mined_height": 90, "submit_succeeded": true}],
				"pending":  [{"id": "p1", "amount": -3, "fee": 1, "timestamp": 1700000100, "submit_succeeded": true}],
				"sent":     [],
				"received": []
			}`),
			"sync_rescan":  json.RawMessage(`null`),
			"wallet_close": json.RawMessage(`null`),
		},
		errors: make(map[string]error),
	}
}

func (s *rpcStub) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, rpcCall{method: method, params: params})
	if err := s.errors[method]; err != nil {
		return nil, err
	}

	return s.responses[method], nil
}

func (s *rpcStub) callsFor(method string) []rpcCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []rpcCall
	for _, call := range s.calls {
		if call.method == method {
			matched = append(matched, call)
		}
	}
	return matched
}

func (s *rpcStub) failMethod(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[method] = err
}

func openSession(t *testing.T, stub *rpcStub) walletsync.Handle {
	t.Helper()

	e := NewEngine(stub, WithPollInterval(10*time.Millisecond))
	h, err := e.Open(t.Context(), secretvault.WalletSecret{
		SeedPhrase: "phrase",
		Network:    secretvault.NetworkMainnet,
		Source:     secretvault.SourceCreated,
		Birthday:   1_000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close(context.Background()) })
	return h
}

// recv waits for the next emission or fails the test.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an emission")
		var zero T
		return zero
	}
}

func TestEngine_Open(t *testing.T) {
	t.Run("registers the wallet with the daemon", func(t *testing.T) {
		stub := newRPCStub()
		openSession(t, stub)

		opens := stub.callsFor("wallet_open")
		require.Len(t, opens, 1)
		require.Len(t, opens[0].params, 1)
		assert.Equal(t, openParams{
			SeedPhrase: "phrase",
			Network:    "mainnet",
			Birthday:   1_000,
		}, opens[0].params[0])
	})

	t.Run("fails when the daemon rejects the wallet", func(t *testing.T) {
		stub := newRPCStub()
		stub.failMethod("wallet_open", errors.New("daemon unavailable"))

		e := NewEngine(stub)
		_, err := e.Open(t.Context(), secretvault.WalletSecret{SeedPhrase: "phrase"})
		require.Error(t, err)
	})
}

func TestHandle_Polling(t *testing.T) {
	t.Run("feeds status and progress", func(t *testing.T) {
		stub := newRPCStub()
		h := openSession(t, stub)

		statusCh, unsubStatus := h.Status().Subscribe()
		defer unsubStatus()
		progressCh, unsubProgress := h.Progress().Subscribe()
		defer unsubProgress()

		assert.Equal(t, walletsync.StatusSyncing, recv(t, statusCh))
		assert.Equal(t, walletsync.Progress{ScannedHeight: 50, ChainHeight: 100}, recv(t, progressCh))
	})

	t.Run("feeds the three balances", func(t *testing.T) {
		stub := newRPCStub()
		h := openSession(t, stub)

		orchardCh, unsubOrchard := h.OrchardBalance().Subscribe()
		defer unsubOrchard()
		saplingCh, unsubSapling := h.SaplingBalance().Subscribe()
		defer unsubSapling()
		transparentCh, unsubTransparent := h.TransparentBalance().Subscribe()
		defer unsubTransparent()

		assert.Equal(t, walletsync.Amount(10), recv(t, orchardCh))
		assert.Equal(t, walletsync.Amount(20), recv(t, saplingCh))
		assert.Equal(t, walletsync.Amount(30), recv(t, transparentCh))
	})

	t.Run("feeds the four transaction categories", func(t *testing.T) {
		stub := newRPCStub()
		h := openSession(t, stub)

		clearedCh, unsubCleared := h.ClearedTransactions().Subscribe()
		defer unsubCleared()
		pendingCh, unsubPending := h.PendingTransactions().Subscribe()
		defer unsubPending()

		cleared := recv(t, clearedCh)
		require.Len(t, cleared, 1)
		assert.Equal(t, "c1", cleared[0].ID)
		assert.Equal(t, walletsync.Amount(5), cleared[0].Amount)
		require.NotNil(t, cleared[0].MinedHeight)
		assert.Equal(t, uint64(90), *cleared[0].MinedHeight)
		assert.False(t, cleared[0].IsPendingConfirmation())

		pending := recv(t, pendingCh)
		require.Len(t, pending, 1)
		assert.Equal(t, "p1", pending[0].ID)
		assert.Nil(t, pending[0].MinedHeight)
		assert.True(t, pending[0].IsPendingConfirmation())
	})

	t.Run("reports disconnection when the daemon is unreachable", func(t *testing.T) {
		stub := newRPCStub()
		h := openSession(t, stub)

		statusCh, unsub := h.Status().Subscribe()
		defer unsub()
		require.Equal(t, walletsync.StatusSyncing, recv(t, statusCh))

		stub.failMethod("sync_status", errors.New("connection refused"))

		deadline := time.Now().Add(2 * time.Second)
		for {
			require.True(t, time.Now().Before(deadline), "never reported disconnection")
			if recv(t, statusCh) == walletsync.StatusDisconnected {
				break
			}
		}
	})
}

func TestHandle_Rescan(t *testing.T) {
	t.Run("forwards the request with the session id", func(t *testing.T) {
		stub := newRPCStub()
		h := openSession(t, stub)

		require.NoError(t, h.Rescan(t.Context()))

		rescans := stub.callsFor("sync_rescan")
		require.Len(t, rescans, 1)
		assert.Equal(t, []any{"session-1"}, rescans[0].params)
	})

	t.Run("propagates daemon failures", func(t *testing.T) {
		stub := newRPCStub()
		h := openSession(t, stub)

		stub.failMethod("sync_rescan", errors.New("rescan rejected"))
		assert.Error(t, h.Rescan(t.Context()))
	})
}

func TestHandle_Close(t *testing.T) {
	t.Run("stops polling before releasing the session", func(t *testing.T) {
		stub := newRPCStub()

		e := NewEngine(stub, WithPollInterval(10*time.Millisecond))
		h, err := e.Open(t.Context(), secretvault.WalletSecret{SeedPhrase: "phrase"})
		require.NoError(t, err)

		require.NoError(t, h.Close(context.Background()))

		closes := stub.callsFor("wallet_close")
		require.Len(t, closes, 1)
		assert.Equal(t, []any{"session-1"}, closes[0].params)

		// No further polls once Close has returned.
		polled := len(stub.callsFor("sync_status"))
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, polled, len(stub.callsFor("sync_status")))
	})

	t.Run("closes every stream", func(t *testing.T) {
		stub := newRPCStub()

		e := NewEngine(stub, WithPollInterval(10*time.Millisecond))
		h, err := e.Open(t.Context(), secretvault.WalletSecret{SeedPhrase: "phrase"})
		require.NoError(t, err)
		require.NoError(t, h.Close(context.Background()))

		statusCh, unsub := h.Status().Subscribe()
		defer unsub()

		_, open := <-statusCh
		assert.False(t, open, "streams must be closed after Close returns")
	})
}
