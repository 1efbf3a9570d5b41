package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gabapcia/walletcore/internal/secretvault"

	"github.com/google/uuid"
)

// backgroundSyncQueueKey is the Redis list acting as the work queue for the
// platform's background sync scheduler. This service only enqueues; an
// external worker owns consumption.
const backgroundSyncQueueKey = "sync:background:queue"

// backgroundSyncRequest is the message pushed onto the background sync queue.
type backgroundSyncRequest struct {
	ID         string              `json:"id"`
	Network    secretvault.Network `json:"network"`
	EnqueuedAt time.Time           `json:"enqueued_at"`
}

// EnableBackgroundSync implements the secretvault.BackgroundScheduler interface
// by enqueueing a sync request onto a Redis list.
//
// Enqueueing is fire-and-forget from the wallet's perspective: a failure here
// never invalidates an already persisted wallet secret.
func (c *client) EnableBackgroundSync(ctx context.Context, network secretvault.Network) error {
	request := backgroundSyncRequest{
		ID:         uuid.NewString(),
		Network:    network,
		EnqueuedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return err
	}

	return c.conn.RPush(ctx, backgroundSyncQueueKey, payload).Err()
}

// Compile-time assertion to ensure *client satisfies the secretvault.BackgroundScheduler interface
var _ secretvault.BackgroundScheduler = new(client)
