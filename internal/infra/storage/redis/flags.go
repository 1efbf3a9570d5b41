package redis

import (
	"context"

	"github.com/gabapcia/walletcore/internal/secretvault"

	redis "github.com/redis/go-redis/v9"
)

// backupCompleteKey is the Redis key holding whether the user confirmed
// having backed up the seed phrase. It lives in the standard tier: losing it
// degrades UX (the backup reminder reappears) but never loses funds.
const backupCompleteKey = "wallet:backup_complete"

// BackupComplete implements the secretvault.FlagStorage interface using a plain Redis key.
//
// A missing key is reported as false, which is the correct default for a
// wallet whose backup was never confirmed.
func (c *client) BackupComplete(ctx context.Context) (bool, error) {
	complete, err := c.conn.Get(ctx, backupCompleteKey).Bool()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return complete, nil
}

// SetBackupComplete implements the secretvault.FlagStorage interface using a plain Redis key.
func (c *client) SetBackupComplete(ctx context.Context, complete bool) error {
	return c.conn.Set(ctx, backupCompleteKey, complete, 0).Err()
}

// Compile-time assertion to ensure *client satisfies the secretvault.FlagStorage interface
var _ secretvault.FlagStorage = new(client)
