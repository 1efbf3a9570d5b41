package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gabapcia/walletcore/internal/pkg/logger"
	"github.com/gabapcia/walletcore/internal/secretvault"
	"github.com/gabapcia/walletcore/internal/walletsync"
	"github.com/gabapcia/walletcore/internal/walletview"

	"github.com/urfave/cli/v3"
)

// snapshotWait is how long the status command waits for the first snapshot
// before reporting the synchronizer as unavailable.
const snapshotWait = 5 * time.Second

// walletStatusCommand returns a CLI command that prints the wallet's
// lifecycle state and, when a synchronizer session is live, its latest
// snapshot.
//
// Usage example:
//
//	walletcore status
func walletStatusCommand(vault secretvault.Service, view walletview.Service) *cli.Command {
	return &cli.Command{
		Name:        "status",
		Description: "Print the wallet lifecycle state and the latest synchronizer snapshot.",
		Usage:       "Shows whether a wallet exists, whether it is backed up, and how synced it is.",
		Action: func(ctx context.Context, c *cli.Command) error {
			out := c.Root().Writer

			state, ok := vault.State().Latest()
			if !ok {
				state = secretvault.SecretState{Kind: secretvault.SecretStateLoading}
			}
			fmt.Fprintf(out, "wallet: %s\n", state.Kind)

			snapshots, unsub := view.Snapshot()
			defer unsub()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(snapshotWait):
				fmt.Fprintln(out, "sync: no data yet")
			case snapshot := <-snapshots:
				if snapshot == nil {
					fmt.Fprintln(out, "sync: no active session")
					return nil
				}
				printSnapshot(out, snapshot)
			}

			return nil
		},
	}
}

func printSnapshot(out io.Writer, s *walletview.WalletSnapshot) {
	fmt.Fprintf(out, "sync: %s (%d/%d)\n", s.Status, s.Progress.ScannedHeight, s.Progress.ChainHeight)
	fmt.Fprintf(out, "balances: orchard=%d sapling=%d transparent=%d\n", s.OrchardBalance, s.SaplingBalance, s.TransparentBalance)
	fmt.Fprintf(out, "pending transactions: %d\n", s.PendingCount)
}

// rescanCommand returns a CLI command that asks the live synchronizer
// session to rescan from its checkpoint.
//
// Usage example:
//
//	walletcore rescan
func rescanCommand(coordinator walletsync.Service) *cli.Command {
	return &cli.Command{
		Name:        "rescan",
		Description: "Ask the synchronizer to rescan the chain from its checkpoint.",
		Usage:       "Requests a rescan. Fails when no wallet is active.",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := coordinator.Rescan(ctx); err != nil {
				if errors.Is(err, walletsync.ErrNoActiveWallet) {
					fmt.Fprintln(c.Root().Writer, "no active wallet to rescan")
					return nil
				}
				return err
			}

			fmt.Fprintln(c.Root().Writer, "rescan requested")
			return nil
		},
	}
}

// watchWalletCommand returns a CLI command that streams snapshot and
// transaction updates until it receives an interrupt (SIGINT or SIGTERM).
//
// Usage example:
//
//	walletcore watch
func watchWalletCommand(view walletview.Service) *cli.Command {
	return &cli.Command{
		Name:        "watch",
		Description: "Stream wallet snapshot and transaction updates.",
		Usage:       "Logs every snapshot and transaction list emission. Terminates gracefully on Ctrl+C.",
		Action: func(ctx context.Context, c *cli.Command) error {
			quit := make(chan os.Signal, 1)
			defer close(quit)

			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			snapshots, unsubSnapshots := view.Snapshot()
			defer unsubSnapshots()

			transactions, unsubTransactions := view.Transactions()
			defer unsubTransactions()

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-quit:
					return nil
				case snapshot, ok := <-snapshots:
					if !ok {
						return nil
					}
					if snapshot == nil {
						logger.Info(ctx, "no active synchronizer session")
						continue
					}
					logger.Info(ctx, "wallet snapshot",
						"sync.status", snapshot.Status,
						"sync.scanned_height", snapshot.Progress.ScannedHeight,
						"sync.chain_height", snapshot.Progress.ChainHeight,
						"balance.orchard", snapshot.OrchardBalance,
						"balance.sapling", snapshot.SaplingBalance,
						"balance.transparent", snapshot.TransparentBalance,
						"transactions.pending", snapshot.PendingCount,
					)
				case txs, ok := <-transactions:
					if !ok {
						return nil
					}
					logger.Info(ctx, "wallet transactions", "count", len(txs))
				}
			}
		},
	}
}
