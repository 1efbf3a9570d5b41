// Package cli exposes the wallet's operations as commands: creating,
// restoring, backing up and wiping the wallet, plus inspecting and driving
// the synchronizer.
package cli

import (
	"context"
	"os"

	"github.com/gabapcia/walletcore/internal/secretvault"
	"github.com/gabapcia/walletcore/internal/walletsync"
	"github.com/gabapcia/walletcore/internal/walletview"

	"github.com/urfave/cli/v3"
)

// Run initializes and executes the walletcore CLI application.
//
// It registers all available commands, including:
//
//   - `create`: Creates a fresh wallet and prints its seed phrase.
//   - `restore`: Restores a wallet from an existing seed phrase.
//   - `backup`: Confirms the seed phrase has been backed up.
//   - `status`: Prints the wallet state and the latest sync snapshot.
//   - `rescan`: Asks the synchronizer to rescan from its checkpoint.
//   - `wipe`: Erases the wallet from this device.
//   - `watch`: Streams snapshot and transaction updates until interrupted.
func Run(ctx context.Context, vault secretvault.Service, coordinator walletsync.Service, view walletview.Service) error {
	app := &cli.Command{
		EnableShellCompletion: true,
		Name:                  "walletcore",
		Description:           "Command-line interface for managing the wallet and its synchronizer.",
		Usage:                 "walletcore [command] [flags]",
		Commands: []*cli.Command{
			createWalletCommand(vault),
			restoreWalletCommand(vault),
			confirmBackupCommand(vault),
			walletStatusCommand(vault, view),
			rescanCommand(coordinator),
			wipeWalletCommand(coordinator),
			watchWalletCommand(view),
		},
	}

	return app.Run(ctx, os.Args)
}
