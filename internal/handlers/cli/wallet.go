package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabapcia/walletcore/internal/secretvault"
	"github.com/gabapcia/walletcore/internal/walletsync"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// errWipeNotConfirmed is returned when wipe is invoked without --yes.
var errWipeNotConfirmed = errors.New("wiping erases the wallet from this device; pass --yes to confirm")

// createWalletCommand returns a CLI command that creates a fresh wallet and
// prints its seed phrase.
//
// Usage example:
//
//	walletcore create --network mainnet
func createWalletCommand(vault secretvault.Service) *cli.Command {
	return &cli.Command{
		Name:        "create",
		Description: "Create a fresh wallet with a newly generated seed phrase.",
		Usage:       "Creates a wallet and prints the seed phrase. Fails if a wallet already exists.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "network",
				Usage: "Network to create the wallet for (mainnet or testnet)",
				Value: "mainnet",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			secret, err := vault.CreateWallet(ctx, secretvault.Network(c.String("network")))
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "seed phrase:\n\n  %s\n\n", secret.SeedPhrase)
			fmt.Fprintln(c.Root().Writer, "write it down now; it is shown only once. Run `walletcore backup` once it is safe.")
			return nil
		},
	}
}

// restoreWalletCommand returns a CLI command that restores a wallet from an
// existing seed phrase. The phrase is read from stdin, hidden when stdin is
// a terminal, so it never lands in shell history.
//
// Usage example:
//
//	walletcore restore --network mainnet --birthday 1700000
func restoreWalletCommand(vault secretvault.Service) *cli.Command {
	return &cli.Command{
		Name:        "restore",
		Description: "Restore a wallet from an existing seed phrase.",
		Usage:       "Reads the seed phrase from stdin and restores the wallet. Fails if a wallet already exists.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "network",
				Usage: "Network the wallet belongs to (mainnet or testnet)",
				Value: "mainnet",
			},
			&cli.UintFlag{
				Name:  "birthday",
				Usage: "Block height the wallet was created at; scanning starts there",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			phrase, err := readSeedPhrase()
			if err != nil {
				return err
			}

			_, err = vault.RestoreWallet(ctx, phrase, secretvault.Network(c.String("network")), uint64(c.Uint("birthday")))
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, "wallet restored")
			return nil
		},
	}
}

// readSeedPhrase reads the seed phrase from stdin, without echo when stdin
// is a terminal.
func readSeedPhrase() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "seed phrase: ")
		phrase, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read seed phrase: %w", err)
		}
		return strings.TrimSpace(string(phrase)), nil
	}

	phrase, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && phrase == "" {
		return "", fmt.Errorf("failed to read seed phrase: %w", err)
	}
	return strings.TrimSpace(phrase), nil
}

// confirmBackupCommand returns a CLI command that records the user's
// confirmation that the seed phrase is backed up.
//
// Usage example:
//
//	walletcore backup
func confirmBackupCommand(vault secretvault.Service) *cli.Command {
	return &cli.Command{
		Name:        "backup",
		Description: "Confirm the seed phrase has been backed up.",
		Usage:       "Marks the wallet as backed up, dismissing the backup reminder.",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := vault.ConfirmBackup(ctx); err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, "backup confirmed")
			return nil
		},
	}
}

// wipeWalletCommand returns a CLI command that erases the wallet from this
// device. The synchronizer session is fully released before the secret is
// erased.
//
// Usage example:
//
//	walletcore wipe --yes
func wipeWalletCommand(coordinator walletsync.Service) *cli.Command {
	return &cli.Command{
		Name:        "wipe",
		Description: "Erase the wallet secret and all derived state from this device.",
		Usage:       "Wipes the wallet. Requires --yes; there is no undo without the seed phrase.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Confirm the wipe",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if !c.Bool("yes") {
				return errWipeNotConfirmed
			}

			if err := coordinator.Wipe(ctx); err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, "wallet wiped")
			return nil
		},
	}
}
