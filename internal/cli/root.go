// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-tcp-keystore.
//
// go-tcp-keystore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package cli implements the keystore command line client.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/client"
)

// NewRootCommand builds the command tree writing results to stdout and
// errors to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	cfg := NewConfig(stdout, stderr)

	rootCmd := &cobra.Command{
		Use:   "keystore",
		Short: "go-tcp-keystore CLI - remote signing keystore client",
		Long: `keystore talks to a keystored server over tcp://, ws:// or grpc:// and
exposes every key store operation as a command.

Key types are 4 character ids such as babe, gran or imon. Schemes are
sr25519, ed25519 and ecdsa. Keys are written as <scheme>:<hex public key>.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.load(cmd)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "config file with flag defaults")
	flags.StringP("server", "s", client.DefaultServerURL, "keystore server URL (tcp://, ws://, grpc://)")
	flags.StringP("output", "o", string(OutputFormatText), "output format (text, json)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Bool("local", false, "use an in-process provisioned backend instead of a server")
	flags.Duration("timeout", 30*time.Second, "per-call timeout (0 waits indefinitely)")

	rootCmd.AddCommand(
		newVersionCmd(cfg),
		newGenerateCmd(cfg),
		newPublicKeysCmd(cfg),
		newKeysCmd(cfg),
		newSupportedCmd(cfg),
		newHasCmd(cfg),
		newInsertCmd(cfg),
		newSignCmd(cfg),
		newVRFSignCmd(cfg),
		newVerifyCmd(cfg),
	)
	return rootCmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	cmd := NewRootCommand(os.Stdout, os.Stderr)
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		format, _ := cmd.PersistentFlags().GetString("output")
		_ = NewPrinter(format, os.Stderr).PrintError(err)
	}
	return err
}
