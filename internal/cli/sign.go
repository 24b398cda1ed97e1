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

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/crypto"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

// ErrInvalidSignature is returned by verify when the signature does not
// check out.
var ErrInvalidSignature = errors.New("signature verification failed")

const (
	signModeWith = "with"
	signModeAny  = "any"
	signModeAll  = "all"
)

func newSignCmd(cfg *Config) *cobra.Command {
	var (
		keys   []string
		mode   string
		hexMsg bool
	)
	cmd := &cobra.Command{
		Use:   "sign <key-type> <message>",
		Short: "Sign a message",
		Long: `Sign a message with the keys given by --key.

  --mode with  signs with exactly one key (default)
  --mode any   signs with the first listed key that succeeds
  --mode all   signs with every listed key and reports each outcome`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKeyType(args[0])
			if err != nil {
				return err
			}
			msg, err := messageBytes(args[1], hexMsg)
			if err != nil {
				return err
			}
			candidates, err := parseHandles(keys)
			if err != nil {
				return err
			}

			switch mode {
			case signModeWith:
				if len(candidates) != 1 {
					return fmt.Errorf("%w: --mode with needs exactly one --key", errBadArgument)
				}
			case signModeAny, signModeAll:
			default:
				return fmt.Errorf("%w: unknown mode %q", errBadArgument, mode)
			}

			return cfg.withKeyStore(cmd, func(ks keystore.KeyStore) error {
				printer := cfg.printer()
				switch mode {
				case signModeAny:
					key, sig, err := ks.SignWithAny(id, candidates, msg)
					if err != nil {
						return err
					}
					return printer.PrintSignature(key, sig)
				case signModeAll:
					results, err := ks.SignWithAll(id, candidates, msg)
					if err != nil {
						return err
					}
					return printer.PrintSignResults(results)
				default:
					sig, err := ks.SignWith(id, candidates[0], msg)
					if err != nil {
						return err
					}
					return printer.PrintSignature(candidates[0], sig)
				}
			})
		},
	}
	cmd.Flags().StringArrayVarP(&keys, "key", "k", nil, "key to sign with as <scheme>:<hex>, repeatable")
	cmd.Flags().StringVar(&mode, "mode", signModeWith, "signing mode (with, any, all)")
	cmd.Flags().BoolVar(&hexMsg, "hex", false, "message is hex encoded")
	return cmd
}

func newVRFSignCmd(cfg *Config) *cobra.Command {
	var (
		label string
		items []string
	)
	cmd := &cobra.Command{
		Use:   "vrf-sign <key-type> <public>",
		Short: "Produce an sr25519 VRF signature",
		Long: `Produce a VRF output and proof over a transcript built from --label and
the ordered --item flags. Items are <label>=<hex> or <label>=u64:<n>.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKeyType(args[0])
			if err != nil {
				return err
			}
			public, err := parseHex(args[1])
			if err != nil {
				return err
			}
			transcript := types.VRFTranscript{Label: label}
			for _, s := range items {
				item, err := parseItem(s)
				if err != nil {
					return err
				}
				transcript.Items = append(transcript.Items, item)
			}
			return cfg.withKeyStore(cmd, func(ks keystore.KeyStore) error {
				sig, err := ks.VRFSign(id, public, transcript)
				if err != nil {
					return err
				}
				return cfg.printer().PrintVRF(sig)
			})
		},
	}
	cmd.Flags().StringVar(&label, "label", "keystore", "transcript label")
	cmd.Flags().StringArrayVar(&items, "item", nil, "transcript item, repeatable and ordered")
	return cmd
}

func newVerifyCmd(cfg *Config) *cobra.Command {
	var hexMsg bool
	cmd := &cobra.Command{
		Use:   "verify <scheme:public> <message> <signature>",
		Short: "Verify a signature locally",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			msg, err := messageBytes(args[1], hexMsg)
			if err != nil {
				return err
			}
			sig, err := parseHex(args[2])
			if err != nil {
				return err
			}
			valid := crypto.Verify(key.Scheme, key.Public, msg, sig)
			if err := cfg.printer().PrintBool("valid", valid); err != nil {
				return err
			}
			if !valid {
				return ErrInvalidSignature
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&hexMsg, "hex", false, "message is hex encoded")
	return cmd
}
