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
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/types"
)

func newGenerateCmd(cfg *Config) *cobra.Command {
	var scheme, seed string
	cmd := &cobra.Command{
		Use:   "generate <key-type>",
		Short: "Generate a key pair",
		Long: `Generate a key pair for the key type. Without --seed the key is random;
with a secret URI such as "//Alice" or "<phrase>//hard///password" the
same key is derived every time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKeyType(args[0])
			if err != nil {
				return err
			}
			s, err := parseScheme(scheme)
			if err != nil {
				return err
			}
			return cfg.withKeyStore(cmd, func(ks keystore.KeyStore) error {
				pub, err := ks.GenerateNew(s, id, seed)
				if err != nil {
					return err
				}
				return cfg.printer().PrintKey(types.NewHandle(s, pub))
			})
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", "sr25519", "signature scheme (sr25519, ed25519, ecdsa)")
	cmd.Flags().StringVar(&seed, "seed", "", "secret URI to derive the key from")
	return cmd
}

func newPublicKeysCmd(cfg *Config) *cobra.Command {
	var scheme string
	cmd := &cobra.Command{
		Use:   "public-keys <key-type>",
		Short: "List public keys of one scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKeyType(args[0])
			if err != nil {
				return err
			}
			s, err := parseScheme(scheme)
			if err != nil {
				return err
			}
			return cfg.withKeyStore(cmd, func(ks keystore.KeyStore) error {
				pubs, err := ks.PublicKeys(s, id)
				if err != nil {
					return err
				}
				return cfg.printer().PrintPublicKeys(s, pubs)
			})
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", "sr25519", "signature scheme (sr25519, ed25519, ecdsa)")
	return cmd
}

func newKeysCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "keys <key-type>",
		Short: "List keys of every scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKeyType(args[0])
			if err != nil {
				return err
			}
			return cfg.withKeyStore(cmd, func(ks keystore.KeyStore) error {
				keys, err := ks.Keys(id)
				if err != nil {
					return err
				}
				return cfg.printer().PrintKeys(keys)
			})
		},
	}
}

func newSupportedCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "supported <key-type> <scheme:public>...",
		Short: "Filter keys down to those held",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKeyType(args[0])
			if err != nil {
				return err
			}
			candidates, err := parseHandles(args[1:])
			if err != nil {
				return err
			}
			return cfg.withKeyStore(cmd, func(ks keystore.KeyStore) error {
				keys, err := ks.SupportedKeys(id, candidates)
				if err != nil {
					return err
				}
				return cfg.printer().PrintKeys(keys)
			})
		},
	}
}

func newHasCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "has <key-type:public>...",
		Short: "Report whether every listed key is held",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs := make([]types.PublicKeyRef, 0, len(args))
			for _, a := range args {
				ref, err := parseRef(a)
				if err != nil {
					return err
				}
				refs = append(refs, ref)
			}
			return cfg.withKeyStore(cmd, func(ks keystore.KeyStore) error {
				has, err := ks.HasKeys(refs)
				if err != nil {
					return err
				}
				return cfg.printer().PrintBool("has", has)
			})
		},
	}
}

func newInsertCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <key-type> <suri> <public>",
		Short: "Insert a key pair whose public key is known",
		Long: `Insert the key pair derived from the secret URI. The derived public key
must equal <public> for one of the supported schemes.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKeyType(args[0])
			if err != nil {
				return err
			}
			public, err := parseHex(args[2])
			if err != nil {
				return err
			}
			return cfg.withKeyStore(cmd, func(ks keystore.KeyStore) error {
				if err := ks.InsertUnknown(id, args[1], public); err != nil {
					return err
				}
				return cfg.printer().PrintSuccess("Key inserted")
			})
		},
	}
}
