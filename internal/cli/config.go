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
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-tcp-keystore/internal/server"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/adapters/logger"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/backend/memory"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/client"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/keystore"
)

// EnvPrefix prefixes the environment variables read for every flag, with
// dashes mapped to underscores: KEYSTORE_SERVER, KEYSTORE_OUTPUT.
const EnvPrefix = "KEYSTORE"

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is an optional YAML/JSON/TOML file with flag defaults
	ConfigFile string

	// Server is the URL of the keystore server: tcp://, ws:// or grpc://
	Server string

	// OutputFormat controls output formatting (text, json)
	OutputFormat string

	// Verbose enables debug logging to stderr
	Verbose bool

	// Local serves requests from an in-process, provisioned memory backend
	// instead of dialing a server
	Local bool

	// Timeout bounds each call. Zero waits indefinitely.
	Timeout time.Duration

	stdout io.Writer
	stderr io.Writer
}

// NewConfig creates a new Config with default values
func NewConfig(stdout, stderr io.Writer) *Config {
	return &Config{
		Server:       client.DefaultServerURL,
		OutputFormat: string(OutputFormatText),
		stdout:       stdout,
		stderr:       stderr,
	}
}

// load resolves every setting from, in order of precedence, explicit flags,
// KEYSTORE_* environment variables, the config file and the flag defaults.
func (c *Config) load(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if c.ConfigFile != "" {
		v.SetConfigFile(c.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	c.Server = v.GetString("server")
	c.OutputFormat = v.GetString("output")
	c.Verbose = v.GetBool("verbose")
	c.Local = v.GetBool("local")
	c.Timeout = v.GetDuration("timeout")

	switch OutputFormat(c.OutputFormat) {
	case OutputFormatText, OutputFormatJSON:
	default:
		return fmt.Errorf("unknown output format: %s", c.OutputFormat)
	}
	return nil
}

func (c *Config) logger() logger.Logger {
	if !c.Verbose {
		return logger.Nop()
	}
	return logger.NewSlogAdapter(&logger.SlogConfig{
		Level:  logger.LevelDebug,
		Output: c.stderr,
	})
}

// printer returns a Printer for the configured output format
func (c *Config) printer() *Printer {
	return NewPrinter(c.OutputFormat, c.stdout)
}

// Open returns the key store commands operate on and a function that
// releases it.
func (c *Config) Open(ctx context.Context) (keystore.KeyStore, func() error, error) {
	log := c.logger()
	if c.Local {
		ks := memory.New(&memory.Config{Logger: log})
		if err := server.Provision(ks); err != nil {
			return nil, nil, fmt.Errorf("failed to provision local backend: %w", err)
		}
		log.Debug("Using local backend", logger.Int("keys", ks.Len()))
		return ks, func() error { return nil }, nil
	}

	log.Debug("Connecting", logger.String("server", c.Server))
	cl, err := client.Dial(ctx, c.Server, &client.Options{Logger: log, CallTimeout: c.Timeout})
	if err != nil {
		return nil, nil, err
	}
	return cl, cl.Close, nil
}

// withKeyStore opens the key store, runs fn and releases the store.
func (c *Config) withKeyStore(cmd *cobra.Command, fn func(ks keystore.KeyStore) error) error {
	ks, closeFn, err := c.Open(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn() //nolint:errcheck
	return fn(ks)
}
