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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jeremyhahn/go-tcp-keystore/internal/config"
	"github.com/jeremyhahn/go-tcp-keystore/internal/server"
	"github.com/jeremyhahn/go-tcp-keystore/pkg/adapters/logger"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults are used when empty)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("go-tcp-keystore server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		os.Exit(0)
	}

	if envConfig := os.Getenv("KEYSTORE_CONFIG"); envConfig != "" {
		*configPath = envConfig
	}

	bootLog := logger.NewSlogAdapter(nil)
	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Error("Failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		bootLog.Error("Invalid log level", logger.Error(err))
		os.Exit(1)
	}
	log := logger.NewSlogAdapter(&logger.SlogConfig{
		Level:  level,
		Format: cfg.Logging.Format,
	})
	log.Info("Starting keystore server",
		logger.String("config", *configPath),
		logger.String("version", version),
		logger.Bool("tcp", cfg.Protocols.TCP),
		logger.Bool("grpc", cfg.Protocols.GRPC),
		logger.Bool("websocket", cfg.Protocols.WebSocket))

	daemon, err := server.NewDaemon(cfg, log)
	if err != nil {
		log.Error("Failed to create server", logger.Error(err))
		os.Exit(1)
	}

	ctx := server.SetupSignalHandler()
	if err := daemon.Run(ctx); err != nil {
		log.Error("Server failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Server stopped successfully")
}
