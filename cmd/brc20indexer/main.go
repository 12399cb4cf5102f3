// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command brc20indexer runs the BRC-20 indexing daemon: it connects to a
// Bitcoin node over RPC and a MongoDB document store, resumes from the last
// checkpoint (rewinding first if the configured start height requires it),
// and then indexes blocks forever.
//
// Grounded on the teacher's pktd.go: load config, construct the long-lived
// clients, run forever, and handle an OS interrupt for orderly shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/omnisat/brc20-indexer/internal/config"
	"github.com/omnisat/brc20-indexer/internal/indexer"
	"github.com/omnisat/brc20-indexer/internal/logging"
	"github.com/omnisat/brc20-indexer/internal/metrics"
	"github.com/omnisat/brc20-indexer/internal/node"
	"github.com/omnisat/brc20-indexer/internal/rlimit"
	"github.com/omnisat/brc20-indexer/internal/store/mongostore"
)

// version is stamped via -ldflags "-X main.version=..." at build time.
var version = "0.0.0-dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.ShowVersion {
		fmt.Printf("brc20indexer version %s\n", version)
		return nil
	}
	if err := logging.SetLevel(cfg.DebugLevel); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}
	log := logging.Get(logging.TagIndexer)

	if err := rlimit.Raise(); err != nil {
		log.Warnf("raising file descriptor limit: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	nodeClient, err := node.Dial(cfg.RPCHost, cfg.RPCUser, cfg.RPCPass, cfg.RPCDisableTLS)
	if err != nil {
		return fmt.Errorf("dial node: %w", err)
	}

	st, err := mongostore.Dial(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("dial mongo: %w", err)
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsListen); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()

	loop := indexer.New(nodeClient, st)
	startHeight, err := loop.Bootstrap(cfg.StartingBlockHeight)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	log.Infof("starting indexer at height %s", logging.Height(startHeight))

	if err := loop.Run(ctx, startHeight); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}
