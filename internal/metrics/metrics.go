// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics exposes the indexer's Prometheus counters: blocks
// processed, inscriptions found per operation kind, and invalids recorded.
// Grounded on the teacher's own dependency on prometheus/client_golang,
// wired directly against the default registry and served over a plain
// net/http mux rather than through statsviz's bundled dashboard, since this
// daemon has no other HTTP surface for statsviz's handler set to share.
package metrics

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BlocksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brc20_blocks_processed_total",
		Help: "Number of blocks fully processed and committed.",
	})

	InscriptionsFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brc20_inscriptions_found_total",
		Help: "Number of brc-20 inscriptions found, by operation.",
	}, []string{"op"})

	OpsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brc20_ops_applied_total",
		Help: "Number of brc-20 operations successfully applied, by operation.",
	}, []string{"op"})

	Invalids = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brc20_invalids_total",
		Help: "Number of inscriptions or spends rejected as invalid.",
	})

	TransferSettlements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brc20_transfer_settlements_total",
		Help: "Number of transfer-send settlements detected and applied.",
	})
)

// Serve starts the metrics HTTP server on addr and blocks until ctx is
// cancelled, then shuts it down. A no-op if addr is empty.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}
