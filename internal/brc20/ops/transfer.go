// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import (
	"github.com/omnisat/brc20-indexer/internal/brc20/activetransfer"
	"github.com/omnisat/brc20-indexer/internal/brc20/amount"
	"github.com/omnisat/brc20-indexer/internal/brc20/ledger"
	"github.com/omnisat/brc20-indexer/internal/brc20/registry"
	"github.com/omnisat/brc20-indexer/internal/witness"
)

// HandleTransferInscribe validates and applies a transfer inscription,
// implementing spec.md §4.G Transfer-Inscribe: on success it moves amt from
// the inscriber's available to transferable balance and records a pending
// settlement in table, keyed by the inscription outpoint (vout 0). On
// validation failure it returns *Invalid and leaves ldg and table
// unchanged.
func HandleTransferInscribe(insc witness.Inscription, reg *registry.Registry, ldg *ledger.Ledger, table *activetransfer.Table, inscriber, txid string, blockHeight int64) error {
	tick := registry.Fold(insc.Tick)
	t, err := reg.Get(tick)
	if err != nil {
		return invalid("ticker does not exist")
	}

	amt, err := amount.Parse(insc.Amt, t.Decimals)
	if err != nil {
		return invalid("malformed inscription amount")
	}

	available, err := ldg.Available(inscriber, tick)
	if err != nil {
		return err
	}
	if available.LessThan(amt) {
		return invalid("transfer amount exceeds available balance")
	}

	if err := ldg.InscribeTransfer(inscriber, tick, amt, blockHeight); err != nil {
		return err
	}
	table.Insert(activetransfer.OutPoint{Txid: txid, Vout: 0}, activetransfer.Transfer{
		From: inscriber,
		Tick: tick,
		Amt:  amt,
	})
	return nil
}
