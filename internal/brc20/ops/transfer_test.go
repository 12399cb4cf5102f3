// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omnisat/brc20-indexer/internal/brc20/activetransfer"
	"github.com/omnisat/brc20-indexer/internal/brc20/ledger"
	"github.com/omnisat/brc20-indexer/internal/brc20/ops"
	"github.com/omnisat/brc20-indexer/internal/brc20/registry"
	"github.com/omnisat/brc20-indexer/internal/store/memstore"
	"github.com/omnisat/brc20-indexer/internal/witness"
)

func TestHandleTransferInscribeMovesBalanceAndTracksOutpoint(t *testing.T) {
	reg := registry.New()
	deployOrdi(t, reg, "1000", "1000")
	st := memstore.New()
	ldg := ledger.New(st)
	_, _, err := ops.HandleMint(witness.Inscription{P: "brc-20", Op: witness.OpMint, Tick: "ordi", Amt: "100"}, reg, ldg, "addr1", 2)
	require.NoError(t, err)

	table := activetransfer.New()
	insc := witness.Inscription{P: "brc-20", Op: witness.OpTransfer, Tick: "ordi", Amt: "40"}
	require.NoError(t, ops.HandleTransferInscribe(insc, reg, ldg, table, "addr1", "txid-transfer", 3))

	avail, err := ldg.Available("addr1", "ordi")
	require.NoError(t, err)
	require.True(t, avail.Equal(mustAmount(t, "60")))

	tr, ok := table.Consume(activetransfer.OutPoint{Txid: "txid-transfer", Vout: 0})
	require.True(t, ok)
	require.Equal(t, "addr1", tr.From)
	require.True(t, tr.Amt.Equal(mustAmount(t, "40")))
}

func TestHandleTransferInscribeRejectsOverspend(t *testing.T) {
	reg := registry.New()
	deployOrdi(t, reg, "1000", "1000")
	st := memstore.New()
	ldg := ledger.New(st)
	_, _, err := ops.HandleMint(witness.Inscription{P: "brc-20", Op: witness.OpMint, Tick: "ordi", Amt: "10"}, reg, ldg, "addr1", 2)
	require.NoError(t, err)

	table := activetransfer.New()
	insc := witness.Inscription{P: "brc-20", Op: witness.OpTransfer, Tick: "ordi", Amt: "11"}
	err = ops.HandleTransferInscribe(insc, reg, ldg, table, "addr1", "txid-transfer", 3)

	var inv *ops.Invalid
	require.ErrorAs(t, err, &inv)
	require.Equal(t, 0, table.Len())
}

func TestHandleTransferInscribeRejectsUnknownTicker(t *testing.T) {
	reg := registry.New()
	st := memstore.New()
	ldg := ledger.New(st)
	table := activetransfer.New()

	insc := witness.Inscription{P: "brc-20", Op: witness.OpTransfer, Tick: "miss", Amt: "1"}
	err := ops.HandleTransferInscribe(insc, reg, ldg, table, "addr1", "txid-transfer", 3)
	var inv *ops.Invalid
	require.ErrorAs(t, err, &inv)
}
