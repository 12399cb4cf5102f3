// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package memstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omnisat/brc20-indexer/internal/brc20/activetransfer"
	"github.com/omnisat/brc20-indexer/internal/brc20/ledger"
	"github.com/omnisat/brc20-indexer/internal/brc20/registry"
	"github.com/omnisat/brc20-indexer/internal/store"
	"github.com/omnisat/brc20-indexer/internal/store/memstore"
)

func TestCheckpointRoundTrip(t *testing.T) {
	st := memstore.New()
	_, ok, err := st.GetCheckpoint()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, st.SetCheckpoint(100))
	h, ok, err := st.GetCheckpoint()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(100), h)
}

func TestActiveTransfersRoundTrip(t *testing.T) {
	st := memstore.New()
	entries := []activetransfer.Entry{
		{OutPoint: activetransfer.OutPoint{Txid: "tx1", Vout: 0}, Transfer: activetransfer.Transfer{From: "a", Tick: "ordi"}},
	}
	require.NoError(t, st.ReplaceActiveTransfers(entries))

	got, err := st.LoadActiveTransfers()
	require.NoError(t, err)
	require.Equal(t, entries, got)

	require.NoError(t, st.ReplaceActiveTransfers(nil))
	got, err = st.LoadActiveTransfers()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestTickerRoundTrip(t *testing.T) {
	st := memstore.New()
	require.NoError(t, st.PutTicker(&registry.Ticker{Tick: "ordi", DeployBlockHeight: 10}))
	require.NoError(t, st.PutTicker(&registry.Ticker{Tick: "sats", DeployBlockHeight: 20}))

	all, err := st.AllTickers()
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestAllValidMintsFiltersInvalid(t *testing.T) {
	st := memstore.New()
	require.NoError(t, st.RecordMint(store.MintDoc{Txid: "t1", Tick: "ordi", Amt: "10", Valid: true}))
	require.NoError(t, st.RecordMint(store.MintDoc{Txid: "t2", Tick: "ordi", Amt: "999", Valid: false}))

	valid, err := st.AllValidMints()
	require.NoError(t, err)
	require.Len(t, valid, 1)
	require.Equal(t, "t1", valid[0].Txid)
}

func TestDeleteWhereBlockHeightGE(t *testing.T) {
	st := memstore.New()
	require.NoError(t, st.PutTicker(&registry.Ticker{Tick: "ordi", DeployBlockHeight: 5}))
	require.NoError(t, st.PutTicker(&registry.Ticker{Tick: "sats", DeployBlockHeight: 15}))
	require.NoError(t, st.RecordMint(store.MintDoc{Txid: "t1", BlockHeight: 5, Tick: "ordi", Valid: true}))
	require.NoError(t, st.RecordMint(store.MintDoc{Txid: "t2", BlockHeight: 15, Tick: "sats", Valid: true}))
	require.NoError(t, st.AppendEntry(ledger.Entry{Address: "a", Tick: "ordi", BlockHeight: 5}))
	require.NoError(t, st.AppendEntry(ledger.Entry{Address: "a", Tick: "sats", BlockHeight: 15}))

	require.NoError(t, st.DeleteWhereBlockHeightGE(10))

	tickers, err := st.AllTickers()
	require.NoError(t, err)
	require.Len(t, tickers, 1)
	require.Equal(t, "ordi", tickers[0].Tick)

	mints, err := st.AllValidMints()
	require.NoError(t, err)
	require.Len(t, mints, 1)

	entries, err := st.AllBalanceEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestDropUserBalances(t *testing.T) {
	st := memstore.New()
	require.NoError(t, st.PutBalance(ledger.Balance{Address: "a", Tick: "ordi"}))
	require.NoError(t, st.DropUserBalances())

	_, ok, err := st.GetBalance("a", "ordi")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSettleTransferUpdatesRecord(t *testing.T) {
	st := memstore.New()
	require.NoError(t, st.RecordTransfer(store.TransferDoc{InscriptionTxid: "tx1", Tick: "ordi"}))
	require.NoError(t, st.SettleTransfer("tx1", "addr2", "spendtx", 5))

	require.Error(t, st.SettleTransfer("unknown", "addr2", "spendtx", 5))
}
