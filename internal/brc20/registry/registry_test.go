// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omnisat/brc20-indexer/internal/brc20/amount"
	"github.com/omnisat/brc20-indexer/internal/brc20/registry"
)

func mustAmt(t *testing.T, s string) amount.Amount {
	t.Helper()
	a, err := amount.Parse(s, 18)
	require.NoError(t, err)
	return a
}

func TestInsertAndGetCaseFolded(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Insert(&registry.Ticker{Tick: "ORDI", MaxSupply: mustAmt(t, "21000000")}))

	require.True(t, r.Contains("ordi"))
	require.True(t, r.Contains("Ordi"))

	got, err := r.Get("oRdI")
	require.NoError(t, err)
	require.Equal(t, "ordi", got.Tick)
}

func TestInsertDuplicateRejected(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Insert(&registry.Ticker{Tick: "ordi"}))
	require.ErrorIs(t, r.Insert(&registry.Ticker{Tick: "ORDI"}), registry.ErrExists)
}

func TestGetNotFound(t *testing.T) {
	r := registry.New()
	_, err := r.Get("nope")
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestAddMintAmount(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Insert(&registry.Ticker{Tick: "ordi", MaxSupply: mustAmt(t, "100")}))
	require.NoError(t, r.AddMintAmount("ORDI", mustAmt(t, "30")))
	require.NoError(t, r.AddMintAmount("ordi", mustAmt(t, "20")))

	got, err := r.Get("ordi")
	require.NoError(t, err)
	require.True(t, got.TotalMinted.Equal(mustAmt(t, "50")))

	require.ErrorIs(t, r.AddMintAmount("missing", mustAmt(t, "1")), registry.ErrNotFound)
}

func TestSetTotalMintedAndAll(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Insert(&registry.Ticker{Tick: "ordi"}))
	require.NoError(t, r.Insert(&registry.Ticker{Tick: "sats"}))

	require.NoError(t, r.SetTotalMinted("ordi", mustAmt(t, "5")))
	require.ErrorIs(t, r.SetTotalMinted("missing", mustAmt(t, "1")), registry.ErrNotFound)

	all := r.All()
	require.Len(t, all, 2)
}
