// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omnisat/brc20-indexer/internal/brc20/ops"
	"github.com/omnisat/brc20-indexer/internal/brc20/registry"
	"github.com/omnisat/brc20-indexer/internal/witness"
)

func TestHandleDeployValid(t *testing.T) {
	reg := registry.New()
	insc := witness.Inscription{P: "brc-20", Op: witness.OpDeploy, Tick: "ordi", Max: "21000000", Lim: "1000", Dec: "8"}

	ticker, err := ops.HandleDeploy(insc, reg, 100, "txid1")
	require.NoError(t, err)
	require.Equal(t, "ordi", ticker.Tick)
	require.Equal(t, uint8(8), ticker.Decimals)
	require.True(t, reg.Contains("ORDI"))
}

func TestHandleDeployDefaultsLimitToMax(t *testing.T) {
	reg := registry.New()
	insc := witness.Inscription{P: "brc-20", Op: witness.OpDeploy, Tick: "ordi", Max: "1000"}

	ticker, err := ops.HandleDeploy(insc, reg, 100, "txid1")
	require.NoError(t, err)
	require.True(t, ticker.Limit.Equal(ticker.MaxSupply))
	require.Equal(t, uint8(18), ticker.Decimals)
}

func TestHandleDeployRejectsDuplicateTicker(t *testing.T) {
	reg := registry.New()
	insc := witness.Inscription{P: "brc-20", Op: witness.OpDeploy, Tick: "ordi", Max: "1000"}
	_, err := ops.HandleDeploy(insc, reg, 100, "txid1")
	require.NoError(t, err)

	_, err = ops.HandleDeploy(insc, reg, 101, "txid2")
	require.Error(t, err)
	var inv *ops.Invalid
	require.ErrorAs(t, err, &inv)
}

func TestHandleDeployRejectsWrongLengthTicker(t *testing.T) {
	reg := registry.New()
	insc := witness.Inscription{P: "brc-20", Op: witness.OpDeploy, Tick: "ord", Max: "1000"}
	_, err := ops.HandleDeploy(insc, reg, 100, "txid1")
	var inv *ops.Invalid
	require.ErrorAs(t, err, &inv)
	require.Contains(t, inv.Error(), "4 characters")
}

func TestHandleDeployRejectsDecimalsAbove18(t *testing.T) {
	reg := registry.New()
	insc := witness.Inscription{P: "brc-20", Op: witness.OpDeploy, Tick: "ordi", Max: "1000", Dec: "19"}
	_, err := ops.HandleDeploy(insc, reg, 100, "txid1")
	var inv *ops.Invalid
	require.ErrorAs(t, err, &inv)
}

func TestHandleDeployRejectsMissingMax(t *testing.T) {
	reg := registry.New()
	insc := witness.Inscription{P: "brc-20", Op: witness.OpDeploy, Tick: "ordi"}
	_, err := ops.HandleDeploy(insc, reg, 100, "txid1")
	var inv *ops.Invalid
	require.ErrorAs(t, err, &inv)
}

func TestHandleDeployRejectsLimitAboveMax(t *testing.T) {
	reg := registry.New()
	insc := witness.Inscription{P: "brc-20", Op: witness.OpDeploy, Tick: "ordi", Max: "1000", Lim: "2000"}
	_, err := ops.HandleDeploy(insc, reg, 100, "txid1")
	var inv *ops.Invalid
	require.ErrorAs(t, err, &inv)
}

func TestHandleDeployCollectsMultipleReasons(t *testing.T) {
	reg := registry.New()
	insc := witness.Inscription{P: "brc-20", Op: witness.OpDeploy, Tick: "ord", Dec: "19"}
	_, err := ops.HandleDeploy(insc, reg, 100, "txid1")
	var inv *ops.Invalid
	require.ErrorAs(t, err, &inv)
	require.GreaterOrEqual(t, len(inv.Reasons), 2)
}
