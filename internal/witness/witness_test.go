// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package witness_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omnisat/brc20-indexer/internal/witness"
)

func TestScanOnlyFirstInput(t *testing.T) {
	stacks := [][][]byte{
		{[]byte("stack0-a"), []byte("stack0-b")},
		{[]byte("stack1-a")},
	}
	got := witness.Scan(stacks)
	require.Equal(t, []string{"stack0-a", "stack0-b"}, got)
}

func TestScanEmpty(t *testing.T) {
	require.Nil(t, witness.Scan(nil))
}

func TestDecodeDeploy(t *testing.T) {
	raw := `some ordinal envelope text/plain;charset=utf-8 junk {"p":"brc-20","op":"deploy","tick":"ordi","max":"21000000","lim":"1000"} trailer`
	insc, ok := witness.Decode(raw)
	require.True(t, ok)
	require.Equal(t, witness.OpDeploy, insc.Op)
	require.Equal(t, "ordi", insc.Tick)
	require.Equal(t, "21000000", insc.Max)
	require.Equal(t, "1000", insc.Lim)
}

func TestDecodeApplicationJSONMarker(t *testing.T) {
	raw := `application/json {"p":"brc-20","op":"mint","tick":"ordi","amt":"1000"}`
	insc, ok := witness.Decode(raw)
	require.True(t, ok)
	require.Equal(t, witness.OpMint, insc.Op)
	require.Equal(t, "1000", insc.Amt)
}

func TestDecodeRejectsWrongProtocol(t *testing.T) {
	raw := `text/plain {"p":"not-brc-20","op":"mint","tick":"ordi","amt":"1000"}`
	_, ok := witness.Decode(raw)
	require.False(t, ok)
}

func TestDecodeRejectsNoMimeMarker(t *testing.T) {
	raw := `{"p":"brc-20","op":"mint","tick":"ordi","amt":"1000"}`
	_, ok := witness.Decode(raw)
	require.False(t, ok)
}

func TestDecodeRejectsNoBrace(t *testing.T) {
	raw := `text/plain no json here`
	_, ok := witness.Decode(raw)
	require.False(t, ok)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	raw := `text/plain {"p":"brc-20, "op":}`
	_, ok := witness.Decode(raw)
	require.False(t, ok)
}

func TestDecodeAnyFindsFirstMatch(t *testing.T) {
	strs := []string{
		"garbage",
		`text/plain {"p":"brc-20","op":"transfer","tick":"ordi","amt":"5"}`,
		`text/plain {"p":"brc-20","op":"mint","tick":"ordi","amt":"5"}`,
	}
	insc, ok := witness.DecodeAny(strs)
	require.True(t, ok)
	require.Equal(t, witness.OpTransfer, insc.Op)
}

func TestDecodeAnyNoneMatch(t *testing.T) {
	_, ok := witness.DecodeAny([]string{"garbage", "more garbage"})
	require.False(t, ok)
}
