// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package amount_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omnisat/brc20-indexer/internal/brc20/amount"
)

func TestParse(t *testing.T) {
	a, err := amount.Parse("123.45", 8)
	require.NoError(t, err)
	require.Equal(t, "123.45", a.String())

	_, err = amount.Parse("1.234567890123456789", 8)
	require.ErrorIs(t, err, amount.ErrMalformed)

	_, err = amount.Parse("1.2.3", 8)
	require.ErrorIs(t, err, amount.ErrMalformed)

	_, err = amount.Parse("-5", 8)
	require.ErrorIs(t, err, amount.ErrMalformed)

	_, err = amount.Parse("not-a-number", 8)
	require.ErrorIs(t, err, amount.ErrMalformed)

	a, err = amount.Parse("100", 0)
	require.NoError(t, err)
	require.True(t, a.Equal(amount.Zero.Add(a)))
}

func TestParseUint(t *testing.T) {
	v, err := amount.ParseUint("18")
	require.NoError(t, err)
	require.Equal(t, uint8(18), v)

	_, err = amount.ParseUint("256")
	require.ErrorIs(t, err, amount.ErrMalformed)

	_, err = amount.ParseUint("-1")
	require.ErrorIs(t, err, amount.ErrMalformed)

	_, err = amount.ParseUint("")
	require.ErrorIs(t, err, amount.ErrMalformed)
}

func TestComparisons(t *testing.T) {
	a, _ := amount.Parse("10", 8)
	b, _ := amount.Parse("10.00000001", 8)

	require.True(t, b.GreaterThan(a))
	require.True(t, a.LessThan(b))
	require.False(t, a.Equal(b))
	require.True(t, a.Equal(a))
	require.True(t, a.LessThanOrEqual(a))
	require.True(t, a.GreaterThanOrEqual(a))

	sum := a.Add(b)
	require.True(t, sum.Sub(b).Equal(a))

	require.True(t, amount.Zero.IsZero())
	require.True(t, a.IsPositive())
	require.False(t, a.IsNegative())
}

func TestFloat64RoundTrip(t *testing.T) {
	a, err := amount.Parse("21000000", 8)
	require.NoError(t, err)
	back := amount.FromFloat64(a.Float64())
	require.True(t, a.Equal(back))
}
