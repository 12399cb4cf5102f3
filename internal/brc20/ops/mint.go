// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import (
	"github.com/omnisat/brc20-indexer/internal/brc20/amount"
	"github.com/omnisat/brc20-indexer/internal/brc20/ledger"
	"github.com/omnisat/brc20-indexer/internal/brc20/registry"
	"github.com/omnisat/brc20-indexer/internal/witness"
)

// HandleMint validates and applies a mint inscription, implementing
// spec.md §4.G Mint, including the partial-fill rule at the max_supply
// boundary. On success it credits recipient's available/overall balance,
// advances the ticker's total_minted, and returns the ticker's new state
// plus the amount actually credited (which may be less than the inscribed
// amount under partial-fill) so the caller can persist both. On validation
// failure it returns *Invalid and leaves reg and ldg unchanged.
func HandleMint(insc witness.Inscription, reg *registry.Registry, ldg *ledger.Ledger, recipient string, blockHeight int64) (*registry.Ticker, amount.Amount, error) {
	tick := registry.Fold(insc.Tick)
	t, err := reg.Get(tick)
	if err != nil {
		return nil, amount.Zero, invalid("ticker symbol does not exist")
	}

	amt, err := amount.Parse(insc.Amt, t.Decimals)
	if err != nil {
		return nil, amount.Zero, invalid("malformed inscription amount")
	}

	if amt.GreaterThan(t.Limit) {
		return nil, amount.Zero, invalid("mint amount exceeds limit")
	}
	if t.TotalMinted.GreaterThanOrEqual(t.MaxSupply) {
		return nil, amount.Zero, invalid("total minted is already at or exceeds max supply")
	}

	credited := amt
	if t.TotalMinted.Add(amt).GreaterThan(t.MaxSupply) {
		credited = t.MaxSupply.Sub(t.TotalMinted)
	}

	if err := reg.AddMintAmount(tick, credited); err != nil {
		return nil, amount.Zero, err
	}
	if err := ldg.CreditAvailable(recipient, tick, credited, blockHeight, ledger.EntryReceive); err != nil {
		return nil, amount.Zero, err
	}
	updated, err := reg.Get(tick)
	if err != nil {
		return nil, amount.Zero, err
	}
	return updated, credited, nil
}
