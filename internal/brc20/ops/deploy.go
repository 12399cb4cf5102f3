// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import (
	"unicode/utf8"

	"github.com/omnisat/brc20-indexer/internal/brc20/amount"
	"github.com/omnisat/brc20-indexer/internal/brc20/registry"
	"github.com/omnisat/brc20-indexer/internal/witness"
)

// HandleDeploy validates and applies a deploy inscription against reg,
// implementing spec.md §4.G Deploy. On success it returns the newly
// inserted ticker. On validation failure it returns *Invalid with every
// failed check's reason, and reg is left unchanged.
func HandleDeploy(insc witness.Inscription, reg *registry.Registry, blockHeight int64, txid string) (*registry.Ticker, error) {
	tick := registry.Fold(insc.Tick)

	var reasons []string
	if reg.Contains(tick) {
		reasons = append(reasons, "ticker symbol already exists")
	}
	if utf8.RuneCountInString(insc.Tick) != 4 {
		reasons = append(reasons, "ticker symbol must be 4 characters long")
	}

	decimals := uint8(amount.DefaultDecimals)
	if insc.Dec != "" {
		d, err := amount.ParseUint(insc.Dec)
		if err != nil {
			reasons = append(reasons, "decimals field must be a valid unsigned integer")
		} else if d > amount.MaxDecimals {
			reasons = append(reasons, "decimals must be 18 or less")
		} else {
			decimals = d
		}
	}

	var max amount.Amount
	if insc.Max == "" {
		reasons = append(reasons, "max field is missing")
	} else {
		m, err := amount.Parse(insc.Max, decimals)
		if err != nil || !m.IsPositive() {
			reasons = append(reasons, "max field must be a valid number greater than 0")
		} else {
			max = m
		}
	}

	lim := max
	if insc.Lim != "" {
		l, err := amount.Parse(insc.Lim, decimals)
		if err != nil || l.GreaterThan(max) {
			reasons = append(reasons, "limit must be a valid number less than or equal to max supply")
		} else {
			lim = l
		}
	}

	if len(reasons) > 0 {
		return nil, invalid(reasons...)
	}

	t := &registry.Ticker{
		Tick:              tick,
		MaxSupply:         max,
		Limit:             lim,
		Decimals:          decimals,
		TotalMinted:       amount.Zero,
		DeployBlockHeight: blockHeight,
		DeployTxid:        txid,
	}
	if err := reg.Insert(t); err != nil {
		return nil, invalid(err.Error())
	}
	return t, nil
}
