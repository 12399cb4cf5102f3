// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package registry is the in-memory ticker registry (spec.md §4.D): the
// authoritative map of deployed tickers and their running totals, keyed by
// case-folded symbol. It is an explicit state object threaded through the
// operation handlers, not a package-level global — spec.md §9 flags the
// original's HashMap-as-loop-local pattern as the thing to keep, and its
// process-global variant as the thing to avoid.
package registry

import (
	"errors"
	"strings"

	"github.com/omnisat/brc20-indexer/internal/brc20/amount"
)

// ErrExists is returned by Insert when the ticker symbol is already taken.
var ErrExists = errors.New("ticker already deployed")

// ErrNotFound is returned by lookups for an unknown ticker.
var ErrNotFound = errors.New("ticker not found")

// Ticker is the data-model record of spec.md §3.
type Ticker struct {
	Tick              string
	MaxSupply         amount.Amount
	Limit             amount.Amount
	Decimals          uint8
	TotalMinted       amount.Amount
	DeployBlockHeight int64
	DeployTxid        string
}

// Fold normalizes a tick to the registry's canonical (case-folded) key.
func Fold(tick string) string { return strings.ToLower(tick) }

// Registry is the block loop's in-memory ticker map for one run. It is
// rebuilt from the store at process start (spec.md §6 rewind) and mutated
// only by the single writer goroutine.
type Registry struct {
	byTick map[string]*Ticker
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byTick: make(map[string]*Ticker)}
}

// Contains reports whether tick (any case) is already deployed.
func (r *Registry) Contains(tick string) bool {
	_, ok := r.byTick[Fold(tick)]
	return ok
}

// Get returns the ticker for tick (case-folded), or ErrNotFound.
func (r *Registry) Get(tick string) (*Ticker, error) {
	t, ok := r.byTick[Fold(tick)]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// Insert adds a freshly-deployed ticker. It fails if the symbol is taken.
// Per spec.md §3, a ticker is never mutated again except for TotalMinted.
func (r *Registry) Insert(t *Ticker) error {
	key := Fold(t.Tick)
	if _, ok := r.byTick[key]; ok {
		return ErrExists
	}
	cp := *t
	cp.Tick = key
	r.byTick[key] = &cp
	return nil
}

// AddMintAmount increases a ticker's TotalMinted. The caller (the mint
// handler) is responsible for pre-checking TotalMinted+amt <= MaxSupply;
// this method does not re-validate, per spec.md §4.D.
func (r *Registry) AddMintAmount(tick string, amt amount.Amount) error {
	t, ok := r.byTick[Fold(tick)]
	if !ok {
		return ErrNotFound
	}
	t.TotalMinted = t.TotalMinted.Add(amt)
	return nil
}

// All returns every ticker currently registered, for checkpoint replay and
// store rebuilds.
func (r *Registry) All() []*Ticker {
	out := make([]*Ticker, 0, len(r.byTick))
	for _, t := range r.byTick {
		out = append(out, t)
	}
	return out
}

// SetTotalMinted overwrites a ticker's TotalMinted directly. Used only by
// the rewind/rebuild path (spec.md §6), which recomputes totals from
// surviving valid mints rather than replaying AddMintAmount.
func (r *Registry) SetTotalMinted(tick string, total amount.Amount) error {
	t, ok := r.byTick[Fold(tick)]
	if !ok {
		return ErrNotFound
	}
	t.TotalMinted = total
	return nil
}
