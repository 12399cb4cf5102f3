// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package activetransfer is the active-transfer table of spec.md §4.F: the
// map from a transfer-inscription's outpoint to the pending transfer it
// carries, until that outpoint is spent and the transfer settles.
//
// The table is owned by the block loop for the duration of a block (spec.md
// §3 "Ownership"): loaded from the store at Processing start, mutated in
// memory as transfer-inscribes and settlements are handled, and persisted
// wholesale at Committing. It is never a package global; one Table is
// constructed per loop run, matching spec.md §9's "explicit state object,
// not process global" guidance already applied in registry and ledger.
package activetransfer

import "github.com/omnisat/brc20-indexer/internal/brc20/amount"

// OutPoint identifies the inscribed satoshi's location: the inscription
// transaction's txid and its vout, which spec.md §3 fixes at 0.
type OutPoint struct {
	Txid string
	Vout uint32
}

// Transfer is the value half of the table: what moves, how much, and whose
// balance it comes from, when OutPoint is next spent.
//
// spec.md §4.H step 2 describes recovering `from`, `tick`, and `amt` from
// the persisted transfer document at settlement time. Carrying From here
// too avoids a synchronous store round trip on every settlement; the
// persisted transfer document remains the record of truth for readers and
// is updated the same way either way (step 6).
type Transfer struct {
	From string
	Tick string
	Amt  amount.Amount
}

// Entry pairs a key and value, used for bulk load/persist round-trips with
// the store (spec.md §4.J load_active_transfers / replace_active_transfers).
type Entry struct {
	OutPoint OutPoint
	Transfer Transfer
}

// Table is the in-memory active-transfer map for one block loop run.
type Table struct {
	m map[OutPoint]Transfer
}

// New returns an empty table.
func New() *Table {
	return &Table{m: make(map[OutPoint]Transfer)}
}

// Load returns a new table holding entries, as read from the store at the
// start of block processing (spec.md §4.I Processing).
func Load(entries []Entry) *Table {
	t := &Table{m: make(map[OutPoint]Transfer, len(entries))}
	for _, e := range entries {
		t.m[e.OutPoint] = e.Transfer
	}
	return t
}

// Insert records a newly valid transfer-inscribe. Per spec.md §4.G
// Transfer-Inscribe, outpoints are always vout 0 of the inscription tx, and
// a fresh inscription txid can never already be a key.
func (t *Table) Insert(op OutPoint, tr Transfer) {
	t.m[op] = tr
}

// Consume looks up op and removes it if present, reporting whether it was
// found. This is step 2 of spec.md §4.H: a spend of a tracked outpoint
// consumes the active-transfer entry exactly once.
func (t *Table) Consume(op OutPoint) (Transfer, bool) {
	tr, ok := t.m[op]
	if ok {
		delete(t.m, op)
	}
	return tr, ok
}

// Len reports how many active transfers remain, mainly for tests asserting
// invariant I4 (spec.md §8).
func (t *Table) Len() int {
	return len(t.m)
}

// All returns every remaining entry, for persisting the table back to the
// store at Committing (spec.md §4.I: drop and re-insert the collection).
func (t *Table) All() []Entry {
	out := make([]Entry, 0, len(t.m))
	for op, tr := range t.m {
		out = append(out, Entry{OutPoint: op, Transfer: tr})
	}
	return out
}
