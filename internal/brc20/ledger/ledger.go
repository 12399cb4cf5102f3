// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledger is the per-(address, tick) balance ledger of spec.md §4.E,
// plus the append-only audit log that replay (spec.md §8 "round-trip law")
// and the rebuild-on-rewind path (spec.md §6) both depend on.
//
// Every mutation here is paired with an audit-log entry, and spec.md §9's
// open question about entry-vs-balance ordering is resolved the same way in
// every method below: append the entry first, then mutate the balance row.
// That ordering is what makes replaying brc20_user_balance_entry alone
// (spec.md §8 invariant I3) reproduce the balances exactly.
package ledger

import (
	"errors"
	"fmt"

	"github.com/omnisat/brc20-indexer/internal/brc20/amount"
)

// EntryKind is the audit-log row's discriminant (spec.md §3 "User balance
// entry").
type EntryKind string

const (
	EntryInscription EntryKind = "inscription"
	EntrySend        EntryKind = "send"
	EntryReceive     EntryKind = "receive"
)

// ErrInsufficientAvailable is returned by Inscribe when the inscriber's
// available balance is less than the requested amount.
var ErrInsufficientAvailable = errors.New("insufficient available balance")

// Balance is the data-model triple of spec.md §3.
type Balance struct {
	Address      string
	Tick         string
	Overall      amount.Amount
	Available    amount.Amount
	Transferable amount.Amount
}

// Entry is the append-only audit-log row of spec.md §3.
type Entry struct {
	Address     string
	Tick        string
	BlockHeight int64
	Amount      amount.Amount
	Kind        EntryKind
}

// Backend is the persistence seam the ledger writes through. Every mutating
// method below calls AppendEntry before PutBalance, preserving the pairing
// ordering spec.md §9 specifies. Implementations (internal/store) back this
// with a document store; tests back it with an in-memory map.
type Backend interface {
	GetBalance(address, tick string) (Balance, bool, error)
	PutBalance(Balance) error
	AppendEntry(Entry) error
}

// Ledger applies spec.md §4.E's operations against a Backend.
type Ledger struct {
	b Backend
}

// New wraps a Backend as a Ledger.
func New(b Backend) *Ledger {
	return &Ledger{b: b}
}

func (l *Ledger) load(address, tick string) (Balance, error) {
	bal, ok, err := l.b.GetBalance(address, tick)
	if err != nil {
		return Balance{}, err
	}
	if !ok {
		return Balance{Address: address, Tick: tick}, nil
	}
	return bal, nil
}

// CreditAvailable implements spec.md §4.E credit_available: available and
// overall both increase by amt. Used by mint and by transfer-send's receive
// side. kind selects the audit-log row type (mint uses EntryReceive per
// spec.md §4.G; transfer-send's receiver side also uses EntryReceive).
func (l *Ledger) CreditAvailable(address, tick string, amt amount.Amount, blockHeight int64, kind EntryKind) error {
	if err := l.b.AppendEntry(Entry{Address: address, Tick: tick, BlockHeight: blockHeight, Amount: amt, Kind: kind}); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	bal, err := l.load(address, tick)
	if err != nil {
		return fmt.Errorf("load balance: %w", err)
	}
	bal.Available = bal.Available.Add(amt)
	bal.Overall = bal.Overall.Add(amt)
	return l.b.PutBalance(bal)
}

// InscribeTransfer implements spec.md §4.E inscribe_transfer: moves amt from
// available to transferable. Overall is unchanged. Fails if available < amt.
func (l *Ledger) InscribeTransfer(address, tick string, amt amount.Amount, blockHeight int64) error {
	bal, err := l.load(address, tick)
	if err != nil {
		return fmt.Errorf("load balance: %w", err)
	}
	if bal.Available.LessThan(amt) {
		return ErrInsufficientAvailable
	}
	if err := l.b.AppendEntry(Entry{Address: address, Tick: tick, BlockHeight: blockHeight, Amount: amt, Kind: EntryInscription}); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	bal.Available = bal.Available.Sub(amt)
	bal.Transferable = bal.Transferable.Add(amt)
	return l.b.PutBalance(bal)
}

// Send implements spec.md §4.E send: transferable and overall both decrease
// by amt. Used on settlement, sender side. The caller (the transfer-send
// detector) must already know transferable >= amt; this method does not
// re-validate, matching spec.md §4.E: "Missing row at debit time is an error
// the caller must prevent."
func (l *Ledger) Send(address, tick string, amt amount.Amount, blockHeight int64) error {
	if err := l.b.AppendEntry(Entry{Address: address, Tick: tick, BlockHeight: blockHeight, Amount: amt, Kind: EntrySend}); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	bal, err := l.load(address, tick)
	if err != nil {
		return fmt.Errorf("load balance: %w", err)
	}
	bal.Transferable = bal.Transferable.Sub(amt)
	bal.Overall = bal.Overall.Sub(amt)
	return l.b.PutBalance(bal)
}

// Available returns the current available balance for (address, tick),
// used by the transfer-inscribe handler's pre-check.
func (l *Ledger) Available(address, tick string) (amount.Amount, error) {
	bal, err := l.load(address, tick)
	if err != nil {
		return amount.Amount{}, err
	}
	return bal.Available, nil
}
