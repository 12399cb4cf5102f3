// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package memstore is an in-memory store.Store, used by tests for the
// operation handlers and the block loop. It has no teacher-file lineage of
// its own; it exists purely to give internal/indexer and internal/brc20/*
// something to run against without a live document store.
package memstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/omnisat/brc20-indexer/internal/brc20/activetransfer"
	"github.com/omnisat/brc20-indexer/internal/brc20/ledger"
	"github.com/omnisat/brc20-indexer/internal/brc20/registry"
	"github.com/omnisat/brc20-indexer/internal/store"
)

type balanceKey struct{ address, tick string }

// Store is a single-process, mutex-guarded implementation of store.Store.
type Store struct {
	mu sync.Mutex

	checkpoint   int64
	hasCheckpoint bool

	activeTransfers map[activetransfer.OutPoint]activetransfer.Transfer

	tickers map[string]*registry.Ticker

	deploys   []store.DeployDoc
	mints     []store.MintDoc
	transfers map[string]*store.TransferDoc
	invalids  []store.InvalidDoc

	balances map[balanceKey]ledger.Balance
	entries  []ledger.Entry
}

// New returns an empty store.
func New() *Store {
	return &Store{
		activeTransfers: make(map[activetransfer.OutPoint]activetransfer.Transfer),
		tickers:         make(map[string]*registry.Ticker),
		transfers:       make(map[string]*store.TransferDoc),
		balances:        make(map[balanceKey]ledger.Balance),
	}
}

func (s *Store) GetCheckpoint() (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoint, s.hasCheckpoint, nil
}

func (s *Store) SetCheckpoint(height int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoint = height
	s.hasCheckpoint = true
	return nil
}

func (s *Store) LoadActiveTransfers() ([]activetransfer.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]activetransfer.Entry, 0, len(s.activeTransfers))
	for op, tr := range s.activeTransfers {
		out = append(out, activetransfer.Entry{OutPoint: op, Transfer: tr})
	}
	return out, nil
}

func (s *Store) ReplaceActiveTransfers(entries []activetransfer.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTransfers = make(map[activetransfer.OutPoint]activetransfer.Transfer, len(entries))
	for _, e := range entries {
		s.activeTransfers[e.OutPoint] = e.Transfer
	}
	return nil
}

func (s *Store) PutTicker(t *registry.Ticker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tickers[t.Tick] = &cp
	return nil
}

func (s *Store) AllTickers() ([]*registry.Ticker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*registry.Ticker, 0, len(s.tickers))
	for _, t := range s.tickers {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, nil
}

func (s *Store) RecordDeploy(d store.DeployDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deploys = append(s.deploys, d)
	return nil
}

func (s *Store) RecordMint(m store.MintDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mints = append(s.mints, m)
	return nil
}

func (s *Store) RecordTransfer(t store.TransferDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	s.transfers[t.InscriptionTxid] = &cp
	return nil
}

func (s *Store) SettleTransfer(inscriptionTxid, to, sendTxid string, blockHeight int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[inscriptionTxid]
	if !ok {
		return fmt.Errorf("settle transfer: no transfer document for txid %s", inscriptionTxid)
	}
	t.To = to
	t.SendTxid = sendTxid
	return nil
}

func (s *Store) RecordInvalid(i store.InvalidDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalids = append(s.invalids, i)
	return nil
}

func (s *Store) GetBalance(address, tick string) (ledger.Balance, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[balanceKey{address, tick}]
	return b, ok, nil
}

func (s *Store) PutBalance(b ledger.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[balanceKey{b.Address, b.Tick}] = b
	return nil
}

func (s *Store) AppendEntry(e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *Store) AllValidMints() ([]store.MintDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.MintDoc
	for _, m := range s.mints {
		if m.Valid {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) AllBalanceEntries() ([]ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *Store) DeleteWhereBlockHeightGE(height int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keepDeploys := s.deploys[:0:0]
	for _, d := range s.deploys {
		if d.BlockHeight < height {
			keepDeploys = append(keepDeploys, d)
		}
	}
	s.deploys = keepDeploys

	keepMints := s.mints[:0:0]
	for _, m := range s.mints {
		if m.BlockHeight < height {
			keepMints = append(keepMints, m)
		}
	}
	s.mints = keepMints

	for txid, t := range s.transfers {
		if t.BlockHeight >= height {
			delete(s.transfers, txid)
		}
	}

	keepInvalids := s.invalids[:0:0]
	for _, i := range s.invalids {
		if i.BlockHeight < height {
			keepInvalids = append(keepInvalids, i)
		}
	}
	s.invalids = keepInvalids

	keepEntries := s.entries[:0:0]
	for _, e := range s.entries {
		if e.BlockHeight < height {
			keepEntries = append(keepEntries, e)
		}
	}
	s.entries = keepEntries

	for _, t := range s.tickers {
		if t.DeployBlockHeight >= height {
			delete(s.tickers, t.Tick)
		}
	}

	return nil
}

func (s *Store) DropUserBalances() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = make(map[balanceKey]ledger.Balance)
	return nil
}

var _ store.Store = (*Store)(nil)
