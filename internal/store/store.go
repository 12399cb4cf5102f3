// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store defines the abstract persistence contract of spec.md §4.J:
// checkpoints, the active-transfer table, and collection-scoped CRUD for
// the domain documents of §6. The indexing core (internal/indexer) depends
// only on Store; internal/store/mongostore is the concrete document-store
// implementation, and internal/store/memstore is an in-memory fake used by
// tests.
package store

import (
	"github.com/omnisat/brc20-indexer/internal/brc20/activetransfer"
	"github.com/omnisat/brc20-indexer/internal/brc20/ledger"
	"github.com/omnisat/brc20-indexer/internal/brc20/registry"
)

// Collection names, logical (spec.md §6); a given Store implementation may
// map these to literal collection/table names however it likes.
const (
	CollectionTickers         = "brc20_tickers"
	CollectionDeploys         = "brc20_deploys"
	CollectionMints           = "brc20_mints"
	CollectionTransfers       = "brc20_transfers"
	CollectionInvalids        = "brc20_invalids"
	CollectionUserBalances    = "brc20_user_balances"
	CollectionUserBalanceLog  = "brc20_user_balance_entry"
	CollectionActiveTransfers = "brc20_active_transfers"
	CollectionCheckpoint      = "blocks_completed"
)

// DeployDoc records a deploy attempt, valid or not.
type DeployDoc struct {
	Txid        string
	BlockHeight int64
	Tick        string
	Valid       bool
	Reasons     []string
}

// MintDoc records a mint attempt, valid or not.
type MintDoc struct {
	Txid        string
	BlockHeight int64
	Tick        string
	To          string
	Amt         string
	Valid       bool
	Reasons     []string
}

// TransferDoc records a transfer-inscribe and, once settled, its send side.
type TransferDoc struct {
	InscriptionTxid string
	BlockHeight     int64
	Tick            string
	Amt             string
	From            string
	Valid           bool
	Reasons         []string
	To              string // empty until settled
	SendTxid        string // empty until settled
}

// InvalidDoc records any inscription that failed protocol validation,
// regardless of which operation it claimed to be.
type InvalidDoc struct {
	Txid        string
	BlockHeight int64
	Reason      string
}

// Store is the persistence contract the block loop and operation handlers
// depend on.
type Store interface {
	ledger.Backend

	// Checkpoint is the highest block height fully committed (spec.md §3).
	GetCheckpoint() (height int64, ok bool, err error)
	SetCheckpoint(height int64) error

	// Active-transfer table, persisted wholesale at block commit
	// (spec.md §4.I Committing).
	LoadActiveTransfers() ([]activetransfer.Entry, error)
	ReplaceActiveTransfers(entries []activetransfer.Entry) error

	// Ticker registry persistence, for rebuild on startup (spec.md §6).
	PutTicker(t *registry.Ticker) error
	AllTickers() ([]*registry.Ticker, error)

	// Append-only record of every deploy/mint/transfer/invalid attempt.
	RecordDeploy(DeployDoc) error
	RecordMint(MintDoc) error
	RecordTransfer(TransferDoc) error
	SettleTransfer(inscriptionTxid, to, sendTxid string, blockHeight int64) error
	RecordInvalid(InvalidDoc) error

	// AllBalanceEntries returns the full audit log ordered by block height,
	// for invariant I3 checks and the replay-rebuild path. The order of
	// entries within one block height is not fixed by this contract:
	// memstore keeps append order, mongostore sorts on block_height only.
	AllBalanceEntries() ([]ledger.Entry, error)

	// AllValidMints returns every mint recorded as valid, for recomputing
	// a ticker's total_minted from surviving mints on rollback (spec.md
	// §9: "persisted total_minted equals the sum of Receive entries of
	// kind 'mint'"). The balance-entry log alone cannot make this
	// distinction, since a transfer settlement's receive side is also a
	// Receive entry; the mint documents are the unambiguous source.
	AllValidMints() ([]MintDoc, error)

	// DeleteWhereBlockHeightGE implements the rollback primitive of
	// spec.md §6: purge every domain document at or above height from
	// every collection that carries a block height.
	DeleteWhereBlockHeightGE(height int64) error

	// DropUserBalances drops the current-balance collection entirely; the
	// rewind path rebuilds it from AllBalanceEntries.
	DropUserBalances() error
}
