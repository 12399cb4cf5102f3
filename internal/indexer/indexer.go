// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package indexer is the block loop of spec.md §4.I: the single-writer
// state machine (Fetching -> Processing -> Committing -> Advanced) that
// drives every other component. Its shape follows the original indexer's
// index_brc20 function (brc20_index.rs): fetch a block, walk its
// transactions in order dispatching to the operation handlers or the
// transfer-send detector, then commit the active-transfer table and
// checkpoint before advancing.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"

	"github.com/omnisat/brc20-indexer/internal/brc20/activetransfer"
	"github.com/omnisat/brc20-indexer/internal/brc20/amount"
	"github.com/omnisat/brc20-indexer/internal/brc20/ledger"
	"github.com/omnisat/brc20-indexer/internal/brc20/ops"
	"github.com/omnisat/brc20-indexer/internal/brc20/registry"
	"github.com/omnisat/brc20-indexer/internal/logging"
	"github.com/omnisat/brc20-indexer/internal/metrics"
	"github.com/omnisat/brc20-indexer/internal/node"
	"github.com/omnisat/brc20-indexer/internal/store"
	"github.com/omnisat/brc20-indexer/internal/witness"
)

// RetryDelay is the fixed transient-failure backoff of spec.md §5 and §7
// class 1. A var, not a const, so tests can shrink it.
var RetryDelay = 60 * time.Second

// Loop drives the block-by-block indexing state machine against one node
// and one store. It is constructed once per process and holds the only
// mutable references to the ticker registry and balance ledger — per
// spec.md §9, these are explicit state threaded through handler calls, not
// package globals.
type Loop struct {
	node node.Client
	st   store.Store
	reg  *registry.Registry
	ldg  *ledger.Ledger
	log  btclog.Logger
}

// New constructs a Loop with an empty registry. Run rebuilds the registry
// from the store's tickers before the first block is processed; callers
// call Bootstrap for the resume height and then Run.
func New(n node.Client, st store.Store) *Loop {
	return &Loop{
		node: n,
		st:   st,
		reg:  registry.New(),
		ldg:  ledger.New(st),
		log:  logging.Get(logging.TagIndexer),
	}
}

// Bootstrap implements spec.md §6's startup rewind primitive and returns
// the height at which Run should resume.
//
// If no checkpoint exists yet, the loop starts fresh at configuredStart.
// If a checkpoint exists and is behind configuredStart (checkpoint+1 <=
// configuredStart), the loop resumes immediately after the checkpoint.
// If the checkpoint is at or ahead of configuredStart — as when the caller
// has lowered configuredStart below it (spec.md §8 scenario 6, "rerun with
// a lower starting_block_height"), and also on a restart with an unchanged
// configuredStart once indexing has passed it — the loop rolls back:
// every domain document at or after configuredStart is deleted, tickers'
// total_minted is recomputed from the mints that survive, balances are
// dropped and rebuilt by replaying the surviving entry log in order, the
// checkpoint is set to configuredStart-1, and the loop resumes at
// configuredStart. This is the only reorg/rollback tool the core exposes
// (spec.md §9).
func (l *Loop) Bootstrap(configuredStart int64) (int64, error) {
	checkpoint, ok, err := l.st.GetCheckpoint()
	if err != nil {
		return 0, fmt.Errorf("get checkpoint: %w", err)
	}
	if !ok {
		return configuredStart, nil
	}
	if checkpoint+1 < configuredStart {
		return checkpoint + 1, nil
	}
	if checkpoint+1 == configuredStart {
		return configuredStart, nil
	}

	l.log.Infof("rolling back to height %d (checkpoint was %d)", configuredStart, checkpoint)
	if err := l.rollbackTo(configuredStart); err != nil {
		return 0, fmt.Errorf("rollback to %d: %w", configuredStart, err)
	}
	return configuredStart, nil
}

func (l *Loop) rollbackTo(height int64) error {
	if err := l.st.DeleteWhereBlockHeightGE(height); err != nil {
		return fmt.Errorf("delete documents at or after %d: %w", height, err)
	}
	if err := l.st.DropUserBalances(); err != nil {
		return fmt.Errorf("drop user balances: %w", err)
	}

	tickers, err := l.st.AllTickers()
	if err != nil {
		return fmt.Errorf("list surviving tickers: %w", err)
	}
	totals := make(map[string]amount.Amount, len(tickers))
	for _, t := range tickers {
		totals[t.Tick] = amount.Zero
	}

	mints, err := l.st.AllValidMints()
	if err != nil {
		return fmt.Errorf("list surviving mints: %w", err)
	}
	for _, m := range mints {
		credited, err := amount.Parse(m.Amt, amount.MaxDecimals)
		if err != nil {
			return fmt.Errorf("reparse surviving mint amount %q for %s: %w", m.Amt, m.Tick, err)
		}
		if total, ok := totals[m.Tick]; ok {
			totals[m.Tick] = total.Add(credited)
		}
	}

	entries, err := l.st.AllBalanceEntries()
	if err != nil {
		return fmt.Errorf("list surviving balance entries: %w", err)
	}

	type key struct{ address, tick string }
	balances := make(map[key]ledger.Balance)
	for _, e := range entries {
		k := key{e.Address, e.Tick}
		b, ok := balances[k]
		if !ok {
			b = ledger.Balance{Address: e.Address, Tick: e.Tick}
		}
		switch e.Kind {
		case ledger.EntryReceive:
			b.Available = b.Available.Add(e.Amount)
			b.Overall = b.Overall.Add(e.Amount)
		case ledger.EntryInscription:
			b.Available = b.Available.Sub(e.Amount)
			b.Transferable = b.Transferable.Add(e.Amount)
		case ledger.EntrySend:
			b.Transferable = b.Transferable.Sub(e.Amount)
			b.Overall = b.Overall.Sub(e.Amount)
		}
		balances[k] = b
	}

	for _, b := range balances {
		if err := l.st.PutBalance(b); err != nil {
			return fmt.Errorf("rebuild balance %s/%s: %w", b.Address, b.Tick, err)
		}
	}
	for _, t := range tickers {
		t.TotalMinted = totals[t.Tick]
		if err := l.st.PutTicker(t); err != nil {
			return fmt.Errorf("rebuild ticker %s: %w", t.Tick, err)
		}
	}

	return l.st.SetCheckpoint(height - 1)
}

// Run drives the loop starting at height, processing blocks in strict
// height order forever. It checks ctx only between blocks (the Advanced
// state) — per spec.md §5 there is no cancellation signal inside a block,
// and orderly shutdown means letting the current block finish committing.
func (l *Loop) Run(ctx context.Context, height int64) error {
	tickers, err := l.st.AllTickers()
	if err != nil {
		return fmt.Errorf("load tickers: %w", err)
	}
	l.reg = registry.New()
	for _, t := range tickers {
		if err := l.reg.Insert(t); err != nil {
			return fmt.Errorf("rebuild registry: %w", err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		hash, err := l.fetchBlockHash(ctx, height)
		if err != nil {
			return err
		}
		if hash == nil {
			return nil
		}

		block, err := l.fetchBlock(ctx, hash)
		if err != nil {
			return err
		}
		if block == nil {
			return nil
		}

		l.log.Infof("fetched block %s at height %s, %d transactions", hash, logging.Height(height), len(block.Transactions))

		if err := l.processBlock(height, block); err != nil {
			return fmt.Errorf("process block %d: %w", height, err)
		}

		height++
	}
}

// fetchBlockHash implements the Fetching state's block-hash lookup, with
// the fixed 60-second retry backoff of spec.md §4.I and §7 class 1.
func (l *Loop) fetchBlockHash(ctx context.Context, height int64) (*chainhash.Hash, error) {
	for {
		hash, err := l.node.BlockHash(height)
		if err == nil {
			return hash, nil
		}
		l.log.Errorf("failed to fetch block hash for height %s: %v", logging.Height(height), err)
		if !sleepOrDone(ctx, RetryDelay) {
			return nil, nil
		}
	}
}

func (l *Loop) fetchBlock(ctx context.Context, hash *chainhash.Hash) (*wire.MsgBlock, error) {
	for {
		block, err := l.node.Block(hash)
		if err == nil {
			return block, nil
		}
		l.log.Errorf("failed to fetch block %s: %v", hash, err)
		if !sleepOrDone(ctx, RetryDelay) {
			return nil, nil
		}
	}
}

// sleepOrDone sleeps for d unless ctx finishes first, in which case it
// returns false.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// processBlock implements the Processing and Committing states for one
// block.
func (l *Loop) processBlock(height int64, block *wire.MsgBlock) error {
	entries, err := l.st.LoadActiveTransfers()
	if err != nil {
		return fmt.Errorf("load active transfers: %w", err)
	}
	table := activetransfer.Load(entries)

	for txHeight, tx := range block.Transactions {
		if err := l.processTransaction(height, int64(txHeight), tx, table); err != nil {
			l.log.Errorf("transaction %s at height %s: %v", tx.TxHash(), logging.Height(height), err)
		}
	}

	if err := l.st.ReplaceActiveTransfers(table.All()); err != nil {
		return fmt.Errorf("replace active transfers: %w", err)
	}
	if err := l.st.SetCheckpoint(height); err != nil {
		return err
	}
	metrics.BlocksProcessed.Inc()
	return nil
}

func (l *Loop) processTransaction(height, txHeight int64, tx *wire.MsgTx, table *activetransfer.Table) error {
	txid := tx.TxHash().String()

	witnessStrings := witness.Scan(node.WitnessStacks(tx))
	insc, found := witness.DecodeAny(witnessStrings)

	if found {
		owner, err := ownerOfVout0(tx)
		if err != nil {
			return fmt.Errorf("resolve output 0 owner: %w", err)
		}
		return l.dispatchInscription(height, txid, insc, owner, table)
	}

	spendTx := l.buildSpendTx(tx, txid)
	settlements, err := ops.DetectTransferSend(spendTx, height, table, l.ldg, l.resolveInputValue)
	for _, s := range settlements {
		if serr := l.st.SettleTransfer(s.OutPoint.Txid, s.To, txid, height); serr != nil {
			l.log.Errorf("settle transfer %s: %v", s.OutPoint.Txid, serr)
			continue
		}
		metrics.TransferSettlements.Inc()
	}
	return err
}

func (l *Loop) dispatchInscription(height int64, txid string, insc witness.Inscription, owner string, table *activetransfer.Table) error {
	metrics.InscriptionsFound.WithLabelValues(string(insc.Op)).Inc()
	switch insc.Op {
	case witness.OpDeploy:
		t, err := ops.HandleDeploy(insc, l.reg, height, txid)
		return l.recordDeployResult(height, txid, insc, t, err)
	case witness.OpMint:
		t, credited, err := ops.HandleMint(insc, l.reg, l.ldg, owner, height)
		return l.recordMintResult(height, txid, insc, owner, t, credited, err)
	case witness.OpTransfer:
		err := ops.HandleTransferInscribe(insc, l.reg, l.ldg, table, owner, txid, height)
		return l.recordTransferResult(height, txid, insc, owner, err)
	default:
		return l.recordInvalid(height, txid, fmt.Sprintf("unexpected operation %q", insc.Op))
	}
}

func (l *Loop) recordDeployResult(height int64, txid string, insc witness.Inscription, t *registry.Ticker, err error) error {
	tick := registry.Fold(insc.Tick)
	if inv, ok := asInvalid(err); ok {
		return l.recordInvalidWith(height, txid, inv)
	}
	if err != nil {
		return err
	}
	if err := l.st.PutTicker(t); err != nil {
		return fmt.Errorf("persist ticker %s: %w", tick, err)
	}
	if err := l.st.RecordDeploy(store.DeployDoc{Txid: txid, BlockHeight: height, Tick: tick, Valid: true}); err != nil {
		return err
	}
	metrics.OpsApplied.WithLabelValues(string(witness.OpDeploy)).Inc()
	return nil
}

// recordMintResult persists the ticker's advanced total_minted and the mint
// record. The mint document's Amt field records what was actually credited,
// not what the inscription requested: under the partial-fill rule (spec.md
// §4.G) the two differ, and Amt here is the value rollbackTo's total_minted
// recomputation sums back up, so it must match what CreditAvailable applied.
func (l *Loop) recordMintResult(height int64, txid string, insc witness.Inscription, owner string, t *registry.Ticker, credited amount.Amount, err error) error {
	tick := registry.Fold(insc.Tick)
	if inv, ok := asInvalid(err); ok {
		return l.recordInvalidWith(height, txid, inv)
	}
	if err != nil {
		return err
	}
	if err := l.st.PutTicker(t); err != nil {
		return fmt.Errorf("persist ticker %s: %w", tick, err)
	}
	if err := l.st.RecordMint(store.MintDoc{Txid: txid, BlockHeight: height, Tick: tick, To: owner, Amt: credited.String(), Valid: true}); err != nil {
		return err
	}
	metrics.OpsApplied.WithLabelValues(string(witness.OpMint)).Inc()
	return nil
}

func (l *Loop) recordTransferResult(height int64, txid string, insc witness.Inscription, owner string, err error) error {
	tick := registry.Fold(insc.Tick)
	if inv, ok := asInvalid(err); ok {
		return l.recordInvalidWith(height, txid, inv)
	}
	if err != nil {
		return err
	}
	if err := l.st.RecordTransfer(store.TransferDoc{
		InscriptionTxid: txid,
		BlockHeight:     height,
		Tick:            tick,
		Amt:             insc.Amt,
		From:            owner,
		Valid:           true,
	}); err != nil {
		return err
	}
	metrics.OpsApplied.WithLabelValues(string(witness.OpTransfer)).Inc()
	return nil
}

func (l *Loop) recordInvalid(height int64, txid, reason string) error {
	if err := l.st.RecordInvalid(store.InvalidDoc{Txid: txid, BlockHeight: height, Reason: reason}); err != nil {
		return err
	}
	metrics.Invalids.Inc()
	return nil
}

func (l *Loop) recordInvalidWith(height int64, txid string, inv *ops.Invalid) error {
	return l.recordInvalid(height, txid, inv.Error())
}

func asInvalid(err error) (*ops.Invalid, bool) {
	inv, ok := err.(*ops.Invalid)
	return inv, ok
}

// ownerOfVout0 derives the controlling address of the inscription
// transaction's first output, which spec.md §3 fixes as the inscribed
// satoshi's location.
func ownerOfVout0(tx *wire.MsgTx) (string, error) {
	if len(tx.TxOut) == 0 {
		return "", fmt.Errorf("transaction has no outputs")
	}
	return node.AddressFromPkScript(tx.TxOut[0].PkScript)
}

// buildSpendTx records every input's outpoint and every output's resolved
// address and value from the block data already in hand. It issues no RPC
// calls: previous-output values are resolved lazily by resolveInputValue,
// only for the inputs DetectTransferSend actually needs (spec.md §4.H step
// 3 never needs a value for input 0, and most transactions settle no
// tracked transfer at all).
func (l *Loop) buildSpendTx(tx *wire.MsgTx, txid string) ops.SpendTx {
	spend := ops.SpendTx{Txid: txid}

	for _, in := range tx.TxIn {
		spend.Inputs = append(spend.Inputs, ops.SpendInput{
			PrevTxid: in.PreviousOutPoint.Hash.String(),
			PrevVout: in.PreviousOutPoint.Index,
		})
	}

	for _, out := range tx.TxOut {
		addr, err := node.AddressFromPkScript(out.PkScript)
		if err != nil {
			addr = ""
		}
		spend.Outputs = append(spend.Outputs, ops.SpendOutput{ValueSat: out.Value, Address: addr})
	}

	return spend
}

// resolveInputValue backs ops.ValueResolver with a node RPC call. A
// coinbase input's "previous output" doesn't exist on chain, so it
// resolves to 0 without a call; DetectTransferSend never consumes a
// coinbase outpoint as a tracked transfer in practice, but this keeps the
// resolver total either way.
func (l *Loop) resolveInputValue(prevTxid string, prevVout uint32) (int64, error) {
	if prevTxid == (chainhash.Hash{}).String() && prevVout == wire.MaxPrevOutIndex {
		return 0, nil
	}
	hash, err := chainhash.NewHashFromStr(prevTxid)
	if err != nil {
		return 0, fmt.Errorf("parse previous txid %s: %w", prevTxid, err)
	}
	return node.OutputValue(l.node, hash, prevVout)
}
