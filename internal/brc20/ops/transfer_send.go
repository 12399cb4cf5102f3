// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ops

import (
	"fmt"

	"github.com/omnisat/brc20-indexer/internal/brc20/activetransfer"
	"github.com/omnisat/brc20-indexer/internal/brc20/amount"
	"github.com/omnisat/brc20-indexer/internal/brc20/ledger"
)

// SpendInput is one input of a candidate settlement transaction, identified
// by the outpoint it spends. Its satoshi value is resolved lazily — via
// ValueResolver — only for the inputs recipient resolution actually needs,
// mirroring the original indexer's transaction_inputs_to_values, which is
// called only once a tracked transfer is found settling at index > 0.
type SpendInput struct {
	PrevTxid string
	PrevVout uint32
}

// ValueResolver looks up the satoshi value of a previous transaction's
// output on demand. The block loop backs this with a node RPC call;
// DetectTransferSend never calls it for input 0 (spec.md §4.H step 3 needs
// no value lookup there) and caches every other result it does fetch so a
// transaction settling more than one transfer doesn't re-resolve the same
// input twice.
type ValueResolver func(prevTxid string, prevVout uint32) (int64, error)

// SpendOutput is one output of a candidate settlement transaction.
type SpendOutput struct {
	ValueSat int64
	Address  string
}

// SpendTx is the shape of a transaction the detector runs against: every
// input, in order, and every output, in order.
type SpendTx struct {
	Txid    string
	Inputs  []SpendInput
	Outputs []SpendOutput
}

// Settlement records one active transfer that settled within a SpendTx.
type Settlement struct {
	OutPoint activetransfer.OutPoint
	From     string
	To       string
	Tick     string
	Amt      amount.Amount
}

// DetectTransferSend implements spec.md §4.H: for each input of tx, in
// ascending index order, checks whether it spends a tracked active
// transfer; if so, consumes the entry, resolves the recipient per the
// input-index -> output-index cumulative-value rule, and applies the
// settlement to ldg. The block loop runs it only on transactions in which
// no BRC-20 inscription was decoded; a transaction carrying an inscription
// that fails validation is not checked for settlements (spec.md §4.I).
//
// resolveValue is only ever invoked for inputs preceding a settlement found
// at index > 0 — the common case (a transaction touching no tracked
// transfer at all) issues no RPC calls whatsoever.
func DetectTransferSend(tx SpendTx, blockHeight int64, table *activetransfer.Table, ldg *ledger.Ledger, resolveValue ValueResolver) ([]Settlement, error) {
	var settlements []Settlement
	valueCache := make(map[int]int64)

	for i, in := range tx.Inputs {
		op := activetransfer.OutPoint{Txid: in.PrevTxid, Vout: in.PrevVout}
		tr, ok := table.Consume(op)
		if !ok {
			continue
		}

		recipient, err := resolveRecipient(tx, i, resolveValue, valueCache)
		if err != nil {
			return settlements, fmt.Errorf("resolve recipient for %s input %d: %w", tx.Txid, i, err)
		}

		if err := ldg.Send(tr.From, tr.Tick, tr.Amt, blockHeight); err != nil {
			return settlements, fmt.Errorf("settle send side: %w", err)
		}
		if err := ldg.CreditAvailable(recipient, tr.Tick, tr.Amt, blockHeight, ledger.EntryReceive); err != nil {
			return settlements, fmt.Errorf("settle receive side: %w", err)
		}

		settlements = append(settlements, Settlement{
			OutPoint: op,
			From:     tr.From,
			To:       recipient,
			Tick:     tr.Tick,
			Amt:      tr.Amt,
		})
	}

	return settlements, nil
}

// resolveRecipient implements spec.md §4.H step 3, the input-index ->
// output-index cumulative-value rule. Input 0 always settles to output 0,
// needing no value lookup at all. Otherwise the recipient is the first
// output whose running cumulative value is at least the sum of the values
// of inputs preceding i — each resolved through resolveValue on first use
// and cached in cache — with the last output as the fallback if no output
// satisfies that (the sum exceeds every output's cumulative value, e.g. a
// large fee).
func resolveRecipient(tx SpendTx, inputIndex int, resolveValue ValueResolver, cache map[int]int64) (string, error) {
	if len(tx.Outputs) == 0 {
		return "", fmt.Errorf("spending transaction has no outputs")
	}
	if inputIndex == 0 {
		return tx.Outputs[0].Address, nil
	}

	var sum int64
	for idx := 0; idx < inputIndex; idx++ {
		v, ok := cache[idx]
		if !ok {
			in := tx.Inputs[idx]
			resolved, err := resolveValue(in.PrevTxid, in.PrevVout)
			if err != nil {
				return "", fmt.Errorf("resolve value of input %d (%s:%d): %w", idx, in.PrevTxid, in.PrevVout, err)
			}
			cache[idx] = resolved
			v = resolved
		}
		sum += v
	}

	var cumulative int64
	for _, out := range tx.Outputs {
		cumulative += out.ValueSat
		if cumulative >= sum {
			return out.Address, nil
		}
	}
	return tx.Outputs[len(tx.Outputs)-1].Address, nil
}
