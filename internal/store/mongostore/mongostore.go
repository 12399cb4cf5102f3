// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mongostore is the document-store implementation of store.Store,
// backed by go.mongodb.org/mongo-driver. It is grounded on the original
// indexer's mongo.rs: the same collection names and the same
// find-one/update-one/insert-one/drop-collection shape, restated as a Go
// driver client instead of hand-rolled BSON filter construction per call
// site.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/omnisat/brc20-indexer/internal/brc20/activetransfer"
	"github.com/omnisat/brc20-indexer/internal/brc20/amount"
	"github.com/omnisat/brc20-indexer/internal/brc20/ledger"
	"github.com/omnisat/brc20-indexer/internal/brc20/registry"
	"github.com/omnisat/brc20-indexer/internal/store"
)

// callTimeout bounds every individual Mongo call. The core itself has no
// cancellation signal (spec.md §5); this is purely a client-side guard
// against a wedged connection, not a retry or backoff policy.
const callTimeout = 30 * time.Second

// Store is a store.Store backed by a single Mongo database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Dial connects to uri and selects database dbName.
func Dial(uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	opts := options.Client().ApplyURI(uri).SetDirect(true)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), callTimeout)
}

// --- checkpoint ---

type checkpointDoc struct {
	ID     string `bson:"_id"`
	Height int64  `bson:"height"`
}

const checkpointDocID = "checkpoint"

func (s *Store) GetCheckpoint() (int64, bool, error) {
	c, cancel := ctx()
	defer cancel()

	var doc checkpointDoc
	err := s.coll(store.CollectionCheckpoint).FindOne(c, bson.M{"_id": checkpointDocID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get checkpoint: %w", err)
	}
	return doc.Height, true, nil
}

func (s *Store) SetCheckpoint(height int64) error {
	c, cancel := ctx()
	defer cancel()

	_, err := s.coll(store.CollectionCheckpoint).UpdateOne(c,
		bson.M{"_id": checkpointDocID},
		bson.M{"$set": bson.M{"height": height}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set checkpoint: %w", err)
	}
	return nil
}

// --- active transfers ---

type activeTransferDoc struct {
	Txid string  `bson:"txid"`
	Vout uint32  `bson:"vout"`
	From string  `bson:"from"`
	Tick string  `bson:"tick"`
	Amt  float64 `bson:"amt"`
}

func (s *Store) LoadActiveTransfers() ([]activetransfer.Entry, error) {
	c, cancel := ctx()
	defer cancel()

	cur, err := s.coll(store.CollectionActiveTransfers).Find(c, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("load active transfers: %w", err)
	}
	defer cur.Close(c)

	var out []activetransfer.Entry
	for cur.Next(c) {
		var d activeTransferDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode active transfer: %w", err)
		}
		out = append(out, activetransfer.Entry{
			OutPoint: activetransfer.OutPoint{Txid: d.Txid, Vout: d.Vout},
			Transfer: activetransfer.Transfer{
				From: d.From,
				Tick: d.Tick,
				Amt:  amount.FromFloat64(d.Amt),
			},
		})
	}
	return out, cur.Err()
}

// ReplaceActiveTransfers drops and re-inserts the whole collection, the
// "atomic replacement at block granularity" of spec.md §4.I Committing.
// spec.md §9 notes a production store should upsert-and-delete instead to
// avoid the brief empty window; this store follows the original's simpler
// drop-collection behavior, same as the indexing core's reference design.
func (s *Store) ReplaceActiveTransfers(entries []activetransfer.Entry) error {
	c, cancel := ctx()
	defer cancel()

	coll := s.coll(store.CollectionActiveTransfers)
	if err := coll.Drop(c); err != nil {
		return fmt.Errorf("drop active transfers: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		docs[i] = activeTransferDoc{
			Txid: e.OutPoint.Txid,
			Vout: e.OutPoint.Vout,
			From: e.Transfer.From,
			Tick: e.Transfer.Tick,
			Amt:  e.Transfer.Amt.Float64(),
		}
	}
	if _, err := coll.InsertMany(c, docs); err != nil {
		return fmt.Errorf("insert active transfers: %w", err)
	}
	return nil
}

// --- tickers ---

type tickerDoc struct {
	Tick              string  `bson:"tick"`
	Limit             float64 `bson:"limit"`
	MaxSupply         float64 `bson:"max_supply"`
	Decimals          uint8   `bson:"decimals"`
	TotalMinted       float64 `bson:"total_minted"`
	DeployBlockHeight int64   `bson:"block_height"`
	DeployTxid        string  `bson:"deploy_txid"`
}

func tickerToDoc(t *registry.Ticker) tickerDoc {
	return tickerDoc{
		Tick:              t.Tick,
		Limit:             t.Limit.Float64(),
		MaxSupply:         t.MaxSupply.Float64(),
		Decimals:          t.Decimals,
		TotalMinted:       t.TotalMinted.Float64(),
		DeployBlockHeight: t.DeployBlockHeight,
		DeployTxid:        t.DeployTxid,
	}
}

func (d tickerDoc) toTicker() *registry.Ticker {
	return &registry.Ticker{
		Tick:              d.Tick,
		Limit:             amount.FromFloat64(d.Limit),
		MaxSupply:         amount.FromFloat64(d.MaxSupply),
		Decimals:          d.Decimals,
		TotalMinted:       amount.FromFloat64(d.TotalMinted),
		DeployBlockHeight: d.DeployBlockHeight,
		DeployTxid:        d.DeployTxid,
	}
}

func (s *Store) PutTicker(t *registry.Ticker) error {
	c, cancel := ctx()
	defer cancel()

	_, err := s.coll(store.CollectionTickers).UpdateOne(c,
		bson.M{"tick": t.Tick},
		bson.M{"$set": tickerToDoc(t)},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put ticker %s: %w", t.Tick, err)
	}
	return nil
}

func (s *Store) AllTickers() ([]*registry.Ticker, error) {
	c, cancel := ctx()
	defer cancel()

	cur, err := s.coll(store.CollectionTickers).Find(c, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	defer cur.Close(c)

	var out []*registry.Ticker
	for cur.Next(c) {
		var d tickerDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode ticker: %w", err)
		}
		out = append(out, d.toTicker())
	}
	return out, cur.Err()
}

// --- deploys / mints / transfers / invalids ---

type deployDoc struct {
	Txid        string   `bson:"txid"`
	BlockHeight int64    `bson:"block_height"`
	Tick        string   `bson:"tick"`
	Valid       bool     `bson:"valid"`
	Reasons     []string `bson:"reasons,omitempty"`
}

func (s *Store) RecordDeploy(d store.DeployDoc) error {
	c, cancel := ctx()
	defer cancel()
	_, err := s.coll(store.CollectionDeploys).InsertOne(c, deployDoc{
		Txid: d.Txid, BlockHeight: d.BlockHeight, Tick: d.Tick, Valid: d.Valid, Reasons: d.Reasons,
	})
	if err != nil {
		return fmt.Errorf("record deploy %s: %w", d.Txid, err)
	}
	return nil
}

type mintDoc struct {
	Txid        string   `bson:"txid"`
	BlockHeight int64    `bson:"block_height"`
	Tick        string   `bson:"tick"`
	To          string   `bson:"to"`
	Amt         string   `bson:"amt"`
	Valid       bool     `bson:"valid"`
	Reasons     []string `bson:"reasons,omitempty"`
}

func (s *Store) RecordMint(m store.MintDoc) error {
	c, cancel := ctx()
	defer cancel()
	_, err := s.coll(store.CollectionMints).InsertOne(c, mintDoc{
		Txid: m.Txid, BlockHeight: m.BlockHeight, Tick: m.Tick, To: m.To, Amt: m.Amt,
		Valid: m.Valid, Reasons: m.Reasons,
	})
	if err != nil {
		return fmt.Errorf("record mint %s: %w", m.Txid, err)
	}
	return nil
}

func (s *Store) AllValidMints() ([]store.MintDoc, error) {
	c, cancel := ctx()
	defer cancel()

	cur, err := s.coll(store.CollectionMints).Find(c, bson.M{"valid": true})
	if err != nil {
		return nil, fmt.Errorf("list valid mints: %w", err)
	}
	defer cur.Close(c)

	var out []store.MintDoc
	for cur.Next(c) {
		var d mintDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode mint: %w", err)
		}
		out = append(out, store.MintDoc{
			Txid: d.Txid, BlockHeight: d.BlockHeight, Tick: d.Tick, To: d.To, Amt: d.Amt,
			Valid: d.Valid, Reasons: d.Reasons,
		})
	}
	return out, cur.Err()
}

type transferDoc struct {
	InscriptionTxid string   `bson:"inscription_txid"`
	BlockHeight     int64    `bson:"block_height"`
	Tick            string   `bson:"tick"`
	Amt             string   `bson:"amt"`
	From            string   `bson:"from"`
	Valid           bool     `bson:"valid"`
	Reasons         []string `bson:"reasons,omitempty"`
	To              string   `bson:"to,omitempty"`
	SendTxid        string   `bson:"send_tx,omitempty"`
}

func (s *Store) RecordTransfer(t store.TransferDoc) error {
	c, cancel := ctx()
	defer cancel()
	_, err := s.coll(store.CollectionTransfers).InsertOne(c, transferDoc{
		InscriptionTxid: t.InscriptionTxid, BlockHeight: t.BlockHeight, Tick: t.Tick, Amt: t.Amt,
		From: t.From, Valid: t.Valid, Reasons: t.Reasons, To: t.To, SendTxid: t.SendTxid,
	})
	if err != nil {
		return fmt.Errorf("record transfer %s: %w", t.InscriptionTxid, err)
	}
	return nil
}

// SettleTransfer implements spec.md §4.H step 6.
func (s *Store) SettleTransfer(inscriptionTxid, to, sendTxid string, blockHeight int64) error {
	c, cancel := ctx()
	defer cancel()

	res, err := s.coll(store.CollectionTransfers).UpdateOne(c,
		bson.M{"inscription_txid": inscriptionTxid},
		bson.M{"$set": bson.M{"to": to, "send_tx": sendTxid}},
	)
	if err != nil {
		return fmt.Errorf("settle transfer %s: %w", inscriptionTxid, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("settle transfer %s: no transfer document found", inscriptionTxid)
	}
	return nil
}

type invalidDoc struct {
	Txid        string `bson:"txid"`
	BlockHeight int64  `bson:"block_height"`
	Reason      string `bson:"reason"`
}

func (s *Store) RecordInvalid(i store.InvalidDoc) error {
	c, cancel := ctx()
	defer cancel()
	_, err := s.coll(store.CollectionInvalids).InsertOne(c, invalidDoc{
		Txid: i.Txid, BlockHeight: i.BlockHeight, Reason: i.Reason,
	})
	if err != nil {
		return fmt.Errorf("record invalid %s: %w", i.Txid, err)
	}
	return nil
}

// --- balances / entry log (ledger.Backend) ---

type balanceDoc struct {
	Address      string  `bson:"address"`
	Tick         string  `bson:"tick"`
	Overall      float64 `bson:"overall_balance"`
	Available    float64 `bson:"available_balance"`
	Transferable float64 `bson:"transferable_balance"`
}

func (s *Store) GetBalance(address, tick string) (ledger.Balance, bool, error) {
	c, cancel := ctx()
	defer cancel()

	var d balanceDoc
	err := s.coll(store.CollectionUserBalances).FindOne(c, bson.M{"address": address, "tick": tick}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return ledger.Balance{}, false, nil
	}
	if err != nil {
		return ledger.Balance{}, false, fmt.Errorf("get balance %s/%s: %w", address, tick, err)
	}
	return ledger.Balance{
		Address:      d.Address,
		Tick:         d.Tick,
		Overall:      amount.FromFloat64(d.Overall),
		Available:    amount.FromFloat64(d.Available),
		Transferable: amount.FromFloat64(d.Transferable),
	}, true, nil
}

func (s *Store) PutBalance(b ledger.Balance) error {
	c, cancel := ctx()
	defer cancel()

	_, err := s.coll(store.CollectionUserBalances).UpdateOne(c,
		bson.M{"address": b.Address, "tick": b.Tick},
		bson.M{"$set": balanceDoc{
			Address:      b.Address,
			Tick:         b.Tick,
			Overall:      b.Overall.Float64(),
			Available:    b.Available.Float64(),
			Transferable: b.Transferable.Float64(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put balance %s/%s: %w", b.Address, b.Tick, err)
	}
	return nil
}

type balanceEntryDoc struct {
	ID          string  `bson:"_id"`
	Address     string  `bson:"address"`
	Tick        string  `bson:"tick"`
	BlockHeight int64   `bson:"block_height"`
	Amt         float64 `bson:"amt"`
	EntryType   string  `bson:"entry_type"`
}

// AppendEntry inserts the entry under a client-generated uuid _id rather
// than letting Mongo mint an ObjectID, so that a driver-level retry of the
// same InsertOne (the mongo-driver retries writes on its own after a
// transient network error) reinserts under the same _id and fails with a
// duplicate-key error instead of appending the entry twice — which this
// treats as success, since the first attempt already landed.
func (s *Store) AppendEntry(e ledger.Entry) error {
	c, cancel := ctx()
	defer cancel()

	_, err := s.coll(store.CollectionUserBalanceLog).InsertOne(c, balanceEntryDoc{
		ID:          uuid.NewString(),
		Address:     e.Address,
		Tick:        e.Tick,
		BlockHeight: e.BlockHeight,
		Amt:         e.Amount.Float64(),
		EntryType:   string(e.Kind),
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("append balance entry %s/%s: %w", e.Address, e.Tick, err)
	}
	return nil
}

func (s *Store) AllBalanceEntries() ([]ledger.Entry, error) {
	c, cancel := ctx()
	defer cancel()

	cur, err := s.coll(store.CollectionUserBalanceLog).Find(c, bson.M{}, options.Find().SetSort(bson.M{"block_height": 1}))
	if err != nil {
		return nil, fmt.Errorf("list balance entries: %w", err)
	}
	defer cur.Close(c)

	var out []ledger.Entry
	for cur.Next(c) {
		var d balanceEntryDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode balance entry: %w", err)
		}
		out = append(out, ledger.Entry{
			Address:     d.Address,
			Tick:        d.Tick,
			BlockHeight: d.BlockHeight,
			Amount:      amount.FromFloat64(d.Amt),
			Kind:        ledger.EntryKind(d.EntryType),
		})
	}
	return out, cur.Err()
}

// --- rewind primitive ---

// DeleteWhereBlockHeightGE implements spec.md §6's startup rewind: purge
// every domain document at or above height from every collection that
// carries a block height.
func (s *Store) DeleteWhereBlockHeightGE(height int64) error {
	c, cancel := ctx()
	defer cancel()

	filter := bson.M{"block_height": bson.M{"$gte": height}}
	for _, name := range []string{
		store.CollectionDeploys,
		store.CollectionMints,
		store.CollectionTransfers,
		store.CollectionInvalids,
		store.CollectionUserBalanceLog,
		store.CollectionTickers,
	} {
		if _, err := s.coll(name).DeleteMany(c, filter); err != nil {
			return fmt.Errorf("delete %s at height >= %d: %w", name, height, err)
		}
	}
	return nil
}

func (s *Store) DropUserBalances() error {
	c, cancel := ctx()
	defer cancel()
	if err := s.coll(store.CollectionUserBalances).Drop(c); err != nil {
		return fmt.Errorf("drop user balances: %w", err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
