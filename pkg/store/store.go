// Package store implements the event store: per-kind MongoDB collections
// with a conditional insert that treats a pre-existing document as a no-op
// rather than an error, plus the checkpoint collection the report service
// uses to gate bucketed reports.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/explorer"
)

const (
	collTransfers      = "raw_transfers"
	collRewardsSlashes = "raw_rewards_slashes"
	collNominations    = "raw_nominations"
	collReportState    = "report_state"
)

// Store is the event store. One instance is shared by every fetcher and
// report generator in the process.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	transfers      *mongo.Collection
	rewardsSlashes *mongo.Collection
	nominations    *mongo.Collection
	reportState    *mongo.Collection
}

// Open connects to uri, selects dbName, and ensures every collection's
// unique index exists before returning — schema setup happens once, here,
// rather than as a separate migration step.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:         client,
		db:             db,
		transfers:      db.Collection(collTransfers),
		rewardsSlashes: db.Collection(collRewardsSlashes),
		nominations:    db.Collection(collNominations),
		reportState:    db.Collection(collReportState),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensuring indexes: %w", err)
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll *mongo.Collection
		keys bson.D
	}{
		{s.transfers, bson.D{
			{Key: "context_id.network", Value: 1},
			{Key: "context_id.stash", Value: 1},
			{Key: "extrinsic_index", Value: 1},
		}},
		{s.rewardsSlashes, bson.D{
			{Key: "context_id.network", Value: 1},
			{Key: "context_id.stash", Value: 1},
			{Key: "extrinsic_hash", Value: 1},
			{Key: "event_id", Value: 1},
		}},
		{s.nominations, bson.D{
			{Key: "context_id.network", Value: 1},
			{Key: "context_id.stash", Value: 1},
			{Key: "natural_key", Value: 1},
		}},
	}

	for _, idx := range indexes {
		_, err := idx.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    idx.keys,
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("creating index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

// Close disconnects the underlying mongo client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// conditionalInsert performs the dedup-by-natural-key insert shared by every
// store-op: if filter matches an existing document, no-op (ModifiedCount ==
// 0); otherwise insert doc (UpsertedCount == 1). Any other outcome is a bug.
func conditionalInsert(ctx context.Context, coll *mongo.Collection, filter bson.D, doc interface{}) (inserted bool, err error) {
	result, err := coll.UpdateOne(ctx, filter, bson.D{{Key: "$setOnInsert", Value: doc}}, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	switch {
	case result.UpsertedCount == 1:
		return true, nil
	case result.ModifiedCount == 0 && result.MatchedCount == 1:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected upsert result (matched=%d modified=%d upserted=%d)",
			result.MatchedCount, result.ModifiedCount, result.UpsertedCount)
	}
}

// StoreTransfers conditionally inserts each transfer in page, keyed on
// (context_id, extrinsic_index). Returns the count that were newly inserted.
func (s *Store) StoreTransfers(ctx context.Context, id monitor.ContextID, now int64, page []explorer.Transfer) (int, error) {
	newly := 0
	for _, t := range page {
		doc := newTransferDoc(id, now, t)
		filter := bson.D{
			{Key: "context_id.network", Value: doc.ContextID.Network},
			{Key: "context_id.stash", Value: doc.ContextID.Stash},
			{Key: "extrinsic_index", Value: doc.ExtrinsicIndex},
		}
		ok, err := conditionalInsert(ctx, s.transfers, filter, doc)
		if err != nil {
			return newly, fmt.Errorf("storing transfer %s: %w", doc.ExtrinsicIndex, err)
		}
		if ok {
			newly++
		}
	}
	return newly, nil
}

// StoreRewardSlashes conditionally inserts each entry, keyed on
// (context_id, extrinsic_hash, event_id).
func (s *Store) StoreRewardSlashes(ctx context.Context, id monitor.ContextID, now int64, page []explorer.RewardSlash) (int, error) {
	newly := 0
	for _, rs := range page {
		doc := newRewardSlashDoc(id, now, rs)
		filter := bson.D{
			{Key: "context_id.network", Value: doc.ContextID.Network},
			{Key: "context_id.stash", Value: doc.ContextID.Stash},
			{Key: "extrinsic_hash", Value: doc.ExtrinsicHash},
			{Key: "event_id", Value: doc.EventID},
		}
		ok, err := conditionalInsert(ctx, s.rewardsSlashes, filter, doc)
		if err != nil {
			return newly, fmt.Errorf("storing reward/slash %s/%s: %w", doc.ExtrinsicHash, doc.EventID, err)
		}
		if ok {
			newly++
		}
	}
	return newly, nil
}

// StoreNominations conditionally inserts each validator row, keyed on
// (context_id, natural_key).
func (s *Store) StoreNominations(ctx context.Context, id monitor.ContextID, now int64, page []explorer.Validator) (int, error) {
	newly := 0
	for _, v := range page {
		doc := newNominationDoc(id, now, v)
		if doc.NaturalKey == "" {
			return newly, fmt.Errorf("validator row has no usable natural key (stash/identity/address all empty)")
		}
		filter := bson.D{
			{Key: "context_id.network", Value: doc.ContextID.Network},
			{Key: "context_id.stash", Value: doc.ContextID.Stash},
			{Key: "natural_key", Value: doc.NaturalKey},
		}
		ok, err := conditionalInsert(ctx, s.nominations, filter, doc)
		if err != nil {
			return newly, fmt.Errorf("storing nomination %s: %w", doc.NaturalKey, err)
		}
		if ok {
			newly++
		}
	}
	return newly, nil
}

// FetchTransfers returns every stored transfer for the given contexts whose
// block_timestamp falls within [fromTimestamp, toTimestamp], sorted by
// block_num descending.
func (s *Store) FetchTransfers(ctx context.Context, ids []monitor.ContextID, fromTimestamp, toTimestamp int64) ([]TransferRecord, error) {
	filter := bson.D{
		{Key: "context_id", Value: bson.D{{Key: "$in", Value: contextIDFilters(ids)}}},
		{Key: "data.block_timestamp", Value: bson.D{{Key: "$gte", Value: fromTimestamp}, {Key: "$lte", Value: toTimestamp}}},
	}
	cur, err := s.transfers.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "data.block_num", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("querying transfers: %w", err)
	}
	defer cur.Close(ctx)

	var docs []transferDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding transfers: %w", err)
	}

	records := make([]TransferRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.toRecord())
	}
	return records, nil
}

// FetchRewardsSlashes returns every stored reward/slash entry for the given
// contexts whose block_num falls within [fromBlock, toBlock].
func (s *Store) FetchRewardsSlashes(ctx context.Context, ids []monitor.ContextID, fromBlock, toBlock int64) ([]RewardSlashRecord, error) {
	filter := bson.D{
		{Key: "context_id", Value: bson.D{{Key: "$in", Value: contextIDFilters(ids)}}},
		{Key: "data.block_num", Value: bson.D{{Key: "$gte", Value: fromBlock}, {Key: "$lte", Value: toBlock}}},
	}
	cur, err := s.rewardsSlashes.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying rewards/slashes: %w", err)
	}
	defer cur.Close(ctx)

	var docs []rewardSlashDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding rewards/slashes: %w", err)
	}

	records := make([]RewardSlashRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.toRecord())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Data.BlockNum > records[j].Data.BlockNum })
	return records, nil
}

// FetchNominations returns every stored nomination row for the given
// contexts. There is no time/block window: nominations are a point-in-time
// snapshot, not a timestamped ledger.
func (s *Store) FetchNominations(ctx context.Context, ids []monitor.ContextID) ([]NominationRecord, error) {
	filter := bson.D{{Key: "context_id", Value: bson.D{{Key: "$in", Value: contextIDFilters(ids)}}}}
	cur, err := s.nominations.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying nominations: %w", err)
	}
	defer cur.Close(ctx)

	var docs []nominationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding nominations: %w", err)
	}

	records := make([]NominationRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.toRecord())
	}
	return records, nil
}

func contextIDFilters(ids []monitor.ContextID) []contextIDDoc {
	docs := make([]contextIDDoc, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, toContextIDDoc(id))
	}
	return docs
}

// checkpointDoc is the single per-module document in report_state tracking
// how many bucket boundaries have already been reported.
type checkpointDoc struct {
	ModuleID  string    `bson:"module_id"`
	Since     time.Time `bson:"since"`
	Occurrence string   `bson:"occurrence"`
}

// CheckpointOffset returns the number of complete occurrence-buckets (day,
// week, or 31-day month — see Occurrence) elapsed since moduleId's stored boundary,
// along with that boundary itself so a subsequent TrackProgress call can
// advance from it rather than from scratch. A module with no stored
// checkpoint is initialised from a distant past date so that the first call
// always reports a large, positive offset.
func (s *Store) CheckpointOffset(ctx context.Context, moduleID string, occurrence Occurrence) (uint32, time.Time, error) {
	var doc checkpointDoc
	err := s.reportState.FindOne(ctx, bson.D{{Key: "module_id", Value: moduleID}}).Decode(&doc)
	switch err {
	case nil:
		// fall through
	case mongo.ErrNoDocuments:
		doc = checkpointDoc{ModuleID: moduleID, Since: distantPast, Occurrence: string(occurrence)}
		_, insertErr := s.reportState.InsertOne(ctx, doc)
		if insertErr != nil {
			return 0, time.Time{}, fmt.Errorf("initialising checkpoint for %s: %w", moduleID, insertErr)
		}
	default:
		return 0, time.Time{}, fmt.Errorf("reading checkpoint for %s: %w", moduleID, err)
	}

	return bucketsElapsed(doc.Since, occurrence), doc.Since, nil
}

// TrackProgress advances moduleId's stored boundary by offset buckets of
// occurrence, starting from since (the boundary CheckpointOffset returned
// for the cycle that is being tracked) rather than from scratch — otherwise
// every cycle after the first would collapse the checkpoint back to its
// original initialisation value. Called after a successful publish.
func (s *Store) TrackProgress(ctx context.Context, moduleID string, occurrence Occurrence, since time.Time, offset uint32) error {
	newSince := advance(since, occurrence, offset)
	_, err := s.reportState.UpdateOne(ctx,
		bson.D{{Key: "module_id", Value: moduleID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "since", Value: newSince}, {Key: "occurrence", Value: string(occurrence)}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("tracking progress for %s: %w", moduleID, err)
	}
	return nil
}

// LastReport returns the last time moduleID's range-based report ran. A
// module with no stored checkpoint is initialised from a distant past date
// so the first call always qualifies. Unlike CheckpointOffset, this does not
// round to occurrence buckets: the range report qualifies on a plain
// elapsed-time comparison, which holds for any report_range, including one
// shorter than a day.
func (s *Store) LastReport(ctx context.Context, moduleID string) (time.Time, error) {
	var doc checkpointDoc
	err := s.reportState.FindOne(ctx, bson.D{{Key: "module_id", Value: moduleID}}).Decode(&doc)
	switch err {
	case nil:
		return doc.Since, nil
	case mongo.ErrNoDocuments:
		doc = checkpointDoc{ModuleID: moduleID, Since: distantPast}
		if _, insertErr := s.reportState.InsertOne(ctx, doc); insertErr != nil {
			return time.Time{}, fmt.Errorf("initialising checkpoint for %s: %w", moduleID, insertErr)
		}
		return doc.Since, nil
	default:
		return time.Time{}, fmt.Errorf("reading checkpoint for %s: %w", moduleID, err)
	}
}

// TrackLastReport records now as moduleID's last-report timestamp, called
// after a successful publish of a range-qualified report.
func (s *Store) TrackLastReport(ctx context.Context, moduleID string, now time.Time) error {
	_, err := s.reportState.UpdateOne(ctx,
		bson.D{{Key: "module_id", Value: moduleID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "since", Value: now}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("tracking last report for %s: %w", moduleID, err)
	}
	return nil
}

var distantPast = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
