package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/explorer"
)

// newMockStore wires a Store's collections to mt's mocked connection, so
// StoreTransfers et al. exercise the real conditionalInsert decoding logic
// against scripted wire responses instead of a live mongod.
func newMockStore(mt *mtest.T) *Store {
	db := mt.Client.Database("chainmonitor_test")
	return &Store{
		client:         mt.Client,
		db:             db,
		transfers:      mt.Coll,
		rewardsSlashes: db.Collection(collRewardsSlashes),
		nominations:    db.Collection(collNominations),
		reportState:    db.Collection(collReportState),
	}
}

func TestStoreTransfersDedup(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	id := monitor.ContextID{Network: monitor.Polkadot, Stash: "alice"}
	page := []explorer.Transfer{{ExtrinsicIndex: "100-1"}}

	mt.Run("fresh insert reports newly inserted", func(mt *mtest.T) {
		st := newMockStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "doc-1"}}}},
		))

		n, err := st.StoreTransfers(context.Background(), id, 100, page)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	mt.Run("re-observation of an existing entry is a no-op", func(mt *mtest.T) {
		st := newMockStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		n, err := st.StoreTransfers(context.Background(), id, 100, page)
		require.NoError(t, err)
		require.Equal(t, 0, n)
	})

	mt.Run("unexpected match/modify combination is surfaced as an error", func(mt *mtest.T) {
		st := newMockStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		_, err := st.StoreTransfers(context.Background(), id, 100, page)
		require.Error(t, err)
	})
}

// TestCheckpointRoundTripAdvancesFromStoredSince exercises CheckpointOffset
// and TrackProgress across two cycles against a mocked report_state
// collection: the first cycle initialises the checkpoint from distantPast
// and reports a huge offset, the second cycle reads back a boundary close
// to "now" and must report a small offset. If TrackProgress advanced from
// distantPast again instead of the boundary it was handed, cycle two would
// see the same huge offset as cycle one.
func TestCheckpointRoundTripAdvancesFromStoredSince(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("", func(mt *mtest.T) {
		st := newMockStore(mt)
		ctx := context.Background()
		const moduleID = "transfers"

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "chainmonitor_test.report_state", mtest.FirstBatch))
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		offset1, since1, err := st.CheckpointOffset(ctx, moduleID, Daily)
		require.NoError(t, err)
		require.True(t, offset1 > 1000, "first cycle should see a huge offset from the distant-past default")
		require.True(t, since1.Equal(distantPast))

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(t, st.TrackProgress(ctx, moduleID, Daily, since1, offset1))

		recentSince := advance(distantPast, Daily, offset1)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "chainmonitor_test.report_state", mtest.FirstBatch, bson.D{
			{Key: "module_id", Value: moduleID},
			{Key: "since", Value: recentSince},
			{Key: "occurrence", Value: string(Daily)},
		}))

		offset2, since2, err := st.CheckpointOffset(ctx, moduleID, Daily)
		require.NoError(t, err)
		require.True(t, offset2 <= 1, "second cycle's offset should be small, not collapsed back to the distant-past count")
		require.True(t, since2.Equal(recentSince))
	})
}

// TestLastReportTrackLastReportSupportsSubDayRanges proves the range-report
// checkpoint does not round to day buckets: a report_range shorter than a
// day must see an elapsed time close to what was actually recorded, not
// rounded down to zero or up to a full day.
func TestLastReportTrackLastReportSupportsSubDayRanges(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("", func(mt *mtest.T) {
		st := newMockStore(mt)
		ctx := context.Background()
		const moduleID = "transfers"

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "chainmonitor_test.report_state", mtest.FirstBatch))
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		since1, err := st.LastReport(ctx, moduleID)
		require.NoError(t, err)
		require.True(t, since1.Equal(distantPast))

		recent := time.Now().UTC().Add(-90 * time.Minute)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(t, st.TrackLastReport(ctx, moduleID, recent))

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "chainmonitor_test.report_state", mtest.FirstBatch, bson.D{
			{Key: "module_id", Value: moduleID},
			{Key: "since", Value: recent},
		}))

		since2, err := st.LastReport(ctx, moduleID)
		require.NoError(t, err)
		require.True(t, since2.Equal(recent))
		require.True(t, time.Since(since2) < 2*time.Hour, "a 90-minute-old checkpoint must not be reported as a full day or more elapsed")
	})
}

func TestStoreNominationsRejectsRowsWithNoNaturalKey(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("", func(mt *mtest.T) {
		st := newMockStore(mt)
		id := monitor.ContextID{Network: monitor.Polkadot, Stash: "alice"}

		_, err := st.StoreNominations(context.Background(), id, 100, []explorer.Validator{{}})
		require.Error(t, err)
	})
}
