package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/explorer"
)

var testCtxID = monitor.ContextID{Network: monitor.Polkadot, Stash: "stash-1"}

func TestRewardSlashDocKeyIncludesEventID(t *testing.T) {
	t.Parallel()

	reward := newRewardSlashDoc(testCtxID, 100, explorer.RewardSlash{ExtrinsicHash: "0xabc", EventID: "Reward"})
	slash := newRewardSlashDoc(testCtxID, 100, explorer.RewardSlash{ExtrinsicHash: "0xabc", EventID: "Slash"})

	require.Equal(t, reward.ExtrinsicHash, slash.ExtrinsicHash)
	require.NotEqual(t, reward.EventID, slash.EventID)
}

func TestNominationDocNaturalKeyFallsBackToIdentity(t *testing.T) {
	t.Parallel()

	doc := newNominationDoc(testCtxID, 100, explorer.Validator{
		ValidatorDisplay: &explorer.ValidatorDisplay{Identity: "Some Validator"},
	})
	require.Equal(t, "Some Validator", doc.NaturalKey)
}

func TestTransferDocRoundTripsContextID(t *testing.T) {
	t.Parallel()

	doc := newTransferDoc(testCtxID, 100, explorer.Transfer{ExtrinsicIndex: "1-1"})
	record := doc.toRecord()
	require.Equal(t, testCtxID, record.ContextID)
	require.Equal(t, int64(100), record.Timestamp)
}
