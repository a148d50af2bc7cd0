package reporting

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/explorer"
	"github.com/subscan-monitor/chainmonitor/pkg/store"
)

func TestParseValueStripsBracketsAndQuotes(t *testing.T) {
	t.Parallel()

	v, err := ParseValue(`["123456789"]`)
	require.NoError(t, err)
	require.Equal(t, float64(123456789), v)
}

func TestParseValueRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := ParseValue(`[""]`)
	require.Error(t, err)
}

func TestRewardSlashRowsArtifactDropsZeroAmounts(t *testing.T) {
	t.Parallel()

	contexts := []monitor.Context{{Stash: "alice", Network: monitor.Polkadot, Description: "Alice"}}
	g := NewRewardSlashGenerator(nil, contexts, false)

	records := []store.RewardSlashRecord{
		{
			ContextID: monitor.ContextID{Network: monitor.Polkadot, Stash: "alice"},
			Data:      explorer.RewardSlash{EventIndex: "1-1", BlockNum: 1, EventID: "Reward", Params: `["0"]`},
		},
		{
			ContextID: monitor.ContextID{Network: monitor.Polkadot, Stash: "alice"},
			Data:      explorer.RewardSlash{EventIndex: "1-2", BlockNum: 1, EventID: "Reward", Params: `["100000000000"]`},
		},
	}

	artifact, err := g.rowsArtifact(records)
	require.NoError(t, err)
	require.Contains(t, string(artifact.Bytes), "10")
	require.NotContains(t, string(artifact.Bytes), ",Reward,0\n")
}

func TestRewardSlashUnresolvedContextIsError(t *testing.T) {
	t.Parallel()

	g := NewRewardSlashGenerator(nil, nil, false)
	records := []store.RewardSlashRecord{
		{
			ContextID: monitor.ContextID{Network: monitor.Polkadot, Stash: "unknown"},
			Data:      explorer.RewardSlash{EventID: "Reward", Params: `["1"]`},
		},
	}
	_, err := g.rowsArtifact(records)
	require.Error(t, err)
}
