package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/store"
)

// ParseValue extracts the decimal numeral carried in a RewardSlash's params
// field. The explorer encodes it as a JSON array-like string wrapping a
// single quoted number (e.g. `["123456789"]`); this strips the wrapping
// bracket/quote form before parsing.
func ParseValue(params string) (float64, error) {
	trimmed := strings.Trim(params, "[]")
	trimmed = strings.Trim(trimmed, `"`)
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return 0, fmt.Errorf("empty params value")
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing params %q: %w", params, err)
	}
	return v, nil
}

// RewardSlashData is the input FetchData assembles for the report.
type RewardSlashData struct {
	Records []store.RewardSlashRecord
}

// RewardSlashGenerator produces the row-per-event and optional summary
// reward/slash reports.
type RewardSlashGenerator struct {
	store      *store.Store
	contexts   contextIndex
	contextIDs []monitor.ContextID
	fromBlock  func() int64
	withSummary bool
}

// NewRewardSlashGenerator returns a Generator covering every stored block
// for contexts. The constructor does not set fromBlock and FetchData does
// not read it, so the block window cannot be narrowed.
func NewRewardSlashGenerator(st *store.Store, contexts []monitor.Context, withSummary bool) *RewardSlashGenerator {
	ids := make([]monitor.ContextID, 0, len(contexts))
	for _, c := range contexts {
		ids = append(ids, c.ID())
	}
	return &RewardSlashGenerator{
		store:       st,
		contexts:    newContextIndex(contexts),
		contextIDs:  ids,
		withSummary: withSummary,
	}
}

func (g *RewardSlashGenerator) Name() string { return "rewards_slashes" }

// FetchData loads every reward/slash entry for contexts across all blocks.
// The report service's checkpoint only decides when a cycle runs; it does
// not narrow the block range, so every cycle reads the full table.
func (g *RewardSlashGenerator) FetchData() (interface{}, error) {
	records, err := g.store.FetchRewardsSlashes(context.Background(), g.contextIDs, 0, maxBlock)
	if err != nil {
		return nil, fmt.Errorf("fetching rewards/slashes: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return RewardSlashData{Records: records}, nil
}

const maxBlock = int64(1<<63 - 1)

// Generate emits the row-per-event CSV, plus the per-context summary CSV
// when withSummary is set.
func (g *RewardSlashGenerator) Generate(data interface{}) ([]Artifact, error) {
	rd, ok := data.(RewardSlashData)
	if !ok {
		return nil, fmt.Errorf("reward/slash generator received unexpected data type %T", data)
	}

	rows, err := g.rowsArtifact(rd.Records)
	if err != nil {
		return nil, err
	}
	artifacts := []Artifact{rows}

	if g.withSummary {
		summary, err := g.summaryArtifact(rd.Records)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, summary)
	}
	return artifacts, nil
}

func (g *RewardSlashGenerator) rowsArtifact(records []store.RewardSlashRecord) (Artifact, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Network", "Block Number", "Address", "Description", "Event", "Value"})

	for _, r := range records {
		value, err := ParseValue(r.Data.Params)
		if err != nil {
			return Artifact{}, fmt.Errorf("parsing value for %s: %w", r.Data.EventIndex, err)
		}
		divisor, err := r.ContextID.Network.BalanceDivisor()
		if err != nil {
			return Artifact{}, err
		}
		scaled := value / divisor
		if scaled == 0 {
			continue
		}
		mc, err := g.contexts.resolve(r.ContextID.Stash)
		if err != nil {
			return Artifact{}, err
		}
		w.Write([]string{
			string(r.ContextID.Network),
			strconv.FormatInt(r.Data.BlockNum, 10),
			r.ContextID.Stash,
			mc.Description,
			r.Data.EventID,
			strconv.FormatFloat(scaled, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Artifact{}, fmt.Errorf("writing reward/slash rows csv: %w", err)
	}

	return Artifact{
		Name:     fmt.Sprintf("rewards-slashes-%s.csv", time.Now().UTC().Format(time.RFC3339)),
		MimeType: "text/csv",
		Bytes:    buf.Bytes(),
	}, nil
}

type rewardSlashTotal struct {
	reward float64
	slash  float64
}

func (g *RewardSlashGenerator) summaryArtifact(records []store.RewardSlashRecord) (Artifact, error) {
	totals := make(map[monitor.ContextID]rewardSlashTotal)
	for _, r := range records {
		value, err := ParseValue(r.Data.Params)
		if err != nil {
			return Artifact{}, fmt.Errorf("parsing value for %s: %w", r.Data.EventIndex, err)
		}
		divisor, err := r.ContextID.Network.BalanceDivisor()
		if err != nil {
			return Artifact{}, err
		}
		scaled := value / divisor

		t := totals[r.ContextID]
		switch r.Data.EventID {
		case "Reward":
			t.reward += scaled
		case "Slash":
			t.slash += scaled
		default:
			return Artifact{}, fmt.Errorf("unexpected event_id %q", r.Data.EventID)
		}
		totals[r.ContextID] = t
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Network", "Address", "Description", "Reward", "Slash"})

	for id, t := range totals {
		mc, err := g.contexts.resolve(id.Stash)
		if err != nil {
			return Artifact{}, err
		}
		w.Write([]string{
			string(id.Network), id.Stash, mc.Description,
			strconv.FormatFloat(t.reward, 'f', -1, 64),
			strconv.FormatFloat(t.slash, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Artifact{}, fmt.Errorf("writing reward/slash summary csv: %w", err)
	}

	return Artifact{
		Name:     fmt.Sprintf("rewards-slashes-summary-%s.csv", time.Now().UTC().Format(time.RFC3339)),
		MimeType: "text/csv",
		Bytes:    buf.Bytes(),
	}, nil
}
