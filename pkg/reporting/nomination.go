package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/store"
)

// NominationData is the input FetchData assembles for the report.
type NominationData struct {
	Records []store.NominationRecord
}

// NominationGenerator produces a point-in-time snapshot CSV of every
// stored nomination row.
type NominationGenerator struct {
	store      *store.Store
	contexts   contextIndex
	contextIDs []monitor.ContextID
}

// NewNominationGenerator returns a Generator covering contexts' current
// nomination snapshots.
func NewNominationGenerator(st *store.Store, contexts []monitor.Context) *NominationGenerator {
	ids := make([]monitor.ContextID, 0, len(contexts))
	for _, c := range contexts {
		ids = append(ids, c.ID())
	}
	return &NominationGenerator{store: st, contexts: newContextIndex(contexts), contextIDs: ids}
}

func (g *NominationGenerator) Name() string { return "nominations" }

// FetchData loads every stored nomination row for contexts.
func (g *NominationGenerator) FetchData() (interface{}, error) {
	records, err := g.store.FetchNominations(context.Background(), g.contextIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching nominations: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return NominationData{Records: records}, nil
}

// Generate emits the single nomination snapshot CSV.
func (g *NominationGenerator) Generate(data interface{}) ([]Artifact, error) {
	nd, ok := data.(NominationData)
	if !ok {
		return nil, fmt.Errorf("nomination generator received unexpected data type %T", data)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Detected", "Network", "Address", "Description", "Validator", "Display Name"})

	for _, r := range nd.Records {
		mc, err := g.contexts.resolve(r.ContextID.Stash)
		if err != nil {
			return nil, err
		}
		displayName := ""
		if r.Data.ValidatorDisplay != nil {
			displayName = r.Data.ValidatorDisplay.Identity
		}
		w.Write([]string{
			time.Unix(r.Timestamp, 0).UTC().Format(time.RFC3339),
			string(r.ContextID.Network),
			r.ContextID.Stash,
			mc.Description,
			r.Data.NaturalKey(),
			displayName,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writing nomination csv: %w", err)
	}

	return []Artifact{{
		Name:     fmt.Sprintf("nominations-%s.csv", time.Now().UTC().Format(time.RFC3339)),
		MimeType: "text/csv",
		Bytes:    buf.Bytes(),
	}}, nil
}
