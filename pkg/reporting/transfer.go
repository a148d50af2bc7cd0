package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/store"
)

// TransferData is the input FetchData assembles for the transfer report.
type TransferData struct {
	Records []store.TransferRecord
}

// TransferGenerator produces the row-per-event and per-context summary
// transfer reports. It qualifies on a simple elapsed-time range rather
// than a bucketed checkpoint.
type TransferGenerator struct {
	store       *store.Store
	contexts    contextIndex
	contextIDs  []monitor.ContextID
	reportRange time.Duration
}

// NewTransferGenerator returns a Generator covering the last reportRange
// of transfers for contexts.
func NewTransferGenerator(st *store.Store, contexts []monitor.Context, reportRange time.Duration) *TransferGenerator {
	ids := make([]monitor.ContextID, 0, len(contexts))
	for _, c := range contexts {
		ids = append(ids, c.ID())
	}
	return &TransferGenerator{
		store:       st,
		contexts:    newContextIndex(contexts),
		contextIDs:  ids,
		reportRange: reportRange,
	}
}

func (g *TransferGenerator) Name() string { return "transfers" }

// FetchData loads every transfer recorded within the last reportRange. A
// nil result means there is nothing to report.
func (g *TransferGenerator) FetchData() (interface{}, error) {
	to := time.Now().Unix()
	from := to - int64(g.reportRange/time.Second)

	records, err := g.store.FetchTransfers(context.Background(), g.contextIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetching transfers: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return TransferData{Records: records}, nil
}

// Generate emits a row-per-event CSV and a per-context summary CSV.
func (g *TransferGenerator) Generate(data interface{}) ([]Artifact, error) {
	td, ok := data.(TransferData)
	if !ok {
		return nil, fmt.Errorf("transfer generator received unexpected data type %T", data)
	}

	rows, err := g.rowsArtifact(td.Records)
	if err != nil {
		return nil, err
	}
	summary, err := g.summaryArtifact(td.Records)
	if err != nil {
		return nil, err
	}
	return []Artifact{rows, summary}, nil
}

func (g *TransferGenerator) rowsArtifact(records []store.TransferRecord) (Artifact, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Block Number", "Block Timestamp", "From", "To", "Amount", "Extrinsic Index", "Success"})

	for _, r := range records {
		if _, err := g.contexts.resolve(r.ContextID.Stash); err != nil {
			return Artifact{}, err
		}
		w.Write([]string{
			strconv.FormatInt(r.Data.BlockNum, 10),
			strconv.FormatInt(r.Data.BlockTimestamp, 10),
			r.Data.From,
			r.Data.To,
			r.Data.Amount,
			r.Data.ExtrinsicIndex,
			strconv.FormatBool(r.Data.Success),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Artifact{}, fmt.Errorf("writing transfer rows csv: %w", err)
	}

	return Artifact{
		Name:     fmt.Sprintf("transfers-%s.csv", time.Now().UTC().Format(time.RFC3339)),
		MimeType: "text/csv",
		Bytes:    buf.Bytes(),
	}, nil
}

func (g *TransferGenerator) summaryArtifact(records []store.TransferRecord) (Artifact, error) {
	totals := make(map[monitor.ContextID]float64)
	for _, r := range records {
		amount, err := strconv.ParseFloat(r.Data.Amount, 64)
		if err != nil {
			return Artifact{}, fmt.Errorf("parsing transfer amount %q: %w", r.Data.Amount, err)
		}
		totals[r.ContextID] += amount
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Network", "Address", "Description", "Amount"})

	for id, total := range totals {
		mc, err := g.contexts.resolve(id.Stash)
		if err != nil {
			return Artifact{}, err
		}
		w.Write([]string{string(id.Network), id.Stash, mc.Description, strconv.FormatFloat(total, 'f', -1, 64)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Artifact{}, fmt.Errorf("writing transfer summary csv: %w", err)
	}

	return Artifact{
		Name:     fmt.Sprintf("transfers-summary-%s.csv", time.Now().UTC().Format(time.RFC3339)),
		MimeType: "text/csv",
		Bytes:    buf.Bytes(),
	}, nil
}
