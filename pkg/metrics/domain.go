package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"
)

// Domain carries the domain counters, alongside the runtime metrics
// SetupInstrumentation already registers. The scraping service records
// RowsStored and the report service records ArtifactPublished; nothing in
// this module calls RowsFetched.
type Domain struct {
	rowsFetched       instrument.Int64Counter
	rowsStored        instrument.Int64Counter
	artifactsPublished instrument.Int64Counter
}

// NewDomain creates the domain counters under the "chainmonitor" meter of
// the global meter provider. When SetupInstrumentation has not installed a
// provider, the counters belong to otel's default global provider and are
// not exported.
func NewDomain() (*Domain, error) {
	meter := global.MeterProvider().Meter("chainmonitor")

	rowsFetched, err := meter.Int64Counter(
		"chainmonitor.fetcher.rows_fetched",
		instrument.WithDescription("Entries returned by a fetcher's explorer call, before dedup"),
	)
	if err != nil {
		return nil, err
	}

	rowsStored, err := meter.Int64Counter(
		"chainmonitor.fetcher.rows_stored",
		instrument.WithDescription("Entries newly persisted by a fetcher, after dedup"),
	)
	if err != nil {
		return nil, err
	}

	artifactsPublished, err := meter.Int64Counter(
		"chainmonitor.report.artifacts_published",
		instrument.WithDescription("Report artifacts successfully uploaded"),
	)
	if err != nil {
		return nil, err
	}

	return &Domain{
		rowsFetched:        rowsFetched,
		rowsStored:         rowsStored,
		artifactsPublished: artifactsPublished,
	}, nil
}

// RowsFetched records n entries returned by fetcher before dedup.
func (d *Domain) RowsFetched(ctx context.Context, fetcher string, n int64) {
	d.rowsFetched.Add(ctx, n, append(BaseAttrs, attribute.String("fetcher", fetcher))...)
}

// RowsStored records n entries newly persisted by fetcher.
func (d *Domain) RowsStored(ctx context.Context, fetcher string, n int64) {
	d.rowsStored.Add(ctx, n, append(BaseAttrs, attribute.String("fetcher", fetcher))...)
}

// ArtifactPublished records one successful artifact upload for generator.
func (d *Domain) ArtifactPublished(ctx context.Context, generator string) {
	d.artifactsPublished.Add(ctx, 1, append(BaseAttrs, attribute.String("generator", generator))...)
}
