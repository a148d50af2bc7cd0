// Package scraper implements the fetcher family and the scraping service
// that drives them over the configured account list.
package scraper

import (
	"context"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
)

// Fetcher binds one explorer endpoint to one Event Store sink. Each
// concrete fetcher fetches, checks, and stores one page at a time; the
// service owns the pagination loop.
type Fetcher interface {
	// Name is a stable label used in logs, metrics and module registration.
	Name() string
	// Fetch retrieves one page of rowSize entries for mctx.
	Fetch(ctx context.Context, mctx monitor.Context, rowSize, page int) (interface{}, error)
	// IsEmpty reports whether resp carried zero entries.
	IsEmpty(resp interface{}) bool
	// Store persists resp's entries for mctx, returning the count newly
	// inserted.
	Store(ctx context.Context, mctx monitor.Context, resp interface{}) (int, error)
}
