package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/explorer"
	"github.com/subscan-monitor/chainmonitor/pkg/store"
)

// NominationFetcher binds the nominations endpoint to its collection. The
// endpoint is nominally paged but returns its full result set on the first
// page in practice; this fetcher passes rowSize and page through unchanged.
// Fewer than RowAmount new rows on a page ends the service's loop by S5; a
// later page that repeats rows already stored ends it by S4.
type NominationFetcher struct {
	client *explorer.Client
	store  *store.Store
}

// NewNominationFetcher returns a Fetcher for nomination snapshot rows.
func NewNominationFetcher(client *explorer.Client, st *store.Store) *NominationFetcher {
	return &NominationFetcher{client: client, store: st}
}

func (f *NominationFetcher) Name() string { return "nominations" }

func (f *NominationFetcher) Fetch(ctx context.Context, mctx monitor.Context, rowSize, page int) (interface{}, error) {
	env, err := f.client.RequestNominations(ctx, mctx, rowSize, page)
	if err != nil {
		return nil, err
	}
	return env.Data.List, nil
}

func (f *NominationFetcher) IsEmpty(resp interface{}) bool {
	page, ok := resp.([]explorer.Validator)
	return !ok || len(page) == 0
}

func (f *NominationFetcher) Store(ctx context.Context, mctx monitor.Context, resp interface{}) (int, error) {
	page, ok := resp.([]explorer.Validator)
	if !ok {
		return 0, fmt.Errorf("nomination fetcher received unexpected response type %T", resp)
	}
	return f.store.StoreNominations(ctx, mctx.ID(), time.Now().Unix(), page)
}
