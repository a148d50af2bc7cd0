package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/explorer"
	"github.com/subscan-monitor/chainmonitor/pkg/store"
)

// TransferFetcher binds the transfers endpoint to the transfers collection.
type TransferFetcher struct {
	client *explorer.Client
	store  *store.Store
}

// NewTransferFetcher returns a Fetcher for value-transfer events.
func NewTransferFetcher(client *explorer.Client, st *store.Store) *TransferFetcher {
	return &TransferFetcher{client: client, store: st}
}

func (f *TransferFetcher) Name() string { return "transfer" }

func (f *TransferFetcher) Fetch(ctx context.Context, mctx monitor.Context, rowSize, page int) (interface{}, error) {
	env, err := f.client.RequestTransfers(ctx, mctx, rowSize, page)
	if err != nil {
		return nil, err
	}
	return env.Data.Transfers, nil
}

func (f *TransferFetcher) IsEmpty(resp interface{}) bool {
	page, ok := resp.([]explorer.Transfer)
	return !ok || len(page) == 0
}

func (f *TransferFetcher) Store(ctx context.Context, mctx monitor.Context, resp interface{}) (int, error) {
	page, ok := resp.([]explorer.Transfer)
	if !ok {
		return 0, fmt.Errorf("transfer fetcher received unexpected response type %T", resp)
	}
	return f.store.StoreTransfers(ctx, mctx.ID(), time.Now().Unix(), page)
}
