package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/explorer"
	"github.com/subscan-monitor/chainmonitor/pkg/store"
)

// RewardSlashFetcher binds the reward/slash endpoint to its collection.
type RewardSlashFetcher struct {
	client *explorer.Client
	store  *store.Store
}

// NewRewardSlashFetcher returns a Fetcher for reward/slash payout events.
func NewRewardSlashFetcher(client *explorer.Client, st *store.Store) *RewardSlashFetcher {
	return &RewardSlashFetcher{client: client, store: st}
}

func (f *RewardSlashFetcher) Name() string { return "rewards_slashes" }

func (f *RewardSlashFetcher) Fetch(ctx context.Context, mctx monitor.Context, rowSize, page int) (interface{}, error) {
	env, err := f.client.RequestRewardsSlashes(ctx, mctx, rowSize, page)
	if err != nil {
		return nil, err
	}
	return env.Data.List, nil
}

func (f *RewardSlashFetcher) IsEmpty(resp interface{}) bool {
	page, ok := resp.([]explorer.RewardSlash)
	return !ok || len(page) == 0
}

func (f *RewardSlashFetcher) Store(ctx context.Context, mctx monitor.Context, resp interface{}) (int, error) {
	page, ok := resp.([]explorer.RewardSlash)
	if !ok {
		return 0, fmt.Errorf("reward/slash fetcher received unexpected response type %T", resp)
	}
	return f.store.StoreRewardSlashes(ctx, mctx.ID(), time.Now().Unix(), page)
}
