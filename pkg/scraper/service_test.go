package scraper

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
)

// fakeFetcher lets a test script a sequence of (page size, newly-inserted
// count) pairs and records which pages were requested.
type fakeFetcher struct {
	name        string
	pages       [][]int // each entry: {responseLen, newlyInserted}
	requested   []int
	fetchErr    error
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(ctx context.Context, mctx monitor.Context, rowSize, page int) (interface{}, error) {
	f.requested = append(f.requested, page)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	idx := page - 1
	if idx >= len(f.pages) {
		return []int{}, nil
	}
	return make([]int, f.pages[idx][0]), nil
}

func (f *fakeFetcher) IsEmpty(resp interface{}) bool {
	page, _ := resp.([]int)
	return len(page) == 0
}

func (f *fakeFetcher) Store(ctx context.Context, mctx monitor.Context, resp interface{}) (int, error) {
	idx := len(f.requested) - 1
	return f.pages[idx][1], nil
}

func testService() (*Service, monitor.Context) {
	svc := NewService(zerolog.Nop(), nil)
	mctx := monitor.Context{Stash: "alice", Network: monitor.Polkadot}
	svc.SetAccounts([]monitor.Context{mctx})
	return svc, mctx
}

func TestPaginateStopsOnEmptyResponse(t *testing.T) {
	t.Parallel()

	svc, mctx := testService()
	f := &fakeFetcher{name: "t", pages: [][]int{{0, 0}}}
	require.NoError(t, svc.paginate(context.Background(), f, mctx))
	require.Equal(t, []int{1}, f.requested)
}

func TestPaginateStopsWhenAllDuplicates(t *testing.T) {
	t.Parallel()

	svc, mctx := testService()
	f := &fakeFetcher{name: "t", pages: [][]int{{RowAmount, 0}}}
	require.NoError(t, svc.paginate(context.Background(), f, mctx))
	require.Equal(t, []int{1}, f.requested)
}

func TestPaginateStopsOnPartialPage(t *testing.T) {
	t.Parallel()

	svc, mctx := testService()
	f := &fakeFetcher{name: "t", pages: [][]int{{RowAmount, RowAmount - 1}}}
	require.NoError(t, svc.paginate(context.Background(), f, mctx))
	require.Equal(t, []int{1}, f.requested)
}

func TestPaginateContinuesOnFullPage(t *testing.T) {
	t.Parallel()

	svc, mctx := testService()
	f := &fakeFetcher{name: "t", pages: [][]int{
		{RowAmount, RowAmount},
		{RowAmount, RowAmount - 1},
	}}
	require.NoError(t, svc.paginate(context.Background(), f, mctx))
	require.Equal(t, []int{1, 2}, f.requested)
}

func TestRegisterDuplicateFetcherIsError(t *testing.T) {
	t.Parallel()

	svc := NewService(zerolog.Nop(), nil)
	require.NoError(t, svc.Register(&fakeFetcher{name: "dup"}))
	err := svc.Register(&fakeFetcher{name: "dup"})
	require.Error(t, err)
}
