// Package explorer implements the HTTP client for the chain explorer API:
// one outbound POST operation, typed per event kind, serialized behind a
// process-wide rate guard.
package explorer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/rate"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultRequestTimeout is the minimum inter-request spacing enforced by the
// client's rate guard.
const DefaultRequestTimeout = 5 * time.Second

// Client drives the explorer's JSON API under a single process-wide rate
// guard: at most one outbound request may start per interval, across every
// caller sharing this Client.
type Client struct {
	http    *http.Client
	guard   *rate.Guard
	apiKey  string
}

// New returns a Client paced by a guard with the given minimum spacing
// between request starts.
func New(apiKey string, requestTimeout time.Duration) *Client {
	return &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		guard:  rate.NewGuard(requestTimeout),
		apiKey: apiKey,
	}
}

func (c *Client) post(ctx context.Context, url string, body interface{}, out interface{}) error {
	if err := c.guard.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate guard: %w", err)
	}

	payload, err := jsonAPI.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	// Kept exactly to match historical behavior of the upstream integration.
	req.Header.Set("User-Agent", "curl/7.68.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("performing request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if err := jsonAPI.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

func hostFor(network monitor.Network) (string, error) {
	prefix, err := network.HostPrefix()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.api.subscan.io", prefix), nil
}

// RequestTransfers fetches one page of value-transfer events for ctx.
func (c *Client) RequestTransfers(ctx context.Context, mctx monitor.Context, row, page int) (*Envelope[TransfersPage], error) {
	host, err := hostFor(mctx.Network)
	if err != nil {
		return nil, err
	}
	var env Envelope[TransfersPage]
	body := PageRequest{Address: mctx.Stash, Row: row, Page: page}
	if err := c.post(ctx, host+"/api/scan/transfers", body, &env); err != nil {
		return nil, fmt.Errorf("requesting transfers for %s: %w", mctx, err)
	}
	return &env, nil
}

// RequestRewardsSlashes fetches one page of reward/slash events for ctx.
func (c *Client) RequestRewardsSlashes(ctx context.Context, mctx monitor.Context, row, page int) (*Envelope[RewardsSlashesPage], error) {
	host, err := hostFor(mctx.Network)
	if err != nil {
		return nil, err
	}
	var env Envelope[RewardsSlashesPage]
	body := PageRequest{Address: mctx.Stash, Row: row, Page: page}
	if err := c.post(ctx, host+"/api/scan/account/reward_slash", body, &env); err != nil {
		return nil, fmt.Errorf("requesting rewards/slashes for %s: %w", mctx, err)
	}
	return &env, nil
}

// RequestNominations fetches nominations for ctx. The endpoint is paged, but
// in practice returns its entire result set on the first page; callers
// still drive it through the same pagination loop as the other fetchers.
func (c *Client) RequestNominations(ctx context.Context, mctx monitor.Context, row, page int) (*Envelope[NominationsPage], error) {
	host, err := hostFor(mctx.Network)
	if err != nil {
		return nil, err
	}
	var env Envelope[NominationsPage]
	body := PageRequest{Address: mctx.Stash, Row: row, Page: page}
	if err := c.post(ctx, host+"/api/scan/staking/nominators", body, &env); err != nil {
		return nil, fmt.Errorf("requesting nominations for %s: %w", mctx, err)
	}
	return &env, nil
}
