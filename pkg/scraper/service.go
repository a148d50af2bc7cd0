package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
	"github.com/subscan-monitor/chainmonitor/pkg/metrics"
	"github.com/subscan-monitor/chainmonitor/pkg/supervisor"
)

const (
	// RowAmount is the page size requested from every fetcher.
	RowAmount = 10
	// LoopInterval is how long a fetcher sleeps between sweeps over the
	// account list.
	LoopInterval = 300 * time.Second
	// FailedTaskSleep is the backoff before a crashed fetcher's loop
	// restarts.
	FailedTaskSleep = 30 * time.Second
)

// Service drives every registered Fetcher over the account list, one
// goroutine per fetcher, independently supervised.
type Service struct {
	log      zerolog.Logger
	fetchers map[string]Fetcher
	metrics  *metrics.Domain

	mu       sync.RWMutex
	contexts []monitor.Context
}

// NewService returns an empty Service ready for fetcher registration.
// domain may be nil, in which case fetch/store counters are simply not
// recorded.
func NewService(log zerolog.Logger, domain *metrics.Domain) *Service {
	return &Service{
		log:      log.With().Str("component", "scraper.Service").Logger(),
		fetchers: make(map[string]Fetcher),
		metrics:  domain,
	}
}

// Register adds a fetcher to the service. Registering the same name twice
// is a configuration error.
func (s *Service) Register(f Fetcher) error {
	if _, exists := s.fetchers[f.Name()]; exists {
		return fmt.Errorf("fetcher %q already registered", f.Name())
	}
	s.fetchers[f.Name()] = f
	return nil
}

// SetAccounts installs the account list. Contexts are added once before
// Start is called; later writes are allowed but discouraged, since a sweep
// in progress holds the read lock for its entire duration.
func (s *Service) SetAccounts(contexts []monitor.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts = contexts
}

// Start launches one supervised goroutine per registered fetcher. It
// returns immediately; the fetchers run until ctx is done.
func (s *Service) Start(ctx context.Context) {
	for _, f := range s.fetchers {
		fetcher := f
		supervisor.Go(ctx, s.log, fetcher.Name(), FailedTaskSleep, func(ctx context.Context) error {
			return s.sweepForever(ctx, fetcher)
		})
	}
}

// sweepForever repeats the account-list sweep until ctx is done or a call
// into the fetcher returns an error (which the supervisor will restart
// after backoff).
func (s *Service) sweepForever(ctx context.Context, f Fetcher) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.sweep(ctx, f); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(LoopInterval):
		}
	}
}

// sweep holds the account-list read lock for one full pass over every
// account, driving f's pagination loop for each.
func (s *Service) sweep(ctx context.Context, f Fetcher) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, mctx := range s.contexts {
		if err := s.paginate(ctx, f, mctx); err != nil {
			return fmt.Errorf("fetcher %s paginating %s: %w", f.Name(), mctx, err)
		}
	}
	return nil
}

// paginate drives one fetcher's pagination state machine for a single
// account, per the S1-S6 termination rules.
func (s *Service) paginate(ctx context.Context, f Fetcher, mctx monitor.Context) error {
	page := 1
	for {
		resp, err := f.Fetch(ctx, mctx, RowAmount, page) // S1
		if err != nil {
			return err
		}
		if f.IsEmpty(resp) { // S2
			return nil
		}

		n, err := f.Store(ctx, mctx, resp)
		if err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.RowsStored(ctx, f.Name(), int64(n))
		}
		s.log.Debug().Str("fetcher", f.Name()).Str("context", mctx.String()).
			Int("page", page).Int("new", n).Msg("stored page")

		if n == 0 { // S4
			return nil
		}
		if n < RowAmount { // S5
			return nil
		}
		page++ // S6
	}
}
