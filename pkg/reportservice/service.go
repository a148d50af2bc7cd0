// Package reportservice implements the report service: a supervised,
// per-generator loop that gates on a qualification rule, generates
// artifacts, publishes them, and tracks progress on success.
package reportservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/subscan-monitor/chainmonitor/pkg/metrics"
	"github.com/subscan-monitor/chainmonitor/pkg/publishing"
	"github.com/subscan-monitor/chainmonitor/pkg/reporting"
	"github.com/subscan-monitor/chainmonitor/pkg/store"
	"github.com/subscan-monitor/chainmonitor/pkg/supervisor"
)

// LoopInterval is how long a report generator sleeps between qualification
// checks.
const LoopInterval = 300 * time.Second

// FailedTaskSleep is the backoff before a crashed report task restarts.
const FailedTaskSleep = 30 * time.Second

// Qualifier decides whether a generator's cycle should run right now, and
// what progress to record if it does.
type Qualifier interface {
	// Qualifies returns whether the generator should run now, and an
	// opaque progress token to pass to TrackProgress on success.
	Qualifies(ctx context.Context) (bool, interface{}, error)
	// TrackProgress records that progress was reached, after a
	// successful publish.
	TrackProgress(ctx context.Context, progress interface{}) error
}

// registration pairs a generator with its qualification rule.
type registration struct {
	generator reporting.Generator
	qualifier Qualifier
}

// Service drives every registered (Generator, Qualifier) pair, one
// goroutine each, independently supervised.
type Service struct {
	log       zerolog.Logger
	publisher publishing.Publisher
	metrics   *metrics.Domain

	mu            sync.Mutex
	registrations map[string]registration
}

// NewService returns an empty Service publishing through pub. domain may be
// nil, in which case the artifacts-published counter is simply not
// recorded.
func NewService(log zerolog.Logger, pub publishing.Publisher, domain *metrics.Domain) *Service {
	return &Service{
		log:           log.With().Str("component", "reportservice.Service").Logger(),
		publisher:     pub,
		metrics:       domain,
		registrations: make(map[string]registration),
	}
}

// Register adds a generator under qualifier. Registering the same
// generator name twice is a configuration error.
func (s *Service) Register(gen reporting.Generator, qualifier Qualifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registrations[gen.Name()]; exists {
		return fmt.Errorf("report generator %q already registered", gen.Name())
	}
	s.registrations[gen.Name()] = registration{generator: gen, qualifier: qualifier}
	return nil
}

// Start launches one supervised goroutine per registered generator. It
// returns immediately; the tasks run until ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range s.registrations {
		r := reg
		supervisor.Go(ctx, s.log, r.generator.Name(), FailedTaskSleep, func(ctx context.Context) error {
			return s.loopForever(ctx, r)
		})
	}
}

func (s *Service) loopForever(ctx context.Context, r registration) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.cycle(ctx, r); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(LoopInterval):
		}
	}
}

// cycle runs one qualify/generate/publish/track pass for r.
func (s *Service) cycle(ctx context.Context, r registration) error {
	ok, progress, err := r.qualifier.Qualifies(ctx)
	if err != nil {
		return fmt.Errorf("checking qualification for %s: %w", r.generator.Name(), err)
	}
	if !ok {
		s.log.Debug().Str("generator", r.generator.Name()).Msg("not due, skipping cycle")
		return nil
	}

	data, err := r.generator.FetchData()
	if err != nil {
		return fmt.Errorf("fetching data for %s: %w", r.generator.Name(), err)
	}
	if data == nil {
		s.log.Debug().Str("generator", r.generator.Name()).Msg("no data, skipping cycle")
		return nil
	}

	artifacts, err := r.generator.Generate(data)
	if err != nil {
		return fmt.Errorf("generating artifacts for %s: %w", r.generator.Name(), err)
	}

	for _, artifact := range artifacts {
		if err := s.publisher.Upload(ctx, artifact); err != nil {
			return fmt.Errorf("publishing %s for %s: %w", artifact.Name, r.generator.Name(), err)
		}
		if s.metrics != nil {
			s.metrics.ArtifactPublished(ctx, r.generator.Name())
		}
	}

	if err := r.qualifier.TrackProgress(ctx, progress); err != nil {
		return fmt.Errorf("tracking progress for %s: %w", r.generator.Name(), err)
	}
	s.log.Info().Str("generator", r.generator.Name()).Int("artifacts", len(artifacts)).Msg("published report")
	return nil
}

// checkpointProgress is the opaque progress token handed back by the
// checkpoint-backed qualifiers: the boundary the offset was computed
// against, plus the offset itself, so TrackProgress can advance from that
// same boundary rather than from the checkpoint's original initialisation
// value.
type checkpointProgress struct {
	since  time.Time
	offset uint32
}

// RangeQualifier implements the simple-range rule: qualifies once
// reportRange has elapsed since the last recorded publish.
type RangeQualifier struct {
	store       *store.Store
	moduleID    string
	reportRange time.Duration
}

// NewRangeQualifier returns a Qualifier for a module that reports on a
// fixed elapsed-time range (the Transfer report).
func NewRangeQualifier(st *store.Store, moduleID string, reportRange time.Duration) *RangeQualifier {
	return &RangeQualifier{store: st, moduleID: moduleID, reportRange: reportRange}
}

func (q *RangeQualifier) Qualifies(ctx context.Context) (bool, interface{}, error) {
	lastReport, err := q.store.LastReport(ctx, q.moduleID)
	if err != nil {
		return false, nil, err
	}
	now := time.Now().UTC()
	return now.Sub(lastReport) >= q.reportRange, now, nil
}

func (q *RangeQualifier) TrackProgress(ctx context.Context, progress interface{}) error {
	now, _ := progress.(time.Time)
	return q.store.TrackLastReport(ctx, q.moduleID, now)
}

// BucketQualifier implements the bucketed-checkpoint rule: qualifies once
// at least one complete occurrence-bucket has elapsed.
type BucketQualifier struct {
	store      *store.Store
	moduleID   string
	occurrence store.Occurrence
}

// NewBucketQualifier returns a Qualifier for a module that reports on a
// Daily/Weekly/Monthly bucket boundary (the RewardSlash and Nomination
// reports).
func NewBucketQualifier(st *store.Store, moduleID string, occurrence store.Occurrence) *BucketQualifier {
	return &BucketQualifier{store: st, moduleID: moduleID, occurrence: occurrence}
}

func (q *BucketQualifier) Qualifies(ctx context.Context) (bool, interface{}, error) {
	offset, since, err := q.store.CheckpointOffset(ctx, q.moduleID, q.occurrence)
	if err != nil {
		return false, nil, err
	}
	return offset > 0, checkpointProgress{since: since, offset: offset}, nil
}

func (q *BucketQualifier) TrackProgress(ctx context.Context, progress interface{}) error {
	p, _ := progress.(checkpointProgress)
	return q.store.TrackProgress(ctx, q.moduleID, q.occurrence, p.since, p.offset)
}
