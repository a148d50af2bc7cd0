package reportservice

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/subscan-monitor/chainmonitor/pkg/reporting"
)

type fakeQualifier struct {
	qualifies bool
	qualifyErr error
	tracked   bool
}

func (q *fakeQualifier) Qualifies(ctx context.Context) (bool, interface{}, error) {
	return q.qualifies, nil, q.qualifyErr
}

func (q *fakeQualifier) TrackProgress(ctx context.Context, progress interface{}) error {
	q.tracked = true
	return nil
}

type fakeGenerator struct {
	name      string
	data      interface{}
	artifacts []reporting.Artifact
}

func (g *fakeGenerator) Name() string { return g.name }
func (g *fakeGenerator) FetchData() (interface{}, error) { return g.data, nil }
func (g *fakeGenerator) Generate(data interface{}) ([]reporting.Artifact, error) {
	return g.artifacts, nil
}

type fakePublisher struct {
	uploaded []string
}

func (p *fakePublisher) Upload(ctx context.Context, artifact reporting.Artifact) error {
	p.uploaded = append(p.uploaded, artifact.Name)
	return nil
}

func TestCycleSkipsWhenNotQualified(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	svc := NewService(zerolog.Nop(), pub, nil)
	q := &fakeQualifier{qualifies: false}
	gen := &fakeGenerator{name: "t", data: "data"}

	require.NoError(t, svc.cycle(context.Background(), registration{generator: gen, qualifier: q}))
	require.Empty(t, pub.uploaded)
	require.False(t, q.tracked)
}

func TestCycleSkipsWhenNoData(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	svc := NewService(zerolog.Nop(), pub, nil)
	q := &fakeQualifier{qualifies: true}
	gen := &fakeGenerator{name: "t", data: nil}

	require.NoError(t, svc.cycle(context.Background(), registration{generator: gen, qualifier: q}))
	require.Empty(t, pub.uploaded)
	require.False(t, q.tracked)
}

func TestCyclePublishesAndTracksOnSuccess(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	svc := NewService(zerolog.Nop(), pub, nil)
	q := &fakeQualifier{qualifies: true}
	gen := &fakeGenerator{name: "t", data: "data", artifacts: []reporting.Artifact{{Name: "a.csv"}, {Name: "b.csv"}}}

	require.NoError(t, svc.cycle(context.Background(), registration{generator: gen, qualifier: q}))
	require.Equal(t, []string{"a.csv", "b.csv"}, pub.uploaded)
	require.True(t, q.tracked)
}

func TestRegisterDuplicateGeneratorIsError(t *testing.T) {
	t.Parallel()

	svc := NewService(zerolog.Nop(), &fakePublisher{}, nil)
	gen := &fakeGenerator{name: "dup"}
	q := &fakeQualifier{}
	require.NoError(t, svc.Register(gen, q))
	require.Error(t, svc.Register(gen, q))
}
