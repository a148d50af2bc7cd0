// Package reporting implements the report generators: adapters that query
// the event store, join records to account contexts, and emit CSV
// artifacts for the publisher.
package reporting

import (
	"fmt"

	"github.com/subscan-monitor/chainmonitor/internal/monitor"
)

// Artifact is one file produced by a report generator, ready for upload.
type Artifact struct {
	Name     string
	MimeType string
	Bytes    []byte
	IsPublic bool
}

// Generator is the uniform interface every report kind implements.
type Generator interface {
	// Name is a stable label used in logs and module registration.
	Name() string
	// FetchData gathers this report's input from the event store. A nil,
	// nil return means there is nothing to report this cycle.
	FetchData() (interface{}, error)
	// Generate turns data into zero, one, or multiple artifacts.
	Generate(data interface{}) ([]Artifact, error)
}

// contextIndex resolves a stash to its account context, the join every
// report performs before emitting a row.
type contextIndex map[string]monitor.Context

func newContextIndex(contexts []monitor.Context) contextIndex {
	idx := make(contextIndex, len(contexts))
	for _, c := range contexts {
		idx[c.Stash] = c
	}
	return idx
}

func (idx contextIndex) resolve(stash string) (monitor.Context, error) {
	c, ok := idx[stash]
	if !ok {
		return monitor.Context{}, fmt.Errorf("unresolved context for stash %q", stash)
	}
	return c, nil
}
