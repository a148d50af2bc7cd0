// Package publishing implements the artifact publisher: uploading report
// artifacts to an external object store under its own rate guard.
package publishing

import (
	"context"

	"github.com/subscan-monitor/chainmonitor/pkg/reporting"
)

// Publisher uploads a single artifact to wherever it configures at
// construction. Exactly one implementation (GCS) is required.
type Publisher interface {
	Upload(ctx context.Context, artifact reporting.Artifact) error
}
