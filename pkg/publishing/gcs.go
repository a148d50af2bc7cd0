package publishing

import (
	"context"
	"fmt"
	"os"
	"time"

	gstorage "cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/subscan-monitor/chainmonitor/pkg/rate"
	"github.com/subscan-monitor/chainmonitor/pkg/reporting"
)

// DefaultRequestTimeout is the minimum inter-upload spacing enforced by the
// publisher's own rate guard, independent of the explorer client's.
const DefaultRequestTimeout = time.Second

const (
	scopeReadWrite = gstorage.ScopeReadWrite
	scopeDrive     = "https://www.googleapis.com/auth/drive"
)

// GCSPublisher uploads artifacts to a single Google Cloud Storage bucket,
// authenticated once at construction from a service-account key file.
type GCSPublisher struct {
	client     *gstorage.Client
	bucketName string
	guard      *rate.Guard
}

// NewGCSPublisher reads the service-account key at secretPath, mints an
// OAuth2 token for the storage read/write and drive scopes, and opens a
// storage client for bucketName. An empty auth token is treated as a
// construction-time fatal error.
func NewGCSPublisher(ctx context.Context, secretPath, bucketName string, requestTimeout time.Duration) (*GCSPublisher, error) {
	keyJSON, err := os.ReadFile(secretPath)
	if err != nil {
		return nil, fmt.Errorf("reading service account key %s: %w", secretPath, err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(keyJSON, scopeReadWrite, scopeDrive)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	tokenSource := jwtConfig.TokenSource(ctx)
	token, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("minting initial token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("service account produced an empty auth token")
	}

	client, err := gstorage.NewClient(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("building storage client: %w", err)
	}

	return &GCSPublisher{
		client:     client,
		bucketName: bucketName,
		guard:      rate.NewGuard(requestTimeout),
	}, nil
}

// Upload writes artifact's bytes to the configured bucket under its Name,
// setting content type and public-read ACL as requested.
func (p *GCSPublisher) Upload(ctx context.Context, artifact reporting.Artifact) error {
	if err := p.guard.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for publisher rate guard: %w", err)
	}

	obj := p.client.Bucket(p.bucketName).Object(artifact.Name)
	w := obj.NewWriter(ctx)
	w.ContentType = artifact.MimeType
	if artifact.IsPublic {
		w.PredefinedACL = "publicRead"
	}

	if _, err := w.Write(artifact.Bytes); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing artifact %s: %w", artifact.Name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing upload of %s: %w", artifact.Name, err)
	}
	return nil
}

// Close releases the underlying storage client.
func (p *GCSPublisher) Close() error {
	return p.client.Close()
}
