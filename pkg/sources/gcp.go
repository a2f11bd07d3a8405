package sources

import (
	"context"
	"encoding/json"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"

	typerrors "github.com/systmms/typenv/internal/errors"
)

// GCPSecretAccessor is the subset of the Secret Manager client used by this
// source.
type GCPSecretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...interface{}) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// GCPSecretManager loads one secret from Google Cloud Secret Manager. The
// latest version's payload must be a JSON object of environment variables;
// nested objects flatten. Async-only.
type GCPSecretManager struct {
	client    *secretmanager.Client
	accessor  GCPSecretAccessor
	projectID string
	secret    string
}

// GCPSecretManagerOption customizes the source.
type GCPSecretManagerOption func(*gcpConfig)

type gcpConfig struct {
	credentialsFile string
	accessor        GCPSecretAccessor
}

// WithCredentialsFile points the client at a service account key file
// instead of application default credentials.
func WithCredentialsFile(path string) GCPSecretManagerOption {
	return func(c *gcpConfig) {
		c.credentialsFile = path
	}
}

// WithSecretAccessor substitutes the client. Used by tests.
func WithSecretAccessor(accessor GCPSecretAccessor) GCPSecretManagerOption {
	return func(c *gcpConfig) {
		c.accessor = accessor
	}
}

// NewGCPSecretManager creates a source for the named secret in a project.
func NewGCPSecretManager(ctx context.Context, projectID, secret string, opts ...GCPSecretManagerOption) (*GCPSecretManager, error) {
	var cfg gcpConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &GCPSecretManager{projectID: projectID, secret: secret, accessor: cfg.accessor}
	if s.accessor == nil {
		var clientOpts []option.ClientOption
		if cfg.credentialsFile != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.credentialsFile))
		}
		client, err := secretmanager.NewClient(ctx, clientOpts...)
		if err != nil {
			return nil, typerrors.SourceError("gcp_secret_manager", "configure", err)
		}
		s.client = client
	}
	return s, nil
}

// Name implements resolver.Resolver.
func (s *GCPSecretManager) Name() string {
	return "gcp_secret_manager"
}

// Metadata implements resolver.Resolver.
func (s *GCPSecretManager) Metadata() map[string]interface{} {
	return map[string]interface{}{"project": s.projectID, "secret": s.secret}
}

// Load implements resolver.Resolver.
func (s *GCPSecretManager) Load(ctx context.Context) (map[string]string, error) {
	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, s.secret),
	}

	var payload []byte
	if s.accessor != nil {
		resp, err := s.accessor.AccessSecretVersion(ctx, req)
		if err != nil {
			return nil, typerrors.SourceError(s.Name(), "load", err)
		}
		payload = resp.GetPayload().GetData()
	} else {
		resp, err := s.client.AccessSecretVersion(ctx, req)
		if err != nil {
			return nil, typerrors.SourceError(s.Name(), "load", err)
		}
		payload = resp.GetPayload().GetData()
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("secret %q is not a JSON object: %w", s.secret, err)
	}
	return Flatten(doc), nil
}

// Close releases the underlying client, if one was created.
func (s *GCPSecretManager) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
