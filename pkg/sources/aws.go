package sources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	typerrors "github.com/systmms/typenv/internal/errors"
)

// SecretsManagerAPI is the subset of the AWS Secrets Manager client used by
// this source, extracted so tests can substitute a fake.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManager loads one secret whose payload is a JSON object of
// environment variables. Nested objects flatten like file sources. A plain
// string payload is exposed under the secret's declared key name.
// Async-only.
type AWSSecretsManager struct {
	client   SecretsManagerAPI
	secretID string

	// fallbackKey receives a non-JSON payload; defaults to no key (payload
	// dropped with an error).
	fallbackKey string
}

// AWSSecretsManagerOption customizes the source.
type AWSSecretsManagerOption func(*AWSSecretsManager)

// WithSecretsManagerClient substitutes the SDK client. Used by tests.
func WithSecretsManagerClient(client SecretsManagerAPI) AWSSecretsManagerOption {
	return func(s *AWSSecretsManager) {
		s.client = client
	}
}

// WithFallbackKey exposes a non-JSON secret payload under the given key
// instead of failing the load.
func WithFallbackKey(key string) AWSSecretsManagerOption {
	return func(s *AWSSecretsManager) {
		s.fallbackKey = key
	}
}

// NewAWSSecretsManager creates a source for the named secret using the
// default AWS credential chain.
func NewAWSSecretsManager(ctx context.Context, secretID, region string, opts ...AWSSecretsManagerOption) (*AWSSecretsManager, error) {
	s := &AWSSecretsManager{secretID: secretID}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		var cfgOpts []func(*config.LoadOptions) error
		if region != "" {
			cfgOpts = append(cfgOpts, config.WithRegion(region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
		if err != nil {
			return nil, typerrors.SourceError("aws_secrets_manager", "configure", err)
		}
		s.client = secretsmanager.NewFromConfig(cfg)
	}
	return s, nil
}

// Name implements resolver.Resolver.
func (s *AWSSecretsManager) Name() string {
	return "aws_secrets_manager"
}

// Metadata implements resolver.Resolver.
func (s *AWSSecretsManager) Metadata() map[string]interface{} {
	return map[string]interface{}{"secret_id": s.secretID}
}

// Load implements resolver.Resolver.
func (s *AWSSecretsManager) Load(ctx context.Context) (map[string]string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &s.secretID,
	})
	if err != nil {
		return nil, typerrors.SourceError(s.Name(), "load", err)
	}

	payload := ""
	if out.SecretString != nil {
		payload = *out.SecretString
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		if s.fallbackKey != "" {
			return map[string]string{s.fallbackKey: payload}, nil
		}
		return nil, fmt.Errorf("secret %q is not a JSON object; set a fallback key to expose it as a single value", s.secretID)
	}
	return Flatten(doc), nil
}
