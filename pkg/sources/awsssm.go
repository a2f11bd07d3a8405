package sources

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	typerrors "github.com/systmms/typenv/internal/errors"
	"github.com/systmms/typenv/pkg/schema"
)

// SSMAPI is the subset of the SSM client used by this source.
type SSMAPI interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// AWSSSM loads every parameter under a path prefix from SSM Parameter
// Store. The key is the final path segment; "/myapp/prod/DB_HOST" yields
// DB_HOST. SecureString parameters are decrypted. Async-only.
type AWSSSM struct {
	client SSMAPI
	path   string
}

// AWSSSMOption customizes the source.
type AWSSSMOption func(*AWSSSM)

// WithSSMClient substitutes the SDK client. Used by tests.
func WithSSMClient(client SSMAPI) AWSSSMOption {
	return func(s *AWSSSM) {
		s.client = client
	}
}

// NewAWSSSM creates a parameter store source for the given path prefix.
func NewAWSSSM(ctx context.Context, path, region string, opts ...AWSSSMOption) (*AWSSSM, error) {
	s := &AWSSSM{path: path}
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
			return nil, typerrors.SourceError("aws_ssm", "configure", err)
		}
		s.client = ssm.NewFromConfig(cfg)
	}
	return s, nil
}

// Name implements resolver.Resolver.
func (s *AWSSSM) Name() string {
	return "aws_ssm"
}

// Metadata implements resolver.Resolver.
func (s *AWSSSM) Metadata() map[string]interface{} {
	return map[string]interface{}{"path": s.path}
}

// Load implements resolver.Resolver.
func (s *AWSSSM) Load(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	decrypt := true
	recursive := true

	var nextToken *string
	for {
		resp, err := s.client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           &s.path,
			WithDecryption: &decrypt,
			Recursive:      &recursive,
			NextToken:      nextToken,
		})
		if err != nil {
			return nil, typerrors.SourceError(s.Name(), "load", err)
		}

		for _, param := range resp.Parameters {
			if param.Name == nil || param.Value == nil {
				continue
			}
			key := lastPathSegment(*param.Name)
			if schema.ValidName.MatchString(key) {
				out[key] = *param.Value
			}
		}

		if resp.NextToken == nil {
			return out, nil
		}
		nextToken = resp.NextToken
	}
}

func lastPathSegment(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
