package sources

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	typerrors "github.com/systmms/typenv/internal/errors"
)

// KeyVaultAPI is the subset of the Key Vault secrets client used by this
// source.
type KeyVaultAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureKeyVault loads the named secrets from an Azure Key Vault. Vault
// secret names use dashes; each is exposed under its SCREAMING_SNAKE form,
// so "db-password" becomes DB_PASSWORD. Missing secrets are skipped.
// Async-only.
type AzureKeyVault struct {
	client  KeyVaultAPI
	vault   string
	secrets []string
}

// AzureKeyVaultOption customizes the source.
type AzureKeyVaultOption func(*AzureKeyVault)

// WithKeyVaultClient substitutes the SDK client. Used by tests.
func WithKeyVaultClient(client KeyVaultAPI) AzureKeyVaultOption {
	return func(s *AzureKeyVault) {
		s.client = client
	}
}

// NewAzureKeyVault creates a source reading the given secret names from the
// vault at vaultURL, authenticating with the default credential chain.
func NewAzureKeyVault(vaultURL string, secretNames []string, opts ...AzureKeyVaultOption) (*AzureKeyVault, error) {
	s := &AzureKeyVault{vault: vaultURL, secrets: secretNames}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, typerrors.SourceError("azure_key_vault", "configure", err)
		}
		client, err := azsecrets.NewClient(vaultURL, cred, nil)
		if err != nil {
			return nil, typerrors.SourceError("azure_key_vault", "configure", err)
		}
		s.client = client
	}
	return s, nil
}

// Name implements resolver.Resolver.
func (s *AzureKeyVault) Name() string {
	return "azure_key_vault"
}

// Metadata implements resolver.Resolver.
func (s *AzureKeyVault) Metadata() map[string]interface{} {
	return map[string]interface{}{"vault": s.vault}
}

// Load implements resolver.Resolver.
func (s *AzureKeyVault) Load(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	for _, name := range s.secrets {
		resp, err := s.client.GetSecret(ctx, name, "", nil)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, typerrors.SourceError(s.Name(), "load", err)
		}
		if resp.Value == nil {
			continue
		}
		out[envKeyFromVaultName(name)] = *resp.Value
	}
	return out, nil
}

// envKeyFromVaultName converts "db-password" to DB_PASSWORD.
func envKeyFromVaultName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "SecretNotFound") ||
		strings.Contains(err.Error(), "404")
}
