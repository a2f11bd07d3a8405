package sources

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"

	typerrors "github.com/systmms/typenv/internal/errors"
)

// Keyring reads the named keys from the OS keyring (macOS Keychain, Linux
// Secret Service, Windows Credential Manager) under one service name. Keys
// absent from the keyring are omitted.
type Keyring struct {
	service string
	keys    []string

	// get is swapped by tests; defaults to keyring.Get.
	get func(service, user string) (string, error)
}

// NewKeyring creates an OS keyring source.
func NewKeyring(service string, keys []string) *Keyring {
	return &Keyring{service: service, keys: keys, get: keyring.Get}
}

// Name implements resolver.Resolver.
func (k *Keyring) Name() string {
	return "keyring"
}

// Metadata implements resolver.Resolver.
func (k *Keyring) Metadata() map[string]interface{} {
	return map[string]interface{}{"service": k.service}
}

// Load implements resolver.Resolver.
func (k *Keyring) Load(ctx context.Context) (map[string]string, error) {
	return k.LoadSync()
}

// LoadSync implements resolver.SyncResolver.
func (k *Keyring) LoadSync() (map[string]string, error) {
	out := make(map[string]string)
	for _, key := range k.keys {
		value, err := k.get(k.service, key)
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				continue
			}
			return nil, typerrors.SourceError(k.Name(), "load", err)
		}
		out[key] = value
	}
	return out, nil
}
