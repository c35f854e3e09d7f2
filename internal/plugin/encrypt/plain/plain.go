// Package plain is the no-op snapshot encryption provider: the default,
// used when no encryption key, Vault, or KMS configuration is supplied.
package plain

import (
	"context"

	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/nodenestor/hiveminddb/internal/registry/encrypt"
)

func init() {
	encrypt.Register(encrypt.Plugin{
		Name: "plain",
		Loader: func(_ context.Context, _ *config.Config) (encrypt.Provider, error) {
			return Provider{}, nil
		},
	})
}

// Provider passes snapshot bytes through unchanged.
type Provider struct{}

func (Provider) ID() string                      { return "plain" }
func (Provider) Encrypt(p []byte) ([]byte, error) { return p, nil }
func (Provider) Decrypt(c []byte) ([]byte, error) { return c, nil }

var _ encrypt.Provider = Provider{}
