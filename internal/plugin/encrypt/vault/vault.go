// Package vault registers the "vault" snapshot encryption provider, backed
// by HashiCorp Vault's Transit secrets engine: every Encrypt/Decrypt call
// is a Transit API round-trip, so the plaintext DEK never leaves Vault.
package vault

import (
	"context"
	"encoding/base64"
	"fmt"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/nodenestor/hiveminddb/internal/registry/encrypt"
)

func init() {
	encrypt.Register(encrypt.Plugin{
		Name: "vault",
		Loader: func(_ context.Context, cfg *config.Config) (encrypt.Provider, error) {
			if cfg.VaultTransitKey == "" {
				return nil, fmt.Errorf("vault provider: VaultTransitKey is required")
			}
			vcfg := vaultapi.DefaultConfig()
			if cfg.VaultAddr != "" {
				vcfg.Address = cfg.VaultAddr
			}
			client, err := vaultapi.NewClient(vcfg)
			if err != nil {
				return nil, fmt.Errorf("vault provider: creating client: %w", err)
			}
			return &Provider{client: client, transitKey: cfg.VaultTransitKey}, nil
		},
	})
}

// Provider encrypts/decrypts snapshot bytes via Vault Transit's
// transit/encrypt and transit/decrypt endpoints.
type Provider struct {
	client     *vaultapi.Client
	transitKey string
}

func (p *Provider) ID() string { return "vault" }

func (p *Provider) Encrypt(plaintext []byte) ([]byte, error) {
	secret, err := p.client.Logical().Write(fmt.Sprintf("transit/encrypt/%s", p.transitKey), map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(plaintext),
	})
	if err != nil {
		return nil, fmt.Errorf("vault: transit encrypt: %w", err)
	}
	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok {
		return nil, fmt.Errorf("vault: transit encrypt response missing ciphertext")
	}
	return []byte(ciphertext), nil
}

func (p *Provider) Decrypt(ciphertext []byte) ([]byte, error) {
	secret, err := p.client.Logical().Write(fmt.Sprintf("transit/decrypt/%s", p.transitKey), map[string]interface{}{
		"ciphertext": string(ciphertext),
	})
	if err != nil {
		return nil, fmt.Errorf("vault: transit decrypt: %w", err)
	}
	b64, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("vault: transit decrypt response missing plaintext")
	}
	plain, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("vault: decoding plaintext: %w", err)
	}
	return plain, nil
}

var _ encrypt.Provider = (*Provider)(nil)
