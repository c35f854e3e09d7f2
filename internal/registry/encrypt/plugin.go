// Package encrypt defines the pluggable snapshot-at-rest encryption SPI:
// the Snapshot engine (internal/snapshot) runs its serialized document
// through a Provider before the fsync+rename write, and through the
// matching Decrypt on restore.
package encrypt

import (
	"context"
	"fmt"

	"github.com/nodenestor/hiveminddb/internal/config"
)

// Provider encrypts and decrypts snapshot bytes. Decrypt accepts whatever
// Encrypt produces. Only the "plain" provider passes plaintext through;
// dek, vault and kms return an error for a snapshot written unencrypted.
type Provider interface {
	ID() string
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Loader constructs a Provider from config.
type Loader func(ctx context.Context, cfg *config.Config) (Provider, error)

// Plugin bundles a provider name with its Loader.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds an encryption provider plugin. Called from each plugin
// package's init().
func Register(p Plugin) { plugins = append(plugins, p) }

// Names returns all registered provider names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the Loader for the named provider.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown encryption provider %q; registered: %v", name, Names())
}
