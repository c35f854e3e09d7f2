// Package dek registers the "dek" AES-256-GCM snapshot encryption provider.
// Ciphertext is nonce||ciphertext, self-contained (no external envelope
// format needed since HiveMindDB only ever encrypts its own snapshot.json,
// never a Java-interoperable attachment stream).
package dek

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/nodenestor/hiveminddb/internal/registry/encrypt"
)

func init() {
	encrypt.Register(encrypt.Plugin{
		Name: "dek",
		Loader: func(_ context.Context, cfg *config.Config) (encrypt.Provider, error) {
			allKeys, err := config.DecodeEncryptionKeysCSV(cfg.EncryptionKey)
			if err != nil {
				return nil, fmt.Errorf("dek provider: %w", err)
			}
			if len(allKeys) == 0 {
				return nil, fmt.Errorf("dek provider: HIVEMINDDB_ENCRYPTION_KEY is required")
			}
			return &Provider{primaryKey: allKeys[0], legacyKeys: allKeys[1:]}, nil
		},
	})
}

// Provider is an AES-256-GCM snapshot encryption provider with rotation
// support: Encrypt always uses the primary key, Decrypt tries the primary
// key then each legacy key in turn.
type Provider struct {
	primaryKey []byte
	legacyKeys [][]byte
}

func (p *Provider) ID() string { return "dek" }

func (p *Provider) Encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(p.primaryKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("dek: generating nonce: %w", err)
	}
	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return ciphertext, nil
}

func (p *Provider) Decrypt(ciphertext []byte) ([]byte, error) {
	keys := append([][]byte{p.primaryKey}, p.legacyKeys...)
	var lastErr error
	for _, key := range keys {
		gcm, err := newGCM(key)
		if err != nil {
			lastErr = err
			continue
		}
		if len(ciphertext) < gcm.NonceSize() {
			lastErr = fmt.Errorf("dek: ciphertext shorter than nonce")
			continue
		}
		nonce, payload := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
		plain, err := gcm.Open(nil, nonce, payload, nil)
		if err == nil {
			return plain, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("dek: decryption failed with all keys: %w", lastErr)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("dek: AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("dek: GCM: %w", err)
	}
	return gcm, nil
}

var _ encrypt.Provider = (*Provider)(nil)
