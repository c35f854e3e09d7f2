package dek

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	cfg := &config.Config{EncryptionKey: key}

	p, err := load(context.Background(), cfg)
	require.NoError(t, err)

	ciphertext, err := p.Encrypt([]byte("snapshot bytes"))
	require.NoError(t, err)
	require.NotEqual(t, "snapshot bytes", string(ciphertext))

	plain, err := p.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Equal(t, "snapshot bytes", string(plain))
}

func TestDecryptFailsWithWrongKey(t *testing.T) {
	key1 := base64.StdEncoding.EncodeToString(make([]byte, 32))
	other := make([]byte, 32)
	other[0] = 1
	key2 := base64.StdEncoding.EncodeToString(other)

	p1, err := load(context.Background(), &config.Config{EncryptionKey: key1})
	require.NoError(t, err)
	p2, err := load(context.Background(), &config.Config{EncryptionKey: key2})
	require.NoError(t, err)

	ciphertext, err := p1.Encrypt([]byte("secret"))
	require.NoError(t, err)
	_, err = p2.Decrypt(ciphertext)
	require.Error(t, err)
}

func TestRotationAcceptsLegacyKey(t *testing.T) {
	primary := base64.StdEncoding.EncodeToString(make([]byte, 32))
	legacyRaw := make([]byte, 32)
	legacyRaw[0] = 7
	legacy := base64.StdEncoding.EncodeToString(legacyRaw)

	oldProvider, err := load(context.Background(), &config.Config{EncryptionKey: legacy})
	require.NoError(t, err)
	ciphertext, err := oldProvider.Encrypt([]byte("rotated"))
	require.NoError(t, err)

	newProvider, err := load(context.Background(), &config.Config{EncryptionKey: primary + "," + legacy})
	require.NoError(t, err)
	plain, err := newProvider.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Equal(t, "rotated", string(plain))
}

func load(ctx context.Context, cfg *config.Config) (*Provider, error) {
	allKeys, err := config.DecodeEncryptionKeysCSV(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return &Provider{primaryKey: allKeys[0], legacyKeys: allKeys[1:]}, nil
}
