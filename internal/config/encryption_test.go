package config

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEncryptionKeyHexAndBase64(t *testing.T) {
	hexKey := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	key, err := DecodeEncryptionKey(hexKey)
	require.NoError(t, err)
	require.Len(t, key, 32)

	b64 := base64.StdEncoding.EncodeToString(make([]byte, 32))
	key, err = DecodeEncryptionKey(b64)
	require.NoError(t, err)
	require.Len(t, key, 32)
}

func TestDecodeEncryptionKeyRejectsBadLength(t *testing.T) {
	_, err := DecodeEncryptionKey("abcd")
	require.Error(t, err)
}

func TestDecodeEncryptionKeysCSVSkipsBlanks(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(make([]byte, 16))
	keys, err := DecodeEncryptionKeysCSV(b64 + ", ," + b64)
	require.NoError(t, err)
	require.Len(t, keys, 2)
}
