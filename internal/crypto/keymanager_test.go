package crypto

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return base58.Encode(priv)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t)

	blob, err := EncryptKey(key, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKey(t), "hunter2")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestEncryptRejectsBadKeys(t *testing.T) {
	_, err := EncryptKey(testKey(t), "")
	assert.Error(t, err)

	_, err = EncryptKey("not!base58!", "hunter2")
	assert.Error(t, err)

	_, err = EncryptKey(base58.Encode([]byte("too short")), "hunter2")
	assert.Error(t, err)
}

func TestLoadKeyRawTakesPrecedence(t *testing.T) {
	key := testKey(t)

	got, err := LoadKey(KeyConfig{RawPrivateKey: key, EncryptedKeyPath: "/nonexistent"})
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestLoadKeySeedFormat(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	seed := base58.Encode(priv.Seed())

	got, err := LoadKey(KeyConfig{RawPrivateKey: seed})
	require.NoError(t, err)
	assert.Equal(t, seed, got)
}

func TestLoadKeyFromEncryptedFile(t *testing.T) {
	key := testKey(t)
	blob, err := EncryptKey(key, "hunter2")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestLoadKeyNoSource(t *testing.T) {
	_, err := LoadKey(KeyConfig{})
	assert.Error(t, err)
}
