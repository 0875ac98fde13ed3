package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"wayfind/crypto"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8661", cfg.RPCAddress)
	require.Equal(t, "WAY", cfg.TokenSymbol)
	require.Equal(t, uint8(6), cfg.TokenDecimals)
	require.Equal(t, uint64(1_000_000), cfg.WeeklyCap)
	require.Equal(t, filepath.Join(dir, "authority.keystore"), cfg.AuthorityKeystorePath)

	// Both the config file and the authority keystore exist afterwards.
	_, err = os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(cfg.AuthorityKeystorePath)
	require.NoError(t, err)

	key, err := crypto.LoadFromKeystore(cfg.AuthorityKeystorePath, os.Getenv(KeystorePassEnv))
	require.NoError(t, err)
	require.NotNil(t, key)
}

func TestLoadReusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	first, err := Load(path)
	require.NoError(t, err)

	second, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// The keystore must not be regenerated on reload.
	firstKey, err := crypto.LoadFromKeystore(first.AuthorityKeystorePath, os.Getenv(KeystorePassEnv))
	require.NoError(t, err)
	secondKey, err := crypto.LoadFromKeystore(second.AuthorityKeystorePath, os.Getenv(KeystorePassEnv))
	require.NoError(t, err)
	require.Equal(t, firstKey.Bytes(), secondKey.Bytes())
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("RPCAddress = \"0.0.0.0:9000\"\nWeeklyCap = 5000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.RPCAddress)
	require.Equal(t, uint64(5_000), cfg.WeeklyCap)
	require.Equal(t, "WAY", cfg.TokenSymbol)
	require.Equal(t, "wayfind-local", cfg.NetworkName)
	require.Equal(t, filepath.Join(dir, "authority.keystore"), cfg.AuthorityKeystorePath)
}
