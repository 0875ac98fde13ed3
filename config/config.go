package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"wayfind/crypto"
)

// KeystorePassEnv names the environment variable holding the authority
// keystore passphrase.
const KeystorePassEnv = "WAYFIND_KEYSTORE_PASS"

type Config struct {
	RPCAddress            string `toml:"RPCAddress"`
	DataDir               string `toml:"DataDir"`
	NetworkName           string `toml:"NetworkName"`
	TokenSymbol           string `toml:"TokenSymbol"`
	TokenName             string `toml:"TokenName"`
	TokenDecimals         uint8  `toml:"TokenDecimals"`
	WeeklyCap             uint64 `toml:"WeeklyCap"`
	AuthorityKeystorePath string `toml:"AuthorityKeystorePath"`
}

// Load loads the configuration from the given path, creating a default file
// (and an authority keystore next to it) on first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8661"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./wayfind-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "wayfind-local"
	}
	if strings.TrimSpace(cfg.TokenSymbol) == "" {
		cfg.TokenSymbol = "WAY"
	}
	if strings.TrimSpace(cfg.TokenName) == "" {
		cfg.TokenName = "Wayfind Token"
	}
	if cfg.TokenDecimals == 0 {
		cfg.TokenDecimals = 6
	}
	if cfg.WeeklyCap == 0 {
		cfg.WeeklyCap = 1_000_000
	}
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.AuthorityKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, os.Getenv(KeystorePassEnv)); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.AuthorityKeystorePath != keystorePath {
		cfg.AuthorityKeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

func defaultKeystorePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "authority.keystore")
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.AuthorityKeystorePath = defaultKeystorePath(path)

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveToKeystore(cfg.AuthorityKeystorePath, key, os.Getenv(KeystorePassEnv)); err != nil {
		return nil, err
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
