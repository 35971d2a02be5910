package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reliefchain/crypto"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress           string `toml:"RPCAddress"`
	DataDir              string `toml:"DataDir"`
	GenesisFile          string `toml:"GenesisFile"`
	OperatorKeystorePath string `toml:"OperatorKeystorePath"`
	NetworkName          string `toml:"NetworkName"`
	RPCAuthTokenEnv      string `toml:"RPCAuthTokenEnv"`
	Limits               Limits `toml:"Limits"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "relief-local"
	}
	if cfg.RPCAuthTokenEnv == "" {
		cfg.RPCAuthTokenEnv = "RELIEF_RPC_TOKEN"
	}
	cfg.Limits.applyDefaults()
	if err := ValidateLimits(cfg.Limits); err != nil {
		return nil, err
	}

	return cfg, nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.OperatorKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.OperatorKeystorePath != keystorePath {
		cfg.OperatorKeystorePath = keystorePath
		return persist(configPath, cfg)
	}

	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:      ":8080",
		DataDir:         "./relief-data",
		GenesisFile:     "",
		NetworkName:     "relief-local",
		RPCAuthTokenEnv: "RELIEF_RPC_TOKEN",
	}
	cfg.OperatorKeystorePath = keystorePath
	cfg.Limits.applyDefaults()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	return filepath.Join(dir, "operator.keystore")
}

func persist(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
