package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"donex/crypto"
)

// Environment variables that override file values.
const (
	EnvJWTSecret = "DONEX_JWT_SECRET"
	EnvLogEnv    = "DONEX_ENV"
)

type Config struct {
	ListenAddress        string    `toml:"ListenAddress"`
	DataDir              string    `toml:"DataDir"`
	DBBackend            string    `toml:"DBBackend"`
	GenesisFile          string    `toml:"GenesisFile"`
	AddressPrefix        string    `toml:"AddressPrefix"`
	ContractAddress      string    `toml:"ContractAddress"`
	NetworkName          string    `toml:"NetworkName"`
	OperatorKeystorePath string    `toml:"OperatorKeystorePath"`
	RPC                  RPC       `toml:"RPC"`
	Indexer              Indexer   `toml:"Indexer"`
	Telemetry            Telemetry `toml:"Telemetry"`
	Log                  Log       `toml:"Log"`
}

// Load loads the configuration from the given path, creating a default file
// and operator keystore when it does not exist yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
		if err := ensureKeystore(path, cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "donex-local"
	}
	if strings.TrimSpace(cfg.DBBackend) == "" {
		cfg.DBBackend = BackendLevelDB
	}
	cfg.DBBackend = strings.ToLower(strings.TrimSpace(cfg.DBBackend))
	if cfg.RPC.RequestsPerMinute == 0 {
		cfg.RPC.RequestsPerMinute = 600
	}
	if cfg.RPC.Burst == 0 {
		cfg.RPC.Burst = 20
	}
	if cfg.RPC.MaxBodyBytes == 0 {
		cfg.RPC.MaxBodyBytes = 1 << 20
	}
	if cfg.RPC.ReadHeaderTimeout == 0 {
		cfg.RPC.ReadHeaderTimeout = 5
	}
	if cfg.RPC.AllowedOrigins == nil {
		cfg.RPC.AllowedOrigins = []string{}
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File != "" && cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
}

func applyEnv(cfg *Config) {
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.RPC.JWTSecret = secret
	}
	if env := strings.TrimSpace(os.Getenv(EnvLogEnv)); env != "" {
		cfg.Log.Env = env
	}
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
		if err := crypto.SaveToKeystoreWithParams(keystorePath, key, "", crypto.LightKeystore); err != nil {
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

// createDefault creates and saves a default configuration file together with
// an unencrypted development operator key.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":8545",
		DataDir:       "./donex-data",
		DBBackend:     BackendLevelDB,
		GenesisFile:   "",
		AddressPrefix: crypto.DefaultPrefix,
		NetworkName:   "donex-local",
		RPC: RPC{
			RequestsPerMinute: 600,
			Burst:             20,
			AllowedOrigins:    []string{},
		},
		Indexer: Indexer{DSN: "./donex-data/index.db"},
		Log:     Log{Level: "info"},
	}
	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}

// StatePath is the database location for the configured backend.
func (c *Config) StatePath() string {
	switch c.DBBackend {
	case BackendBolt:
		return filepath.Join(c.DataDir, "state.bolt")
	default:
		return filepath.Join(c.DataDir, "state")
	}
}
