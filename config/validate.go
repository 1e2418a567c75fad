package config

import (
	"fmt"
	"net/netip"
	"strings"
)

// Supported database backends.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendMemory  = "memory"
)

// Validate checks the loaded configuration for values the node cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	switch cfg.DBBackend {
	case BackendLevelDB, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("config: unsupported DBBackend %q", cfg.DBBackend)
	}
	if cfg.DBBackend != BackendMemory && strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir required for %s backend", cfg.DBBackend)
	}
	if cfg.RPC.RequestsPerMinute < 0 || cfg.RPC.Burst < 0 {
		return fmt.Errorf("config: RPC rate limits must not be negative")
	}
	if len(strings.TrimSpace(cfg.RPC.JWTSecret)) > 0 && len(cfg.RPC.JWTSecret) < 16 {
		return fmt.Errorf("config: RPC.JWTSecret must be at least 16 bytes")
	}
	for _, entry := range cfg.RPC.TrustedProxies {
		if !validProxyEntry(strings.TrimSpace(entry)) {
			return fmt.Errorf("config: RPC.TrustedProxies entry %q is not an IP or CIDR", entry)
		}
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("config: Telemetry.SampleRatio must be within [0, 1]")
	}
	if cfg.Telemetry.ExportIntervalSeconds < 0 {
		return fmt.Errorf("config: Telemetry.ExportIntervalSeconds must not be negative")
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("config: Log rotation limits must not be negative")
	}
	return nil
}

func validProxyEntry(entry string) bool {
	if strings.Contains(entry, "/") {
		_, err := netip.ParsePrefix(entry)
		return err == nil
	}
	_, err := netip.ParseAddr(entry)
	return err == nil
}
