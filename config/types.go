package config

// RPC configures the JSON-RPC transport.
type RPC struct {
	JWTSecret         string   `toml:"JWTSecret"`
	JWTIssuer         string   `toml:"JWTIssuer"`
	JWTAudience       string   `toml:"JWTAudience"`
	RequestsPerMinute int      `toml:"RequestsPerMinute"`
	Burst             int      `toml:"Burst"`
	AllowedOrigins    []string `toml:"AllowedOrigins"`
	MaxBodyBytes      int64    `toml:"MaxBodyBytes"`
	ReadHeaderTimeout int      `toml:"ReadHeaderTimeout"` // seconds
	// TrustedProxies are IPs or CIDRs allowed to set X-Forwarded-For and
	// X-Real-IP. Empty means forwarding headers are ignored.
	TrustedProxies    []string `toml:"TrustedProxies"`
}

// Indexer configures the optional event indexer. An empty DSN disables it.
type Indexer struct {
	DSN string `toml:"DSN"`
}

// Telemetry configures OpenTelemetry exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
	Headers  string `toml:"Headers"`

	// SampleRatio is the traced fraction of root calls; zero traces all.
	SampleRatio           float64 `toml:"SampleRatio"`
	// ExportIntervalSeconds is the metric push period; zero uses 15.
	ExportIntervalSeconds int     `toml:"ExportIntervalSeconds"`
}

// Log configures structured logging.
type Log struct {
	Level string `toml:"Level"`
	Env   string `toml:"Env"`

	// File enables a size-rotated copy of the log stream. Empty logs to stdout only.
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}
