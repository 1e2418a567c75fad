package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"donex/config"
	"donex/core/types"
	"donex/indexer"
)

func TestResolveGenesisPathPrecedence(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key != genesisPathEnv {
			t.Fatalf("unexpected lookup key: %s", key)
		}
		return "env-path", true
	}
	if path := resolveGenesisPath("cli-path", "cfg-path", lookup); path != "cli-path" {
		t.Fatalf("cli flag should win, got %q", path)
	}
	if path := resolveGenesisPath("", "cfg-path", lookup); path != "env-path" {
		t.Fatalf("environment should override config, got %q", path)
	}
	empty := func(string) (string, bool) { return "", false }
	if path := resolveGenesisPath("", " cfg-path ", empty); path != "cfg-path" {
		t.Fatalf("config should be used last, got %q", path)
	}
}

func writeGenesis(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "genesis.json")
	contents := `{
  "chainId": "donex-test",
  "owner": "owner",
  "accepted_tokens": ["ucmst"],
  "alloc": {"alice": {"ucmst": "1000"}},
  "links": [{"platform": "twitter", "profile_id": "123", "address": "bob"}]
}`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	return path
}

func testConfig(dir, backend string) *config.Config {
	return &config.Config{
		ListenAddress: "127.0.0.1:0",
		DataDir:       filepath.Join(dir, "data"),
		DBBackend:     backend,
		NetworkName:   "donex-test",
		Indexer:       config.Indexer{DSN: filepath.Join(dir, "index", "events.db")},
		RPC:           config.RPC{JWTSecret: "node-test-secret-0123456789"},
	}
}

func TestBuildNodeAppliesGenesisAndIndexes(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir, config.BackendMemory)
	n, err := buildNode(context.Background(), cfg, nodeOptions{GenesisPath: writeGenesis(t, dir)}, nil)
	if err != nil {
		t.Fatalf("build node: %v", err)
	}
	defer n.Close()

	if !n.host.Instantiated() || n.host.Height() != 2 {
		t.Fatalf("expected instantiate plus one link, height %d", n.host.Height())
	}
	ctx := context.Background()
	if _, err := n.host.Execute(ctx, "alice", []byte(`{"donate":{"recipient":"bob"}}`), types.Coins{types.NewCoin("ucmst", 200)}); err != nil {
		t.Fatalf("donate: %v", err)
	}
	rows, err := n.index.ListDonations(ctx, indexer.DonationFilter{Recipient: "bob"})
	if err != nil {
		t.Fatalf("list donations: %v", err)
	}
	if len(rows) != 1 || rows[0].Net != "190" || rows[0].Fee != "10" {
		t.Fatalf("unexpected indexed donations %+v", rows)
	}
	links, err := n.index.LinkHistory(ctx, "bob", 0)
	if err != nil {
		t.Fatalf("link history: %v", err)
	}
	if len(links) != 1 || links[0].Platform != "twitter" {
		t.Fatalf("unexpected link history %+v", links)
	}
}

func TestBuildNodeRestartKeepsState(t *testing.T) {
	for _, backend := range []string{config.BackendLevelDB, config.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			cfg := testConfig(dir, backend)
			cfg.Indexer.DSN = ""
			genesisPath := writeGenesis(t, dir)

			first, err := buildNode(context.Background(), cfg, nodeOptions{GenesisPath: genesisPath}, nil)
			if err != nil {
				t.Fatalf("first build: %v", err)
			}
			height := first.host.Height()
			first.Close()

			second, err := buildNode(context.Background(), cfg, nodeOptions{GenesisPath: genesisPath}, nil)
			if err != nil {
				t.Fatalf("second build: %v", err)
			}
			defer second.Close()
			if second.host.Height() != height {
				t.Fatalf("genesis re-applied: height %d, want %d", second.host.Height(), height)
			}
			bal, err := second.host.Balance("alice", "ucmst")
			if err != nil {
				t.Fatalf("balance: %v", err)
			}
			if bal.Uint64() != 1000 {
				t.Fatalf("alloc minted twice or lost: %s", bal.Dec())
			}
		})
	}
}

func TestBuildNodeRejectsChainMismatch(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir, config.BackendMemory)
	cfg.NetworkName = "other-net"
	if _, err := buildNode(context.Background(), cfg, nodeOptions{GenesisPath: writeGenesis(t, dir)}, nil); err == nil {
		t.Fatalf("expected chain id mismatch error")
	}
}

func TestAutogenesisUsesOperatorKey(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.DBBackend = config.BackendMemory
	cfg.Indexer.DSN = ""

	n, err := buildNode(context.Background(), cfg, nodeOptions{AllowAutogenesis: true}, nil)
	if err != nil {
		t.Fatalf("build node: %v", err)
	}
	defer n.Close()
	if !n.host.Instantiated() {
		t.Fatalf("expected autogenesis to instantiate the contract")
	}

	idle, err := buildNode(context.Background(), cfg, nodeOptions{}, nil)
	if err != nil {
		t.Fatalf("build idle node: %v", err)
	}
	defer idle.Close()
	if idle.host.Instantiated() {
		t.Fatalf("memory node without genesis should not be instantiated")
	}
}

func TestTelemetryConfigCarriesNodeIdentity(t *testing.T) {
	cfg := &config.Config{NetworkName: "donex-test", ContractAddress: "contract", AddressPrefix: "donex"}
	cfg.Telemetry.Headers = "api-key=abc"
	cfg.Telemetry.SampleRatio = 0.5
	cfg.Telemetry.ExportIntervalSeconds = 30

	got := telemetryConfig(cfg)
	if got.ServiceName != "donexd" || got.Network != "donex-test" || got.ContractAddress != "contract" || got.AddressPrefix != "donex" {
		t.Fatalf("unexpected identity %+v", got)
	}
	if got.Headers["api-key"] != "abc" || got.SampleRatio != 0.5 || got.ExportInterval != 30*time.Second {
		t.Fatalf("unexpected exporter settings %+v", got)
	}
}
