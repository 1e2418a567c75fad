package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"donex/config"
	"donex/core"
	"donex/core/events"
	"donex/core/genesis"
	"donex/crypto"
	"donex/indexer"
	"donex/native/registry"
	"donex/observability"
	"donex/rpc"
	"donex/storage"
)

type nodeOptions struct {
	GenesisPath      string
	AllowAutogenesis bool
	OperatorPass     string
}

type node struct {
	db     storage.Database
	host   *core.Host
	index  *indexer.Indexer
	server *rpc.Server

	closeOnce sync.Once
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.DBBackend {
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	case config.BackendBolt:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(cfg.StatePath(), nil)
	case config.BackendLevelDB, "":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewLevelDB(cfg.StatePath())
	default:
		return nil, fmt.Errorf("unsupported DBBackend %q", cfg.DBBackend)
	}
}

func openIndexer(dsn string, logger *slog.Logger) (*indexer.Indexer, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, nil
	}
	lower := strings.ToLower(dsn)
	if !strings.HasPrefix(lower, "postgres://") && !strings.HasPrefix(lower, "postgresql://") && !strings.HasPrefix(lower, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
	}
	return indexer.Open(dsn, logger)
}

// buildNode wires storage, the host, the indexer and the JSON-RPC server and
// applies genesis on a fresh database.
func buildNode(ctx context.Context, cfg *config.Config, opts nodeOptions, logger *slog.Logger) (*node, error) {
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	n := &node{db: db}

	fanout := events.NewFanout(observability.Events())
	n.index, err = openIndexer(cfg.Indexer.DSN, logger)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("open indexer: %w", err)
	}
	if n.index != nil {
		fanout.Add(n.index)
	}

	n.host, err = core.NewHost(db, core.Options{
		AddressPrefix:   cfg.AddressPrefix,
		ContractAddress: cfg.ContractAddress,
		ChainID:         cfg.NetworkName,
		Emitter:         fanout,
		Logger:          logger,
	})
	if err != nil {
		n.Close()
		return nil, err
	}

	n.server = rpc.NewServer(n.host, rpc.Config{
		Auth: rpc.AuthConfig{
			HMACSecret: cfg.RPC.JWTSecret,
			Issuer:     cfg.RPC.JWTIssuer,
			Audience:   cfg.RPC.JWTAudience,
		},
		RequestsPerMinute: cfg.RPC.RequestsPerMinute,
		Burst:             cfg.RPC.Burst,
		TrustedProxies:    cfg.RPC.TrustedProxies,
		AllowedOrigins:    cfg.RPC.AllowedOrigins,
		MaxBodyBytes:      cfg.RPC.MaxBodyBytes,
		ReadHeaderTimeout: time.Duration(cfg.RPC.ReadHeaderTimeout) * time.Second,
	}, logger)
	if n.index != nil {
		n.server.SetIndex(n.index)
	}
	fanout.Add(n.server.Hub())

	spec, err := loadGenesis(cfg, opts)
	if err != nil {
		n.Close()
		return nil, err
	}
	if spec != nil {
		applied, err := genesis.Apply(ctx, n.host, spec, logger)
		if err != nil {
			n.Close()
			return nil, err
		}
		if applied {
			logger.Info("genesis applied", slog.String("owner", spec.Owner), slog.Uint64("height", n.host.Height()))
		}
	} else if !n.host.Instantiated() {
		logger.Warn("no genesis configured; contract awaits instantiation")
	}
	return n, nil
}

func loadGenesis(cfg *config.Config, opts nodeOptions) (*genesis.GenesisSpec, error) {
	if opts.GenesisPath != "" {
		spec, err := genesis.LoadGenesisSpec(opts.GenesisPath)
		if err != nil {
			return nil, err
		}
		if spec.ChainID != "" && spec.ChainID != cfg.NetworkName {
			return nil, fmt.Errorf("genesis chainId %q does not match NetworkName %q", spec.ChainID, cfg.NetworkName)
		}
		return spec, nil
	}
	if !opts.AllowAutogenesis {
		return nil, nil
	}
	return devGenesis(cfg, opts.OperatorPass)
}

// devGenesis instantiates with the operator key as owner and a single
// accepted denom. Only for local development.
func devGenesis(cfg *config.Config, passphrase string) (*genesis.GenesisSpec, error) {
	key, err := crypto.LoadFromKeystore(cfg.OperatorKeystorePath, passphrase)
	if err != nil {
		return nil, fmt.Errorf("load operator key: %w", err)
	}
	prefix := cfg.AddressPrefix
	if prefix == "" {
		prefix = crypto.DefaultPrefix
	}
	addr, err := key.PubKey().Address(prefix)
	if err != nil {
		return nil, err
	}
	return &genesis.GenesisSpec{
		ChainID:        cfg.NetworkName,
		Owner:          addr.String(),
		AcceptedTokens: []string{"ucmst"},
		RegistryMode:   string(registry.ModeMulti),
	}, nil
}

func (n *node) Close() {
	n.closeOnce.Do(func() {
		if n.index != nil {
			_ = n.index.Close()
		}
		if n.db != nil {
			n.db.Close()
		}
	})
}
