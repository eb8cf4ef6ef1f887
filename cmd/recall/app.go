package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/victoriahouse/recall/convlog"
	"github.com/victoriahouse/recall/databank"
	"github.com/victoriahouse/recall/db"
	"github.com/victoriahouse/recall/embed"
	"github.com/victoriahouse/recall/internal/pathutil"
	"github.com/victoriahouse/recall/kvstore"
	"github.com/victoriahouse/recall/memory"
	"github.com/victoriahouse/recall/vector"
)

// AppConfig is the effective configuration after defaults, config file,
// env and flags are merged.
type AppConfig struct {
	DB       db.Config      `yaml:"db"`
	Vector   VectorConfig   `yaml:"vector"`
	Search   SearchConfig   `yaml:"search"`
	DataBank DataBankConfig `yaml:"databank"`
	Serve    ServeConfig    `yaml:"serve"`
	LogLevel string         `yaml:"log_level"`
}

type VectorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SearchConfig struct {
	LexicalWeight float64 `yaml:"lexical_weight"`
}

type DataBankConfig struct {
	Root string `yaml:"root"`
}

type ServeConfig struct {
	Transport string `yaml:"transport"`
	Addr      string `yaml:"addr"`
}

func appConfigFromViper() AppConfig {
	cfg := AppConfig{
		DB:       db.DefaultConfig(),
		Vector:   VectorConfig{Path: "~/.recall/vectors"},
		Search:   SearchConfig{LexicalWeight: 0.7},
		DataBank: DataBankConfig{Root: "~/.recall/banks"},
		Serve:    ServeConfig{Transport: "stdio", Addr: "127.0.0.1:8391"},
		LogLevel: "info",
	}
	if v := strings.TrimSpace(viper.GetString("db.dsn")); v != "" {
		cfg.DB.DSN = v
	}
	if viper.IsSet("vector.enabled") {
		cfg.Vector.Enabled = viper.GetBool("vector.enabled")
	}
	if v := strings.TrimSpace(viper.GetString("vector.path")); v != "" {
		cfg.Vector.Path = v
	}
	if viper.IsSet("search.lexical_weight") {
		cfg.Search.LexicalWeight = viper.GetFloat64("search.lexical_weight")
	}
	if v := strings.TrimSpace(viper.GetString("databank.root")); v != "" {
		cfg.DataBank.Root = v
	}
	if v := strings.TrimSpace(viper.GetString("serve.transport")); v != "" {
		cfg.Serve.Transport = v
	}
	if v := strings.TrimSpace(viper.GetString("serve.addr")); v != "" {
		cfg.Serve.Addr = v
	}
	if v := strings.TrimSpace(viper.GetString("log.level")); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// App bundles the wired stores for command handlers.
type App struct {
	Config  AppConfig
	Memory  memory.Store
	Banks   *databank.Store
	KV      *kvstore.Store
	ConvLog *convlog.Log
}

func newApp(ctx context.Context) (*App, error) {
	cfg := appConfigFromViper()
	log := slog.Default()

	gdb, err := db.Open(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.EnsureSchema(gdb, log); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var idx vector.Index = vector.Disabled{}
	var embedder embed.Embedder
	if cfg.Vector.Enabled {
		chromem, err := vector.NewChromemIndex(pathutil.ExpandHomePath(cfg.Vector.Path))
		if err != nil {
			// The vector index is optional; run lexical-only instead of
			// refusing to start.
			log.Warn("vector index unavailable, running lexical-only", "error", err)
		} else {
			idx = chromem
			embedder = embed.NewCached(embed.NewMockEmbedder(), 0)
		}
	}

	store := memory.NewSQLiteStore(memory.StoreConfig{
		DB:            gdb,
		Vector:        idx,
		Embedder:      embedder,
		LexicalWeight: &cfg.Search.LexicalWeight,
		Logger:        log,
	})
	banks := databank.NewStore(databank.StoreConfig{
		DB:     gdb,
		Root:   pathutil.ExpandHomePath(cfg.DataBank.Root),
		Logger: log,
	})

	return &App{
		Config:  cfg,
		Memory:  store,
		Banks:   banks,
		KV:      kvstore.NewStore(gdb),
		ConvLog: convlog.NewLog(gdb),
	}, nil
}
