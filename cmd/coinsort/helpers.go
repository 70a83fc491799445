package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ghigo/coinsort/internal/engine"
	"github.com/ghigo/coinsort/internal/llm"
	"github.com/ghigo/coinsort/internal/memory"
	"github.com/ghigo/coinsort/internal/rules"
	"github.com/ghigo/coinsort/internal/storage"
	"github.com/ghigo/coinsort/internal/taxonomy"
)

// expandPath resolves ~ and environment variables in a configured path.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// initStorage opens the configured database and brings its schema current.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "~/.local/share/coinsort/coinsort.db"
	}
	dbPath = expandPath(dbPath)

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEngine wires the full cascade over an open storage backend.
func initEngine(ctx context.Context, store *storage.SQLiteStorage) (*engine.Engine, error) {
	mem := memory.New(store)

	ruleStore := rules.NewStore()
	if err := ruleStore.Load(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	mapper := taxonomy.NewMapper(store)

	client, err := llm.NewClient(llmConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	classifier := llm.NewClassifier(client, slog.Default())

	cfg := engine.DefaultConfig()
	if threshold := viper.GetFloat64("classification.fuzzy_threshold"); threshold > 0 {
		cfg.FuzzyThreshold = threshold
	}
	if workers := viper.GetInt("classification.batch_workers"); workers > 0 {
		cfg.BatchWorkers = workers
	}

	return engine.NewWithConfig(store, mem, ruleStore, mapper, classifier, cfg), nil
}

func llmConfig() llm.Config {
	cfg := llm.Config{
		Provider:    viper.GetString("llm.provider"),
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		APIKey:      viper.GetString("llm.api_key"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	}
	if timeout := viper.GetDuration("llm.request_timeout"); timeout > 0 {
		cfg.RequestTimeout = timeout
	} else {
		cfg.RequestTimeout = 30 * time.Second
	}
	return cfg
}
