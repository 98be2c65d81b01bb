package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ggoomipapa/fammoney-core/internal/classifier"
	"github.com/ggoomipapa/fammoney-core/internal/common"
	"github.com/ggoomipapa/fammoney-core/internal/dedup"
	"github.com/ggoomipapa/fammoney-core/internal/ingest"
	"github.com/ggoomipapa/fammoney-core/internal/registry"
	"github.com/ggoomipapa/fammoney-core/internal/storage"
)

// initStorage opens the configured database, migrates it and seeds the
// built-in patterns. Callers must Close the returned storage.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "fammoney", "fammoney.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("could not open database at %s", dbPath), err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := store.SeedBuiltinPatterns(ctx, registry.Builtins()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to seed builtin patterns: %w", err)
	}

	return store, nil
}

// newClassifier builds a classifier with the configured match budget.
func newClassifier() *classifier.Classifier {
	budget := time.Duration(viper.GetInt("classifier.match_budget_ms")) * time.Millisecond
	return classifier.New(budget)
}

// newRegistry wires a pattern registry over the given storage.
func newRegistry(store *storage.SQLiteStorage) *registry.Registry {
	return registry.New(store, newClassifier())
}

// newPipeline wires the full ingestion path: registry, classifier, detector.
func newPipeline(store *storage.SQLiteStorage) (*ingest.Pipeline, error) {
	cfg, err := dedupConfig()
	if err != nil {
		return nil, err
	}

	cls := newClassifier()
	det := dedup.NewDetector(store, cfg)
	return ingest.New(registry.New(store, cls), cls, det, store), nil
}

// dedupConfig reads the duplicate-detection settings, rejecting values that
// would silently disable detection.
func dedupConfig() (dedup.Config, error) {
	windowMinutes := viper.GetInt("dedup.window_minutes")
	recentLimit := viper.GetInt("dedup.recent_limit")

	if windowMinutes < 0 {
		return dedup.Config{}, fmt.Errorf("%w: dedup.window_minutes must be non-negative, got %d",
			common.ErrInvalidConfig, windowMinutes)
	}
	if recentLimit < 0 {
		return dedup.Config{}, fmt.Errorf("%w: dedup.recent_limit must be non-negative, got %d",
			common.ErrInvalidConfig, recentLimit)
	}

	return dedup.Config{
		Window:      time.Duration(windowMinutes) * time.Minute,
		RecentLimit: recentLimit,
	}, nil
}
