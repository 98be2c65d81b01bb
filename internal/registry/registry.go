// Package registry owns the lifecycle of bank patterns: built-in seeds,
// user-defined rules, validation, and the dry-run test entry point. It holds
// no cache of its own, so every read reflects the latest committed write.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ggoomipapa/fammoney-core/internal/classifier"
	"github.com/ggoomipapa/fammoney-core/internal/model"
	"github.com/ggoomipapa/fammoney-core/internal/service"
	"github.com/ggoomipapa/fammoney-core/internal/storage"
)

// ErrNotEditable is returned when a save targets a built-in pattern's content.
var ErrNotEditable = errors.New("built-in patterns cannot be edited, only enabled or disabled")

// InvalidPatternError reports a malformed or incomplete rule, rejected at
// save time and never stored.
type InvalidPatternError struct {
	Err error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern: %v", e.Err)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

// NotDeletableError reports an attempt to delete a built-in pattern.
type NotDeletableError struct {
	ID string
}

func (e *NotDeletableError) Error() string {
	return fmt.Sprintf("pattern %q is built-in and cannot be deleted", e.ID)
}

// Registry manages bank patterns on top of the persistence layer.
type Registry struct {
	store      service.Storage
	classifier *classifier.Classifier
}

// New creates a pattern registry.
func New(store service.Storage, cls *classifier.Classifier) *Registry {
	return &Registry{store: store, classifier: cls}
}

// List returns all patterns, built-ins first in seed order, then custom
// patterns in creation order.
func (r *Registry) List(ctx context.Context) ([]model.BankPattern, error) {
	return r.store.ListPatterns(ctx)
}

// Get retrieves a single pattern by ID.
func (r *Registry) Get(ctx context.Context, id string) (*model.BankPattern, error) {
	return r.store.GetPattern(ctx, id)
}

// Save validates and upserts a custom pattern. A pattern without an ID is
// created; saving onto a built-in ID fails because built-in content is
// immutable. Validation failure leaves the registry unchanged.
func (r *Registry) Save(ctx context.Context, pattern *model.BankPattern) error {
	if pattern == nil {
		return &InvalidPatternError{Err: errors.New("pattern is nil")}
	}

	if err := pattern.Validate(); err != nil {
		return &InvalidPatternError{Err: err}
	}

	if pattern.ID == "" {
		pattern.ID = "custom-" + uuid.NewString()
	} else {
		existing, err := r.store.GetPattern(ctx, pattern.ID)
		switch {
		case err == nil && !existing.Custom:
			return ErrNotEditable
		case err != nil && !errors.Is(err, storage.ErrPatternNotFound):
			// A transient read failure must not skip the built-in guard.
			return fmt.Errorf("failed to look up pattern %q: %w", pattern.ID, err)
		}
	}

	pattern.Custom = true
	if err := r.store.SavePattern(ctx, pattern); err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}
	return nil
}

// Delete removes a custom pattern. Built-ins are not deletable.
func (r *Registry) Delete(ctx context.Context, id string) error {
	pattern, err := r.store.GetPattern(ctx, id)
	if err != nil {
		return err
	}
	if !pattern.Custom {
		return &NotDeletableError{ID: id}
	}
	return r.store.DeletePattern(ctx, id)
}

// SetEnabled toggles any pattern, built-in or custom.
func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return r.store.SetPatternEnabled(ctx, id, enabled)
}

// ResetToDefaults deletes all custom patterns and re-enables every built-in,
// as a single atomic storage operation.
func (r *Registry) ResetToDefaults(ctx context.Context) error {
	return r.store.ResetPatterns(ctx, Builtins())
}

// EnabledForSource returns the enabled patterns that apply to the given
// source app, preserving registry order.
func (r *Registry) EnabledForSource(ctx context.Context, sourceApp string) ([]model.BankPattern, error) {
	patterns, err := r.store.ListPatterns(ctx)
	if err != nil {
		return nil, err
	}

	var applicable []model.BankPattern
	for _, p := range patterns {
		if p.Enabled && p.AppliesTo(sourceApp) {
			applicable = append(applicable, p)
		}
	}
	return applicable, nil
}

// Test dry-runs a pattern against sample text for interactive rule authoring.
// No registry lookup, no side effects.
func (r *Registry) Test(pattern *model.BankPattern, sampleText string) model.ParseOutcome {
	return r.classifier.Classify(pattern, sampleText)
}

// Seed inserts any missing built-in patterns, logging how many exist after.
func (r *Registry) Seed(ctx context.Context) error {
	builtins := Builtins()
	if err := r.store.SeedBuiltinPatterns(ctx, builtins); err != nil {
		return fmt.Errorf("failed to seed builtin patterns: %w", err)
	}
	slog.Debug("seeded builtin patterns", "count", len(builtins))
	return nil
}
