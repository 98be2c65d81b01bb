package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggoomipapa/fammoney-core/internal/model"
	"github.com/ggoomipapa/fammoney-core/internal/service"
	"github.com/ggoomipapa/fammoney-core/internal/storage"
)

// ErrInvalidResolution is returned for an unknown resolution value.
var ErrInvalidResolution = errors.New("invalid duplicate resolution")

// AlreadyResolvedError reports a resolution attempt on a pending duplicate
// that no longer exists. Resolving is idempotent in the sense that a second
// attempt fails cleanly instead of corrupting state.
type AlreadyResolvedError struct {
	ID string
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("pending duplicate %q is already resolved or deleted", e.ID)
}

// Resolver applies user decisions to pending duplicates.
type Resolver struct {
	store service.Storage
}

// NewResolver creates a resolution engine.
func NewResolver(store service.Storage) *Resolver {
	return &Resolver{store: store}
}

// Resolve applies the decision to a pending duplicate: KEEP_BOTH keeps both
// transactions, KEEP_FIRST deletes the second, KEEP_SECOND deletes the first.
// With applyToFuture the decision is recorded as a standing rule for the
// unordered source pair, overwriting any prior rule. The whole operation is
// one database transaction.
func (r *Resolver) Resolve(ctx context.Context, pendingID string, resolution model.DuplicateResolution, applyToFuture bool) error {
	if !model.ValidResolution(resolution) {
		return fmt.Errorf("%w: %q", ErrInvalidResolution, resolution)
	}

	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	pending, err := tx.GetPendingDuplicate(ctx, pendingID)
	if errors.Is(err, storage.ErrPendingDuplicateNotFound) {
		return &AlreadyResolvedError{ID: pendingID}
	}
	if err != nil {
		return fmt.Errorf("failed to load pending duplicate: %w", err)
	}

	var loser string
	switch resolution {
	case model.KeepFirst:
		loser = pending.Transaction2ID
	case model.KeepSecond:
		loser = pending.Transaction1ID
	case model.KeepBoth:
		// Both stand.
	}

	// The pending record goes first: it holds foreign keys to both
	// transactions, so the loser cannot be deleted while it exists.
	if err := tx.DeletePendingDuplicate(ctx, pending.ID); err != nil {
		return fmt.Errorf("failed to close pending duplicate: %w", err)
	}

	if loser != "" {
		if err := tx.DeleteTransaction(ctx, loser); err != nil && !errors.Is(err, storage.ErrTransactionNotFound) {
			return fmt.Errorf("failed to delete losing transaction: %w", err)
		}
	}

	if applyToFuture {
		rule := &model.ResolutionRule{
			PairKey:    model.SourcePairKey(pending.SourceApp1, pending.SourceApp2),
			Resolution: resolution,
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.SaveResolutionRule(ctx, rule); err != nil {
			return fmt.Errorf("failed to save standing rule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit resolution: %w", err)
	}

	slog.Info("resolved pending duplicate",
		"id", pending.ID,
		"resolution", resolution,
		"apply_to_future", applyToFuture)
	return nil
}

// ListPending returns open pending duplicates for review surfaces. An empty
// scope lists every scope.
func (r *Resolver) ListPending(ctx context.Context, scope string) ([]model.PendingDuplicate, error) {
	return r.store.ListPendingDuplicates(ctx, scope)
}

// ListRules returns every standing resolution rule.
func (r *Resolver) ListRules(ctx context.Context) ([]model.ResolutionRule, error) {
	return r.store.ListResolutionRules(ctx)
}

// DeleteRule removes the standing rule for an unordered source app pair, so
// future duplicates from that pair surface as pending again.
func (r *Resolver) DeleteRule(ctx context.Context, sourceApp1, sourceApp2 string) error {
	return r.store.DeleteResolutionRule(ctx, model.SourcePairKey(sourceApp1, sourceApp2))
}
