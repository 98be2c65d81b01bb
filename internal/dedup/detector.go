package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ggoomipapa/fammoney-core/internal/model"
	"github.com/ggoomipapa/fammoney-core/internal/service"
	"github.com/ggoomipapa/fammoney-core/internal/storage"
)

// Config tunes the duplicate predicate.
type Config struct {
	// Window is the maximum notification-time separation for two transactions
	// to count as possible duplicates.
	Window time.Duration
	// RecentLimit bounds the candidate scan so old backlogs stay cheap.
	RecentLimit int
}

// DefaultConfig returns the documented defaults: a 3 minute window and a
// 50-row candidate scan.
func DefaultConfig() Config {
	return Config{
		Window:      3 * time.Minute,
		RecentLimit: 50,
	}
}

// Detector scans newly ingested transactions against the recent window.
// Callers must serialize Check calls per scope; the ingestion pipeline's
// scope lock provides that.
type Detector struct {
	store service.Storage
	cfg   Config
}

// NewDetector creates a duplicate detector.
func NewDetector(store service.Storage, cfg Config) *Detector {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = DefaultConfig().RecentLimit
	}
	return &Detector{store: store, cfg: cfg}
}

// Check compares txn against prior transactions in its scope. Two
// transactions are candidate duplicates when their amounts are equal, their
// notification times lie within the window, their source apps differ, and
// neither already belongs to an open pending record. The earliest-arriving
// unresolved candidate wins; a transaction is only ever linked to one.
func (d *Detector) Check(ctx context.Context, txn *model.Transaction) (Outcome, error) {
	window := service.RecentWindow{
		Center: txn.NotificationTime,
		Span:   d.cfg.Window,
		Limit:  d.cfg.RecentLimit,
	}

	recent, err := d.store.GetRecentTransactions(ctx, txn.Scope, window)
	if err != nil {
		return Outcome{Kind: NoDuplicate}, fmt.Errorf("failed to scan recent transactions: %w", err)
	}

	for i := range recent {
		other := &recent[i]
		if other.ID == txn.ID || other.SourceApp == txn.SourceApp || other.Amount != txn.Amount {
			continue
		}

		open, err := d.store.HasOpenPendingForTransaction(ctx, other.ID)
		if err != nil {
			return Outcome{Kind: NoDuplicate}, fmt.Errorf("failed to check open pending state: %w", err)
		}
		if open {
			continue
		}

		return d.link(ctx, other, txn)
	}

	return Outcome{Kind: NoDuplicate}, nil
}

// link applies a standing rule for the pair if one exists, otherwise creates
// a pending record. first arrived before second.
func (d *Detector) link(ctx context.Context, first, second *model.Transaction) (Outcome, error) {
	pairKey := model.SourcePairKey(first.SourceApp, second.SourceApp)

	rule, err := d.store.GetResolutionRule(ctx, pairKey)
	switch {
	case err == nil:
		return d.applyRule(ctx, rule, first, second)
	case errors.Is(err, storage.ErrResolutionRuleNotFound):
		// No standing rule: surface to the user.
	default:
		return Outcome{Kind: NoDuplicate}, fmt.Errorf("failed to look up resolution rule: %w", err)
	}

	pending := &model.PendingDuplicate{
		ID:             uuid.NewString(),
		Scope:          second.Scope,
		Transaction1ID: first.ID,
		Transaction2ID: second.ID,
		SourceApp1:     first.SourceApp,
		SourceApp2:     second.SourceApp,
		Amount:         second.Amount,
		DetectedAt:     time.Now().UTC(),
	}

	if err := d.store.CreatePendingDuplicate(ctx, pending); err != nil {
		return Outcome{Kind: NoDuplicate}, fmt.Errorf("failed to create pending duplicate: %w", err)
	}

	return Outcome{Kind: PendingCreated, Pending: pending}, nil
}

// applyRule enforces a standing resolution without surfacing anything to the
// user: the losing transaction is deleted, KEEP_BOTH deletes nothing.
func (d *Detector) applyRule(ctx context.Context, rule *model.ResolutionRule, first, second *model.Transaction) (Outcome, error) {
	var loser string
	switch rule.Resolution {
	case model.KeepFirst:
		loser = second.ID
	case model.KeepSecond:
		loser = first.ID
	case model.KeepBoth:
		// Both stand.
	}

	if loser != "" {
		if err := d.store.DeleteTransaction(ctx, loser); err != nil {
			return Outcome{Kind: NoDuplicate}, fmt.Errorf("failed to apply standing rule %q: %w", rule.PairKey, err)
		}
	}

	slog.Info("auto-resolved duplicate",
		"pair_key", rule.PairKey,
		"resolution", rule.Resolution,
		"first", first.ID,
		"second", second.ID)

	return Outcome{Kind: AutoResolved, Resolution: rule.Resolution}, nil
}
