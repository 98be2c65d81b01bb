// Package ingest applies the pattern registry and classifier to inbound
// notifications and feeds new transactions through the duplicate detector.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ggoomipapa/fammoney-core/internal/classifier"
	"github.com/ggoomipapa/fammoney-core/internal/common"
	"github.com/ggoomipapa/fammoney-core/internal/dedup"
	"github.com/ggoomipapa/fammoney-core/internal/model"
	"github.com/ggoomipapa/fammoney-core/internal/registry"
	"github.com/ggoomipapa/fammoney-core/internal/service"
)

// IngestError is a typed, recoverable ingestion failure. It is surfaced to
// the caller and never aborts the registry or the transaction store.
type IngestError struct {
	Kind    model.ParseErrorKind
	Message string
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Pipeline turns one notification into at most one transaction.
// Classification runs lock-free; "persist transaction + duplicate check" is
// serialized per scope so two near-simultaneous mutual duplicates cannot both
// conclude the window is empty. Distinct scopes ingest fully in parallel.
type Pipeline struct {
	registry   *registry.Registry
	classifier *classifier.Classifier
	detector   *dedup.Detector
	store      service.Storage
	scopeLocks map[string]*sync.Mutex
	mu         sync.Mutex
}

// New creates an ingestion pipeline.
func New(reg *registry.Registry, cls *classifier.Classifier, det *dedup.Detector, store service.Storage) *Pipeline {
	return &Pipeline{
		registry:   reg,
		classifier: cls,
		detector:   det,
		store:      store,
		scopeLocks: make(map[string]*sync.Mutex),
	}
}

// Ingest classifies one notification and persists the resulting transaction.
// On success the transaction is returned along with the duplicate outcome;
// a duplicate bookkeeping error never un-ingests the transaction, so the
// caller may receive both a transaction and an error.
func (p *Pipeline) Ingest(ctx context.Context, scope, sourceApp, text string, observedAt time.Time) (*model.Transaction, dedup.Outcome, error) {
	noOutcome := dedup.Outcome{Kind: dedup.NoDuplicate}

	patterns, err := p.registry.EnabledForSource(ctx, sourceApp)
	if err != nil {
		return nil, noOutcome, fmt.Errorf("failed to load patterns: %w", err)
	}
	if len(patterns) == 0 {
		return nil, noOutcome, &IngestError{
			Kind:    model.ErrKindNoMatchingPattern,
			Message: fmt.Sprintf("no enabled pattern handles source app %q", sourceApp),
		}
	}

	txn, ingErr := p.classify(patterns, scope, sourceApp, text, observedAt)
	if ingErr != nil {
		return nil, noOutcome, ingErr
	}

	lock := p.scopeLock(scope)
	lock.Lock()
	defer lock.Unlock()

	createTxn := func() error { return p.store.CreateTransaction(ctx, txn) }
	if err := common.WithRetry(ctx, createTxn, common.IsBusy, common.RetryOptions{}); err != nil {
		return nil, noOutcome, fmt.Errorf("failed to persist transaction: %w", err)
	}

	outcome, err := p.detector.Check(ctx, txn)
	if err != nil {
		// The transaction is ingested either way; duplicate bookkeeping
		// failure is advisory.
		slog.Warn("duplicate check failed after ingestion",
			"transaction_id", txn.ID,
			"scope", scope,
			"error", err)
		return txn, outcome, err
	}

	return txn, outcome, nil
}

// classify tries each applicable pattern in registry order and builds the
// transaction from the first success. If every pattern fails, the error from
// the last attempted pattern is surfaced.
func (p *Pipeline) classify(patterns []model.BankPattern, scope, sourceApp, text string, observedAt time.Time) (*model.Transaction, *IngestError) {
	var lastFailure model.ParseOutcome

	for i := range patterns {
		pattern := &patterns[i]
		outcome := p.classifier.Classify(pattern, text)
		if !outcome.Success {
			lastFailure = outcome
			continue
		}

		return &model.Transaction{
			ID:               uuid.NewString(),
			Scope:            scope,
			BankName:         pattern.DisplayName,
			Description:      text,
			Merchant:         outcome.Merchant,
			SourceApp:        sourceApp,
			Type:             outcome.Type,
			Amount:           outcome.Amount,
			NotificationTime: observedAt.UTC(),
			CreatedAt:        time.Now().UTC(),
		}, nil
	}

	return nil, &IngestError{
		Kind:    lastFailure.ErrKind,
		Message: lastFailure.ErrMessage,
	}
}

// scopeLock returns the mutex serializing ingestion for one scope.
func (p *Pipeline) scopeLock(scope string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.scopeLocks[scope]
	if !ok {
		lock = &sync.Mutex{}
		p.scopeLocks[scope] = lock
	}
	return lock
}
