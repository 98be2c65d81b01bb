// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ggoomipapa/fammoney-core/internal/model"
)

// RecentWindow bounds the duplicate candidate query: transactions in the same
// scope whose notification time falls within [Center-Span, Center+Span],
// in arrival order (oldest first), at most Limit rows.
type RecentWindow struct {
	Center time.Time
	Span   time.Duration
	Limit  int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Pattern operations
	ListPatterns(ctx context.Context) ([]model.BankPattern, error)
	GetPattern(ctx context.Context, id string) (*model.BankPattern, error)
	SavePattern(ctx context.Context, pattern *model.BankPattern) error
	DeletePattern(ctx context.Context, id string) error
	SetPatternEnabled(ctx context.Context, id string, enabled bool) error
	ResetPatterns(ctx context.Context, builtins []model.BankPattern) error
	SeedBuiltinPatterns(ctx context.Context, builtins []model.BankPattern) error

	// Transaction operations
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	GetRecentTransactions(ctx context.Context, scope string, window RecentWindow) ([]model.Transaction, error)

	// Pending duplicate operations
	CreatePendingDuplicate(ctx context.Context, pending *model.PendingDuplicate) error
	GetPendingDuplicate(ctx context.Context, id string) (*model.PendingDuplicate, error)
	ListPendingDuplicates(ctx context.Context, scope string) ([]model.PendingDuplicate, error)
	DeletePendingDuplicate(ctx context.Context, id string) error
	HasOpenPendingForTransaction(ctx context.Context, transactionID string) (bool, error)

	// Resolution rule operations
	GetResolutionRule(ctx context.Context, pairKey string) (*model.ResolutionRule, error)
	SaveResolutionRule(ctx context.Context, rule *model.ResolutionRule) error
	ListResolutionRules(ctx context.Context) ([]model.ResolutionRule, error)
	DeleteResolutionRule(ctx context.Context, pairKey string) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}
