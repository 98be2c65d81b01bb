// Package storage provides the data persistence layer for the fammoney application.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ggoomipapa/fammoney-core/internal/model"
	"github.com/ggoomipapa/fammoney-core/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// dbtx is the subset of sql.DB / sql.Tx the entity helpers need, so the same
// query code serves both direct calls and calls inside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{tx: tx}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx *sql.Tx
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Pattern operations within a transaction.

func (t *sqliteTransaction) ListPatterns(ctx context.Context) ([]model.BankPattern, error) {
	return listPatterns(ctx, t.tx)
}

func (t *sqliteTransaction) GetPattern(ctx context.Context, id string) (*model.BankPattern, error) {
	return getPattern(ctx, t.tx, id)
}

func (t *sqliteTransaction) SavePattern(ctx context.Context, pattern *model.BankPattern) error {
	return savePattern(ctx, t.tx, pattern)
}

func (t *sqliteTransaction) DeletePattern(ctx context.Context, id string) error {
	return deletePattern(ctx, t.tx, id)
}

func (t *sqliteTransaction) SetPatternEnabled(ctx context.Context, id string, enabled bool) error {
	return setPatternEnabled(ctx, t.tx, id, enabled)
}

func (t *sqliteTransaction) ResetPatterns(ctx context.Context, builtins []model.BankPattern) error {
	return resetPatterns(ctx, t.tx, builtins)
}

func (t *sqliteTransaction) SeedBuiltinPatterns(ctx context.Context, builtins []model.BankPattern) error {
	return seedBuiltinPatterns(ctx, t.tx, builtins)
}

// Transaction record operations within a transaction.

func (t *sqliteTransaction) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	return createTransaction(ctx, t.tx, txn)
}

func (t *sqliteTransaction) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	return getTransactionByID(ctx, t.tx, id)
}

func (t *sqliteTransaction) DeleteTransaction(ctx context.Context, id string) error {
	return deleteTransaction(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetRecentTransactions(ctx context.Context, scope string, window service.RecentWindow) ([]model.Transaction, error) {
	return getRecentTransactions(ctx, t.tx, scope, window)
}

// Pending duplicate operations within a transaction.

func (t *sqliteTransaction) CreatePendingDuplicate(ctx context.Context, pending *model.PendingDuplicate) error {
	return createPendingDuplicate(ctx, t.tx, pending)
}

func (t *sqliteTransaction) GetPendingDuplicate(ctx context.Context, id string) (*model.PendingDuplicate, error) {
	return getPendingDuplicate(ctx, t.tx, id)
}

func (t *sqliteTransaction) ListPendingDuplicates(ctx context.Context, scope string) ([]model.PendingDuplicate, error) {
	return listPendingDuplicates(ctx, t.tx, scope)
}

func (t *sqliteTransaction) DeletePendingDuplicate(ctx context.Context, id string) error {
	return deletePendingDuplicate(ctx, t.tx, id)
}

func (t *sqliteTransaction) HasOpenPendingForTransaction(ctx context.Context, transactionID string) (bool, error) {
	return hasOpenPendingForTransaction(ctx, t.tx, transactionID)
}

// Resolution rule operations within a transaction.

func (t *sqliteTransaction) GetResolutionRule(ctx context.Context, pairKey string) (*model.ResolutionRule, error) {
	return getResolutionRule(ctx, t.tx, pairKey)
}

func (t *sqliteTransaction) SaveResolutionRule(ctx context.Context, rule *model.ResolutionRule) error {
	return saveResolutionRule(ctx, t.tx, rule)
}

func (t *sqliteTransaction) ListResolutionRules(ctx context.Context) ([]model.ResolutionRule, error) {
	return listResolutionRules(ctx, t.tx)
}

func (t *sqliteTransaction) DeleteResolutionRule(ctx context.Context, pairKey string) error {
	return deleteResolutionRule(ctx, t.tx, pairKey)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}

// scanTime converts a nullable DATETIME column into a time.Time.
func scanTime(nt sql.NullTime) time.Time {
	if nt.Valid {
		return nt.Time
	}
	return time.Time{}
}
