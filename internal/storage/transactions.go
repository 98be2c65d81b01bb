package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggoomipapa/fammoney-core/internal/model"
	"github.com/ggoomipapa/fammoney-core/internal/service"
)

// ErrTransactionNotFound is returned when a transaction is not found.
var ErrTransactionNotFound = errors.New("transaction not found")

const transactionColumns = `id, scope, bank_name, description, merchant, source_app,
	tx_type, amount, notification_time, created_at`

// CreateTransaction persists a newly ingested transaction.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return createTransaction(ctx, s.db, txn)
}

// GetTransactionByID retrieves a transaction by ID.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getTransactionByID(ctx, s.db, id)
}

// DeleteTransaction removes a transaction, typically the losing side of a
// duplicate resolution.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return deleteTransaction(ctx, s.db, id)
}

// GetRecentTransactions returns transactions in the scope whose notification
// time falls within the window, ordered by arrival (oldest first), bounded by
// the window limit.
func (s *SQLiteStorage) GetRecentTransactions(ctx context.Context, scope string, window service.RecentWindow) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(scope, "scope"); err != nil {
		return nil, err
	}
	return getRecentTransactions(ctx, s.db, scope, window)
}

func createTransaction(ctx context.Context, q dbtx, txn *model.Transaction) error {
	if err := validateTransactionRecord(txn); err != nil {
		return err
	}

	// created_at is set explicitly so arrival order survives sub-second bursts.
	createdAt := txn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	// Timestamps are bound as text, where BETWEEN compares lexicographically.
	// Normalizing to UTC keeps the window check independent of the zone
	// offset the caller supplied.
	notificationTime := txn.NotificationTime.UTC()

	query := `
		INSERT INTO transactions (
			id, scope, bank_name, description, merchant, source_app,
			tx_type, amount, notification_time, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := q.ExecContext(ctx, query,
		txn.ID, txn.Scope, txn.BankName, txn.Description, txn.Merchant,
		txn.SourceApp, string(txn.Type), txn.Amount, notificationTime, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	slog.Info("created transaction",
		"id", txn.ID,
		"scope", txn.Scope,
		"amount", txn.Amount,
		"source_app", txn.SourceApp)
	return nil
}

func getTransactionByID(ctx context.Context, q dbtx, id string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

	txn, err := scanTransaction(q.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func deleteTransaction(ctx context.Context, q dbtx, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTransactionNotFound
	}

	slog.Info("deleted transaction", "id", id)
	return nil
}

func getRecentTransactions(ctx context.Context, q dbtx, scope string, window service.RecentWindow) ([]model.Transaction, error) {
	if window.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidWindow)
	}
	if window.Span < 0 {
		return nil, fmt.Errorf("%w: span must be non-negative", ErrInvalidWindow)
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE scope = ? AND notification_time BETWEEN ? AND ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`

	rows, err := q.QueryContext(ctx, query,
		scope, window.Center.Add(-window.Span).UTC(), window.Center.Add(window.Span).UTC(), window.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transactions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

// scanTransaction reads one transactions row via the given scan function.
func scanTransaction(scan func(...any) error) (*model.Transaction, error) {
	var txn model.Transaction
	var txType string
	var merchant sql.NullString
	var createdAt sql.NullTime

	if err := scan(
		&txn.ID, &txn.Scope, &txn.BankName, &txn.Description, &merchant,
		&txn.SourceApp, &txType, &txn.Amount, &txn.NotificationTime, &createdAt,
	); err != nil {
		return nil, err
	}

	txn.Type = model.TransactionType(txType)
	txn.Merchant = merchant.String
	txn.CreatedAt = scanTime(createdAt)
	return &txn, nil
}
