package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ggoomipapa/fammoney-core/internal/model"
)

// ErrPendingDuplicateNotFound is returned when a pending duplicate is not found.
var ErrPendingDuplicateNotFound = errors.New("pending duplicate not found")

const pendingColumns = `id, scope, transaction1_id, transaction2_id,
	source_app1, source_app2, amount, detected_at`

// CreatePendingDuplicate records a suspected duplicate pair awaiting a decision.
func (s *SQLiteStorage) CreatePendingDuplicate(ctx context.Context, pending *model.PendingDuplicate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return createPendingDuplicate(ctx, s.db, pending)
}

// GetPendingDuplicate retrieves a pending duplicate by ID.
func (s *SQLiteStorage) GetPendingDuplicate(ctx context.Context, id string) (*model.PendingDuplicate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getPendingDuplicate(ctx, s.db, id)
}

// ListPendingDuplicates returns open pending duplicates. An empty scope
// returns every scope's records.
func (s *SQLiteStorage) ListPendingDuplicates(ctx context.Context, scope string) ([]model.PendingDuplicate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listPendingDuplicates(ctx, s.db, scope)
}

// DeletePendingDuplicate removes a pending duplicate once resolved.
func (s *SQLiteStorage) DeletePendingDuplicate(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return deletePendingDuplicate(ctx, s.db, id)
}

// HasOpenPendingForTransaction reports whether the transaction is already
// linked to an unresolved pending duplicate.
func (s *SQLiteStorage) HasOpenPendingForTransaction(ctx context.Context, transactionID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return false, err
	}
	return hasOpenPendingForTransaction(ctx, s.db, transactionID)
}

func createPendingDuplicate(ctx context.Context, q dbtx, pending *model.PendingDuplicate) error {
	if err := validatePendingDuplicate(pending); err != nil {
		return err
	}

	query := `
		INSERT INTO pending_duplicates (
			id, scope, transaction1_id, transaction2_id,
			source_app1, source_app2, amount, detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := q.ExecContext(ctx, query,
		pending.ID, pending.Scope, pending.Transaction1ID, pending.Transaction2ID,
		pending.SourceApp1, pending.SourceApp2, pending.Amount, pending.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pending duplicate: %w", err)
	}

	slog.Info("created pending duplicate",
		"id", pending.ID,
		"scope", pending.Scope,
		"amount", pending.Amount,
		"sources", pending.SourceApp1+"/"+pending.SourceApp2)
	return nil
}

func getPendingDuplicate(ctx context.Context, q dbtx, id string) (*model.PendingDuplicate, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_duplicates WHERE id = ?`

	pending, err := scanPendingDuplicate(q.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPendingDuplicateNotFound
	}
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func listPendingDuplicates(ctx context.Context, q dbtx, scope string) ([]model.PendingDuplicate, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_duplicates`
	args := []any{}
	if scope != "" {
		query += ` WHERE scope = ?`
		args = append(args, scope)
	}
	query += ` ORDER BY detected_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending duplicates: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var pendings []model.PendingDuplicate
	for rows.Next() {
		pending, err := scanPendingDuplicate(rows.Scan)
		if err != nil {
			return nil, err
		}
		pendings = append(pendings, *pending)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending duplicates: %w", err)
	}

	return pendings, nil
}

func deletePendingDuplicate(ctx context.Context, q dbtx, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM pending_duplicates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending duplicate: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPendingDuplicateNotFound
	}

	slog.Info("deleted pending duplicate", "id", id)
	return nil
}

func hasOpenPendingForTransaction(ctx context.Context, q dbtx, transactionID string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM pending_duplicates
		WHERE transaction1_id = ? OR transaction2_id = ?`

	var count int
	if err := q.QueryRowContext(ctx, query, transactionID, transactionID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query open pending duplicates: %w", err)
	}
	return count > 0, nil
}

// scanPendingDuplicate reads one pending_duplicates row via the given scan function.
func scanPendingDuplicate(scan func(...any) error) (*model.PendingDuplicate, error) {
	var pending model.PendingDuplicate
	var detectedAt sql.NullTime

	if err := scan(
		&pending.ID, &pending.Scope, &pending.Transaction1ID, &pending.Transaction2ID,
		&pending.SourceApp1, &pending.SourceApp2, &pending.Amount, &detectedAt,
	); err != nil {
		return nil, err
	}

	pending.DetectedAt = scanTime(detectedAt)
	return &pending, nil
}
