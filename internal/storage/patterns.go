package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ggoomipapa/fammoney-core/internal/model"
)

// ErrPatternNotFound is returned when a bank pattern is not found.
var ErrPatternNotFound = errors.New("bank pattern not found")

const patternColumns = `id, display_name, amount_pattern, source_apps, income_keywords,
	expense_keywords, merchant_patterns, seed_order, enabled, custom, created_at, updated_at`

// ListPatterns returns all patterns: built-ins first in seed order, then
// custom patterns in creation order.
func (s *SQLiteStorage) ListPatterns(ctx context.Context) ([]model.BankPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listPatterns(ctx, s.db)
}

// GetPattern retrieves a pattern by ID.
func (s *SQLiteStorage) GetPattern(ctx context.Context, id string) (*model.BankPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getPattern(ctx, s.db, id)
}

// SavePattern upserts a pattern by ID. Content validation and built-in
// protection live in the registry; storage persists what it is given.
func (s *SQLiteStorage) SavePattern(ctx context.Context, pattern *model.BankPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return savePattern(ctx, s.db, pattern)
}

// DeletePattern removes a pattern by ID.
func (s *SQLiteStorage) DeletePattern(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return deletePattern(ctx, s.db, id)
}

// SetPatternEnabled toggles the enabled flag on any pattern.
func (s *SQLiteStorage) SetPatternEnabled(ctx context.Context, id string, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return setPatternEnabled(ctx, s.db, id, enabled)
}

// ResetPatterns deletes all custom patterns and re-enables every built-in,
// atomically: a concurrent reader sees either the old state or the fully
// reset one.
func (s *SQLiteStorage) ResetPatterns(ctx context.Context, builtins []model.BankPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := resetPatterns(ctx, tx, builtins); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pattern reset: %w", err)
	}

	slog.Info("reset patterns to defaults", "builtins", len(builtins))
	return nil
}

// SeedBuiltinPatterns inserts any missing built-in patterns. Existing rows are
// left untouched so enabled flags survive reseeding.
func (s *SQLiteStorage) SeedBuiltinPatterns(ctx context.Context, builtins []model.BankPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return seedBuiltinPatterns(ctx, s.db, builtins)
}

func listPatterns(ctx context.Context, q dbtx) ([]model.BankPattern, error) {
	query := `SELECT ` + patternColumns + `
		FROM bank_patterns
		ORDER BY custom ASC, seed_order ASC, created_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var patterns []model.BankPattern
	for rows.Next() {
		pattern, err := scanPattern(rows.Scan)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, *pattern)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}

	return patterns, nil
}

func getPattern(ctx context.Context, q dbtx, id string) (*model.BankPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM bank_patterns WHERE id = ?`

	pattern, err := scanPattern(q.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatternNotFound
	}
	if err != nil {
		return nil, err
	}
	return pattern, nil
}

func savePattern(ctx context.Context, q dbtx, pattern *model.BankPattern) error {
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}

	sourceApps, incomeKw, expenseKw, merchantPats, err := marshalPatternLists(pattern)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bank_patterns (
			id, display_name, amount_pattern, source_apps, income_keywords,
			expense_keywords, merchant_patterns, seed_order, enabled, custom
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			amount_pattern = excluded.amount_pattern,
			source_apps = excluded.source_apps,
			income_keywords = excluded.income_keywords,
			expense_keywords = excluded.expense_keywords,
			merchant_patterns = excluded.merchant_patterns,
			seed_order = excluded.seed_order,
			enabled = excluded.enabled,
			custom = excluded.custom`

	_, err = q.ExecContext(ctx, query,
		pattern.ID, pattern.DisplayName, pattern.AmountPattern, sourceApps,
		incomeKw, expenseKw, merchantPats, pattern.SeedOrder, pattern.Enabled, pattern.Custom,
	)
	if err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}

	slog.Info("saved bank pattern", "id", pattern.ID, "name", pattern.DisplayName, "custom", pattern.Custom)
	return nil
}

func deletePattern(ctx context.Context, q dbtx, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM bank_patterns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPatternNotFound
	}

	slog.Info("deleted bank pattern", "id", id)
	return nil
}

func setPatternEnabled(ctx context.Context, q dbtx, id string, enabled bool) error {
	result, err := q.ExecContext(ctx, `UPDATE bank_patterns SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPatternNotFound
	}

	slog.Info("toggled bank pattern", "id", id, "enabled", enabled)
	return nil
}

func resetPatterns(ctx context.Context, q dbtx, builtins []model.BankPattern) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM bank_patterns WHERE custom = 1`); err != nil {
		return fmt.Errorf("failed to delete custom patterns: %w", err)
	}
	if _, err := q.ExecContext(ctx, `UPDATE bank_patterns SET enabled = 1 WHERE custom = 0`); err != nil {
		return fmt.Errorf("failed to re-enable builtin patterns: %w", err)
	}
	// Restore any builtin row that was lost to manual tampering.
	return seedBuiltinPatterns(ctx, q, builtins)
}

func seedBuiltinPatterns(ctx context.Context, q dbtx, builtins []model.BankPattern) error {
	query := `
		INSERT OR IGNORE INTO bank_patterns (
			id, display_name, amount_pattern, source_apps, income_keywords,
			expense_keywords, merchant_patterns, seed_order, enabled, custom
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, 0)`

	for i := range builtins {
		b := &builtins[i]
		sourceApps, incomeKw, expenseKw, merchantPats, err := marshalPatternLists(b)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, query,
			b.ID, b.DisplayName, b.AmountPattern, sourceApps,
			incomeKw, expenseKw, merchantPats, b.SeedOrder,
		); err != nil {
			return fmt.Errorf("failed to seed pattern %q: %w", b.ID, err)
		}
	}
	return nil
}

// marshalPatternLists encodes the pattern's list fields as JSON for storage.
func marshalPatternLists(pattern *model.BankPattern) (sourceApps, incomeKw, expenseKw, merchantPats string, err error) {
	enc := func(list []string) (string, error) {
		if list == nil {
			list = []string{}
		}
		data, err := json.Marshal(list)
		if err != nil {
			return "", fmt.Errorf("failed to marshal pattern list: %w", err)
		}
		return string(data), nil
	}

	if sourceApps, err = enc(pattern.SourceApps); err != nil {
		return
	}
	if incomeKw, err = enc(pattern.IncomeKeywords); err != nil {
		return
	}
	if expenseKw, err = enc(pattern.ExpenseKeywords); err != nil {
		return
	}
	merchantPats, err = enc(pattern.MerchantPatterns)
	return
}

// scanPattern reads one bank_patterns row via the given scan function.
func scanPattern(scan func(...any) error) (*model.BankPattern, error) {
	var pattern model.BankPattern
	var sourceApps, incomeKw, expenseKw, merchantPats string
	var createdAt, updatedAt sql.NullTime

	if err := scan(
		&pattern.ID, &pattern.DisplayName, &pattern.AmountPattern, &sourceApps,
		&incomeKw, &expenseKw, &merchantPats, &pattern.SeedOrder,
		&pattern.Enabled, &pattern.Custom, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		dst *[]string
		src string
	}{
		{&pattern.SourceApps, sourceApps},
		{&pattern.IncomeKeywords, incomeKw},
		{&pattern.ExpenseKeywords, expenseKw},
		{&pattern.MerchantPatterns, merchantPats},
	} {
		if err := json.Unmarshal([]byte(pair.src), pair.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pattern list: %w", err)
		}
	}

	pattern.CreatedAt = scanTime(createdAt)
	pattern.UpdatedAt = scanTime(updatedAt)
	return &pattern, nil
}
