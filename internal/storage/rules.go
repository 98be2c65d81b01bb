package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ggoomipapa/fammoney-core/internal/model"
)

// ErrResolutionRuleNotFound is returned when no standing rule exists for a pair.
var ErrResolutionRuleNotFound = errors.New("resolution rule not found")

// GetResolutionRule retrieves the standing rule for a canonical source pair key.
func (s *SQLiteStorage) GetResolutionRule(ctx context.Context, pairKey string) (*model.ResolutionRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(pairKey, "pairKey"); err != nil {
		return nil, err
	}
	return getResolutionRule(ctx, s.db, pairKey)
}

// SaveResolutionRule upserts a standing rule, overwriting any prior rule for
// the same pair.
func (s *SQLiteStorage) SaveResolutionRule(ctx context.Context, rule *model.ResolutionRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return saveResolutionRule(ctx, s.db, rule)
}

// ListResolutionRules returns all standing rules.
func (s *SQLiteStorage) ListResolutionRules(ctx context.Context) ([]model.ResolutionRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listResolutionRules(ctx, s.db)
}

// DeleteResolutionRule removes a standing rule.
func (s *SQLiteStorage) DeleteResolutionRule(ctx context.Context, pairKey string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(pairKey, "pairKey"); err != nil {
		return err
	}
	return deleteResolutionRule(ctx, s.db, pairKey)
}

func getResolutionRule(ctx context.Context, q dbtx, pairKey string) (*model.ResolutionRule, error) {
	query := `SELECT pair_key, resolution, created_at FROM resolution_rules WHERE pair_key = ?`

	var rule model.ResolutionRule
	var resolution string
	var createdAt sql.NullTime

	err := q.QueryRowContext(ctx, query, pairKey).Scan(&rule.PairKey, &resolution, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResolutionRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query resolution rule: %w", err)
	}

	rule.Resolution = model.DuplicateResolution(resolution)
	rule.CreatedAt = scanTime(createdAt)
	return &rule, nil
}

func saveResolutionRule(ctx context.Context, q dbtx, rule *model.ResolutionRule) error {
	if err := validateResolutionRule(rule); err != nil {
		return err
	}

	query := `
		INSERT INTO resolution_rules (pair_key, resolution)
		VALUES (?, ?)
		ON CONFLICT(pair_key) DO UPDATE SET
			resolution = excluded.resolution,
			created_at = CURRENT_TIMESTAMP`

	if _, err := q.ExecContext(ctx, query, rule.PairKey, string(rule.Resolution)); err != nil {
		return fmt.Errorf("failed to save resolution rule: %w", err)
	}

	slog.Info("saved resolution rule", "pair_key", rule.PairKey, "resolution", rule.Resolution)
	return nil
}

func listResolutionRules(ctx context.Context, q dbtx) ([]model.ResolutionRule, error) {
	query := `SELECT pair_key, resolution, created_at FROM resolution_rules ORDER BY pair_key ASC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolution rules: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var rules []model.ResolutionRule
	for rows.Next() {
		var rule model.ResolutionRule
		var resolution string
		var createdAt sql.NullTime

		if err := rows.Scan(&rule.PairKey, &resolution, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan resolution rule: %w", err)
		}

		rule.Resolution = model.DuplicateResolution(resolution)
		rule.CreatedAt = scanTime(createdAt)
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolution rules: %w", err)
	}

	return rules, nil
}

func deleteResolutionRule(ctx context.Context, q dbtx, pairKey string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM resolution_rules WHERE pair_key = ?`, pairKey)
	if err != nil {
		return fmt.Errorf("failed to delete resolution rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrResolutionRuleNotFound
	}

	slog.Info("deleted resolution rule", "pair_key", pairKey)
	return nil
}
