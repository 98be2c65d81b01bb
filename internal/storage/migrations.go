package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS bank_patterns (
					id TEXT PRIMARY KEY,
					display_name TEXT NOT NULL,
					amount_pattern TEXT NOT NULL,
					source_apps TEXT NOT NULL,
					income_keywords TEXT NOT NULL,
					expense_keywords TEXT NOT NULL,
					merchant_patterns TEXT NOT NULL,
					seed_order INTEGER NOT NULL DEFAULT 0,
					enabled BOOLEAN NOT NULL DEFAULT 1,
					custom BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_bank_patterns_custom ON bank_patterns(custom, seed_order)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					scope TEXT NOT NULL,
					bank_name TEXT NOT NULL,
					description TEXT NOT NULL,
					merchant TEXT,
					source_app TEXT NOT NULL,
					tx_type TEXT NOT NULL,
					amount INTEGER NOT NULL,
					notification_time DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_scope_time ON transactions(scope, notification_time)`,
				`CREATE INDEX idx_transactions_scope_amount ON transactions(scope, amount)`,

				`CREATE TABLE IF NOT EXISTS pending_duplicates (
					id TEXT PRIMARY KEY,
					scope TEXT NOT NULL,
					transaction1_id TEXT NOT NULL,
					transaction2_id TEXT NOT NULL,
					source_app1 TEXT NOT NULL,
					source_app2 TEXT NOT NULL,
					amount INTEGER NOT NULL,
					detected_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (transaction1_id) REFERENCES transactions(id),
					FOREIGN KEY (transaction2_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX idx_pending_duplicates_scope ON pending_duplicates(scope)`,
				`CREATE INDEX idx_pending_duplicates_tx1 ON pending_duplicates(transaction1_id)`,
				`CREATE INDEX idx_pending_duplicates_tx2 ON pending_duplicates(transaction2_id)`,

				`CREATE TABLE IF NOT EXISTS resolution_rules (
					pair_key TEXT PRIMARY KEY,
					resolution TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Keep bank_patterns updated_at current",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TRIGGER update_bank_patterns_updated_at
				AFTER UPDATE ON bank_patterns
				FOR EACH ROW
				BEGIN
					UPDATE bank_patterns SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
				END
			`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the current schema version of the open database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
