package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

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
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL COLLATE NOCASE UNIQUE,
					description TEXT NOT NULL DEFAULT '',
					type TEXT NOT NULL DEFAULT 'expense',
					parent_id INTEGER REFERENCES categories(id),
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					pattern TEXT NOT NULL,
					match_type TEXT NOT NULL,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					enabled INTEGER NOT NULL DEFAULT 1,
					source TEXT NOT NULL DEFAULT 'user',
					usage_count INTEGER NOT NULL DEFAULT 0,
					correct_count INTEGER NOT NULL DEFAULT 0,
					incorrect_count INTEGER NOT NULL DEFAULT 0,
					accuracy_rate REAL NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(pattern, category_id)
				)`,
				`CREATE INDEX idx_rules_enabled ON rules(enabled)`,

				`CREATE TABLE IF NOT EXISTS merchant_mappings (
					merchant TEXT PRIMARY KEY COLLATE NOCASE,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					usage_count INTEGER NOT NULL DEFAULT 0,
					accuracy_rate REAL NOT NULL DEFAULT 0,
					last_used DATETIME DEFAULT CURRENT_TIMESTAMP
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
		Description: "External taxonomy mappings with review status",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS external_mappings (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					external_category TEXT NOT NULL,
					source TEXT NOT NULL,
					user_category_id INTEGER REFERENCES categories(id),
					status TEXT NOT NULL DEFAULT 'pending',
					confidence INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(external_category, source)
				)`,
				`CREATE INDEX idx_external_mappings_status ON external_mappings(status)`,
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
		Version:     3,
		Description: "Classification audit trail and feedback queue",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS classifications (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					item_id TEXT NOT NULL,
					item_type TEXT NOT NULL,
					category_id INTEGER REFERENCES categories(id),
					method TEXT NOT NULL,
					confidence INTEGER NOT NULL DEFAULT 0,
					reasoning TEXT NOT NULL DEFAULT '',
					rule_id INTEGER REFERENCES rules(id),
					classified_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_classifications_item ON classifications(item_id, item_type)`,

				`CREATE TABLE IF NOT EXISTS feedback (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					item_id TEXT NOT NULL,
					item_type TEXT NOT NULL,
					merchant TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					suggested_category TEXT NOT NULL DEFAULT '',
					actual_category TEXT NOT NULL,
					method TEXT NOT NULL DEFAULT '',
					confidence INTEGER NOT NULL DEFAULT 0,
					processed INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_feedback_processed ON feedback(processed)`,
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
		Version:     4,
		Description: "Seed default categories",
		Up: func(tx *sql.Tx) error {
			defaults := []struct {
				name        string
				description string
				catType     string
			}{
				{"Groceries", "Supermarkets and food stores", "expense"},
				{"Food & Dining", "Restaurants, cafes, and coffee shops", "expense"},
				{"Transportation", "Fuel, transit, parking, and rideshare", "expense"},
				{"Shopping", "General merchandise and online retail", "expense"},
				{"Entertainment", "Streaming, movies, games, and events", "expense"},
				{"Bills & Utilities", "Recurring household bills", "expense"},
				{"Health & Fitness", "Pharmacies, medical care, and gyms", "expense"},
				{"Travel", "Flights, hotels, and vacation spending", "expense"},
				{"Home", "Home improvement and furnishings", "expense"},
				{"Income", "Salary and other deposits", "income"},
				{"Uncategorized", "Records the classifier could not place", "system"},
			}

			for _, cat := range defaults {
				_, err := tx.Exec(`
					INSERT INTO categories (name, description, type, is_active)
					VALUES (?, ?, ?, 1)
					ON CONFLICT(name) DO NOTHING
				`, cat.name, cat.description, cat.catType)
				if err != nil {
					return fmt.Errorf("failed to seed category %q: %w", cat.name, err)
				}
			}
			return nil
		},
	},
}

// SchemaVersion returns the highest applied migration version, or 0 for a
// fresh database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Create migrations table if it doesn't exist
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			migration.Version, migration.Description,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
