package storage

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration. Statements may use the
// {{id}}, {{money}}, {{time}}, {{json}}, {{true}} and {{false}} placeholders.
type Migration struct {
	Description string
	Statements  []string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id {{id}},
				open_id VARCHAR(64) NOT NULL UNIQUE,
				name TEXT,
				email VARCHAR(320),
				login_method VARCHAR(64),
				role VARCHAR(16) NOT NULL DEFAULT 'user',
				has_completed_onboarding BOOLEAN NOT NULL DEFAULT {{false}},
				created_at {{time}} NOT NULL,
				updated_at {{time}} NOT NULL,
				last_signed_in {{time}} NOT NULL
			)`,

			`CREATE TABLE IF NOT EXISTS buckets (
				id {{id}},
				user_id BIGINT NOT NULL REFERENCES users(id),
				name VARCHAR(100) NOT NULL,
				balance {{money}} NOT NULL DEFAULT '0',
				allocated {{money}} NOT NULL DEFAULT '0',
				created_at {{time}} NOT NULL,
				updated_at {{time}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_buckets_user ON buckets(user_id)`,

			`CREATE TABLE IF NOT EXISTS transactions (
				id {{id}},
				user_id BIGINT NOT NULL REFERENCES users(id),
				bucket_id BIGINT NOT NULL REFERENCES buckets(id),
				amount {{money}} NOT NULL,
				type VARCHAR(16) NOT NULL,
				category VARCHAR(16) NOT NULL,
				description TEXT,
				occurred_at {{time}} NOT NULL,
				is_recurring BOOLEAN NOT NULL DEFAULT {{false}},
				recurring_frequency VARCHAR(32),
				created_at {{time}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, occurred_at)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_bucket ON transactions(bucket_id)`,

			`CREATE TABLE IF NOT EXISTS goals (
				id {{id}},
				user_id BIGINT NOT NULL REFERENCES users(id),
				bucket_id BIGINT NOT NULL REFERENCES buckets(id),
				name VARCHAR(200) NOT NULL,
				target_amount {{money}} NOT NULL,
				current_amount {{money}} NOT NULL DEFAULT '0',
				target_date {{time}},
				is_completed BOOLEAN NOT NULL DEFAULT {{false}},
				created_at {{time}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id)`,

			`CREATE TABLE IF NOT EXISTS habits (
				id {{id}},
				user_id BIGINT NOT NULL REFERENCES users(id),
				bucket_id BIGINT NOT NULL REFERENCES buckets(id),
				name VARCHAR(200) NOT NULL,
				price {{money}} NOT NULL,
				frequency VARCHAR(32) NOT NULL,
				type VARCHAR(16) NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT {{true}},
				created_at {{time}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id)`,

			`CREATE TABLE IF NOT EXISTS habit_completions (
				id {{id}},
				habit_id BIGINT NOT NULL REFERENCES habits(id),
				transaction_id BIGINT,
				completed_at {{time}} NOT NULL,
				created_at {{time}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_habit_completions_habit ON habit_completions(habit_id, completed_at)`,

			`CREATE TABLE IF NOT EXISTS journal_entries (
				id {{id}},
				user_id BIGINT NOT NULL REFERENCES users(id),
				content TEXT NOT NULL,
				financial_snapshot {{json}},
				created_at {{time}} NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_journal_entries_user ON journal_entries(user_id, created_at)`,
		},
	},
	{
		Version:     2,
		Description: "Add one-time purchase tracking",
		Statements: []string{
			`ALTER TABLE users ADD COLUMN has_purchased BOOLEAN NOT NULL DEFAULT {{false}}`,
			`ALTER TABLE users ADD COLUMN purchased_at {{time}}`,
			`ALTER TABLE users ADD COLUMN revenuecat_app_user_id VARCHAR(255)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_revenuecat ON users(revenuecat_app_user_id)`,
		},
	},
}

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL,
	applied_at {{time}} NOT NULL
)`

// SchemaVersion returns the highest applied migration version, or 0 for a
// fresh database.
func (s *SQLStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	if _, err := s.exec(ctx, s.dialect.schema(createVersionTable)); err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	if err := s.queryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		if err := s.applyMigration(ctx, migration); err != nil {
			return err
		}

		s.logger.Info("Applied migration",
			zap.Int("version", migration.Version),
			zap.String("description", migration.Description),
			zap.String("dialect", s.dialect.name))
	}

	// Verify we're at the expected schema version
	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

func (s *SQLStorage) applyMigration(ctx context.Context, migration Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := runStatements(ctx, tx, s.dialect, migration.Statements); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %d failed: %w", migration.Version, err)
	}

	_, err = tx.ExecContext(ctx,
		s.dialect.rebind(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`),
		migration.Version, nowUTC())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}
	return nil
}

func runStatements(ctx context.Context, tx *sql.Tx, d dialect, statements []string) error {
	for _, stmt := range statements {
		query := d.schema(stmt)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}
