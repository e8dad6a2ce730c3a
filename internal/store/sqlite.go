// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides plan persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			vibe TEXT,
			total_duration INTEGER NOT NULL DEFAULT 0,
			total_distance REAL NOT NULL DEFAULT 0,
			stops TEXT NOT NULL,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_plans_user_id
			ON plans(user_id);

		CREATE INDEX IF NOT EXISTS idx_plans_user_created
			ON plans(user_id, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

// runMigrations applies schema migrations for databases created before
// a column existed. These are idempotent - safe to run multiple times.
func (s *SQLiteStore) runMigrations() error {
	// SQLite doesn't support ADD COLUMN IF NOT EXISTS, so we check first
	migrations := []struct {
		check  string // Query to check if migration is needed
		apply  string // Query to apply the migration
		column string // Column name for logging
	}{
		{
			check:  `SELECT 1 FROM pragma_table_info('plans') WHERE name = 'vibe'`,
			apply:  `ALTER TABLE plans ADD COLUMN vibe TEXT`,
			column: "vibe",
		},
		{
			check:  `SELECT 1 FROM pragma_table_info('plans') WHERE name = 'total_distance'`,
			apply:  `ALTER TABLE plans ADD COLUMN total_distance REAL NOT NULL DEFAULT 0`,
			column: "total_distance",
		},
		{
			check:  `SELECT 1 FROM pragma_table_info('plans') WHERE name = 'metadata'`,
			apply:  `ALTER TABLE plans ADD COLUMN metadata TEXT`,
			column: "metadata",
		},
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRow(m.check).Scan(&exists)
		if err == nil {
			// Column already exists, skip
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("checking column %s: %w", m.column, err)
		}

		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding column %s: %w", m.column, err)
		}
		s.logger.Info("applied schema migration", "column", m.column)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// CreatePlan creates a new plan in the database.
func (s *SQLiteStore) CreatePlan(ctx context.Context, plan *Plan) error {
	stops, err := json.Marshal(plan.Stops)
	if err != nil {
		return fmt.Errorf("marshaling stops: %w", err)
	}

	metadata, err := marshalMetadata(plan.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO plans (id, user_id, name, description, vibe, total_duration, total_distance, stops, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		plan.ID,
		plan.UserID,
		plan.Name,
		plan.Description,
		plan.Vibe,
		plan.TotalDuration,
		plan.TotalDistance,
		string(stops),
		metadata,
		plan.CreatedAt.UTC().Format(time.RFC3339),
		plan.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting plan: %w", err)
	}

	s.logger.Debug("created plan", "id", plan.ID, "user_id", plan.UserID)
	return nil
}

// marshalMetadata encodes metadata as JSON text, or NULL when unset
func marshalMetadata(metadata map[string]any) (*string, error) {
	if metadata == nil {
		return nil, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}
	text := string(b)
	return &text, nil
}

// GetPlan retrieves a plan by ID, scoped to its owner.
// Returns ErrNotFound if the plan doesn't exist or belongs to another user.
func (s *SQLiteStore) GetPlan(ctx context.Context, userID, planID string) (*Plan, error) {
	query := `
		SELECT id, user_id, name, description, vibe, total_duration, total_distance, stops, metadata, created_at, updated_at
		FROM plans
		WHERE id = ? AND user_id = ?
	`

	var plan Plan
	var description, vibe, metadata sql.NullString
	var stops, createdAtStr, updatedAtStr string

	err := s.db.QueryRowContext(ctx, query, planID, userID).Scan(
		&plan.ID,
		&plan.UserID,
		&plan.Name,
		&description,
		&vibe,
		&plan.TotalDuration,
		&plan.TotalDistance,
		&stops,
		&metadata,
		&createdAtStr,
		&updatedAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}

	if err := unmarshalPlanColumns(&plan, description, vibe, stops, metadata); err != nil {
		return nil, err
	}

	plan.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	plan.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &plan, nil
}

// ListPlans retrieves all plans owned by the user, newest first.
func (s *SQLiteStore) ListPlans(ctx context.Context, userID string) ([]*Plan, error) {
	query := `
		SELECT id, user_id, name, description, vibe, total_duration, total_distance, stops, metadata, created_at, updated_at
		FROM plans
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		var plan Plan
		var description, vibe, metadata sql.NullString
		var stops, createdAtStr, updatedAtStr string

		if err := rows.Scan(
			&plan.ID,
			&plan.UserID,
			&plan.Name,
			&description,
			&vibe,
			&plan.TotalDuration,
			&plan.TotalDistance,
			&stops,
			&metadata,
			&createdAtStr,
			&updatedAtStr,
		); err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}

		if err := unmarshalPlanColumns(&plan, description, vibe, stops, metadata); err != nil {
			return nil, err
		}

		plan.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		plan.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}

		plans = append(plans, &plan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan rows: %w", err)
	}

	return plans, nil
}

// unmarshalPlanColumns decodes the nullable and JSON-typed columns into the plan
func unmarshalPlanColumns(plan *Plan, description, vibe sql.NullString, stops string, metadata sql.NullString) error {
	if description.Valid {
		plan.Description = &description.String
	}
	if vibe.Valid {
		plan.Vibe = &vibe.String
	}

	if err := json.Unmarshal([]byte(stops), &plan.Stops); err != nil {
		return fmt.Errorf("parsing stops: %w", err)
	}

	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &plan.Metadata); err != nil {
			return fmt.Errorf("parsing metadata: %w", err)
		}
	}

	return nil
}

// UpdatePlan overwrites an existing plan's content fields.
// Returns ErrNotFound if the plan doesn't exist or belongs to another user.
func (s *SQLiteStore) UpdatePlan(ctx context.Context, plan *Plan) error {
	stops, err := json.Marshal(plan.Stops)
	if err != nil {
		return fmt.Errorf("marshaling stops: %w", err)
	}

	metadata, err := marshalMetadata(plan.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE plans
		SET name = ?, description = ?, vibe = ?, total_duration = ?, total_distance = ?, stops = ?, metadata = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		plan.Name,
		plan.Description,
		plan.Vibe,
		plan.TotalDuration,
		plan.TotalDistance,
		string(stops),
		metadata,
		plan.UpdatedAt.UTC().Format(time.RFC3339),
		plan.ID,
		plan.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated plan", "id", plan.ID)
	return nil
}

// DeletePlan removes a plan, scoped to its owner.
// Returns ErrNotFound if the plan doesn't exist or belongs to another user.
func (s *SQLiteStore) DeletePlan(ctx context.Context, userID, planID string) error {
	query := `
		DELETE FROM plans
		WHERE id = ? AND user_id = ?
	`

	result, err := s.db.ExecContext(ctx, query, planID, userID)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted plan", "id", planID)
	return nil
}
