package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection holding the journal.
type DB struct {
	*sql.DB
}

// Open opens or creates the journal at path and migrates it.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set wal mode: %w", err)
	}

	db := &DB{DB: conn}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		conn.Close()
		return nil, err
	}
	slog.Debug("Journal ready", "path", path, "version", version, "dirty", dirty)

	return db, nil
}

// MutationRepository stores mutations under one run ID per process.
type MutationRepository struct {
	db    *DB
	runID string
}

func NewMutationRepository(db *DB) *MutationRepository {
	return &MutationRepository{
		db:    db,
		runID: uuid.NewString(),
	}
}

func (r *MutationRepository) RunID() string {
	return r.runID
}

func (r *MutationRepository) Record(ctx context.Context, m Mutation) error {
	if m.RunID == "" {
		m.RunID = r.runID
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mutations (run_id, command, method, uri, before_xml, after_xml, test_mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.RunID, m.Command, m.Method, m.URI, m.Before, m.After, m.TestMode, m.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record mutation: %w", err)
	}

	return nil
}

// List returns the mutations of runID in the order they were recorded.
func (r *MutationRepository) List(ctx context.Context, runID string) ([]Mutation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, command, method, uri, before_xml, after_xml, test_mode, created_at
		FROM mutations
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutations: %w", err)
	}
	defer rows.Close()

	var mutations []Mutation
	for rows.Next() {
		var (
			m         Mutation
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.RunID, &m.Command, &m.Method, &m.URI,
			&m.Before, &m.After, &m.TestMode, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan mutation: %w", err)
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse mutation time: %w", err)
		}
		mutations = append(mutations, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mutations: %w", err)
	}

	return mutations, nil
}

func (r *MutationRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mutations").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count mutations: %w", err)
	}
	return count, nil
}
