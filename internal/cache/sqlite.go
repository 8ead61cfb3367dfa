package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kode4food/weave/pkg/api"
)

// SQLiteStore keeps generations in a local SQLite database
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and runs
// migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS llm_generations (
		project_id INTEGER NOT NULL,
		hash TEXT NOT NULL,
		generation TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (project_id, hash)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) GetGeneration(
	ctx context.Context, project api.Project, key string,
) (*api.Generation, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT generation FROM llm_generations
		 WHERE project_id = ? AND hash = ?`, project.ID, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	gen, err := decode([]byte(data))
	if err != nil {
		return nil, false, err
	}
	return gen, true, nil
}

func (s *SQLiteStore) PutGeneration(
	ctx context.Context, project api.Project, key string, gen *api.Generation,
) error {
	data, err := encode(gen)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO llm_generations (project_id, hash, generation)
		 VALUES (?, ?, ?)
		 ON CONFLICT (project_id, hash) DO UPDATE SET
		 generation = excluded.generation,
		 created_at = CURRENT_TIMESTAMP`,
		project.ID, key, string(data),
	)
	return err
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
