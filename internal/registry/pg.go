package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists the identity sets in a single identities table.
// Save rewrites the whole table in one transaction; the sets are tiny and
// the simplicity keeps the on-disk state an exact snapshot of memory.
type PostgresStore struct {
	db *sql.DB
}

func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS identities (
			email      TEXT PRIMARY KEY,
			state      TEXT NOT NULL CHECK (state IN ('approved', 'pending')),
			position   INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure identities schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (approved, pending []string, err error) {
	const query = `SELECT email, state FROM identities ORDER BY state, position`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("load identities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var email, state string
		if err := rows.Scan(&email, &state); err != nil {
			return nil, nil, fmt.Errorf("scan identity: %w", err)
		}
		if state == "approved" {
			approved = append(approved, email)
		} else {
			pending = append(pending, email)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load identities: %w", err)
	}
	return approved, pending, nil
}

func (s *PostgresStore) Save(ctx context.Context, approved, pending []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM identities`); err != nil {
		return fmt.Errorf("clear identities: %w", err)
	}
	const insert = `INSERT INTO identities (email, state, position) VALUES ($1, $2, $3)`
	for i, email := range approved {
		if _, err := tx.ExecContext(ctx, insert, email, "approved", i); err != nil {
			return fmt.Errorf("insert approved identity: %w", err)
		}
	}
	for i, email := range pending {
		if _, err := tx.ExecContext(ctx, insert, email, "pending", i); err != nil {
			return fmt.Errorf("insert pending identity: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
