package character

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sheets in PostgreSQL. The pool is owned by the caller.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS characters (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			career TEXT NOT NULL,
			characteristics JSONB NOT NULL,
			skills JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}

	s := &PostgresStore{pool: pool}
	if err := s.insert(ctx, DefaultCharacter(), true); err != nil {
		return nil, fmt.Errorf("seed default character: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Sheet, error) {
	var (
		sheet           Sheet
		characteristics []byte
		skills          []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, career, characteristics, skills, created_at
		 FROM characters WHERE id=$1`, id,
	).Scan(&sheet.ID, &sheet.OwnerID, &sheet.Name, &sheet.Career, &characteristics, &skills, &sheet.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sheet{}, ErrNotFound
	}
	if err != nil {
		return Sheet{}, fmt.Errorf("query character: %w", err)
	}
	if err := unmarshalParts(&sheet, characteristics, skills); err != nil {
		return Sheet{}, err
	}
	return sheet, nil
}

func (s *PostgresStore) Create(ctx context.Context, sheet Sheet) error {
	return s.insert(ctx, sheet, false)
}

func (s *PostgresStore) insert(ctx context.Context, sheet Sheet, ignoreConflict bool) error {
	chars, skills, err := marshalParts(sheet)
	if err != nil {
		return err
	}
	q := `INSERT INTO characters (id, owner_id, name, career, characteristics, skills, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7)`
	if ignoreConflict {
		q += ` ON CONFLICT (id) DO NOTHING`
	}
	if _, err := s.pool.Exec(ctx, q, sheet.ID, sheet.OwnerID, sheet.Name, sheet.Career, chars, skills, sheet.CreatedAt); err != nil {
		return fmt.Errorf("save character: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return nil }
