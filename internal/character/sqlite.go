package character

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore persists sheets in an embedded SQLite database. The handle is
// owned by the caller.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	stmt := `CREATE TABLE IF NOT EXISTS characters (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		career TEXT NOT NULL,
		characteristics TEXT NOT NULL,
		skills TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.insert(ctx, DefaultCharacter(), true); err != nil {
		return nil, fmt.Errorf("seed default character: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (Sheet, error) {
	var (
		sheet           Sheet
		characteristics string
		skills          string
		createdAt       int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, career, characteristics, skills, created_at
		 FROM characters WHERE id = ?`, id,
	).Scan(&sheet.ID, &sheet.OwnerID, &sheet.Name, &sheet.Career, &characteristics, &skills, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Sheet{}, ErrNotFound
	}
	if err != nil {
		return Sheet{}, fmt.Errorf("query character: %w", err)
	}
	sheet.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := unmarshalParts(&sheet, []byte(characteristics), []byte(skills)); err != nil {
		return Sheet{}, err
	}
	return sheet, nil
}

func (s *SQLiteStore) Create(ctx context.Context, sheet Sheet) error {
	return s.insert(ctx, sheet, false)
}

func (s *SQLiteStore) insert(ctx context.Context, sheet Sheet, ignoreConflict bool) error {
	chars, skills, err := marshalParts(sheet)
	if err != nil {
		return err
	}
	verb := "INSERT"
	if ignoreConflict {
		verb = "INSERT OR IGNORE"
	}
	_, err = s.db.ExecContext(ctx,
		verb+` INTO characters (id, owner_id, name, career, characteristics, skills, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sheet.ID, sheet.OwnerID, sheet.Name, sheet.Career, chars, skills, sheet.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save character: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return nil }
