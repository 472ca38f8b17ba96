package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore persists sessions in an embedded SQLite database. The handle
// is owned by the caller. Timestamps are stored as unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS game_sessions (
			id TEXT PRIMARY KEY,
			character_id TEXT NOT NULL,
			owner_id TEXT NOT NULL DEFAULT '',
			current_location TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_log_entries (
			session_id TEXT NOT NULL REFERENCES game_sessions(id),
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, sess Session) (Session, error) {
	sess = prepareSession(sess)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO game_sessions (id, character_id, owner_id, current_location, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sess.ID, sess.CharacterID, sess.OwnerID, sess.State.CurrentLocation,
			sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		for _, e := range sess.Log {
			if err := insertSQLiteEntry(ctx, tx, sess.ID, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func insertSQLiteEntry(ctx context.Context, tx *sql.Tx, sessionID string, e LogEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO session_log_entries (session_id, seq, kind, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, e.Seq, string(e.Kind), e.Content, e.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Session, error) {
	var (
		sess               Session
		created, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, character_id, owner_id, current_location, created_at, updated_at
		 FROM game_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.CharacterID, &sess.OwnerID, &sess.State.CurrentLocation, &created, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("query session: %w", err)
	}
	sess.CreatedAt = time.UnixMilli(created).UTC()
	sess.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, kind, content, created_at
		 FROM session_log_entries WHERE session_id = ? ORDER BY seq`, id,
	)
	if err != nil {
		return Session{}, fmt.Errorf("query log entries: %w", err)
	}
	defer rows.Close()

	sess.Log = []LogEntry{}
	for rows.Next() {
		var (
			e    LogEntry
			kind string
			ts   int64
		)
		if err := rows.Scan(&e.Seq, &kind, &e.Content, &ts); err != nil {
			return Session{}, fmt.Errorf("scan log entry: %w", err)
		}
		e.Kind = EntryKind(kind)
		e.Timestamp = time.UnixMilli(ts).UTC()
		sess.Log = append(sess.Log, e)
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("iterate log entries: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) AppendEntry(ctx context.Context, id string, entry LogEntry) (LogEntry, error) {
	if err := validateEntry(entry); err != nil {
		return LogEntry{}, err
	}
	var stored LogEntry
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var last sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT (SELECT MAX(seq) FROM session_log_entries WHERE session_id = ?)
			 FROM game_sessions WHERE id = ?`, id, id,
		).Scan(&last)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("next seq: %w", err)
		}

		stored = prepareEntry(entry, int(last.Int64)+1)
		if err := insertSQLiteEntry(ctx, tx, id, stored); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE game_sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC().UnixMilli(), id,
		); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		return nil
	})
	if err != nil {
		return LogEntry{}, err
	}
	return stored, nil
}

func (s *SQLiteStore) UpdateState(ctx context.Context, id string, state GameState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE game_sessions SET current_location = ?, updated_at = ? WHERE id = ?`,
		state.CurrentLocation, time.Now().UTC().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return nil }
