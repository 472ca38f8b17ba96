package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sessions in PostgreSQL. The pool is owned by the
// caller.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if err := initPostgresSchema(ctx, pool); err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS game_sessions (
			id TEXT PRIMARY KEY,
			character_id TEXT NOT NULL,
			owner_id TEXT NOT NULL DEFAULT '',
			current_location TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS session_log_entries (
			session_id TEXT NOT NULL REFERENCES game_sessions(id),
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, sess Session) (Session, error) {
	sess = prepareSession(sess)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO game_sessions (id, character_id, owner_id, current_location, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			sess.ID, sess.CharacterID, sess.OwnerID, sess.State.CurrentLocation, sess.CreatedAt, sess.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		for _, e := range sess.Log {
			if err := insertPostgresEntry(ctx, tx, sess.ID, e); err != nil {
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

func insertPostgresEntry(ctx context.Context, tx pgx.Tx, sessionID string, e LogEntry) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO session_log_entries (session_id, seq, kind, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		sessionID, e.Seq, string(e.Kind), e.Content, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, character_id, owner_id, current_location, created_at, updated_at
		 FROM game_sessions WHERE id=$1`, id,
	).Scan(&sess.ID, &sess.CharacterID, &sess.OwnerID, &sess.State.CurrentLocation, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("query session: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT seq, kind, content, created_at
		 FROM session_log_entries WHERE session_id=$1 ORDER BY seq`, id,
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
		)
		if err := rows.Scan(&e.Seq, &kind, &e.Content, &e.Timestamp); err != nil {
			return Session{}, fmt.Errorf("scan log entry: %w", err)
		}
		e.Kind = EntryKind(kind)
		sess.Log = append(sess.Log, e)
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("iterate log entries: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) AppendEntry(ctx context.Context, id string, entry LogEntry) (LogEntry, error) {
	if err := validateEntry(entry); err != nil {
		return LogEntry{}, err
	}
	var stored LogEntry
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var exists int
		err := tx.QueryRow(ctx, `SELECT 1 FROM game_sessions WHERE id=$1 FOR UPDATE`, id).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}

		var last int
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(seq), 0) FROM session_log_entries WHERE session_id=$1`, id,
		).Scan(&last); err != nil {
			return fmt.Errorf("next seq: %w", err)
		}

		stored = prepareEntry(entry, last+1)
		if err := insertPostgresEntry(ctx, tx, id, stored); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE game_sessions SET updated_at=$2 WHERE id=$1`, id, time.Now().UTC()); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		return nil
	})
	if err != nil {
		return LogEntry{}, err
	}
	return stored, nil
}

func (s *PostgresStore) UpdateState(ctx context.Context, id string, state GameState) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE game_sessions SET current_location=$2, updated_at=$3 WHERE id=$1`,
		id, state.CurrentLocation, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error { return nil }
