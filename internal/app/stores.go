package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antoniostano/ironhand/internal/character"
	"github.com/antoniostano/ironhand/internal/session"
	"github.com/antoniostano/ironhand/internal/storage"
)

type stores struct {
	backend    storage.Backend
	sessions   session.Store
	characters character.Store
	pool       *pgxpool.Pool
	db         *sql.DB
}

// openStores builds the session and character stores on one shared backend.
func openStores(ctx context.Context, databaseURL string) (*stores, error) {
	backend, dsn, err := storage.ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	switch backend {
	case storage.BackendMemory:
		return &stores{
			backend:    backend,
			sessions:   session.NewInMemoryStore(),
			characters: character.NewInMemoryStore(),
		}, nil

	case storage.BackendPostgres:
		pool, err := storage.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		chars, err := character.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		sessions, err := session.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{backend: backend, sessions: sessions, characters: chars, pool: pool}, nil

	case storage.BackendSQLite:
		db, err := storage.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		chars, err := character.NewSQLiteStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		sessions, err := session.NewSQLiteStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &stores{backend: backend, sessions: sessions, characters: chars, db: db}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", backend)
	}
}

func (s *stores) ping(ctx context.Context) error {
	switch {
	case s.pool != nil:
		return s.pool.Ping(ctx)
	case s.db != nil:
		return s.db.PingContext(ctx)
	default:
		return nil
	}
}

func (s *stores) close() error {
	var errs []error
	if err := s.sessions.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.characters.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
