package character

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("character not found")

// Store loads and saves capability sheets.
type Store interface {
	FindByID(ctx context.Context, id string) (Sheet, error)
	Create(ctx context.Context, sheet Sheet) error
	Close() error
}
