package store

import (
	"context"
	"errors"

	"github.com/maomauro/web-beatty-sub001/internal/domain"
)

// Store is the durable local copy of the cart: one key, whole cart per
// write. Writers must always save the complete line set, never a partial
// update, so readers can never observe an interleaved half-write.
type Store interface {
	Load(ctx context.Context) ([]domain.CartLine, error)
	Save(ctx context.Context, lines []domain.CartLine) error
	Delete(ctx context.Context) error
}

var ErrNotFound = errors.New("no cart in local storage")
