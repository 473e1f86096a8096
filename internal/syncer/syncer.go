package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/maomauro/web-beatty-sub001/internal/cache"
	"github.com/maomauro/web-beatty-sub001/internal/domain"
	"github.com/maomauro/web-beatty-sub001/internal/remote"
	"github.com/maomauro/web-beatty-sub001/internal/store"
	"github.com/sirupsen/logrus"
)

// RemoteCart is the slice of the cart API the synchronizer needs.
type RemoteCart interface {
	GetCart(ctx context.Context) (*domain.RemoteCartSnapshot, error)
	CreateCart(ctx context.Context, items []domain.CartLine) (*domain.RemoteCartSnapshot, error)
	UpdateCart(ctx context.Context, items []domain.CartLine) (*domain.RemoteCartSnapshot, error)
}

// Syncer reconciles the local cart cache with the authoritative server
// cart. Sync is best-effort everywhere except logout, whose failure is
// surfaced to the caller (and still must not stop the logout).
type Syncer struct {
	cache  *cache.CartCache
	store  store.Store
	client RemoteCart
	token  remote.TokenSource
	log    logrus.FieldLogger
}

func New(c *cache.CartCache, st store.Store, client RemoteCart, token remote.TokenSource, log logrus.FieldLogger) *Syncer {
	return &Syncer{
		cache:  c,
		store:  st,
		client: client,
		token:  token,
		log:    log,
	}
}

// PullOnLogin adopts the server cart after authentication. A non-empty
// remote cart replaces the local one wholesale (no merge); an absent or
// empty remote cart leaves the local cart untouched so it can be pushed
// later.
func (s *Syncer) PullOnLogin(ctx context.Context) error {
	snap, err := s.client.GetCart(ctx)
	if errors.Is(err, remote.ErrNoRemoteCart) {
		s.log.Debug("no remote cart to adopt, keeping local cart")
		return nil
	}
	if err != nil {
		return fmt.Errorf("pull remote cart: %w", err)
	}

	if len(snap.Items) == 0 {
		return nil
	}

	s.cache.Replace(ctx, snap.Items)
	s.log.WithFields(logrus.Fields{
		"sale_id": snap.SaleID,
		"lines":   len(snap.Items),
	}).Info("adopted remote cart")
	return nil
}

// PushCurrent writes the full line set to the server, creating the remote
// cart if none exists yet. The existence check is mandatory: updating a
// nonexistent cart is its own failure and must not be masked.
func (s *Syncer) PushCurrent(ctx context.Context, lines []domain.CartLine) error {
	if s.token() == "" {
		s.log.Debug("no session, skipping cart push")
		return nil
	}

	_, err := s.client.GetCart(ctx)
	switch {
	case errors.Is(err, remote.ErrNoRemoteCart):
		if _, err := s.client.CreateCart(ctx, lines); err != nil {
			return fmt.Errorf("create remote cart: %w", err)
		}
	case err != nil:
		return fmt.Errorf("check remote cart: %w", err)
	default:
		if _, err := s.client.UpdateCart(ctx, lines); err != nil {
			return fmt.Errorf("update remote cart: %w", err)
		}
	}
	return nil
}

// PushOnLogout runs before credentials are cleared. It pushes the most
// complete known state: when the durable copy holds more lines than the
// in-memory cart (rapid mutate-then-navigate), the durable copy wins.
// This is a line-count heuristic, not a merge; if both copies were edited
// independently the shorter one is lost.
func (s *Syncer) PushOnLogout(ctx context.Context) error {
	lines := s.cache.Lines()

	stored, err := s.store.Load(ctx)
	if err == nil && len(stored) > len(lines) {
		s.log.WithFields(logrus.Fields{
			"memory_lines":  len(lines),
			"durable_lines": len(stored),
		}).Info("durable cart copy is more complete, pushing it instead")
		lines = stored
	}

	if len(lines) == 0 {
		return nil
	}
	if err := s.PushCurrent(ctx, lines); err != nil {
		return fmt.Errorf("push cart on logout: %w", err)
	}
	return nil
}
