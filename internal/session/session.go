package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Credentials holds the current bearer token. The session monitor owns
// the token lifecycle; this is just the shared slot it writes and the
// cart components read.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

func NewCredentials() *Credentials {
	return &Credentials{}
}

// Token returns the current bearer token, or "" when logged out.
func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Credentials) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Credentials) Clear() {
	c.SetToken("")
}

// Syncer is the slice of the cart synchronizer the bridge drives.
type Syncer interface {
	PullOnLogin(ctx context.Context) error
	PushOnLogout(ctx context.Context) error
}

// Bridge consumes the external session monitor's signals and turns them
// into cart synchronization. It implements the cache side of the
// contract only; deciding WHEN sessions expire stays with the monitor.
type Bridge struct {
	syncer Syncer
	creds  *Credentials
	log    logrus.FieldLogger
}

func NewBridge(s Syncer, creds *Credentials, log logrus.FieldLogger) *Bridge {
	return &Bridge{
		syncer: s,
		creds:  creds,
		log:    log,
	}
}

// OnLoginCompleted adopts the remote cart. Pull failures are tolerated:
// the local cart stays authoritative.
func (b *Bridge) OnLoginCompleted(ctx context.Context) {
	if err := b.syncer.PullOnLogin(ctx); err != nil {
		b.log.WithError(err).Warn("remote cart pull after login failed, keeping local cart")
	}
}

// OnLogoutRequested pushes the cart before credentials are dropped. The
// push error is returned so the logout flow can report it, but the
// credentials are cleared regardless: sync failure never prevents logout.
func (b *Bridge) OnLogoutRequested(ctx context.Context) error {
	err := b.syncer.PushOnLogout(ctx)
	if err != nil {
		b.log.WithError(err).Warn("cart push during logout failed")
	}

	b.creds.Clear()
	return err
}

// OnSessionExpired drops credentials without pushing: an expired session
// cannot authenticate a push anyway. The cart keeps operating against
// local storage only.
func (b *Bridge) OnSessionExpired(_ context.Context) {
	b.creds.Clear()
	b.log.Info("session expired, cart continues on local storage only")
}
