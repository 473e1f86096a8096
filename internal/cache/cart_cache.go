package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/maomauro/web-beatty-sub001/internal/domain"
	"github.com/maomauro/web-beatty-sub001/internal/pricing"
	"github.com/maomauro/web-beatty-sub001/internal/store"
	"github.com/maomauro/web-beatty-sub001/internal/tax"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Pusher sends the full current line set to the authoritative server.
// Implementations decide whether a session exists; without one the push
// is a no-op.
type Pusher interface {
	PushCurrent(ctx context.Context, lines []domain.CartLine) error
}

// CartCache is the client-resident cart. Every mutation re-prices the
// affected line, writes the whole cart to durable local storage before
// returning, and then dispatches a detached best-effort push to the
// server. The local copy is always authoritative; push failures only get
// logged.
type CartCache struct {
	store store.Store
	taxes *tax.Table
	log   logrus.FieldLogger

	pusher      Pusher
	pushTimeout time.Duration

	mu    sync.Mutex
	lines []domain.CartLine
}

func New(st store.Store, taxes *tax.Table, log logrus.FieldLogger) *CartCache {
	return &CartCache{
		store:       st,
		taxes:       taxes,
		log:         log,
		pushTimeout: 5 * time.Second,
	}
}

// AttachPusher wires the remote synchronizer in after construction. The
// cache and the synchronizer reference each other, so one side has to be
// attached late.
func (c *CartCache) AttachPusher(p Pusher) {
	c.pusher = p
}

// SetPushTimeout overrides the deadline for detached pushes.
func (c *CartCache) SetPushTimeout(d time.Duration) {
	c.pushTimeout = d
}

// Hydrate loads the durable copy into memory. A missing key or a parse
// failure both mean "empty cart", never an error.
func (c *CartCache) Hydrate(ctx context.Context) {
	lines, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.log.WithError(err).Warn("cart hydration failed, starting empty")
		}
		return
	}

	c.mu.Lock()
	c.lines = lines
	c.mu.Unlock()
}

// Add puts quantity units of an item in the cart. If the item is already
// present its quantity accumulates; otherwise a new priced line is
// appended. Quantities below 1 count as 1.
func (c *CartCache) Add(ctx context.Context, item domain.CatalogItemRef, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	rate := c.taxes.Resolve(item.TaxClassID)

	c.mu.Lock()
	if i := c.indexOfLocked(item.ID); i >= 0 {
		c.lines[i].Quantity += quantity
		c.repriceLocked(i)
	} else {
		c.lines = append(c.lines, pricing.Line(item, quantity, rate))
	}
	snapshot := c.persistLocked(ctx)
	c.mu.Unlock()

	c.dispatchPush(snapshot)
}

// SetQuantity changes a line's quantity. Zero or negative removes the
// line; anything above the item's available stock is clamped silently.
func (c *CartCache) SetQuantity(ctx context.Context, itemID string, quantity int) {
	c.mu.Lock()
	i := c.indexOfLocked(itemID)
	if i < 0 {
		c.mu.Unlock()
		return
	}

	if quantity > c.lines[i].AvailableStock {
		quantity = c.lines[i].AvailableStock
	}
	if quantity <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	} else {
		c.lines[i].Quantity = quantity
		c.repriceLocked(i)
	}
	snapshot := c.persistLocked(ctx)
	c.mu.Unlock()

	c.dispatchPush(snapshot)
}

// Remove deletes a line. Removing an absent item is a no-op, not an
// error.
func (c *CartCache) Remove(ctx context.Context, itemID string) {
	c.mu.Lock()
	i := c.indexOfLocked(itemID)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	snapshot := c.persistLocked(ctx)
	c.mu.Unlock()

	c.dispatchPush(snapshot)
}

// Clear empties the cart and erases the durable key. Clear does not push:
// it runs after checkout confirmation or an explicit reset, and pushing an
// empty set would recreate a pending remote cart.
func (c *CartCache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()

	if err := c.store.Delete(ctx); err != nil {
		c.log.WithError(err).Warn("failed to erase durable cart copy")
	}
}

// Replace swaps the whole line set, used when a remote cart adopted on
// login supersedes the local one.
func (c *CartCache) Replace(ctx context.Context, lines []domain.CartLine) {
	c.mu.Lock()
	c.lines = domain.CloneLines(lines)
	c.persistLocked(ctx)
	c.mu.Unlock()
}

// Lines returns a copy of the current lines in insertion order.
func (c *CartCache) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CloneLines(c.lines)
}

// ItemCount is the sum of quantities over all lines.
func (c *CartCache) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// SubtotalTotal sums the already-rounded per-line subtotals.
func (c *CartCache) SubtotalTotal() decimal.Decimal {
	return c.sum(func(l domain.CartLine) decimal.Decimal { return l.Subtotal })
}

// TaxTotal sums the already-rounded per-line tax amounts.
func (c *CartCache) TaxTotal() decimal.Decimal {
	return c.sum(func(l domain.CartLine) decimal.Decimal { return l.TaxAmount })
}

// GrandTotal sums the per-line totals.
func (c *CartCache) GrandTotal() decimal.Decimal {
	return c.sum(func(l domain.CartLine) decimal.Decimal { return l.Total })
}

func (c *CartCache) sum(field func(domain.CartLine) decimal.Decimal) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(field(l))
	}
	return total
}

func (c *CartCache) indexOfLocked(itemID string) int {
	for i := range c.lines {
		if c.lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

func (c *CartCache) repriceLocked(i int) {
	l := c.lines[i]
	item := domain.CatalogItemRef{
		ID:             l.ItemID,
		Name:           l.Name,
		UnitPrice:      l.UnitPrice,
		ImageRef:       l.ImageRef,
		Brand:          l.Brand,
		AvailableStock: l.AvailableStock,
		TaxClassID:     l.TaxClassID,
	}
	b := pricing.Price(item, l.Quantity, c.taxes.Resolve(l.TaxClassID))
	c.lines[i].Subtotal = b.Subtotal
	c.lines[i].TaxAmount = b.TaxAmount
	c.lines[i].Total = b.Total
}

// persistLocked writes the full cart synchronously and returns a copy of
// the lines for the detached push. Storage errors degrade to an unsynced
// local cart and are only logged.
func (c *CartCache) persistLocked(ctx context.Context) []domain.CartLine {
	if err := c.store.Save(ctx, c.lines); err != nil {
		c.log.WithError(err).Warn("failed to persist cart locally")
	}
	return domain.CloneLines(c.lines)
}

// dispatchPush fires the remote push without blocking the caller. Pushes
// are not serialized against each other; each carries the full line set,
// so the last one to land wins.
func (c *CartCache) dispatchPush(lines []domain.CartLine) {
	if c.pusher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.pushTimeout)
		defer cancel()
		if err := c.pusher.PushCurrent(ctx, lines); err != nil {
			c.log.WithError(err).WithField("lines", len(lines)).Debug("detached cart push failed")
		}
	}()
}
