package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/maomauro/web-beatty-sub001/internal/cache"
	"github.com/maomauro/web-beatty-sub001/internal/domain"
	"github.com/maomauro/web-beatty-sub001/internal/remote"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConfirmFailed     = errors.New("purchase confirmation failed")
)

// Confirmer is the slice of the cart API checkout needs.
type Confirmer interface {
	Confirm(ctx context.Context) (*domain.ConfirmResult, error)
}

// Coordinator submits the cart for confirmation and interprets the
// result. The cart is cleared only on success; any failure leaves it
// intact for retry.
type Coordinator struct {
	cache  *cache.CartCache
	client Confirmer
	log    logrus.FieldLogger
}

func New(c *cache.CartCache, client Confirmer, log logrus.FieldLogger) *Coordinator {
	return &Coordinator{
		cache:  c,
		client: client,
		log:    log,
	}
}

// Confirm issues a single confirmation call for the current remote cart.
// An empty local cart fails with ErrEmptyCart before any remote call.
// Stock-related rejections surface the server message verbatim; every
// other failure collapses to the generic ErrConfirmFailed.
func (c *Coordinator) Confirm(ctx context.Context) (*domain.ConfirmResult, error) {
	if c.cache.ItemCount() == 0 {
		return nil, ErrEmptyCart
	}

	result, err := c.client.Confirm(ctx)
	if err != nil {
		return nil, c.classify(err)
	}

	for _, adj := range result.StockAdjustments {
		c.log.WithFields(logrus.Fields{
			"item_id":      adj.ItemID,
			"name":         adj.Name,
			"stock_before": adj.StockBefore,
			"stock_after":  adj.StockAfter,
		}).Info("stock adjusted by purchase")
	}

	c.cache.Clear(ctx)
	return result, nil
}

func (c *Coordinator) classify(err error) error {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "stock") {
		return fmt.Errorf("%w: %s", ErrInsufficientStock, apiErr.Message)
	}

	c.log.WithError(err).Error("purchase confirmation failed")
	return ErrConfirmFailed
}
