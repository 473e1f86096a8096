package tax

import (
	"context"
	"sync"

	"github.com/maomauro/web-beatty-sub001/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// RateSource fetches the full rate table from the authoritative backend.
type RateSource interface {
	TaxRates(ctx context.Context) ([]domain.TaxRate, error)
}

// Table resolves tax class ids to rates. Load fetches the table once; if
// the fetch fails the built-in default table takes its place, so pricing
// never waits on the backend being reachable.
type Table struct {
	source RateSource
	log    logrus.FieldLogger
	sfg    singleflight.Group // collapses concurrent Load calls

	mu     sync.RWMutex
	rates  map[int]domain.TaxRate
	loaded bool
}

func New(source RateSource, log logrus.FieldLogger) *Table {
	return &Table{
		source: source,
		log:    log,
	}
}

// Load fetches the rate table once for the lifetime of the session. Any
// failure (transport, malformed payload, empty table) substitutes the
// default table and is logged, not returned. Repeat calls are no-ops.
func (t *Table) Load(ctx context.Context) {
	t.sfg.Do("load", func() (interface{}, error) {
		t.mu.RLock()
		loaded := t.loaded
		t.mu.RUnlock()
		if loaded {
			return nil, nil
		}

		rates, err := t.source.TaxRates(ctx)
		if err != nil || len(rates) == 0 {
			t.log.WithError(err).Warn("tax rate fetch failed, using default table")
			rates = defaultRates()
		}

		m := make(map[int]domain.TaxRate, len(rates))
		for _, r := range rates {
			m[r.ClassID] = r
		}

		t.mu.Lock()
		t.rates = m
		t.loaded = true
		t.mu.Unlock()
		return nil, nil
	})
}

// Resolve returns the rate for a tax class, or the zero rate when the
// class is unknown. Unknown classes are a recoverable condition: they are
// logged as warnings, never errors.
func (t *Table) Resolve(taxClassID int) domain.TaxRate {
	t.mu.RLock()
	rate, ok := t.rates[taxClassID]
	t.mu.RUnlock()

	if !ok {
		t.log.WithField("tax_class_id", taxClassID).Warn("unknown tax class, charging no tax")
		return zeroRate()
	}
	return rate
}

func zeroRate() domain.TaxRate {
	return domain.TaxRate{ClassID: 0, Percentage: decimal.Zero, Label: "Sin impuesto"}
}

func defaultRates() []domain.TaxRate {
	return []domain.TaxRate{
		zeroRate(),
		{ClassID: 1, Percentage: decimal.NewFromInt(19), Label: "IVA 19%"},
		{ClassID: 2, Percentage: decimal.NewFromInt(5), Label: "IVA 5%"},
	}
}
