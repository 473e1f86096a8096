package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/maomauro/web-beatty-sub001/internal/domain"
	"github.com/maomauro/web-beatty-sub001/internal/store"
	"github.com/maomauro/web-beatty-sub001/internal/tax"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRates struct{}

func (stubRates) TaxRates(context.Context) ([]domain.TaxRate, error) {
	return []domain.TaxRate{
		{ClassID: 0, Percentage: decimal.Zero, Label: "Sin impuesto"},
		{ClassID: 1, Percentage: decimal.NewFromInt(19), Label: "IVA 19%"},
		{ClassID: 2, Percentage: decimal.NewFromInt(5), Label: "IVA 5%"},
	}, nil
}

type mockPusher struct {
	m      sync.Mutex
	pushes [][]domain.CartLine
	err    error
}

func (p *mockPusher) PushCurrent(_ context.Context, lines []domain.CartLine) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.pushes = append(p.pushes, lines)
	return p.err
}

func (p *mockPusher) pushCount() int {
	p.m.Lock()
	defer p.m.Unlock()
	return len(p.pushes)
}

type failingStore struct{}

func (failingStore) Load(context.Context) ([]domain.CartLine, error) {
	return nil, fmt.Errorf("disk exploded")
}
func (failingStore) Save(context.Context, []domain.CartLine) error {
	return fmt.Errorf("disk exploded")
}
func (failingStore) Delete(context.Context) error {
	return fmt.Errorf("disk exploded")
}

func newTestCache(t *testing.T, st store.Store) *CartCache {
	t.Helper()
	logger, _ := test.NewNullLogger()
	taxes := tax.New(stubRates{}, logger)
	taxes.Load(context.Background())
	return New(st, taxes, logger)
}

func item(id string, price int64, stock, taxClass int) domain.CatalogItemRef {
	return domain.CatalogItemRef{
		ID:             id,
		Name:           "Item " + id,
		UnitPrice:      decimal.NewFromInt(price),
		AvailableStock: stock,
		TaxClassID:     taxClass,
	}
}

func TestAdd_NewLinePriced(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())
	ctx := context.Background()

	sut.Add(ctx, item("A", 45000, 10, 1), 2)

	lines := sut.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "90000", lines[0].Subtotal.String())
	assert.Equal(t, "17100", lines[0].TaxAmount.String())
	assert.Equal(t, "107100", lines[0].Total.String())
}

func TestAdd_SameItemAccumulates(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())
	ctx := context.Background()

	sut.Add(ctx, item("A", 1000, 10, 1), 1)
	sut.Add(ctx, item("A", 1000, 10, 1), 1)

	lines := sut.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "2000", lines[0].Subtotal.String())
}

func TestAdd_NonPositiveQuantityCountsAsOne(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())

	sut.Add(context.Background(), item("A", 1000, 10, 0), -3)

	lines := sut.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestAdd_PreservesInsertionOrder(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())
	ctx := context.Background()

	sut.Add(ctx, item("C", 100, 5, 0), 1)
	sut.Add(ctx, item("A", 100, 5, 0), 1)
	sut.Add(ctx, item("B", 100, 5, 0), 1)
	sut.Add(ctx, item("A", 100, 5, 0), 1) // accumulates, must not reorder

	lines := sut.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "C", lines[0].ItemID)
	assert.Equal(t, "A", lines[1].ItemID)
	assert.Equal(t, "B", lines[2].ItemID)
}

func TestAdd_PersistsBeforeReturning(t *testing.T) {
	st := store.NewMemoryStore()
	sut := newTestCache(t, st)
	ctx := context.Background()

	sut.Add(ctx, item("A", 45000, 10, 1), 2)

	stored, err := st.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "107100", stored[0].Total.String())
}

func TestAdd_StorageFailureDegradesToUnsynced(t *testing.T) {
	sut := newTestCache(t, failingStore{})

	sut.Add(context.Background(), item("A", 1000, 10, 1), 1)

	// The in-memory cart still mutated.
	assert.Equal(t, 1, sut.ItemCount())
}

func TestSetQuantity_Reprices(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())
	ctx := context.Background()

	sut.Add(ctx, item("A", 45000, 10, 1), 2)
	sut.SetQuantity(ctx, "A", 1)

	lines := sut.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "45000", lines[0].Subtotal.String())
	assert.Equal(t, "8550", lines[0].TaxAmount.String())
	assert.Equal(t, "53550", lines[0].Total.String())
}

func TestSetQuantity_ZeroOrNegativeRemoves(t *testing.T) {
	for _, q := range []int{0, -1} {
		sut := newTestCache(t, store.NewMemoryStore())
		ctx := context.Background()

		sut.Add(ctx, item("A", 1000, 10, 1), 2)
		sut.SetQuantity(ctx, "A", q)

		assert.Empty(t, sut.Lines(), "quantity %d must remove the line", q)
		assert.Equal(t, 0, sut.ItemCount())
	}
}

func TestSetQuantity_EquivalentToRemove(t *testing.T) {
	ctx := context.Background()

	viaSet := newTestCache(t, store.NewMemoryStore())
	viaSet.Add(ctx, item("A", 1000, 10, 1), 2)
	viaSet.Add(ctx, item("B", 2000, 10, 1), 1)
	viaSet.SetQuantity(ctx, "A", 0)

	viaRemove := newTestCache(t, store.NewMemoryStore())
	viaRemove.Add(ctx, item("A", 1000, 10, 1), 2)
	viaRemove.Add(ctx, item("B", 2000, 10, 1), 1)
	viaRemove.Remove(ctx, "A")

	assert.Equal(t, viaRemove.Lines(), viaSet.Lines())
}

func TestSetQuantity_ClampsAtAvailableStock(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())
	ctx := context.Background()

	sut.Add(ctx, item("A", 1000, 5, 1), 1)
	sut.SetQuantity(ctx, "A", 50)

	lines := sut.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, "5000", lines[0].Subtotal.String())
}

func TestSetQuantity_UnknownItemIsNoop(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())
	ctx := context.Background()

	sut.Add(ctx, item("A", 1000, 10, 1), 1)
	sut.SetQuantity(ctx, "nope", 3)

	assert.Equal(t, 1, sut.ItemCount())
}

func TestRemove_AbsentItemIsNoop(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())

	sut.Remove(context.Background(), "ghost")

	assert.Empty(t, sut.Lines())
}

func TestClear_EmptiesCartAndErasesDurableCopy(t *testing.T) {
	st := store.NewMemoryStore()
	sut := newTestCache(t, st)
	ctx := context.Background()

	sut.Add(ctx, item("A", 1000, 10, 1), 2)
	sut.Clear(ctx)

	assert.Equal(t, 0, sut.ItemCount())
	_, err := st.Load(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTotals_SumOfRoundedPerLineValues(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())
	ctx := context.Background()

	sut.Add(ctx, item("A", 45000, 10, 1), 2)
	sut.Add(ctx, item("B", 3000, 10, 2), 1)
	sut.Add(ctx, item("C", 500, 10, 0), 4)
	sut.SetQuantity(ctx, "B", 3)
	sut.Remove(ctx, "C")

	assert.Equal(t, 5, sut.ItemCount())
	assert.True(t, sut.GrandTotal().Equal(sut.SubtotalTotal().Add(sut.TaxTotal())),
		"grand total %s != subtotal %s + tax %s", sut.GrandTotal(), sut.SubtotalTotal(), sut.TaxTotal())
	assert.Equal(t, "99000", sut.SubtotalTotal().String())
	assert.Equal(t, "17550", sut.TaxTotal().String())
	assert.Equal(t, "116550", sut.GrandTotal().String())
}

func TestHydrate_RoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	first := newTestCache(t, st)
	first.Add(ctx, item("A", 45000, 10, 1), 2)
	first.Add(ctx, item("B", 3000, 10, 2), 1)

	second := newTestCache(t, st)
	second.Hydrate(ctx)

	want, got := first.Lines(), second.Lines()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ItemID, got[i].ItemID)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.True(t, want[i].Subtotal.Equal(got[i].Subtotal))
		assert.True(t, want[i].TaxAmount.Equal(got[i].TaxAmount))
		assert.True(t, want[i].Total.Equal(got[i].Total))
	}
	assert.True(t, first.GrandTotal().Equal(second.GrandTotal()))
}

func TestHydrate_MissingOrBrokenStorageMeansEmptyCart(t *testing.T) {
	empty := newTestCache(t, store.NewMemoryStore())
	empty.Hydrate(context.Background())
	assert.Equal(t, 0, empty.ItemCount())

	broken := newTestCache(t, failingStore{})
	broken.Hydrate(context.Background())
	assert.Equal(t, 0, broken.ItemCount())
}

func TestReplace_Wholesale(t *testing.T) {
	st := store.NewMemoryStore()
	sut := newTestCache(t, st)
	ctx := context.Background()

	sut.Add(ctx, item("local", 1000, 10, 1), 1)

	remote := []domain.CartLine{
		{ItemID: "r1", Quantity: 1, Subtotal: decimal.NewFromInt(100), TaxAmount: decimal.Zero, Total: decimal.NewFromInt(100)},
		{ItemID: "r2", Quantity: 2, Subtotal: decimal.NewFromInt(200), TaxAmount: decimal.Zero, Total: decimal.NewFromInt(200)},
		{ItemID: "r3", Quantity: 3, Subtotal: decimal.NewFromInt(300), TaxAmount: decimal.Zero, Total: decimal.NewFromInt(300)},
	}
	sut.Replace(ctx, remote)

	lines := sut.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "r1", lines[0].ItemID)
	assert.Equal(t, "r3", lines[2].ItemID)

	// Replacement is re-persisted.
	stored, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestMutations_DispatchDetachedPush(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())
	pusher := &mockPusher{}
	sut.AttachPusher(pusher)
	ctx := context.Background()

	sut.Add(ctx, item("A", 1000, 10, 1), 1)

	require.Eventually(t, func() bool {
		return pusher.pushCount() == 1
	}, time.Second, 10*time.Millisecond, "add did not dispatch a push")

	sut.SetQuantity(ctx, "A", 3)
	sut.Remove(ctx, "A")

	require.Eventually(t, func() bool {
		return pusher.pushCount() == 3
	}, time.Second, 10*time.Millisecond, "mutations did not dispatch pushes")

	// Last push carries the full (now empty) line set.
	pusher.m.Lock()
	defer pusher.m.Unlock()
	assert.Empty(t, pusher.pushes[2])
}

func TestMutations_PushFailureDoesNotAffectLocalState(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())
	pusher := &mockPusher{err: fmt.Errorf("network down")}
	sut.AttachPusher(pusher)

	sut.Add(context.Background(), item("A", 1000, 10, 1), 2)

	require.Eventually(t, func() bool {
		return pusher.pushCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, sut.ItemCount())
}

func TestLineInvariant_AfterEveryMutation(t *testing.T) {
	sut := newTestCache(t, store.NewMemoryStore())
	ctx := context.Background()

	sut.Add(ctx, item("A", 45000, 10, 1), 2)
	sut.Add(ctx, item("B", 1999, 20, 2), 3)
	sut.SetQuantity(ctx, "A", 7)
	sut.Add(ctx, item("B", 1999, 20, 2), 1)

	for _, l := range sut.Lines() {
		assert.True(t, l.Subtotal.Add(l.TaxAmount).Equal(l.Total),
			"line %s: %s + %s != %s", l.ItemID, l.Subtotal, l.TaxAmount, l.Total)
	}
}
