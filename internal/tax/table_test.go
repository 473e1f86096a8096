package tax

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/maomauro/web-beatty-sub001/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	rates []domain.TaxRate
	err   error
	calls int
}

func (m *mockSource) TaxRates(context.Context) ([]domain.TaxRate, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.rates, nil
}

func TestLoad_Success(t *testing.T) {
	src := &mockSource{rates: []domain.TaxRate{
		{ClassID: 1, Percentage: decimal.NewFromInt(19), Label: "IVA 19%"},
		{ClassID: 2, Percentage: decimal.NewFromInt(5), Label: "IVA 5%"},
	}}
	logger, _ := test.NewNullLogger()

	sut := New(src, logger)
	sut.Load(context.Background())

	r := sut.Resolve(1)
	assert.Equal(t, "19", r.Percentage.String())
	assert.Equal(t, "IVA 19%", r.Label)
}

func TestLoad_FetchFailure_UsesDefaultTable(t *testing.T) {
	src := &mockSource{err: fmt.Errorf("connection refused")}
	logger, hook := test.NewNullLogger()

	sut := New(src, logger)
	sut.Load(context.Background())

	// Default table still prices: class 1 is 19%, class 0 is tax-free.
	assert.Equal(t, "19", sut.Resolve(1).Percentage.String())
	assert.True(t, sut.Resolve(0).IsZero())

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLoad_EmptyTable_UsesDefaultTable(t *testing.T) {
	src := &mockSource{rates: nil}
	logger, _ := test.NewNullLogger()

	sut := New(src, logger)
	sut.Load(context.Background())

	assert.Equal(t, "5", sut.Resolve(2).Percentage.String())
}

func TestResolve_UnknownClass_ZeroRateAndWarning(t *testing.T) {
	src := &mockSource{rates: []domain.TaxRate{
		{ClassID: 1, Percentage: decimal.NewFromInt(19)},
	}}
	logger, hook := test.NewNullLogger()

	sut := New(src, logger)
	sut.Load(context.Background())

	r := sut.Resolve(99)
	assert.True(t, r.IsZero())
	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 99, hook.LastEntry().Data["tax_class_id"])
}

func TestLoad_ConcurrentCallsFetchOnce(t *testing.T) {
	src := &mockSource{rates: []domain.TaxRate{
		{ClassID: 1, Percentage: decimal.NewFromInt(19)},
	}}
	logger, _ := test.NewNullLogger()
	sut := New(src, logger)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sut.Load(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "19", sut.Resolve(1).Percentage.String())
}
