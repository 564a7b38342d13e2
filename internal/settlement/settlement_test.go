package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accounting/backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func TestComputeLine(t *testing.T) {
	total, err := ComputeLine(3, dec("19.99"))
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("59.97")), "got %s", total)

	_, err = ComputeLine(0, dec("1"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ComputeLine(1, dec("-0.01"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestComputeSubtotalOverwritesLineTotalsAndIgnoresOrder(t *testing.T) {
	items := []domain.LineItem{
		{Name: "Shirt", Quantity: 2, UnitPrice: dec("10"), LineTotal: dec("999")},
		{Name: "Socks", Quantity: 1, UnitPrice: dec("5")},
		{Name: "Cap", Quantity: 4, UnitPrice: dec("0.10")},
	}
	lines, subtotal, err := ComputeSubtotal(items)
	require.NoError(t, err)
	assert.True(t, subtotal.Equal(dec("25.40")), "got %s", subtotal)
	assert.True(t, lines[0].LineTotal.Equal(dec("20")))

	reversed := []domain.LineItem{items[2], items[1], items[0]}
	_, again, err := ComputeSubtotal(reversed)
	require.NoError(t, err)
	assert.True(t, subtotal.Equal(again))
}

func TestComputeSubtotalRejectsEmptyAndInvalid(t *testing.T) {
	_, _, err := ComputeSubtotal(nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = ComputeSubtotal([]domain.LineItem{{Name: "x", Quantity: -1, UnitPrice: dec("1")}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = ComputeSubtotal([]domain.LineItem{{Name: "  ", Quantity: 1, UnitPrice: dec("1")}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestComputeTotals(t *testing.T) {
	cases := []struct {
		name                     string
		subtotal, discount, rate string
		wantTax, wantGrand       string
	}{
		{"sale example", "25", "0", "5", "1.25", "26.25"},
		{"discount reduces base", "100", "10", "10", "9", "99"},
		{"half up rounding", "0.10", "0", "5", "0.01", "0.11"},
		{"zero rate", "40", "5", "0", "0", "35"},
		{"discount above subtotal clamps base", "10", "15", "20", "0", "-5"},
		{"full rate", "12.34", "0", "100", "12.34", "24.68"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tax, grand, err := ComputeTotals(dec(tc.subtotal), dec(tc.discount), dec(tc.rate))
			require.NoError(t, err)
			assert.True(t, tax.Equal(dec(tc.wantTax)), "tax %s", tax)
			assert.True(t, grand.Equal(dec(tc.wantGrand)), "grand %s", grand)
		})
	}
}

func TestComputeTotalsValidation(t *testing.T) {
	_, _, err := ComputeTotals(dec("10"), dec("-1"), dec("5"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = ComputeTotals(dec("10"), dec("0"), dec("100.01"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = ComputeTotals(dec("10"), dec("0"), dec("-5"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMergeRecomputesFromMergedView(t *testing.T) {
	items, totals, err := Recompute([]domain.LineItem{
		{Name: "A", Quantity: 2, UnitPrice: dec("10")},
		{Name: "B", Quantity: 1, UnitPrice: dec("5")},
	}, decimal.Zero, dec("5"))
	require.NoError(t, err)
	require.True(t, totals.GrandTotal.Equal(dec("26.25")))

	// A stale stored tax amount must not leak into the result.
	stale := totals
	stale.TaxAmount = dec("999")

	_, merged, err := Merge(items, stale, Patch{Discount: ptr(dec("5"))})
	require.NoError(t, err)
	assert.True(t, merged.Subtotal.Equal(dec("25")))
	assert.True(t, merged.TaxAmount.Equal(dec("1")), "tax %s", merged.TaxAmount)
	assert.True(t, merged.GrandTotal.Equal(dec("21")), "grand %s", merged.GrandTotal)

	_, again, err := Merge(items, stale, Patch{Discount: ptr(dec("5"))})
	require.NoError(t, err)
	assert.Equal(t, merged, again)
}

func TestMergeReplacesItems(t *testing.T) {
	items, totals, err := Recompute([]domain.LineItem{{Name: "A", Quantity: 1, UnitPrice: dec("10")}}, dec("2"), dec("10"))
	require.NoError(t, err)

	lines, merged, err := Merge(items, totals, Patch{Items: []domain.LineItem{{Name: "B", Quantity: 3, UnitPrice: dec("4")}}})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "B", lines[0].Name)
	assert.True(t, merged.Subtotal.Equal(dec("12")))
	assert.True(t, merged.Discount.Equal(dec("2")))
	assert.True(t, merged.TaxAmount.Equal(dec("1")))
	assert.True(t, merged.GrandTotal.Equal(dec("11")))

	_, _, err = Merge(items, totals, Patch{Items: []domain.LineItem{}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
