// Package settlement computes the derived monetary fields of sales and
// purchases. Every write path runs Recompute (or Merge for partial updates)
// so stored totals never drift from their line items.
package settlement

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"accounting/backend/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)

	DefaultSaleTaxRate     = decimal.NewFromInt(5)
	DefaultPurchaseTaxRate = decimal.Zero
)

// ComputeLine returns quantity × unitPrice.
func ComputeLine(quantity int, unitPrice decimal.Decimal) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}
	if unitPrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: unit price cannot be negative", domain.ErrValidation)
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))), nil
}

// ComputeSubtotal returns a copy of items with every LineTotal rederived,
// plus their sum. Caller-supplied line totals are discarded.
func ComputeSubtotal(items []domain.LineItem) ([]domain.LineItem, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, fmt.Errorf("%w: at least one line item is required", domain.ErrValidation)
	}

	lines := make([]domain.LineItem, 0, len(items))
	subtotal := decimal.Zero
	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, decimal.Zero, fmt.Errorf("%w: item %d name is required", domain.ErrValidation, i+1)
		}
		lineTotal, err := ComputeLine(item.Quantity, item.UnitPrice)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("item %d: %w", i+1, err)
		}
		lines = append(lines, domain.LineItem{
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return lines, subtotal, nil
}

// ComputeTotals derives tax and grand total. The taxable base is clamped at
// zero when the discount exceeds the subtotal; tax is rounded half-up to two
// places exactly once.
func ComputeTotals(subtotal, discount, taxRate decimal.Decimal) (taxAmount, grandTotal decimal.Decimal, err error) {
	if discount.IsNegative() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: discount cannot be negative", domain.ErrValidation)
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: tax rate must be between 0 and 100", domain.ErrValidation)
	}

	base := subtotal.Sub(discount)
	if base.IsNegative() {
		base = decimal.Zero
	}
	taxAmount = base.Mul(taxRate).Div(hundred).Round(2)
	grandTotal = subtotal.Sub(discount).Add(taxAmount)
	return taxAmount, grandTotal, nil
}

// Recompute derives normalized line items and all totals from the source
// fields of a transaction.
func Recompute(items []domain.LineItem, discount, taxRate decimal.Decimal) ([]domain.LineItem, domain.Totals, error) {
	lines, subtotal, err := ComputeSubtotal(items)
	if err != nil {
		return nil, domain.Totals{}, err
	}
	taxAmount, grandTotal, err := ComputeTotals(subtotal, discount, taxRate)
	if err != nil {
		return nil, domain.Totals{}, err
	}
	return lines, domain.Totals{
		Subtotal:   subtotal,
		Discount:   discount,
		TaxRate:    taxRate,
		TaxAmount:  taxAmount,
		GrandTotal: grandTotal,
	}, nil
}

// Patch is the settlement-relevant part of a partial update.
type Patch struct {
	Items    []domain.LineItem
	Discount *decimal.Decimal
	TaxRate  *decimal.Decimal
}

// Merge overlays patch on the stored view and recomputes everything from the
// merged values. Stored derived fields are never reused.
func Merge(storedItems []domain.LineItem, stored domain.Totals, patch Patch) ([]domain.LineItem, domain.Totals, error) {
	items := storedItems
	if patch.Items != nil {
		items = patch.Items
	}
	discount := stored.Discount
	if patch.Discount != nil {
		discount = *patch.Discount
	}
	taxRate := stored.TaxRate
	if patch.TaxRate != nil {
		taxRate = *patch.TaxRate
	}
	return Recompute(items, discount, taxRate)
}
