package stock

import (
	"fmt"
	"math"
	"strings"
	"time"

	"accounting/backend/internal/domain"
)

type Operation string

const (
	Add      Operation = "add"
	Subtract Operation = "subtract"
	Set      Operation = "set"
)

const DefaultLowStockThreshold = 10

// MaxQuantity is the largest quantity the inventory table can hold.
const MaxQuantity = math.MaxInt32

func ParseOperation(raw string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(raw))); op {
	case Add, Subtract, Set:
		return op, nil
	case "":
		return "", fmt.Errorf("%w: stock operation is required", domain.ErrValidation)
	default:
		return "", fmt.Errorf("%w: unknown stock operation %q", domain.ErrValidation, raw)
	}
}

// CheckAvailable fails with ErrInsufficientStock when amount exceeds the
// quantity on hand.
func CheckAvailable(item domain.InventoryItem, amount int) error {
	if amount > item.Quantity {
		return fmt.Errorf("%w: available quantity %d", domain.ErrInsufficientStock, item.Quantity)
	}
	return nil
}

// Adjust applies one quantity change to item and returns the updated record.
// Callers must hold whatever lock protects item for the duration of the
// read-check-write.
func Adjust(item domain.InventoryItem, amount int, op Operation, now time.Time) (domain.InventoryItem, error) {
	if amount < 0 {
		return item, fmt.Errorf("%w: amount cannot be negative", domain.ErrValidation)
	}
	if amount > MaxQuantity {
		return item, fmt.Errorf("%w: amount cannot exceed %d", domain.ErrValidation, MaxQuantity)
	}
	switch op {
	case Add:
		if item.Quantity > MaxQuantity-amount {
			return item, fmt.Errorf("%w: quantity cannot exceed %d", domain.ErrValidation, MaxQuantity)
		}
		item.Quantity += amount
	case Subtract:
		if err := CheckAvailable(item, amount); err != nil {
			return item, err
		}
		item.Quantity = max(0, item.Quantity-amount)
	case Set:
		item.Quantity = amount
	default:
		return item, fmt.Errorf("%w: unknown stock operation %q", domain.ErrValidation, op)
	}

	if item.Quantity > 0 {
		restocked := now.UTC()
		item.LastRestocked = &restocked
	}
	item.UpdatedAt = now.UTC()
	return item, nil
}

func Status(quantity, threshold int) domain.StockStatus {
	switch {
	case quantity <= 0:
		return domain.OutOfStock
	case quantity <= threshold:
		return domain.LowStock
	default:
		return domain.InStock
	}
}

// Level is the fill percentage against five times the low-stock threshold,
// capped at 100.
func Level(quantity, threshold int) int {
	if threshold <= 0 {
		return 100
	}
	pct := math.Round(float64(quantity) / float64(threshold*5) * 100)
	return int(math.Min(100, pct))
}

func View(item domain.InventoryItem) domain.InventoryView {
	return domain.InventoryView{
		InventoryItem: item,
		StockStatus:   Status(item.Quantity, item.LowStockThreshold),
		StockLevel:    Level(item.Quantity, item.LowStockThreshold),
	}
}

// GenerateSKU builds the fallback SKU for items created without one.
func GenerateSKU(now time.Time, existing int) string {
	return fmt.Sprintf("SKU-%d-%d", now.UnixMilli(), existing+1)
}
