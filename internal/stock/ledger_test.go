package stock

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accounting/backend/internal/domain"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestAdjustSubtract(t *testing.T) {
	item, err := Adjust(domain.InventoryItem{Quantity: 5}, 3, Subtract, now)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	require.NotNil(t, item.LastRestocked)

	before := domain.InventoryItem{Quantity: 2}
	after, err := Adjust(before, 5, Subtract, now)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "available quantity 2")
	assert.Equal(t, 2, after.Quantity)
}

func TestAdjustSubtractToZeroKeepsRestockTime(t *testing.T) {
	earlier := now.Add(-48 * time.Hour)
	item, err := Adjust(domain.InventoryItem{Quantity: 3, LastRestocked: &earlier}, 3, Subtract, now)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)
	assert.Equal(t, earlier, *item.LastRestocked)
}

func TestAdjustAddSetsRestockTime(t *testing.T) {
	item, err := Adjust(domain.InventoryItem{Quantity: 0}, 4, Add, now)
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
	require.NotNil(t, item.LastRestocked)
	assert.Equal(t, now, *item.LastRestocked)
}

func TestAdjustSetZeroLeavesRestockTime(t *testing.T) {
	item, err := Adjust(domain.InventoryItem{Quantity: 4}, 0, Set, now)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)
	assert.Nil(t, item.LastRestocked)
}

func TestAdjustRejectsBadInput(t *testing.T) {
	_, err := Adjust(domain.InventoryItem{Quantity: 4}, -1, Set, now)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = Adjust(domain.InventoryItem{Quantity: 4}, 1, Operation("multiply"), now)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAdjustRejectsQuantityOverflow(t *testing.T) {
	item := domain.InventoryItem{Quantity: 20}

	after, err := Adjust(item, math.MaxInt-5, Add, now)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 20, after.Quantity)

	_, err = Adjust(item, MaxQuantity-19, Add, now)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = Adjust(item, MaxQuantity+1, Set, now)
	assert.ErrorIs(t, err, domain.ErrValidation)

	full, err := Adjust(item, MaxQuantity-20, Add, now)
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, full.Quantity)
	assert.Equal(t, domain.InStock, Status(full.Quantity, 10))
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation(" Subtract ")
	require.NoError(t, err)
	assert.Equal(t, Subtract, op)

	_, err = ParseOperation("  ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ParseOperation("drop")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, domain.OutOfStock, Status(0, 10))
	assert.Equal(t, domain.LowStock, Status(10, 10))
	assert.Equal(t, domain.LowStock, Status(1, 10))
	assert.Equal(t, domain.InStock, Status(11, 10))
	assert.Equal(t, domain.InStock, Status(1, 0))
}

func TestLevel(t *testing.T) {
	assert.Equal(t, 100, Level(3, 0))
	assert.Equal(t, 50, Level(25, 10))
	assert.Equal(t, 100, Level(80, 10))
	assert.Equal(t, 0, Level(0, 10))
	assert.Equal(t, 7, Level(1, 3))
}
