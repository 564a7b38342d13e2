package customer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accounting/backend/internal/domain"
)

func TestOnSaleCreatedAndDeleted(t *testing.T) {
	saleDate := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	c := OnSaleCreated(domain.Customer{ID: "c1"}, saleDate)
	assert.Equal(t, 1, c.TotalPurchases)
	require.NotNil(t, c.LastPurchaseDate)
	assert.Equal(t, saleDate, *c.LastPurchaseDate)

	c = OnSaleCreated(c, saleDate.Add(time.Hour))
	assert.Equal(t, 2, c.TotalPurchases)

	c = OnSaleDeleted(c)
	assert.Equal(t, 1, c.TotalPurchases)
	assert.Equal(t, saleDate.Add(time.Hour), *c.LastPurchaseDate)

	c = OnSaleDeleted(OnSaleDeleted(c))
	assert.Equal(t, 0, c.TotalPurchases)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "New", Status(0))
	assert.Equal(t, "Regular", Status(4))
	assert.Equal(t, "Loyal", Status(5))
	assert.Equal(t, "Loyal", Status(19))
	assert.Equal(t, "VIP", Status(20))
}

func TestSupplierTier(t *testing.T) {
	cases := map[int64]string{
		0:      "New",
		1:      "Bronze",
		9999:   "Bronze",
		10000:  "Silver",
		49999:  "Silver",
		50000:  "Gold",
		100000: "Platinum",
	}
	for total, want := range cases {
		assert.Equal(t, want, SupplierTier(decimal.NewFromInt(total)), total)
	}
}
