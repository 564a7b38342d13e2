package customer

import (
	"time"

	"github.com/shopspring/decimal"

	"accounting/backend/internal/domain"
)

// OnSaleCreated counts one more purchase. It must run exactly once per
// created sale, in the same unit of work as the sale insert.
func OnSaleCreated(c domain.Customer, saleDate time.Time) domain.Customer {
	c.TotalPurchases++
	date := saleDate.UTC()
	c.LastPurchaseDate = &date
	return c
}

// OnSaleDeleted removes one purchase, never going below zero. The previous
// LastPurchaseDate is not recoverable and is left as is.
func OnSaleDeleted(c domain.Customer) domain.Customer {
	if c.TotalPurchases > 0 {
		c.TotalPurchases--
	}
	return c
}

func Status(totalPurchases int) string {
	switch {
	case totalPurchases <= 0:
		return "New"
	case totalPurchases < 5:
		return "Regular"
	case totalPurchases < 20:
		return "Loyal"
	default:
		return "VIP"
	}
}

var (
	bronzeCeiling = decimal.NewFromInt(10000)
	silverCeiling = decimal.NewFromInt(50000)
	goldCeiling   = decimal.NewFromInt(100000)
)

func SupplierTier(totalPurchases decimal.Decimal) string {
	switch {
	case !totalPurchases.IsPositive():
		return "New"
	case totalPurchases.LessThan(bronzeCeiling):
		return "Bronze"
	case totalPurchases.LessThan(silverCeiling):
		return "Silver"
	case totalPurchases.LessThan(goldCeiling):
		return "Gold"
	default:
		return "Platinum"
	}
}

func View(c domain.Customer) domain.CustomerView {
	return domain.CustomerView{Customer: c, Status: Status(c.TotalPurchases)}
}

func SupplierView(s domain.Supplier) domain.SupplierView {
	return domain.SupplierView{Supplier: s, Tier: SupplierTier(s.TotalPurchases)}
}
