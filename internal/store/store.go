package store

import (
	"context"
	"time"

	"accounting/backend/internal/domain"
	"accounting/backend/internal/stock"
)

// SaleMutator receives the locked, stored sale and returns the version to
// persist. Returning an error aborts the update.
type SaleMutator func(current domain.Sale) (domain.Sale, error)

type PurchaseMutator func(current domain.Purchase) (domain.Purchase, error)

type UserMutator func(current domain.UserAccount) (domain.UserAccount, error)

// Repository is implemented by the in-memory and Postgres stores. Every
// multi-record write runs as one unit: either all of it is visible or none.
type Repository interface {
	CreateCustomer(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context, limit int) ([]domain.Customer, error)

	CreateSupplier(ctx context.Context, s domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context, limit int) ([]domain.Supplier, error)

	CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	ListInventoryItems(ctx context.Context, limit int) ([]domain.InventoryItem, error)
	// AdjustInventoryQuantity checks and applies one ledger operation under
	// the record's lock.
	AdjustInventoryQuantity(ctx context.Context, id string, amount int, op stock.Operation, at time.Time) (*domain.InventoryItem, error)

	// CreateSale assigns the next invoice number when sale.InvoiceNumber is
	// empty, inserts the sale and bumps the customer aggregate atomically.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)
	UpdateSale(ctx context.Context, id string, mutate SaleMutator) (*domain.Sale, error)
	// DeleteSale removes the sale and decrements the customer aggregate atomically.
	DeleteSale(ctx context.Context, id string) error

	CreatePurchase(ctx context.Context, p domain.Purchase) (*domain.Purchase, error)
	GetPurchase(ctx context.Context, id string) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error)
	UpdatePurchase(ctx context.Context, id string, mutate PurchaseMutator) (*domain.Purchase, error)
	DeletePurchase(ctx context.Context, id string) error

	SaveCode(ctx context.Context, code domain.OneTimeCode) error
	GetCode(ctx context.Context, identity string) (domain.OneTimeCode, error)
	DeleteCode(ctx context.Context, identity string) error

	CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
	GetUser(ctx context.Context, id string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context, limit int) ([]domain.UserAccount, error)
	// UpdateUser applies mutate to the stored account; a changed email that
	// belongs to another account fails with ErrConflict.
	UpdateUser(ctx context.Context, id string, mutate UserMutator) (*domain.UserAccount, error)
	DeleteUser(ctx context.Context, id string) error
	SetUserVerified(ctx context.Context, email string, verified bool) error
	UpdateUserPassword(ctx context.Context, email string, passwordHash string, changedAt time.Time) error

	GetSettings(ctx context.Context, userID string) (domain.Settings, error)
	UpsertSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}
