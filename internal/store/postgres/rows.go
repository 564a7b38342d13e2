package postgres

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"accounting/backend/internal/domain"
)

// lineItems stores a transaction's items as one JSONB column.
type lineItems []domain.LineItem

func (l lineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	payload, err := json.Marshal([]domain.LineItem(l))
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func (l *lineItems) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported line items type %T", src)
	}
	var items []domain.LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

const customerColumns = `id, name, phone, email, address, total_purchases, last_purchase_date, created_at, updated_at`

type customerRow struct {
	ID               string     `db:"id"`
	Name             string     `db:"name"`
	Phone            string     `db:"phone"`
	Email            string     `db:"email"`
	Address          string     `db:"address"`
	TotalPurchases   int        `db:"total_purchases"`
	LastPurchaseDate *time.Time `db:"last_purchase_date"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r customerRow) toDomain() domain.Customer {
	return domain.Customer{
		ID:               r.ID,
		Name:             r.Name,
		Phone:            r.Phone,
		Email:            r.Email,
		Address:          r.Address,
		TotalPurchases:   r.TotalPurchases,
		LastPurchaseDate: utcPtr(r.LastPurchaseDate),
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

const supplierColumns = `id, name, company, contact_number, email, address, total_purchases, created_at, updated_at`

type supplierRow struct {
	ID             string          `db:"id"`
	Name           string          `db:"name"`
	Company        string          `db:"company"`
	ContactNumber  string          `db:"contact_number"`
	Email          string          `db:"email"`
	Address        string          `db:"address"`
	TotalPurchases decimal.Decimal `db:"total_purchases"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r supplierRow) toDomain() domain.Supplier {
	return domain.Supplier{
		ID:             r.ID,
		Name:           r.Name,
		Company:        r.Company,
		ContactNumber:  r.ContactNumber,
		Email:          r.Email,
		Address:        r.Address,
		TotalPurchases: r.TotalPurchases,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

const inventoryColumns = `id, item_name, category, supplier_id, size, color, price, sku, quantity, low_stock_threshold, last_restocked, created_at, updated_at`

type inventoryRow struct {
	ID                string          `db:"id"`
	ItemName          string          `db:"item_name"`
	Category          string          `db:"category"`
	SupplierID        sql.NullString  `db:"supplier_id"`
	Size              string          `db:"size"`
	Color             string          `db:"color"`
	Price             decimal.Decimal `db:"price"`
	SKU               string          `db:"sku"`
	Quantity          int             `db:"quantity"`
	LowStockThreshold int             `db:"low_stock_threshold"`
	LastRestocked     *time.Time      `db:"last_restocked"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func (r inventoryRow) toDomain() domain.InventoryItem {
	return domain.InventoryItem{
		ID:                r.ID,
		ItemName:          r.ItemName,
		Category:          r.Category,
		SupplierID:        r.SupplierID.String,
		Size:              r.Size,
		Color:             r.Color,
		Price:             r.Price,
		SKU:               r.SKU,
		Quantity:          r.Quantity,
		LowStockThreshold: r.LowStockThreshold,
		LastRestocked:     utcPtr(r.LastRestocked),
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

const saleColumns = `id, invoice_number, customer_id, items, subtotal, discount, tax_rate, tax_amount, grand_total, payment_status, notes, sale_date, created_by, created_at, updated_at`

type saleRow struct {
	ID            string          `db:"id"`
	InvoiceNumber string          `db:"invoice_number"`
	CustomerID    string          `db:"customer_id"`
	Items         lineItems       `db:"items"`
	Subtotal      decimal.Decimal `db:"subtotal"`
	Discount      decimal.Decimal `db:"discount"`
	TaxRate       decimal.Decimal `db:"tax_rate"`
	TaxAmount     decimal.Decimal `db:"tax_amount"`
	GrandTotal    decimal.Decimal `db:"grand_total"`
	PaymentStatus string          `db:"payment_status"`
	Notes         string          `db:"notes"`
	SaleDate      time.Time       `db:"sale_date"`
	CreatedBy     string          `db:"created_by"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r saleRow) toDomain() domain.Sale {
	return domain.Sale{
		ID:            r.ID,
		InvoiceNumber: r.InvoiceNumber,
		CustomerID:    r.CustomerID,
		Items:         []domain.LineItem(r.Items),
		Totals: domain.Totals{
			Subtotal:   r.Subtotal,
			Discount:   r.Discount,
			TaxRate:    r.TaxRate,
			TaxAmount:  r.TaxAmount,
			GrandTotal: r.GrandTotal,
		},
		PaymentStatus: r.PaymentStatus,
		Notes:         r.Notes,
		SaleDate:      r.SaleDate.UTC(),
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

const purchaseColumns = `id, supplier_name, items, subtotal, discount, tax_rate, tax_amount, grand_total, status, notes, purchase_date, created_by, created_at, updated_at`

type purchaseRow struct {
	ID           string          `db:"id"`
	SupplierName string          `db:"supplier_name"`
	Items        lineItems       `db:"items"`
	Subtotal     decimal.Decimal `db:"subtotal"`
	Discount     decimal.Decimal `db:"discount"`
	TaxRate      decimal.Decimal `db:"tax_rate"`
	TaxAmount    decimal.Decimal `db:"tax_amount"`
	GrandTotal   decimal.Decimal `db:"grand_total"`
	Status       string          `db:"status"`
	Notes        string          `db:"notes"`
	PurchaseDate time.Time       `db:"purchase_date"`
	CreatedBy    string          `db:"created_by"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (r purchaseRow) toDomain() domain.Purchase {
	return domain.Purchase{
		ID:           r.ID,
		SupplierName: r.SupplierName,
		Items:        []domain.LineItem(r.Items),
		Totals: domain.Totals{
			Subtotal:   r.Subtotal,
			Discount:   r.Discount,
			TaxRate:    r.TaxRate,
			TaxAmount:  r.TaxAmount,
			GrandTotal: r.GrandTotal,
		},
		Status:       r.Status,
		Notes:        r.Notes,
		PurchaseDate: r.PurchaseDate.UTC(),
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const userColumns = `id, name, email, password_hash, role, verified, password_changed_at, created_at`

type userRow struct {
	ID                string     `db:"id"`
	Name              string     `db:"name"`
	Email             string     `db:"email"`
	PasswordHash      string     `db:"password_hash"`
	Role              string     `db:"role"`
	Verified          bool       `db:"verified"`
	PasswordChangedAt *time.Time `db:"password_changed_at"`
	CreatedAt         time.Time  `db:"created_at"`
}

func (r userRow) toDomain() domain.UserAccount {
	return domain.UserAccount{
		ID:                r.ID,
		Name:              r.Name,
		Email:             r.Email,
		Password:          r.PasswordHash,
		Role:              r.Role,
		Verified:          r.Verified,
		PasswordChangedAt: utcPtr(r.PasswordChangedAt),
		CreatedAt:         r.CreatedAt.UTC(),
	}
}

const settingsColumns = `user_id, company_name, address, phone_number, email, tax_id, paper_size, default_invoice_template, show_company_details, dark_mode, updated_at`

type settingsRow struct {
	UserID                 string    `db:"user_id"`
	CompanyName            string    `db:"company_name"`
	Address                string    `db:"address"`
	PhoneNumber            string    `db:"phone_number"`
	Email                  string    `db:"email"`
	TaxID                  string    `db:"tax_id"`
	PaperSize              string    `db:"paper_size"`
	DefaultInvoiceTemplate string    `db:"default_invoice_template"`
	ShowCompanyDetails     bool      `db:"show_company_details"`
	DarkMode               bool      `db:"dark_mode"`
	UpdatedAt              time.Time `db:"updated_at"`
}

func (r settingsRow) toDomain() domain.Settings {
	return domain.Settings{
		UserID:                 r.UserID,
		CompanyName:            r.CompanyName,
		Address:                r.Address,
		PhoneNumber:            r.PhoneNumber,
		Email:                  r.Email,
		TaxID:                  r.TaxID,
		PaperSize:              r.PaperSize,
		DefaultInvoiceTemplate: r.DefaultInvoiceTemplate,
		ShowCompanyDetails:     r.ShowCompanyDetails,
		DarkMode:               r.DarkMode,
		UpdatedAt:              r.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
