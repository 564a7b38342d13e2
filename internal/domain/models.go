package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin     = "admin"
	RoleCashier   = "cashier"
	RoleInventory = "inventory"
)

const (
	PaymentPaid    = "Paid"
	PaymentPending = "Pending"
	PaymentOverdue = "Overdue"
)

const (
	PurchaseDraft     = "Draft"
	PurchaseOrdered   = "Ordered"
	PurchaseReceived  = "Received"
	PurchaseCancelled = "Cancelled"
)

type StockStatus string

const (
	OutOfStock StockStatus = "Out of Stock"
	LowStock   StockStatus = "Low Stock"
	InStock    StockStatus = "In Stock"
)

type Actor struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type LineItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Totals holds the derived monetary fields of a sale or purchase.
// Subtotal, TaxAmount and GrandTotal are always recomputed from items,
// Discount and TaxRate on write.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type Sale struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	CustomerID    string     `json:"customer_id"`
	Items         []LineItem `json:"items"`
	Totals
	PaymentStatus string    `json:"payment_status"`
	Notes         string    `json:"notes,omitempty"`
	SaleDate      time.Time `json:"sale_date"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SaleCreateRequest struct {
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	CustomerID    string           `json:"customer_id"`
	Items         []LineItem       `json:"items"`
	Discount      decimal.Decimal  `json:"discount"`
	TaxRate       *decimal.Decimal `json:"tax_rate,omitempty"`
	PaymentStatus string           `json:"payment_status,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	SaleDate      *time.Time       `json:"sale_date,omitempty"`
}

// SalePatch carries a partial update. Nil fields keep their stored value;
// Items replaces the whole list when non-nil.
type SalePatch struct {
	Items         []LineItem       `json:"items,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
	TaxRate       *decimal.Decimal `json:"tax_rate,omitempty"`
	PaymentStatus *string          `json:"payment_status,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	SaleDate      *time.Time       `json:"sale_date,omitempty"`
}

type Purchase struct {
	ID           string     `json:"id"`
	SupplierName string     `json:"supplier_name"`
	Items        []LineItem `json:"items"`
	Totals
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	PurchaseDate time.Time `json:"purchase_date"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PurchaseCreateRequest struct {
	SupplierName string           `json:"supplier_name"`
	Items        []LineItem       `json:"items"`
	Discount     decimal.Decimal  `json:"discount"`
	TaxRate      *decimal.Decimal `json:"tax_rate,omitempty"`
	Status       string           `json:"status,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	PurchaseDate *time.Time       `json:"purchase_date,omitempty"`
}

type PurchasePatch struct {
	SupplierName *string          `json:"supplier_name,omitempty"`
	Items        []LineItem       `json:"items,omitempty"`
	Discount     *decimal.Decimal `json:"discount,omitempty"`
	TaxRate      *decimal.Decimal `json:"tax_rate,omitempty"`
	Status       *string          `json:"status,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
	PurchaseDate *time.Time       `json:"purchase_date,omitempty"`
}

type InventoryItem struct {
	ID                string          `json:"id"`
	ItemName          string          `json:"item_name"`
	Category          string          `json:"category"`
	SupplierID        string          `json:"supplier_id,omitempty"`
	Size              string          `json:"size,omitempty"`
	Color             string          `json:"color,omitempty"`
	Price             decimal.Decimal `json:"price"`
	SKU               string          `json:"sku"`
	Quantity          int             `json:"quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	LastRestocked     *time.Time      `json:"last_restocked"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// InventoryView is an inventory record with its read-time projections.
type InventoryView struct {
	InventoryItem
	StockStatus StockStatus `json:"stock_status"`
	StockLevel  int         `json:"stock_level"`
}

type InventoryCreateRequest struct {
	ItemName          string          `json:"item_name"`
	Category          string          `json:"category"`
	SupplierID        string          `json:"supplier_id,omitempty"`
	Size              string          `json:"size,omitempty"`
	Color             string          `json:"color,omitempty"`
	Price             decimal.Decimal `json:"price"`
	SKU               string          `json:"sku,omitempty"`
	Quantity          int             `json:"quantity"`
	LowStockThreshold *int            `json:"low_stock_threshold,omitempty"`
}

type StockAdjustRequest struct {
	Amount    int    `json:"amount"`
	Operation string `json:"operation"`
}

type Customer struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email,omitempty"`
	Address          string     `json:"address,omitempty"`
	TotalPurchases   int        `json:"total_purchases"`
	LastPurchaseDate *time.Time `json:"last_purchase_date"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type CustomerView struct {
	Customer
	Status string `json:"customer_status"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

type Supplier struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Company        string          `json:"company"`
	ContactNumber  string          `json:"contact_number"`
	Email          string          `json:"email,omitempty"`
	Address        string          `json:"address,omitempty"`
	TotalPurchases decimal.Decimal `json:"total_purchases"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type SupplierView struct {
	Supplier
	Tier string `json:"supplier_tier"`
}

type SupplierCreateRequest struct {
	Name           string          `json:"name"`
	Company        string          `json:"company"`
	ContactNumber  string          `json:"contact_number"`
	Email          string          `json:"email,omitempty"`
	Address        string          `json:"address,omitempty"`
	TotalPurchases decimal.Decimal `json:"total_purchases"`
}

// OneTimeCode is the persisted form of an issued verification code.
// Only the bcrypt hash of the code is stored.
type OneTimeCode struct {
	Identity  string    `json:"identity"`
	CodeHash  string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UserAccount struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Password          string     `json:"-"`
	Role              string     `json:"role"`
	Verified          bool       `json:"verified"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type OTPSendRequest struct {
	Email         string `json:"email"`
	Subject       string `json:"subject"`
	Message       string `json:"message"`
	DurationHours int    `json:"duration_hours,omitempty"`
}

type OTPVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type PasswordResetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

// ProfileUpdateRequest carries the fields a user may change on their own
// account. Role is deliberately absent.
type ProfileUpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

type ChangePasswordRequest struct {
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

type UserUpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

const (
	PaperA4     = "A4"
	PaperLetter = "Letter"
)

type Settings struct {
	UserID                 string    `json:"user_id"`
	CompanyName            string    `json:"company_name"`
	Address                string    `json:"address"`
	PhoneNumber            string    `json:"phone_number"`
	Email                  string    `json:"email"`
	TaxID                  string    `json:"tax_id"`
	PaperSize              string    `json:"paper_size"`
	DefaultInvoiceTemplate string    `json:"default_invoice_template"`
	ShowCompanyDetails     bool      `json:"show_company_details"`
	DarkMode               bool      `json:"dark_mode"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// DefaultSettings is returned for users that never saved their settings.
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID:                 userID,
		PaperSize:              PaperA4,
		DefaultInvoiceTemplate: "Modern",
		ShowCompanyDetails:     true,
	}
}
