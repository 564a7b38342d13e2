package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"accounting/backend/internal/clock"
	"accounting/backend/internal/domain"
	"accounting/backend/internal/metrics"
	"accounting/backend/internal/otp"
	"accounting/backend/internal/store/memory"
)

type sentMail struct {
	recipient string
	subject   string
	body      string
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (d *recordingDispatcher) Send(_ context.Context, recipient, subject, htmlBody string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, sentMail{recipient: recipient, subject: subject, body: htmlBody})
	return nil
}

func (d *recordingDispatcher) last() sentMail {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		return sentMail{}
	}
	return d.sent[len(d.sent)-1]
}

type testEnv struct {
	svc        *Service
	repo       *memory.Store
	dispatcher *recordingDispatcher
	clock      *clock.FakeClock
	registry   *prometheus.Registry
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	repo := memory.NewSeeded()
	dispatcher := &recordingDispatcher{}
	fake := clock.NewFakeClock(time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC))
	codes := otp.NewManager(repo, dispatcher,
		otp.WithClock(fake),
		otp.WithGenerator(func() (string, error) { return "123456", nil }),
		otp.WithHashCost(bcrypt.MinCost),
	)
	registry := prometheus.NewRegistry()
	svc := New(repo, codes, WithClock(fake), WithMetrics(metrics.New(registry)))
	return testEnv{svc: svc, repo: repo, dispatcher: dispatcher, clock: fake, registry: registry}
}

func assertCounter(t *testing.T, registry *prometheus.Registry, name, help string, want int) {
	t.Helper()
	expected := fmt.Sprintf("# HELP %[1]s %[2]s\n# TYPE %[1]s counter\n%[1]s %[3]d\n", name, help, want)
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), name))
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: "usr-admin", Email: "admin@accounting.local", Role: domain.RoleAdmin})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: "usr-cashier", Email: "cashier@accounting.local", Role: domain.RoleCashier})
}

func inventoryCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: "usr-inventory", Email: "inventory@accounting.local", Role: domain.RoleInventory})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "%s: expected %s, got %s", field, want, got)
}

func TestCreateSaleComputesTotalsAndUpdatesCustomer(t *testing.T) {
	env := newTestEnv(t)

	sale, err := env.svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		CustomerID: "cus-amina",
		Items: []domain.LineItem{
			{Name: "Shirt", Quantity: 2, UnitPrice: dec("10")},
			{Name: "Socks", Quantity: 1, UnitPrice: dec("5")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-001", sale.InvoiceNumber)
	assertDecimal(t, "25", sale.Subtotal, "subtotal")
	assertDecimal(t, "1.25", sale.TaxAmount, "tax")
	assertDecimal(t, "26.25", sale.GrandTotal, "grand total")
	assertDecimal(t, "20", sale.Items[0].LineTotal, "line total")
	assert.Equal(t, domain.PaymentPending, sale.PaymentStatus)
	assert.Equal(t, "usr-cashier", sale.CreatedBy)

	customer, err := env.svc.GetCustomer(context.Background(), "cus-amina")
	require.NoError(t, err)
	assert.Equal(t, 1, customer.TotalPurchases)
	require.NotNil(t, customer.LastPurchaseDate)
	assert.True(t, customer.LastPurchaseDate.Equal(sale.SaleDate))
	assertCounter(t, env.registry, "accounting_sales_created_total", "Sales persisted with an assigned invoice number.", 1)
}

func TestCreateSaleIgnoresClientTotals(t *testing.T) {
	env := newTestEnv(t)

	sale, err := env.svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		CustomerID: "cus-amina",
		Items:      []domain.LineItem{{Name: "Shirt", Quantity: 3, UnitPrice: dec("4.50"), LineTotal: dec("1")}},
		Discount:   dec("2"),
		TaxRate:    ptr(dec("10")),
	})
	require.NoError(t, err)
	// 13.50 - 2 = 11.50 taxable, 10% tax = 1.15.
	assertDecimal(t, "13.5", sale.Items[0].LineTotal, "line total")
	assertDecimal(t, "1.15", sale.TaxAmount, "tax")
	assertDecimal(t, "12.65", sale.GrandTotal, "grand total")
}

func TestCreateSaleValidation(t *testing.T) {
	env := newTestEnv(t)
	item := []domain.LineItem{{Name: "Shirt", Quantity: 1, UnitPrice: dec("10")}}

	cases := []struct {
		name string
		req  domain.SaleCreateRequest
	}{
		{"missing customer", domain.SaleCreateRequest{Items: item}},
		{"no items", domain.SaleCreateRequest{CustomerID: "cus-amina"}},
		{"zero quantity", domain.SaleCreateRequest{CustomerID: "cus-amina", Items: []domain.LineItem{{Name: "Shirt", Quantity: 0, UnitPrice: dec("1")}}}},
		{"negative discount", domain.SaleCreateRequest{CustomerID: "cus-amina", Items: item, Discount: dec("-1")}},
		{"tax above 100", domain.SaleCreateRequest{CustomerID: "cus-amina", Items: item, TaxRate: ptr(dec("101"))}},
		{"unknown status", domain.SaleCreateRequest{CustomerID: "cus-amina", Items: item, PaymentStatus: "Refunded"}},
		{"malformed invoice", domain.SaleCreateRequest{CustomerID: "cus-amina", Items: item, InvoiceNumber: "RCPT-9"}},
		{"invoice too long", domain.SaleCreateRequest{CustomerID: "cus-amina", Items: item, InvoiceNumber: "INV-9223372036854775807"}},
		{"last invoice number", domain.SaleCreateRequest{CustomerID: "cus-amina", Items: item, InvoiceNumber: "INV-999999999"}},
		{"long notes", domain.SaleCreateRequest{CustomerID: "cus-amina", Items: item, Notes: strings.Repeat("x", 501)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.CreateSale(cashierCtx(), tc.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	customer, err := env.svc.GetCustomer(context.Background(), "cus-amina")
	require.NoError(t, err)
	assert.Equal(t, 0, customer.TotalPurchases, "rejected sales must not touch the customer")
}

func TestCreateSaleRequiresRole(t *testing.T) {
	env := newTestEnv(t)
	req := domain.SaleCreateRequest{CustomerID: "cus-amina", Items: []domain.LineItem{{Name: "Shirt", Quantity: 1, UnitPrice: dec("1")}}}

	_, err := env.svc.CreateSale(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = env.svc.CreateSale(inventoryCtx(), req)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateSaleSuppliedInvoiceNumber(t *testing.T) {
	env := newTestEnv(t)
	items := []domain.LineItem{{Name: "Shirt", Quantity: 1, UnitPrice: dec("10")}}

	_, err := env.svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{CustomerID: "cus-amina", Items: items, InvoiceNumber: "inv-007"})
	require.NoError(t, err)
	_, err = env.svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{CustomerID: "cus-amina", Items: items, InvoiceNumber: "INV-007"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	next, err := env.svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{CustomerID: "cus-amina", Items: items})
	require.NoError(t, err)
	assert.Equal(t, "INV-008", next.InvoiceNumber)
	assertCounter(t, env.registry, "accounting_invoice_conflicts_total", "Sale writes rejected because the invoice number was already issued.", 1)
}

func TestCreateSaleZeroPaddedInvoiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	items := []domain.LineItem{{Name: "Shirt", Quantity: 1, UnitPrice: dec("10")}}

	first, err := env.svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{CustomerID: "cus-amina", Items: items})
	require.NoError(t, err)
	require.Equal(t, "INV-001", first.InvoiceNumber)

	// INV-0001 names the same invoice as INV-001.
	_, err = env.svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{CustomerID: "cus-amina", Items: items, InvoiceNumber: "INV-0001"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	padded, err := env.svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{CustomerID: "cus-amina", Items: items, InvoiceNumber: "INV-0042"})
	require.NoError(t, err)
	assert.Equal(t, "INV-042", padded.InvoiceNumber)

	sales, err := env.svc.ListSales(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, sales, 2)
}

func TestCreateSaleUnknownCustomer(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		CustomerID: "cus-ghost",
		Items:      []domain.LineItem{{Name: "Shirt", Quantity: 1, UnitPrice: dec("10")}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateSaleRecomputesFromMergedView(t *testing.T) {
	env := newTestEnv(t)
	sale, err := env.svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		CustomerID: "cus-amina",
		Items:      []domain.LineItem{{Name: "Shirt", Quantity: 2, UnitPrice: dec("10")}},
	})
	require.NoError(t, err)

	// Only the discount changes; stored items and tax rate still apply.
	updated, err := env.svc.UpdateSale(cashierCtx(), sale.ID, domain.SalePatch{Discount: ptr(dec("4"))})
	require.NoError(t, err)
	assertDecimal(t, "20", updated.Subtotal, "subtotal")
	assertDecimal(t, "0.8", updated.TaxAmount, "tax")
	assertDecimal(t, "16.8", updated.GrandTotal, "grand total")
	assert.Equal(t, sale.InvoiceNumber, updated.InvoiceNumber)

	paid := domain.PaymentPaid
	updated, err = env.svc.UpdateSale(cashierCtx(), sale.ID, domain.SalePatch{
		Items:         []domain.LineItem{{Name: "Shirt", Quantity: 1, UnitPrice: dec("10")}},
		PaymentStatus: &paid,
	})
	require.NoError(t, err)
	assertDecimal(t, "10", updated.Subtotal, "subtotal")
	assertDecimal(t, "6.3", updated.GrandTotal, "grand total")
	assert.Equal(t, domain.PaymentPaid, updated.PaymentStatus)

	_, err = env.svc.UpdateSale(cashierCtx(), sale.ID, domain.SalePatch{Discount: ptr(dec("-1"))})
	assert.ErrorIs(t, err, domain.ErrValidation)
	stored, err := env.svc.GetSale(context.Background(), sale.ID)
	require.NoError(t, err)
	assertDecimal(t, "4", stored.Discount, "discount after failed update")
}

func TestDeleteSaleDecrementsCustomerAndRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	sale, err := env.svc.CreateSale(cashierCtx(), domain.SaleCreateRequest{
		CustomerID: "cus-walkin",
		Items:      []domain.LineItem{{Name: "Shirt", Quantity: 1, UnitPrice: dec("10")}},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.DeleteSale(cashierCtx(), sale.ID), domain.ErrForbidden)
	require.NoError(t, env.svc.DeleteSale(adminCtx(), sale.ID))

	customer, err := env.svc.GetCustomer(context.Background(), "cus-walkin")
	require.NoError(t, err)
	assert.Equal(t, 0, customer.TotalPurchases)
	_, err = env.svc.GetSale(context.Background(), sale.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreatePurchaseDefaults(t *testing.T) {
	env := newTestEnv(t)
	purchase, err := env.svc.CreatePurchase(adminCtx(), domain.PurchaseCreateRequest{
		SupplierName: "Textile Wholesale",
		Items:        []domain.LineItem{{Name: "Cotton roll", Quantity: 3, UnitPrice: dec("100")}},
		Discount:     dec("50"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseDraft, purchase.Status)
	assert.True(t, purchase.TaxRate.IsZero())
	assertDecimal(t, "250", purchase.GrandTotal, "grand total")
	assert.Equal(t, "usr-admin", purchase.CreatedBy)

	received := domain.PurchaseReceived
	updated, err := env.svc.UpdatePurchase(adminCtx(), purchase.ID, domain.PurchasePatch{Status: &received, TaxRate: ptr(dec("10"))})
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseReceived, updated.Status)
	assertDecimal(t, "275", updated.GrandTotal, "grand total")
}

func TestAdjustStockOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminCtx()

	view, err := env.svc.AdjustStock(ctx, "inv-socks", domain.StockAdjustRequest{Amount: 4, Operation: "subtract"})
	require.NoError(t, err)
	assert.Equal(t, 2, view.Quantity)
	assert.Equal(t, domain.LowStock, view.StockStatus)

	_, err = env.svc.AdjustStock(ctx, "inv-socks", domain.StockAdjustRequest{Amount: 3, Operation: "subtract"})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "available quantity 2")

	view, err = env.svc.AdjustStock(ctx, "inv-socks", domain.StockAdjustRequest{Amount: 18, Operation: "add"})
	require.NoError(t, err)
	assert.Equal(t, 20, view.Quantity)
	assert.Equal(t, domain.InStock, view.StockStatus)
	assert.Equal(t, 40, view.StockLevel)
	require.NotNil(t, view.LastRestocked)
	assert.True(t, view.LastRestocked.Equal(env.clock.Now()))

	view, err = env.svc.AdjustStock(ctx, "inv-socks", domain.StockAdjustRequest{Amount: 0, Operation: "set"})
	require.NoError(t, err)
	assert.Equal(t, 0, view.Quantity)
	assert.Equal(t, domain.OutOfStock, view.StockStatus)

	_, err = env.svc.AdjustStock(ctx, "inv-socks", domain.StockAdjustRequest{Amount: 1, Operation: "multiply"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.AdjustStock(ctx, "inv-missing", domain.StockAdjustRequest{Amount: 1, Operation: "add"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdjustStockRequiresOperation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.AdjustStock(adminCtx(), "inv-socks", domain.StockAdjustRequest{Amount: 0})
	assert.ErrorIs(t, err, domain.ErrValidation)

	item, err := env.svc.GetInventoryItem(context.Background(), "inv-socks")
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity, "a request without an operation must not zero the item")
}

func TestAdjustStockRejectsOverflow(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.AdjustStock(adminCtx(), "inv-socks", domain.StockAdjustRequest{Amount: math.MaxInt - 3, Operation: "add"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.AdjustStock(adminCtx(), "inv-socks", domain.StockAdjustRequest{Amount: math.MaxInt32, Operation: "add"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	item, err := env.svc.GetInventoryItem(context.Background(), "inv-socks")
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity)
}

func TestAdjustStockOpenToEveryRole(t *testing.T) {
	env := newTestEnv(t)

	view, err := env.svc.AdjustStock(cashierCtx(), "inv-socks", domain.StockAdjustRequest{Amount: 1, Operation: "subtract"})
	require.NoError(t, err)
	assert.Equal(t, 5, view.Quantity)

	view, err = env.svc.AdjustStock(inventoryCtx(), "inv-socks", domain.StockAdjustRequest{Amount: 5, Operation: "add"})
	require.NoError(t, err)
	assert.Equal(t, 10, view.Quantity)

	_, err = env.svc.AdjustStock(context.Background(), "inv-socks", domain.StockAdjustRequest{Amount: 1, Operation: "add"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCreateInventoryItemDefaults(t *testing.T) {
	env := newTestEnv(t)
	view, err := env.svc.CreateInventoryItem(adminCtx(), domain.InventoryCreateRequest{
		ItemName: "Linen Scarf",
		Category: "Accessories",
		Price:    dec("15"),
		Quantity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, view.LowStockThreshold)
	assert.Equal(t, domain.LowStock, view.StockStatus)
	assert.Equal(t, 10, view.StockLevel)
	assert.True(t, strings.HasPrefix(view.SKU, "SKU-"), "expected generated SKU, got %s", view.SKU)

	_, err = env.svc.CreateInventoryItem(adminCtx(), domain.InventoryCreateRequest{ItemName: "Cap", Category: "Accessories", Quantity: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.CreateInventoryItem(adminCtx(), domain.InventoryCreateRequest{ItemName: "Cap", Category: "Accessories", Quantity: math.MaxInt32 + 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.svc.CreateInventoryItem(cashierCtx(), domain.InventoryCreateRequest{ItemName: "Cap", Category: "Accessories", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCustomerAndSupplierViews(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.svc.CreateCustomer(cashierCtx(), domain.CustomerCreateRequest{Name: "Rina", Phone: "0812 9999 0000"})
	require.NoError(t, err)
	assert.Equal(t, "081299990000", created.Phone)
	assert.Equal(t, "New", created.Status)

	_, err = env.svc.CreateCustomer(cashierCtx(), domain.CustomerCreateRequest{Name: "Other", Phone: "081299990000"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	suppliers, err := env.svc.ListSuppliers(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, suppliers, 1)
	assert.Equal(t, "Silver", suppliers[0].Tier)
}

func TestSignupSendsVerificationCode(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.svc.Signup(adminCtx(), domain.SignupRequest{Name: "Dewi", Email: " Dewi@Example.com ", Password: "s3cret-pass", Role: "inventory"})
	require.NoError(t, err)
	assert.Equal(t, "dewi@example.com", user.Email)
	assert.False(t, user.Verified)
	assert.Equal(t, domain.RoleInventory, user.Role)

	mail := env.dispatcher.last()
	assert.Equal(t, "dewi@example.com", mail.recipient)
	assert.Equal(t, "Email Verification", mail.subject)
	assert.Contains(t, mail.body, "123456")

	err = env.svc.VerifyEmail(context.Background(), domain.OTPVerifyRequest{Email: "dewi@example.com", Code: "000000"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	require.NoError(t, env.svc.VerifyEmail(context.Background(), domain.OTPVerifyRequest{Email: "dewi@example.com", Code: "123456"}))

	stored, err := env.repo.GetUserByEmail(context.Background(), "dewi@example.com")
	require.NoError(t, err)
	assert.True(t, stored.Verified)
	_, err = env.repo.GetCode(context.Background(), "dewi@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound, "code must be revoked after verification")

	_, err = env.svc.Signup(cashierCtx(), domain.SignupRequest{Name: "Eko", Email: "eko@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := "cashier@accounting.local"

	_, err := env.svc.RequestPasswordReset(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "Password Reset OTP", env.dispatcher.last().subject)

	err = env.svc.ResetPassword(ctx, domain.PasswordResetRequest{Email: email, Code: "123456", NewPassword: "short"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	require.NoError(t, env.svc.ResetPassword(ctx, domain.PasswordResetRequest{Email: email, Code: "123456", NewPassword: "brand-new-pass"}))

	user, err := env.repo.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("brand-new-pass")))
	assert.NotNil(t, user.PasswordChangedAt)

	err = env.svc.ResetPassword(ctx, domain.PasswordResetRequest{Email: email, Code: "123456", NewPassword: "another-pass"})
	assert.ErrorIs(t, err, domain.ErrNotFound, "consumed code must be gone")

	_, err = env.svc.RequestPasswordReset(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyOTPExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.SendOTP(ctx, domain.OTPSendRequest{Email: "a@example.com", Subject: "Hi", Message: "use this", DurationHours: 1})
	require.NoError(t, err)
	ok, err := env.svc.VerifyOTP(ctx, domain.OTPVerifyRequest{Email: "a@example.com", Code: "123456"})
	require.NoError(t, err)
	assert.True(t, ok)

	env.clock.Advance(time.Hour + time.Second)
	_, err = env.svc.VerifyOTP(ctx, domain.OTPVerifyRequest{Email: "a@example.com", Code: "123456"})
	assert.ErrorIs(t, err, domain.ErrExpired)
	_, err = env.svc.VerifyOTP(ctx, domain.OTPVerifyRequest{Email: "a@example.com", Code: "123456"})
	assert.ErrorIs(t, err, domain.ErrNotFound, "expired code must be deleted")
}

func TestSendOTPDispatchFailureStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.err = errors.New("smtp down")

	_, err := env.svc.SendOTP(context.Background(), domain.OTPSendRequest{Email: "b@example.com", Subject: "Hi", Message: "code"})
	require.Error(t, err)
	_, err = env.repo.GetCode(context.Background(), "b@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettingsDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)

	settings, err := env.svc.GetSettings(cashierCtx())
	require.NoError(t, err)
	assert.Equal(t, domain.PaperA4, settings.PaperSize)
	assert.Equal(t, "usr-cashier", settings.UserID)

	settings.PaperSize = "A5"
	_, err = env.svc.UpdateSettings(cashierCtx(), settings)
	assert.ErrorIs(t, err, domain.ErrValidation)

	settings.PaperSize = domain.PaperLetter
	settings.CompanyName = " Corner Shop "
	saved, err := env.svc.UpdateSettings(cashierCtx(), settings)
	require.NoError(t, err)
	assert.Equal(t, "Corner Shop", saved.CompanyName)
	assert.Equal(t, domain.PaperLetter, saved.PaperSize)
}

func ptr[T any](v T) *T {
	return &v
}
