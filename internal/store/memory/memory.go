package memory

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"accounting/backend/internal/customer"
	"accounting/backend/internal/domain"
	"accounting/backend/internal/invoice"
	"accounting/backend/internal/stock"
	"accounting/backend/internal/store"
	"accounting/backend/internal/xid"
)

// Store keeps everything in maps behind one mutex, so every repository call
// is a single critical section.
type Store struct {
	mu              sync.RWMutex
	customersByID   map[string]domain.Customer
	suppliersByID   map[string]domain.Supplier
	inventoryByID   map[string]domain.InventoryItem
	salesByID       map[string]domain.Sale
	purchasesByID   map[string]domain.Purchase
	codesByIdentity map[string]domain.OneTimeCode
	usersByEmail    map[string]domain.UserAccount
	settingsByUser  map[string]domain.Settings
	lastInvoice     map[string]string
}

func New() *Store {
	return &Store{
		customersByID:   make(map[string]domain.Customer),
		suppliersByID:   make(map[string]domain.Supplier),
		inventoryByID:   make(map[string]domain.InventoryItem),
		salesByID:       make(map[string]domain.Sale),
		purchasesByID:   make(map[string]domain.Purchase),
		codesByIdentity: make(map[string]domain.OneTimeCode),
		usersByEmail:    make(map[string]domain.UserAccount),
		settingsByUser:  make(map[string]domain.Settings),
		lastInvoice:     make(map[string]string),
	}
}

// seedUsers builds one verified account per role for dev/demo mode.
// Passwords come from SEED_ADMIN_PASSWORD, SEED_CASHIER_PASSWORD and
// SEED_INVENTORY_PASSWORD; dev defaults are used with a warning otherwise.
func seedUsers(now time.Time) []domain.UserAccount {
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" || os.Getenv("SEED_INVENTORY_PASSWORD") == "" {
		zap.L().Warn("memory store using default dev credentials; set SEED_ADMIN_PASSWORD, SEED_CASHIER_PASSWORD and SEED_INVENTORY_PASSWORD to override")
	}

	users := make([]domain.UserAccount, 0, 3)
	for _, u := range []struct {
		id       string
		name     string
		email    string
		password string
		role     string
	}{
		{"usr-admin", "Admin", "admin@accounting.local", envOr("SEED_ADMIN_PASSWORD", "admin12345"), domain.RoleAdmin},
		{"usr-cashier", "Cashier", "cashier@accounting.local", envOr("SEED_CASHIER_PASSWORD", "cashier12345"), domain.RoleCashier},
		{"usr-inventory", "Stock Keeper", "inventory@accounting.local", envOr("SEED_INVENTORY_PASSWORD", "inventory12345"), domain.RoleInventory},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			zap.L().Fatal("hash seed password", zap.String("email", u.email), zap.Error(err))
		}
		users = append(users, domain.UserAccount{
			ID:        u.id,
			Name:      u.name,
			Email:     u.email,
			Password:  string(hash),
			Role:      u.role,
			Verified:  true,
			CreatedAt: now,
		})
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with demo accounts, customers, suppliers and
// stock so the API is usable without a database.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	for _, u := range seedUsers(now) {
		s.usersByEmail[u.Email] = u
	}

	for _, c := range []domain.Customer{
		{ID: "cus-walkin", Name: "Walk-in Customer", Phone: "0000000000"},
		{ID: "cus-amina", Name: "Amina Yusuf", Phone: "0812345678", Email: "amina@example.com"},
	} {
		c.CreatedAt, c.UpdatedAt = now, now
		s.customersByID[c.ID] = c
	}

	s.suppliersByID["sup-textile"] = domain.Supplier{
		ID:             "sup-textile",
		Name:           "Budi Santoso",
		Company:        "Textile Wholesale",
		ContactNumber:  "0219876543",
		TotalPurchases: decimal.NewFromInt(12500),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for _, item := range []domain.InventoryItem{
		{ID: "inv-tshirt-m", ItemName: "Cotton T-Shirt", Category: "Apparel", SupplierID: "sup-textile", Size: "M", Color: "White", Price: decimal.RequireFromString("12.50"), SKU: "SKU-TSHIRT-M", Quantity: 40},
		{ID: "inv-socks", ItemName: "Ankle Socks", Category: "Apparel", Price: decimal.RequireFromString("3.00"), SKU: "SKU-SOCKS", Quantity: 6},
		{ID: "inv-cap", ItemName: "Baseball Cap", Category: "Accessories", Price: decimal.RequireFromString("8.75"), SKU: "SKU-CAP", Quantity: 0},
	} {
		item.LowStockThreshold = stock.DefaultLowStockThreshold
		item.CreatedAt, item.UpdatedAt = now, now
		s.inventoryByID[item.ID] = item
	}

	return s
}

func (s *Store) CreateCustomer(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.customersByID {
		if existing.Phone == c.Phone {
			return nil, fmt.Errorf("%w: phone %s already registered", domain.ErrConflict, c.Phone)
		}
	}
	if c.ID == "" {
		c.ID = xid.New("cus")
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	s.customersByID[c.ID] = c
	return cloneCustomer(c), nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customersByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, id)
	}
	return cloneCustomer(c), nil
}

func (s *Store) ListCustomers(_ context.Context, limit int) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		out = append(out, *cloneCustomer(c))
	}
	slices.SortFunc(out, func(a, b domain.Customer) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return truncate(out, limit), nil
}

func (s *Store) CreateSupplier(_ context.Context, sup domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.suppliersByID {
		if existing.ContactNumber == sup.ContactNumber {
			return nil, fmt.Errorf("%w: contact number %s already registered", domain.ErrConflict, sup.ContactNumber)
		}
	}
	if sup.ID == "" {
		sup.ID = xid.New("sup")
	}
	now := time.Now().UTC()
	sup.CreatedAt, sup.UpdatedAt = now, now
	s.suppliersByID[sup.ID] = sup
	created := sup
	return &created, nil
}

func (s *Store) ListSuppliers(_ context.Context, limit int) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Supplier, 0, len(s.suppliersByID))
	for _, sup := range s.suppliersByID {
		out = append(out, sup)
	}
	slices.SortFunc(out, func(a, b domain.Supplier) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return truncate(out, limit), nil
}

func (s *Store) CreateInventoryItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if item.SKU == "" {
		item.SKU = stock.GenerateSKU(now, len(s.inventoryByID))
	}
	for _, existing := range s.inventoryByID {
		if strings.EqualFold(existing.SKU, item.SKU) {
			return nil, fmt.Errorf("%w: sku %s already exists", domain.ErrConflict, item.SKU)
		}
	}
	if item.SupplierID != "" {
		if _, ok := s.suppliersByID[item.SupplierID]; !ok {
			return nil, fmt.Errorf("%w: supplier %s", domain.ErrNotFound, item.SupplierID)
		}
	}
	if item.ID == "" {
		item.ID = xid.New("inv")
	}
	item.CreatedAt, item.UpdatedAt = now, now
	s.inventoryByID[item.ID] = item
	return cloneInventory(item), nil
}

func (s *Store) GetInventoryItem(_ context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.inventoryByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: inventory item %s", domain.ErrNotFound, id)
	}
	return cloneInventory(item), nil
}

func (s *Store) ListInventoryItems(_ context.Context, limit int) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.InventoryItem, 0, len(s.inventoryByID))
	for _, item := range s.inventoryByID {
		out = append(out, *cloneInventory(item))
	}
	slices.SortFunc(out, func(a, b domain.InventoryItem) int {
		return cmp.Compare(a.ItemName, b.ItemName)
	})
	return truncate(out, limit), nil
}

func (s *Store) AdjustInventoryQuantity(_ context.Context, id string, amount int, op stock.Operation, at time.Time) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.inventoryByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: inventory item %s", domain.ErrNotFound, id)
	}
	updated, err := stock.Adjust(item, amount, op, at)
	if err != nil {
		return nil, err
	}
	s.inventoryByID[id] = updated
	return cloneInventory(updated), nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cust, ok := s.customersByID[sale.CustomerID]
	if !ok {
		return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, sale.CustomerID)
	}

	last := s.lastInvoice[invoice.SequenceName]
	if sale.InvoiceNumber == "" {
		next, err := invoice.Next(last)
		if err != nil {
			return nil, err
		}
		sale.InvoiceNumber = next
	}
	canonical, err := invoice.Canonical(sale.InvoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: invoice number %q", domain.ErrValidation, sale.InvoiceNumber)
	}
	sale.InvoiceNumber = canonical
	later, err := invoice.Later(sale.InvoiceNumber, last)
	if err != nil {
		return nil, err
	}
	for _, existing := range s.salesByID {
		if existing.InvoiceNumber == sale.InvoiceNumber {
			return nil, fmt.Errorf("%w: invoice number %s already issued", domain.ErrConflict, sale.InvoiceNumber)
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	now := time.Now().UTC()
	sale.CreatedAt, sale.UpdatedAt = now, now
	sale.Items = slices.Clone(sale.Items)

	if later {
		s.lastInvoice[invoice.SequenceName] = sale.InvoiceNumber
	}
	cust = customer.OnSaleCreated(cust, sale.SaleDate)
	cust.UpdatedAt = now
	s.customersByID[cust.ID] = cust
	s.salesByID[sale.ID] = sale
	return cloneSale(sale), nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		out = append(out, *cloneSale(sale))
	}
	slices.SortFunc(out, func(a, b domain.Sale) int {
		return b.SaleDate.Compare(a.SaleDate)
	})
	return truncate(out, limit), nil
}

func (s *Store) UpdateSale(_ context.Context, id string, mutate store.SaleMutator) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.salesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
	}
	updated, err := mutate(*cloneSale(current))
	if err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.InvoiceNumber = current.InvoiceNumber
	updated.CustomerID = current.CustomerID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	s.salesByID[id] = updated
	return cloneSale(updated), nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
	}
	delete(s.salesByID, id)
	if cust, ok := s.customersByID[sale.CustomerID]; ok {
		cust = customer.OnSaleDeleted(cust)
		cust.UpdatedAt = time.Now().UTC()
		s.customersByID[cust.ID] = cust
	}
	return nil
}

func (s *Store) CreatePurchase(_ context.Context, p domain.Purchase) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = xid.New("pur")
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	p.Items = slices.Clone(p.Items)
	s.purchasesByID[p.ID] = p
	return clonePurchase(p), nil
}

func (s *Store) GetPurchase(_ context.Context, id string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.purchasesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: purchase %s", domain.ErrNotFound, id)
	}
	return clonePurchase(p), nil
}

func (s *Store) ListPurchases(_ context.Context, limit int) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Purchase, 0, len(s.purchasesByID))
	for _, p := range s.purchasesByID {
		out = append(out, *clonePurchase(p))
	}
	slices.SortFunc(out, func(a, b domain.Purchase) int {
		return b.PurchaseDate.Compare(a.PurchaseDate)
	})
	return truncate(out, limit), nil
}

func (s *Store) UpdatePurchase(_ context.Context, id string, mutate store.PurchaseMutator) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.purchasesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: purchase %s", domain.ErrNotFound, id)
	}
	updated, err := mutate(*clonePurchase(current))
	if err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.CreatedBy = current.CreatedBy
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	s.purchasesByID[id] = updated
	return clonePurchase(updated), nil
}

func (s *Store) DeletePurchase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.purchasesByID[id]; !ok {
		return fmt.Errorf("%w: purchase %s", domain.ErrNotFound, id)
	}
	delete(s.purchasesByID, id)
	return nil
}

func (s *Store) SaveCode(_ context.Context, code domain.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codesByIdentity[code.Identity] = code
	return nil
}

func (s *Store) GetCode(_ context.Context, identity string) (domain.OneTimeCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	code, ok := s.codesByIdentity[identity]
	if !ok {
		return domain.OneTimeCode{}, domain.ErrNotFound
	}
	return code, nil
}

func (s *Store) DeleteCode(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codesByIdentity, identity)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[user.Email]; exists {
		return nil, fmt.Errorf("%w: email %s already registered", domain.ErrConflict, user.Email)
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	user.CreatedAt = time.Now().UTC()
	s.usersByEmail[user.Email] = user
	created := user
	return &created, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByEmail[email]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, email)
	}
	return &user, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.userByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	return &user, nil
}

func (s *Store) ListUsers(_ context.Context, limit int) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UserAccount, 0, len(s.usersByEmail))
	for _, user := range s.usersByEmail {
		out = append(out, user)
	}
	slices.SortFunc(out, func(a, b domain.UserAccount) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Email, b.Email)
	})
	return truncate(out, limit), nil
}

func (s *Store) UpdateUser(_ context.Context, id string, mutate store.UserMutator) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.userByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	updated, err := mutate(current)
	if err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.Password = current.Password
	updated.PasswordChangedAt = current.PasswordChangedAt
	updated.CreatedAt = current.CreatedAt

	if updated.Email != current.Email {
		if _, taken := s.usersByEmail[updated.Email]; taken {
			return nil, fmt.Errorf("%w: email %s already registered", domain.ErrConflict, updated.Email)
		}
		delete(s.usersByEmail, current.Email)
	}
	s.usersByEmail[updated.Email] = updated
	return &updated, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.userByID(id)
	if !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	delete(s.usersByEmail, user.Email)
	delete(s.settingsByUser, user.ID)
	return nil
}

// userByID scans the email index; callers hold the lock.
func (s *Store) userByID(id string) (domain.UserAccount, bool) {
	for _, user := range s.usersByEmail {
		if user.ID == id {
			return user, true
		}
	}
	return domain.UserAccount{}, false
}

func (s *Store) SetUserVerified(_ context.Context, email string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByEmail[email]
	if !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, email)
	}
	user.Verified = verified
	s.usersByEmail[email] = user
	return nil
}

func (s *Store) UpdateUserPassword(_ context.Context, email string, passwordHash string, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByEmail[email]
	if !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, email)
	}
	changed := changedAt.UTC()
	user.Password = passwordHash
	user.PasswordChangedAt = &changed
	s.usersByEmail[email] = user
	return nil
}

func (s *Store) GetSettings(_ context.Context, userID string) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if settings, ok := s.settingsByUser[userID]; ok {
		return settings, nil
	}
	return domain.DefaultSettings(userID), nil
}

func (s *Store) UpsertSettings(_ context.Context, settings domain.Settings) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.UpdatedAt = time.Now().UTC()
	s.settingsByUser[settings.UserID] = settings
	return settings, nil
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func cloneCustomer(c domain.Customer) *domain.Customer {
	if c.LastPurchaseDate != nil {
		last := *c.LastPurchaseDate
		c.LastPurchaseDate = &last
	}
	return &c
}

func cloneInventory(item domain.InventoryItem) *domain.InventoryItem {
	if item.LastRestocked != nil {
		last := *item.LastRestocked
		item.LastRestocked = &last
	}
	return &item
}

func cloneSale(sale domain.Sale) *domain.Sale {
	sale.Items = slices.Clone(sale.Items)
	return &sale
}

func clonePurchase(p domain.Purchase) *domain.Purchase {
	p.Items = slices.Clone(p.Items)
	return &p
}
