package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"accounting/backend/internal/customer"
	"accounting/backend/internal/domain"
	"accounting/backend/internal/invoice"
	"accounting/backend/internal/stock"
	"accounting/backend/internal/store"
	"accounting/backend/internal/xid"
)

type Store struct {
	db *sqlx.DB
}

// New connects, verifies the connection and applies pending migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := RunMigrations(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateCustomer(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	if c.ID == "" {
		c.ID = xid.New("cus")
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, address, total_purchases, last_purchase_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, c.ID, c.Name, c.Phone, c.Email, c.Address, c.TotalPurchases, nullTime(c.LastPurchaseDate), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: phone %s already registered", domain.ErrConflict, c.Phone)
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var row customerRow
	err := s.db.GetContext(ctx, &row, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	c := row.toDomain()
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context, limit int) ([]domain.Customer, error) {
	var rows []customerRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+customerColumns+` FROM customers
		ORDER BY created_at DESC
		LIMIT $1
	`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Customer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) CreateSupplier(ctx context.Context, sup domain.Supplier) (*domain.Supplier, error) {
	if sup.ID == "" {
		sup.ID = xid.New("sup")
	}
	now := time.Now().UTC()
	sup.CreatedAt, sup.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, company, contact_number, email, address, total_purchases, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, sup.ID, sup.Name, sup.Company, sup.ContactNumber, sup.Email, sup.Address, sup.TotalPurchases, sup.CreatedAt, sup.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: contact number %s already registered", domain.ErrConflict, sup.ContactNumber)
		}
		return nil, err
	}
	return &sup, nil
}

func (s *Store) ListSuppliers(ctx context.Context, limit int) ([]domain.Supplier, error) {
	var rows []supplierRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+supplierColumns+` FROM suppliers
		ORDER BY name
		LIMIT $1
	`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Supplier, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	if item.ID == "" {
		item.ID = xid.New("inv")
	}
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now

	if item.SKU == "" {
		var count int
		if err := s.db.GetContext(ctx, &count, `SELECT count(*) FROM inventory_items`); err != nil {
			return nil, err
		}
		item.SKU = stock.GenerateSKU(now, count)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (id, item_name, category, supplier_id, size, color, price, sku, quantity, low_stock_threshold, last_restocked, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, item.ID, item.ItemName, item.Category, nullIfEmpty(item.SupplierID), item.Size, item.Color, item.Price, item.SKU,
		item.Quantity, item.LowStockThreshold, nullTime(item.LastRestocked), item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sku %s already exists", domain.ErrConflict, item.SKU)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: supplier %s", domain.ErrNotFound, item.SupplierID)
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var row inventoryRow
	err := s.db.GetContext(ctx, &row, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: inventory item %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	item := row.toDomain()
	return &item, nil
}

func (s *Store) ListInventoryItems(ctx context.Context, limit int) ([]domain.InventoryItem, error) {
	var rows []inventoryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+inventoryColumns+` FROM inventory_items
		ORDER BY item_name
		LIMIT $1
	`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.InventoryItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// AdjustInventoryQuantity holds the row lock from the availability check
// through the write, so concurrent subtracts cannot both pass the check.
func (s *Store) AdjustInventoryQuantity(ctx context.Context, id string, amount int, op stock.Operation, at time.Time) (*domain.InventoryItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var row inventoryRow
	err = tx.GetContext(ctx, &row, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: inventory item %s", domain.ErrNotFound, id)
		}
		return nil, err
	}

	updated, err := stock.Adjust(row.toDomain(), amount, op, at)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE inventory_items
		SET quantity = $2, last_restocked = $3, updated_at = $4
		WHERE id = $1
	`, id, updated.Quantity, nullTime(updated.LastRestocked), updated.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

// CreateSale locks the customer row and the sale sequence row, so invoice
// assignment and the customer aggregate change commit together with the sale.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var custRow customerRow
	err = tx.GetContext(ctx, &custRow, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, sale.CustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, sale.CustomerID)
		}
		return nil, err
	}

	last, err := lockSequence(ctx, tx, invoice.SequenceName)
	if err != nil {
		return nil, err
	}
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

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	now := time.Now().UTC()
	sale.CreatedAt, sale.UpdatedAt = now, now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, invoice_number, customer_id, items, subtotal, discount, tax_rate, tax_amount, grand_total, payment_status, notes, sale_date, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, sale.ID, sale.InvoiceNumber, sale.CustomerID, lineItems(sale.Items), sale.Subtotal, sale.Discount, sale.TaxRate,
		sale.TaxAmount, sale.GrandTotal, sale.PaymentStatus, sale.Notes, sale.SaleDate, sale.CreatedBy, sale.CreatedAt, sale.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: invoice number %s already issued", domain.ErrConflict, sale.InvoiceNumber)
		}
		return nil, err
	}

	if later {
		if _, err := tx.ExecContext(ctx, `UPDATE invoice_sequences SET last_issued = $2 WHERE name = $1`, invoice.SequenceName, sale.InvoiceNumber); err != nil {
			return nil, err
		}
	}

	cust := customer.OnSaleCreated(custRow.toDomain(), sale.SaleDate)
	if err := updateCustomerAggregate(ctx, tx, cust, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func lockSequence(ctx context.Context, tx *sqlx.Tx, name string) (string, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invoice_sequences (name, last_issued) VALUES ($1, '')
		ON CONFLICT (name) DO NOTHING
	`, name)
	if err != nil {
		return "", err
	}
	var last string
	if err := tx.GetContext(ctx, &last, `SELECT last_issued FROM invoice_sequences WHERE name = $1 FOR UPDATE`, name); err != nil {
		return "", err
	}
	return last, nil
}

func updateCustomerAggregate(ctx context.Context, tx *sqlx.Tx, c domain.Customer, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE customers
		SET total_purchases = $2, last_purchase_date = $3, updated_at = $4
		WHERE id = $1
	`, c.ID, c.TotalPurchases, nullTime(c.LastPurchaseDate), at)
	return err
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var row saleRow
	err := s.db.GetContext(ctx, &row, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	sale := row.toDomain()
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	var rows []saleRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+saleColumns+` FROM sales
		ORDER BY sale_date DESC
		LIMIT $1
	`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Sale, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) UpdateSale(ctx context.Context, id string, mutate store.SaleMutator) (*domain.Sale, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var row saleRow
	err = tx.GetContext(ctx, &row, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	current := row.toDomain()

	updated, err := mutate(current)
	if err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.InvoiceNumber = current.InvoiceNumber
	updated.CustomerID = current.CustomerID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET items = $2, subtotal = $3, discount = $4, tax_rate = $5, tax_amount = $6, grand_total = $7,
		    payment_status = $8, notes = $9, sale_date = $10, updated_at = $11
		WHERE id = $1
	`, id, lineItems(updated.Items), updated.Subtotal, updated.Discount, updated.TaxRate, updated.TaxAmount, updated.GrandTotal,
		updated.PaymentStatus, updated.Notes, updated.SaleDate, updated.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var customerID string
	err = tx.GetContext(ctx, &customerID, `DELETE FROM sales WHERE id = $1 RETURNING customer_id`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
		}
		return err
	}

	var custRow customerRow
	err = tx.GetContext(ctx, &custRow, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, customerID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil {
		cust := customer.OnSaleDeleted(custRow.toDomain())
		if err := updateCustomerAggregate(ctx, tx, cust, time.Now().UTC()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) CreatePurchase(ctx context.Context, p domain.Purchase) (*domain.Purchase, error) {
	if p.ID == "" {
		p.ID = xid.New("pur")
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchases (id, supplier_name, items, subtotal, discount, tax_rate, tax_amount, grand_total, status, notes, purchase_date, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, p.ID, p.SupplierName, lineItems(p.Items), p.Subtotal, p.Discount, p.TaxRate, p.TaxAmount, p.GrandTotal,
		p.Status, p.Notes, p.PurchaseDate, p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	var row purchaseRow
	err := s.db.GetContext(ctx, &row, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: purchase %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	p := row.toDomain()
	return &p, nil
}

func (s *Store) ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error) {
	var rows []purchaseRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+purchaseColumns+` FROM purchases
		ORDER BY purchase_date DESC
		LIMIT $1
	`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Purchase, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) UpdatePurchase(ctx context.Context, id string, mutate store.PurchaseMutator) (*domain.Purchase, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var row purchaseRow
	err = tx.GetContext(ctx, &row, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: purchase %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	current := row.toDomain()

	updated, err := mutate(current)
	if err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.CreatedBy = current.CreatedBy
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE purchases
		SET supplier_name = $2, items = $3, subtotal = $4, discount = $5, tax_rate = $6, tax_amount = $7,
		    grand_total = $8, status = $9, notes = $10, purchase_date = $11, updated_at = $12
		WHERE id = $1
	`, id, updated.SupplierName, lineItems(updated.Items), updated.Subtotal, updated.Discount, updated.TaxRate,
		updated.TaxAmount, updated.GrandTotal, updated.Status, updated.Notes, updated.PurchaseDate, updated.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeletePurchase(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: purchase %s", domain.ErrNotFound, id)
	}
	return nil
}

// SaveCode replaces any existing code for the identity.
func (s *Store) SaveCode(ctx context.Context, code domain.OneTimeCode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO one_time_codes (identity, code_hash, issued_at, expires_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (identity) DO UPDATE
		SET code_hash = EXCLUDED.code_hash, issued_at = EXCLUDED.issued_at, expires_at = EXCLUDED.expires_at
	`, code.Identity, code.CodeHash, code.IssuedAt, code.ExpiresAt)
	return err
}

func (s *Store) GetCode(ctx context.Context, identity string) (domain.OneTimeCode, error) {
	var code domain.OneTimeCode
	err := s.db.QueryRowContext(ctx, `
		SELECT identity, code_hash, issued_at, expires_at
		FROM one_time_codes
		WHERE identity = $1
	`, identity).Scan(&code.Identity, &code.CodeHash, &code.IssuedAt, &code.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OneTimeCode{}, domain.ErrNotFound
		}
		return domain.OneTimeCode{}, err
	}
	code.IssuedAt = code.IssuedAt.UTC()
	code.ExpiresAt = code.ExpiresAt.UTC()
	return code, nil
}

func (s *Store) DeleteCode(ctx context.Context, identity string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM one_time_codes WHERE identity = $1`, identity)
	return err
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	user.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, verified, password_changed_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, user.ID, user.Name, user.Email, user.Password, user.Role, user.Verified, nullTime(user.PasswordChangedAt), user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email %s already registered", domain.ErrConflict, user.Email)
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, email)
		}
		return nil, err
	}
	user := row.toDomain()
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.UserAccount, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	user := row.toDomain()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]domain.UserAccount, error) {
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+` FROM users
		ORDER BY created_at DESC, email
		LIMIT $1
	`, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserAccount, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, mutate store.UserMutator) (*domain.UserAccount, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var row userRow
	err = tx.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	current := row.toDomain()

	updated, err := mutate(current)
	if err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.Password = current.Password
	updated.PasswordChangedAt = current.PasswordChangedAt
	updated.CreatedAt = current.CreatedAt

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET name = $2, email = $3, role = $4, verified = $5
		WHERE id = $1
	`, id, updated.Name, updated.Email, updated.Role, updated.Verified)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email %s already registered", domain.ErrConflict, updated.Email)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := expectAffected(res, "user "+id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE user_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) SetUserVerified(ctx context.Context, email string, verified bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET verified = $2 WHERE email = $1`, email, verified)
	if err != nil {
		return err
	}
	return expectAffected(res, "user "+email)
}

func (s *Store) UpdateUserPassword(ctx context.Context, email string, passwordHash string, changedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, password_changed_at = $3
		WHERE email = $1
	`, email, passwordHash, changedAt.UTC())
	if err != nil {
		return err
	}
	return expectAffected(res, "user "+email)
}

func (s *Store) GetSettings(ctx context.Context, userID string) (domain.Settings, error) {
	var row settingsRow
	err := s.db.GetContext(ctx, &row, `SELECT `+settingsColumns+` FROM settings WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultSettings(userID), nil
		}
		return domain.Settings{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	settings.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (user_id, company_name, address, phone_number, email, tax_id, paper_size, default_invoice_template, show_company_details, dark_mode, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (user_id) DO UPDATE
		SET company_name = EXCLUDED.company_name,
		    address = EXCLUDED.address,
		    phone_number = EXCLUDED.phone_number,
		    email = EXCLUDED.email,
		    tax_id = EXCLUDED.tax_id,
		    paper_size = EXCLUDED.paper_size,
		    default_invoice_template = EXCLUDED.default_invoice_template,
		    show_company_details = EXCLUDED.show_company_details,
		    dark_mode = EXCLUDED.dark_mode,
		    updated_at = EXCLUDED.updated_at
	`, settings.UserID, settings.CompanyName, settings.Address, settings.PhoneNumber, settings.Email, settings.TaxID,
		settings.PaperSize, settings.DefaultInvoiceTemplate, settings.ShowCompanyDetails, settings.DarkMode, settings.UpdatedAt)
	if err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

func expectAffected(res sql.Result, what string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return nil
}

// sqlLimit maps a non-positive limit to "no limit" (LIMIT NULL).
func sqlLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
