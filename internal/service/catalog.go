package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"accounting/backend/internal/customer"
	"accounting/backend/internal/domain"
	"accounting/backend/internal/stock"
)

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.CustomerView, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
		return domain.CustomerView{}, err
	}

	name := strings.TrimSpace(req.Name)
	if err := requireLength("name", name, 2, 50); err != nil {
		return domain.CustomerView{}, err
	}
	phone := stripSpaces(req.Phone)
	if phone == "" {
		return domain.CustomerView{}, validationError("phone is required")
	}
	email := normalizeEmail(req.Email)
	if email != "" {
		if err := validateEmail(email); err != nil {
			return domain.CustomerView{}, err
		}
	}
	address := strings.TrimSpace(req.Address)
	if err := requireMaxLength("address", address, 200); err != nil {
		return domain.CustomerView{}, err
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:    name,
		Phone:   phone,
		Email:   email,
		Address: address,
	})
	if err != nil {
		return domain.CustomerView{}, err
	}
	return customer.View(*created), nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.CustomerView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.CustomerView{}, validationError("customer id is required")
	}
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.CustomerView{}, err
	}
	return customer.View(*c), nil
}

func (s *Service) ListCustomers(ctx context.Context, limit int) ([]domain.CustomerView, error) {
	customers, err := s.repo.ListCustomers(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]domain.CustomerView, 0, len(customers))
	for _, c := range customers {
		views = append(views, customer.View(c))
	}
	return views, nil
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.SupplierView, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleInventory); err != nil {
		return domain.SupplierView{}, err
	}

	name := strings.TrimSpace(req.Name)
	if err := requireLength("name", name, 2, 50); err != nil {
		return domain.SupplierView{}, err
	}
	company := strings.TrimSpace(req.Company)
	if err := requireLength("company", company, 2, 100); err != nil {
		return domain.SupplierView{}, err
	}
	contact := stripSpaces(req.ContactNumber)
	if contact == "" {
		return domain.SupplierView{}, validationError("contact_number is required")
	}
	email := normalizeEmail(req.Email)
	if email != "" {
		if err := validateEmail(email); err != nil {
			return domain.SupplierView{}, err
		}
	}
	if req.TotalPurchases.IsNegative() {
		return domain.SupplierView{}, validationError("total_purchases must not be negative")
	}

	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		Name:           name,
		Company:        company,
		ContactNumber:  contact,
		Email:          email,
		Address:        strings.TrimSpace(req.Address),
		TotalPurchases: req.TotalPurchases,
	})
	if err != nil {
		return domain.SupplierView{}, err
	}
	return customer.SupplierView(*created), nil
}

func (s *Service) ListSuppliers(ctx context.Context, limit int) ([]domain.SupplierView, error) {
	suppliers, err := s.repo.ListSuppliers(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]domain.SupplierView, 0, len(suppliers))
	for _, supplier := range suppliers {
		views = append(views, customer.SupplierView(supplier))
	}
	return views, nil
}

func (s *Service) CreateInventoryItem(ctx context.Context, req domain.InventoryCreateRequest) (domain.InventoryView, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleInventory); err != nil {
		return domain.InventoryView{}, err
	}

	itemName := strings.TrimSpace(req.ItemName)
	if err := requireLength("item_name", itemName, 2, 100); err != nil {
		return domain.InventoryView{}, err
	}
	category := strings.TrimSpace(req.Category)
	if err := requireLength("category", category, 2, 50); err != nil {
		return domain.InventoryView{}, err
	}
	if req.Price.IsNegative() {
		return domain.InventoryView{}, validationError("price must not be negative")
	}
	if req.Quantity < 0 || req.Quantity > stock.MaxQuantity {
		return domain.InventoryView{}, validationError("quantity must be between 0 and %d", stock.MaxQuantity)
	}
	threshold := stock.DefaultLowStockThreshold
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	}
	if threshold < 0 || threshold > stock.MaxQuantity {
		return domain.InventoryView{}, validationError("low_stock_threshold must be between 0 and %d", stock.MaxQuantity)
	}

	created, err := s.repo.CreateInventoryItem(ctx, domain.InventoryItem{
		ItemName:          itemName,
		Category:          category,
		SupplierID:        strings.TrimSpace(req.SupplierID),
		Size:              strings.TrimSpace(req.Size),
		Color:             strings.TrimSpace(req.Color),
		Price:             req.Price,
		SKU:               strings.ToUpper(strings.TrimSpace(req.SKU)),
		Quantity:          req.Quantity,
		LowStockThreshold: threshold,
	})
	if err != nil {
		return domain.InventoryView{}, err
	}
	return stock.View(*created), nil
}

func (s *Service) GetInventoryItem(ctx context.Context, id string) (domain.InventoryView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.InventoryView{}, validationError("inventory id is required")
	}
	item, err := s.repo.GetInventoryItem(ctx, id)
	if err != nil {
		return domain.InventoryView{}, err
	}
	return stock.View(*item), nil
}

func (s *Service) ListInventory(ctx context.Context, limit int) ([]domain.InventoryView, error) {
	items, err := s.repo.ListInventoryItems(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]domain.InventoryView, 0, len(items))
	for _, item := range items {
		views = append(views, stock.View(item))
	}
	return views, nil
}

// AdjustStock applies one add, subtract or set operation. Any signed-in role
// may adjust quantities. A subtract larger than the available quantity is
// rejected and leaves the record unchanged.
func (s *Service) AdjustStock(ctx context.Context, id string, req domain.StockAdjustRequest) (domain.InventoryView, error) {
	if _, err := requireRole(ctx, allRoles...); err != nil {
		return domain.InventoryView{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.InventoryView{}, validationError("inventory id is required")
	}

	op, err := stock.ParseOperation(req.Operation)
	if err != nil {
		s.metrics.StockAdjusted("invalid", err)
		return domain.InventoryView{}, err
	}
	if req.Amount < 0 || req.Amount > stock.MaxQuantity {
		err := validationError("amount must be between 0 and %d", stock.MaxQuantity)
		s.metrics.StockAdjusted(string(op), err)
		return domain.InventoryView{}, err
	}

	item, err := s.repo.AdjustInventoryQuantity(ctx, id, req.Amount, op, s.now())
	s.metrics.StockAdjusted(string(op), err)
	if err != nil {
		return domain.InventoryView{}, err
	}

	view := stock.View(*item)
	if view.StockStatus != domain.InStock {
		s.logger.Warn("inventory below threshold",
			zap.String("inventory_id", item.ID),
			zap.String("sku", item.SKU),
			zap.Int("quantity", item.Quantity),
			zap.Int("low_stock_threshold", item.LowStockThreshold),
		)
	}
	return view, nil
}

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	actor, err := requireRole(ctx, allRoles...)
	if err != nil {
		return domain.Settings{}, err
	}
	return s.repo.GetSettings(ctx, actor.UserID)
}

func (s *Service) UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	actor, err := requireRole(ctx, allRoles...)
	if err != nil {
		return domain.Settings{}, err
	}

	settings.UserID = actor.UserID
	settings.CompanyName = strings.TrimSpace(settings.CompanyName)
	settings.Address = strings.TrimSpace(settings.Address)
	settings.PhoneNumber = stripSpaces(settings.PhoneNumber)
	settings.Email = normalizeEmail(settings.Email)
	settings.TaxID = strings.TrimSpace(settings.TaxID)
	settings.DefaultInvoiceTemplate = strings.TrimSpace(settings.DefaultInvoiceTemplate)

	if settings.PaperSize == "" {
		settings.PaperSize = domain.PaperA4
	}
	if settings.PaperSize != domain.PaperA4 && settings.PaperSize != domain.PaperLetter {
		return domain.Settings{}, validationError("paper_size must be %s or %s", domain.PaperA4, domain.PaperLetter)
	}
	if settings.DefaultInvoiceTemplate == "" {
		settings.DefaultInvoiceTemplate = domain.DefaultSettings(actor.UserID).DefaultInvoiceTemplate
	}
	if settings.Email != "" {
		if err := validateEmail(settings.Email); err != nil {
			return domain.Settings{}, err
		}
	}
	settings.UpdatedAt = s.now()

	return s.repo.UpsertSettings(ctx, settings)
}
