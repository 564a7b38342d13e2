package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"

	"accounting/backend/internal/domain"
	"accounting/backend/internal/invoice"
	"accounting/backend/internal/settlement"
)

const (
	maxSaleNotes     = 500
	maxPurchaseNotes = 1000

	// invoiceAttempts bounds retries when a generated invoice number loses a
	// race against a caller-supplied one.
	invoiceAttempts = 3
)

var (
	paymentStatuses  = []string{domain.PaymentPaid, domain.PaymentPending, domain.PaymentOverdue}
	purchaseStatuses = []string{domain.PurchaseDraft, domain.PurchaseOrdered, domain.PurchaseReceived, domain.PurchaseCancelled}
)

func validateStatus(field string, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return validationError("%s must be one of %s", field, strings.Join(allowed, ", "))
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier)
	if err != nil {
		return domain.Sale{}, err
	}

	req.CustomerID = strings.TrimSpace(req.CustomerID)
	if req.CustomerID == "" {
		return domain.Sale{}, validationError("customer_id is required")
	}

	supplied := strings.ToUpper(strings.TrimSpace(req.InvoiceNumber))
	if supplied != "" {
		n, err := invoice.Parse(supplied)
		if err != nil || n >= invoice.MaxNumber {
			return domain.Sale{}, validationError("invoice number %q must look like %s001 with at most %d digits", req.InvoiceNumber, invoice.Prefix, invoice.MaxDigits)
		}
		supplied = invoice.Format(n)
	}

	taxRate := settlement.DefaultSaleTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	status := strings.TrimSpace(req.PaymentStatus)
	if status == "" {
		status = domain.PaymentPending
	}
	if err := validateStatus("payment_status", status, paymentStatuses); err != nil {
		return domain.Sale{}, err
	}

	notes := strings.TrimSpace(req.Notes)
	if err := requireMaxLength("notes", notes, maxSaleNotes); err != nil {
		return domain.Sale{}, err
	}

	items, totals, err := settlement.Recompute(req.Items, req.Discount, taxRate)
	if err != nil {
		return domain.Sale{}, err
	}

	saleDate := s.now()
	if req.SaleDate != nil {
		saleDate = req.SaleDate.UTC()
	}

	sale := domain.Sale{
		InvoiceNumber: supplied,
		CustomerID:    req.CustomerID,
		Items:         items,
		Totals:        totals,
		PaymentStatus: status,
		Notes:         notes,
		SaleDate:      saleDate,
		CreatedBy:     actor.UserID,
	}

	var created *domain.Sale
	for attempt := 1; ; attempt++ {
		created, err = s.repo.CreateSale(ctx, sale)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) {
			return domain.Sale{}, err
		}
		s.metrics.InvoiceConflict()
		if supplied != "" || attempt >= invoiceAttempts {
			return domain.Sale{}, err
		}
		s.logger.Warn("invoice number collided, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}

	s.metrics.SaleCreated()
	s.logger.Info("sale created",
		zap.String("sale_id", created.ID),
		zap.String("invoice_number", created.InvoiceNumber),
		zap.String("customer_id", created.CustomerID),
		zap.String("grand_total", created.GrandTotal.StringFixed(2)),
	)
	return *created, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, validationError("sale id is required")
	}
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, limit)
}

// UpdateSale applies a partial update. Totals are recomputed from the merged
// view of stored and patched fields while the sale is locked.
func (s *Service) UpdateSale(ctx context.Context, id string, patch domain.SalePatch) (domain.Sale, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
		return domain.Sale{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, validationError("sale id is required")
	}

	var status, notes string
	if patch.PaymentStatus != nil {
		status = strings.TrimSpace(*patch.PaymentStatus)
		if err := validateStatus("payment_status", status, paymentStatuses); err != nil {
			return domain.Sale{}, err
		}
	}
	if patch.Notes != nil {
		notes = strings.TrimSpace(*patch.Notes)
		if err := requireMaxLength("notes", notes, maxSaleNotes); err != nil {
			return domain.Sale{}, err
		}
	}

	updated, err := s.repo.UpdateSale(ctx, id, func(current domain.Sale) (domain.Sale, error) {
		items, totals, err := settlement.Merge(current.Items, current.Totals, settlement.Patch{
			Items:    patch.Items,
			Discount: patch.Discount,
			TaxRate:  patch.TaxRate,
		})
		if err != nil {
			return domain.Sale{}, err
		}
		current.Items = items
		current.Totals = totals
		if patch.PaymentStatus != nil {
			current.PaymentStatus = status
		}
		if patch.Notes != nil {
			current.Notes = notes
		}
		if patch.SaleDate != nil {
			current.SaleDate = patch.SaleDate.UTC()
		}
		return current, nil
	})
	if err != nil {
		return domain.Sale{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteSale(ctx context.Context, id string) error {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return validationError("sale id is required")
	}
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return err
	}
	s.logger.Info("sale deleted", zap.String("sale_id", id))
	return nil
}

func (s *Service) CreatePurchase(ctx context.Context, req domain.PurchaseCreateRequest) (domain.Purchase, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin, domain.RoleInventory)
	if err != nil {
		return domain.Purchase{}, err
	}

	supplierName := strings.TrimSpace(req.SupplierName)
	if err := requireLength("supplier_name", supplierName, 2, 100); err != nil {
		return domain.Purchase{}, err
	}

	taxRate := settlement.DefaultPurchaseTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = domain.PurchaseDraft
	}
	if err := validateStatus("status", status, purchaseStatuses); err != nil {
		return domain.Purchase{}, err
	}

	notes := strings.TrimSpace(req.Notes)
	if err := requireMaxLength("notes", notes, maxPurchaseNotes); err != nil {
		return domain.Purchase{}, err
	}

	items, totals, err := settlement.Recompute(req.Items, req.Discount, taxRate)
	if err != nil {
		return domain.Purchase{}, err
	}

	purchaseDate := s.now()
	if req.PurchaseDate != nil {
		purchaseDate = req.PurchaseDate.UTC()
	}

	created, err := s.repo.CreatePurchase(ctx, domain.Purchase{
		SupplierName: supplierName,
		Items:        items,
		Totals:       totals,
		Status:       status,
		Notes:        notes,
		PurchaseDate: purchaseDate,
		CreatedBy:    actor.UserID,
	})
	if err != nil {
		return domain.Purchase{}, err
	}
	s.logger.Info("purchase created",
		zap.String("purchase_id", created.ID),
		zap.String("supplier_name", created.SupplierName),
		zap.String("grand_total", created.GrandTotal.StringFixed(2)),
	)
	return *created, nil
}

func (s *Service) GetPurchase(ctx context.Context, id string) (domain.Purchase, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Purchase{}, validationError("purchase id is required")
	}
	purchase, err := s.repo.GetPurchase(ctx, id)
	if err != nil {
		return domain.Purchase{}, err
	}
	return *purchase, nil
}

func (s *Service) ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error) {
	return s.repo.ListPurchases(ctx, limit)
}

func (s *Service) UpdatePurchase(ctx context.Context, id string, patch domain.PurchasePatch) (domain.Purchase, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin, domain.RoleInventory); err != nil {
		return domain.Purchase{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Purchase{}, validationError("purchase id is required")
	}

	var supplierName, status, notes string
	if patch.SupplierName != nil {
		supplierName = strings.TrimSpace(*patch.SupplierName)
		if err := requireLength("supplier_name", supplierName, 2, 100); err != nil {
			return domain.Purchase{}, err
		}
	}
	if patch.Status != nil {
		status = strings.TrimSpace(*patch.Status)
		if err := validateStatus("status", status, purchaseStatuses); err != nil {
			return domain.Purchase{}, err
		}
	}
	if patch.Notes != nil {
		notes = strings.TrimSpace(*patch.Notes)
		if err := requireMaxLength("notes", notes, maxPurchaseNotes); err != nil {
			return domain.Purchase{}, err
		}
	}

	updated, err := s.repo.UpdatePurchase(ctx, id, func(current domain.Purchase) (domain.Purchase, error) {
		items, totals, err := settlement.Merge(current.Items, current.Totals, settlement.Patch{
			Items:    patch.Items,
			Discount: patch.Discount,
			TaxRate:  patch.TaxRate,
		})
		if err != nil {
			return domain.Purchase{}, err
		}
		current.Items = items
		current.Totals = totals
		if patch.SupplierName != nil {
			current.SupplierName = supplierName
		}
		if patch.Status != nil {
			current.Status = status
		}
		if patch.Notes != nil {
			current.Notes = notes
		}
		if patch.PurchaseDate != nil {
			current.PurchaseDate = patch.PurchaseDate.UTC()
		}
		return current, nil
	})
	if err != nil {
		return domain.Purchase{}, err
	}
	return *updated, nil
}

func (s *Service) DeletePurchase(ctx context.Context, id string) error {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return validationError("purchase id is required")
	}
	return s.repo.DeletePurchase(ctx, id)
}
