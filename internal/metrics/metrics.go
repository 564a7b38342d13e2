package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"accounting/backend/internal/domain"
)

const (
	ResultOK                 = "ok"
	ResultValidation         = "validation"
	ResultNotFound           = "not_found"
	ResultConflict           = "conflict"
	ResultInsufficientStock  = "insufficient_stock"
	ResultExpired            = "expired"
	ResultSequenceCorruption = "sequence_corruption"
	ResultUnknown            = "unknown"
)

// Settlement counts write-path outcomes. A nil *Settlement is valid and
// records nothing.
type Settlement struct {
	salesCreated     prometheus.Counter
	invoiceConflicts prometheus.Counter
	stockAdjustments *prometheus.CounterVec
	otpEvents        *prometheus.CounterVec
}

func New(registerer prometheus.Registerer) *Settlement {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Settlement{
		salesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accounting_sales_created_total",
			Help: "Sales persisted with an assigned invoice number.",
		}),
		invoiceConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accounting_invoice_conflicts_total",
			Help: "Sale writes rejected because the invoice number was already issued.",
		}),
		stockAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounting_stock_adjustments_total",
			Help: "Inventory quantity adjustments by operation and result.",
		}, []string{"operation", "result"}),
		otpEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounting_otp_events_total",
			Help: "One-time code lifecycle events.",
		}, []string{"event", "result"}),
	}
	registerer.MustRegister(m.salesCreated, m.invoiceConflicts, m.stockAdjustments, m.otpEvents)
	return m
}

func (m *Settlement) SaleCreated() {
	if m == nil {
		return
	}
	m.salesCreated.Inc()
}

func (m *Settlement) InvoiceConflict() {
	if m == nil {
		return
	}
	m.invoiceConflicts.Inc()
}

func (m *Settlement) StockAdjusted(operation string, err error) {
	if m == nil {
		return
	}
	m.stockAdjustments.WithLabelValues(operation, Classify(err)).Inc()
}

// OTPEvent records issue, verify and revoke outcomes. A verify that
// completed but did not match is recorded as "mismatch".
func (m *Settlement) OTPEvent(event string, result string) {
	if m == nil {
		return
	}
	m.otpEvents.WithLabelValues(event, result).Inc()
}

// Classify maps an error to a low-cardinality label value.
func Classify(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, domain.ErrValidation):
		return ResultValidation
	case errors.Is(err, domain.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, domain.ErrConflict):
		return ResultConflict
	case errors.Is(err, domain.ErrInsufficientStock):
		return ResultInsufficientStock
	case errors.Is(err, domain.ErrExpired):
		return ResultExpired
	case errors.Is(err, domain.ErrSequenceCorruption):
		return ResultSequenceCorruption
	default:
		return ResultUnknown
	}
}
