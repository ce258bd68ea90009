package billing

import (
	"context"
	"time"

	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice searches.
// Absent filters impose no constraint; present filters combine as AND.
type InvoiceFilter struct {
	shared.Filter
	Customer   string         // Case-insensitive substring match on customer ID
	Status     *InvoiceStatus // Filter by lifecycle status
	IssuedFrom *time.Time     // Inclusive lower bound on emission date
	IssuedTo   *time.Time     // Inclusive upper bound on emission date
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice with its lines by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice with its lines by invoice number
	FindByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// Search returns a page of invoices matching the filter plus the total count
	Search(ctx context.Context, filter InvoiceFilter) ([]Invoice, int64, error)

	// Create persists a new invoice and all of its lines as one atomic unit.
	// A duplicate invoice number surfaces as shared.ErrAlreadyExists.
	Create(ctx context.Context, invoice *Invoice) error

	// SaveWithLock updates an invoice header with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// SaveBatch updates a batch of invoice headers in one transaction
	SaveBatch(ctx context.Context, invoices []*Invoice) error

	// CountByStatus counts invoices in the given status
	CountByStatus(ctx context.Context, status InvoiceStatus) (int64, error)

	// SumAmountByStatus sums the total amount over invoices in the given
	// status; an empty selection sums to zero
	SumAmountByStatus(ctx context.Context, status InvoiceStatus) (decimal.Decimal, error)

	// FindDuePendingBefore returns pending invoices whose due date is
	// strictly before the given date (the overdue-selection predicate)
	FindDuePendingBefore(ctx context.Context, date time.Time) ([]Invoice, error)

	// MaxSequenceForYear returns the highest sequence number among invoice
	// numbers issued in the given year, or 0 if none exist
	MaxSequenceForYear(ctx context.Context, year int) (int, error)
}

// ServiceRecordRepository defines the read interface over service records
type ServiceRecordRepository interface {
	// FindByIDs batch-resolves service records by ID; missing IDs are
	// simply absent from the result
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]ServiceRecord, error)

	// FindByStatus lists service records in the given status
	FindByStatus(ctx context.Context, status ServiceStatus) ([]ServiceRecord, error)

	// FindCompletedWithoutInvoiceLine lists completed services no invoice
	// line references yet
	FindCompletedWithoutInvoiceLine(ctx context.Context) ([]ServiceRecord, error)

	// FindCompletedByQuotation lists completed services for a quotation
	FindCompletedByQuotation(ctx context.Context, quotationID uuid.UUID) ([]ServiceRecord, error)
}

// QuotationRepository resolves quotations for customer lookup
type QuotationRepository interface {
	// FindByID finds a quotation by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Quotation, error)

	// FindByIDs batch-resolves quotations by ID
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Quotation, error)
}
