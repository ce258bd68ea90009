package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/geminiambiental/billing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReportingService serves the read side of billing: searches,
// statistics and the ready-to-bill listing
type ReportingService struct {
	invoiceRepo   billing.InvoiceRepository
	serviceRepo   billing.ServiceRecordRepository
	quotationRepo billing.QuotationRepository
	logger        *zap.Logger
}

// NewReportingService creates a new ReportingService
func NewReportingService(
	invoiceRepo billing.InvoiceRepository,
	serviceRepo billing.ServiceRecordRepository,
	quotationRepo billing.QuotationRepository,
	logger *zap.Logger,
) *ReportingService {
	return &ReportingService{
		invoiceRepo:   invoiceRepo,
		serviceRepo:   serviceRepo,
		quotationRepo: quotationRepo,
		logger:        logger,
	}
}

// GetInvoice returns one invoice with its lines
func (s *ReportingService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice == nil {
		return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
	}
	return ToInvoiceDTO(invoice), nil
}

// GetInvoiceByNumber returns one invoice looked up by its invoice number
func (s *ReportingService) GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.FindByNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice == nil {
		return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
	}
	return ToInvoiceDTO(invoice), nil
}

// SearchInvoices returns a page of invoices matching the filter
func (s *ReportingService) SearchInvoices(ctx context.Context, filter billing.InvoiceFilter) (*shared.Paginated[InvoiceDTO], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "search_invoices")
	defer span.End()

	invoices, total, err := s.invoiceRepo.Search(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to search invoices: %w", err)
	}

	page := shared.NewPaginated(ToInvoiceDTOs(invoices), total, filter.Page, filter.PageSize)
	return &page, nil
}

// Statistics summarizes the invoice ledger. Every figure is recomputed
// from current store state on each call.
func (s *ReportingService) Statistics(ctx context.Context) (*StatisticsDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "statistics")
	defer span.End()

	stats := &StatisticsDTO{}

	counts := map[billing.InvoiceStatus]*int64{
		billing.InvoiceStatusPending: &stats.PendingInvoices,
		billing.InvoiceStatusPaid:    &stats.PaidInvoices,
		billing.InvoiceStatusVoided:  &stats.VoidedInvoices,
	}
	for status, target := range counts {
		count, err := s.invoiceRepo.CountByStatus(ctx, status)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to count %s invoices: %w", status, err)
		}
		*target = count
	}

	// The overdue count and amount come from re-running the selection
	// predicate, not from the OVERDUE status tally.
	today := billing.StartOfDay(time.Now())
	pastDue, err := s.invoiceRepo.FindDuePendingBefore(ctx, today)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to select past-due invoices: %w", err)
	}
	stats.OverdueInvoices = int64(len(pastDue))
	overdueAmount := decimal.Zero
	for i := range pastDue {
		overdueAmount = overdueAmount.Add(pastDue[i].TotalAmount)
	}
	stats.OverdueAmount = overdueAmount

	pendingAmount, err := s.invoiceRepo.SumAmountByStatus(ctx, billing.InvoiceStatusPending)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to sum pending amount: %w", err)
	}
	paidAmount, err := s.invoiceRepo.SumAmountByStatus(ctx, billing.InvoiceStatusPaid)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to sum paid amount: %w", err)
	}
	stats.PendingAmount = pendingAmount
	stats.PaidAmount = paidAmount

	return stats, nil
}

// ServicesReadyToBill lists completed services that no invoice line
// references yet, decorated with the customer resolved through the
// originating quotation
func (s *ReportingService) ServicesReadyToBill(ctx context.Context) ([]ServiceReadyToBillDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "services_ready_to_bill")
	defer span.End()

	records, err := s.serviceRepo.FindCompletedWithoutInvoiceLine(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load billable services: %w", err)
	}
	if len(records) == 0 {
		return []ServiceReadyToBillDTO{}, nil
	}

	quotationIDs := make([]uuid.UUID, 0, len(records))
	seen := make(map[uuid.UUID]bool)
	for i := range records {
		if !seen[records[i].QuotationID] {
			seen[records[i].QuotationID] = true
			quotationIDs = append(quotationIDs, records[i].QuotationID)
		}
	}

	quotations, err := s.quotationRepo.FindByIDs(ctx, quotationIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load quotations: %w", err)
	}
	byID := make(map[uuid.UUID]*billing.Quotation, len(quotations))
	for i := range quotations {
		byID[quotations[i].ID] = &quotations[i]
	}

	result := make([]ServiceReadyToBillDTO, 0, len(records))
	for i := range records {
		quotation := byID[records[i].QuotationID]
		if quotation == nil {
			s.logger.Warn("billable service references missing quotation",
				zap.String("service_record_id", records[i].ID.String()),
				zap.String("quotation_id", records[i].QuotationID.String()),
			)
		}
		result = append(result, ToServiceReadyToBillDTO(&records[i], quotation))
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrServiceCount, len(result))
	return result, nil
}
