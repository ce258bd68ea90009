// Package billing contains the application services orchestrating the
// invoice lifecycle over the domain model.
package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/geminiambiental/billing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceService issues invoices from completed service records
type InvoiceService struct {
	invoiceRepo   billing.InvoiceRepository
	serviceRepo   billing.ServiceRecordRepository
	quotationRepo billing.QuotationRepository
	eventBus      shared.EventPublisher
	logger        *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	serviceRepo billing.ServiceRecordRepository,
	quotationRepo billing.QuotationRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:   invoiceRepo,
		serviceRepo:   serviceRepo,
		quotationRepo: quotationRepo,
		eventBus:      eventBus,
		logger:        logger,
	}
}

// IssueInvoiceRequest represents a request to issue an invoice
type IssueInvoiceRequest struct {
	ServiceRecordIDs []uuid.UUID
	Notes            string
}

// IssueInvoice creates a pending invoice covering the given completed
// services. All services must exist, be completed, and belong to the same
// customer. The invoice number is allocated per emission year.
func (s *InvoiceService) IssueInvoice(ctx context.Context, req IssueInvoiceRequest) (*InvoiceDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "issue_invoice")
	defer span.End()

	serviceIDs := dedupeIDs(req.ServiceRecordIDs)
	if len(serviceIDs) == 0 {
		err := shared.NewDomainError("INVALID_INPUT", "At least one service record is required")
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrServiceCount, len(serviceIDs))

	records, err := s.serviceRepo.FindByIDs(ctx, serviceIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load service records: %w", err)
	}

	if err := validateRecordsExist(serviceIDs, records); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := validateRecordsBillable(records); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	customerID, err := s.resolveCustomer(ctx, records)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrCustomerID, customerID)

	now := time.Now()
	maxSeq, err := s.invoiceRepo.MaxSequenceForYear(ctx, now.Year())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	invoiceNumber := billing.FormatInvoiceNumber(now.Year(), maxSeq+1)

	lines := make([]billing.InvoiceLine, 0, len(records))
	for i := range records {
		lines = append(lines, billing.NewInvoiceLine(records[i].ID, records[i].Price()))
	}

	invoice, err := billing.NewInvoice(invoiceNumber, customerID, now, req.Notes, lines)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Another issuance won the race for this sequence number.
			return nil, shared.NewDomainError("DUPLICATE_INVOICE_NUMBER",
				fmt.Sprintf("Invoice number %s was already taken, retry the operation", invoiceNumber))
		}
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrInvoiceNumber, invoice.InvoiceNumber,
		telemetry.SpanAttrAmount, invoice.TotalAmount.String(),
	)
	s.logger.Info("invoice issued",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("customer_id", customerID),
		zap.Int("line_count", len(invoice.Lines)),
		zap.String("total_amount", invoice.TotalAmount.String()),
	)

	return ToInvoiceDTO(invoice), nil
}

// resolveCustomer resolves the single customer owning all given services
// through their quotations. Services spanning more than one customer
// cannot share an invoice.
func (s *InvoiceService) resolveCustomer(ctx context.Context, records []billing.ServiceRecord) (string, error) {
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
		return "", fmt.Errorf("failed to load quotations: %w", err)
	}

	byID := make(map[uuid.UUID]*billing.Quotation, len(quotations))
	for i := range quotations {
		byID[quotations[i].ID] = &quotations[i]
	}

	customers := make(map[string]bool)
	for i := range records {
		quotation, ok := byID[records[i].QuotationID]
		if !ok {
			return "", shared.NewDomainError("QUOTATION_NOT_FOUND",
				fmt.Sprintf("Quotation %s for service %s not found", records[i].QuotationID, records[i].ID))
		}
		customers[quotation.CustomerID] = true
	}

	if len(customers) > 1 {
		return "", shared.NewDomainError("MULTIPLE_CUSTOMERS",
			"All services on one invoice must belong to the same customer")
	}
	for customerID := range customers {
		return customerID, nil
	}
	return "", shared.NewDomainError("INVALID_INPUT", "No customer could be resolved for the given services")
}

// publishEvents publishes and clears the aggregate's pending events
func (s *InvoiceService) publishEvents(ctx context.Context, invoice *billing.Invoice) {
	if err := s.eventBus.Publish(ctx, invoice.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish invoice events",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err),
		)
	}
	invoice.ClearDomainEvents()
}

// dedupeIDs drops zero and duplicate IDs while preserving order
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	result := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

// validateRecordsExist reports every requested ID that did not resolve
func validateRecordsExist(requested []uuid.UUID, found []billing.ServiceRecord) error {
	if len(found) == len(requested) {
		return nil
	}

	foundSet := make(map[uuid.UUID]bool, len(found))
	for i := range found {
		foundSet[found[i].ID] = true
	}

	missing := make([]string, 0)
	for _, id := range requested {
		if !foundSet[id] {
			missing = append(missing, id.String())
		}
	}
	sort.Strings(missing)

	return shared.NewDomainError("SERVICE_NOT_FOUND",
		fmt.Sprintf("Service records not found: %s", strings.Join(missing, ", ")))
}

// validateRecordsBillable reports every service that is not completed
func validateRecordsBillable(records []billing.ServiceRecord) error {
	offending := make([]string, 0)
	for i := range records {
		if !records[i].IsBillable() {
			offending = append(offending, fmt.Sprintf("%s (%s)", records[i].ID, records[i].Status))
		}
	}
	if len(offending) == 0 {
		return nil
	}

	return shared.NewDomainError("SERVICE_NOT_BILLABLE",
		fmt.Sprintf("Only completed services can be invoiced: %s", strings.Join(offending, ", ")))
}
