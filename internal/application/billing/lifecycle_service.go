package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/geminiambiental/billing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LifecycleService drives invoice state transitions after issuance
type LifecycleService struct {
	invoiceRepo billing.InvoiceRepository
	eventBus    shared.EventPublisher
	logger      *zap.Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	invoiceRepo billing.InvoiceRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		invoiceRepo: invoiceRepo,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// MarkPaid records payment of a pending invoice
func (s *LifecycleService) MarkPaid(ctx context.Context, invoiceID uuid.UUID) (*InvoiceDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "mark_paid")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, invoiceID.String())

	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := invoice.MarkPaid(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)
	s.logger.Info("invoice paid",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total_amount", invoice.TotalAmount.String()),
	)

	return ToInvoiceDTO(invoice), nil
}

// Void cancels a pending or overdue invoice, recording the reason in the
// invoice notes
func (s *LifecycleService) Void(ctx context.Context, invoiceID uuid.UUID, reason string) (*InvoiceDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "void_invoice")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, invoiceID.String())

	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := invoice.Void(reason); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)
	s.logger.Info("invoice voided",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("reason", reason),
	)

	return ToInvoiceDTO(invoice), nil
}

// SweepResult reports the outcome of one overdue sweep
type SweepResult struct {
	Scanned int `json:"scanned"`
	Marked  int `json:"marked"`
}

// SweepOverdue transitions every pending invoice whose due date lies
// strictly before today to OVERDUE. The sweep is idempotent: invoices
// already overdue are not selected again.
func (s *LifecycleService) SweepOverdue(ctx context.Context) (*SweepResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "sweep_overdue")
	defer span.End()

	today := billing.StartOfDay(time.Now())
	candidates, err := s.invoiceRepo.FindDuePendingBefore(ctx, today)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to select overdue candidates: %w", err)
	}

	marked := make([]*billing.Invoice, 0, len(candidates))
	for i := range candidates {
		invoice := &candidates[i]
		if err := invoice.MarkOverdue(); err != nil {
			// The selection predicate guarantees PENDING, so this only
			// fires on a concurrent transition. Skip and move on.
			s.logger.Warn("skipping invoice during overdue sweep",
				zap.String("invoice_number", invoice.InvoiceNumber),
				zap.Error(err),
			)
			continue
		}
		marked = append(marked, invoice)
	}

	if len(marked) > 0 {
		if err := s.invoiceRepo.SaveBatch(ctx, marked); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save overdue invoices: %w", err)
		}
		for _, invoice := range marked {
			s.publishEvents(ctx, invoice)
		}
	}

	result := &SweepResult{Scanned: len(candidates), Marked: len(marked)}
	telemetry.SetAttributes(span,
		"sweep.scanned", result.Scanned,
		"sweep.marked", result.Marked,
	)
	s.logger.Info("overdue sweep completed",
		zap.Int("scanned", result.Scanned),
		zap.Int("marked", result.Marked),
	)

	return result, nil
}

func (s *LifecycleService) loadInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice == nil {
		return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
	}
	return invoice, nil
}

func (s *LifecycleService) publishEvents(ctx context.Context, invoice *billing.Invoice) {
	if err := s.eventBus.Publish(ctx, invoice.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish invoice events",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err),
		)
	}
	invoice.ClearDomainEvents()
}
