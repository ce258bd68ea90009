package billing

import (
	"fmt"
	"time"

	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DueTerm is the fixed payment term applied to every invoice.
const DueTerm = 30 * 24 * time.Hour

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
	InvoiceStatusVoided  InvoiceStatus = "VOIDED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are permitted
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoided
}

// CanBePaid returns true if MarkPaid is legal from this status.
// Payment is accepted from PENDING only; an overdue invoice must be
// voided and reissued.
func (s InvoiceStatus) CanBePaid() bool {
	return s == InvoiceStatusPending
}

// CanBeVoided returns true if Void is legal from this status.
// Both pending and overdue invoices may be voided; paid invoices are
// immutable and a voided invoice stays voided.
func (s InvoiceStatus) CanBeVoided() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusOverdue
}

// FormatInvoiceNumber builds the invoice number for a year and sequence,
// e.g. F-2026-001. The sequence is a per-year counter zero-padded to
// three digits.
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("F-%d-%03d", year, seq)
}

// InvoiceLine is one invoice entry corresponding to exactly one service.
// The unit price is snapshotted at invoice-creation time and never looked
// up again. Lines are born and die with their invoice.
type InvoiceLine struct {
	ServiceRecordID uuid.UUID       `json:"service_record_id"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// NewInvoiceLine creates a line for a service at the given price.
// Current policy bills one unit per service.
func NewInvoiceLine(serviceRecordID uuid.UUID, unitPrice decimal.Decimal) InvoiceLine {
	quantity := 1
	return InvoiceLine{
		ServiceRecordID: serviceRecordID,
		UnitPrice:       unitPrice,
		Quantity:        quantity,
		Subtotal:        unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Invoice represents a billing event for one or more services rendered to
// one customer. The total equals the sum of line subtotals at creation
// time and is never recomputed afterwards.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    string          `json:"customer_id"`
	IssuedOn      time.Time       `json:"issued_on"`
	DueOn         time.Time       `json:"due_on"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        InvoiceStatus   `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	Lines         []InvoiceLine   `json:"lines"`
}

// NewInvoice creates a pending invoice from priced service lines.
// The emission date is truncated to a calendar date and the due date is
// derived from the fixed payment term.
func NewInvoice(invoiceNumber, customerID string, issuedOn time.Time, notes string, lines []InvoiceLine) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if customerID == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "Invoice must have at least one line")
	}

	issued := StartOfDay(issuedOn)
	total := decimal.Zero
	for i := range lines {
		total = total.Add(lines[i].Subtotal)
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		CustomerID:        customerID,
		IssuedOn:          issued,
		DueOn:             issued.Add(DueTerm),
		TotalAmount:       total,
		Status:            InvoiceStatusPending,
		Notes:             notes,
		Lines:             lines,
	}

	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))

	return inv, nil
}

// MarkPaid transitions the invoice to PAID and records the payment time.
// Only pending invoices can be paid.
func (inv *Invoice) MarkPaid() error {
	if !inv.Status.CanBePaid() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot pay invoice in %s status", inv.Status))
	}

	now := time.Now()
	inv.Status = InvoiceStatusPaid
	inv.PaidAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoicePaidEvent(inv))

	return nil
}

// Void transitions the invoice to VOIDED and appends the reason to the
// notes field, preserving whatever was there before.
func (inv *Invoice) Void(reason string) error {
	if !inv.Status.CanBeVoided() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot void invoice in %s status", inv.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}

	previousStatus := inv.Status
	inv.Status = InvoiceStatusVoided
	inv.Notes = inv.Notes + "\nVOIDED: " + reason
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceVoidedEvent(inv, previousStatus, reason))

	return nil
}

// MarkOverdue transitions a pending invoice past its due date to OVERDUE.
// Used by the overdue sweep.
func (inv *Invoice) MarkOverdue() error {
	if inv.Status != InvoiceStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice in %s status as overdue", inv.Status))
	}

	inv.Status = InvoiceStatusOverdue
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceOverdueEvent(inv))

	return nil
}

// IsDueBefore returns true if the invoice is pending and its due date is
// strictly before the given date. This is the overdue-selection predicate.
func (inv *Invoice) IsDueBefore(date time.Time) bool {
	return inv.Status == InvoiceStatusPending && inv.DueOn.Before(StartOfDay(date))
}

// StartOfDay returns midnight of t's calendar date in t's location.
// Truncating by 24h would cut on UTC day boundaries instead.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// IsPending returns true if the invoice is pending
func (inv *Invoice) IsPending() bool {
	return inv.Status == InvoiceStatusPending
}

// IsPaid returns true if the invoice has been paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsVoided returns true if the invoice has been voided
func (inv *Invoice) IsVoided() bool {
	return inv.Status == InvoiceStatusVoided
}
