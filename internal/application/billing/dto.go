package billing

import (
	"time"

	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLineDTO is the application-level representation of an invoice line
type InvoiceLineDTO struct {
	ServiceRecordID uuid.UUID       `json:"service_record_id"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// InvoiceDTO is the application-level representation of an invoice
type InvoiceDTO struct {
	ID            uuid.UUID        `json:"id"`
	InvoiceNumber string           `json:"invoice_number"`
	CustomerID    string           `json:"customer_id"`
	IssuedOn      time.Time        `json:"issued_on"`
	DueOn         time.Time        `json:"due_on"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	Status        string           `json:"status"`
	Notes         string           `json:"notes,omitempty"`
	Lines         []InvoiceLineDTO `json:"lines"`
	Version       int              `json:"version"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ToInvoiceDTO converts an invoice aggregate to its DTO
func ToInvoiceDTO(inv *billing.Invoice) *InvoiceDTO {
	lines := make([]InvoiceLineDTO, 0, len(inv.Lines))
	for _, line := range inv.Lines {
		lines = append(lines, InvoiceLineDTO{
			ServiceRecordID: line.ServiceRecordID,
			UnitPrice:       line.UnitPrice,
			Quantity:        line.Quantity,
			Subtotal:        line.Subtotal,
		})
	}

	return &InvoiceDTO{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		IssuedOn:      inv.IssuedOn,
		DueOn:         inv.DueOn,
		PaidAt:        inv.PaidAt,
		TotalAmount:   inv.TotalAmount,
		Status:        inv.Status.String(),
		Notes:         inv.Notes,
		Lines:         lines,
		Version:       inv.Version,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

// ToInvoiceDTOs converts a slice of invoices
func ToInvoiceDTOs(invoices []billing.Invoice) []InvoiceDTO {
	dtos := make([]InvoiceDTO, 0, len(invoices))
	for i := range invoices {
		dtos = append(dtos, *ToInvoiceDTO(&invoices[i]))
	}
	return dtos
}

// ProductUsageDTO is one consumed product on a service projection
type ProductUsageDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ServiceReadyToBillDTO projects a completed, not yet invoiced service
// together with the customer it would be billed to
type ServiceReadyToBillDTO struct {
	ServiceRecordID uuid.UUID         `json:"service_record_id"`
	QuotationID     uuid.UUID         `json:"quotation_id"`
	CustomerID      string            `json:"customer_id"`
	CustomerName    string            `json:"customer_name"`
	ServiceType     string            `json:"service_type"`
	CompletedNotes  string            `json:"notes,omitempty"`
	Price           decimal.Decimal   `json:"price"`
	Products        []ProductUsageDTO `json:"products"`
}

// ToServiceReadyToBillDTO projects a service record and its quotation.
// A nil quotation leaves the customer fields empty rather than failing
// the whole listing.
func ToServiceReadyToBillDTO(record *billing.ServiceRecord, quotation *billing.Quotation) ServiceReadyToBillDTO {
	products := make([]ProductUsageDTO, 0, len(record.Products))
	for i := range record.Products {
		usage := record.Products[i]
		products = append(products, ProductUsageDTO{
			ProductID:   usage.ProductID,
			ProductName: usage.ProductName,
			Unit:        usage.Unit,
			Quantity:    usage.Quantity,
			UnitPrice:   usage.UnitPrice,
			Subtotal:    usage.Subtotal(),
		})
	}

	dto := ServiceReadyToBillDTO{
		ServiceRecordID: record.ID,
		QuotationID:     record.QuotationID,
		CompletedNotes:  record.Notes,
		Price:           record.Price(),
		Products:        products,
	}
	if quotation != nil {
		dto.CustomerID = quotation.CustomerID
		dto.CustomerName = quotation.CustomerName
		dto.ServiceType = quotation.ServiceType
	}
	return dto
}

// StatisticsDTO summarizes the invoice ledger at a point in time. The
// overdue figures cover pending invoices already past due, whether or
// not the daily sweep has reached them yet.
type StatisticsDTO struct {
	PendingInvoices int64           `json:"pending_invoices"`
	OverdueInvoices int64           `json:"overdue_invoices"`
	PaidInvoices    int64           `json:"paid_invoices"`
	VoidedInvoices  int64           `json:"voided_invoices"`
	PendingAmount   decimal.Decimal `json:"pending_amount"`
	OverdueAmount   decimal.Decimal `json:"overdue_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
}
