// Package models contains the GORM persistence models and their
// conversions to and from the domain entities.
package models

import (
	"time"

	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber string                `gorm:"type:varchar(20);not null;uniqueIndex:idx_invoices_number"`
	CustomerID    string                `gorm:"type:varchar(100);not null;index"`
	IssuedOn      time.Time             `gorm:"type:date;not null;index"`
	DueOn         time.Time             `gorm:"type:date;not null;index"`
	PaidAt        *time.Time
	TotalAmount   decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Status        billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Notes         string                `gorm:"type:text"`
	Lines         []InvoiceLineModel    `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceLineModel is the persistence model for one invoice line.
// A service record may be referenced by at most one line per invoice.
type InvoiceLineModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_lines_invoice_service,priority:1"`
	ServiceRecordID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_lines_invoice_service,priority:2;index"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity        int             `gorm:"not null;default:1"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineModel) TableName() string {
	return "invoice_lines"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	lines := make([]billing.InvoiceLine, 0, len(m.Lines))
	for i := range m.Lines {
		lines = append(lines, billing.InvoiceLine{
			ServiceRecordID: m.Lines[i].ServiceRecordID,
			UnitPrice:       m.Lines[i].UnitPrice,
			Quantity:        m.Lines[i].Quantity,
			Subtotal:        m.Lines[i].Subtotal,
		})
	}

	return &billing.Invoice{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		InvoiceNumber: m.InvoiceNumber,
		CustomerID:    m.CustomerID,
		IssuedOn:      m.IssuedOn,
		DueOn:         m.DueOn,
		PaidAt:        m.PaidAt,
		TotalAmount:   m.TotalAmount,
		Status:        m.Status,
		Notes:         m.Notes,
		Lines:         lines,
	}
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.CustomerID = inv.CustomerID
	m.IssuedOn = inv.IssuedOn
	m.DueOn = inv.DueOn
	m.PaidAt = inv.PaidAt
	m.TotalAmount = inv.TotalAmount
	m.Status = inv.Status
	m.Notes = inv.Notes

	m.Lines = make([]InvoiceLineModel, 0, len(inv.Lines))
	for i := range inv.Lines {
		m.Lines = append(m.Lines, InvoiceLineModel{
			ID:              uuid.New(),
			InvoiceID:       inv.ID,
			ServiceRecordID: inv.Lines[i].ServiceRecordID,
			UnitPrice:       inv.Lines[i].UnitPrice,
			Quantity:        inv.Lines[i].Quantity,
			Subtotal:        inv.Lines[i].Subtotal,
		})
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// ServiceRecordModel is the persistence model for the ServiceRecord aggregate root.
type ServiceRecordModel struct {
	AggregateModel
	QuotationID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	AssignedEmployeeID string                `gorm:"type:varchar(100)"`
	ScheduledAt        time.Time             `gorm:"not null;index"`
	EstimatedDuration  string                `gorm:"type:varchar(50)"`
	Priority           string                `gorm:"type:varchar(20)"`
	Notes              string                `gorm:"type:text"`
	Status             billing.ServiceStatus `gorm:"type:varchar(20);not null;default:'SCHEDULED';index"`
	Products           billing.ProductUsages `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (ServiceRecordModel) TableName() string {
	return "service_records"
}

// ToDomain converts the persistence model to a domain ServiceRecord.
func (m *ServiceRecordModel) ToDomain() *billing.ServiceRecord {
	return &billing.ServiceRecord{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		QuotationID:        m.QuotationID,
		AssignedEmployeeID: m.AssignedEmployeeID,
		ScheduledAt:        m.ScheduledAt,
		EstimatedDuration:  m.EstimatedDuration,
		Priority:           m.Priority,
		Notes:              m.Notes,
		Status:             m.Status,
		Products:           m.Products,
	}
}

// FromDomain populates the persistence model from a domain ServiceRecord.
func (m *ServiceRecordModel) FromDomain(record *billing.ServiceRecord) {
	m.FromDomainAggregateRoot(record.BaseAggregateRoot)
	m.QuotationID = record.QuotationID
	m.AssignedEmployeeID = record.AssignedEmployeeID
	m.ScheduledAt = record.ScheduledAt
	m.EstimatedDuration = record.EstimatedDuration
	m.Priority = record.Priority
	m.Notes = record.Notes
	m.Status = record.Status
	m.Products = record.Products
}

// QuotationModel is the persistence model for the Quotation read model.
type QuotationModel struct {
	BaseModel
	CustomerID   string `gorm:"type:varchar(100);not null;index"`
	CustomerName string `gorm:"type:varchar(200);not null"`
	ServiceType  string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (QuotationModel) TableName() string {
	return "quotations"
}

// ToDomain converts the persistence model to a domain Quotation.
func (m *QuotationModel) ToDomain() *billing.Quotation {
	return &billing.Quotation{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		CustomerID:   m.CustomerID,
		CustomerName: m.CustomerName,
		ServiceType:  m.ServiceType,
	}
}
