package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceStatus represents the lifecycle state of a service record
type ServiceStatus string

const (
	ServiceStatusScheduled  ServiceStatus = "SCHEDULED"
	ServiceStatusInProgress ServiceStatus = "IN_PROGRESS"
	ServiceStatusCompleted  ServiceStatus = "COMPLETED"
	ServiceStatusCancelled  ServiceStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ServiceStatus
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusScheduled, ServiceStatusInProgress, ServiceStatusCompleted, ServiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ServiceStatus
func (s ServiceStatus) String() string {
	return string(s)
}

// IsBillable returns true if the service may appear on an invoice.
// Only completed work is billable.
func (s ServiceStatus) IsBillable() bool {
	return s == ServiceStatusCompleted
}

// ProductUsage records one product consumed while performing a service,
// with the unit price snapshotted at time of use.
// It is a value object within the ServiceRecord aggregate, stored as JSONB.
type ProductUsage struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Subtotal returns quantity x unit price for this usage line
func (p *ProductUsage) Subtotal() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// ProductUsages is a slice of ProductUsage that implements GORM Scanner/Valuer for JSONB storage
type ProductUsages []ProductUsage

// Value implements driver.Valuer interface for GORM to store as JSONB
func (p ProductUsages) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (p *ProductUsages) Scan(value interface{}) error {
	if value == nil {
		*p = ProductUsages{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan ProductUsages: unsupported type")
	}

	if len(bytes) == 0 {
		*p = ProductUsages{}
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// ServiceRecord represents a unit of billable environmental work.
// Consumed products are owned by the record and carry price snapshots,
// so the record's price is stable once the work is completed.
type ServiceRecord struct {
	shared.BaseAggregateRoot
	QuotationID        uuid.UUID     `json:"quotation_id"`
	AssignedEmployeeID string        `json:"assigned_employee_id"`
	ScheduledAt        time.Time     `json:"scheduled_at"`
	EstimatedDuration  string        `json:"estimated_duration,omitempty"`
	Priority           string        `json:"priority,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	Status             ServiceStatus `json:"status"`
	Products           ProductUsages `json:"products"`
}

// Price returns the billable amount for this service: the sum of
// quantity x unit price over its consumed products. A service with no
// consumed products prices at zero.
func (s *ServiceRecord) Price() decimal.Decimal {
	total := decimal.Zero
	for i := range s.Products {
		total = total.Add(s.Products[i].Subtotal())
	}
	return total
}

// IsBillable returns true if this service may be invoiced
func (s *ServiceRecord) IsBillable() bool {
	return s.Status.IsBillable()
}
