package billing

import (
	"github.com/geminiambiental/billing/internal/domain/shared"
)

// Quotation is the commercial document a service record originates from.
// The billing core reads it to resolve the owning customer of a batch of
// services and to decorate read-side projections; it never mutates it.
type Quotation struct {
	shared.BaseEntity
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	ServiceType  string `json:"service_type"`
}
