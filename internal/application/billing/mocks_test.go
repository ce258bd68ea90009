package billing

import (
	"context"
	"time"

	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockInvoiceRepo struct {
	mock.Mock
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if inv := args.Get(0); inv != nil {
		return inv.(*billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepo) FindByNumber(ctx context.Context, invoiceNumber string) (*billing.Invoice, error) {
	args := m.Called(ctx, invoiceNumber)
	if inv := args.Get(0); inv != nil {
		return inv.(*billing.Invoice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceRepo) Search(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]billing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepo) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepo) SaveBatch(ctx context.Context, invoices []*billing.Invoice) error {
	args := m.Called(ctx, invoices)
	return args.Error(0)
}

func (m *mockInvoiceRepo) CountByStatus(ctx context.Context, status billing.InvoiceStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInvoiceRepo) SumAmountByStatus(ctx context.Context, status billing.InvoiceStatus) (decimal.Decimal, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockInvoiceRepo) FindDuePendingBefore(ctx context.Context, date time.Time) ([]billing.Invoice, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) MaxSequenceForYear(ctx context.Context, year int) (int, error) {
	args := m.Called(ctx, year)
	return args.Int(0), args.Error(1)
}

type mockServiceRecordRepo struct {
	mock.Mock
}

func (m *mockServiceRecordRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]billing.ServiceRecord, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]billing.ServiceRecord), args.Error(1)
}

func (m *mockServiceRecordRepo) FindByStatus(ctx context.Context, status billing.ServiceStatus) ([]billing.ServiceRecord, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]billing.ServiceRecord), args.Error(1)
}

func (m *mockServiceRecordRepo) FindCompletedWithoutInvoiceLine(ctx context.Context) ([]billing.ServiceRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]billing.ServiceRecord), args.Error(1)
}

func (m *mockServiceRecordRepo) FindCompletedByQuotation(ctx context.Context, quotationID uuid.UUID) ([]billing.ServiceRecord, error) {
	args := m.Called(ctx, quotationID)
	return args.Get(0).([]billing.ServiceRecord), args.Error(1)
}

type mockQuotationRepo struct {
	mock.Mock
}

func (m *mockQuotationRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Quotation, error) {
	args := m.Called(ctx, id)
	if q := args.Get(0); q != nil {
		return q.(*billing.Quotation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockQuotationRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]billing.Quotation, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]billing.Quotation), args.Error(1)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// completedService builds a completed service record priced by its
// consumed products
func completedService(quotationID uuid.UUID, products ...billing.ProductUsage) billing.ServiceRecord {
	return billing.ServiceRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		QuotationID:       quotationID,
		ScheduledAt:       time.Now().Add(-48 * time.Hour),
		Status:            billing.ServiceStatusCompleted,
		Products:          products,
	}
}

func quotationFor(customerID, customerName string) billing.Quotation {
	return billing.Quotation{
		BaseEntity:   shared.NewBaseEntity(),
		CustomerID:   customerID,
		CustomerName: customerName,
		ServiceType:  "FUMIGATION",
	}
}

func usage(name string, quantity int, unitPrice string) billing.ProductUsage {
	return billing.ProductUsage{
		ProductID:   uuid.New(),
		ProductName: name,
		Unit:        "L",
		Quantity:    quantity,
		UnitPrice:   decimal.RequireFromString(unitPrice),
	}
}
