package billing

import (
	"context"
	"testing"

	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newReportingService(invoiceRepo *mockInvoiceRepo, serviceRepo *mockServiceRecordRepo, quotationRepo *mockQuotationRepo) *ReportingService {
	return NewReportingService(invoiceRepo, serviceRepo, quotationRepo, zap.NewNop())
}

func TestStatistics_AggregatesLedger(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	svc := newReportingService(invoiceRepo, new(mockServiceRecordRepo), new(mockQuotationRepo))

	invoiceRepo.On("CountByStatus", mock.Anything, billing.InvoiceStatusPending).Return(int64(4), nil)
	invoiceRepo.On("CountByStatus", mock.Anything, billing.InvoiceStatusPaid).Return(int64(10), nil)
	invoiceRepo.On("CountByStatus", mock.Anything, billing.InvoiceStatusVoided).Return(int64(2), nil)
	invoiceRepo.On("FindDuePendingBefore", mock.Anything, mock.Anything).
		Return([]billing.Invoice{
			*invoiceInStatus(billing.InvoiceStatusPending),
			*invoiceInStatus(billing.InvoiceStatusPending),
		}, nil)
	invoiceRepo.On("SumAmountByStatus", mock.Anything, billing.InvoiceStatusPending).
		Return(decimal.RequireFromString("400.00"), nil)
	invoiceRepo.On("SumAmountByStatus", mock.Anything, billing.InvoiceStatusPaid).
		Return(decimal.RequireFromString("1250.00"), nil)

	stats, err := svc.Statistics(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.PendingInvoices)
	assert.Equal(t, int64(10), stats.PaidInvoices)
	assert.Equal(t, int64(2), stats.VoidedInvoices)
	assert.Equal(t, int64(2), stats.OverdueInvoices)
	// Per-state sums are reported separately; the overdue amount is the
	// total of the invoices the selection predicate matched, at 150 each.
	assert.Equal(t, "400", stats.PendingAmount.String())
	assert.Equal(t, "300", stats.OverdueAmount.String())
	assert.Equal(t, "1250", stats.PaidAmount.String())
	invoiceRepo.AssertNotCalled(t, "CountByStatus", mock.Anything, billing.InvoiceStatusOverdue)
	invoiceRepo.AssertNotCalled(t, "SumAmountByStatus", mock.Anything, billing.InvoiceStatusOverdue)
}

func TestStatistics_EmptyLedger(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	svc := newReportingService(invoiceRepo, new(mockServiceRecordRepo), new(mockQuotationRepo))

	invoiceRepo.On("CountByStatus", mock.Anything, mock.Anything).Return(int64(0), nil)
	invoiceRepo.On("FindDuePendingBefore", mock.Anything, mock.Anything).Return([]billing.Invoice{}, nil)
	invoiceRepo.On("SumAmountByStatus", mock.Anything, mock.Anything).Return(decimal.Zero, nil)

	stats, err := svc.Statistics(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.PendingInvoices)
	assert.Equal(t, int64(0), stats.OverdueInvoices)
	assert.True(t, stats.PendingAmount.IsZero())
	assert.True(t, stats.OverdueAmount.IsZero())
	assert.True(t, stats.PaidAmount.IsZero())
}

func TestServicesReadyToBill_ProjectsCustomerAndPrice(t *testing.T) {
	serviceRepo := new(mockServiceRecordRepo)
	quotationRepo := new(mockQuotationRepo)
	svc := newReportingService(new(mockInvoiceRepo), serviceRepo, quotationRepo)

	quotation := quotationFor("CUST-001", "Acme Farms")
	record := completedService(quotation.ID, usage("Herbicide", 2, "10.00"), usage("Surfactant", 1, "5.50"))

	serviceRepo.On("FindCompletedWithoutInvoiceLine", mock.Anything).
		Return([]billing.ServiceRecord{record}, nil)
	quotationRepo.On("FindByIDs", mock.Anything, []uuid.UUID{quotation.ID}).
		Return([]billing.Quotation{quotation}, nil)

	result, err := svc.ServicesReadyToBill(context.Background())

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, record.ID, result[0].ServiceRecordID)
	assert.Equal(t, "CUST-001", result[0].CustomerID)
	assert.Equal(t, "Acme Farms", result[0].CustomerName)
	assert.Equal(t, "FUMIGATION", result[0].ServiceType)
	assert.Equal(t, "25.5", result[0].Price.String())
	require.Len(t, result[0].Products, 2)
	assert.Equal(t, "20", result[0].Products[0].Subtotal.String())
}

func TestServicesReadyToBill_Empty(t *testing.T) {
	serviceRepo := new(mockServiceRecordRepo)
	quotationRepo := new(mockQuotationRepo)
	svc := newReportingService(new(mockInvoiceRepo), serviceRepo, quotationRepo)

	serviceRepo.On("FindCompletedWithoutInvoiceLine", mock.Anything).
		Return([]billing.ServiceRecord{}, nil)

	result, err := svc.ServicesReadyToBill(context.Background())

	require.NoError(t, err)
	assert.Empty(t, result)
	quotationRepo.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
}

func TestServicesReadyToBill_MissingQuotationStillListed(t *testing.T) {
	serviceRepo := new(mockServiceRecordRepo)
	quotationRepo := new(mockQuotationRepo)
	svc := newReportingService(new(mockInvoiceRepo), serviceRepo, quotationRepo)

	record := completedService(uuid.New(), usage("Herbicide", 1, "10.00"))
	serviceRepo.On("FindCompletedWithoutInvoiceLine", mock.Anything).
		Return([]billing.ServiceRecord{record}, nil)
	quotationRepo.On("FindByIDs", mock.Anything, mock.Anything).
		Return([]billing.Quotation{}, nil)

	result, err := svc.ServicesReadyToBill(context.Background())

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Empty(t, result[0].CustomerID)
	assert.Equal(t, "10", result[0].Price.String())
}

func TestSearchInvoices_ReturnsPage(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	svc := newReportingService(invoiceRepo, new(mockServiceRecordRepo), new(mockQuotationRepo))

	filter := billing.InvoiceFilter{}
	filter.Page = 2
	filter.PageSize = 10
	invoiceRepo.On("Search", mock.Anything, filter).
		Return([]billing.Invoice{*invoiceInStatus(billing.InvoiceStatusPending)}, int64(11), nil)

	page, err := svc.SearchInvoices(context.Background(), filter)

	require.NoError(t, err)
	assert.Equal(t, int64(11), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "F-2026-001", page.Items[0].InvoiceNumber)
}

func TestGetInvoice_NotFound(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	svc := newReportingService(invoiceRepo, new(mockServiceRecordRepo), new(mockQuotationRepo))

	id := uuid.New()
	invoiceRepo.On("FindByID", mock.Anything, id).Return(nil, nil)

	_, err := svc.GetInvoice(context.Background(), id)

	assert.Error(t, err)
}

func TestGetInvoiceByNumber(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	svc := newReportingService(invoiceRepo, new(mockServiceRecordRepo), new(mockQuotationRepo))

	invoiceRepo.On("FindByNumber", mock.Anything, "F-2026-001").
		Return(invoiceInStatus(billing.InvoiceStatusPending), nil)

	result, err := svc.GetInvoiceByNumber(context.Background(), "F-2026-001")

	require.NoError(t, err)
	assert.Equal(t, "F-2026-001", result.InvoiceNumber)
}

func TestGetInvoiceByNumber_NotFound(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	svc := newReportingService(invoiceRepo, new(mockServiceRecordRepo), new(mockQuotationRepo))

	invoiceRepo.On("FindByNumber", mock.Anything, "F-2026-999").Return(nil, nil)

	_, err := svc.GetInvoiceByNumber(context.Background(), "F-2026-999")

	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVOICE_NOT_FOUND", domainErr.Code)
}
