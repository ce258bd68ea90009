package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDB creates a gorm DB backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func newMockInvoiceRepository(t *testing.T) (*GormInvoiceRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockDB(t)
	return NewGormInvoiceRepository(gormDB), mock, mockDB
}

func invoiceColumns() []string {
	return []string{"id", "created_at", "updated_at", "version", "invoice_number",
		"customer_id", "issued_on", "due_on", "paid_at", "total_amount", "status", "notes"}
}

func TestGormInvoiceRepository_FindByID(t *testing.T) {
	t.Run("finds existing invoice with lines", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows(invoiceColumns()).
			AddRow(invoiceID, now, now, 1, "F-2026-001", "CUST-001", now, now.Add(30*24*time.Hour),
				nil, decimal.RequireFromString("150.00"), "PENDING", "")

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(invoiceID, 1).
			WillReturnRows(rows)

		lineRows := sqlmock.NewRows([]string{"id", "invoice_id", "service_record_id", "unit_price", "quantity", "subtotal", "created_at"}).
			AddRow(uuid.New(), invoiceID, uuid.New(), decimal.RequireFromString("150.00"), 1, decimal.RequireFromString("150.00"), now)
		mock.ExpectQuery(`SELECT \* FROM "invoice_lines" WHERE "invoice_lines"\."invoice_id" = \$1`).
			WithArgs(invoiceID).
			WillReturnRows(lineRows)

		invoice, err := repo.FindByID(context.Background(), invoiceID)

		assert.NoError(t, err)
		require.NotNil(t, invoice)
		assert.Equal(t, "F-2026-001", invoice.InvoiceNumber)
		assert.Equal(t, billing.InvoiceStatusPending, invoice.Status)
		require.Len(t, invoice.Lines, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil for non-existent invoice", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(invoiceID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		invoice, err := repo.FindByID(context.Background(), invoiceID)

		assert.NoError(t, err)
		assert.Nil(t, invoice)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_CountByStatus(t *testing.T) {
	repo, mock, mockDB := newMockInvoiceRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "invoices" WHERE status = \$1`).
		WithArgs("PAID").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountByStatus(context.Background(), billing.InvoiceStatusPaid)

	assert.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceRepository_SumAmountByStatus(t *testing.T) {
	t.Run("sums matching invoices", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_amount\), 0\) as total FROM "invoices" WHERE status = \$1`).
			WithArgs("PENDING").
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("450.75"))

		total, err := repo.SumAmountByStatus(context.Background(), billing.InvoiceStatusPending)

		assert.NoError(t, err)
		assert.Equal(t, "450.75", total.String())
	})

	t.Run("empty selection sums to zero", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_amount\), 0\) as total FROM "invoices" WHERE status = \$1`).
			WithArgs("VOIDED").
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("0"))

		total, err := repo.SumAmountByStatus(context.Background(), billing.InvoiceStatusVoided)

		assert.NoError(t, err)
		assert.True(t, total.IsZero())
	})
}

func TestGormInvoiceRepository_MaxSequenceForYear(t *testing.T) {
	t.Run("returns highest sequence", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT COALESCE\(MAX\(CAST\(SPLIT_PART\(invoice_number, '-', 3\) AS INTEGER\)\), 0\) as max_seq FROM "invoices" WHERE invoice_number LIKE \$1`).
			WithArgs("F-2026-%").
			WillReturnRows(sqlmock.NewRows([]string{"max_seq"}).AddRow(12))

		seq, err := repo.MaxSequenceForYear(context.Background(), 2026)

		assert.NoError(t, err)
		assert.Equal(t, 12, seq)
	})

	t.Run("returns zero for empty year", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT COALESCE\(MAX\(CAST\(SPLIT_PART\(invoice_number, '-', 3\) AS INTEGER\)\), 0\) as max_seq FROM "invoices" WHERE invoice_number LIKE \$1`).
			WithArgs("F-2027-%").
			WillReturnRows(sqlmock.NewRows([]string{"max_seq"}).AddRow(0))

		seq, err := repo.MaxSequenceForYear(context.Background(), 2027)

		assert.NoError(t, err)
		assert.Equal(t, 0, seq)
	})
}

func TestGormInvoiceRepository_FindDuePendingBefore(t *testing.T) {
	repo, mock, mockDB := newMockInvoiceRepository(t)
	defer mockDB.Close()

	now := time.Now()
	cutoff := now.Truncate(24 * time.Hour)
	rows := sqlmock.NewRows(invoiceColumns()).
		AddRow(uuid.New(), now, now, 1, "F-2026-003", "CUST-002", now.Add(-40*24*time.Hour),
			now.Add(-10*24*time.Hour), nil, decimal.RequireFromString("99.00"), "PENDING", "")

	mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE status = \$1 AND due_on < \$2 ORDER BY due_on ASC`).
		WithArgs("PENDING", cutoff).
		WillReturnRows(rows)

	invoices, err := repo.FindDuePendingBefore(context.Background(), cutoff)

	assert.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "F-2026-003", invoices[0].InvoiceNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceRepository_SaveWithLock(t *testing.T) {
	t.Run("updates matching version", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoice := pendingInvoice(t)
		require.NoError(t, invoice.MarkPaid())

		mock.ExpectExec(`UPDATE "invoices" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), invoice)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version returns lock error", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoice := pendingInvoice(t)
		require.NoError(t, invoice.MarkPaid())

		mock.ExpectExec(`UPDATE "invoices" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), invoice)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "OPTIMISTIC_LOCK_ERROR", domainErr.Code)
	})
}

func TestGormInvoiceRepository_OrderClause(t *testing.T) {
	repo := &GormInvoiceRepository{}

	tests := []struct {
		orderBy  string
		orderDir string
		want     string
	}{
		{"", "", "issued_on DESC"},
		{"total_amount", "asc", "total_amount ASC"},
		{"due_on", "desc", "due_on DESC"},
		{"notes; DROP TABLE invoices", "asc", "issued_on ASC"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.orderBy, tt.orderDir), func(t *testing.T) {
			filter := billing.InvoiceFilter{}
			filter.OrderBy = tt.orderBy
			filter.OrderDir = tt.orderDir
			assert.Equal(t, tt.want, repo.orderClause(filter))
		})
	}
}

func pendingInvoice(t *testing.T) *billing.Invoice {
	t.Helper()
	line := billing.NewInvoiceLine(uuid.New(), decimal.RequireFromString("150.00"))
	invoice, err := billing.NewInvoice("F-2026-001", "CUST-001", time.Now(), "", []billing.InvoiceLine{line})
	require.NoError(t, err)
	invoice.ClearDomainEvents()
	return invoice
}
