package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/geminiambiental/billing/internal/domain/shared"
	"github.com/geminiambiental/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// invoiceSortColumns whitelists the columns Search accepts for ordering
var invoiceSortColumns = map[string]bool{
	"invoice_number": true,
	"issued_on":      true,
	"due_on":         true,
	"total_amount":   true,
	"status":         true,
	"created_at":     true,
}

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice with its lines by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice with its lines by invoice number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&model, "invoice_number = ?", invoiceNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Search returns a page of invoices matching the filter plus the total count
func (r *GormInvoiceRepository) Search(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, int64, error) {
	base := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Preload("Lines").Order(r.orderClause(filter))
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var invoiceModels []models.InvoiceModel
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, 0, err
	}

	invoices := make([]billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, total, nil
}

// Create persists a new invoice and all of its lines in one transaction.
// A duplicate invoice number surfaces as shared.ErrAlreadyExists.
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock updates an invoice header with optimistic locking.
// Lines are immutable after creation and are not touched.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	return saveInvoiceWithLock(r.db.WithContext(ctx), invoice)
}

// SaveBatch updates a batch of invoice headers in one transaction
func (r *GormInvoiceRepository) SaveBatch(ctx context.Context, invoices []*billing.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, invoice := range invoices {
			if err := saveInvoiceWithLock(tx, invoice); err != nil {
				return fmt.Errorf("invoice %s: %w", invoice.InvoiceNumber, err)
			}
		}
		return nil
	})
}

func saveInvoiceWithLock(db *gorm.DB, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	model.Lines = nil
	result := db.
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The invoice has been modified by another transaction")
	}
	return nil
}

// CountByStatus counts invoices in the given status
func (r *GormInvoiceRepository) CountByStatus(ctx context.Context, status billing.InvoiceStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumAmountByStatus sums the total amount over invoices in the given status
func (r *GormInvoiceRepository) SumAmountByStatus(ctx context.Context, status billing.InvoiceStatus) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("COALESCE(SUM(total_amount), 0) as total").
		Where("status = ?", status).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// FindDuePendingBefore returns pending invoices whose due date is strictly
// before the given date
func (r *GormInvoiceRepository) FindDuePendingBefore(ctx context.Context, date time.Time) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_on < ?", billing.InvoiceStatusPending, date).
		Order("due_on ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// MaxSequenceForYear returns the highest per-year sequence among existing
// invoice numbers, or 0 if none exist. Voided invoices keep their number,
// so their sequence is never reissued.
func (r *GormInvoiceRepository) MaxSequenceForYear(ctx context.Context, year int) (int, error) {
	var result struct {
		MaxSeq int
	}
	prefix := fmt.Sprintf("F-%d-%%", year)
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("COALESCE(MAX(CAST(SPLIT_PART(invoice_number, '-', 3) AS INTEGER)), 0) as max_seq").
		Where("invoice_number LIKE ?", prefix).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.MaxSeq, nil
}

// applyFilter applies search filters without pagination or ordering
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.Customer != "" {
		query = query.Where("customer_id ILIKE ?", "%"+filter.Customer+"%")
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issued_on >= ?", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		query = query.Where("issued_on <= ?", *filter.IssuedTo)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR notes ILIKE ?", pattern, pattern)
	}
	return query
}

// orderClause builds a safe ORDER BY clause from the filter
func (r *GormInvoiceRepository) orderClause(filter billing.InvoiceFilter) string {
	column := "issued_on"
	if invoiceSortColumns[filter.OrderBy] {
		column = filter.OrderBy
	}
	direction := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
