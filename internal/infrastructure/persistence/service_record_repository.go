package persistence

import (
	"context"

	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/geminiambiental/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormServiceRecordRepository implements ServiceRecordRepository using GORM
type GormServiceRecordRepository struct {
	db *gorm.DB
}

// NewGormServiceRecordRepository creates a new GormServiceRecordRepository
func NewGormServiceRecordRepository(db *gorm.DB) *GormServiceRecordRepository {
	return &GormServiceRecordRepository{db: db}
}

// FindByIDs batch-resolves service records by ID
func (r *GormServiceRecordRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]billing.ServiceRecord, error) {
	if len(ids) == 0 {
		return []billing.ServiceRecord{}, nil
	}

	var recordModels []models.ServiceRecordModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toServiceRecords(recordModels), nil
}

// FindByStatus lists service records in the given status
func (r *GormServiceRecordRepository) FindByStatus(ctx context.Context, status billing.ServiceStatus) ([]billing.ServiceRecord, error) {
	var recordModels []models.ServiceRecordModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("scheduled_at ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toServiceRecords(recordModels), nil
}

// FindCompletedWithoutInvoiceLine lists completed services that no
// invoice line references yet
func (r *GormServiceRecordRepository) FindCompletedWithoutInvoiceLine(ctx context.Context) ([]billing.ServiceRecord, error) {
	var recordModels []models.ServiceRecordModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", billing.ServiceStatusCompleted).
		Where("NOT EXISTS (SELECT 1 FROM invoice_lines WHERE invoice_lines.service_record_id = service_records.id)").
		Order("scheduled_at ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toServiceRecords(recordModels), nil
}

// FindCompletedByQuotation lists completed services for a quotation
func (r *GormServiceRecordRepository) FindCompletedByQuotation(ctx context.Context, quotationID uuid.UUID) ([]billing.ServiceRecord, error) {
	var recordModels []models.ServiceRecordModel
	if err := r.db.WithContext(ctx).
		Where("quotation_id = ? AND status = ?", quotationID, billing.ServiceStatusCompleted).
		Order("scheduled_at ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	return toServiceRecords(recordModels), nil
}

func toServiceRecords(recordModels []models.ServiceRecordModel) []billing.ServiceRecord {
	records := make([]billing.ServiceRecord, len(recordModels))
	for i := range recordModels {
		records[i] = *recordModels[i].ToDomain()
	}
	return records
}

// Ensure GormServiceRecordRepository implements ServiceRecordRepository
var _ billing.ServiceRecordRepository = (*GormServiceRecordRepository)(nil)
