package persistence

import (
	"context"
	"errors"

	"github.com/geminiambiental/billing/internal/domain/billing"
	"github.com/geminiambiental/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormQuotationRepository implements QuotationRepository using GORM
type GormQuotationRepository struct {
	db *gorm.DB
}

// NewGormQuotationRepository creates a new GormQuotationRepository
func NewGormQuotationRepository(db *gorm.DB) *GormQuotationRepository {
	return &GormQuotationRepository{db: db}
}

// FindByID finds a quotation by ID
func (r *GormQuotationRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Quotation, error) {
	var model models.QuotationModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs batch-resolves quotations by ID
func (r *GormQuotationRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]billing.Quotation, error) {
	if len(ids) == 0 {
		return []billing.Quotation{}, nil
	}

	var quotationModels []models.QuotationModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&quotationModels).Error; err != nil {
		return nil, err
	}

	quotations := make([]billing.Quotation, len(quotationModels))
	for i := range quotationModels {
		quotations[i] = *quotationModels[i].ToDomain()
	}
	return quotations, nil
}

// Ensure GormQuotationRepository implements QuotationRepository
var _ billing.QuotationRepository = (*GormQuotationRepository)(nil)
