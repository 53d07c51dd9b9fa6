package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blibbers/vibekit/internal/domain/catalog"
	"github.com/blibbers/vibekit/internal/domain/shared"
	"github.com/blibbers/vibekit/internal/infrastructure/persistence/models"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Create(models.ProductModelFromDomain(product)).Error
}

// Update writes every column of the product
func (r *GormProductRepository) Update(ctx context.Context, product *catalog.Product) error {
	product.Touch()
	model := models.ProductModelFromDomain(product)
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", product.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormProductRepository) FindByExternalPriceID(ctx context.Context, priceID string) (*catalog.Product, error) {
	if priceID == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(r.db.WithContext(ctx).Where("external_price_id = ?", priceID))
}

// FindFreePlan returns the oldest active free product
func (r *GormProductRepository) FindFreePlan(ctx context.Context) (*catalog.Product, error) {
	return r.findOne(r.db.WithContext(ctx).
		Where("is_free = ? AND is_active = ?", true, true).
		Order("created_at ASC"))
}

// FindActive lists active products, cheapest first
func (r *GormProductRepository) FindActive(ctx context.Context) ([]catalog.Product, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("price ASC").Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	products := make([]catalog.Product, 0, len(rows))
	for i := range rows {
		products = append(products, *rows[i].ToDomain())
	}
	return products, nil
}

func (r *GormProductRepository) findOne(query *gorm.DB) (*catalog.Product, error) {
	var model models.ProductModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
