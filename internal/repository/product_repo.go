package repository

import (
	"context"

	"inventory-admin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	CreateBatch(ctx context.Context, products []model.Product, batchSize int) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	IncrementQuantity(ctx context.Context, id uuid.UUID, delta int) (int, error)
	EachBatch(ctx context.Context, batchSize int, fn func(batch []model.Product) error) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) CreateBatch(ctx context.Context, products []model.Product, batchSize int) error {
	if len(products) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).CreateInBatches(&products, batchSize).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// IncrementQuantity adds delta to the product's on-hand quantity in a single
// UPDATE and returns the quantity after the change. The row stays locked until
// the surrounding transaction ends.
func (r *productRepository) IncrementQuantity(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	db := GetDB(ctx, r.db)

	result := db.Model(&model.Product{}).
		Where("id = ?", id).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var quantity int
	if err := db.Model(&model.Product{}).Where("id = ?", id).Pluck("quantity", &quantity).Error; err != nil {
		return 0, err
	}
	return quantity, nil
}

// EachBatch walks every product ordered by primary key, handing fn at most
// batchSize rows at a time so large inventories never sit in memory at once.
func (r *productRepository) EachBatch(ctx context.Context, batchSize int, fn func(batch []model.Product) error) error {
	var batch []model.Product
	return GetDB(ctx, r.db).FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}
