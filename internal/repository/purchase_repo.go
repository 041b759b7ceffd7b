package repository

import (
	"context"
	"time"

	"inventory-admin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *model.Purchase) error
	CreateDetails(ctx context.Context, details []model.PurchaseDetail) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Purchase, error)
	FindDetails(ctx context.Context, purchaseID uuid.UUID) ([]model.PurchaseDetail, error)
	MarkApproved(ctx context.Context, purchase *model.Purchase) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, status string, page, limit int) ([]model.Purchase, int64, error)
	Report(ctx context.Context, from, to time.Time) ([]model.PurchaseReportRow, error)
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *model.Purchase) error {
	// Details are written separately so the caller controls their insertion.
	return GetDB(ctx, r.db).Omit("Details").Create(purchase).Error
}

func (r *purchaseRepository) CreateDetails(ctx context.Context, details []model.PurchaseDetail) error {
	if len(details) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&details).Error
}

func (r *purchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	var purchase model.Purchase
	if err := GetDB(ctx, r.db).
		Preload("Supplier").
		Preload("Creator").
		Preload("Updater").
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Preload("Details.Product").
		First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *purchaseRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	var purchase model.Purchase
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&purchase).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *purchaseRepository) FindDetails(ctx context.Context, purchaseID uuid.UUID) ([]model.PurchaseDetail, error) {
	var details []model.PurchaseDetail
	if err := GetDB(ctx, r.db).Where("purchase_id = ?", purchaseID).
		Order("created_at, id").Find(&details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

func (r *purchaseRepository) MarkApproved(ctx context.Context, purchase *model.Purchase) error {
	return GetDB(ctx, r.db).Model(&model.Purchase{}).Where("id = ?", purchase.ID).Updates(map[string]interface{}{
		"status":        purchase.Status,
		"updated_by":    purchase.UpdatedBy,
		"purchase_date": purchase.PurchaseDate,
	}).Error
}

func (r *purchaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("purchase_id = ?", id).Delete(&model.PurchaseDetail{}).Error; err != nil {
		return err
	}
	result := db.Where("id = ?", id).Delete(&model.Purchase{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *purchaseRepository) List(ctx context.Context, status string, page, limit int) ([]model.Purchase, int64, error) {
	var purchases []model.Purchase
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Purchase{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Supplier").Preload("Creator").Preload("Updater")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&purchases).Error; err != nil {
		return nil, 0, err
	}

	return purchases, total, nil
}

// Report returns approved line items whose purchase_date falls in [from, to).
func (r *purchaseRepository) Report(ctx context.Context, from, to time.Time) ([]model.PurchaseReportRow, error) {
	var rows []model.PurchaseReportRow
	err := GetDB(ctx, r.db).Table("purchase_details").
		Select(`purchases.purchase_date AS date,
			purchases.purchase_no AS purchase_no,
			suppliers.name AS supplier_name,
			products.code AS product_code,
			products.name AS product_name,
			purchase_details.quantity AS quantity,
			purchase_details.unitcost AS unit_cost,
			purchase_details.total AS total,
			COALESCE(users.name, '') AS created_by`).
		Joins("JOIN products ON products.id = purchase_details.product_id").
		Joins("JOIN purchases ON purchases.id = purchase_details.purchase_id").
		Joins("JOIN suppliers ON suppliers.id = purchases.supplier_id").
		Joins("LEFT JOIN users ON users.id = purchases.created_by").
		Where("purchases.status = ?", model.PurchaseStatusApproved).
		Where("purchases.purchase_date >= ? AND purchases.purchase_date < ?", from, to).
		Order("purchases.purchase_date ASC, purchases.purchase_no ASC, purchase_details.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
