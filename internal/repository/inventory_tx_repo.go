package repository

import (
	"context"

	"inventory-admin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryTxRepository interface {
	Create(ctx context.Context, tx *model.InventoryTransaction) error
	ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]model.InventoryTransaction, error)
}

type inventoryTxRepository struct {
	db *gorm.DB
}

func NewInventoryTxRepository(db *gorm.DB) InventoryTxRepository {
	return &inventoryTxRepository{db: db}
}

func (r *inventoryTxRepository) Create(ctx context.Context, tx *model.InventoryTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *inventoryTxRepository) ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]model.InventoryTransaction, error) {
	var txs []model.InventoryTransaction
	if err := GetDB(ctx, r.db).Where("purchase_id = ?", purchaseID).Order("created_at").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}
