package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents an item in the inventory
type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Code         string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Quantity     int             `gorm:"type:int;default:0;not null" json:"quantity"`
	BuyingPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"buying_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"selling_price"`
	CategoryID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	Category     *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	UnitID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"unit_id"`
	Unit         *Unit           `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Category groups products. Managed outside this service.
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Unit is the unit of measure a product is counted in (pcs, box, kg...)
type Unit struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	ShortCode string    `gorm:"type:varchar(20)" json:"short_code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionType Enum Simulation
const (
	TxTypeIn  = "IN"
	TxTypeOut = "OUT"
)

// InventoryTransaction records every stock change applied to a product
type InventoryTransaction struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	PurchaseID      *uuid.UUID `gorm:"type:uuid;index" json:"purchase_id"`
	TransactionType string     `gorm:"type:varchar(10);not null" json:"transaction_type"` // IN, OUT
	QuantityChanged int        `gorm:"type:int;not null" json:"quantity_changed"`
	StockAfter      int        `gorm:"type:int;not null" json:"stock_after"`
	CreatedAt       time.Time  `json:"created_at"`
}
