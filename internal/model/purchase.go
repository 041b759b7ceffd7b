package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseStatus constants
const (
	PurchaseStatusPending  = "PENDING"
	PurchaseStatusApproved = "APPROVED"
)

// Purchase is a supplier order. Its quantities only reach product stock once approved.
type Purchase struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SupplierID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier     *Supplier        `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	PurchaseNo   string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"purchase_no"`
	PurchaseDate *time.Time       `gorm:"index" json:"purchase_date"`
	Status       string           `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	TotalAmount  decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0" json:"total_amount"`
	CreatedBy    *uuid.UUID       `gorm:"type:uuid;index" json:"created_by"`
	Creator      *User            `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	UpdatedBy    *uuid.UUID       `gorm:"type:uuid" json:"updated_by"`
	Updater      *User            `gorm:"foreignKey:UpdatedBy" json:"updater,omitempty"`
	Details      []PurchaseDetail `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"details"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// PurchaseDetail is one product line within a Purchase
type PurchaseDetail struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PurchaseID uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_id"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product    *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity   int             `gorm:"type:int;not null" json:"quantity"`
	UnitCost   decimal.Decimal `gorm:"column:unitcost;type:decimal(18,4);not null" json:"unitcost"`
	Total      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PurchaseReportRow is a flattened approved line item used by the purchase report
type PurchaseReportRow struct {
	Date         time.Time       `json:"date"`
	PurchaseNo   string          `json:"purchase_no"`
	SupplierName string          `json:"supplier_name"`
	ProductCode  string          `json:"product_code"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unitcost"`
	Total        decimal.Decimal `json:"total"`
	CreatedBy    string          `json:"created_by"`
}
