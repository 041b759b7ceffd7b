package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"inventory-admin/internal/model"
	"inventory-admin/internal/repository"
	"inventory-admin/internal/transfer"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type PurchaseDetailRequest struct {
	ProductID string          `json:"product_id" binding:"required,uuid"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unitcost"`
	Total     decimal.Decimal `json:"total"`
}

type CreatePurchaseRequest struct {
	SupplierID   string                  `json:"supplier_id" binding:"required,uuid"`
	PurchaseDate string                  `json:"purchase_date"` // YYYY-MM-DD or RFC3339, defaults to now
	PurchaseNo   string                  `json:"purchase_no" binding:"required,max=100"`
	Status       string                  `json:"status" binding:"omitempty,oneof=PENDING APPROVED"`
	TotalAmount  *decimal.Decimal        `json:"total_amount" binding:"required"`
	Details      []PurchaseDetailRequest `json:"details" binding:"dive"`
}

type PurchaseFilter struct {
	Status string // PENDING, APPROVED or empty for all
	Page   int
	Limit  int
}

type PurchaseDetailResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductCode string          `json:"product_code,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitcost"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   string          `json:"created_at"`
}

type PurchaseResponse struct {
	ID           string                   `json:"id"`
	SupplierID   string                   `json:"supplier_id"`
	SupplierName string                   `json:"supplier_name,omitempty"`
	PurchaseNo   string                   `json:"purchase_no"`
	PurchaseDate *string                  `json:"purchase_date"`
	Status       string                   `json:"status"`
	TotalAmount  decimal.Decimal          `json:"total_amount"`
	CreatedBy    *string                  `json:"created_by"`
	CreatorName  string                   `json:"creator_name,omitempty"`
	UpdatedBy    *string                  `json:"updated_by"`
	UpdaterName  string                   `json:"updater_name,omitempty"`
	Details      []PurchaseDetailResponse `json:"details"`
	CreatedAt    string                   `json:"created_at"`
	UpdatedAt    string                   `json:"updated_at"`
}

// StockLevel is a product's on-hand quantity right after an approval.
type StockLevel struct {
	ProductID string `json:"product_id"`
	Added     int    `json:"added"`
	Quantity  int    `json:"quantity"`
}

type PurchaseService interface {
	Create(ctx context.Context, actorID string, req CreatePurchaseRequest) (PurchaseResponse, error)
	Approve(ctx context.Context, actorID string, id string) (PurchaseResponse, error)
	Delete(ctx context.Context, actorID string, id string) error
	Get(ctx context.Context, id string) (PurchaseResponse, error)
	List(ctx context.Context, filter PurchaseFilter) ([]PurchaseResponse, int64, error)
	Report(ctx context.Context, startDate, endDate string) ([]model.PurchaseReportRow, error)
}

type purchaseService struct {
	purchaseRepo    repository.PurchaseRepository
	productRepo     repository.ProductRepository
	supplierRepo    repository.SupplierRepository
	inventoryTxRepo repository.InventoryTxRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
	events          EventPublisher
	now             func() time.Time
}

func NewPurchaseService(
	purchaseRepo repository.PurchaseRepository,
	productRepo repository.ProductRepository,
	supplierRepo repository.SupplierRepository,
	inventoryTxRepo repository.InventoryTxRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) PurchaseService {
	if events == nil {
		events = noopPublisher{}
	}
	return &purchaseService{
		purchaseRepo:    purchaseRepo,
		productRepo:     productRepo,
		supplierRepo:    supplierRepo,
		inventoryTxRepo: inventoryTxRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
		events:          events,
		now:             time.Now,
	}
}

func (s *purchaseService) Create(ctx context.Context, actorID string, req CreatePurchaseRequest) (PurchaseResponse, error) {
	actor, err := parseActor(actorID)
	if err != nil {
		return PurchaseResponse{}, err
	}

	purchase, err := s.buildPurchase(req, actor)
	if err != nil {
		return PurchaseResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.supplierRepo.FindByID(txCtx, purchase.SupplierID); err != nil {
			return notFound(err, "supplier")
		}

		details := make([]model.PurchaseDetail, 0, len(req.Details))
		for _, d := range req.Details {
			productID, _ := uuid.Parse(d.ProductID)
			if _, err := s.productRepo.FindByID(txCtx, productID); err != nil {
				return notFound(err, "product "+d.ProductID)
			}
			details = append(details, model.PurchaseDetail{
				ProductID: productID,
				Quantity:  d.Quantity,
				UnitCost:  d.UnitCost,
				Total:     d.Total,
			})
		}

		if err := s.purchaseRepo.Create(txCtx, purchase); err != nil {
			if isUniqueViolation(err) {
				return NewValidationError("purchase_no", "has already been taken")
			}
			return persistence(err, "failed to create purchase")
		}

		now := s.now()
		for i := range details {
			details[i].PurchaseID = purchase.ID
			details[i].CreatedAt = now
		}
		if err := s.purchaseRepo.CreateDetails(txCtx, details); err != nil {
			return persistence(err, "failed to create purchase details")
		}
		purchase.Details = details

		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCreatePurchase, purchase.ID.String(), purchase.PurchaseNo, map[string]interface{}{
			"supplier_id":  purchase.SupplierID.String(),
			"status":       purchase.Status,
			"total_amount": purchase.TotalAmount.String(),
			"details":      len(details),
		})
	})
	if err != nil {
		return PurchaseResponse{}, err
	}

	return toPurchaseResponse(*purchase), nil
}

// buildPurchase validates req and applies the date and status defaults.
func (s *purchaseService) buildPurchase(req CreatePurchaseRequest, actor uuid.UUID) (*model.Purchase, error) {
	verr := &ValidationError{Fields: map[string]string{}}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		verr.Fields["supplier_id"] = "must be a UUID"
	}
	if strings.TrimSpace(req.PurchaseNo) == "" {
		verr.Fields["purchase_no"] = "required"
	}
	switch {
	case req.TotalAmount == nil:
		verr.Fields["total_amount"] = "required"
	case req.TotalAmount.IsNegative():
		verr.Fields["total_amount"] = "must not be negative"
	}

	status := req.Status
	if status == "" {
		status = model.PurchaseStatusPending
	}
	if status != model.PurchaseStatusPending && status != model.PurchaseStatusApproved {
		verr.Fields["status"] = "must be PENDING or APPROVED"
	}

	date := s.now()
	if strings.TrimSpace(req.PurchaseDate) != "" {
		parsed, err := parsePurchaseDate(req.PurchaseDate)
		if err != nil {
			verr.Fields["purchase_date"] = "must be a date (YYYY-MM-DD) or RFC3339 timestamp"
		}
		date = parsed
	}

	for i, d := range req.Details {
		field := fmt.Sprintf("details[%d]", i)
		if _, err := uuid.Parse(d.ProductID); err != nil {
			verr.Fields[field+".product_id"] = "must be a UUID"
		}
		if d.Quantity <= 0 {
			verr.Fields[field+".quantity"] = "must be greater than 0"
		}
		if d.UnitCost.IsNegative() {
			verr.Fields[field+".unitcost"] = "must not be negative"
		}
		if d.Total.IsNegative() {
			verr.Fields[field+".total"] = "must not be negative"
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}

	return &model.Purchase{
		SupplierID:   supplierID,
		PurchaseNo:   strings.TrimSpace(req.PurchaseNo),
		PurchaseDate: &date,
		Status:       status,
		TotalAmount:  *req.TotalAmount,
		CreatedBy:    &actor,
		UpdatedBy:    &actor,
	}, nil
}

// Approve commits every line item quantity into product stock and flips the
// purchase to APPROVED, all in one transaction. The purchase row is locked
// first so concurrent approvals of the same purchase serialize and only the
// first one finds it PENDING. Product rows are then locked in ascending id
// order so approvals sharing products cannot deadlock each other.
func (s *purchaseService) Approve(ctx context.Context, actorID string, id string) (PurchaseResponse, error) {
	purchaseID, err := parseID("id", id)
	if err != nil {
		return PurchaseResponse{}, err
	}
	approver, err := parseActor(actorID)
	if err != nil {
		return PurchaseResponse{}, err
	}

	var (
		purchase *model.Purchase
		details  []model.PurchaseDetail
		levels   []StockLevel
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		purchase, err = s.purchaseRepo.FindByIDForUpdate(txCtx, purchaseID)
		if err != nil {
			return notFound(err, "purchase")
		}

		if purchase.Status != model.PurchaseStatusPending {
			return fmt.Errorf("purchase %s is already %s: %w", purchase.PurchaseNo, purchase.Status, ErrInvalidStateTransition)
		}

		details, err = s.purchaseRepo.FindDetails(txCtx, purchaseID)
		if err != nil {
			return persistence(err, "failed to load purchase details")
		}
		sort.Slice(details, func(i, j int) bool {
			return bytes.Compare(details[i].ProductID[:], details[j].ProductID[:]) < 0
		})

		levels = make([]StockLevel, 0, len(details))
		for _, d := range details {
			stockAfter, err := s.productRepo.IncrementQuantity(txCtx, d.ProductID, d.Quantity)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product %s %w", d.ProductID, ErrNotFound)
				}
				return persistence(err, "failed to increment stock for product "+d.ProductID.String())
			}

			invTx := &model.InventoryTransaction{
				ProductID:       d.ProductID,
				PurchaseID:      &purchase.ID,
				TransactionType: model.TxTypeIn,
				QuantityChanged: d.Quantity,
				StockAfter:      stockAfter,
			}
			if err := s.inventoryTxRepo.Create(txCtx, invTx); err != nil {
				return persistence(err, "failed to record inventory transaction")
			}

			levels = append(levels, StockLevel{
				ProductID: d.ProductID.String(),
				Added:     d.Quantity,
				Quantity:  stockAfter,
			})
		}

		purchase.Status = model.PurchaseStatusApproved
		purchase.UpdatedBy = &approver
		if purchase.PurchaseDate == nil || purchase.PurchaseDate.IsZero() {
			now := s.now()
			purchase.PurchaseDate = &now
		}
		if err := s.purchaseRepo.MarkApproved(txCtx, purchase); err != nil {
			return persistence(err, "failed to update purchase status")
		}

		return recordAudit(txCtx, s.auditRepo, approver, model.ActionApprovePurchase, purchase.ID.String(), purchase.PurchaseNo, map[string]interface{}{
			"purchase_no": purchase.PurchaseNo,
			"stock":       levels,
		})
	})
	if err != nil {
		return PurchaseResponse{}, err
	}

	s.events.Publish(EventPurchaseApproved, map[string]interface{}{
		"purchase_id": purchase.ID.String(),
		"purchase_no": purchase.PurchaseNo,
		"stock":       levels,
	})

	res, err := s.Get(ctx, purchase.ID.String())
	if err != nil {
		// the approval is committed; answer with what the transaction wrote
		log.Printf("purchase %s approved but reload failed: %v", purchase.PurchaseNo, err)
		purchase.Details = details
		return toPurchaseResponse(*purchase), nil
	}
	return res, nil
}

// Delete removes the purchase and its line items. Stock already added by an
// approval stays in place.
func (s *purchaseService) Delete(ctx context.Context, actorID string, id string) error {
	purchaseID, err := parseID("id", id)
	if err != nil {
		return err
	}
	actor, err := parseActor(actorID)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		purchase, err := s.purchaseRepo.FindByIDForUpdate(txCtx, purchaseID)
		if err != nil {
			return notFound(err, "purchase")
		}

		if err := s.purchaseRepo.Delete(txCtx, purchaseID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("purchase %w", ErrNotFound)
			}
			return persistence(err, "failed to delete purchase")
		}

		return recordAudit(txCtx, s.auditRepo, actor, model.ActionDeletePurchase, purchase.ID.String(), purchase.PurchaseNo, map[string]interface{}{
			"purchase_no":    purchase.PurchaseNo,
			"status":         purchase.Status,
			"stock_reversed": false,
		})
	})
}

func (s *purchaseService) Get(ctx context.Context, id string) (PurchaseResponse, error) {
	purchaseID, err := parseID("id", id)
	if err != nil {
		return PurchaseResponse{}, err
	}

	purchase, err := s.purchaseRepo.FindByID(ctx, purchaseID)
	if err != nil {
		return PurchaseResponse{}, notFound(err, "purchase")
	}
	return toPurchaseResponse(*purchase), nil
}

func (s *purchaseService) List(ctx context.Context, filter PurchaseFilter) ([]PurchaseResponse, int64, error) {
	if filter.Status != "" && filter.Status != model.PurchaseStatusPending && filter.Status != model.PurchaseStatusApproved {
		return nil, 0, NewValidationError("status", "must be PENDING or APPROVED")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	purchases, total, err := s.purchaseRepo.List(ctx, filter.Status, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, persistence(err, "failed to list purchases")
	}

	res := make([]PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		res = append(res, toPurchaseResponse(p))
	}
	return res, total, nil
}

// Report lists approved line items whose purchase date falls on any day from
// startDate through endDate. Both dates are validated before anything is queried.
func (s *purchaseService) Report(ctx context.Context, startDate, endDate string) ([]model.PurchaseReportRow, error) {
	verr := &ValidationError{Fields: map[string]string{}}

	from, err := time.ParseInLocation(transfer.DateLayout, strings.TrimSpace(startDate), time.Local)
	if err != nil {
		verr.Fields["start_date"] = "must match the format YYYY-MM-DD"
	}
	to, err := time.ParseInLocation(transfer.DateLayout, strings.TrimSpace(endDate), time.Local)
	if err != nil {
		verr.Fields["end_date"] = "must match the format YYYY-MM-DD"
	}
	if len(verr.Fields) == 0 && to.Before(from) {
		verr.Fields["end_date"] = "must not be before start_date"
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	rows, err := s.purchaseRepo.Report(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, persistence(err, "failed to query purchase report")
	}
	return rows, nil
}

func parsePurchaseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.ParseInLocation(transfer.DateLayout, v, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func parseID(field, id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, NewValidationError(field, "must be a UUID")
	}
	return parsed, nil
}

func parseActor(actorID string) (uuid.UUID, error) {
	actor, err := uuid.Parse(actorID)
	if err != nil || actor == uuid.Nil {
		return uuid.Nil, NewValidationError("actor", "an authenticated user id is required")
	}
	return actor, nil
}

func toPurchaseResponse(p model.Purchase) PurchaseResponse {
	res := PurchaseResponse{
		ID:          p.ID.String(),
		SupplierID:  p.SupplierID.String(),
		PurchaseNo:  p.PurchaseNo,
		Status:      p.Status,
		TotalAmount: p.TotalAmount,
		Details:     make([]PurchaseDetailResponse, 0, len(p.Details)),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.Supplier != nil {
		res.SupplierName = p.Supplier.Name
	}
	if p.PurchaseDate != nil {
		d := p.PurchaseDate.Format(time.RFC3339)
		res.PurchaseDate = &d
	}
	if p.CreatedBy != nil {
		v := p.CreatedBy.String()
		res.CreatedBy = &v
	}
	if p.Creator != nil {
		res.CreatorName = p.Creator.Name
	}
	if p.UpdatedBy != nil {
		v := p.UpdatedBy.String()
		res.UpdatedBy = &v
	}
	if p.Updater != nil {
		res.UpdaterName = p.Updater.Name
	}

	for _, d := range p.Details {
		detail := PurchaseDetailResponse{
			ID:        d.ID.String(),
			ProductID: d.ProductID.String(),
			Quantity:  d.Quantity,
			UnitCost:  d.UnitCost,
			Total:     d.Total,
			CreatedAt: d.CreatedAt.Format(time.RFC3339),
		}
		if d.Product != nil {
			detail.ProductCode = d.Product.Code
			detail.ProductName = d.Product.Name
		}
		res.Details = append(res.Details, detail)
	}
	return res
}
