package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"inventory-admin/internal/model"
	"inventory-admin/internal/repository"
	"inventory-admin/internal/transfer"
)

const defaultBatchSize = 500

type ImportResult struct {
	Imported int `json:"imported"`
}

// InventoryService moves product records in and out of spreadsheet files.
type InventoryService interface {
	Export(ctx context.Context, format transfer.Format, w io.Writer) error
	Import(ctx context.Context, actorID string, filename string, file io.ReadSeeker) (ImportResult, error)
}

type inventoryService struct {
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
	batchSize   int
}

func NewInventoryService(
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
	batchSize int,
) InventoryService {
	if events == nil {
		events = noopPublisher{}
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &inventoryService{
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      events,
		batchSize:   batchSize,
	}
}

// Export writes every product to w, reading them batchSize rows at a time.
// A failed export never renders a file: an xlsx workbook is dropped whole and
// only csv rows past the writer's buffer can have reached w.
func (s *inventoryService) Export(ctx context.Context, format transfer.Format, w io.Writer) error {
	sheet, err := transfer.NewSheetWriter(format, w, len(transfer.InventoryHeader))
	if err != nil {
		return err
	}

	if err := transfer.WriteInventoryHeader(sheet); err != nil {
		_ = sheet.Discard()
		return fmt.Errorf("failed to write header: %w", err)
	}

	err = s.productRepo.EachBatch(ctx, s.batchSize, func(batch []model.Product) error {
		for _, p := range batch {
			if err := sheet.WriteRow(transfer.InventoryRow(p)...); err != nil {
				return fmt.Errorf("failed to write product %s: %w", p.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = sheet.Discard()
		return persistence(err, "failed to export inventory")
	}

	return sheet.Close()
}

// Import inserts one new product per data row. The whole file is validated
// first; a single bad row rejects the import and nothing is written.
func (s *inventoryService) Import(ctx context.Context, actorID string, filename string, file io.ReadSeeker) (ImportResult, error) {
	actor, err := parseActor(actorID)
	if err != nil {
		return ImportResult{}, err
	}

	format, err := transfer.DetectFormat(filename, file)
	if err != nil {
		if errors.Is(err, transfer.ErrUnsupportedFormat) {
			return ImportResult{}, NewValidationError("file", "must be an .xlsx or .csv file ("+err.Error()+")")
		}
		return ImportResult{}, err
	}

	rows, err := transfer.OpenRows(format, file)
	if err != nil {
		return ImportResult{}, NewValidationError("file", err.Error())
	}
	defer rows.Close()

	products, err := transfer.DecodeInventory(rows)
	if err != nil {
		var rowErrs transfer.RowErrors
		if errors.As(err, &rowErrs) {
			return ImportResult{}, rowValidationError(rowErrs)
		}
		return ImportResult{}, NewValidationError("file", err.Error())
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.CreateBatch(txCtx, products, s.batchSize); err != nil {
			if isUniqueViolation(err) {
				return NewValidationError("code", "file contains a product code that already exists")
			}
			return persistence(err, "failed to insert products")
		}

		return recordAudit(txCtx, s.auditRepo, actor, model.ActionImportInventory, "", filename, map[string]interface{}{
			"file":     filename,
			"format":   string(format),
			"imported": len(products),
		})
	})
	if err != nil {
		return ImportResult{}, err
	}

	s.events.Publish(EventInventoryImported, map[string]interface{}{
		"imported": len(products),
	})

	return ImportResult{Imported: len(products)}, nil
}

func rowValidationError(rowErrs transfer.RowErrors) *ValidationError {
	verr := &ValidationError{Fields: make(map[string]string, len(rowErrs))}
	for _, re := range rowErrs {
		key := fmt.Sprintf("rows[%d]", re.Row)
		if re.Column != "" {
			key += "." + re.Column
		}
		verr.Fields[key] = re.Reason
	}
	return verr
}
