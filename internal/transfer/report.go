package transfer

import (
	"inventory-admin/internal/model"
)

// PurchaseReportHeader is the fixed column order of the purchase report.
var PurchaseReportHeader = []string{
	"Date",
	"No Purchase",
	"Supplier",
	"Product Code",
	"Product",
	"Quantity",
	"Unitcost",
	"Total",
	"Created By",
}

// WritePurchaseReport renders the header and one row per approved line item.
func WritePurchaseReport(w SheetWriter, rows []model.PurchaseReportRow) error {
	header := make([]interface{}, len(PurchaseReportHeader))
	for i, h := range PurchaseReportHeader {
		header[i] = h
	}
	if err := w.WriteRow(header...); err != nil {
		return err
	}

	for _, r := range rows {
		if err := w.WriteRow(
			r.Date,
			r.PurchaseNo,
			r.SupplierName,
			r.ProductCode,
			r.ProductName,
			r.Quantity,
			r.UnitCost,
			r.Total,
			r.CreatedBy,
		); err != nil {
			return err
		}
	}
	return nil
}
