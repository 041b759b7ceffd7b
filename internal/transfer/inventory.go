package transfer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"inventory-admin/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used in files and report filters.
const DateLayout = "2006-01-02"

// InventoryHeader is the fixed column order of an inventory export.
var InventoryHeader = []string{
	"ID",
	"Name",
	"Code",
	"Quantity",
	"Buying Price",
	"Selling Price",
	"Category ID",
	"Unit ID",
}

// importColumns are the normalized header keys an import must provide.
var importColumns = []string{
	"name",
	"code",
	"quantity",
	"buying_price",
	"selling_price",
	"category_id",
	"unit_id",
}

// InventoryRow renders p as export cells, in InventoryHeader order.
func InventoryRow(p model.Product) []interface{} {
	return []interface{}{
		p.ID,
		p.Name,
		p.Code,
		p.Quantity,
		p.BuyingPrice,
		p.SellingPrice,
		p.CategoryID,
		p.UnitID,
	}
}

// WriteInventoryHeader writes the fixed export header row.
func WriteInventoryHeader(w SheetWriter) error {
	header := make([]interface{}, len(InventoryHeader))
	for i, h := range InventoryHeader {
		header[i] = h
	}
	return w.WriteRow(header...)
}

// RowError describes one rejected data row. Row is 1-based and counts the header.
type RowError struct {
	Row    int
	Column string
	Reason string
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Column, e.Reason)
}

// RowErrors collects every problem found in an import file.
type RowErrors []RowError

func (e RowErrors) Error() string {
	msgs := make([]string, len(e))
	for i, re := range e {
		msgs[i] = re.Error()
	}
	return strings.Join(msgs, "; ")
}

// NormalizeHeader turns a display header ("Buying Price") into its key ("buying_price").
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

// DecodeInventory reads a header row and maps every following row into a new
// Product. IDs are left zero so storage assigns fresh ones. Blank rows are
// skipped. If any row is malformed no products are returned, only RowErrors.
func DecodeInventory(rows RowIterator) ([]model.Product, error) {
	if !rows.Next() {
		return nil, RowErrors{{Row: 1, Reason: "missing header row"}}
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		if key := NormalizeHeader(h); key != "" {
			if _, dup := index[key]; !dup {
				index[key] = i
			}
		}
	}

	var missing []string
	for _, col := range importColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, RowErrors{{Row: 1, Reason: "missing columns: " + strings.Join(missing, ", ")}}
	}

	var (
		products []model.Product
		errs     RowErrors
	)
	for line := 2; rows.Next(); line++ {
		cells, err := rows.Columns()
		if err != nil {
			errs = append(errs, RowError{Row: line, Reason: err.Error()})
			continue
		}
		if blank(cells) {
			continue
		}

		get := func(col string) string {
			if i := index[col]; i < len(cells) {
				return strings.TrimSpace(cells[i])
			}
			return ""
		}
		p, rowErrs := decodeProduct(line, get)
		if len(rowErrs) > 0 {
			errs = append(errs, rowErrs...)
			continue
		}
		products = append(products, p)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return products, nil
}

func decodeProduct(line int, get func(string) string) (model.Product, RowErrors) {
	var (
		p    model.Product
		errs RowErrors
		err  error
	)
	fail := func(col, reason string) {
		errs = append(errs, RowError{Row: line, Column: col, Reason: reason})
	}

	if p.Name = get("name"); p.Name == "" {
		fail("name", "required")
	}
	if p.Code = get("code"); p.Code == "" {
		fail("code", "required")
	}
	if p.Quantity, err = strconv.Atoi(get("quantity")); err != nil {
		fail("quantity", "must be a whole number")
	} else if p.Quantity < 0 {
		fail("quantity", "must not be negative")
	}
	if p.BuyingPrice, err = decimal.NewFromString(get("buying_price")); err != nil {
		fail("buying_price", "must be a decimal number")
	}
	if p.SellingPrice, err = decimal.NewFromString(get("selling_price")); err != nil {
		fail("selling_price", "must be a decimal number")
	}
	if p.CategoryID, err = uuid.Parse(get("category_id")); err != nil {
		fail("category_id", "must be a UUID")
	}
	if p.UnitID, err = uuid.Parse(get("unit_id")); err != nil {
		fail("unit_id", "must be a UUID")
	}
	return p, errs
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
