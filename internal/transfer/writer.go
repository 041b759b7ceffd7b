package transfer

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const defaultColumnWidth = 20

// SheetWriter receives rows one at a time and renders the file on Close.
// Discard releases the writer instead, dropping anything not yet written out.
type SheetWriter interface {
	WriteRow(values ...interface{}) error
	Close() error
	Discard() error
}

// NewSheetWriter returns a writer that renders format into w. columns is the
// number of columns the xlsx layout should size.
func NewSheetWriter(format Format, w io.Writer, columns int) (SheetWriter, error) {
	switch format {
	case FormatXLSX:
		return newXLSXWriter(w, columns)
	case FormatCSV:
		return &csvWriter{w: csv.NewWriter(w)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

type xlsxWriter struct {
	out    io.Writer
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

func newXLSXWriter(w io.Writer, columns int) (*xlsxWriter, error) {
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter(f.GetSheetName(0))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to open sheet stream: %w", err)
	}
	if columns > 0 {
		if err := sw.SetColWidth(1, columns, defaultColumnWidth); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to size columns: %w", err)
		}
	}
	return &xlsxWriter{out: w, file: f, stream: sw}, nil
}

func (x *xlsxWriter) WriteRow(values ...interface{}) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = cellValue(v)
	}
	return x.stream.SetRow(cell, row)
}

func (x *xlsxWriter) Close() error {
	defer x.file.Close()
	if err := x.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := x.file.Write(x.out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Discard closes the workbook without rendering it, so w receives nothing.
func (x *xlsxWriter) Discard() error {
	return x.file.Close()
}

type csvWriter struct {
	w *csv.Writer
}

func (c *csvWriter) WriteRow(values ...interface{}) error {
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = fmt.Sprint(cellValue(v))
	}
	return c.w.Write(record)
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}

// Discard skips the final flush. Rows that already overflowed the csv
// buffer have reached the underlying writer and cannot be taken back.
func (c *csvWriter) Discard() error { return nil }

// cellValue normalizes domain types into values both encoders render exactly.
func cellValue(v interface{}) interface{} {
	switch t := v.(type) {
	case decimal.Decimal:
		return t.String()
	case time.Time:
		return t.Format(DateLayout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(DateLayout)
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}
