package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// RowIterator walks the rows of the first sheet of a tabular file.
type RowIterator interface {
	Next() bool
	Columns() ([]string, error)
	Close() error
}

// OpenRows returns an iterator over r decoded as format.
func OpenRows(format Format, r io.Reader) (RowIterator, error) {
	switch format {
	case FormatXLSX:
		return openXLSXRows(r)
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		return &csvRows{r: cr}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

type xlsxRows struct {
	file *excelize.File
	rows *excelize.Rows
}

func openXLSXRows(r io.Reader) (*xlsxRows, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return &xlsxRows{file: f, rows: rows}, nil
}

func (x *xlsxRows) Next() bool { return x.rows.Next() }

func (x *xlsxRows) Columns() ([]string, error) { return x.rows.Columns() }

func (x *xlsxRows) Close() error {
	rowsErr := x.rows.Close()
	if err := x.file.Close(); err != nil {
		return err
	}
	return rowsErr
}

type csvRows struct {
	r   *csv.Reader
	rec []string
	err error
}

func (c *csvRows) Next() bool {
	if c.err != nil {
		return false
	}
	c.rec, c.err = c.r.Read()
	if errors.Is(c.err, io.EOF) {
		c.err = nil
		c.rec = nil
		return false
	}
	// A malformed line is still a row; Columns reports the error.
	return true
}

func (c *csvRows) Columns() ([]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.rec, nil
}

func (c *csvRows) Close() error { return nil }
