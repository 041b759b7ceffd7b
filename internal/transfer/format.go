package transfer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is a tabular file format understood by the importer and exporters.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
	mimeCSV  = "text/csv"
	mimeText = "text/plain"
	mimeZip  = "application/zip"
)

// ErrUnsupportedFormat is returned for uploads that are not a workbook or delimited text.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ParseFormat maps a user supplied format name ("xlsx", "csv", "") to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "xlsx":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return mimeXLSX
}

// FileName returns base with the format's extension appended.
func (f Format) FileName(base string) string {
	return base + "." + string(f)
}

// DetectFormat sniffs the first bytes of r and cross-checks them with the
// file name. r is rewound to the start before returning.
func DetectFormat(filename string, r io.ReadSeeker) (Format, error) {
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case mtype.Is(mimeXLSX):
		return FormatXLSX, nil
	// Some writers order zip entries so the sniffer only sees a plain archive.
	case mtype.Is(mimeZip) && ext == ".xlsx":
		return FormatXLSX, nil
	case mtype.Is(mimeCSV):
		return FormatCSV, nil
	case mtype.Is(mimeText) && ext == ".csv":
		return FormatCSV, nil
	case mtype.Is(mimeXLS):
		return "", fmt.Errorf("%w: legacy .xls workbooks must be saved as .xlsx or .csv", ErrUnsupportedFormat)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mtype.String())
	}
}
