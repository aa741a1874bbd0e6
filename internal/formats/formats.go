// Package formats encodes and decodes the file types the session reads and
// writes: JSON documents, tables (CSV and XLSX), and SWC point lists.
package formats

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Format identifies a supported file type.
type Format int

// Supported formats.
const (
	Unknown Format = iota
	JSON
	CSV
	XLSX
	SWC
)

// ErrUnsupportedFormat is returned for file extensions with no codec.
var ErrUnsupportedFormat = errors.New("formats: unsupported file format")

// FormatOf picks the format from name's extension, case-insensitively.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return JSON
	case ".csv":
		return CSV
	case ".xlsx":
		return XLSX
	case ".swc":
		return SWC
	default:
		return Unknown
	}
}

// ContentType is the MIME type uploads of f carry.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case CSV:
		return "text/csv"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case SWC:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case CSV:
		return "csv"
	case XLSX:
		return "xlsx"
	case SWC:
		return "swc"
	default:
		return "unknown"
	}
}

// DecodeTable reads a CSV or XLSX file into a Table, choosing the codec from
// name. Other extensions yield ErrUnsupportedFormat.
func DecodeTable(name string, data []byte) (*Table, error) {
	switch FormatOf(name) {
	case CSV:
		return DecodeCSV(data)
	case XLSX:
		return DecodeXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %q is not a spreadsheet", ErrUnsupportedFormat, name)
	}
}
