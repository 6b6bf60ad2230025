package export

import (
	"io"
	"strings"
)

// Writer serializes an assembled table. One implementation per format;
// the CLI picks by name and stays ignorant of the encoding.
type Writer interface {
	Write(t *Table, w io.Writer) error
	Extension() string
}

// NewWriter creates the writer for format (csv, json, parquet).
// Returns nil if the format is not supported.
func NewWriter(format string) Writer {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVWriter{}
	case "json":
		return JSONWriter{}
	case "parquet":
		return ParquetWriter{}
	default:
		return nil
	}
}
