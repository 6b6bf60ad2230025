package export

import (
	"io"

	"github.com/parquet-go/parquet-go"
)

// cell is the long-format parquet row: one value per (date, item, field).
// Long format keeps the parquet schema static regardless of how many
// items the request names.
type cell struct {
	Date  string  `parquet:"date"`
	Item  string  `parquet:"item"`
	Field string  `parquet:"field"`
	Value float64 `parquet:"value"`
}

// ParquetWriter emits the table in long format.
type ParquetWriter struct{}

func (ParquetWriter) Extension() string { return "parquet" }

func (ParquetWriter) Write(t *Table, w io.Writer) error {
	pw := parquet.NewGenericWriter[cell](w)
	for i, date := range t.Dates {
		for j, v := range t.Values[i] {
			if v == nil {
				continue
			}
			c := cell{Date: date, Item: t.Columns[j].Item, Field: t.Columns[j].Field, Value: *v}
			if _, err := pw.Write([]cell{c}); err != nil {
				return err
			}
		}
	}
	return pw.Close()
}
