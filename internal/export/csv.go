package export

import (
	"encoding/csv"
	"io"
	"strconv"
)

// CSVWriter emits the table as delimited text: a date column followed by
// one column per table column, unknown cells left empty.
type CSVWriter struct{}

func (CSVWriter) Extension() string { return "csv" }

func (CSVWriter) Write(t *Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, "date")
	for _, c := range t.Columns {
		header = append(header, c.Label)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(t.Columns)+1)
	for i, date := range t.Dates {
		row[0] = date
		for j, v := range t.Values[i] {
			if v == nil {
				row[j+1] = ""
			} else {
				row[j+1] = strconv.FormatFloat(*v, 'f', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
