package export

import (
	"encoding/json"
	"io"
)

// JSONWriter emits the table as an array of row objects keyed by column
// label, unknown cells omitted.
type JSONWriter struct{}

func (JSONWriter) Extension() string { return "json" }

func (JSONWriter) Write(t *Table, w io.Writer) error {
	rows := make([]map[string]any, 0, len(t.Dates))
	for i, date := range t.Dates {
		row := map[string]any{"date": date}
		for j, v := range t.Values[i] {
			if v != nil {
				row[t.Columns[j].Label] = *v
			}
		}
		rows = append(rows, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
