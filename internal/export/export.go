// Package export reads one or more items from the store and assembles a
// combined table: outer-joined on date, chronological rows, columns in
// request order. Export is all-or-nothing; a missing item fails the
// whole request rather than yielding a partial table.
package export

import (
	"sort"

	"daystore/internal/model"
	"daystore/internal/store"
)

// Options control table assembly.
type Options struct {
	// AllFields exports every field present per item instead of just
	// the item's price field.
	AllFields bool
}

// Column is one value column of the assembled table.
type Column struct {
	Item  string
	Field string
	Label string
}

// Table is the assembled result. Values is indexed [row][column]; nil
// cells are unknown (date outside that item's range, or a zero price
// dropped by the data-error rule).
type Table struct {
	Columns []Column
	Dates   []string
	Values  [][]*float64
}

// Run assembles the table for the named items, in request order.
func Run(st *store.Store, names []string, opts Options) (*Table, error) {
	items := dedupeKeepOrder(names)

	type column struct {
		col    Column
		values map[string]float64
	}
	var cols []column
	dateSet := make(map[string]bool)

	for _, item := range items {
		series, err := st.Read(item)
		if err != nil {
			return nil, err
		}
		meta, err := st.ReadMeta(item)
		if err != nil {
			return nil, err
		}

		var fields []string
		priceMode := !opts.AllFields
		if priceMode {
			fields = []string{priceField(meta, series)}
		} else {
			fields = series.FieldNames()
		}

		for _, f := range fields {
			c := column{
				col:    Column{Item: item, Field: f, Label: item},
				values: make(map[string]float64),
			}
			if opts.AllFields {
				c.col.Label = item + "." + f
			}
			for _, p := range series.Points() {
				v, ok := p.Get(f)
				if !ok {
					continue
				}
				// A price of zero is a data error, not a price.
				if priceMode && v == 0 {
					continue
				}
				c.values[p.Date] = v
				dateSet[p.Date] = true
			}
			cols = append(cols, c)
		}
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	table := &Table{Dates: dates}
	for _, c := range cols {
		table.Columns = append(table.Columns, c.col)
	}
	table.Values = make([][]*float64, len(dates))
	for i, d := range dates {
		row := make([]*float64, len(cols))
		for j, c := range cols {
			if v, ok := c.values[d]; ok {
				val := v
				row[j] = &val
			}
		}
		table.Values[i] = row
	}
	return table, nil
}

// priceField picks the column carrying the item's price: the metadata's
// choice when set, otherwise adjclose, close, then nav, falling back to
// the first field present.
func priceField(meta model.Meta, series *model.Series) string {
	present := series.FieldNames()
	has := func(f string) bool {
		for _, p := range present {
			if p == f {
				return true
			}
		}
		return false
	}
	if meta.PriceField != "" && has(meta.PriceField) {
		return meta.PriceField
	}
	for _, f := range []string{model.FieldAdjClose, model.FieldClose, model.FieldNAV} {
		if has(f) {
			return f
		}
	}
	if len(present) > 0 {
		return present[0]
	}
	return model.FieldClose
}

func dedupeKeepOrder(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		key := store.Normalize(n)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
