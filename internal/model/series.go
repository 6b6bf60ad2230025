package model

import (
	"fmt"
	"time"
)

// DateFormat is the canonical calendar-date layout used across the store.
const DateFormat = "2006-01-02"

// Canonical field names. Adapters normalize provider responses into this
// superset; fields a provider does not supply stay nil.
const (
	FieldOpen      = "open"
	FieldHigh      = "high"
	FieldLow       = "low"
	FieldClose     = "close"
	FieldAdjClose  = "adjclose"
	FieldVolume    = "volume"
	FieldNAV       = "nav"
	FieldFlowIn    = "flow_in"
	FieldFlowOut   = "flow_out"
	FieldNetAssets = "net_assets"
	FieldHolders   = "holders"
)

// Fields lists the canonical field names in column order.
var Fields = []string{
	FieldOpen, FieldHigh, FieldLow, FieldClose, FieldAdjClose, FieldVolume,
	FieldNAV, FieldFlowIn, FieldFlowOut, FieldNetAssets, FieldHolders,
}

// Point is one calendar date of a series. Shared by adapters, the store
// and serialization (json, parquet). Nil means the field is unknown for
// that date, never zero.
type Point struct {
	Date      string   `json:"date" parquet:"date"`
	Open      *float64 `json:"open,omitempty" parquet:"open,optional"`
	High      *float64 `json:"high,omitempty" parquet:"high,optional"`
	Low       *float64 `json:"low,omitempty" parquet:"low,optional"`
	Close     *float64 `json:"close,omitempty" parquet:"close,optional"`
	AdjClose  *float64 `json:"adjclose,omitempty" parquet:"adjclose,optional"`
	Volume    *float64 `json:"volume,omitempty" parquet:"volume,optional"`
	NAV       *float64 `json:"nav,omitempty" parquet:"nav,optional"`
	FlowIn    *float64 `json:"flow_in,omitempty" parquet:"flow_in,optional"`
	FlowOut   *float64 `json:"flow_out,omitempty" parquet:"flow_out,optional"`
	NetAssets *float64 `json:"net_assets,omitempty" parquet:"net_assets,optional"`
	Holders   *float64 `json:"holders,omitempty" parquet:"holders,optional"`
}

func (p *Point) fieldPtr(field string) **float64 {
	switch field {
	case FieldOpen:
		return &p.Open
	case FieldHigh:
		return &p.High
	case FieldLow:
		return &p.Low
	case FieldClose:
		return &p.Close
	case FieldAdjClose:
		return &p.AdjClose
	case FieldVolume:
		return &p.Volume
	case FieldNAV:
		return &p.NAV
	case FieldFlowIn:
		return &p.FlowIn
	case FieldFlowOut:
		return &p.FlowOut
	case FieldNetAssets:
		return &p.NetAssets
	case FieldHolders:
		return &p.Holders
	}
	return nil
}

// Get returns the field value and whether it is present.
// Unknown field names report absent.
func (p *Point) Get(field string) (float64, bool) {
	fp := p.fieldPtr(field)
	if fp == nil || *fp == nil {
		return 0, false
	}
	return **fp, true
}

// Set assigns a field value. Unknown field names are dropped.
func (p *Point) Set(field string, v float64) {
	if fp := p.fieldPtr(field); fp != nil {
		val := v
		*fp = &val
	}
}

// ValidationError reports a malformed series: bad date syntax,
// non-increasing dates or a duplicate date.
type ValidationError struct {
	Date   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid series at %q: %s", e.Date, e.Reason)
}

// Series is an ordered-by-date sequence of points for one item.
// Dates are strictly increasing; gaps are allowed and never filled.
type Series struct {
	points []Point
}

// NewSeries validates points and wraps them in a Series.
// Points must already be ordered; out-of-order or duplicate dates fail
// with *ValidationError rather than being repaired.
func NewSeries(points []Point) (*Series, error) {
	prev := ""
	for i := range points {
		d := points[i].Date
		if _, err := time.Parse(DateFormat, d); err != nil {
			return nil, &ValidationError{Date: d, Reason: "date must be YYYY-MM-DD"}
		}
		if prev != "" {
			if d == prev {
				return nil, &ValidationError{Date: d, Reason: "duplicate date"}
			}
			if d < prev {
				return nil, &ValidationError{Date: d, Reason: "dates not strictly increasing"}
			}
		}
		prev = d
	}
	return &Series{points: points}, nil
}

// Len returns the point count.
func (s *Series) Len() int { return len(s.points) }

// Points returns the underlying points. Callers must not reorder them.
func (s *Series) Points() []Point { return s.points }

// Range returns the first and last date, empty strings for an empty series.
func (s *Series) Range() (first, last string) {
	if len(s.points) == 0 {
		return "", ""
	}
	return s.points[0].Date, s.points[len(s.points)-1].Date
}

// FieldNames returns the canonical fields present on at least one point,
// in column order.
func (s *Series) FieldNames() []string {
	var names []string
	for _, f := range Fields {
		for i := range s.points {
			if _, ok := s.points[i].Get(f); ok {
				names = append(names, f)
				break
			}
		}
	}
	return names
}

// Merge unions s with incoming by date and returns a new series.
// Where both have a point for the same date, incoming wins for the fields
// it specifies; fields incoming leaves absent retain s's values, so a
// known value never regresses to unknown. Merging a series into itself
// is a no-op.
func (s *Series) Merge(incoming *Series) *Series {
	if incoming == nil || incoming.Len() == 0 {
		return &Series{points: append([]Point(nil), s.points...)}
	}
	if s == nil || s.Len() == 0 {
		return &Series{points: append([]Point(nil), incoming.points...)}
	}

	out := make([]Point, 0, len(s.points)+len(incoming.points))
	i, j := 0, 0
	for i < len(s.points) && j < len(incoming.points) {
		e, n := s.points[i], incoming.points[j]
		switch {
		case e.Date < n.Date:
			out = append(out, e)
			i++
		case e.Date > n.Date:
			out = append(out, n)
			j++
		default:
			merged := e
			for _, f := range Fields {
				if v, ok := n.Get(f); ok {
					merged.Set(f, v)
				}
			}
			out = append(out, merged)
			i++
			j++
		}
	}
	out = append(out, s.points[i:]...)
	out = append(out, incoming.points[j:]...)
	return &Series{points: out}
}

// Meta is the per-item sidecar record: which field carries the price and
// where the data came from. Provenance only; nothing keys behavior on it
// beyond the price export.
type Meta struct {
	PriceField  string    `json:"price_field"`
	Description string    `json:"description,omitempty"`
	Code        int       `json:"code,omitempty"`
	Source      string    `json:"source,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Update overlays non-zero fields from incoming onto m.
func (m *Meta) Update(incoming Meta) {
	if incoming.PriceField != "" {
		m.PriceField = incoming.PriceField
	}
	if incoming.Description != "" {
		m.Description = incoming.Description
	}
	if incoming.Code != 0 {
		m.Code = incoming.Code
	}
	if incoming.Source != "" {
		m.Source = incoming.Source
	}
	if !incoming.UpdatedAt.IsZero() {
		m.UpdatedAt = incoming.UpdatedAt
	}
}
