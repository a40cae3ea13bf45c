// Package table holds the row/column model shared by the extractor, the
// normalizer, the query layer and the exporters.
//
// A Raw table is what extraction produces: every cell is text or absent. A
// Typed table is what normalization produces: every column has a declared
// Type and every cell holds a value of that type or an explicit missing
// marker.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Text is a raw cell value. Valid is false when the source had no value for
// the cell (a missing JSON key, a JSON null, a short HTML row).
type Text struct {
	S     string
	Valid bool
}

// Some returns a present cell holding s.
func Some(s string) Text { return Text{S: s, Valid: true} }

// Absent returns an absent cell.
func Absent() Text { return Text{} }

// Blank reports whether the cell is absent or holds only whitespace.
func (t Text) Blank() bool {
	return !t.Valid || strings.TrimSpace(t.S) == ""
}

func (t Text) String() string {
	if !t.Valid {
		return "<absent>"
	}
	return strconv.Quote(t.S)
}

// RawRow is aligned with Raw.Columns; it always has exactly len(Columns) cells.
type RawRow []Text

// Raw is an extracted table whose cells are all text.
type Raw struct {
	Columns []string
	Rows    []RawRow
}

// NewRaw returns an empty table with the given column names.
func NewRaw(columns ...string) *Raw {
	return &Raw{Columns: append([]string(nil), columns...)}
}

// Column returns the index of the named column or -1.
func (r *Raw) Column(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AddColumn appends a column, filling existing rows with absent cells, and
// returns its index. An existing column's index is returned unchanged.
func (r *Raw) AddColumn(name string) int {
	if i := r.Column(name); i >= 0 {
		return i
	}
	r.Columns = append(r.Columns, name)
	for i := range r.Rows {
		r.Rows[i] = append(r.Rows[i], Absent())
	}
	return len(r.Columns) - 1
}

// Append adds a row. Short rows are padded with absent cells; long rows are
// rejected because they would break column alignment.
func (r *Raw) Append(row RawRow) error {
	if len(row) > len(r.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(r.Columns))
	}
	out := make(RawRow, len(r.Columns))
	copy(out, row)
	r.Rows = append(r.Rows, out)
	return nil
}

// Len returns the number of rows.
func (r *Raw) Len() int { return len(r.Rows) }

// Clone returns a deep copy.
func (r *Raw) Clone() *Raw {
	out := &Raw{Columns: append([]string(nil), r.Columns...), Rows: make([]RawRow, len(r.Rows))}
	for i, row := range r.Rows {
		out.Rows[i] = append(RawRow(nil), row...)
	}
	return out
}

// Type is the declared semantic type of a column.
type Type int

const (
	TypeText Type = iota
	TypeInteger
	TypeReal
	TypeDate
)

func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeReal:
		return "real"
	case TypeDate:
		return "date"
	default:
		return "text"
	}
}

// ParseType maps a configuration keyword to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "string":
		return TypeText, nil
	case "integer", "int":
		return TypeInteger, nil
	case "real", "float", "number":
		return TypeReal, nil
	case "date":
		return TypeDate, nil
	}
	return TypeText, fmt.Errorf("unknown column type %q", s)
}

// Date is a calendar date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Column is a typed column header.
type Column struct {
	Name string
	Type Type
}

// Value is one typed cell. Exactly one payload field is meaningful, chosen by
// Type, unless Missing is set.
type Value struct {
	Type    Type
	Missing bool
	Text    string
	Int     int64
	Real    float64
	Date    Date
}

// MissingValue returns the missing marker for a column of type t.
func MissingValue(t Type) Value { return Value{Type: t, Missing: true} }

// String renders the value as text; missing renders as the empty string.
func (v Value) String() string {
	if v.Missing {
		return ""
	}
	switch v.Type {
	case TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case TypeReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case TypeDate:
		return v.Date.String()
	default:
		return v.Text
	}
}

// Interface returns the Go value of the cell, nil when missing. Dates are
// returned as their ISO string.
func (v Value) Interface() any {
	if v.Missing {
		return nil
	}
	switch v.Type {
	case TypeInteger:
		return v.Int
	case TypeReal:
		return v.Real
	case TypeDate:
		return v.Date.String()
	default:
		return v.Text
	}
}

// Typed is a normalized table.
type Typed struct {
	Columns []Column
	Rows    [][]Value
}

// Column returns the index of the named column or -1.
func (t *Typed) Column(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (t *Typed) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Len returns the number of rows.
func (t *Typed) Len() int { return len(t.Rows) }

// ToRaw serializes the table back to text. Missing cells become absent, so a
// second normalization with the same rules and types reproduces t.
func (t *Typed) ToRaw() *Raw {
	out := NewRaw(t.Names()...)
	out.Rows = make([]RawRow, len(t.Rows))
	for i, row := range t.Rows {
		raw := make(RawRow, len(row))
		for j, v := range row {
			if !v.Missing {
				raw[j] = Some(v.String())
			}
		}
		out.Rows[i] = raw
	}
	return out
}

// Types returns the column type mapping of t.
func (t *Typed) Types() map[string]Type {
	out := make(map[string]Type, len(t.Columns))
	for _, c := range t.Columns {
		out[c.Name] = c.Type
	}
	return out
}
