package core

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Table is a normalized relation ready for display.
//
// A Table is immutable once built: SortBy returns a new Table that shares
// the row data and only changes presentation order. Every row remembers its
// original index, which breaks ties so sorting is stable and idempotent.
type Table struct {
	columns   []Column
	rows      [][]string
	origin    []int
	indicator int // column index of the progress indicator, -1 if none

	sorted  bool
	sortCol int
	sortAsc bool
}

// NewTable builds a Table. Rows are padded or cut to the column count.
// indicator is the index of the progress indicator column or -1.
func NewTable(columns []Column, rows [][]string, indicator int) *Table {
	t := &Table{
		columns:   slices.Clone(columns),
		rows:      make([][]string, len(rows)),
		origin:    make([]int, len(rows)),
		indicator: -1,
	}
	if indicator >= 0 && indicator < len(columns) {
		t.indicator = indicator
	}
	for i, row := range rows {
		r := make([]string, len(columns))
		copy(r, row)
		t.rows[i] = r
		t.origin[i] = i
	}
	return t
}

// Columns returns a copy of the column metadata.
func (t *Table) Columns() []Column { return slices.Clone(t.columns) }

// Headers returns the column names in display order.
func (t *Table) Headers() []string {
	h := make([]string, len(t.columns))
	for i, c := range t.columns {
		h[i] = c.Name
	}
	return h
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns a copy of the i-th row in display order.
func (t *Table) Row(i int) []string { return slices.Clone(t.rows[i]) }

// Rows returns a copy of all rows in display order.
func (t *Table) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Origin returns the original (parse-order) index of the i-th displayed row.
func (t *Table) Origin(i int) int { return t.origin[i] }

// Indicator returns the progress indicator column, if the table has one.
func (t *Table) Indicator() (int, bool) { return t.indicator, t.indicator >= 0 }

// SortState returns the column and direction of the last SortBy.
func (t *Table) SortState() (col int, ascending bool, ok bool) {
	return t.sortCol, t.sortAsc, t.sorted
}

// sortKey is a cell prepared for comparison under its column type.
type sortKey struct {
	ok   bool // cell parsed as the column type
	num  float64
	when time.Time
	text string
}

func makeSortKey(typ ColumnType, s string) sortKey {
	k := sortKey{text: s}
	switch typ {
	case ColumnNumeric, ColumnIndicator:
		k.num, k.ok = ParsePercent(s)
	case ColumnTimestamp:
		k.when, k.ok = ParseTimestamp(s)
	}
	return k
}

func compareKeys(typ ColumnType, a, b sortKey) int {
	if a.ok && b.ok {
		switch typ {
		case ColumnNumeric, ColumnIndicator:
			return cmp.Compare(a.num, b.num)
		case ColumnTimestamp:
			return a.when.Compare(b.when)
		}
	}
	if a.ok != b.ok {
		if a.ok {
			return -1
		}
		return 1
	}
	return strings.Compare(a.text, b.text)
}

// SortBy returns a copy of t ordered by the given column.
//
// Numeric and indicator columns compare numerically, timestamp columns
// chronologically and text columns by byte order. Cells that do not parse
// as their column type sort after those that do. Ties keep original row
// order in both directions.
func (t *Table) SortBy(col int, ascending bool) (*Table, error) {
	if col < 0 || col >= len(t.columns) {
		return nil, fmt.Errorf("%w: %d (table has %d columns)", ErrColumnOutOfRange, col, len(t.columns))
	}

	typ := t.columns[col].Type
	perm := make([]int, len(t.rows))
	keys := make([]sortKey, len(t.rows))
	for i, row := range t.rows {
		perm[i] = i
		keys[i] = makeSortKey(typ, row[col])
	}

	slices.SortStableFunc(perm, func(i, j int) int {
		c := compareKeys(typ, keys[i], keys[j])
		if !ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(t.origin[i], t.origin[j])
	})

	out := &Table{
		columns:   t.columns,
		rows:      make([][]string, len(perm)),
		origin:    make([]int, len(perm)),
		indicator: t.indicator,
		sorted:    true,
		sortCol:   col,
		sortAsc:   ascending,
	}
	for dst, src := range perm {
		out.rows[dst] = t.rows[src]
		out.origin[dst] = t.origin[src]
	}
	return out, nil
}

// InferColumnType returns ColumnNumeric when every non-empty cell of the
// column parses as a number, ColumnText otherwise.
func InferColumnType(rows [][]string, col int) ColumnType {
	seen := false
	for _, row := range rows {
		v := strings.TrimSpace(cell(row, col))
		if v == "" {
			continue
		}
		if _, ok := ParseNumber(v); !ok {
			return ColumnText
		}
		seen = true
	}
	if !seen {
		return ColumnText
	}
	return ColumnNumeric
}

type tableJSON struct {
	Columns   []columnJSON `json:"columns"`
	Rows      [][]string   `json:"rows"`
	Indicator *int         `json:"indicator,omitempty"`
	Sort      *sortJSON    `json:"sort,omitempty"`
}

type columnJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type sortJSON struct {
	Column    int  `json:"column"`
	Ascending bool `json:"ascending"`
}

// MarshalJSON encodes the table in display order.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{
		Columns: make([]columnJSON, len(t.columns)),
		Rows:    t.rows,
	}
	for i, c := range t.columns {
		out.Columns[i] = columnJSON{Name: c.Name, Type: c.Type.String()}
	}
	if out.Rows == nil {
		out.Rows = [][]string{}
	}
	if idx, ok := t.Indicator(); ok {
		out.Indicator = &idx
	}
	if col, asc, ok := t.SortState(); ok {
		out.Sort = &sortJSON{Column: col, Ascending: asc}
	}
	return json.Marshal(out)
}
