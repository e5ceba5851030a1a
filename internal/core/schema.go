package core

// schema.go binds source columns to dataset fields.
//
// Two binding strategies exist. Capacity reports are matched by header name
// (with aliases). Inventory reports are matched by column position and their
// header text is ignored, so renaming a column there never breaks parsing.

import (
	"fmt"
	"strings"
)

// FieldSpec describes one schema field.
type FieldSpec struct {
	Key      string     // Stable identifier: "total_gb"
	Name     string     // Canonical header, also used for display
	Aliases  []string   // Alternative headers matched case-insensitively
	Type     ColumnType // Column type in the normalized table
	Required bool       // Column must exist (name binding only)
	Position int        // Source column (position binding only)
}

// HeaderIndex maps cleaned, lowercased column names to their position in the CSV row.
type HeaderIndex map[string]int

// Find returns the position of the first of names present in the index.
func (h HeaderIndex) Find(names ...string) (int, bool) {
	for _, n := range names {
		if pos, ok := h[strings.ToLower(CleanCell(n))]; ok {
			return pos, true
		}
	}
	return 0, false
}

// FieldIndex maps FieldSpec keys to source column positions.
type FieldIndex map[string]int

// BindByHeader locates every spec in the header row.
// Optional fields that are absent are left out of the result.
// Returns a SchemaMismatch listing all missing required columns.
func BindByHeader(path string, header []string, specs []FieldSpec) (FieldIndex, error) {
	idx := MakeHeaderIndex(header)
	fields := make(FieldIndex, len(specs))
	var missing []string

	for _, spec := range specs {
		names := append([]string{spec.Name}, spec.Aliases...)
		pos, ok := idx.Find(names...)
		if !ok {
			if spec.Required {
				missing = append(missing, spec.Name)
			}
			continue
		}
		fields[spec.Key] = pos
	}

	if len(missing) > 0 {
		return nil, SchemaMismatch(path, "missing required columns: "+strings.Join(missing, ", "))
	}
	return fields, nil
}

// BindPositions checks that header and rows are wide enough for every spec.
// Header text is never consulted.
func BindPositions(path string, header []string, rows [][]string, specs []FieldSpec) (FieldIndex, error) {
	width := 0
	fields := make(FieldIndex, len(specs))
	for _, spec := range specs {
		fields[spec.Key] = spec.Position
		if spec.Position+1 > width {
			width = spec.Position + 1
		}
	}

	if len(header) < width {
		return nil, SchemaMismatch(path, fmt.Sprintf("header has %d columns, want at least %d", len(header), width))
	}
	for i, row := range rows {
		if len(row) < width {
			return nil, SchemaMismatch(path, fmt.Sprintf("row %d has %d columns, want at least %d", i+1, len(row), width))
		}
	}
	return fields, nil
}

// cell returns row[pos] or "" when the row is short.
func cell(row []string, pos int) string {
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return row[pos]
}

// Cell returns the value of a bound field, or "" when unbound or short.
func (f FieldIndex) Cell(row []string, key string) string {
	pos, ok := f[key]
	if !ok {
		return ""
	}
	return cell(row, pos)
}
