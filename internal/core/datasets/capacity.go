package datasets

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/capview/internal/core"
)

// RatioColumn is the derived display column appended to capacity tables.
const RatioColumn = "비율"

// Capacity field keys.
const (
	FieldDrive       = "drive"
	FieldTotalGB     = "total_gb"
	FieldUsedGB      = "used_gb"
	FieldFreeGB      = "free_gb"
	FieldUsedPercent = "used_percent"
	FieldCollectedAt = "collected_at"
)

var capacityFields = []core.FieldSpec{
	{Key: FieldDrive, Name: "드라이브", Aliases: []string{"드라이브 명", "Drive", "Drive Label"}, Type: core.ColumnText},
	{Key: FieldTotalGB, Name: "드라이브 용량 (GB)", Aliases: []string{"Total (GB)", "Capacity (GB)"}, Type: core.ColumnNumeric, Required: true},
	{Key: FieldUsedGB, Name: "사용한 용량 (GB)", Aliases: []string{"Used (GB)"}, Type: core.ColumnNumeric, Required: true},
	{Key: FieldFreeGB, Name: "남은 용량 (GB)", Aliases: []string{"Free (GB)"}, Type: core.ColumnNumeric, Required: true},
	{Key: FieldUsedPercent, Name: "사용 비율 (%)", Aliases: []string{"Used (%)", "Usage (%)"}, Type: core.ColumnNumeric, Required: true},
	{Key: FieldCollectedAt, Name: "수집 시간", Aliases: []string{"Collected At", "Timestamp"}, Type: core.ColumnTimestamp, Required: true},
}

// gbFields are reformatted to two decimals, in this order.
var gbFields = []string{FieldTotalGB, FieldUsedGB, FieldFreeGB}

func init() {
	core.Register(core.DatasetDefinition{
		Kind:    core.KindCapacity,
		Label:   "드라이브 용량",
		Binding: core.BindByName,
		Fields:  capacityFields,
		Parse: func(path string, opts core.ReadOptions) (*core.Table, error) {
			set, err := ParseCapacity(path, opts)
			if err != nil {
				return nil, err
			}
			return set.Table(), nil
		},
	})
}

// CapacityRow is one normalized drive record.
type CapacityRow struct {
	DriveLabel  string
	TotalGB     string // two decimals
	UsedGB      string // two decimals
	FreeGB      string // two decimals
	UsedPercent string // raw source cell
	Ratio       int    // UsedPercent truncated toward zero, not clamped
	CollectedAt string // YYYY-MM-DD HH:MM:SS

	// Cells holds every source column in header order with the
	// normalized values substituted. Passthrough columns are unchanged.
	Cells []string
}

// CapacitySet is a parsed capacity report.
type CapacitySet struct {
	Path   string
	Header []string
	Types  []core.ColumnType
	Rows   []CapacityRow
}

// ParseCapacity reads and normalizes a capacity report.
//
// The first failing cell aborts the whole file: a non-numeric GB or
// percentage cell is BadNumeric, an unreadable collection time is
// BadTimestamp. No row is ever dropped.
func ParseCapacity(path string, opts core.ReadOptions) (*CapacitySet, error) {
	header, rows, err := core.ReadCSV(path, opts)
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	fields, err := core.BindByHeader(path, header, capacityFields)
	if err != nil {
		return nil, err
	}

	set := &CapacitySet{
		Path:   path,
		Header: header,
		Rows:   make([]CapacityRow, 0, len(rows)),
	}

	for i, raw := range rows {
		rowNum := i + 1
		cells := make([]string, len(header))
		copy(cells, raw)

		var cr CapacityRow

		for _, key := range gbFields {
			pos := fields[key]
			v, ok := core.ParseNumber(cells[pos])
			if !ok {
				return nil, core.BadNumeric(path, header[pos], rowNum, cells[pos])
			}
			cells[pos] = core.FormatFixed2(v)
		}

		tsPos := fields[FieldCollectedAt]
		ts, ok := core.CanonicalTimestamp(cells[tsPos])
		if !ok {
			return nil, core.BadTimestamp(path, rowNum, cells[tsPos])
		}
		cells[tsPos] = ts

		pctPos := fields[FieldUsedPercent]
		pct, ok := core.ParsePercent(cells[pctPos])
		if !ok {
			return nil, core.BadNumeric(path, header[pctPos], rowNum, cells[pctPos])
		}

		cr.DriveLabel = strings.TrimSpace(fields.Cell(cells, FieldDrive))
		cr.TotalGB = cells[fields[FieldTotalGB]]
		cr.UsedGB = cells[fields[FieldUsedGB]]
		cr.FreeGB = cells[fields[FieldFreeGB]]
		cr.UsedPercent = cells[pctPos]
		cr.Ratio = core.TruncatePercent(pct)
		cr.CollectedAt = ts
		cr.Cells = cells

		set.Rows = append(set.Rows, cr)
	}

	set.Types = capacityTypes(header, fields, set.Rows)
	return set, nil
}

// capacityTypes assigns schema types to bound columns and infers the rest.
func capacityTypes(header []string, fields core.FieldIndex, rows []CapacityRow) []core.ColumnType {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.Cells
	}

	types := make([]core.ColumnType, len(header))
	bound := make(map[int]core.ColumnType, len(fields))
	for _, spec := range capacityFields {
		if pos, ok := fields[spec.Key]; ok {
			bound[pos] = spec.Type
		}
	}
	for i := range header {
		if typ, ok := bound[i]; ok {
			types[i] = typ
			continue
		}
		types[i] = core.InferColumnType(cells, i)
	}
	return types
}

// Table returns the display relation: every source column followed by the
// derived ratio indicator.
func (s *CapacitySet) Table() *core.Table {
	columns := make([]core.Column, 0, len(s.Header)+1)
	for i, h := range s.Header {
		columns = append(columns, core.Column{Name: h, Type: s.Types[i]})
	}
	columns = append(columns, core.Column{Name: RatioColumn, Type: core.ColumnIndicator})

	rows := make([][]string, len(s.Rows))
	for i, r := range s.Rows {
		row := make([]string, 0, len(columns))
		row = append(row, r.Cells...)
		row = append(row, strconv.Itoa(r.Ratio))
		rows[i] = row
	}
	return core.NewTable(columns, rows, len(columns)-1)
}
