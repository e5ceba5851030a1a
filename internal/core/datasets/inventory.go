package datasets

import (
	"strings"

	"github.com/JonMunkholm/capview/internal/core"
)

// Inventory field keys.
const (
	FieldHostName  = "host_name"
	FieldIPAddress = "ip_address"
)

// inventoryFields are bound by position; Name is only the display header.
var inventoryFields = []core.FieldSpec{
	{Key: FieldHostName, Name: "컴퓨터 명", Position: 0, Type: core.ColumnText},
	{Key: FieldIPAddress, Name: "IP 주소", Position: 1, Type: core.ColumnText},
	{Key: FieldCollectedAt, Name: "수집 시간", Position: 2, Type: core.ColumnTimestamp},
}

func init() {
	core.Register(core.DatasetDefinition{
		Kind:    core.KindInventory,
		Label:   "IP 주소",
		Binding: core.BindByPosition,
		Fields:  inventoryFields,
		Parse: func(path string, opts core.ReadOptions) (*core.Table, error) {
			set, err := ParseInventory(path, opts)
			if err != nil {
				return nil, err
			}
			return set.Table(), nil
		},
	})
}

// InventoryRow is one host record.
type InventoryRow struct {
	HostName    string
	IPAddress   string
	CollectedAt string
}

// InventorySet is a parsed inventory report.
type InventorySet struct {
	Path string
	Rows []InventoryRow
}

// ParseInventory reads an inventory report by column position.
// Header text is ignored and cells are carried without conversion.
// Extra columns are ignored; a short header or row is SchemaMismatch.
func ParseInventory(path string, opts core.ReadOptions) (*InventorySet, error) {
	header, rows, err := core.ReadCSV(path, opts)
	if err != nil {
		return nil, err
	}

	fields, err := core.BindPositions(path, header, rows, inventoryFields)
	if err != nil {
		return nil, err
	}

	set := &InventorySet{Path: path, Rows: make([]InventoryRow, 0, len(rows))}
	for _, row := range rows {
		set.Rows = append(set.Rows, InventoryRow{
			HostName:    strings.TrimSpace(fields.Cell(row, FieldHostName)),
			IPAddress:   strings.TrimSpace(fields.Cell(row, FieldIPAddress)),
			CollectedAt: strings.TrimSpace(fields.Cell(row, FieldCollectedAt)),
		})
	}
	return set, nil
}

// Table returns the fixed three-column display relation.
func (s *InventorySet) Table() *core.Table {
	columns := make([]core.Column, len(inventoryFields))
	for i, f := range inventoryFields {
		columns[i] = core.Column{Name: f.Name, Type: f.Type}
	}

	rows := make([][]string, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = []string{r.HostName, r.IPAddress, r.CollectedAt}
	}
	return core.NewTable(columns, rows, -1)
}
