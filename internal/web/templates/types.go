// Package templates holds the web sink's templ components. The *_templ.go
// files are generated; edit the .templ sources and run `templ generate` from
// the module root.
package templates

import (
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// Tab is one entry slot in the page navigation.
type Tab struct {
	Entry  int
	Title  string
	State  string
	Href   string
	Active bool
}

// Column is a table header with its sort link.
type Column struct {
	Name      string
	Href      string
	Sorted    bool
	Ascending bool
	Numeric   bool
}

// Cell is one table cell. Bar cells draw Percent as a progress bar.
type Cell struct {
	Text    string
	Bar     bool
	Percent int
}

// Alert is an operator-facing error.
type Alert struct {
	Message string
	Action  string
	Code    string
}

// ViewData is the selected slot.
type ViewData struct {
	Entry     int
	Title     string
	State     string
	Columns   []Column
	Rows      [][]Cell
	Alert     *Alert
	UpdatedAt time.Time
}

// PageData is everything the page shows.
type PageData struct {
	Tabs    []Tab
	View    ViewData
	RunID   string
	Refresh bool
}

// numeric reports whether column i is right-aligned.
func (v ViewData) numeric(i int) bool {
	return i < len(v.Columns) && v.Columns[i].Numeric
}

func viewID(entry int) string {
	return "view-" + strconv.Itoa(entry)
}

// sortMark is the arrow shown after a sorted column's name.
func sortMark(col Column) string {
	switch {
	case !col.Sorted:
		return ""
	case col.Ascending:
		return " ▲"
	default:
		return " ▼"
	}
}

// barStyle sizes a usage bar. Percent is clamped to 0..100.
func barStyle(percent int) templ.SafeCSS {
	return templ.SafeCSS("width:" + strconv.Itoa(min(max(percent, 0), 100)) + "%")
}

func rowSummary(v ViewData) string {
	s := strconv.Itoa(len(v.Rows)) + " rows"
	if !v.UpdatedAt.IsZero() {
		s += ", updated " + v.UpdatedAt.Format("2006-01-02 15:04:05")
	}
	return s
}
