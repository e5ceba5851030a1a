// Package render writes pipeline views to a terminal.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/capview/internal/core"
	"github.com/JonMunkholm/capview/internal/logging"
)

// BarWidth is the number of cells in a drawn progress indicator.
const BarWidth = 20

// Terminal is a core.Sink that prints each view as an aligned table,
// or as one JSON document per view.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer

	sortCol  int
	sortDesc bool
	asJSON   bool
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithSort sorts every view by col before printing. Views with fewer
// columns are printed unsorted.
func WithSort(col int, desc bool) Option {
	return func(t *Terminal) {
		t.sortCol = col
		t.sortDesc = desc
	}
}

// WithJSON switches output to JSON documents.
func WithJSON() Option {
	return func(t *Terminal) { t.asJSON = true }
}

// NewTerminal returns a sink writing to w.
func NewTerminal(w io.Writer, opts ...Option) *Terminal {
	t := &Terminal{w: w, sortCol: -1}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type viewJSON struct {
	Entry int               `json:"entry"`
	Kind  core.DatasetKind  `json:"kind"`
	Title string            `json:"title"`
	Table *core.Table       `json:"table,omitempty"`
	Error *core.UserMessage `json:"error,omitempty"`
}

// Render prints one view.
func (t *Terminal) Render(ctx context.Context, v core.View) error {
	table := v.Table
	if t.sortCol >= 0 {
		if t.sortCol < len(table.Columns()) {
			sorted, err := table.SortBy(t.sortCol, !t.sortDesc)
			if err != nil {
				return err
			}
			table = sorted
		} else {
			logging.FromContext(ctx).Warn("sort column not in view, printing unsorted",
				"entry", v.Entry, "column", t.sortCol)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.asJSON {
		return t.encode(viewJSON{Entry: v.Entry, Kind: v.Kind, Title: v.Title, Table: table})
	}
	return writeTable(t.w, v.Entry, v.Title, table)
}

// ReportFailure prints the slot title followed by the coded message.
func (t *Terminal) ReportFailure(ctx context.Context, f core.Failure) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.asJSON {
		msg := f.Message
		err = t.encode(viewJSON{Entry: f.Entry, Kind: f.Kind, Title: f.Title, Error: &msg})
	} else {
		_, err = fmt.Fprintf(t.w, "%s\n  %s\n\n", slotTitle(f.Entry, f.Title), FormatFailure(f.Message))
	}
	if err != nil {
		logging.FromContext(ctx).Error("failed to print failure", "entry", f.Entry, "error", err)
	}
}

func (t *Terminal) encode(v viewJSON) error {
	enc := json.NewEncoder(t.w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// FormatFailure renders a user message as "[CODE] message (action)".
func FormatFailure(m core.UserMessage) string {
	s := "[" + m.Code + "] " + m.Message
	if m.Action != "" {
		s += " (" + m.Action + ")"
	}
	return s
}

func slotTitle(entry int, title string) string {
	return fmt.Sprintf("== %d. %s ==", entry, title)
}

func writeTable(w io.Writer, entry int, title string, table *core.Table) error {
	if _, err := fmt.Fprintln(w, slotTitle(entry, title)); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := table.Headers()
	if col, asc, ok := table.SortState(); ok {
		mark := " ^"
		if !asc {
			mark = " v"
		}
		headers[col] += mark
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	indicator, hasIndicator := table.Indicator()
	for _, row := range table.Rows() {
		if hasIndicator {
			row[indicator] = Bar(row[indicator])
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "(%d rows)\n\n", table.Len())
	return err
}

// Bar draws a percentage cell as a BarWidth-cell bar followed by the
// value. The fill is clamped to 0..100; the printed value is not.
// Cells that are not integers are returned unchanged.
func Bar(cell string) string {
	p, err := strconv.Atoi(strings.TrimSpace(cell))
	if err != nil {
		return cell
	}
	fill := min(max(p, 0), 100) * BarWidth / 100
	return strings.Repeat("#", fill) + strings.Repeat(".", BarWidth-fill) + " " + strconv.Itoa(p) + "%"
}

// Summary prints the per-entry outcome lines of a finished run.
func Summary(w io.Writer, report *core.RunReport) error {
	if report.ConfigErr != nil {
		_, err := fmt.Fprintf(w, "run %s: %s\n", report.RunID, FormatFailure(core.MapError(report.ConfigErr)))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ENTRY\tKIND\tSTATE\tROWS\tDURATION\tERROR\n")
	for _, e := range report.Entries {
		code := ""
		if e.Err != nil {
			code = core.MapError(e.Err).Code
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			e.Index, e.Kind, e.State, e.Rows, e.Duration.Round(time.Millisecond), code)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "run %s: %d/%d entries rendered\n",
		report.RunID, len(report.Entries)-report.Failed(), len(report.Entries))
	return err
}
