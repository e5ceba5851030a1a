package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/capview/internal/core"
	"github.com/JonMunkholm/capview/internal/web/templates"
)

// defaultHistoryLimit is the /api/history page size when none is given.
const defaultHistoryLimit = 20

// sortParams is a validated ?sort=N&dir=asc|desc pair.
type sortParams struct {
	set       bool
	column    int
	ascending bool
}

// parseEntry reads the {entry} URL parameter.
func parseEntry(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "entry")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > core.EntryCount {
		return 0, badRequest("unknown view " + strconv.Quote(raw))
	}
	return n, nil
}

// parseSort reads the sort query parameters. Column indexes are 0-based.
func parseSort(r *http.Request) (sortParams, error) {
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("sort"))
	if raw == "" {
		return sortParams{}, nil
	}

	col, err := strconv.Atoi(raw)
	if err != nil || col < 0 {
		return sortParams{}, badRequest("sort must be a column number")
	}

	p := sortParams{set: true, column: col, ascending: true}
	switch strings.ToLower(strings.TrimSpace(q.Get("dir"))) {
	case "", "asc":
	case "desc":
		p.ascending = false
	default:
		return sortParams{}, badRequest("dir must be asc or desc")
	}
	return p, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// sortedTable applies p to the slot's table. Pending and failed slots
// have no table and return nil.
func sortedTable(slot Slot, p sortParams) (*core.Table, error) {
	if slot.Table == nil || !p.set {
		return slot.Table, nil
	}
	if p.column >= len(slot.Table.Columns()) {
		return nil, badRequest("sort column " + strconv.Itoa(p.column) + " does not exist in this view")
	}
	return slot.Table.SortBy(p.column, p.ascending)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

// handleIndex shows the first view.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, 1)
}

// handleView shows the {entry} view.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	entry, err := parseEntry(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	s.renderPage(w, r, entry)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, entry int) {
	sp, err := parseSort(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	slots := s.board.Slots()
	slot := slots[entry-1]
	table, err := sortedTable(slot, sp)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	page := templates.PageData{
		View: viewData(slot, table),
	}
	for _, sl := range slots {
		page.Tabs = append(page.Tabs, templates.Tab{
			Entry:  sl.Entry,
			Title:  sl.Title,
			State:  string(sl.State),
			Href:   "/view/" + strconv.Itoa(sl.Entry),
			Active: sl.Entry == entry,
		})
		if sl.State == core.StatePending {
			page.Refresh = true
		}
	}
	if rep := s.board.Report(); rep != nil {
		page.RunID = rep.RunID.String()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page(page).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// viewData converts a slot and its (possibly sorted) table for the page.
func viewData(slot Slot, table *core.Table) templates.ViewData {
	v := templates.ViewData{
		Entry:     slot.Entry,
		Title:     slot.Title,
		State:     string(slot.State),
		UpdatedAt: slot.UpdatedAt,
	}
	if slot.Failure != nil {
		v.Alert = &templates.Alert{
			Message: slot.Failure.Message,
			Action:  slot.Failure.Action,
			Code:    slot.Failure.Code,
		}
	}
	if table == nil {
		return v
	}

	sortCol, sortAsc, sorted := table.SortState()
	for i, col := range table.Columns() {
		dir := "asc"
		if sorted && sortCol == i && sortAsc {
			dir = "desc"
		}
		v.Columns = append(v.Columns, templates.Column{
			Name:      col.Name,
			Href:      "/view/" + strconv.Itoa(slot.Entry) + "?sort=" + strconv.Itoa(i) + "&dir=" + dir,
			Sorted:    sorted && sortCol == i,
			Ascending: sortAsc,
			Numeric:   col.Type == core.ColumnNumeric || col.Type == core.ColumnIndicator,
		})
	}

	indicator, hasIndicator := table.Indicator()
	for _, row := range table.Rows() {
		cells := make([]templates.Cell, len(row))
		for i, text := range row {
			cells[i] = templates.Cell{Text: text}
			if hasIndicator && i == indicator {
				if p, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
					cells[i] = templates.Cell{Text: text + "%", Bar: true, Percent: p}
				}
			}
		}
		v.Rows = append(v.Rows, cells)
	}
	return v
}

// viewJSON is the API form of a slot.
type viewJSON struct {
	Entry     int               `json:"entry"`
	Kind      core.DatasetKind  `json:"kind"`
	Title     string            `json:"title"`
	State     core.EntryState   `json:"state"`
	Rows      int               `json:"rows"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
	Error     *core.UserMessage `json:"error,omitempty"`
	Table     *core.Table       `json:"table,omitempty"`
}

func slotJSON(slot Slot, table *core.Table) viewJSON {
	v := viewJSON{
		Entry: slot.Entry,
		Kind:  slot.Kind,
		Title: slot.Title,
		State: slot.State,
		Error: slot.Failure,
		Table: table,
	}
	if slot.Table != nil {
		v.Rows = slot.Table.Len()
	}
	if !slot.UpdatedAt.IsZero() {
		t := slot.UpdatedAt
		v.UpdatedAt = &t
	}
	return v
}

// handleListViews returns a summary of every slot without table data.
func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	slots := s.board.Slots()
	out := make([]viewJSON, len(slots))
	for i, slot := range slots {
		out[i] = slotJSON(slot, nil)
	}
	writeJSON(w, r, out)
}

// handleGetView returns one slot with its (optionally sorted) table.
func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	entry, err := parseEntry(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	sp, err := parseSort(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	slot, _ := s.board.Slot(entry)
	table, err := sortedTable(slot, sp)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, r, slotJSON(slot, table))
}

type reportJSON struct {
	RunID       string            `json:"run_id"`
	ConfigPath  string            `json:"config_path"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	ConfigError *core.UserMessage `json:"config_error,omitempty"`
	Entries     []entryJSON       `json:"entries"`
}

type entryJSON struct {
	Index      int               `json:"index"`
	Kind       core.DatasetKind  `json:"kind"`
	RemotePath string            `json:"remote_path"`
	LocalPath  string            `json:"local_path"`
	State      core.EntryState   `json:"state"`
	Rows       int               `json:"rows"`
	DurationMS int64             `json:"duration_ms"`
	Error      *core.UserMessage `json:"error,omitempty"`
}

func reportToJSON(rep *core.RunReport) reportJSON {
	out := reportJSON{
		RunID:      rep.RunID.String(),
		ConfigPath: rep.ConfigPath,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Entries:    make([]entryJSON, 0, len(rep.Entries)),
	}
	if rep.ConfigErr != nil {
		msg := core.MapError(rep.ConfigErr)
		out.ConfigError = &msg
	}
	for _, e := range rep.Entries {
		ej := entryJSON{
			Index:      e.Index,
			Kind:       e.Kind,
			RemotePath: e.RemotePath,
			LocalPath:  e.LocalPath,
			State:      e.State,
			Rows:       e.Rows,
			DurationMS: e.Duration.Milliseconds(),
		}
		if e.Err != nil {
			msg := core.MapError(e.Err)
			ej.Error = &msg
		}
		out.Entries = append(out.Entries, ej)
	}
	return out
}

// handleReport returns the last finished run.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep := s.board.Report()
	if rep == nil {
		s.respondError(w, r, badRequest("no run has finished yet"), http.StatusNotFound)
		return
	}
	writeJSON(w, r, reportToJSON(rep))
}

// handleHistory lists recorded runs.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.respondError(w, r, badRequest("run history is not enabled"), http.StatusNotFound)
		return
	}

	runs, err := s.runs.Recent(r.Context(), parseIntParam(r, "limit", defaultHistoryLimit))
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, runs)
}
