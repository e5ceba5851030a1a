package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/capview/internal/core"
)

// Slot is the latest state of one entry's view.
type Slot struct {
	Entry     int
	Kind      core.DatasetKind
	Title     string
	State     core.EntryState // pending, rendered or failed
	Table     *core.Table
	Failure   *core.UserMessage
	UpdatedAt time.Time
}

// Board is the web sink. It keeps the latest view or failure per entry
// and the last finished run report. Safe for concurrent use.
type Board struct {
	mu     sync.RWMutex
	slots  [core.EntryCount]Slot
	report *core.RunReport
	now    func() time.Time
}

// NewBoard returns a Board with every slot pending.
func NewBoard() *Board {
	b := &Board{now: time.Now}
	b.Reset()
	return b
}

// Reset marks every slot pending, ready for a new run. The last report
// is kept until SetReport replaces it.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.slots {
		entry := i + 1
		kind := core.KindForEntry(entry)
		b.slots[i] = Slot{
			Entry: entry,
			Kind:  kind,
			Title: defaultTitle(kind),
			State: core.StatePending,
		}
	}
}

func defaultTitle(kind core.DatasetKind) string {
	if def, ok := core.Get(kind); ok {
		return def.Label
	}
	return string(kind)
}

func (b *Board) index(entry int) (int, error) {
	if entry < 1 || entry > core.EntryCount {
		return 0, fmt.Errorf("entry %d outside 1-%d", entry, core.EntryCount)
	}
	return entry - 1, nil
}

// Render stores a completed view in its slot.
func (b *Board) Render(_ context.Context, v core.View) error {
	i, err := b.index(v.Entry)
	if err != nil {
		return err
	}
	if v.Table == nil {
		return fmt.Errorf("entry %d: nil table", v.Entry)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[i] = Slot{
		Entry:     v.Entry,
		Kind:      v.Kind,
		Title:     v.Title,
		State:     core.StateRendered,
		Table:     v.Table,
		UpdatedAt: b.now(),
	}
	return nil
}

// ReportFailure clears the slot's table and stores the failure.
func (b *Board) ReportFailure(_ context.Context, f core.Failure) {
	i, err := b.index(f.Entry)
	if err != nil {
		return
	}

	msg := f.Message
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[i] = Slot{
		Entry:     f.Entry,
		Kind:      f.Kind,
		Title:     f.Title,
		State:     core.StateFailed,
		Failure:   &msg,
		UpdatedAt: b.now(),
	}
}

// SetReport stores the report of a finished run. A configuration error
// fails every slot that is still pending.
func (b *Board) SetReport(r *core.RunReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.report = r

	if r.ConfigErr == nil {
		return
	}
	msg := core.MapError(r.ConfigErr)
	for i := range b.slots {
		if b.slots[i].State == core.StatePending {
			b.slots[i].State = core.StateFailed
			b.slots[i].Failure = &msg
			b.slots[i].UpdatedAt = b.now()
		}
	}
}

// Report returns the last finished run, or nil.
func (b *Board) Report() *core.RunReport {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.report
}

// Slot returns the slot for entry.
func (b *Board) Slot(entry int) (Slot, bool) {
	i, err := b.index(entry)
	if err != nil {
		return Slot{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.slots[i], true
}

// Slots returns all slots in entry order.
func (b *Board) Slots() []Slot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Slot, len(b.slots))
	copy(out, b.slots[:])
	return out
}
