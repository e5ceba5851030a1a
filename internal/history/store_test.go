package history

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/capview/internal/config"
	"github.com/JonMunkholm/capview/internal/core"
)

func sampleReport(started time.Time) *core.RunReport {
	return &core.RunReport{
		RunID:      uuid.New(),
		ConfigPath: "/opt/capview/config.xml",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Entries: []core.EntryOutcome{
			{Index: 1, Kind: core.KindCapacity, RemotePath: "/r/a.csv", LocalPath: "a.csv", State: core.StateRendered, Rows: 4, Duration: 1500 * time.Millisecond},
			{Index: 2, Kind: core.KindInventory, RemotePath: "/r/b.csv", LocalPath: "b.csv", State: core.StateFailed,
				Err: fmt.Errorf("fetch: %w", core.ErrRemoteNotFound)},
			{Index: 3, Kind: core.KindCapacity, RemotePath: "/r/c.csv", LocalPath: "c.csv", State: core.StateRendered, Rows: 2},
		},
	}
}

func TestEntriesFromReport(t *testing.T) {
	entries := entriesFromReport(sampleReport(time.Now()))
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	if entries[0].DurationMS != 1500 || entries[0].ErrorCode != "" {
		t.Errorf("entry 1 = %+v", entries[0])
	}
	if entries[1].State != "failed" || entries[1].ErrorCode != "FET003" {
		t.Errorf("entry 2 = %+v, want failed/FET003", entries[1])
	}
	if entries[1].ErrorText == "" {
		t.Error("entry 2 lost its error text")
	}
	if entries[2].Kind != "capacity" || entries[2].Rows != 2 {
		t.Errorf("entry 3 = %+v", entries[2])
	}
}

func TestOpenDisabled(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{}); err == nil {
		t.Fatal("Open() succeeded without a URL")
	}
}

// openTestStore connects to TEST_DATABASE_URL or skips.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, config.DatabaseConfig{URL: url, MaxConns: 2})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// Migrate is idempotent.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	return store
}

func TestStoreRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	older := sampleReport(base)
	newer := &core.RunReport{
		RunID:      uuid.New(),
		ConfigPath: "/opt/capview/config.xml",
		StartedAt:  base.Add(time.Minute),
		FinishedAt: base.Add(time.Minute),
		ConfigErr:  core.MissingField("/opt/capview/config.xml", "Username"),
	}
	for _, r := range []*core.RunReport{older, newer} {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Recent() returned %d runs, want 2", len(runs))
	}
	if runs[0].ID != newer.RunID || runs[1].ID != older.RunID {
		t.Fatalf("Recent() order = %v, %v; want newest first", runs[0].ID, runs[1].ID)
	}
	if runs[0].ConfigCode != "CFG001" || len(runs[0].Entries) != 0 {
		t.Errorf("config failure run = %+v", runs[0])
	}
	if len(runs[1].Entries) != 3 || runs[1].Entries[1].ErrorCode != "FET003" {
		t.Errorf("entries = %+v", runs[1].Entries)
	}

	// A duplicate run ID violates the primary key.
	if err := store.Record(ctx, older); err == nil {
		t.Fatal("Record() of duplicate run succeeded")
	}
}
