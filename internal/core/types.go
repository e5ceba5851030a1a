// Package core provides the acquisition and normalization pipeline.
// This package has no presentation dependencies and can be used by any sink.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DatasetKind identifies the schema a downloaded report is parsed with.
type DatasetKind string

const (
	KindCapacity  DatasetKind = "capacity"
	KindInventory DatasetKind = "inventory"
)

// EntryCount is the number of dataset entries a configuration carries.
const EntryCount = 3

// entryKinds assigns a dataset kind to each configuration entry by position.
var entryKinds = [EntryCount]DatasetKind{KindCapacity, KindInventory, KindCapacity}

// KindForEntry returns the dataset kind bound to a 1-based entry index.
func KindForEntry(index int) DatasetKind {
	if index < 1 || index > EntryCount {
		return ""
	}
	return entryKinds[index-1]
}

// Binding describes how source columns are matched to a schema.
type Binding int

const (
	BindByName Binding = iota
	BindByPosition
)

func (b Binding) String() string {
	if b == BindByPosition {
		return "position"
	}
	return "name"
}

// Protocol selects the transport used to reach the remote server.
type Protocol string

const (
	ProtocolFTP Protocol = "ftp"
	ProtocolSSH Protocol = "ssh"
)

// DefaultPort returns the well-known port for the protocol.
func (p Protocol) DefaultPort() int {
	if p == ProtocolSSH {
		return 22
	}
	return 21
}

// Configuration is the resolved pipeline document.
type Configuration struct {
	Source   string // Absolute path of the document that was read
	Server   string
	Port     int
	Protocol Protocol
	Username string
	Password string
	Datasets [EntryCount]DatasetEntry
}

// Credentials returns the connection settings for the remote fetcher.
func (c *Configuration) Credentials() Credentials {
	return Credentials{
		Server:   c.Server,
		Port:     c.Port,
		Protocol: c.Protocol,
		Username: c.Username,
		Password: c.Password,
	}
}

// String returns a safe representation for logging. The password is masked.
func (c *Configuration) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Configuration{Source: %q, Server: %q, Port: %d, Protocol: %s, Username: %q, Password: [MASKED]",
		c.Source, c.Server, c.Port, c.Protocol, c.Username)
	for _, d := range c.Datasets {
		fmt.Fprintf(&b, ", Entry%d: {%s %q -> %q}", d.Index, d.Kind, d.RemotePath, d.LocalPath)
	}
	b.WriteString("}")
	return b.String()
}

// DatasetEntry is one (remote, local) pair together with its schema.
type DatasetEntry struct {
	Index      int
	Kind       DatasetKind
	Title      string // View title; the dataset label when empty
	RemotePath string
	LocalPath  string
}

// Credentials holds everything needed to open an authenticated session.
type Credentials struct {
	Server   string
	Port     int
	Protocol Protocol
	Username string
	Password string
}

// ColumnType drives type-aware sorting of a column.
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnNumeric
	ColumnTimestamp
	ColumnIndicator // integer percentage drawn as a progress bar
)

func (t ColumnType) String() string {
	switch t {
	case ColumnNumeric:
		return "numeric"
	case ColumnTimestamp:
		return "timestamp"
	case ColumnIndicator:
		return "indicator"
	default:
		return "text"
	}
}

// Column describes one column of a Table.
type Column struct {
	Name string
	Type ColumnType
}

// EntryState is the per-entry position in the run state machine.
type EntryState string

const (
	StatePending  EntryState = "pending"
	StateFetching EntryState = "fetching"
	StateParsing  EntryState = "parsing"
	StateRendered EntryState = "rendered"
	StateFailed   EntryState = "failed"
)

// EntryOutcome is the terminal result of one dataset entry.
type EntryOutcome struct {
	Index      int
	Kind       DatasetKind
	RemotePath string
	LocalPath  string
	State      EntryState
	Err        error
	Rows       int
	Duration   time.Duration
}

// RunReport enumerates the outcome of one pipeline run.
type RunReport struct {
	RunID      uuid.UUID
	ConfigPath string
	StartedAt  time.Time
	FinishedAt time.Time

	// ConfigErr is set when the configuration could not be resolved.
	// Entries is empty in that case.
	ConfigErr error
	Entries   []EntryOutcome
}

// Failed returns the number of entries that did not render.
func (r *RunReport) Failed() int {
	n := 0
	for _, e := range r.Entries {
		if e.State == StateFailed {
			n++
		}
	}
	return n
}

// Fatal reports whether the run aborted before processing any entry.
func (r *RunReport) Fatal() bool {
	return r.ConfigErr != nil
}

// View is a completed relation addressed to a presentation slot.
type View struct {
	Entry int
	Kind  DatasetKind
	Title string
	Table *Table
}

// Failure tells a sink that an entry's slot has no data this run.
type Failure struct {
	Entry   int
	Kind    DatasetKind
	Title   string
	Err     error
	Message UserMessage
}

// ConfigResolver loads the pipeline document.
type ConfigResolver interface {
	Resolve(path string) (*Configuration, error)
}

// Fetcher downloads one remote file to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, creds Credentials, remotePath, localPath string) error
}

// Sink receives completed relations and per-slot failures.
type Sink interface {
	Render(ctx context.Context, v View) error
	ReportFailure(ctx context.Context, f Failure)
}

// RunRecorder persists run outcomes.
type RunRecorder interface {
	Record(ctx context.Context, report *RunReport) error
}
