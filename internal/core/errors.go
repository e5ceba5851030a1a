package core

// errors.go defines the three error families of a run.
//
// ConfigError is fatal for the whole run. FetchError and ParseError are
// scoped to a single dataset entry. Each family carries a Kind so callers
// can branch with errors.Is against the Err* sentinels or inspect the
// concrete type with errors.As.

import (
	"errors"
	"fmt"
)

// Config error kinds.
var (
	ErrMissingField = errors.New("missing field")
	ErrMalformed    = errors.New("malformed configuration")
	ErrUnreadable   = errors.New("unreadable configuration")
)

// Fetch error kinds.
var (
	ErrConnectFailed    = errors.New("connect failed")
	ErrAuthFailed       = errors.New("authentication rejected")
	ErrRemoteNotFound   = errors.New("remote path not found")
	ErrLocalWriteFailed = errors.New("local write failed")
	ErrTransferFailed   = errors.New("transfer failed")
)

// Parse error kinds.
var (
	ErrBadNumeric     = errors.New("bad numeric value")
	ErrBadTimestamp   = errors.New("bad timestamp")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrFileUnreadable = errors.New("unreadable file")
)

// ConfigError reports why the pipeline document could not be resolved.
type ConfigError struct {
	Kind   error  // ErrMissingField, ErrMalformed or ErrUnreadable
	Field  string // Set for ErrMissingField
	Path   string
	Detail string
}

// MissingField returns a ConfigError for an absent or empty element.
func MissingField(path, field string) *ConfigError {
	return &ConfigError{Kind: ErrMissingField, Field: field, Path: path}
}

// Malformed returns a ConfigError for a document that does not parse.
func Malformed(path, detail string) *ConfigError {
	return &ConfigError{Kind: ErrMalformed, Path: path, Detail: detail}
}

func (e *ConfigError) Error() string {
	switch {
	case e.Kind == ErrMissingField:
		return fmt.Sprintf("config %s: %v %q", e.Path, e.Kind, e.Field)
	case e.Detail != "":
		return fmt.Sprintf("config %s: %v: %s", e.Path, e.Kind, e.Detail)
	default:
		return fmt.Sprintf("config %s: %v", e.Path, e.Kind)
	}
}

func (e *ConfigError) Unwrap() error { return e.Kind }

// FetchError reports why one remote file could not be materialized locally.
type FetchError struct {
	Kind       error
	Server     string
	RemotePath string
	LocalPath  string
	Err        error
}

// NewFetchError wraps cause with a fetch kind.
func NewFetchError(kind error, server, remotePath, localPath string, cause error) *FetchError {
	return &FetchError{Kind: kind, Server: server, RemotePath: remotePath, LocalPath: localPath, Err: cause}
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s from %s: %v", e.RemotePath, e.Server, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ParseError reports why a downloaded file could not be normalized.
// Row is the 1-based data row (the header is row 0).
type ParseError struct {
	Kind   error
	Path   string
	Column string
	Row    int
	Value  string
	Detail string
}

// BadNumeric returns a ParseError for a cell that is not a number.
func BadNumeric(path, column string, row int, value string) *ParseError {
	return &ParseError{Kind: ErrBadNumeric, Path: path, Column: column, Row: row, Value: value}
}

// BadTimestamp returns a ParseError for a cell that is not a timestamp.
func BadTimestamp(path string, row int, value string) *ParseError {
	return &ParseError{Kind: ErrBadTimestamp, Path: path, Row: row, Value: value}
}

// SchemaMismatch returns a ParseError for a file whose shape does not fit the dataset kind.
func SchemaMismatch(path, detail string) *ParseError {
	return &ParseError{Kind: ErrSchemaMismatch, Path: path, Detail: detail}
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrBadNumeric:
		return fmt.Sprintf("parse %s: %v in column %q at row %d: %q", e.Path, e.Kind, e.Column, e.Row, e.Value)
	case ErrBadTimestamp:
		return fmt.Sprintf("parse %s: %v at row %d: %q", e.Path, e.Kind, e.Row, e.Value)
	default:
		return fmt.Sprintf("parse %s: %v: %s", e.Path, e.Kind, e.Detail)
	}
}

func (e *ParseError) Unwrap() error { return e.Kind }

// ErrColumnOutOfRange is returned by Table.SortBy for an invalid column index.
var ErrColumnOutOfRange = errors.New("column index out of range")

// RenderError wraps a sink failure for one entry.
type RenderError struct {
	Entry int
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render entry %d: %v", e.Entry, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
