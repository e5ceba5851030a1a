package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},

		{"missing field", MissingField("config.xml", "Server"), "CFG001"},
		{"malformed", Malformed("config.xml", "unexpected EOF"), "CFG002"},
		{"unreadable", &ConfigError{Kind: ErrUnreadable, Path: "config.xml"}, "CFG003"},

		{"connect failed", NewFetchError(ErrConnectFailed, "h", "/a", "a", errors.New("dial")), "FET001"},
		{"auth failed", NewFetchError(ErrAuthFailed, "h", "/a", "a", nil), "FET002"},
		{"remote not found", NewFetchError(ErrRemoteNotFound, "h", "/a", "a", nil), "FET003"},
		{"local write", NewFetchError(ErrLocalWriteFailed, "h", "/a", "a", nil), "FET004"},
		{"transfer", NewFetchError(ErrTransferFailed, "h", "/a", "a", nil), "FET005"},

		{"bad numeric", BadNumeric("a.csv", "용량", 3, "n/a"), "PRS001"},
		{"bad timestamp", BadTimestamp("a.csv", 1, "yesterday"), "PRS002"},
		{"schema mismatch", SchemaMismatch("a.csv", "missing columns"), "PRS003"},
		{"file unreadable", &ParseError{Kind: ErrFileUnreadable, Path: "a.csv"}, "PRS004"},

		{"cancelled", context.Canceled, "RUN001"},
		{"deadline", context.DeadlineExceeded, "RUN002"},
		{"wrapped deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), "RUN002"},

		{"render error", &RenderError{Entry: 2, Err: errors.New("template broke")}, "SNK001"},

		{"wrapped fetch error", fmt.Errorf("entry 1: %w", NewFetchError(ErrAuthFailed, "h", "/a", "a", nil)), "FET002"},
		{"kind beats cause", NewFetchError(ErrTransferFailed, "h", "/a", "a", context.Canceled), "FET005"},

		{"connection refused pattern", errors.New("dial tcp 10.0.0.1:21: connect: Connection Refused"), "FET001"},
		{"no such host pattern", errors.New("lookup files.example: no such host"), "FET001"},
		{"ssh auth pattern", errors.New("ssh: handshake failed: ssh: unable to authenticate"), "FET002"},
		{"no space pattern", errors.New("write a.csv: no space left on device"), "FET004"},

		{"unknown error", errors.New("something unexpected"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.wantCode != "" && (got.Message == "" || got.Action == "") {
				t.Errorf("MapError() = %+v, want message and action", got)
			}
		})
	}
}

func TestMapErrorCodesUnique(t *testing.T) {
	seen := make(map[string]error)
	for _, ek := range errorKinds {
		if prev, ok := seen[ek.msg.Code]; ok {
			t.Errorf("code %s used by %v and %v", ek.msg.Code, prev, ek.kind)
		}
		seen[ek.msg.Code] = ek.kind
	}
	for _, code := range []string{renderMessage.Code, defaultMessage.Code} {
		if _, ok := seen[code]; ok {
			t.Errorf("code %s reused", code)
		}
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(NewFetchError(ErrRemoteNotFound, "h", "/out/a.csv", "a.csv", nil))
	if !strings.Contains(got, "(Code: FET003)") {
		t.Errorf("FormatUserError() = %q, want code", got)
	}
	if !strings.HasPrefix(got, "The remote file does not exist") {
		t.Errorf("FormatUserError() = %q, want message first", got)
	}
	if !strings.HasSuffix(got, "Check the RemoteFilePath entry") {
		t.Errorf("FormatUserError() = %q, want action last", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("mystery"), false},
		{ErrSchemaMismatch, true},
		{&RenderError{Entry: 1, Err: errors.New("x")}, true},
		{errors.New("connection refused"), true},
	}
	for _, tt := range tests {
		if got := IsUserFacing(tt.err); got != tt.want {
			t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
