package core

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/text/encoding/korean"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func eucKR(t *testing.T, s string) []byte {
	t.Helper()
	out, err := korean.EUCKR.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("Failed to encode %q: %v", s, err)
	}
	return []byte(out)
}

func TestReadCSV(t *testing.T) {
	const report = "드라이브,사용률\r\nC:,87\r\n"

	tests := []struct {
		name       string
		data       func(t *testing.T) []byte
		enc        Encoding
		wantHeader []string
		wantRows   [][]string
	}{
		{
			name:       "utf-8",
			data:       func(*testing.T) []byte { return []byte(report) },
			enc:        EncodingUTF8,
			wantHeader: []string{"드라이브", "사용률"},
			wantRows:   [][]string{{"C:", "87"}},
		},
		{
			name:       "utf-8 with BOM",
			data:       func(*testing.T) []byte { return append([]byte{0xEF, 0xBB, 0xBF}, report...) },
			enc:        EncodingUTF8,
			wantHeader: []string{"드라이브", "사용률"},
			wantRows:   [][]string{{"C:", "87"}},
		},
		{
			name:       "euc-kr",
			data:       func(t *testing.T) []byte { return eucKR(t, report) },
			enc:        EncodingEUCKR,
			wantHeader: []string{"드라이브", "사용률"},
			wantRows:   [][]string{{"C:", "87"}},
		},
		{
			name:       "auto detects euc-kr",
			data:       func(t *testing.T) []byte { return eucKR(t, report) },
			enc:        EncodingAuto,
			wantHeader: []string{"드라이브", "사용률"},
			wantRows:   [][]string{{"C:", "87"}},
		},
		{
			name:       "auto keeps utf-8",
			data:       func(*testing.T) []byte { return []byte(report) },
			enc:        EncodingAuto,
			wantHeader: []string{"드라이브", "사용률"},
			wantRows:   [][]string{{"C:", "87"}},
		},
		{
			name:       "ragged rows",
			data:       func(*testing.T) []byte { return []byte("a,b,c\n1\n1,2,3,4\n") },
			enc:        EncodingUTF8,
			wantHeader: []string{"a", "b", "c"},
			wantRows:   [][]string{{"1"}, {"1", "2", "3", "4"}},
		},
		{
			name:       "header only",
			data:       func(*testing.T) []byte { return []byte("a,b\n") },
			enc:        EncodingUTF8,
			wantHeader: []string{"a", "b"},
			wantRows:   [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "report.csv", tt.data(t))

			header, rows, err := ReadCSV(path, ReadOptions{Encoding: tt.enc})
			if err != nil {
				t.Fatalf("ReadCSV() error = %v", err)
			}
			if !reflect.DeepEqual(header, tt.wantHeader) {
				t.Errorf("header = %q, want %q", header, tt.wantHeader)
			}
			if !reflect.DeepEqual(rows, tt.wantRows) {
				t.Errorf("rows = %q, want %q", rows, tt.wantRows)
			}
		})
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     func(t *testing.T) string
		wantKind error
	}{
		{
			name:     "missing file",
			path:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.csv") },
			wantKind: ErrFileUnreadable,
		},
		{
			name:     "unterminated quote",
			path:     func(t *testing.T) string { return writeFile(t, "bad.csv", []byte("a,b\n\"open,1\n")) },
			wantKind: ErrFileUnreadable,
		},
		{
			name:     "empty file",
			path:     func(t *testing.T) string { return writeFile(t, "empty.csv", nil) },
			wantKind: ErrSchemaMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path(t)
			_, _, err := ReadCSV(path, ReadOptions{})
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("ReadCSV() error = %v, want %v", err, tt.wantKind)
			}
			var pe *ParseError
			if !errors.As(err, &pe) || pe.Path != path {
				t.Errorf("error %v does not carry path %s", err, path)
			}
		})
	}
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    Encoding
		wantErr bool
	}{
		{"", EncodingUTF8, false},
		{"UTF-8", EncodingUTF8, false},
		{"utf8", EncodingUTF8, false},
		{" euc-kr ", EncodingEUCKR, false},
		{"CP949", EncodingEUCKR, false},
		{"auto", EncodingAuto, false},
		{"latin-1", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEncoding(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEncoding(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEncoding(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
