package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// ============================================================================
// Conversion Function Benchmarks
// ============================================================================

// BenchmarkParseNumber benchmarks numeric cell conversion.
// Called for every GB cell of a capacity report.
func BenchmarkParseNumber(b *testing.B) {
	testCases := []string{
		"123",
		"-456.78",
		"  999.99  ",
		`="12.5"`,
		"1e3",
		"n/a",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseNumber(tc)
		}
	}
}

// BenchmarkFormatFixed2 benchmarks two-decimal formatting.
func BenchmarkFormatFixed2(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		FormatFixed2(12.345)
	}
}

// BenchmarkCanonicalTimestamp benchmarks timestamp normalization.
// Later layouts cost more because every earlier layout is tried first.
func BenchmarkCanonicalTimestamp(b *testing.B) {
	testCases := []struct {
		name  string
		value string
	}{
		{"iso", "2024-03-05T14:07:09Z"},
		{"canonical", "2024-03-05 14:07:09"},
		{"dotted_korean", "2024. 3. 5. 14:07:09"},
		{"compact", "20240305140709"},
		{"invalid", "yesterday"},
	}

	for _, tc := range testCases {
		b.Run(tc.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				CanonicalTimestamp(tc.value)
			}
		})
	}
}

// BenchmarkCleanCell benchmarks CSV cell cleaning.
func BenchmarkCleanCell(b *testing.B) {
	testCases := []string{
		"normal value",
		`="formula"`,
		`"quoted"`,
		"  whitespace  ",
		`="12345"`,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CleanCell(tc)
		}
	}
}

// BenchmarkMakeHeaderIndex benchmarks header index creation.
// Called once per capacity file to bind columns by name.
func BenchmarkMakeHeaderIndex(b *testing.B) {
	headers := []string{
		"드라이브", "드라이브 용량 (GB)", "사용한 용량 (GB)", "남은 용량 (GB)",
		"사용 비율 (%)", "수집 시간", "비고",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MakeHeaderIndex(headers)
	}
}

// ============================================================================
// Table Sort Benchmarks
// ============================================================================

func benchTable(rows int) *Table {
	cols := []Column{
		{Name: "drive", Type: ColumnText},
		{Name: "total", Type: ColumnNumeric},
		{Name: "collected", Type: ColumnTimestamp},
		{Name: "ratio", Type: ColumnIndicator},
	}
	data := make([][]string, rows)
	for i := range data {
		data[i] = []string{
			fmt.Sprintf("D%04d", (i*7919)%rows),
			FormatFixed2(float64((i * 31) % 1000)),
			fmt.Sprintf("2024-03-%02d 14:07:09", 1+i%28),
			strconv.Itoa(i % 101),
		}
	}
	return NewTable(cols, data, 3)
}

// BenchmarkSortBy benchmarks sorting by each column type.
func BenchmarkSortBy(b *testing.B) {
	tbl := benchTable(1000)

	for col, name := range []string{"text", "numeric", "timestamp", "indicator"} {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := tbl.SortBy(col, i%2 == 0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// ============================================================================
// CSV Read Benchmarks
// ============================================================================

// BenchmarkReadCSV benchmarks reading a report from disk.
func BenchmarkReadCSV(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("드라이브,드라이브 용량 (GB),사용한 용량 (GB),남은 용량 (GB),사용 비율 (%),수집 시간\n")
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&sb, "D%d:,100,%d,%d,%d,2024-03-05 14:07:09\n", i, i%100, 100-i%100, i%100)
	}
	path := filepath.Join(b.TempDir(), "report.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		b.Fatal(err)
	}

	for _, enc := range []Encoding{EncodingUTF8, EncodingAuto} {
		b.Run(string(enc), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, _, err := ReadCSV(path, ReadOptions{Encoding: enc}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// ============================================================================
// Parallel Benchmarks
// ============================================================================

// BenchmarkParsePercentParallel benchmarks parallel percent conversion.
func BenchmarkParsePercentParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ParsePercent("87.9%")
		}
	})
}
