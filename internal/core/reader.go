package core

// reader.go loads a downloaded report into memory as CSV records.
//
// Reports are small (one row per drive or host), so files are read whole.
// Decoding runs through golang.org/x/text transforms:
//
//   - utf-8: a leading BOM is skipped, invalid sequences become U+FFFD
//   - euc-kr: Korean Windows exports (CP949 superset)
//   - auto: utf-8 when the bytes are valid UTF-8, euc-kr otherwise

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names the character encoding of a report file.
type Encoding string

const (
	EncodingUTF8  Encoding = "utf-8"
	EncodingEUCKR Encoding = "euc-kr"
	EncodingAuto  Encoding = "auto"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseEncoding validates an encoding name. Empty means utf-8.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", EncodingUTF8, "utf8":
		return EncodingUTF8, nil
	case EncodingEUCKR, "euckr", "cp949":
		return EncodingEUCKR, nil
	case EncodingAuto:
		return EncodingAuto, nil
	}
	return "", fmt.Errorf("unknown encoding %q (want utf-8, euc-kr or auto)", s)
}

// decoderFor picks the decoder for data under enc.
func decoderFor(enc Encoding, data []byte) transform.Transformer {
	switch enc {
	case EncodingEUCKR:
		return unicode.BOMOverride(korean.EUCKR.NewDecoder())
	case EncodingAuto:
		if !utf8.Valid(bytes.TrimPrefix(data, utf8BOM)) {
			return decoderFor(EncodingEUCKR, data)
		}
	}
	return unicode.BOMOverride(unicode.UTF8.NewDecoder())
}

// ReadCSV reads a report and splits it into its header and data rows.
// Rows may be shorter or longer than the header.
func ReadCSV(path string, opts ReadOptions) (header []string, rows [][]string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &ParseError{Kind: ErrFileUnreadable, Path: path, Detail: err.Error()}
	}

	r := csv.NewReader(transform.NewReader(bytes.NewReader(data), decoderFor(opts.Encoding, data)))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		detail := err.Error()
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			detail = fmt.Sprintf("line %d: %v", pe.Line, pe.Err)
		}
		return nil, nil, &ParseError{Kind: ErrFileUnreadable, Path: path, Detail: detail}
	}

	if len(records) == 0 {
		return nil, nil, SchemaMismatch(path, "empty file")
	}

	return records[0], records[1:], nil
}
