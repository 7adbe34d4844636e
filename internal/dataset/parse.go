package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Options controls parsing of delimited text.
type Options struct {
	// Delimiter for CSV. If 0, sniffs among ',', ';', '\t', '|'.
	Delimiter rune
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// ParseError reports an unreadable upload.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	ErrEmpty    = errors.New("no data: file is empty")
	ErrNoHeader = errors.New("no columns found in header row")
	ErrNotUTF8  = errors.New("file is not UTF-8 encoded text")
)

// Parse reads a header row plus data rows and infers a kind per column.
func Parse(name string, r io.Reader, opt Options) (*Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read upload: %w", err)}
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ParseError{Err: ErrEmpty}
	}
	if line := invalidUTF8Line(raw); line > 0 {
		return nil, &ParseError{Line: line, Err: ErrNotUTF8}
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(raw)
	}
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Err: ErrEmpty}
		}
		return nil, &ParseError{Line: 1, Err: fmt.Errorf("read header: %w", err)}
	}
	names := normalizeHeader(header)
	if len(names) == 0 {
		return nil, &ParseError{Line: 1, Err: ErrNoHeader}
	}
	ncol := len(names)

	ds := &Dataset{
		Name:               name,
		Columns:            make([]Column, ncol),
		DecimalSeparator:   opt.DecimalSeparator,
		ThousandsSeparator: opt.ThousandsSeparator,
	}
	for i, n := range names {
		ds.Columns[i] = Column{Name: n}
	}
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	for rows := 0; rows < maxRows; {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var line int
			var ce *csv.ParseError
			if errors.As(err, &ce) {
				line = ce.Line
			}
			return nil, &ParseError{Line: line, Err: err}
		}
		if isBlankRecord(rec) {
			continue
		}
		for j := 0; j < ncol; j++ {
			v := ""
			if j < len(rec) {
				v = rec[j]
			}
			ds.Columns[j].Values = append(ds.Columns[j].Values, v)
		}
		rows++
	}
	for i := range ds.Columns {
		ds.Columns[i].Kind = inferKind(ds.Columns[i].Values, opt.DecimalSeparator, opt.ThousandsSeparator)
	}
	ds.bindLocale()
	return ds, nil
}

// invalidUTF8Line returns the 1-based line holding the first invalid UTF-8
// sequence, or 0 when raw is valid.
func invalidUTF8Line(raw []byte) int {
	if utf8.Valid(raw) {
		return 0
	}
	line := 1
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && size == 1 {
			return line
		}
		if r == '\n' {
			line++
		}
		i += size
	}
	return line
}

// normalizeHeader trims names, fills blanks and de-duplicates. A header
// made only of blank cells yields no columns.
func normalizeHeader(header []string) []string {
	allBlank := true
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			allBlank = false
			break
		}
	}
	if allBlank {
		return nil
	}
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		n := strings.TrimSpace(h)
		if n == "" {
			n = fmt.Sprintf("column_%d", i+1)
		}
		base := n
		for seen[n] > 0 {
			seen[base]++
			n = fmt.Sprintf("%s_%d", base, seen[base])
		}
		seen[n]++
		out[i] = n
	}
	return out
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// inferKind decides the kind by predominant parsed type.
func inferKind(values []string, dec, thou rune) Kind {
	var numCnt, dtCnt, txtCnt, catCnt int
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		if _, ok := parseNumeric(v, dec, thou); ok {
			numCnt++
			continue
		}
		if _, ok := parseTimeMaybe(v); ok {
			dtCnt++
			continue
		}
		txtCnt++
		// treat short tokens as categories
		if len(v) <= 64 {
			catCnt++
		}
	}
	switch {
	case numCnt > 0 && numCnt >= dtCnt && numCnt >= txtCnt:
		return KindNumeric
	case dtCnt > 0 && dtCnt >= txtCnt:
		return KindDatetime
	case catCnt > 0 && catCnt*2 >= txtCnt:
		return KindCategorical
	case txtCnt > 0:
		return KindText
	}
	return KindUnknown
}

// sniffDelimiter picks the candidate that appears most often in the header
// line, ignoring quoted sections. Defaults to comma.
func sniffDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	counts := map[rune]int{}
	inQuote := false
	for _, r := range string(line) {
		if r == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch r {
		case ',', ';', '\t', '|':
			counts[r]++
		}
	}
	best, bestN := ',', 0
	for _, r := range []rune{',', ';', '\t', '|'} {
		if counts[r] > bestN {
			best, bestN = r, counts[r]
		}
	}
	return best
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric parses s honoring the given separators; zero separators are
// auto-detected from the value itself.
// thousandsGroup reports whether the text after a lone comma is exactly
// three digits, as in "1,234".
func thousandsGroup(tail string) bool {
	if len(tail) != 3 {
		return false
	}
	for _, c := range tail {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parseNumeric(s string, dec, thou rune) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case strings.Count(raw, ",") > 1 && dpos < 0:
			dec, thou = '.', ','
		case strings.Count(raw, ".") > 1 && cpos < 0:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos < 0 && thousandsGroup(raw[cpos+1:]):
			dec, thou = '.', ','
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
