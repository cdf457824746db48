// Package ingest turns uploaded sales and funnel files into normalized records.
// Rows missing a required field are counted as rejected, never returned.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyFile         = errors.New("file has no data rows")
	ErrMissingColumns    = errors.New("missing required columns")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

type File struct {
	Name string
	Data []byte
}

type Report struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

func (r Report) Add(other Report) Report {
	return Report{Accepted: r.Accepted + other.Accepted, Rejected: r.Rejected + other.Rejected}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// table is a header row plus data rows, with headers looked up by a key function.
type table struct {
	columns   map[string]int
	rows      [][]string
	malformed int
}

func newTable(header []string, rows [][]string, malformed int, key func(string) string) table {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		k := key(name)
		if _, exists := columns[k]; !exists {
			columns[k] = i
		}
	}
	return table{columns: columns, rows: rows, malformed: malformed}
}

func (t table) missing(required ...string) []string {
	var out []string
	for _, name := range required {
		if _, ok := t.columns[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func (t table) value(row []string, column string) string {
	index, ok := t.columns[column]
	if !ok || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// readDelimited reads CSV text separated by ';', or ',' when the header line
// has no semicolon. Rows the reader cannot parse are counted as malformed.
func readDelimited(data []byte) ([]string, [][]string, int, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	firstLine := data
	if end := bytes.IndexByte(data, '\n'); end >= 0 {
		firstLine = data[:end]
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = ','
	if bytes.IndexByte(firstLine, ';') >= 0 {
		reader.Comma = ';'
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, 0, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, 0, err
	}

	var rows [][]string
	malformed := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				malformed++
				continue
			}
			return nil, nil, 0, err
		}
		if blankRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	return header, rows, malformed, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// parseDate accepts the supported layouts and keeps the UTC calendar day.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return truncateDay(parsed), true
		}
	}
	return time.Time{}, false
}

func truncateDay(value time.Time) time.Time {
	year, month, day := value.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// parseNumber reads amounts written with either ',' or '.' as the decimal
// separator. Unreadable values count as zero.
func parseNumber(raw string) float64 {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "R$")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return 0
	}

	comma := strings.LastIndexByte(cleaned, ',')
	dot := strings.LastIndexByte(cleaned, '.')
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case comma >= 0:
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

func parseQuantity(raw string) int {
	raw = strings.TrimSpace(raw)
	if quantity, err := strconv.Atoi(raw); err == nil {
		return quantity
	}
	return int(parseNumber(raw))
}
