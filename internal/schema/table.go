package schema

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Table is an untyped delimited file: a header row followed by data rows of
// the same width.
type Table struct {
	Header []string
	Rows   [][]string
	Lines  []int // source line of each row; nil when the table was built in memory
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.Header) }

// Column returns the values of column i across all rows.
func (t *Table) Column(i int) []string {
	col := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		col = append(col, row[i])
	}
	return col
}

// Line returns the 1-based source line of row i. Tables built in memory
// are assumed to have no blank lines.
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// Name returns the header name of column i, or "" when i is out of range.
func (t *Table) Name(i int) string {
	if i < 0 || i >= len(t.Header) {
		return ""
	}
	return t.Header[i]
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTable reads a delimited file. A zero delimiter is sniffed from the
// header line.
func ReadTable(r io.Reader, delimiter rune) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if delimiter == 0 {
		delimiter = SniffDelimiter(data)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delimiter
	cr.TrimLeadingSpace = true

	t := &Table{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading table: %w", err)
		}
		if t.Header == nil {
			t.Header = make([]string, len(record))
			for i, h := range record {
				t.Header[i] = strings.TrimSpace(h)
			}
			continue
		}
		line, _ := cr.FieldPos(0)
		t.Rows = append(t.Rows, record)
		t.Lines = append(t.Lines, line)
	}
	return t, nil
}

// SniffDelimiter picks the most frequent of comma, semicolon and tab in the
// first line. Commas win ties.
func SniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
