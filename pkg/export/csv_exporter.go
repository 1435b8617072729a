package export

import (
	"bytes"
	"fmt"
	"strings"
)

// byteOrderMark lets spreadsheet tools detect UTF-8 when opening a CSV.
const byteOrderMark = "\ufeff"

// Dataset defines tabular export content. Rows follow the column order of Headers.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// Section is a titled dataset inside a composite report.
type Section struct {
	Title   string
	Dataset Dataset
}

// EscapeField quotes a value only when it contains a comma, a newline or a
// double quote. Embedded quotes are doubled.
func EscapeField(value string) string {
	if !strings.ContainsAny(value, ",\n\"") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// CSVOption customises a CSVExporter.
type CSVOption func(*CSVExporter)

// WithBOM prefixes output with a UTF-8 byte order mark.
func WithBOM() CSVOption {
	return func(e *CSVExporter) { e.bom = true }
}

// CSVExporter renders datasets into comma separated text. Rows are joined
// with "\n" and the output carries no trailing newline.
type CSVExporter struct {
	bom bool
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := e.newBuffer()
	writeTable(buf, data)
	return buf.Bytes(), nil
}

// RenderSections writes each section as a "=== TITLE ===" banner followed by
// its table, with a blank line between sections. Untitled sections get no banner.
func (e *CSVExporter) RenderSections(sections []Section) ([]byte, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("csv requires at least one section")
	}
	buf := e.newBuffer()
	for i, section := range sections {
		if len(section.Dataset.Headers) == 0 {
			return nil, fmt.Errorf("section %q has no headers", section.Title)
		}
		if i > 0 {
			buf.WriteString("\n\n")
		}
		if section.Title != "" {
			fmt.Fprintf(buf, "=== %s ===\n", section.Title)
		}
		writeTable(buf, section.Dataset)
	}
	return buf.Bytes(), nil
}

// RenderText joins free-form report lines using the exporter's encoding rules.
func (e *CSVExporter) RenderText(lines []string) []byte {
	buf := e.newBuffer()
	buf.WriteString(strings.Join(lines, "\n"))
	return buf.Bytes()
}

func (e *CSVExporter) newBuffer() *bytes.Buffer {
	buf := &bytes.Buffer{}
	if e.bom {
		buf.WriteString(byteOrderMark)
	}
	return buf
}

func writeTable(buf *bytes.Buffer, data Dataset) {
	writeRecord(buf, data.Headers)
	for _, row := range data.Rows {
		buf.WriteByte('\n')
		writeRecord(buf, row)
	}
}

func writeRecord(buf *bytes.Buffer, record []string) {
	for i, field := range record {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(EscapeField(field))
	}
}
