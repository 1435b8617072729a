package export

import (
	"fmt"
	"strings"
)

// Format enumerates supported artifact encodings.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatXLSX  Format = "xlsx"
	FormatPDF   Format = "pdf"
)

// ParseFormat normalises user input, defaulting to CSV when empty.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatExcel, FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// Extension returns the filename extension. The Excel variant is a CSV with a BOM.
func (f Format) Extension() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatPDF:
		return "pdf"
	default:
		return "csv"
	}
}

// ContentType returns the MIME type for downloads.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Renderer dispatches sections to the encoder matching a format.
type Renderer struct {
	csv   *CSVExporter
	excel *CSVExporter
	xlsx  *XLSXExporter
	pdf   *PDFExporter
}

// RendererOption customises a Renderer.
type RendererOption func(*Renderer)

// WithoutExcelBOM makes the Excel variant identical to plain CSV.
func WithoutExcelBOM() RendererOption {
	return func(r *Renderer) { r.excel = NewCSVExporter() }
}

// NewRenderer wires the default encoders.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		csv:   NewCSVExporter(),
		excel: NewCSVExporter(WithBOM()),
		xlsx:  NewXLSXExporter(),
		pdf:   NewPDFExporter(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render encodes sections in the requested format.
func (r *Renderer) Render(format Format, title string, sections []Section) ([]byte, error) {
	switch format {
	case FormatCSV:
		return r.csv.RenderSections(sections)
	case FormatExcel:
		return r.excel.RenderSections(sections)
	case FormatXLSX:
		return r.xlsx.RenderSections(sections)
	case FormatPDF:
		return r.pdf.RenderSections(sections, title)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// RenderText encodes free-form lines. Only the delimited-text formats carry
// plain text, so tabular formats wrap each line as a single-column row.
func (r *Renderer) RenderText(format Format, title string, lines []string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return r.csv.RenderText(lines), nil
	case FormatExcel:
		return r.excel.RenderText(lines), nil
	default:
		rows := make([][]string, 0, len(lines))
		for _, line := range lines {
			rows = append(rows, []string{line})
		}
		return r.Render(format, title, []Section{{Dataset: Dataset{Headers: []string{title}, Rows: rows}}})
	}
}
