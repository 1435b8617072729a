package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestEscapeField(t *testing.T) {
	cases := map[string]string{
		"plain":        "plain",
		"":             "",
		"a,b":          `"a,b"`,
		"line\nbreak":  "\"line\nbreak\"",
		`say "hi"`:     `"say ""hi"""`,
		" padded ":     " padded ",
		"tab\tinside":  "tab\tinside",
		"a,b\"c\nd":    "\"a,b\"\"c\nd\"",
		"carriage\rok": "carriage\rok",
	}
	for in, want := range cases {
		assert.Equal(t, want, EscapeField(in), "input %q", in)
	}
}

func TestEscapeFieldRoundTrip(t *testing.T) {
	original := "a,b\"c\nd"
	line := EscapeField(original) + "," + EscapeField("next")

	reader := csv.NewReader(strings.NewReader(line))
	record, err := reader.Read()
	require.NoError(t, err)
	require.Len(t, record, 2)
	assert.Equal(t, original, record[0])
	assert.Equal(t, "next", record[1])
}

func TestCSVRenderJoinsWithoutTrailingNewline(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Name", "Note"},
		Rows:    [][]string{{"Alpha", "x,y"}, {"Beta", ""}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Name,Note\nAlpha,\"x,y\"\nBeta,", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestCSVRenderWithBOM(t *testing.T) {
	out, err := NewCSVExporter(WithBOM()).Render(Dataset{Headers: []string{"A"}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}))
	assert.Equal(t, "A", string(out[3:]))
}

func TestCSVRenderSections(t *testing.T) {
	out, err := NewCSVExporter().RenderSections([]Section{
		{Title: "ANALYTICS SUMMARY", Dataset: Dataset{Headers: []string{"Metric", "Value"}, Rows: [][]string{{"Total Requests", "3"}}}},
		{Title: "MONTHLY TRENDS", Dataset: Dataset{Headers: []string{"Month", "Total Requests"}, Rows: [][]string{{"Jan", "1"}}}},
	})
	require.NoError(t, err)

	want := "=== ANALYTICS SUMMARY ===\nMetric,Value\nTotal Requests,3\n\n=== MONTHLY TRENDS ===\nMonth,Total Requests\nJan,1"
	assert.Equal(t, want, string(out))
}

func TestRendererFormats(t *testing.T) {
	sections := []Section{
		{Title: "SUMMARY", Dataset: Dataset{Headers: []string{"Metric", "Value"}, Rows: [][]string{{"Fill Rate (%)", "67"}}}},
		{Title: "SUMMARY", Dataset: Dataset{Headers: []string{"Organization"}, Rows: [][]string{{"Café Lycée"}}}},
	}
	r := NewRenderer()

	pdf, err := r.Render(FormatPDF, "Analytics", sections)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	xlsx, err := r.Render(FormatXLSX, "Analytics", sections)
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(xlsx))
	require.NoError(t, err)
	defer book.Close() //nolint:errcheck
	assert.Equal(t, []string{"SUMMARY", "SUMMARY (2)"}, book.GetSheetList())
	rows, err := book.GetRows("SUMMARY (2)")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Organization"}, {"Café Lycée"}}, rows)

	excel, err := r.Render(FormatExcel, "", sections[:1])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(excel, []byte(byteOrderMark)))

	plain, err := NewRenderer(WithoutExcelBOM()).Render(FormatExcel, "", sections[:1])
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(plain, []byte(byteOrderMark)))
}

func TestRendererTextFallsBackToSingleColumn(t *testing.T) {
	r := NewRenderer()
	text, err := r.RenderText(FormatCSV, "Summary", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a\nb", string(text))

	xlsx, err := r.RenderText(FormatXLSX, "Summary", []string{"a", "b"})
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(xlsx))
	require.NoError(t, err)
	defer book.Close() //nolint:errcheck
	rows, err := book.GetRows("Report")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Summary"}, {"a"}, {"b"}}, rows)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", f.Extension())
	assert.Equal(t, "csv", FormatExcel.Extension())

	_, err = ParseFormat("docx")
	require.Error(t, err)
}
