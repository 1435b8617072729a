package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet      = "Sheet1"
	maxSheetNameChars = 31
)

// XLSXExporter renders each section onto its own worksheet.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// RenderSections writes one sheet per section with a bold header row.
func (e *XLSXExporter) RenderSections(sections []Section) ([]byte, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one section")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	used := make(map[string]int, len(sections))
	for i, section := range sections {
		if len(section.Dataset.Headers) == 0 {
			return nil, fmt.Errorf("xlsx section %q has no headers", section.Title)
		}
		name := uniqueSheetName(sheetName(section.Title, i), used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, section.Dataset, headerStyle); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, data Dataset, headerStyle int) error {
	if err := setRow(f, sheet, 1, data.Headers); err != nil {
		return err
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(data.Headers), 1)
	if err != nil {
		return fmt.Errorf("resolve header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}
	for i, row := range data.Rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(data.Headers))
	if err != nil {
		return fmt.Errorf("resolve column name: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("resolve cell: %w", err)
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

func sheetName(title string, index int) string {
	if strings.TrimSpace(title) == "" {
		if index == 0 {
			return "Report"
		}
		return fmt.Sprintf("Section %d", index+1)
	}
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if len([]rune(name)) > maxSheetNameChars {
		name = string([]rune(name)[:maxSheetNameChars])
	}
	return name
}

func uniqueSheetName(name string, used map[string]int) string {
	key := strings.ToLower(name)
	used[key]++
	if used[key] == 1 {
		return name
	}
	suffix := fmt.Sprintf(" (%d)", used[key])
	runes := []rune(name)
	if len(runes)+len(suffix) > maxSheetNameChars {
		runes = runes[:maxSheetNameChars-len(suffix)]
	}
	return string(runes) + suffix
}
