package template

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/senacormf/email2kafka-tester-cli/internal/schema"
)

// GenerateWorkbook writes the empty test-case template for a schema.
//
// Row 1 carries merged group headers (Metadata, Input, Expected), row 2
// the column names; test cases start at row 3.
func GenerateWorkbook(schemaType schema.Type, schemaText string, fields []schema.FlattenedField, outputPath string) error {
	if len(fields) == 0 {
		return validationErrorf("expected fields list must not be empty")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), TestCasesSheet); err != nil {
		return validationErrorf("failed to prepare workbook: %v", err)
	}

	columns := allColumns(fields)
	if err := writeGroupHeaders(f, len(fields)); err != nil {
		return err
	}
	for i, name := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return validationErrorf("failed to address column %d: %v", i+1, err)
		}
		if err := f.SetCellValue(TestCasesSheet, cell, name); err != nil {
			return validationErrorf("failed to write column header %s: %v", name, err)
		}
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return validationErrorf("failed to address column %d: %v", i+1, err)
		}
		if err := f.SetColWidth(TestCasesSheet, colName, colName, columnWidth(name)); err != nil {
			return validationErrorf("failed to size column %s: %v", name, err)
		}
	}

	if err := writeSchemaSheet(f, schemaType, schemaText); err != nil {
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return validationErrorf("failed to create output directory: %v", err)
		}
	}
	if err := f.SaveAs(outputPath); err != nil {
		return validationErrorf("failed to save template workbook: %v", err)
	}
	return nil
}

func allColumns(fields []schema.FlattenedField) []string {
	columns := make([]string, 0, len(MetadataColumns)+len(InputColumns)+len(fields))
	columns = append(columns, MetadataColumns...)
	columns = append(columns, InputColumns...)
	for _, field := range fields {
		columns = append(columns, field.Path)
	}
	return columns
}

func columnWidth(name string) float64 {
	width := float64(len(name) + 6)
	if width < 12 {
		width = 12
	}
	if width > 40 {
		width = 40
	}
	return width
}

func writeGroupHeaders(f *excelize.File, expectedCount int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return validationErrorf("failed to create header style: %v", err)
	}

	groups := []struct {
		label string
		start int
		count int
	}{
		{"Metadata", 1, len(MetadataColumns)},
		{"Input", len(MetadataColumns) + 1, len(InputColumns)},
		{"Expected", len(MetadataColumns) + len(InputColumns) + 1, expectedCount},
	}
	for _, g := range groups {
		startCell, err := excelize.CoordinatesToCellName(g.start, 1)
		if err != nil {
			return validationErrorf("failed to address group header: %v", err)
		}
		endCell, err := excelize.CoordinatesToCellName(g.start+g.count-1, 1)
		if err != nil {
			return validationErrorf("failed to address group header: %v", err)
		}
		if err := f.MergeCell(TestCasesSheet, startCell, endCell); err != nil {
			return validationErrorf("failed to merge group header cells: %v", err)
		}
		if err := f.SetCellValue(TestCasesSheet, startCell, g.label); err != nil {
			return validationErrorf("failed to write group header %s: %v", g.label, err)
		}
		if err := f.SetCellStyle(TestCasesSheet, startCell, endCell, style); err != nil {
			return validationErrorf("failed to style group header %s: %v", g.label, err)
		}
	}
	return nil
}

func writeSchemaSheet(f *excelize.File, schemaType schema.Type, schemaText string) error {
	if _, err := f.NewSheet(SchemaSheet); err != nil {
		return validationErrorf("failed to create schema sheet: %v", err)
	}

	hash := sha256.Sum256([]byte(schemaText))
	entries := []struct {
		key   string
		value string
	}{
		{"schema_type", string(schemaType)},
		{"schema_hash", hex.EncodeToString(hash[:])},
		{"schema_text", schemaText},
	}
	for row, entry := range entries {
		keyCell, err := excelize.CoordinatesToCellName(1, row+1)
		if err != nil {
			return validationErrorf("failed to address schema sheet: %v", err)
		}
		valueCell, err := excelize.CoordinatesToCellName(2, row+1)
		if err != nil {
			return validationErrorf("failed to address schema sheet: %v", err)
		}
		if err := f.SetCellValue(SchemaSheet, keyCell, entry.key); err != nil {
			return validationErrorf("failed to write schema sheet: %v", err)
		}
		if err := f.SetCellValue(SchemaSheet, valueCell, entry.value); err != nil {
			return validationErrorf("failed to write schema sheet: %v", err)
		}
	}
	return nil
}
