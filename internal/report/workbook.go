package report

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/senacormf/email2kafka-tester-cli/internal/mail"
	"github.com/senacormf/email2kafka-tester-cli/internal/matching"
	"github.com/senacormf/email2kafka-tester-cli/internal/schema"
	"github.com/senacormf/email2kafka-tester-cli/internal/template"
)

const runInfoSheet = "RunInfo"

type sheetLayout struct {
	fieldPaths        []string
	originalColumns   int
	actualStartColumn int
	matchColumn       int
}

// WriteResultsWorkbook re-opens the filled template and writes the run
// output workbook: Actual columns mirroring the Expected ones, a Match
// column, and refreshed Schema and RunInfo sheets.
func WriteResultsWorkbook(
	templatePath, outputPath string,
	schemaType schema.Type, schemaText string,
	fields []schema.FlattenedField,
	cases []template.TestCase,
	result matching.Result,
	meta RunMetadata,
	sendStatus map[string]mail.SendStatus,
) error {
	layout := buildLayout(fields)

	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return errorf("failed to open template workbook: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetList()[0]
	for _, name := range f.GetSheetList() {
		if name == template.TestCasesSheet {
			sheet = name
			break
		}
	}

	if err := ensureHeaderPrefix(f, sheet, layout); err != nil {
		return err
	}
	if err := writeActualAndMatchHeaders(f, sheet, layout); err != nil {
		return err
	}
	if err := writeCaseRows(f, sheet, layout, cases, result, sendStatus); err != nil {
		return err
	}
	if err := rewriteSchemaSheet(f, schemaType, schemaText); err != nil {
		return err
	}
	if err := writeRunInfoSheet(f, meta, cases, result, sendStatus); err != nil {
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errorf("failed to create output directory: %v", err)
		}
	}
	if err := f.SaveAs(outputPath); err != nil {
		return errorf("failed to save results workbook: %v", err)
	}
	return nil
}

func buildLayout(fields []schema.FlattenedField) sheetLayout {
	paths := make([]string, 0, len(fields))
	for _, f := range fields {
		paths = append(paths, f.Path)
	}
	originalColumns := len(template.MetadataColumns) + len(template.InputColumns) + len(paths)
	return sheetLayout{
		fieldPaths:        paths,
		originalColumns:   originalColumns,
		actualStartColumn: originalColumns + 1,
		matchColumn:       originalColumns + 1 + len(paths),
	}
}

func ensureHeaderPrefix(f *excelize.File, sheet string, layout sheetLayout) error {
	want := make([]string, 0, layout.originalColumns)
	want = append(want, template.MetadataColumns...)
	want = append(want, template.InputColumns...)
	want = append(want, layout.fieldPaths...)

	for i, name := range want {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return errorf("failed to address header cell: %v", err)
		}
		value, err := f.GetCellValue(sheet, cell)
		if err != nil {
			return errorf("failed to read header cell: %v", err)
		}
		if strings.TrimSpace(value) != name {
			return errorf("template columns do not match expected schema-derived columns")
		}
	}
	return nil
}

func writeActualAndMatchHeaders(f *excelize.File, sheet string, layout sheetLayout) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return errorf("failed to create header style: %v", err)
	}

	if len(layout.fieldPaths) > 0 {
		startCell, err := excelize.CoordinatesToCellName(layout.actualStartColumn, 1)
		if err != nil {
			return errorf("failed to address actual header: %v", err)
		}
		endCell, err := excelize.CoordinatesToCellName(layout.matchColumn-1, 1)
		if err != nil {
			return errorf("failed to address actual header: %v", err)
		}
		if err := f.MergeCell(sheet, startCell, endCell); err != nil {
			return errorf("failed to merge actual header: %v", err)
		}
		if err := f.SetCellValue(sheet, startCell, "Actual"); err != nil {
			return errorf("failed to write actual header: %v", err)
		}
		if err := f.SetCellStyle(sheet, startCell, endCell, style); err != nil {
			return errorf("failed to style actual header: %v", err)
		}
	}

	matchHeader, err := excelize.CoordinatesToCellName(layout.matchColumn, 1)
	if err != nil {
		return errorf("failed to address match header: %v", err)
	}
	if err := f.SetCellValue(sheet, matchHeader, "Match"); err != nil {
		return errorf("failed to write match header: %v", err)
	}
	if err := f.SetCellStyle(sheet, matchHeader, matchHeader, style); err != nil {
		return errorf("failed to style match header: %v", err)
	}

	for i, path := range layout.fieldPaths {
		column := layout.actualStartColumn + i
		cell, err := excelize.CoordinatesToCellName(column, 2)
		if err != nil {
			return errorf("failed to address actual column: %v", err)
		}
		if err := f.SetCellValue(sheet, cell, path); err != nil {
			return errorf("failed to write actual column header: %v", err)
		}
		colName, err := excelize.ColumnNumberToName(column)
		if err != nil {
			return errorf("failed to address actual column: %v", err)
		}
		if err := f.SetColWidth(sheet, colName, colName, columnWidth(path)); err != nil {
			return errorf("failed to size actual column: %v", err)
		}
	}

	matchCell, err := excelize.CoordinatesToCellName(layout.matchColumn, 2)
	if err != nil {
		return errorf("failed to address match column: %v", err)
	}
	if err := f.SetCellValue(sheet, matchCell, "Match"); err != nil {
		return errorf("failed to write match column header: %v", err)
	}
	matchColName, err := excelize.ColumnNumberToName(layout.matchColumn)
	if err != nil {
		return errorf("failed to address match column: %v", err)
	}
	if err := f.SetColWidth(sheet, matchColName, matchColName, 50); err != nil {
		return errorf("failed to size match column: %v", err)
	}
	return nil
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

func writeCaseRows(
	f *excelize.File, sheet string, layout sheetLayout,
	cases []template.TestCase,
	result matching.Result,
	sendStatus map[string]mail.SendStatus,
) error {
	matchesByID := make(map[string][]matching.ValidatedMatch)
	for _, m := range result.Matches {
		matchesByID[m.Expected.ID] = append(matchesByID[m.Expected.ID], m)
	}
	conflictIDs := make(map[string]bool)
	for _, conflict := range result.Conflicts {
		for _, id := range conflict.CandidateIDs {
			conflictIDs[id] = true
		}
	}
	unmatchedIDs := make(map[string]bool)
	for _, id := range result.UnmatchedExpectedIDs {
		unmatchedIDs[id] = true
	}

	ordered := make([]template.TestCase, len(cases))
	copy(ordered, cases)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RowNumber < ordered[j].RowNumber
	})

	rowsAdded := 0
	for _, tc := range ordered {
		baseRow := tc.RowNumber + rowsAdded
		matches := matchesByID[tc.ID]

		// One workbook row per observation of the same case.
		for i := 1; i < len(matches); i++ {
			if err := f.DuplicateRowTo(sheet, baseRow, baseRow+i); err != nil {
				return errorf("failed to duplicate result row: %v", err)
			}
			rowsAdded++
		}

		if len(matches) == 0 {
			status := resolveUnmatchedStatus(tc, sendStatus[tc.ID], conflictIDs, unmatchedIDs)
			cell, err := excelize.CoordinatesToCellName(layout.matchColumn, baseRow)
			if err != nil {
				return errorf("failed to address match cell: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, string(status)); err != nil {
				return errorf("failed to write match cell: %v", err)
			}
			continue
		}

		for i, m := range matches {
			row := baseRow + i
			for j, path := range layout.fieldPaths {
				cell, err := excelize.CoordinatesToCellName(layout.actualStartColumn+j, row)
				if err != nil {
					return errorf("failed to address actual cell: %v", err)
				}
				if err := f.SetCellValue(sheet, cell, normalizeOutputValue(m.Actual.Flattened[path])); err != nil {
					return errorf("failed to write actual cell: %v", err)
				}
			}
			cell, err := excelize.CoordinatesToCellName(layout.matchColumn, row)
			if err != nil {
				return errorf("failed to address match cell: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, formatMismatches(m.Mismatches)); err != nil {
				return errorf("failed to write match cell: %v", err)
			}
		}
	}
	return nil
}

// resolveUnmatchedStatus ranks the outcome of a case with no observation:
// send failures and skips win over matching outcomes, and a conflicted id
// renders CONFLICT rather than NOT_FOUND.
func resolveUnmatchedStatus(tc template.TestCase, status mail.SendStatus, conflictIDs, unmatchedIDs map[string]bool) MatchStatus {
	switch {
	case status == mail.StatusFailed:
		return StatusSendFailed
	case status == mail.StatusSkipped || !tc.Enabled:
		return StatusSkipped
	case conflictIDs[tc.ID]:
		return StatusConflict
	default:
		return StatusNotFound
	}
}

// normalizeOutputValue makes composite values cell-safe: maps and slices
// render as compact JSON with sorted keys, scalars keep their type.
func normalizeOutputValue(value any) any {
	switch v := value.(type) {
	case map[string]any, []any:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Sprintf("%v", v)
		}
		return strings.TrimRight(buf.String(), "\n")
	case []byte:
		return string(v)
	default:
		return value
	}
}

func formatMismatches(mismatches []matching.FieldMismatch) string {
	if len(mismatches) == 0 {
		return string(StatusOK)
	}
	blocks := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		blocks = append(blocks, fmt.Sprintf("expected: %s\nactual: %s", m.Expected, m.Actual))
	}
	return strings.Join(blocks, "\n")
}

func rewriteSchemaSheet(f *excelize.File, schemaType schema.Type, schemaText string) error {
	if index, err := f.GetSheetIndex(template.SchemaSheet); err == nil && index >= 0 {
		if err := f.DeleteSheet(template.SchemaSheet); err != nil {
			return errorf("failed to reset schema sheet: %v", err)
		}
	}
	if _, err := f.NewSheet(template.SchemaSheet); err != nil {
		return errorf("failed to create schema sheet: %v", err)
	}

	hash := sha256.Sum256([]byte(schemaText))
	entries := [][2]string{
		{"schema_type", string(schemaType)},
		{"schema_hash", hex.EncodeToString(hash[:])},
		{"schema_text", schemaText},
	}
	return writeKeyValueSheet(f, template.SchemaSheet, entries)
}

func writeRunInfoSheet(
	f *excelize.File,
	meta RunMetadata,
	cases []template.TestCase,
	result matching.Result,
	sendStatus map[string]mail.SendStatus,
) error {
	if index, err := f.GetSheetIndex(runInfoSheet); err == nil && index >= 0 {
		if err := f.DeleteSheet(runInfoSheet); err != nil {
			return errorf("failed to reset run info sheet: %v", err)
		}
	}
	if _, err := f.NewSheet(runInfoSheet); err != nil {
		return errorf("failed to create run info sheet: %v", err)
	}

	counts := calculateRunCounts(cases, result, sendStatus)
	entries := [][2]string{
		{"run_start", meta.RunStart.Format("2006-01-02T15:04:05.000000Z07:00")},
		{"input_path", meta.InputPath},
		{"output_path", meta.OutputPath},
		{"kafka_topic", meta.KafkaTopic},
		{"timeout_seconds", fmt.Sprintf("%d", int(meta.Timeout.Seconds()))},
		{"total", fmt.Sprintf("%d", len(cases))},
		{"enabled", fmt.Sprintf("%d", counts.enabled)},
		{"sent_ok", fmt.Sprintf("%d", meta.SentOK)},
		{"matched", fmt.Sprintf("%d", counts.matched)},
		{"passed", fmt.Sprintf("%d", counts.passed)},
		{"failed", fmt.Sprintf("%d", counts.failed)},
		{"not_found", fmt.Sprintf("%d", counts.notFound)},
		{"conflicts", fmt.Sprintf("%d", counts.conflicts)},
	}
	return writeKeyValueSheet(f, runInfoSheet, entries)
}

func writeKeyValueSheet(f *excelize.File, sheet string, entries [][2]string) error {
	for row, entry := range entries {
		keyCell, err := excelize.CoordinatesToCellName(1, row+1)
		if err != nil {
			return errorf("failed to address %s sheet: %v", sheet, err)
		}
		valueCell, err := excelize.CoordinatesToCellName(2, row+1)
		if err != nil {
			return errorf("failed to address %s sheet: %v", sheet, err)
		}
		if err := f.SetCellValue(sheet, keyCell, entry[0]); err != nil {
			return errorf("failed to write %s sheet: %v", sheet, err)
		}
		if err := f.SetCellValue(sheet, valueCell, entry[1]); err != nil {
			return errorf("failed to write %s sheet: %v", sheet, err)
		}
	}
	return nil
}

type runCounts struct {
	enabled   int
	matched   int
	passed    int
	failed    int
	notFound  int
	conflicts int
}

func calculateRunCounts(cases []template.TestCase, result matching.Result, sendStatus map[string]mail.SendStatus) runCounts {
	counts := runCounts{
		matched:   len(result.Matches),
		conflicts: len(result.Conflicts),
	}
	for _, tc := range cases {
		if tc.Enabled {
			counts.enabled++
		}
	}
	for _, m := range result.Matches {
		if m.Passed() {
			counts.passed++
		} else {
			counts.failed++
		}
	}

	skippedIDs := make(map[string]bool)
	for id, status := range sendStatus {
		switch status {
		case mail.StatusFailed:
			counts.failed++
		case mail.StatusSkipped:
			skippedIDs[id] = true
		}
	}

	conflictIDs := make(map[string]bool)
	for _, conflict := range result.Conflicts {
		for _, id := range conflict.CandidateIDs {
			conflictIDs[id] = true
		}
	}
	for _, id := range result.UnmatchedExpectedIDs {
		if !conflictIDs[id] && !skippedIDs[id] {
			counts.notFound++
		}
	}
	return counts
}
