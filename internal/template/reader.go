package template

import (
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/senacormf/email2kafka-tester-cli/internal/schema"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// ReadWorkbook ingests a filled template and returns its normalized test
// cases.
//
// The workbook must carry the exact column layout generated for the
// configured schema. Test ids must be unique, and two enabled cases may
// not share a FROM/SUBJECT pair: that combination is what correlates
// observed events back to cases.
func ReadWorkbook(path string, fields []schema.FlattenedField) ([]TestCase, error) {
	if len(fields) == 0 {
		return nil, validationErrorf("expected fields list must not be empty")
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, validationErrorf("template file not found: %s", path)
	}
	defer f.Close()

	sheet := f.GetSheetList()[0]
	for _, name := range f.GetSheetList() {
		if name == TestCasesSheet {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, validationErrorf("failed to read template sheet: %v", err)
	}

	columns := allColumns(fields)
	if err := validateLayout(rows, columns, len(fields)); err != nil {
		return nil, err
	}

	return parseRows(rows, columns, fields)
}

func validateLayout(rows [][]string, columns []string, expectedCount int) error {
	if expectedCount == 0 {
		return validationErrorf("expected fields list must not be empty")
	}
	if len(rows) < 2 {
		return validationErrorf("template missing required group headers")
	}

	groupRow := rows[0]
	metadataLabel := cellAt(groupRow, 0)
	inputLabel := cellAt(groupRow, len(MetadataColumns))
	expectedLabel := cellAt(groupRow, len(MetadataColumns)+len(InputColumns))
	if metadataLabel != "Metadata" || inputLabel != "Input" || expectedLabel != "Expected" {
		return validationErrorf("template missing required group headers")
	}

	headerRow := rows[1]
	for i, want := range columns {
		if cellAt(headerRow, i) != want {
			return validationErrorf("template columns do not match the configured schema")
		}
	}
	for i := len(columns); i < len(headerRow); i++ {
		if strings.TrimSpace(headerRow[i]) != "" {
			return validationErrorf("template contains unexpected additional columns")
		}
	}
	return nil
}

func parseRows(rows [][]string, columns []string, fields []schema.FlattenedField) ([]TestCase, error) {
	var cases []TestCase
	seenIDs := make(map[string]bool)
	seenPairs := make(map[[2]string]int)

	for idx := 2; idx < len(rows); idx++ {
		row := rows[idx]
		rowNumber := idx + 1
		if rowIsEmpty(row, len(columns)) {
			continue
		}

		tc, err := buildTestCase(rowNumber, row, fields)
		if err != nil {
			return nil, err
		}

		if seenIDs[tc.ID] {
			return nil, validationErrorf("duplicate ID %q detected (row %d)", tc.ID, rowNumber)
		}
		seenIDs[tc.ID] = true

		if tc.Enabled {
			pair := [2]string{strings.ToLower(tc.From), strings.TrimSpace(tc.Subject)}
			if previous, ok := seenPairs[pair]; ok {
				return nil, validationErrorf("duplicate FROM/SUBJECT combination detected for rows %d and %d", previous, rowNumber)
			}
			seenPairs[pair] = rowNumber
		}

		cases = append(cases, tc)
	}

	if len(cases) == 0 {
		return nil, validationErrorf("template does not contain any testcase rows")
	}
	return cases, nil
}

func buildTestCase(rowNumber int, row []string, fields []schema.FlattenedField) (TestCase, error) {
	column := func(index int) string { return cellAt(row, index) }
	inputOffset := len(MetadataColumns)
	expectedOffset := inputOffset + len(InputColumns)

	id, err := requireText(column(0), "ID", rowNumber)
	if err != nil {
		return TestCase{}, err
	}
	enabled, err := parseBool(column(2))
	if err != nil {
		return TestCase{}, validationErrorf("row %d: %v", rowNumber, err)
	}
	from, err := requireText(column(inputOffset), "FROM", rowNumber)
	if err != nil {
		return TestCase{}, err
	}
	if !emailPattern.MatchString(from) {
		return TestCase{}, validationErrorf("row %d: invalid FROM address %q", rowNumber, from)
	}
	subject, err := requireText(column(inputOffset+1), "SUBJECT", rowNumber)
	if err != nil {
		return TestCase{}, err
	}

	expectedValues := make(map[string]any, len(fields))
	for i, field := range fields {
		expectedValues[field.Path] = column(expectedOffset + i)
	}

	return TestCase{
		RowNumber:      rowNumber,
		ID:             id,
		Tags:           parseTags(column(1)),
		Enabled:        enabled,
		Notes:          column(3),
		From:           from,
		Subject:        subject,
		Body:           column(inputOffset + 2),
		Attachment:     column(inputOffset + 3),
		ExpectedValues: expectedValues,
	}, nil
}

func parseTags(value string) []string {
	var tags []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, validationErrorf("unable to interpret boolean value: %q", value)
	}
}

func requireText(value, columnName string, rowNumber int) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", validationErrorf("row %d: column %q is required", rowNumber, columnName)
	}
	return trimmed, nil
}

func rowIsEmpty(row []string, columnCount int) bool {
	for i := 0; i < columnCount && i < len(row); i++ {
		if strings.TrimSpace(row[i]) != "" {
			return false
		}
	}
	return true
}

func cellAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}
