package template

// Sheet names of the generated workbook.
const (
	TestCasesSheet = "TestCases"
	SchemaSheet    = "Schema"
)

// MetadataColumns describe the test case itself.
var MetadataColumns = []string{"ID", "Tags", "Enabled", "Notes"}

// InputColumns drive mail composition.
var InputColumns = []string{"FROM", "SUBJECT", "BODY", "ATTACHMENT"}
