// Package template generates and ingests the Excel test-case workbook.
//
// The workbook layout is fixed: a TestCases sheet with grouped Metadata,
// Input, and Expected columns (one Expected column per flattened schema
// path), plus a Schema sheet embedding the schema text and its hash so a
// filled template can be checked against the configuration it was
// generated from.
package template
