// Package report renders run results: the results workbook written next
// to the filled template, and the console summary table.
//
// The workbook is the filled template re-opened and extended with Actual
// columns, a Match column, a refreshed Schema sheet, and a RunInfo sheet
// with run-level counters. A test case observed more than once gets one
// row per observation.
package report
