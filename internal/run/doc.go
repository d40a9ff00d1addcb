// Package run orchestrates one validation run: load the configuration and
// the filled template, dispatch the test mails while consuming the topic,
// correlate and validate, and write the results workbook.
package run
