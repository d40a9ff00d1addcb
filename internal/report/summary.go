package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/senacormf/email2kafka-tester-cli/internal/mail"
	"github.com/senacormf/email2kafka-tester-cli/internal/matching"
	"github.com/senacormf/email2kafka-tester-cli/internal/template"
)

// RenderSummary builds the console table shown after a run: one line per
// test case plus the run counters.
func RenderSummary(cases []template.TestCase, result matching.Result, sendStatus map[string]mail.SendStatus) string {
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

	tw := table.NewWriter()
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"ID", "Status", "Details"})
	for _, tc := range cases {
		status, details := summarizeCase(tc, matchesByID[tc.ID], sendStatus[tc.ID], conflictIDs, unmatchedIDs)
		tw.AppendRow(table.Row{tc.ID, status, details})
	}

	counts := calculateRunCounts(cases, result, sendStatus)
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf(
		"matched %d, passed %d, failed %d, not found %d, conflicts %d",
		counts.matched, counts.passed, counts.failed, counts.notFound, counts.conflicts,
	)})
	return tw.Render()
}

func summarizeCase(
	tc template.TestCase,
	matches []matching.ValidatedMatch,
	sendStatus mail.SendStatus,
	conflictIDs, unmatchedIDs map[string]bool,
) (string, string) {
	if len(matches) > 0 {
		mismatched := 0
		for _, m := range matches {
			if !m.Passed() {
				mismatched++
			}
		}
		if mismatched == 0 {
			details := ""
			if len(matches) > 1 {
				details = fmt.Sprintf("%d observations", len(matches))
			}
			return string(StatusOK), details
		}
		return "FAILED", fmt.Sprintf("mismatched fields: %s", mismatchedFields(matches))
	}

	status := resolveUnmatchedStatus(tc, sendStatus, conflictIDs, unmatchedIDs)
	switch status {
	case StatusSendFailed:
		return string(status), "mail could not be sent"
	case StatusSkipped:
		return string(status), "case disabled or not dispatched"
	case StatusConflict:
		return string(status), "observed event matched several cases"
	default:
		return string(status), "no event observed within the window"
	}
}

func mismatchedFields(matches []matching.ValidatedMatch) string {
	seen := make(map[string]bool)
	var fields []string
	for _, m := range matches {
		for _, mismatch := range m.Mismatches {
			if !seen[mismatch.Field] {
				seen[mismatch.Field] = true
				fields = append(fields, mismatch.Field)
			}
		}
	}
	return strings.Join(fields, ", ")
}
