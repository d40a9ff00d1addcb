package matching

// Config names the flattened field paths used to correlate actual events
// with expected events.
type Config struct {
	FromField    string
	SubjectField string
}

// ExpectedEvent is one test case's definition of what should appear on the
// stream: a sender+subject identity plus per-field expected values keyed by
// flattened schema path.
type ExpectedEvent struct {
	ID             string
	Enabled        bool
	Sender         string
	Subject        string
	ExpectedValues map[string]any
}

// ActualEvent is one decoded stream message, reduced to its flattened
// field map. Actual events are consumed exactly once by the engine.
type ActualEvent struct {
	Flattened map[string]any
}

// FieldMismatch records a failed assertion for one field. Both sides carry
// the normalized display representation, never raw values.
type FieldMismatch struct {
	Field    string
	Expected string
	Actual   string
}

// ValidatedMatch pairs one actual event with the expected event it was
// correlated to. An empty mismatch list means the match passed.
type ValidatedMatch struct {
	Expected   ExpectedEvent
	Actual     ActualEvent
	Mismatches []FieldMismatch
}

// Passed reports whether the match produced no mismatches.
func (m ValidatedMatch) Passed() bool {
	return len(m.Mismatches) == 0
}

// MatchingConflict is an actual event that matched two or more senders and
// could not be disambiguated by subject. The full candidate id list is
// retained for diagnostics.
type MatchingConflict struct {
	Actual       ActualEvent
	CandidateIDs []string
}

// Result classifies every expected and actual event into exactly one
// outcome bucket.
//
// Invariants: every actual event lands in exactly one of Matches,
// Conflicts, or UnmatchedActual; every enabled expected event id appears in
// UnmatchedExpectedIDs iff it never appears as the expected side of a
// match. An id may appear both in UnmatchedExpectedIDs and in a conflict's
// candidate list; reconciling that double listing is a rendering concern.
type Result struct {
	Matches              []ValidatedMatch
	Conflicts            []MatchingConflict
	UnmatchedActual      []ActualEvent
	UnmatchedExpectedIDs []string
}
