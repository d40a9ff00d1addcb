// Package matching correlates expected events (derived from test cases)
// with actual events observed on the stream and validates expected field
// values against what was observed.
//
// Correlation uses a sender+subject protocol: actual events are grouped to
// expected events by normalized sender, and sender collisions are
// disambiguated by subject. An actual event that matches several senders
// and no unique subject becomes a MatchingConflict - a first-class result,
// never an error.
//
// Per-field validation runs a small expectation-rule language: ignore,
// must-be-empty, exact, and numeric tolerance bands with locale-aware
// decimal parsing ("3,14" and "3.14" are the same number).
package matching
