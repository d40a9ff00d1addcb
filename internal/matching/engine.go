package matching

import (
	"sort"

	"github.com/senacormf/email2kafka-tester-cli/internal/schema"
)

// fieldKind is the coarse numeric classification of a schema field used to
// pick the comparison strategy for exact rules.
type fieldKind int

const (
	kindOther fieldKind = iota
	kindFloat
	kindInteger
)

// Evaluate correlates actual events with the enabled expected events and
// validates every expected field value.
//
// Fields are validated in flattened schema order so that mismatch lists,
// and therefore rendered reports, are byte-identical across runs over the
// same inputs.
func Evaluate(cfg Config, fields []schema.FlattenedField, expected []ExpectedEvent, actual []ActualEvent) Result {
	enabled := make([]ExpectedEvent, 0, len(expected))
	for _, e := range expected {
		if e.Enabled {
			enabled = append(enabled, e)
		}
	}

	bySender := make(map[string][]ExpectedEvent)
	for _, e := range enabled {
		key := normalizeSender(e.Sender)
		bySender[key] = append(bySender[key], e)
	}

	kinds := classifyFields(fields)

	var result Result
	matchedIDs := make(map[string]bool)

	for _, act := range actual {
		sender := normalizeSender(act.Flattened[cfg.FromField])
		candidates := bySender[sender]

		switch len(candidates) {
		case 0:
			result.UnmatchedActual = append(result.UnmatchedActual, act)
			continue
		case 1:
			exp := candidates[0]
			matchedIDs[exp.ID] = true
			result.Matches = append(result.Matches, validate(exp, act, fields, kinds))
			continue
		}

		// Sender collision: the observed subject must select exactly one
		// candidate, otherwise the event is a conflict.
		subject := normalizeSubject(act.Flattened[cfg.SubjectField])
		var selected []ExpectedEvent
		for _, c := range candidates {
			if normalizeSubject(c.Subject) == subject {
				selected = append(selected, c)
			}
		}
		if len(selected) == 1 {
			exp := selected[0]
			matchedIDs[exp.ID] = true
			result.Matches = append(result.Matches, validate(exp, act, fields, kinds))
			continue
		}

		// Candidate ids keep expected-event declaration order.
		ids := make([]string, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}
		result.Conflicts = append(result.Conflicts, MatchingConflict{Actual: act, CandidateIDs: ids})
	}

	for _, e := range enabled {
		if !matchedIDs[e.ID] {
			result.UnmatchedExpectedIDs = append(result.UnmatchedExpectedIDs, e.ID)
		}
	}

	return result
}

// validate runs the expectation rules of one expected event against one
// actual event. Every declared expected value is checked, including paths
// outside the flattened schema, which compare as plain strings.
func validate(exp ExpectedEvent, act ActualEvent, fields []schema.FlattenedField, kinds map[string]fieldKind) ValidatedMatch {
	match := ValidatedMatch{Expected: exp, Actual: act}

	for _, path := range declaredPaths(exp.ExpectedValues, fields) {
		raw := exp.ExpectedValues[path]
		actualValue := act.Flattened[path]

		switch rule := ParseRule(raw).(type) {
		case Ignore:
			continue
		case MustBeEmpty:
			if !isEmptyValue(actualValue) {
				match.Mismatches = append(match.Mismatches, FieldMismatch{
					Field:    path,
					Expected: MustBeEmptySentinel,
					Actual:   DisplayValue(actualValue),
				})
			}
		case Tolerance:
			// Tolerance bands exist only for float fields. On every other
			// kind the expression is an ordinary literal value.
			if kinds[path] == kindFloat {
				if matched, applied := tryTolerance(rule.Expression, actualValue); applied {
					if !matched {
						match.Mismatches = append(match.Mismatches, FieldMismatch{
							Field:    path,
							Expected: rule.Expression,
							Actual:   DisplayValue(actualValue),
						})
					}
					continue
				}
			}
			if !valuesEqual(rule.Expression, actualValue, kinds[path]) {
				match.Mismatches = append(match.Mismatches, FieldMismatch{
					Field:    path,
					Expected: rule.Expression,
					Actual:   DisplayValue(actualValue),
				})
			}
		case Exact:
			if !valuesEqual(rule.Value, actualValue, kinds[path]) {
				match.Mismatches = append(match.Mismatches, FieldMismatch{
					Field:    path,
					Expected: DisplayValue(rule.Value),
					Actual:   DisplayValue(actualValue),
				})
			}
		}
	}

	return match
}

// declaredPaths orders an expected-value map for validation: flattened
// schema order first, then any remaining paths sorted so mismatch lists
// stay deterministic.
func declaredPaths(values map[string]any, fields []schema.FlattenedField) []string {
	paths := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, f := range fields {
		if _, ok := values[f.Path]; ok {
			paths = append(paths, f.Path)
			seen[f.Path] = true
		}
	}
	var extra []string
	for path := range values {
		if !seen[path] {
			extra = append(extra, path)
		}
	}
	sort.Strings(extra)
	return append(paths, extra...)
}

// valuesEqual compares an exact expectation against an actual value using
// the field's kind. Numeric kinds compare as exact decimals so that "3,14",
// "3.14", and 3.14 are all the same value; anything unparsable falls back
// to normalized string comparison.
func valuesEqual(expected, actual any, kind fieldKind) bool {
	switch kind {
	case kindFloat, kindInteger:
		expNum, expOK := parseDecimal(expected)
		actNum, actOK := parseDecimal(actual)
		if expOK && actOK {
			return expNum.Equal(actNum)
		}
	}
	return DisplayValue(expected) == DisplayValue(actual)
}

func classifyFields(fields []schema.FlattenedField) map[string]fieldKind {
	kinds := make(map[string]fieldKind, len(fields))
	for _, f := range fields {
		kinds[f.Path] = classifyDefinition(f.Definition)
	}
	return kinds
}

func classifyDefinition(definition any) fieldKind {
	names := extractTypeNames(definition)
	for _, n := range names {
		switch n {
		case "number", "float", "double":
			return kindFloat
		}
	}
	for _, n := range names {
		switch n {
		case "integer", "int", "long":
			return kindInteger
		}
	}
	return kindOther
}

// extractTypeNames collects the declared type names of a field descriptor,
// which may be a bare type-name string, a schema object with a "type" key,
// or a union list mixing both.
func extractTypeNames(definition any) []string {
	switch d := definition.(type) {
	case string:
		return []string{d}
	case []any:
		var names []string
		for _, item := range d {
			names = append(names, extractTypeNames(item)...)
		}
		return names
	case *schema.Object:
		return extractTypeNames(d.Value("type"))
	default:
		return nil
	}
}
