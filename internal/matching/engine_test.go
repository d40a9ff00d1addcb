package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senacormf/email2kafka-tester-cli/internal/schema"
)

var testConfig = Config{FromField: "from", SubjectField: "subject"}

func testFields() []schema.FlattenedField {
	return []schema.FlattenedField{
		{Path: "from", Definition: "string"},
		{Path: "subject", Definition: "string"},
		{Path: "score", Definition: "double"},
		{Path: "count", Definition: "long"},
		{Path: "note", Definition: "string"},
	}
}

func actualEvent(fields map[string]any) ActualEvent {
	return ActualEvent{Flattened: fields}
}

func TestEvaluate_SingleSenderMatch(t *testing.T) {
	expected := []ExpectedEvent{{
		ID:      "tc-1",
		Enabled: true,
		Sender:  "Alice <alice@example.com>",
		Subject: "Order",
		ExpectedValues: map[string]any{
			"score": "3,14+-0,2",
			"count": "7",
			"note":  "MUSS_LEER_SEIN",
		},
	}}
	actual := []ActualEvent{actualEvent(map[string]any{
		"from":    "alice <alice@example.com>",
		"subject": "Order",
		"score":   3.30,
		"count":   int64(7),
		"note":    nil,
	})}

	result := Evaluate(testConfig, testFields(), expected, actual)
	require.Len(t, result.Matches, 1)
	assert.True(t, result.Matches[0].Passed())
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.UnmatchedActual)
	assert.Empty(t, result.UnmatchedExpectedIDs)
}

func TestEvaluate_ToleranceBoundary(t *testing.T) {
	expected := []ExpectedEvent{{
		ID:             "tc-1",
		Enabled:        true,
		Sender:         "a@example.com",
		Subject:        "S",
		ExpectedValues: map[string]any{"score": "3,14+-0,2"},
	}}

	pass := Evaluate(testConfig, testFields(), expected, []ActualEvent{
		actualEvent(map[string]any{"from": "a@example.com", "score": 3.30}),
	})
	require.Len(t, pass.Matches, 1)
	assert.True(t, pass.Matches[0].Passed())

	fail := Evaluate(testConfig, testFields(), expected, []ActualEvent{
		actualEvent(map[string]any{"from": "a@example.com", "score": 3.50}),
	})
	require.Len(t, fail.Matches, 1)
	require.Len(t, fail.Matches[0].Mismatches, 1)
	mismatch := fail.Matches[0].Mismatches[0]
	assert.Equal(t, "score", mismatch.Field)
	assert.Equal(t, "3,14+-0,2", mismatch.Expected)
	assert.Equal(t, "3.5", mismatch.Actual)
}

func TestEvaluate_SenderCollisionDisambiguatedBySubject(t *testing.T) {
	expected := []ExpectedEvent{
		{ID: "tc-a", Enabled: true, Sender: "shared@example.com", Subject: "Subject A"},
		{ID: "tc-b", Enabled: true, Sender: "shared@example.com", Subject: "Subject B"},
	}
	actual := []ActualEvent{
		actualEvent(map[string]any{"from": "shared@example.com", "subject": "Subject B"}),
		actualEvent(map[string]any{"from": "shared@example.com", "subject": "Subject A"}),
	}

	result := Evaluate(testConfig, testFields(), expected, actual)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, "tc-b", result.Matches[0].Expected.ID)
	assert.Equal(t, "tc-a", result.Matches[1].Expected.ID)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.UnmatchedExpectedIDs)
}

func TestEvaluate_TrueAmbiguityBecomesConflict(t *testing.T) {
	expected := []ExpectedEvent{
		{ID: "tc-a", Enabled: true, Sender: "shared@example.com", Subject: "Subject A"},
		{ID: "tc-b", Enabled: true, Sender: "shared@example.com", Subject: "Subject B"},
	}
	actual := []ActualEvent{
		actualEvent(map[string]any{"from": "shared@example.com", "subject": "Neither"}),
	}

	result := Evaluate(testConfig, testFields(), expected, actual)
	assert.Empty(t, result.Matches)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, []string{"tc-a", "tc-b"}, result.Conflicts[0].CandidateIDs)
	assert.Empty(t, result.UnmatchedActual, "a conflicted event is not also unmatched")
	// Both candidates remain unmatched on the expected side.
	assert.Equal(t, []string{"tc-a", "tc-b"}, result.UnmatchedExpectedIDs)
}

func TestEvaluate_UnknownSenderIsUnmatched(t *testing.T) {
	expected := []ExpectedEvent{
		{ID: "tc-1", Enabled: true, Sender: "known@example.com", Subject: "S"},
	}
	actual := []ActualEvent{
		actualEvent(map[string]any{"from": "stranger@example.com", "subject": "S"}),
	}

	result := Evaluate(testConfig, testFields(), expected, actual)
	assert.Empty(t, result.Matches)
	require.Len(t, result.UnmatchedActual, 1)
	assert.Equal(t, []string{"tc-1"}, result.UnmatchedExpectedIDs)
}

func TestEvaluate_DisabledExpectedIsInvisible(t *testing.T) {
	expected := []ExpectedEvent{
		{ID: "tc-off", Enabled: false, Sender: "a@example.com", Subject: "S"},
	}
	actual := []ActualEvent{
		actualEvent(map[string]any{"from": "a@example.com", "subject": "S"}),
	}

	result := Evaluate(testConfig, testFields(), expected, actual)
	assert.Empty(t, result.Matches)
	assert.Len(t, result.UnmatchedActual, 1)
	assert.Empty(t, result.UnmatchedExpectedIDs, "disabled cases never count as missing")
}

func TestEvaluate_EveryActualInExactlyOneBucket(t *testing.T) {
	expected := []ExpectedEvent{
		{ID: "tc-1", Enabled: true, Sender: "one@example.com", Subject: "S"},
		{ID: "tc-2", Enabled: true, Sender: "dup@example.com", Subject: "X"},
		{ID: "tc-3", Enabled: true, Sender: "dup@example.com", Subject: "Y"},
	}
	actual := []ActualEvent{
		actualEvent(map[string]any{"from": "one@example.com", "subject": "S"}),
		actualEvent(map[string]any{"from": "dup@example.com", "subject": "Z"}),
		actualEvent(map[string]any{"from": "nobody@example.com", "subject": "S"}),
	}

	result := Evaluate(testConfig, testFields(), expected, actual)
	total := len(result.Matches) + len(result.Conflicts) + len(result.UnmatchedActual)
	assert.Equal(t, len(actual), total)
	assert.Len(t, result.Matches, 1)
	assert.Len(t, result.Conflicts, 1)
	assert.Len(t, result.UnmatchedActual, 1)
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	expected := []ExpectedEvent{{
		ID:      "tc-1",
		Enabled: true,
		Sender:  "a@example.com",
		Subject: "S",
		ExpectedValues: map[string]any{
			"score": "1.0",
			"count": "2",
			"note":  "expected text",
		},
	}}
	actual := []ActualEvent{actualEvent(map[string]any{
		"from":  "a@example.com",
		"score": 9.9,
		"count": int64(3),
		"note":  "other text",
	})}

	first := Evaluate(testConfig, testFields(), expected, actual)
	for i := 0; i < 10; i++ {
		again := Evaluate(testConfig, testFields(), expected, actual)
		assert.Equal(t, first, again)
	}

	// Mismatches follow flattened schema order, not map order.
	require.Len(t, first.Matches, 1)
	fields := make([]string, 0, 3)
	for _, m := range first.Matches[0].Mismatches {
		fields = append(fields, m.Field)
	}
	assert.Equal(t, []string{"score", "count", "note"}, fields)
}

func TestEvaluate_ExactNumericEqualityAcrossLocales(t *testing.T) {
	expected := []ExpectedEvent{{
		ID:      "tc-1",
		Enabled: true,
		Sender:  "a@example.com",
		Subject: "S",
		ExpectedValues: map[string]any{
			"score": "3,14",
			"count": "1.000,0",
		},
	}}
	actual := []ActualEvent{actualEvent(map[string]any{
		"from":  "a@example.com",
		"score": 3.14,
		"count": int64(1000),
	})}

	result := Evaluate(testConfig, testFields(), expected, actual)
	require.Len(t, result.Matches, 1)
	assert.True(t, result.Matches[0].Passed(), "locale spellings of the same number are equal")
}

func TestEvaluate_ToleranceGrammarOnlyOnFloatFields(t *testing.T) {
	// "2024-12" matches the lower-bound grammar but note is a string
	// field, so identical strings must simply be equal.
	equalStrings := Evaluate(testConfig, testFields(), []ExpectedEvent{{
		ID:             "tc-1",
		Enabled:        true,
		Sender:         "a@example.com",
		Subject:        "S",
		ExpectedValues: map[string]any{"note": "2024-12"},
	}}, []ActualEvent{
		actualEvent(map[string]any{"from": "a@example.com", "note": "2024-12"}),
	})
	require.Len(t, equalStrings.Matches, 1)
	assert.Empty(t, equalStrings.Matches[0].Mismatches)

	// An integer field gets no tolerance band: "10-2" is a literal, not
	// "at least 8", so an actual of 9 is a mismatch.
	integerField := Evaluate(testConfig, testFields(), []ExpectedEvent{{
		ID:             "tc-2",
		Enabled:        true,
		Sender:         "a@example.com",
		Subject:        "S",
		ExpectedValues: map[string]any{"count": "10-2"},
	}}, []ActualEvent{
		actualEvent(map[string]any{"from": "a@example.com", "count": int64(9)}),
	})
	require.Len(t, integerField.Matches, 1)
	require.Len(t, integerField.Matches[0].Mismatches, 1)
	mismatch := integerField.Matches[0].Mismatches[0]
	assert.Equal(t, "count", mismatch.Field)
	assert.Equal(t, "10-2", mismatch.Expected)
	assert.Equal(t, "9", mismatch.Actual)

	// A float field whose actual value is non-numeric falls back to
	// string equality against the raw expression.
	nonNumericActual := Evaluate(testConfig, testFields(), []ExpectedEvent{{
		ID:             "tc-3",
		Enabled:        true,
		Sender:         "a@example.com",
		Subject:        "S",
		ExpectedValues: map[string]any{"score": "3,14+-0,2"},
	}}, []ActualEvent{
		actualEvent(map[string]any{"from": "a@example.com", "score": "3,14+-0,2"}),
	})
	require.Len(t, nonNumericActual.Matches, 1)
	assert.Empty(t, nonNumericActual.Matches[0].Mismatches)
}

func TestEvaluate_ConflictCandidatesKeepDeclarationOrder(t *testing.T) {
	expected := []ExpectedEvent{
		{ID: "tc-z", Enabled: true, Sender: "shared@example.com", Subject: "Subject Z"},
		{ID: "tc-a", Enabled: true, Sender: "shared@example.com", Subject: "Subject A"},
	}
	actual := []ActualEvent{
		actualEvent(map[string]any{"from": "shared@example.com", "subject": "Neither"}),
	}

	result := Evaluate(testConfig, testFields(), expected, actual)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, []string{"tc-z", "tc-a"}, result.Conflicts[0].CandidateIDs)
}

func TestEvaluate_ExpectedValueOutsideSchemaIsValidated(t *testing.T) {
	expected := []ExpectedEvent{{
		ID:      "tc-1",
		Enabled: true,
		Sender:  "a@example.com",
		Subject: "S",
		ExpectedValues: map[string]any{
			"note":       "hello",
			"undeclared": "present",
		},
	}}
	actual := []ActualEvent{actualEvent(map[string]any{
		"from": "a@example.com",
		"note": "hello",
	})}

	result := Evaluate(testConfig, testFields(), expected, actual)
	require.Len(t, result.Matches, 1)
	require.Len(t, result.Matches[0].Mismatches, 1)
	mismatch := result.Matches[0].Mismatches[0]
	assert.Equal(t, "undeclared", mismatch.Field)
	assert.Equal(t, "present", mismatch.Expected)
	assert.Equal(t, "", mismatch.Actual)
}

func TestEvaluate_MustBeEmptyViolation(t *testing.T) {
	expected := []ExpectedEvent{{
		ID:             "tc-1",
		Enabled:        true,
		Sender:         "a@example.com",
		Subject:        "S",
		ExpectedValues: map[string]any{"note": "MUSS_LEER_SEIN"},
	}}
	actual := []ActualEvent{actualEvent(map[string]any{
		"from": "a@example.com",
		"note": "surprise",
	})}

	result := Evaluate(testConfig, testFields(), expected, actual)
	require.Len(t, result.Matches, 1)
	require.Len(t, result.Matches[0].Mismatches, 1)
	assert.Equal(t, "MUSS_LEER_SEIN", result.Matches[0].Mismatches[0].Expected)
	assert.Equal(t, "surprise", result.Matches[0].Mismatches[0].Actual)
}

func TestDisplayValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"true", true, "true"},
		{"false", false, "false"},
		{"trimmed string", "  hi  ", "hi"},
		{"int", int64(42), "42"},
		{"float", 3.5, "3.5"},
		{"map sorted keys", map[string]any{"b": 1.0, "a": 2.0}, `{"a":2,"b":1}`},
		{"slice", []any{"x", 1.0}, `["x",1]`},
		{"no html escaping", map[string]any{"u": "<&>"}, `{"u":"<&>"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DisplayValue(tc.value))
		})
	}
}
