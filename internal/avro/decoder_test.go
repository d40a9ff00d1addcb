package avro

import (
	"testing"

	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senacormf/email2kafka-tester-cli/internal/schema"
)

func newTestDecoder(t *testing.T, schemaText string) *Decoder {
	t.Helper()
	doc, err := schema.ParseDocument(schema.TypeAvro, schemaText)
	require.NoError(t, err)
	d, err := NewDecoder(doc.Root)
	require.NoError(t, err)
	return d
}

// encodeWithReference encodes a native value using goavro so the hand-written
// decoder is exercised against a reference implementation.
func encodeWithReference(t *testing.T, schemaText string, native any) []byte {
	t.Helper()
	codec, err := goavro.NewCodec(schemaText)
	require.NoError(t, err)
	encoded, err := codec.BinaryFromNative(nil, native)
	require.NoError(t, err)
	return encoded
}

const mailEventSchema = `{
	"type": "record",
	"name": "MailEvent",
	"fields": [
		{"name": "from", "type": "string"},
		{"name": "subject", "type": ["null", "string"]},
		{"name": "score", "type": "double"},
		{"name": "accepted", "type": "boolean"},
		{"name": "payload", "type": {
			"type": "record",
			"name": "Payload",
			"fields": [
				{"name": "size", "type": "long"},
				{"name": "tags", "type": {"type": "array", "items": "string"}}
			]
		}}
	]
}`

func TestDecode_RoundTrip(t *testing.T) {
	native := map[string]any{
		"from":     "sender@example.com",
		"subject":  map[string]any{"string": "Subject A"},
		"score":    3.25,
		"accepted": true,
		"payload": map[string]any{
			"size": int64(42),
			"tags": []any{"alpha", "beta"},
		},
	}
	encoded := encodeWithReference(t, mailEventSchema, native)

	decoder := newTestDecoder(t, mailEventSchema)
	decoded, err := decoder.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, "sender@example.com", decoded["from"])
	assert.Equal(t, "Subject A", decoded["subject"], "union decodes to the branch value, unwrapped")
	assert.Equal(t, 3.25, decoded["score"])
	assert.Equal(t, true, decoded["accepted"])

	payload, ok := decoded["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(42), payload["size"])
	assert.Equal(t, []any{"alpha", "beta"}, payload["tags"])
}

func TestDecode_UnionNullBranch(t *testing.T) {
	native := map[string]any{
		"from":     "sender@example.com",
		"subject":  nil,
		"score":    0.0,
		"accepted": false,
		"payload":  map[string]any{"size": int64(0), "tags": []any{}},
	}
	encoded := encodeWithReference(t, mailEventSchema, native)

	decoded, err := newTestDecoder(t, mailEventSchema).Decode(encoded)
	require.NoError(t, err)
	assert.Nil(t, decoded["subject"])
}

func TestDecode_ConfluentFramingTolerance(t *testing.T) {
	native := map[string]any{
		"from":     "a@example.com",
		"subject":  map[string]any{"string": "s"},
		"score":    1.5,
		"accepted": true,
		"payload":  map[string]any{"size": int64(1), "tags": []any{"x"}},
	}
	encoded := encodeWithReference(t, mailEventSchema, native)
	framed := append([]byte{0x00, 0xde, 0xad, 0xbe, 0xef}, encoded...)

	decoder := newTestDecoder(t, mailEventSchema)
	plain, err := decoder.Decode(encoded)
	require.NoError(t, err)
	withFrame, err := decoder.Decode(framed)
	require.NoError(t, err)

	assert.Equal(t, plain, withFrame)
}

func TestDecode_NamedTypeReference(t *testing.T) {
	// "Address" is declared once and referenced by name for the second field.
	schemaText := `{
		"type": "record",
		"name": "Envelope",
		"fields": [
			{"name": "home", "type": {
				"type": "record",
				"name": "Address",
				"fields": [{"name": "city", "type": "string"}]
			}},
			{"name": "work", "type": "Address"}
		]
	}`
	native := map[string]any{
		"home": map[string]any{"city": "Berlin"},
		"work": map[string]any{"city": "Hamburg"},
	}
	encoded := encodeWithReference(t, schemaText, native)

	decoded, err := newTestDecoder(t, schemaText).Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": "Hamburg"}, decoded["work"])
}

func TestDecode_RecursiveNamedType(t *testing.T) {
	schemaText := `{
		"type": "record",
		"name": "Node",
		"fields": [
			{"name": "value", "type": "long"},
			{"name": "next", "type": ["null", "Node"]}
		]
	}`
	native := map[string]any{
		"value": int64(1),
		"next": map[string]any{"Node": map[string]any{
			"value": int64(2),
			"next":  nil,
		}},
	}
	encoded := encodeWithReference(t, schemaText, native)

	decoded, err := newTestDecoder(t, schemaText).Decode(encoded)
	require.NoError(t, err)
	next, ok := decoded["next"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(2), next["value"])
	assert.Nil(t, next["next"])
}

func TestDecode_EnumFixedAndMap(t *testing.T) {
	schemaText := `{
		"type": "record",
		"name": "Mixed",
		"fields": [
			{"name": "state", "type": {"type": "enum", "name": "State", "symbols": ["NEW", "DONE"]}},
			{"name": "digest", "type": {"type": "fixed", "name": "Digest", "size": 4}},
			{"name": "labels", "type": {"type": "map", "values": "long"}}
		]
	}`
	native := map[string]any{
		"state":  "DONE",
		"digest": []byte{1, 2, 3, 4},
		"labels": map[string]any{"a": int64(1), "b": int64(2)},
	}
	encoded := encodeWithReference(t, schemaText, native)

	decoded, err := newTestDecoder(t, schemaText).Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "DONE", decoded["state"])
	assert.Equal(t, []byte{1, 2, 3, 4}, decoded["digest"])
	assert.Equal(t, map[string]any{"a": int64(1), "b": int64(2)}, decoded["labels"])
}

func TestDecode_NegativeBlockCountWithByteSize(t *testing.T) {
	// goavro never emits size-prefixed blocks, so craft the encoding by
	// hand: count -2 (zigzag 0x03), block byte size 2 (0x04), items 1 and 2
	// (0x02, 0x04), terminating zero count.
	schemaText := `{
		"type": "record",
		"name": "Longs",
		"fields": [{"name": "values", "type": {"type": "array", "items": "long"}}]
	}`
	payload := []byte{0x03, 0x04, 0x02, 0x04, 0x00}

	decoded, err := newTestDecoder(t, schemaText).Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, decoded["values"])
}

func TestDecode_Errors(t *testing.T) {
	longsSchema := `{
		"type": "record",
		"name": "R",
		"fields": [{"name": "v", "type": "long"}]
	}`
	stringSchema := `{
		"type": "record",
		"name": "R",
		"fields": [{"name": "s", "type": "string"}]
	}`
	enumSchema := `{
		"type": "record",
		"name": "R",
		"fields": [{"name": "e", "type": {"type": "enum", "name": "E", "symbols": ["A", "B"]}}]
	}`
	unionSchema := `{
		"type": "record",
		"name": "R",
		"fields": [{"name": "u", "type": ["null", "long"]}]
	}`
	unknownRefSchema := `{
		"type": "record",
		"name": "R",
		"fields": [{"name": "x", "type": "Mystery"}]
	}`

	tests := []struct {
		name    string
		schema  string
		payload []byte
		message string
	}{
		{"short buffer", longsSchema, []byte{}, "unexpected end"},
		{"trailing bytes", longsSchema, []byte{0x02, 0x00}, "trailing bytes"},
		{"varint too long", longsSchema, []byte{
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		}, "varint is too long"},
		{"invalid utf-8 string", stringSchema, []byte{0x02, 0xff}, "invalid UTF-8"},
		{"enum index out of range", enumSchema, []byte{0x0a}, "enum index out of range"},
		{"union index out of range", unionSchema, []byte{0x0a}, "union index out of range"},
		{"unknown named reference", unknownRefSchema, []byte{0x02}, "unknown avro type reference"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestDecoder(t, tc.schema).Decode(tc.payload)
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Contains(t, decodeErr.Message, tc.message)
		})
	}
}

func TestNewDecoder_RejectsNonObjectRoot(t *testing.T) {
	_, err := NewDecoder("long")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}
