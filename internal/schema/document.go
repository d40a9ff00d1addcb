package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type identifies the schema dialect of a document.
type Type string

const (
	// TypeAvro is the Avro schema dialect ("avsc").
	TypeAvro Type = "avsc"

	// TypeJSONSchema is the JSON Schema dialect ("json_schema").
	TypeJSONSchema Type = "json_schema"
)

// Document is the parsed representation of a schema definition.
//
// Root holds the decoded JSON tree: *Object for objects, []any for arrays,
// and string/float64/bool/nil for scalars.
type Document struct {
	Type Type
	Root any
}

// FlattenedField is one dotted field path with its raw type descriptor.
// The descriptor is either a type-name string, an *Object schema node, or
// a []any union, exactly as it appeared in the source document.
type FlattenedField struct {
	Path       string
	Definition any
}

// Error represents a schema parsing or flattening failure. Schema errors
// are fatal to a run and are surfaced before any dispatch or consumption
// begins.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Object is a JSON object that preserves key declaration order.
//
// encoding/json's map[string]any loses key order, but flattening must walk
// "properties" in declaration order to keep path lists deterministic.
type Object struct {
	keys   []string
	values map[string]any
}

// Get returns the value for key and whether it is present.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Value returns the value for key, or nil when absent.
func (o *Object) Value(key string) any {
	return o.values[key]
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Keys returns the keys in declaration order.
func (o *Object) Keys() []string {
	return o.keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// ParseDocument parses schema text into a structured document.
func ParseDocument(typ Type, text string) (Document, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	root, err := decodeOrderedValue(dec)
	if err != nil {
		return Document{}, errorf("invalid %s schema: %v", typ, err)
	}
	if dec.More() {
		return Document{}, errorf("invalid %s schema: trailing data after document", typ)
	}
	return Document{Type: typ, Root: root}, nil
}

func decodeOrderedValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeOrderedToken(dec, tok)
}

func decodeOrderedToken(dec *json.Decoder, tok json.Token) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeOrderedObject(dec)
		case '[':
			return decodeOrderedArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t.String())
		}
	default:
		// string, float64, bool, or nil.
		return t, nil
	}
}

func decodeOrderedObject(dec *json.Decoder) (*Object, error) {
	obj := &Object{values: make(map[string]any)}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return obj, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %v", tok)
		}
		value, err := decodeOrderedValue(dec)
		if err != nil {
			return nil, err
		}
		if _, exists := obj.values[key]; !exists {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = value
	}
}

func decodeOrderedArray(dec *json.Decoder) ([]any, error) {
	items := []any{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			return items, nil
		}
		value, err := decodeOrderedToken(dec, tok)
		if err != nil {
			return nil, err
		}
		items = append(items, value)
	}
}
