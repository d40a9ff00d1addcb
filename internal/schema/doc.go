// Package schema parses event schema documents and flattens them into
// ordered dotted field paths.
//
// Two schema dialects are supported:
//   - "avsc": Avro schema JSON (record/fields)
//   - "json_schema": JSON Schema (object/properties)
//
// Both dialects flatten to the same path list for logically equivalent
// shapes, so the rest of the system never needs to know which dialect the
// operator configured. Flattening is deterministic: depth-first, in
// declaration order, which is why parsing goes through Object (an
// order-preserving JSON object) instead of map[string]any.
package schema
