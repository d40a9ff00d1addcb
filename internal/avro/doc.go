// Package avro decodes Avro binary payloads against a parsed ".avsc"
// schema, without a schema registry client.
//
// Confluent wire framing (magic byte 0x00 + 4-byte schema id) is stripped
// when present; the registry is never contacted because the run's schema is
// already pinned in configuration. Named types (record/enum/fixed referenced
// by name) are resolved through a registry built by a single pre-pass over
// the schema, so decoding never re-walks the schema per message.
package avro
