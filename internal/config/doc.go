// Package config loads and validates the YAML run configuration.
//
// Loading is strict: every section is validated up front, the embedded or
// referenced event schema is parsed and flattened, and the matching field
// paths are checked against the flattened schema. A run never starts with a
// half-valid configuration.
package config
