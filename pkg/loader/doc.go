// Package loader parses JSON/YAML form schema documents into schema.Schema
// values. It compiles compact `when` relation expressions, sanitises tooltip
// markup, runs structural validation, and bundles the built-in forms so
// callers can start from EmbeddedFS without shipping files alongside the
// binary.
package loader
