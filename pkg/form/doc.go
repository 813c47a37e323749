// Package form implements the form session that owns a FormState: it seeds
// defaults from a schema, runs validators and relation rules to a fixpoint
// after every change, manages repeated group instances, applies option lists
// supplied by external sources, and marshals submission and load payloads
// through group codecs.
//
// A Session is not safe for concurrent use. Every mutation runs to
// completion before the next one, matching the single event loop of a form.
package form
