package form

import (
	"sort"
	"strings"
)

// ErrorMapping splits a backend error payload into field-level messages
// keyed by dotted address and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

var formLevelKeys = map[string]struct{}{
	"":                 {},
	"_":                {},
	"__all__":          {},
	"form":             {},
	"non_field_errors": {},
	"errors":           {},
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
}

// ApplyServerErrors attaches backend validation messages to fields. Paths
// may use dots, slashes, JSON pointers or brackets, and may be wrapped in
// body/data/attributes segments. Group children are addressed as
// `group.index.child`. Paths that match no field, including group-level
// paths, become form-level messages. Previously applied server errors are
// replaced.
func (s *Session) ApplyServerErrors(payload map[string][]string) ErrorMapping {
	for _, sl := range s.slots {
		sl.serverErrs = nil
	}
	s.formErrors = nil

	mapping := ErrorMapping{Fields: make(map[string][]string)}
	known := make(map[string]*slot, len(s.slots))
	for _, entry := range s.ordered() {
		known[entry.addr.String()] = entry.slot
	}

	paths := make([]string, 0, len(payload))
	for rawPath := range payload {
		paths = append(paths, rawPath)
	}
	sort.Strings(paths)

	for _, rawPath := range paths {
		normalized := normalizeMessages(payload[rawPath])
		if len(normalized) == 0 {
			continue
		}
		addr := mapErrorPath(rawPath, known)
		if addr == "" {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[addr] = append(mapping.Fields[addr], normalized...)
	}

	for addr, messages := range mapping.Fields {
		messages = normalizeMessages(messages)
		mapping.Fields[addr] = messages
		known[addr].serverErrs = append([]string(nil), messages...)
	}
	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	s.formErrors = append([]string(nil), mapping.Form...)
	return mapping
}

// FormErrors returns the form-level messages of the last ApplyServerErrors.
func (s *Session) FormErrors() []string {
	return append([]string(nil), s.formErrors...)
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapErrorPath(raw string, known map[string]*slot) string {
	trimmed := strings.TrimSpace(raw)
	if _, ok := formLevelKeys[strings.ToLower(trimmed)]; ok {
		return ""
	}
	segments := pathSegments(trimmed)
	if len(segments) == 0 {
		return ""
	}

	best := longestMatch(segments, known)
	if alt := longestMatch(dropWrappers(segments), known); len(alt) > len(best) {
		best = alt
	}
	return best
}

func pathSegments(path string) []string {
	clean := strings.TrimLeft(strings.TrimSpace(path), "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrappers(segments []string) []string {
	out := segments
	for len(out) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

// longestMatch returns the longest known address formed by a prefix of
// segments, so `int_name.0` still lands on `int_name`.
func longestMatch(segments []string, known map[string]*slot) string {
	for end := len(segments); end > 0; end-- {
		candidate := strings.Join(segments[:end], ".")
		if _, ok := known[candidate]; ok {
			return candidate
		}
	}
	return ""
}
