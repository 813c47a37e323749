package form

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/goliatone/go-formrel/pkg/schema"
	"github.com/goliatone/go-formrel/pkg/validation"
)

// OptionSources lists the distinct optionsSource names declared by select
// fields, group children included, sorted.
func (s *Session) OptionSources() []string {
	seen := make(map[string]struct{})
	var walk func(fields []schema.FieldDescriptor)
	walk = func(fields []schema.FieldDescriptor) {
		for _, field := range fields {
			if field.OptionsSource != "" {
				seen[field.OptionsSource] = struct{}{}
			}
			walk(field.Children)
		}
	}
	walk(s.schema.Fields)

	out := make([]string, 0, len(seen))
	for source := range seen {
		out = append(out, source)
	}
	sort.Strings(out)
	return out
}

// SetOptions replaces the choices of a select field. name is either a
// top-level field or `group.child`; for a group child the template and every
// live instance are updated.
func (s *Session) SetOptions(name string, options []schema.Option) error {
	groupName, child, inGroup := strings.Cut(name, ".")
	if !inGroup {
		for idx := range s.schema.Fields {
			field := &s.schema.Fields[idx]
			if field.Name != name || field.IsGroup() {
				continue
			}
			field.Options = cloneOptions(options)
			if sl, ok := s.slots[name]; ok {
				s.applyOptions(sl, options)
			}
			s.refresh()
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	if !s.setChildOptions(groupName, child, options) {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	s.refresh()
	return nil
}

// SetSourceOptions applies options to every select declaring source and
// returns how many descriptors were updated.
func (s *Session) SetSourceOptions(source string, options []schema.Option) int {
	updated := 0
	for idx := range s.schema.Fields {
		field := &s.schema.Fields[idx]
		if field.IsGroup() {
			for _, child := range field.Children {
				if child.OptionsSource == source && s.setChildOptions(field.Name, child.Name, options) {
					updated++
				}
			}
			continue
		}
		if field.OptionsSource != source {
			continue
		}
		field.Options = cloneOptions(options)
		if sl, ok := s.slots[field.Name]; ok {
			s.applyOptions(sl, options)
		}
		updated++
	}

	s.logger.Debug("form: options applied",
		slog.String("source", source),
		slog.Int("options", len(options)),
		slog.Int("fields", updated),
	)
	if updated > 0 {
		s.refresh()
	}
	return updated
}

func (s *Session) setChildOptions(groupName, child string, options []schema.Option) bool {
	mgr, ok := s.groups[groupName]
	if !ok {
		return false
	}

	found := false
	for idx := range s.schema.Fields {
		field := &s.schema.Fields[idx]
		if field.Name != groupName {
			continue
		}
		for cidx := range field.Children {
			if field.Children[cidx].Name == child {
				field.Children[cidx].Options = cloneOptions(options)
				found = true
			}
		}
		if found {
			mgr.SetTemplate(field.Children)
		}
	}
	if !found {
		return false
	}

	mgr.Update(func(fields []schema.FieldDescriptor) {
		for idx := range fields {
			if fields[idx].Name == child {
				fields[idx].Options = cloneOptions(options)
			}
		}
	})
	for _, inst := range mgr.Instances() {
		if sl, ok := s.slots[mgr.Key(inst, child)]; ok {
			s.applyOptions(sl, options)
		}
	}
	return true
}

// applyOptions stores the choices on a live field and seeds the first one
// when the field is still empty and may not stay empty.
func (s *Session) applyOptions(sl *slot, options []schema.Option) {
	sl.desc.Options = cloneOptions(options)
	if sl.desc.AllowEmpty || len(options) == 0 {
		return
	}
	if validation.Empty(sl.value) {
		sl.value = options[0].Value
	}
}

func cloneOptions(options []schema.Option) []schema.Option {
	if options == nil {
		return nil
	}
	out := make([]schema.Option, len(options))
	copy(out, options)
	return out
}
