package form

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/goliatone/go-formrel/pkg/group"
	"github.com/goliatone/go-formrel/pkg/schema"
)

// Payload is the flat submission or load document of a form.
type Payload map[string]any

// ValidationErrors maps field addresses to the reason of their INVALID
// status.
type ValidationErrors map[string]string

// Error renders the failures sorted by address.
func (e ValidationErrors) Error() string {
	keys := make([]string, 0, len(e))
	for key := range e {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e[key])
	}
	return "form: invalid fields: " + strings.Join(parts, ", ")
}

// Validate returns the enabled fields that are currently INVALID, or nil.
func (s *Session) Validate() ValidationErrors {
	var out ValidationErrors
	for _, entry := range s.ordered() {
		sl := entry.slot
		if !sl.enabled || sl.result.OK() {
			continue
		}
		if out == nil {
			out = make(ValidationErrors)
		}
		out[entry.addr.String()] = sl.result.Reason
	}
	return out
}

// Submit builds the outgoing payload. Disabled fields are left out, and each
// group is flattened through its codec in display order. When enabled fields
// are INVALID the payload is still returned together with ValidationErrors.
func (s *Session) Submit() (Payload, error) {
	payload := make(Payload, len(s.schema.Fields))
	for _, field := range s.schema.Fields {
		if !field.IsGroup() {
			sl, ok := s.slots[field.Name]
			if !ok || !sl.enabled {
				continue
			}
			payload[field.Name] = sl.value
			continue
		}

		value, err := s.encodeGroup(field)
		if err != nil {
			return nil, err
		}
		payload[field.Name] = value
	}

	if errs := s.Validate(); errs != nil {
		return payload, errs
	}
	return payload, nil
}

func (s *Session) encodeGroup(field schema.FieldDescriptor) (any, error) {
	mgr := s.groups[field.Name]
	records := make([]map[string]any, 0, mgr.Count())
	for _, inst := range mgr.Instances() {
		record := make(map[string]any, len(inst.Fields))
		for _, child := range inst.Fields {
			sl, ok := s.slots[mgr.Key(inst, child.Name)]
			if !ok || !sl.enabled {
				continue
			}
			record[child.Name] = sl.value
		}
		records = append(records, record)
	}

	value, err := s.codecs[field.Name].Encode(records)
	if err != nil {
		return nil, fmt.Errorf("form: encode group %q: %w", field.Name, err)
	}
	return value, nil
}

// Load applies an existing resource to the session. The schema lift and any
// WithLoadTransform transforms run first. Top-level keys set field values;
// group keys are decoded through the group codec and replace every instance,
// keeping at least the minimum count. Keys absent from the payload leave
// their fields untouched and unknown keys are ignored. A group that fails to
// decode or exceeds its maximum count rejects the whole payload and leaves
// the session unchanged.
func (s *Session) Load(payload map[string]any) error {
	data := clonePayload(payload)
	if lift := s.schema.Load.Lift; lift != nil {
		data = LiftAttributes(lift.From, lift.Fields...)(data)
	}
	for _, transform := range s.transforms {
		data = transform(data)
	}

	decoded := make(map[string][]map[string]any)
	for _, field := range s.schema.Fields {
		if !field.IsGroup() {
			continue
		}
		raw, ok := data[field.Name]
		if !ok {
			continue
		}
		records, err := s.codecs[field.Name].Decode(raw)
		if err != nil {
			return fmt.Errorf("form: decode group %q: %w", field.Name, err)
		}
		if mgr := s.groups[field.Name]; !mgr.CanHold(len(records)) {
			return fmt.Errorf("form: load group %q: %w (%d records, max %d)",
				field.Name, group.ErrMaxCount, len(records), mgr.MaxCount())
		}
		decoded[field.Name] = records
	}

	for _, field := range s.schema.Fields {
		if field.IsGroup() {
			records, ok := decoded[field.Name]
			if !ok {
				continue
			}
			if err := s.loadGroup(field.Name, records); err != nil {
				s.refresh()
				return err
			}
			continue
		}
		value, ok := data[field.Name]
		if !ok {
			continue
		}
		sl := s.slots[field.Name]
		sl.value = value
		sl.serverErrs = nil
	}

	s.formErrors = nil
	s.logger.Debug("form: payload loaded", slog.String("form", s.schema.ID), slog.Int("keys", len(data)))
	s.refresh()
	return nil
}

func (s *Session) loadGroup(name string, records []map[string]any) error {
	mgr := s.groups[name]
	added, err := s.resetGroup(mgr, len(records))
	if err != nil {
		return err
	}
	for idx, inst := range added {
		if idx >= len(records) {
			break
		}
		for key, value := range records[idx] {
			if sl, ok := s.slots[mgr.Key(inst, key)]; ok {
				sl.value = value
			}
		}
	}
	return nil
}

// LiftAttributes returns a transform copying fields found under the nested
// object at key from to the top level, overwriting existing keys. With no
// fields listed every nested key is lifted.
func LiftAttributes(from string, fields ...string) LoadTransform {
	return func(payload map[string]any) map[string]any {
		nested, ok := payload[from].(map[string]any)
		if !ok {
			return payload
		}
		if len(fields) == 0 {
			for key, value := range nested {
				payload[key] = value
			}
			return payload
		}
		for _, key := range fields {
			if value, ok := nested[key]; ok {
				payload[key] = value
			}
		}
		return payload
	}
}

func clonePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = value
	}
	return out
}
