package alias

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formrel/pkg/schema"
	"github.com/goliatone/go-formrel/pkg/validation"
)

// ErrUnsupportedValue is returned when a wire value is not a list of strings.
var ErrUnsupportedValue = errors.New("alias: unsupported wire value")

// RoleKey is the child metadata key that assigns a field to an entry slot.
const RoleKey = "alias.role"

const (
	RoleV4Address = "v4address"
	RoleV4Prefix  = "v4prefix"
	RoleV6Address = "v6address"
	RoleV6Prefix  = "v6prefix"
)

// FieldNames maps entry slots onto the child field names of a group.
type FieldNames struct {
	V4Address string
	V4Prefix  string
	V6Address string
	V6Prefix  string
}

// Codec converts between a group's per-instance records and the canonical
// string list sent on the wire.
type Codec struct {
	fields FieldNames
}

// NewCodec builds a codec for the given field names.
func NewCodec(fields FieldNames) Codec {
	return Codec{fields: fields}
}

// CodecFromTemplate derives field names from a group template. Children may
// declare their slot through the `alias.role` metadata key; otherwise the
// first four children are taken in v4address, v4prefix, v6address, v6prefix
// order.
func CodecFromTemplate(children []schema.FieldDescriptor) (Codec, error) {
	var names FieldNames
	slots := map[string]*string{
		RoleV4Address: &names.V4Address,
		RoleV4Prefix:  &names.V4Prefix,
		RoleV6Address: &names.V6Address,
		RoleV6Prefix:  &names.V6Prefix,
	}

	tagged := 0
	for _, child := range children {
		role := child.Metadata[RoleKey]
		if role == "" {
			continue
		}
		slot, ok := slots[role]
		if !ok {
			return Codec{}, fmt.Errorf("alias: child %q declares unknown role %q", child.Name, role)
		}
		*slot = child.Name
		tagged++
	}

	if tagged == 0 {
		if len(children) < 4 {
			return Codec{}, fmt.Errorf("alias: group template needs 4 children, got %d", len(children))
		}
		names = FieldNames{
			V4Address: children[0].Name,
			V4Prefix:  children[1].Name,
			V6Address: children[2].Name,
			V6Prefix:  children[3].Name,
		}
	}

	for role, slot := range slots {
		if *slot == "" {
			return Codec{}, fmt.Errorf("alias: group template has no %s field", role)
		}
	}
	return NewCodec(names), nil
}

// Fields returns the configured field names.
func (c Codec) Fields() FieldNames {
	return c.fields
}

// Decode expands a wire list into one record per canonical string.
func (c Codec) Decode(raw any) ([]map[string]any, error) {
	canonical, err := stringList(raw)
	if err != nil {
		return nil, err
	}
	entries := Decompose(canonical)
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, c.Record(entry))
	}
	return out, nil
}

// Encode flattens records into the canonical wire list. Missing keys, such
// as fields excluded because they were disabled, count as empty.
func (c Codec) Encode(records []map[string]any) (any, error) {
	entries := make([]Entry, 0, len(records))
	for _, record := range records {
		entries = append(entries, c.Entry(record))
	}
	return Compose(entries), nil
}

// Record renders entry as a field-name keyed record.
func (c Codec) Record(entry Entry) map[string]any {
	return map[string]any{
		c.fields.V4Address: entry.V4Address,
		c.fields.V4Prefix:  entry.V4Prefix,
		c.fields.V6Address: entry.V6Address,
		c.fields.V6Prefix:  entry.V6Prefix,
	}
}

// Entry reads a field-name keyed record.
func (c Codec) Entry(record map[string]any) Entry {
	text := func(name string) string {
		return validation.Text(record[name])
	}
	return Entry{
		V4Address: text(c.fields.V4Address),
		V4Prefix:  text(c.fields.V4Prefix),
		V6Address: text(c.fields.V6Address),
		V6Prefix:  text(c.fields.V6Prefix),
	}
}

func stringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for idx, item := range v {
			text, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T", ErrUnsupportedValue, idx, item)
			}
			out = append(out, text)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, raw)
	}
}
