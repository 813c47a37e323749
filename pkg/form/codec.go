package form

import (
	"fmt"

	"github.com/goliatone/go-formrel/pkg/alias"
	"github.com/goliatone/go-formrel/pkg/schema"
)

// GroupCodec converts between per-instance records of a repeated group and
// the value carried by submission and load payloads.
type GroupCodec interface {
	Decode(raw any) ([]map[string]any, error)
	Encode(records []map[string]any) (any, error)
}

// CodecFactory builds a codec for a group descriptor.
type CodecFactory func(group schema.FieldDescriptor) (GroupCodec, error)

// CodecAlias is the schema codec name of the network alias marshaller.
const CodecAlias = "alias"

func defaultCodecFactories() map[string]CodecFactory {
	return map[string]CodecFactory{
		CodecAlias: func(group schema.FieldDescriptor) (GroupCodec, error) {
			return alias.CodecFromTemplate(group.Children)
		},
	}
}

// recordCodec is used when a group names no codec: records travel as a list
// of objects.
type recordCodec struct{}

func (recordCodec) Decode(raw any) ([]map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []map[string]any:
		return v, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for idx, item := range v {
			record, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("form: group record %d is %T, want object", idx, item)
			}
			out = append(out, record)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("form: group value is %T, want list", raw)
	}
}

func (recordCodec) Encode(records []map[string]any) (any, error) {
	if records == nil {
		return []map[string]any{}, nil
	}
	return records, nil
}
