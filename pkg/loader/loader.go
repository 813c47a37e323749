package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formrel/pkg/schema"
	"github.com/goliatone/go-formrel/pkg/schema/expr"
)

// Store keeps the parsed schemas keyed by id. It is safe for concurrent
// readers when treated as immutable after construction.
type Store struct {
	schemas map[string]schema.Schema
}

// LoadFS walks the provided filesystem and parses JSON/YAML form documents.
// When fsys is nil or holds no documents, the returned store is empty.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{schemas: make(map[string]schema.Schema)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("loader: read %s: %w", path, err)
		}

		parsed, err := Parse(data, path)
		if err != nil {
			return err
		}
		if _, exists := store.schemas[parsed.ID]; exists {
			return fmt.Errorf("loader: duplicate schema %q (file %s)", parsed.ID, path)
		}
		store.schemas[parsed.ID] = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}

// Schema returns a copy of the schema registered under id.
func (s *Store) Schema(id string) (schema.Schema, bool) {
	if s == nil {
		return schema.Schema{}, false
	}
	found, ok := s.schemas[id]
	if !ok {
		return schema.Schema{}, false
	}
	return found.Clone(), true
}

// IDs lists the registered schema ids in sorted order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.schemas))
	for id := range s.schemas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty reports whether the store holds any schema.
func (s *Store) Empty() bool {
	return s == nil || len(s.schemas) == 0
}

// Merge adds every schema of other. Ids already present are rejected and
// leave the store unchanged.
func (s *Store) Merge(other *Store) error {
	if other == nil {
		return nil
	}
	for id := range other.schemas {
		if _, exists := s.schemas[id]; exists {
			return fmt.Errorf("loader: duplicate schema %q (file %s)", id, other.schemas[id].Source)
		}
	}
	if s.schemas == nil {
		s.schemas = make(map[string]schema.Schema, len(other.schemas))
	}
	for id, found := range other.schemas {
		s.schemas[id] = found
	}
	return nil
}

// Parse decodes a single JSON or YAML document, compiles `when` expressions,
// sanitises tooltips and validates the result. Validation failures are
// returned as joined schema.SchemaError values.
func Parse(data []byte, source string) (schema.Schema, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return schema.Schema{}, fmt.Errorf("loader: file %s is empty", source)
	}

	var doc schema.Schema
	if err := json.Unmarshal(data, &doc); err != nil {
		doc = schema.Schema{}
		if yamlErr := yaml.Unmarshal(data, &doc); yamlErr != nil {
			return schema.Schema{}, fmt.Errorf("loader: parse %s: invalid JSON or YAML: %w", source, yamlErr)
		}
	}

	doc.ID = strings.TrimSpace(doc.ID)
	doc.Source = source

	fields, err := normaliseFields(doc.Fields, "")
	if err != nil {
		return schema.Schema{}, fmt.Errorf("loader: %s: %w", source, err)
	}
	doc.Fields = fields

	if err := schema.Validate(doc); err != nil {
		return schema.Schema{}, fmt.Errorf("loader: %s: %w", source, err)
	}
	return doc, nil
}

func normaliseFields(fields []schema.FieldDescriptor, prefix string) ([]schema.FieldDescriptor, error) {
	var errs []error
	out := make([]schema.FieldDescriptor, len(fields))
	for idx, field := range fields {
		field.Name = strings.TrimSpace(field.Name)
		field.Tooltip = sanitizeTooltip(field.Tooltip)
		field.Default = normaliseScalar(field.Default)
		path := field.Name
		if prefix != "" {
			path = prefix + "." + field.Name
		}

		for rIdx, rule := range field.Relations {
			rule.Action = schema.Action(strings.ToUpper(strings.TrimSpace(string(rule.Action))))
			rule.Connective = schema.Connective(strings.ToUpper(strings.TrimSpace(string(rule.Connective))))
			compiled, err := expr.CompileRule(rule)
			if err != nil {
				errs = append(errs, schema.SchemaError{
					Path:    fmt.Sprintf("%s.relations[%d]", path, rIdx),
					Message: err.Error(),
				})
				continue
			}
			for cIdx, cond := range compiled.Conditions {
				cond.Field = strings.TrimSpace(cond.Field)
				cond.Status = schema.Status(strings.ToUpper(string(cond.Status)))
				cond.Value = normaliseScalar(cond.Value)
				compiled.Conditions[cIdx] = cond
			}
			compiled.When = ""
			field.Relations[rIdx] = compiled
		}

		if len(field.Children) > 0 {
			children, err := normaliseFields(field.Children, path)
			if err != nil {
				errs = append(errs, err)
			}
			field.Children = children
		}
		out[idx] = field
	}
	return out, errors.Join(errs...)
}

// normaliseScalar maps decoder-specific numeric types onto float64 so JSON
// and YAML documents compare identically.
func normaliseScalar(value any) any {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return value
	}
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
