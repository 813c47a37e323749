package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SchemaError reports a malformed descriptor or relation rule. Path uses the
// dotted notation `field.relations[0].conditions[1]`.
type SchemaError struct {
	Path    string
	Message string
}

func (e SchemaError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Message
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Message)
}

var errSchemaIDMissing = errors.New("schema: id is required")

// Validate checks the structural invariants of a schema: unique sibling names,
// children iff kind=group, well formed validators and relation rules whose
// conditions reference known fields. Every violation is collected and
// returned through errors.Join.
func Validate(s Schema) error {
	var errs []error
	if strings.TrimSpace(s.ID) == "" {
		errs = append(errs, errSchemaIDMissing)
	}
	if len(s.Fields) == 0 {
		errs = append(errs, SchemaError{Message: "schema declares no fields"})
	}

	errs = append(errs, validateFields(s.Fields, "", s, nil)...)

	if lift := s.Load.Lift; lift != nil {
		if strings.TrimSpace(lift.From) == "" {
			errs = append(errs, SchemaError{Path: "load.lift", Message: "from is required"})
		}
		for idx, name := range lift.Fields {
			if _, ok := s.Field(name); !ok {
				errs = append(errs, SchemaError{
					Path:    fmt.Sprintf("load.lift.fields[%d]", idx),
					Message: fmt.Sprintf("unknown field %q", name),
				})
			}
		}
	}

	return errors.Join(errs...)
}

func validateFields(fields []FieldDescriptor, prefix string, root Schema, group *FieldDescriptor) []error {
	var errs []error
	seen := make(map[string]struct{}, len(fields))

	for idx, field := range fields {
		name := strings.TrimSpace(field.Name)
		path := joinPath(prefix, name)
		if name == "" {
			errs = append(errs, SchemaError{Path: joinPath(prefix, fmt.Sprintf("[%d]", idx)), Message: "field name is required"})
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, SchemaError{Path: path, Message: "duplicate sibling name"})
		}
		seen[name] = struct{}{}

		switch field.Kind {
		case KindText, KindCheckbox, KindSelect:
			if len(field.Children) > 0 {
				errs = append(errs, SchemaError{Path: path, Message: fmt.Sprintf("kind %q cannot declare children", field.Kind)})
			}
		case KindGroup:
			errs = append(errs, validateGroup(field, path, root)...)
		default:
			errs = append(errs, SchemaError{Path: path, Message: fmt.Sprintf("unknown kind %q", field.Kind)})
		}

		for vIdx, spec := range field.Validators {
			if err := validateValidator(spec); err != nil {
				errs = append(errs, SchemaError{
					Path:    fmt.Sprintf("%s.validators[%d]", path, vIdx),
					Message: err.Error(),
				})
			}
		}

		for rIdx, rule := range field.Relations {
			rulePath := fmt.Sprintf("%s.relations[%d]", path, rIdx)
			errs = append(errs, validateRule(rule, rulePath, root, group)...)
		}
	}

	return errs
}

func validateGroup(field FieldDescriptor, path string, root Schema) []error {
	var errs []error
	if len(field.Children) == 0 {
		errs = append(errs, SchemaError{Path: path, Message: "group requires children"})
	}
	if len(field.Relations) > 0 {
		errs = append(errs, SchemaError{Path: path, Message: "relations attach to group children, not the group"})
	}
	if field.InitialCount < 0 {
		errs = append(errs, SchemaError{Path: path, Message: "initialCount must be >= 0"})
	}
	if field.MinCount < 0 {
		errs = append(errs, SchemaError{Path: path, Message: "minCount must be >= 0"})
	}
	if field.InitialCount < field.MinCount {
		errs = append(errs, SchemaError{
			Path:    path,
			Message: fmt.Sprintf("initialCount %d is below minCount %d", field.InitialCount, field.MinCount),
		})
	}
	if field.MaxCount > 0 && field.InitialCount > field.MaxCount {
		errs = append(errs, SchemaError{
			Path:    path,
			Message: fmt.Sprintf("initialCount %d exceeds maxCount %d", field.InitialCount, field.MaxCount),
		})
	}
	for _, child := range field.Children {
		if child.IsGroup() {
			errs = append(errs, SchemaError{Path: joinPath(path, child.Name), Message: "nested groups are not supported"})
		}
	}
	groupCopy := field
	errs = append(errs, validateFields(field.Children, path, root, &groupCopy)...)
	return errs
}

func validateRule(rule RelationRule, path string, root Schema, group *FieldDescriptor) []error {
	var errs []error
	switch rule.Action {
	case ActionEnable, ActionDisable, ActionRequire:
	default:
		errs = append(errs, SchemaError{Path: path, Message: fmt.Sprintf("unknown action %q", rule.Action)})
	}
	switch rule.Connective {
	case "", ConnectiveAnd, ConnectiveOr:
	default:
		errs = append(errs, SchemaError{Path: path, Message: fmt.Sprintf("unknown connective %q", rule.Connective)})
	}
	if len(rule.Conditions) == 0 {
		errs = append(errs, SchemaError{Path: path, Message: "relation requires at least one condition"})
	}

	for idx, cond := range rule.Conditions {
		condPath := fmt.Sprintf("%s.conditions[%d]", path, idx)
		name := strings.TrimSpace(cond.Field)
		if name == "" {
			errs = append(errs, SchemaError{Path: condPath, Message: "condition field name is required"})
			continue
		}
		if !cond.HasValue() && cond.Status == "" {
			errs = append(errs, SchemaError{Path: condPath, Message: "condition requires a value or a status"})
		}
		switch cond.Status {
		case "", StatusValid, StatusInvalid:
		default:
			errs = append(errs, SchemaError{Path: condPath, Message: fmt.Sprintf("unknown status %q", cond.Status)})
		}
		if !resolvable(name, root, group) {
			errs = append(errs, SchemaError{Path: condPath, Message: fmt.Sprintf("condition references unknown field %q", name)})
		}
	}
	return errs
}

// resolvable mirrors the session lookup order: a sibling inside the same
// group instance first, then a top-level field.
func resolvable(name string, root Schema, group *FieldDescriptor) bool {
	if group != nil {
		if _, ok := group.Child(name); ok {
			return true
		}
	}
	field, ok := root.Field(name)
	return ok && !field.IsGroup()
}

func validateValidator(spec ValidatorSpec) error {
	switch spec.Kind {
	case ValidatorRequired, ValidatorIPv4, ValidatorIPv6:
		return nil
	case ValidatorPattern:
		pattern := spec.Params["pattern"]
		if pattern == "" {
			return errors.New("pattern validator requires params.pattern")
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
		return nil
	case ValidatorMinLength, ValidatorMaxLength:
		if _, err := strconv.Atoi(spec.Params["value"]); err != nil {
			return fmt.Errorf("%s validator requires an integer params.value", spec.Kind)
		}
		return nil
	case ValidatorRange:
		minRaw, maxRaw := spec.Params["min"], spec.Params["max"]
		if minRaw == "" && maxRaw == "" {
			return errors.New("range validator requires params.min or params.max")
		}
		for _, raw := range []string{minRaw, maxRaw} {
			if raw == "" {
				continue
			}
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				return fmt.Errorf("range bound %q is not a number", raw)
			}
		}
		return nil
	case ValidatorTag:
		if strings.TrimSpace(spec.Params["tag"]) == "" {
			return errors.New("tag validator requires params.tag")
		}
		return nil
	default:
		return fmt.Errorf("unknown validator kind %q", spec.Kind)
	}
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}
