package schema

// Kind is the simplified enum for form field kinds.
type Kind string

const (
	KindText     Kind = "text"
	KindCheckbox Kind = "checkbox"
	KindSelect   Kind = "select"
	KindGroup    Kind = "group"
)

// Action names what a relation rule does to its field when it holds.
type Action string

const (
	ActionEnable  Action = "ENABLE"
	ActionDisable Action = "DISABLE"
	ActionRequire Action = "REQUIRE"
)

// Connective combines the conditions of a relation rule.
type Connective string

const (
	ConnectiveAnd Connective = "AND"
	ConnectiveOr  Connective = "OR"
)

// Status is the validity state of a field.
type Status string

const (
	StatusValid   Status = "VALID"
	StatusInvalid Status = "INVALID"
)

const (
	ValidatorRequired  = "required"
	ValidatorPattern   = "pattern"
	ValidatorIPv4      = "ipv4"
	ValidatorIPv6      = "ipv6"
	ValidatorMinLength = "minLength"
	ValidatorMaxLength = "maxLength"
	ValidatorRange     = "range"
	ValidatorTag       = "tag"
)

// ValidatorSpec declares a validator attached to a field. Use the Validator*
// constants for Kind. Pattern validators keep their expression in
// Params["pattern"], length limits in Params["value"], ranges in
// Params["min"]/Params["max"] and tag validators in Params["tag"].
type ValidatorSpec struct {
	Kind   string            `json:"kind" yaml:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Option is one {label, value} entry offered by a select field.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Condition matches the current value and/or validity of a referenced field.
// Value is nil when the condition does not compare values; Status is empty
// when it does not compare validity.
type Condition struct {
	Field  string `json:"name" yaml:"name"`
	Value  any    `json:"value,omitempty" yaml:"value,omitempty"`
	Status Status `json:"status,omitempty" yaml:"status,omitempty"`
}

// HasValue reports whether the condition compares the field value.
func (c Condition) HasValue() bool {
	return c.Value != nil
}

// RelationRule enables, disables or requires a field when its conditions,
// combined with Connective, hold. When is the compact textual form and is
// compiled into Conditions by the loader.
type RelationRule struct {
	Action     Action      `json:"action" yaml:"action"`
	Connective Connective  `json:"connective,omitempty" yaml:"connective,omitempty"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	When       string      `json:"when,omitempty" yaml:"when,omitempty"`
}

// EffectiveConnective returns the connective, defaulting to AND.
func (r RelationRule) EffectiveConnective() Connective {
	if r.Connective == "" {
		return ConnectiveAnd
	}
	return r.Connective
}

// FieldDescriptor describes one form input or one repeated group.
type FieldDescriptor struct {
	Name          string            `json:"name" yaml:"name"`
	Kind          Kind              `json:"type" yaml:"type"`
	Label         string            `json:"label,omitempty" yaml:"label,omitempty"`
	Tooltip       string            `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Default       any               `json:"default,omitempty" yaml:"default,omitempty"`
	Required      bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Validators    []ValidatorSpec   `json:"validators,omitempty" yaml:"validators,omitempty"`
	Options       []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	OptionsSource string            `json:"optionsSource,omitempty" yaml:"optionsSource,omitempty"`
	AllowEmpty    bool              `json:"allowEmpty,omitempty" yaml:"allowEmpty,omitempty"`
	LockOnEdit    bool              `json:"lockOnEdit,omitempty" yaml:"lockOnEdit,omitempty"`
	Relations     []RelationRule    `json:"relations,omitempty" yaml:"relations,omitempty"`
	Children      []FieldDescriptor `json:"children,omitempty" yaml:"children,omitempty"`
	InitialCount  int               `json:"initialCount,omitempty" yaml:"initialCount,omitempty"`
	MinCount      int               `json:"minCount,omitempty" yaml:"minCount,omitempty"`
	MaxCount      int               `json:"maxCount,omitempty" yaml:"maxCount,omitempty"`
	Codec         string            `json:"codec,omitempty" yaml:"codec,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// IsGroup reports whether the descriptor is a repeated group.
func (f FieldDescriptor) IsGroup() bool {
	return f.Kind == KindGroup
}

// Child returns the group child with the given name.
func (f FieldDescriptor) Child(name string) (FieldDescriptor, bool) {
	for _, child := range f.Children {
		if child.Name == name {
			return child, true
		}
	}
	return FieldDescriptor{}, false
}

// LiftConfig copies nested values to the top level of a load payload.
type LiftConfig struct {
	From   string   `json:"from" yaml:"from"`
	Fields []string `json:"fields" yaml:"fields"`
}

// LoadConfig describes transforms applied to incoming payloads.
type LoadConfig struct {
	Lift *LiftConfig `json:"lift,omitempty" yaml:"lift,omitempty"`
}

// Schema is the static description of a whole form.
type Schema struct {
	ID       string            `json:"id" yaml:"id"`
	Title    string            `json:"title,omitempty" yaml:"title,omitempty"`
	Resource string            `json:"resource,omitempty" yaml:"resource,omitempty"`
	Fields   []FieldDescriptor `json:"fields" yaml:"fields"`
	Load     LoadConfig        `json:"load,omitempty" yaml:"load,omitempty"`
	Source   string            `json:"-" yaml:"-"`
}

// Field returns the top-level descriptor with the given name.
func (s Schema) Field(name string) (FieldDescriptor, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDescriptor{}, false
}

// Groups returns the repeated group descriptors in schema order.
func (s Schema) Groups() []FieldDescriptor {
	var out []FieldDescriptor
	for _, field := range s.Fields {
		if field.IsGroup() {
			out = append(out, field)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate options or templates
// without touching the loaded schema.
func (s Schema) Clone() Schema {
	out := s
	out.Fields = CloneFields(s.Fields)
	if s.Load.Lift != nil {
		lift := *s.Load.Lift
		lift.Fields = append([]string(nil), s.Load.Lift.Fields...)
		out.Load.Lift = &lift
	}
	return out
}

// CloneFields deep copies a descriptor slice.
func CloneFields(fields []FieldDescriptor) []FieldDescriptor {
	if fields == nil {
		return nil
	}
	out := make([]FieldDescriptor, len(fields))
	for i, field := range fields {
		out[i] = CloneField(field)
	}
	return out
}

// CloneField deep copies a descriptor.
func CloneField(field FieldDescriptor) FieldDescriptor {
	out := field
	if field.Validators != nil {
		out.Validators = make([]ValidatorSpec, len(field.Validators))
		for i, spec := range field.Validators {
			out.Validators[i] = ValidatorSpec{Kind: spec.Kind, Params: cloneStrings(spec.Params)}
		}
	}
	if field.Options != nil {
		out.Options = append([]Option(nil), field.Options...)
	}
	if field.Relations != nil {
		out.Relations = make([]RelationRule, len(field.Relations))
		for i, rule := range field.Relations {
			rule.Conditions = append([]Condition(nil), rule.Conditions...)
			out.Relations[i] = rule
		}
	}
	out.Children = CloneFields(field.Children)
	out.Metadata = cloneStrings(field.Metadata)
	return out
}

func cloneStrings(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
