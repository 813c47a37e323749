package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func baseSchema() Schema {
	return Schema{
		ID: "network.interface",
		Fields: []FieldDescriptor{
			{Name: "int_dhcp", Kind: KindCheckbox},
			{
				Name:       "int_ipv4address",
				Kind:       KindText,
				Validators: []ValidatorSpec{{Kind: ValidatorIPv4}},
				Relations: []RelationRule{{
					Action:     ActionDisable,
					Conditions: []Condition{{Field: "int_dhcp", Value: true}},
				}},
			},
			{
				Name:         "int_aliases",
				Kind:         KindGroup,
				InitialCount: 1,
				Children: []FieldDescriptor{
					{Name: "addr", Kind: KindText},
					{
						Name: "bits",
						Kind: KindSelect,
						Relations: []RelationRule{{
							Action:     ActionEnable,
							Connective: ConnectiveOr,
							Conditions: []Condition{
								{Field: "addr", Status: StatusValid},
								{Field: "int_dhcp", Value: false},
							},
						}},
					},
				},
			},
		},
	}
}

func schemaErrorPaths(t *testing.T, err error) []string {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var paths []string
	var walk func(error)
	walk = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var schemaErr SchemaError
		if errors.As(err, &schemaErr) {
			paths = append(paths, schemaErr.Path)
			return
		}
		paths = append(paths, "<"+err.Error()+">")
	}
	walk(err)
	return paths
}

func TestValidateAcceptsWellFormedSchema(t *testing.T) {
	if err := Validate(baseSchema()); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	s := baseSchema()
	s.ID = " "
	s.Fields = append(s.Fields,
		FieldDescriptor{Name: "int_dhcp", Kind: KindCheckbox},
		FieldDescriptor{Name: "mystery", Kind: "slider"},
		FieldDescriptor{Name: "plain", Kind: KindText, Children: []FieldDescriptor{{Name: "x", Kind: KindText}}},
		FieldDescriptor{
			Name:       "bad_validators",
			Kind:       KindText,
			Validators: []ValidatorSpec{{Kind: ValidatorPattern, Params: map[string]string{"pattern": "("}}, {Kind: "luhn"}},
		},
		FieldDescriptor{
			Name: "bad_rules",
			Kind: KindText,
			Relations: []RelationRule{
				{Action: "HIDE", Conditions: []Condition{{Field: "int_dhcp", Value: true}}},
				{Action: ActionEnable},
				{Action: ActionEnable, Conditions: []Condition{{Field: "missing", Value: true}}},
				{Action: ActionEnable, Conditions: []Condition{{Field: "int_dhcp"}}},
				{Action: ActionEnable, Conditions: []Condition{{Field: "addr", Value: "x"}}},
			},
		},
	)

	got := schemaErrorPaths(t, Validate(s))
	want := []string{
		"<schema: id is required>",
		"int_dhcp",
		"mystery",
		"plain",
		"bad_validators.validators[0]",
		"bad_validators.validators[1]",
		"bad_rules.relations[0]",
		"bad_rules.relations[1]",
		"bad_rules.relations[2].conditions[0]",
		"bad_rules.relations[3].conditions[0]",
		"bad_rules.relations[4].conditions[0]",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("error paths mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateGroupConstraints(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*FieldDescriptor)
		want   string
	}{
		{"no children", func(f *FieldDescriptor) { f.Children = nil }, "group requires children"},
		{"below min", func(f *FieldDescriptor) { f.MinCount = 2 }, "below minCount"},
		{"above max", func(f *FieldDescriptor) { f.MaxCount = 1; f.InitialCount = 3; f.MinCount = 0 }, "exceeds maxCount"},
		{"nested group", func(f *FieldDescriptor) {
			f.Children = append(f.Children, FieldDescriptor{Name: "inner", Kind: KindGroup, Children: []FieldDescriptor{{Name: "x", Kind: KindText}}})
		}, "nested groups"},
		{"relations on group", func(f *FieldDescriptor) {
			f.Relations = []RelationRule{{Action: ActionDisable, Conditions: []Condition{{Field: "int_dhcp", Value: true}}}}
		}, "relations attach to group children"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := baseSchema()
			tc.mutate(&s.Fields[2])
			err := Validate(s)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateLiftReferences(t *testing.T) {
	s := baseSchema()
	s.Load.Lift = &LiftConfig{Fields: []string{"int_dhcp", "nope"}}
	got := schemaErrorPaths(t, Validate(s))
	want := []string{"load.lift", "load.lift.fields[1]"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("error paths mismatch (-want +got):\n%s", diff)
	}
}

func TestValidatorParams(t *testing.T) {
	cases := []struct {
		spec ValidatorSpec
		ok   bool
	}{
		{ValidatorSpec{Kind: ValidatorRequired}, true},
		{ValidatorSpec{Kind: ValidatorPattern}, false},
		{ValidatorSpec{Kind: ValidatorPattern, Params: map[string]string{"pattern": `^\d+$`}}, true},
		{ValidatorSpec{Kind: ValidatorMinLength, Params: map[string]string{"value": "x"}}, false},
		{ValidatorSpec{Kind: ValidatorMaxLength, Params: map[string]string{"value": "8"}}, true},
		{ValidatorSpec{Kind: ValidatorRange}, false},
		{ValidatorSpec{Kind: ValidatorRange, Params: map[string]string{"max": "four"}}, false},
		{ValidatorSpec{Kind: ValidatorRange, Params: map[string]string{"min": "1"}}, true},
		{ValidatorSpec{Kind: ValidatorTag}, false},
		{ValidatorSpec{Kind: ValidatorTag, Params: map[string]string{"tag": "url"}}, true},
	}
	for _, tc := range cases {
		err := validateValidator(tc.spec)
		if (err == nil) != tc.ok {
			t.Fatalf("validator %+v: ok=%v, err=%v", tc.spec, tc.ok, err)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := baseSchema()
	s.Load.Lift = &LiftConfig{From: "attributes", Fields: []string{"int_dhcp"}}
	clone := s.Clone()

	clone.Fields[1].Relations[0].Conditions[0].Field = "changed"
	clone.Fields[2].Children[0].Name = "changed"
	clone.Load.Lift.Fields[0] = "changed"

	if diff := cmp.Diff(baseSchema().Fields, s.Fields); diff != "" {
		t.Fatalf("clone shares state with original (-want +got):\n%s", diff)
	}
	if s.Load.Lift.Fields[0] != "int_dhcp" {
		t.Fatalf("lift fields shared with clone")
	}
}

func TestEffectiveConnective(t *testing.T) {
	if got := (RelationRule{}).EffectiveConnective(); got != ConnectiveAnd {
		t.Fatalf("default connective = %s, want AND", got)
	}
	if got := (RelationRule{Connective: ConnectiveOr}).EffectiveConnective(); got != ConnectiveOr {
		t.Fatalf("connective = %s, want OR", got)
	}
}
