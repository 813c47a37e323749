package relation

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formrel/pkg/schema"
)

func rule(action schema.Action, connective schema.Connective, conds ...schema.Condition) schema.RelationRule {
	return schema.RelationRule{Action: action, Connective: connective, Conditions: conds}
}

func TestApplyPrecedence(t *testing.T) {
	state := Snapshot{
		"dhcp":  {Value: true, Status: schema.StatusValid, Enabled: true},
		"auto":  {Value: false, Status: schema.StatusValid, Enabled: true},
		"addr":  {Value: "", Status: schema.StatusInvalid, Enabled: true},
		"other": {Value: "x", Status: schema.StatusValid, Enabled: false},
	}

	cases := []struct {
		name  string
		rules []schema.RelationRule
		want  Decision
	}{
		{"no rules", nil, Decision{Enabled: true}},
		{"disable holds", []schema.RelationRule{
			rule(schema.ActionDisable, "", schema.Condition{Field: "dhcp", Value: true}),
		}, Decision{Enabled: false}},
		{"disable wins over enable", []schema.RelationRule{
			rule(schema.ActionEnable, "", schema.Condition{Field: "dhcp", Value: true}),
			rule(schema.ActionDisable, "", schema.Condition{Field: "dhcp", Value: true}),
		}, Decision{Enabled: false}},
		{"enable gates when false", []schema.RelationRule{
			rule(schema.ActionEnable, "", schema.Condition{Field: "auto", Value: true}),
		}, Decision{Enabled: false}},
		{"any enable suffices", []schema.RelationRule{
			rule(schema.ActionEnable, "", schema.Condition{Field: "auto", Value: true}),
			rule(schema.ActionEnable, "", schema.Condition{Field: "dhcp", Value: true}),
		}, Decision{Enabled: true}},
		{"require", []schema.RelationRule{
			rule(schema.ActionRequire, "", schema.Condition{Field: "dhcp", Value: true}),
		}, Decision{Enabled: true, Required: true}},
		{"require on disabled field", []schema.RelationRule{
			rule(schema.ActionRequire, "", schema.Condition{Field: "dhcp", Value: true}),
			rule(schema.ActionDisable, "", schema.Condition{Field: "dhcp", Value: true}),
		}, Decision{Enabled: false, Required: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Apply(tc.rules, state)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("decision mismatch (-want +got):\n%s", diff)
			}
			if again := Apply(tc.rules, state); again != got {
				t.Fatalf("apply is not deterministic: %+v then %+v", got, again)
			}
		})
	}
}

func TestEvaluateConnectives(t *testing.T) {
	state := Snapshot{
		"dhcp": {Value: false, Status: schema.StatusValid, Enabled: true},
		"addr": {Value: "", Status: schema.StatusInvalid, Enabled: true},
	}
	either := rule(schema.ActionDisable, schema.ConnectiveOr,
		schema.Condition{Field: "dhcp", Value: true},
		schema.Condition{Field: "addr", Value: "", Status: schema.StatusInvalid},
	)
	if !Evaluate(either, state) {
		t.Fatalf("OR rule should hold when the second condition matches")
	}

	both := either
	both.Connective = schema.ConnectiveAnd
	if Evaluate(both, state) {
		t.Fatalf("AND rule should not hold when the first condition fails")
	}

	if Evaluate(rule(schema.ActionDisable, ""), state) {
		t.Fatalf("rule without conditions should never hold")
	}
}

func TestMatch(t *testing.T) {
	state := Snapshot{
		"addr":     {Value: "10.0.0.1", Status: schema.StatusValid, Enabled: true},
		"disabled": {Value: "", Status: schema.StatusValid, Enabled: false},
	}
	cases := []struct {
		name string
		cond schema.Condition
		want bool
	}{
		{"value", schema.Condition{Field: "addr", Value: "10.0.0.1"}, true},
		{"value miss", schema.Condition{Field: "addr", Value: "10.0.0.2"}, false},
		{"status", schema.Condition{Field: "addr", Status: schema.StatusValid}, true},
		{"status and value", schema.Condition{Field: "addr", Value: "10.0.0.1", Status: schema.StatusInvalid}, false},
		{"status needs enabled field", schema.Condition{Field: "disabled", Status: schema.StatusValid}, false},
		{"value on disabled field", schema.Condition{Field: "disabled", Value: ""}, true},
		{"unknown field", schema.Condition{Field: "nope", Value: ""}, false},
	}
	for _, tc := range cases {
		if got := Match(tc.cond, state); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
	if Match(schema.Condition{Field: "addr", Value: "10.0.0.1"}, nil) {
		t.Fatalf("nil state should never match")
	}
}

func TestScopeResolvesLocalNamesFirst(t *testing.T) {
	base := Snapshot{
		"addr":                 {Value: "top"},
		"aliases[01ABC].addr":  {Value: "local"},
		"aliases[01ABC].other": {Value: "hidden"},
	}
	scope := Scope{Base: base, Prefix: "aliases[01ABC].", Local: map[string]struct{}{"addr": {}}}

	got, ok := scope.Lookup("addr")
	if !ok || got.Value != "local" {
		t.Fatalf("local lookup = %+v, %v", got, ok)
	}
	if _, ok := scope.Lookup("other"); ok {
		t.Fatalf("names outside Local should fall through to the base state")
	}

	fn := StateFunc(func(name string) (FieldState, bool) { return base.Lookup(name) })
	if got, ok := fn.Lookup("addr"); !ok || got.Value != "top" {
		t.Fatalf("state func lookup = %+v, %v", got, ok)
	}
}

func TestValueEqualsCoercion(t *testing.T) {
	cases := []struct {
		expected, actual any
		want             bool
	}{
		{true, true, true},
		{true, "true", true},
		{false, nil, true},
		{false, "", true},
		{true, "on", true},
		{"24", "24", true},
		{"", nil, true},
		{24.0, "24", true},
		{24.0, 24, true},
		{24, 24.0, true},
		{24.0, "x", false},
		{"1", 1.0, true},
	}
	for _, tc := range cases {
		if got := ValueEquals(tc.expected, tc.actual); got != tc.want {
			t.Fatalf("ValueEquals(%#v, %#v) = %v, want %v", tc.expected, tc.actual, got, tc.want)
		}
	}
}

func TestDependencies(t *testing.T) {
	rules := []schema.RelationRule{
		rule(schema.ActionDisable, schema.ConnectiveOr,
			schema.Condition{Field: "dhcp", Value: true},
			schema.Condition{Field: "addr", Status: schema.StatusInvalid},
		),
		rule(schema.ActionRequire, "", schema.Condition{Field: "dhcp", Value: false}),
	}
	if diff := cmp.Diff([]string{"dhcp", "addr"}, Dependencies(rules)); diff != "" {
		t.Fatalf("dependencies mismatch (-want +got):\n%s", diff)
	}
}
