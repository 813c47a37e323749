// Package relation evaluates the declarative rules that enable, disable or
// require a field based on the live values and validity of other fields.
//
// The evaluator is pure: it reads an immutable State and returns decisions.
// The caller owns the state and applies the decisions, so rules can be
// re-run conservatively after every change without ordering concerns.
package relation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formrel/pkg/schema"
)

// FieldState is the view of one field the evaluator reads.
type FieldState struct {
	Value   any           `json:"value"`
	Status  schema.Status `json:"status"`
	Enabled bool          `json:"enabled"`
}

// State resolves field names to their current state.
type State interface {
	Lookup(name string) (FieldState, bool)
}

// Snapshot is a State backed by a map keyed by fully-qualified field key.
type Snapshot map[string]FieldState

// Lookup implements State.
func (s Snapshot) Lookup(name string) (FieldState, bool) {
	fs, ok := s[name]
	return fs, ok
}

// StateFunc adapts a function into a State.
type StateFunc func(name string) (FieldState, bool)

// Lookup delegates to the underlying function.
func (fn StateFunc) Lookup(name string) (FieldState, bool) {
	return fn(name)
}

// Scope resolves names inside one group instance: names listed in Local
// resolve to Prefix+name, everything else falls through to Base.
type Scope struct {
	Base   State
	Prefix string
	Local  map[string]struct{}
}

// Lookup implements State.
func (s Scope) Lookup(name string) (FieldState, bool) {
	if _, ok := s.Local[name]; ok {
		return s.Base.Lookup(s.Prefix + name)
	}
	return s.Base.Lookup(name)
}

// Decision is the outcome of applying every rule attached to a field.
type Decision struct {
	Enabled  bool
	Required bool
}

// Apply folds the rules of one field into a decision. A field starts
// enabled; any DISABLE rule that holds disables it. When no DISABLE rule
// holds and ENABLE rules exist, the field is enabled only if one of them
// holds. REQUIRE rules mark the field required.
func Apply(rules []schema.RelationRule, state State) Decision {
	decision := Decision{Enabled: true}
	disabled := false
	sawEnable, enabled := false, false

	for _, rule := range rules {
		switch rule.Action {
		case schema.ActionDisable:
			if !disabled && Evaluate(rule, state) {
				disabled = true
			}
		case schema.ActionEnable:
			sawEnable = true
			if !enabled && Evaluate(rule, state) {
				enabled = true
			}
		case schema.ActionRequire:
			if !decision.Required && Evaluate(rule, state) {
				decision.Required = true
			}
		}
	}

	switch {
	case disabled:
		decision.Enabled = false
	case sawEnable:
		decision.Enabled = enabled
	}
	return decision
}

// Evaluate combines the rule conditions with its connective. A rule without
// conditions never holds; schema validation rejects such rules up front.
func Evaluate(rule schema.RelationRule, state State) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	if rule.EffectiveConnective() == schema.ConnectiveOr {
		for _, cond := range rule.Conditions {
			if Match(cond, state) {
				return true
			}
		}
		return false
	}
	for _, cond := range rule.Conditions {
		if !Match(cond, state) {
			return false
		}
	}
	return true
}

// Match reports whether a single condition holds. Unknown fields never
// match. A status comparison only matches an enabled field because a
// disabled field carries no validity.
func Match(cond schema.Condition, state State) bool {
	if state == nil {
		return false
	}
	fs, ok := state.Lookup(cond.Field)
	if !ok {
		return false
	}
	if cond.HasValue() && !ValueEquals(cond.Value, fs.Value) {
		return false
	}
	if cond.Status != "" {
		if !fs.Enabled || fs.Status != cond.Status {
			return false
		}
	}
	return true
}

// Dependencies lists the field names referenced by rules, in first-seen
// order without duplicates.
func Dependencies(rules []schema.RelationRule) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, rule := range rules {
		for _, cond := range rule.Conditions {
			if _, ok := seen[cond.Field]; ok {
				continue
			}
			seen[cond.Field] = struct{}{}
			out = append(out, cond.Field)
		}
	}
	return out
}

// ValueEquals compares an expected condition value with a live field value,
// coercing the live value to the expected type (boolean, string or number).
func ValueEquals(expected, actual any) bool {
	switch want := expected.(type) {
	case bool:
		got, _ := coerceBool(actual)
		return got == want
	case string:
		return coerceString(actual) == want
	case float64:
		got, ok := coerceNumber(actual)
		return ok && got == want
	case int:
		got, ok := coerceNumber(actual)
		return ok && got == float64(want)
	default:
		return coerceString(actual) == coerceString(expected)
	}
}

func coerceBool(value any) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return parsed, true
		}
		return strings.TrimSpace(v) != "", true
	case float64:
		return v != 0, true
	case int:
		return v != 0, true
	default:
		return true, true
	}
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}
