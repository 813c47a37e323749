// Package validation builds the per-field validators declared in a schema and
// reports VALID/INVALID results with a reason code.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formrel/pkg/schema"
)

// IPv4Pattern is the IPv4 literal grammar shared by field validation and
// alias classification. Octets may carry leading zeros.
const IPv4Pattern = `^(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`

const ReasonRequired = "required"

var ipv4Expr = regexp.MustCompile(IPv4Pattern)

var (
	tagValidatorOnce sync.Once
	tagValidator     *validator.Validate
)

func tags() *validator.Validate {
	tagValidatorOnce.Do(func() {
		tagValidator = validator.New()
	})
	return tagValidator
}

// checkTag rejects tags validator/v10 does not know. Var panics on those.
func checkTag(tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validation: unknown tag %q: %v", tag, r)
		}
	}()
	_ = tags().Var("", tag)
	return nil
}

// IsIPv4 reports whether addr matches the IPv4 literal grammar.
func IsIPv4(addr string) bool {
	return ipv4Expr.MatchString(addr)
}

// Result is the validity state of a single value. Reason is set when Status
// is INVALID and names the failing validator kind.
type Result struct {
	Status schema.Status `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Valid returns a passing result.
func Valid() Result {
	return Result{Status: schema.StatusValid}
}

// Invalid returns a failing result with the supplied reason code.
func Invalid(reason string) Result {
	return Result{Status: schema.StatusInvalid, Reason: reason}
}

// OK reports whether the result is VALID.
func (r Result) OK() bool {
	return r.Status != schema.StatusInvalid
}

// Validator is a predicate over a raw field value.
type Validator interface {
	Kind() string
	Validate(value any) Result
}

// Func adapts a predicate into a Validator.
type Func struct {
	Name  string
	Check func(text string) bool
}

func (f Func) Kind() string { return f.Name }

func (f Func) Validate(value any) Result {
	if f.Check(Text(value)) {
		return Valid()
	}
	return Invalid(f.Name)
}

// Build constructs the Validator described by spec.
func Build(spec schema.ValidatorSpec) (Validator, error) {
	switch spec.Kind {
	case schema.ValidatorRequired:
		return Func{Name: schema.ValidatorRequired, Check: func(text string) bool {
			return strings.TrimSpace(text) != ""
		}}, nil
	case schema.ValidatorIPv4:
		return Func{Name: schema.ValidatorIPv4, Check: IsIPv4}, nil
	case schema.ValidatorIPv6:
		return Func{Name: schema.ValidatorIPv6, Check: func(text string) bool {
			return tags().Var(text, "ipv6") == nil
		}}, nil
	case schema.ValidatorPattern:
		expr, err := regexp.Compile(spec.Params["pattern"])
		if err != nil {
			return nil, fmt.Errorf("validation: pattern: %w", err)
		}
		return Func{Name: schema.ValidatorPattern, Check: expr.MatchString}, nil
	case schema.ValidatorMinLength, schema.ValidatorMaxLength:
		limit, err := strconv.Atoi(spec.Params["value"])
		if err != nil {
			return nil, fmt.Errorf("validation: %s: %w", spec.Kind, err)
		}
		isMin := spec.Kind == schema.ValidatorMinLength
		return Func{Name: spec.Kind, Check: func(text string) bool {
			n := len([]rune(text))
			if isMin {
				return n >= limit
			}
			return n <= limit
		}}, nil
	case schema.ValidatorRange:
		return newRange(spec.Params["min"], spec.Params["max"])
	case schema.ValidatorTag:
		tag := strings.TrimSpace(spec.Params["tag"])
		if tag == "" {
			return nil, errors.New("validation: tag validator requires a tag")
		}
		if err := checkTag(tag); err != nil {
			return nil, err
		}
		return Func{Name: schema.ValidatorTag + ":" + tag, Check: func(text string) bool {
			return tags().Var(text, tag) == nil
		}}, nil
	default:
		return nil, fmt.Errorf("validation: unknown validator kind %q", spec.Kind)
	}
}

// BuildAll constructs validators in declaration order.
func BuildAll(specs []schema.ValidatorSpec) ([]Validator, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make([]Validator, 0, len(specs))
	for _, spec := range specs {
		v, err := Build(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Run checks the required flag first and then each validator in order; the
// first failure wins.
func Run(validators []Validator, value any, required bool) Result {
	if required && Empty(value) {
		return Invalid(ReasonRequired)
	}
	for _, v := range validators {
		if res := v.Validate(value); !res.OK() {
			return res
		}
	}
	return Valid()
}

// Empty reports whether value counts as unset for required checks. An
// unchecked checkbox is empty.
func Empty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return strings.TrimSpace(Text(value)) == ""
	}
}

// Text renders a raw value as the string validators operate on.
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}

type rangeValidator struct {
	min, max       float64
	hasMin, hasMax bool
}

func newRange(minRaw, maxRaw string) (Validator, error) {
	var r rangeValidator
	if minRaw != "" {
		v, err := strconv.ParseFloat(minRaw, 64)
		if err != nil {
			return nil, fmt.Errorf("validation: range min: %w", err)
		}
		r.min, r.hasMin = v, true
	}
	if maxRaw != "" {
		v, err := strconv.ParseFloat(maxRaw, 64)
		if err != nil {
			return nil, fmt.Errorf("validation: range max: %w", err)
		}
		r.max, r.hasMax = v, true
	}
	if !r.hasMin && !r.hasMax {
		return nil, errors.New("validation: range requires min or max")
	}
	return r, nil
}

func (r rangeValidator) Kind() string { return schema.ValidatorRange }

func (r rangeValidator) Validate(value any) Result {
	n, err := strconv.ParseFloat(strings.TrimSpace(Text(value)), 64)
	if err != nil {
		return Invalid(schema.ValidatorRange)
	}
	if r.hasMin && n < r.min {
		return Invalid(schema.ValidatorRange)
	}
	if r.hasMax && n > r.max {
		return Invalid(schema.ValidatorRange)
	}
	return Valid()
}
