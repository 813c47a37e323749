// Package expr compiles the compact textual relation syntax used in schema
// documents into structured relation conditions.
//
// Supported forms:
//   - value comparisons: `int_dhcp == true`, `int_ipv4address == ""`
//   - validity comparisons: `int_ipv4address.status == "INVALID"`
//   - bare identifiers as shorthand for `== true`: `int_dhcp`
//   - a pure conjunction: `a == true && b.status == VALID`
//   - a disjunction of single-field conjunctions:
//     `int_dhcp == true || (int_ipv4address == "" && int_ipv4address.status == INVALID)`
//
// Negation and inequality are rejected because relation conditions only
// express positive matches.
package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formrel/pkg/schema"
)

const statusSuffix = ".status"

// Compile parses a `when` expression into a connective and its ordered
// conditions.
func Compile(input string) (schema.Connective, []schema.Condition, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil, errors.New("expr: empty expression")
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return "", nil, err
	}

	stream := &tokenStream{tokens: tokens}
	root, err := parseOr(stream)
	if err != nil {
		return "", nil, err
	}
	if stream.pos < len(stream.tokens) {
		return "", nil, fmt.Errorf("expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}

	return lower(root)
}

// CompileRule returns a copy of rule with When compiled into Conditions.
// Rules without When are returned unchanged.
func CompileRule(rule schema.RelationRule) (schema.RelationRule, error) {
	if strings.TrimSpace(rule.When) == "" {
		return rule, nil
	}
	if len(rule.Conditions) > 0 {
		return rule, errors.New("expr: rule declares both when and conditions")
	}
	connective, conditions, err := Compile(rule.When)
	if err != nil {
		return rule, err
	}
	if rule.Connective != "" && rule.Connective != connective && len(conditions) > 1 {
		return rule, fmt.Errorf("expr: connective %s conflicts with expression", rule.Connective)
	}
	rule.Connective = connective
	rule.Conditions = conditions
	return rule, nil
}

func lower(root node) (schema.Connective, []schema.Condition, error) {
	switch n := root.(type) {
	case orNode:
		conditions := make([]schema.Condition, 0, len(n.terms))
		for _, term := range n.terms {
			cond, err := conjunctionToCondition(term)
			if err != nil {
				return "", nil, err
			}
			conditions = append(conditions, cond)
		}
		return schema.ConnectiveOr, conditions, nil
	case andNode:
		conditions := make([]schema.Condition, 0, len(n.terms))
		for _, term := range n.terms {
			cmp, ok := term.(compareNode)
			if !ok {
				return "", nil, errors.New("expr: mixing && and || requires parentheses around single-field groups")
			}
			conditions = append(conditions, cmp.condition())
		}
		return schema.ConnectiveAnd, conditions, nil
	case compareNode:
		return schema.ConnectiveAnd, []schema.Condition{n.condition()}, nil
	default:
		return "", nil, errors.New("expr: unsupported expression")
	}
}

// conjunctionToCondition folds `a == x && a.status == S` into a single
// condition. Every comparison must reference the same field.
func conjunctionToCondition(term node) (schema.Condition, error) {
	switch n := term.(type) {
	case compareNode:
		return n.condition(), nil
	case andNode:
		var out schema.Condition
		for _, part := range n.terms {
			cmp, ok := part.(compareNode)
			if !ok {
				return schema.Condition{}, errors.New("expr: nested disjunctions are not supported")
			}
			if out.Field == "" {
				out.Field = cmp.field
			} else if out.Field != cmp.field {
				return schema.Condition{}, fmt.Errorf("expr: grouped comparisons must reference one field, got %q and %q", out.Field, cmp.field)
			}
			if cmp.status {
				if out.Status != "" {
					return schema.Condition{}, fmt.Errorf("expr: %q compares status twice", cmp.field)
				}
				out.Status = schema.Status(cmp.value.(string))
				continue
			}
			if out.HasValue() {
				return schema.Condition{}, fmt.Errorf("expr: %q compares value twice", cmp.field)
			}
			out.Value = cmp.value
		}
		return out, nil
	default:
		return schema.Condition{}, errors.New("expr: unsupported disjunction term")
	}
}

type node interface{ isNode() }

type orNode struct{ terms []node }
type andNode struct{ terms []node }

type compareNode struct {
	field  string
	status bool
	value  any
}

func (orNode) isNode()      {}
func (andNode) isNode()     {}
func (compareNode) isNode() {}

func (c compareNode) condition() schema.Condition {
	if c.status {
		return schema.Condition{Field: c.field, Status: schema.Status(c.value.(string))}
	}
	return schema.Condition{Field: c.field, Value: c.value}
}

func parseOr(stream *tokenStream) (node, error) {
	first, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	terms := []node{first}
	for stream.match(tokenOr) {
		next, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return orNode{terms: terms}, nil
}

func parseAnd(stream *tokenStream) (node, error) {
	first, err := parsePrimary(stream)
	if err != nil {
		return nil, err
	}
	terms := []node{first}
	for stream.match(tokenAnd) {
		next, err := parsePrimary(stream)
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	flat := make([]node, 0, len(terms))
	for _, term := range terms {
		if inner, ok := term.(andNode); ok {
			flat = append(flat, inner.terms...)
			continue
		}
		flat = append(flat, term)
	}
	return andNode{terms: flat}, nil
}

func parsePrimary(stream *tokenStream) (node, error) {
	if stream.match(tokenNot) {
		return nil, errors.New("expr: negation is not supported in relation conditions")
	}
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := stream.consume(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, errors.New("expr: unexpected end of expression")
		}
		return nil, fmt.Errorf("expr: expected field name, got %q", stream.tokens[stream.pos].raw)
	}

	field := ident.raw
	isStatus := strings.HasSuffix(field, statusSuffix)
	if isStatus {
		field = strings.TrimSuffix(field, statusSuffix)
	}

	if stream.match(tokenNeq) {
		return nil, fmt.Errorf("expr: %q uses '!=', only '==' is supported", ident.raw)
	}
	if !stream.match(tokenEq) {
		if isStatus {
			return nil, fmt.Errorf("expr: %q must be compared with a status", ident.raw)
		}
		return compareNode{field: field, value: true}, nil
	}

	lit, err := stream.consumeLiteral()
	if err != nil {
		return nil, err
	}
	if isStatus {
		text, ok := lit.(string)
		status := schema.Status(strings.ToUpper(text))
		if !ok || (status != schema.StatusValid && status != schema.StatusInvalid) {
			return nil, fmt.Errorf("expr: %q expects VALID or INVALID", ident.raw)
		}
		return compareNode{field: field, status: true, value: string(status)}, nil
	}
	return compareNode{field: field, value: lit}, nil
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(input); {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			i++
		case ch == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
				i += 2
				continue
			}
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
			i++
		case ch == '=' || ch == '&' || ch == '|':
			if i+1 >= len(input) || input[i+1] != ch {
				return nil, fmt.Errorf("expr: unexpected %q at offset %d", ch, i)
			}
			kind := map[byte]tokenKind{'=': tokenEq, '&': tokenAnd, '|': tokenOr}[ch]
			tokens = append(tokens, token{kind: kind, raw: input[i : i+2]})
			i += 2
		case ch == '"' || ch == '\'':
			end := i + 1
			for end < len(input) && input[end] != ch {
				if input[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(input) {
				return nil, errors.New("expr: unterminated string literal")
			}
			raw := input[i : end+1]
			if ch == '\'' {
				raw = `"` + strings.ReplaceAll(input[i+1:end], `"`, `\"`) + `"`
			}
			value, err := strconv.Unquote(raw)
			if err != nil {
				return nil, fmt.Errorf("expr: invalid string literal: %w", err)
			}
			tokens = append(tokens, token{kind: tokenString, raw: value})
			i = end + 1
		default:
			start := i
			for i < len(input) && !strings.ContainsRune(" \t\n\r()!=&|\"'", rune(input[i])) {
				i++
			}
			tokens = append(tokens, classifyWord(input[start:i]))
		}
	}
	return tokens, nil
}

func classifyWord(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{kind: tokenBool, raw: strings.ToLower(raw)}
	case "null", "nil":
		return token{kind: tokenNull, raw: "null"}
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return token{kind: tokenNumber, raw: raw}
	}
	return token{kind: tokenIdentifier, raw: raw}
}

type tokenStream struct {
	tokens []token
	pos    int
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

// consumeLiteral returns the Go value of the next literal. Bare identifiers
// are read as strings so `status == INVALID` needs no quotes.
func (s *tokenStream) consumeLiteral() (any, error) {
	if s.pos >= len(s.tokens) {
		return nil, errors.New("expr: missing literal")
	}
	tok := s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokenString, tokenIdentifier:
		return tok.raw, nil
	case tokenBool:
		return tok.raw == "true", nil
	case tokenNumber:
		value, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("expr: invalid number literal %q", tok.raw)
		}
		return value, nil
	case tokenNull:
		return nil, errors.New("expr: null literals are not supported in relation conditions")
	default:
		return nil, fmt.Errorf("expr: expected literal, got %q", tok.raw)
	}
}
