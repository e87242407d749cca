// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

package validate

import (
	"strings"

	"github.com/samber/oops"
)

// FieldRules declares the rule specification for one form field.
type FieldRules struct {
	Field string
	Spec  string
}

// compiledField is a field with its parsed rules.
type compiledField struct {
	name    string
	label   string
	rules   []Rule
	numeric bool // integer rule declared; min/max bound the value, not the length
}

// Ruleset is an ordered, pre-parsed collection of field rules. Validation
// output is grouped by the order fields were declared here, not by
// submission order.
type Ruleset struct {
	fields []compiledField
}

// NewRuleset parses the declared field specifications into a Ruleset.
// Any malformed specification rejects the whole set.
func NewRuleset(defs ...FieldRules) (*Ruleset, error) {
	if len(defs) == 0 {
		return nil, oops.Code("VALIDATE_EMPTY_RULESET").Errorf("ruleset must declare at least one field")
	}

	seen := make(map[string]struct{}, len(defs))
	fields := make([]compiledField, 0, len(defs))
	for _, def := range defs {
		name := strings.TrimSpace(def.Field)
		if name == "" {
			return nil, oops.Code("VALIDATE_EMPTY_FIELD").Errorf("field name cannot be empty")
		}
		if _, dup := seen[name]; dup {
			return nil, oops.Code("VALIDATE_DUPLICATE_FIELD").
				With("field", name).
				Errorf("field %q declared twice", name)
		}
		seen[name] = struct{}{}

		rules, err := ParseRules(def.Spec)
		if err != nil {
			return nil, oops.With("field", name).Wrap(err)
		}

		cf := compiledField{name: name, label: fieldLabel(name), rules: rules}
		for _, r := range rules {
			if _, ok := r.(integerRule); ok {
				cf.numeric = true
			}
		}
		fields = append(fields, cf)
	}

	return &Ruleset{fields: fields}, nil
}

// MustRuleset is NewRuleset that panics on error. Rulesets are static
// configuration; a malformed one is a programming error caught at startup.
func MustRuleset(defs ...FieldRules) *Ruleset {
	rs, err := NewRuleset(defs...)
	if err != nil {
		panic(err)
	}
	return rs
}

// Result aggregates validation failures for one submission.
type Result struct {
	order    []string
	messages map[string][]string
}

// OK reports whether the submission passed every rule.
func (r *Result) OK() bool {
	return len(r.messages) == 0
}

// Messages returns every failure message, grouped by field in ruleset
// declaration order.
func (r *Result) Messages() []string {
	var out []string
	for _, field := range r.order {
		out = append(out, r.messages[field]...)
	}
	return out
}

// Field returns the failure messages for one field, in rule order.
func (r *Result) Field(name string) []string {
	return r.messages[name]
}

func (r *Result) add(field, msg string) {
	if _, ok := r.messages[field]; !ok {
		r.order = append(r.order, field)
	}
	r.messages[field] = append(r.messages[field], msg)
}

// Validate evaluates the submission against the ruleset. It is a pure
// function of its inputs: no field is mutated and no state is kept.
//
// Skip policy (deliberate, to avoid duplicate or misleading messages):
//   - a trimmed-empty value with a required rule fires only the required
//     failure; later rules that would inspect the value are skipped;
//   - a trimmed-empty value without a required rule is optional and fires
//     nothing;
//   - when the integer rule fails, min/max for that field are skipped
//     because their numeric interpretation presupposes a parseable value.
//
// Within those constraints every failing rule for a field is reported;
// evaluation never stops at the first failure.
func (rs *Ruleset) Validate(form map[string]string) *Result {
	res := &Result{messages: make(map[string][]string)}

	for _, cf := range rs.fields {
		value := strings.TrimSpace(form[cf.name])

		if value == "" {
			for _, r := range cf.rules {
				if _, isRequired := r.(requiredRule); isRequired {
					msg, _ := r.check(checkInput{label: cf.label, value: value, form: form})
					res.add(cf.name, msg)
					break
				}
			}
			continue
		}

		in := checkInput{label: cf.label, value: value, raw: form[cf.name], numeric: cf.numeric, form: form}

		intFailed := false
		for _, r := range cf.rules {
			if cf.numeric && intFailed && r.skipOnBadInt() {
				continue
			}
			msg, ok := r.check(in)
			if !ok {
				res.add(cf.name, msg)
				if _, isInt := r.(integerRule); isInt {
					intFailed = true
				}
			}
		}
	}

	return res
}
