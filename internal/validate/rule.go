// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package validate provides declarative, rule-based form validation.
//
// Rule specifications use the pipe-delimited grammar shared by every form
// in the system ("required|email", "required|integer|min:1|max:8"). The
// grammar is parsed once, at ruleset construction, into typed rule values;
// an unknown rule name is a construction-time error, never a silent no-op.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
)

// emailRegexp matches a practical subset of RFC 5322 addresses.
var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// phoneRegexp matches the locally accepted phone format: ten digits,
// optionally prefixed with a country code.
var phoneRegexp = regexp.MustCompile(`^(\+\d{1,3})?\d{10}$`)

// dateLayout is the calendar date format accepted by the date rule.
const dateLayout = "2006-01-02"

// checkInput carries everything a rule needs to evaluate one field.
type checkInput struct {
	label   string
	value   string            // trimmed submitted value
	raw     string            // submitted value exactly as received
	numeric bool              // an integer rule is declared for this field
	form    map[string]string // full submission, for cross-field rules
}

// Rule is one typed validation constraint. Rules are created by ParseRules;
// dispatch is a closed set of variants, not string matching at validation
// time.
type Rule interface {
	// check returns ("", true) on pass, or (message, false) on failure.
	check(in checkInput) (string, bool)

	// skipOnBadInt reports whether the rule presupposes a successful
	// integer parse and must be skipped when the integer rule failed.
	skipOnBadInt() bool
}

type requiredRule struct{}

func (requiredRule) check(in checkInput) (string, bool) {
	if in.value == "" {
		return fmt.Sprintf("The %s field is required.", in.label), false
	}
	return "", true
}

func (requiredRule) skipOnBadInt() bool { return false }

type emailRule struct{}

func (emailRule) check(in checkInput) (string, bool) {
	if !emailRegexp.MatchString(in.value) {
		return fmt.Sprintf("The %s field must be a valid email address.", in.label), false
	}
	return "", true
}

func (emailRule) skipOnBadInt() bool { return false }

type integerRule struct{}

func (integerRule) check(in checkInput) (string, bool) {
	if _, err := strconv.ParseInt(in.value, 10, 64); err != nil {
		return fmt.Sprintf("The %s field must be an integer.", in.label), false
	}
	return "", true
}

func (integerRule) skipOnBadInt() bool { return false }

type minRule struct{ n int64 }

func (r minRule) check(in checkInput) (string, bool) {
	if in.numeric {
		v, err := strconv.ParseInt(in.value, 10, 64)
		if err != nil || v >= r.n {
			// Parse failures are the integer rule's problem; see skipOnBadInt.
			return "", true
		}
		return fmt.Sprintf("The %s field must be at least %d.", in.label, r.n), false
	}
	if int64(utf8.RuneCountInString(in.value)) < r.n {
		return fmt.Sprintf("The %s field must be at least %d characters.", in.label, r.n), false
	}
	return "", true
}

func (minRule) skipOnBadInt() bool { return true }

type maxRule struct{ n int64 }

func (r maxRule) check(in checkInput) (string, bool) {
	if in.numeric {
		v, err := strconv.ParseInt(in.value, 10, 64)
		if err != nil || v <= r.n {
			return "", true
		}
		return fmt.Sprintf("The %s field must not exceed %d.", in.label, r.n), false
	}
	if int64(utf8.RuneCountInString(in.value)) > r.n {
		return fmt.Sprintf("The %s field must not exceed %d characters.", in.label, r.n), false
	}
	return "", true
}

func (maxRule) skipOnBadInt() bool { return true }

type alphaRule struct{}

func (alphaRule) check(in checkInput) (string, bool) {
	for _, r := range in.value {
		if !unicode.IsLetter(r) {
			return fmt.Sprintf("The %s field may only contain letters.", in.label), false
		}
	}
	return "", true
}

func (alphaRule) skipOnBadInt() bool { return false }

type inRule struct{ allowed []string }

func (r inRule) check(in checkInput) (string, bool) {
	for _, a := range r.allowed {
		// Case-sensitive: "Student" is not "student".
		if in.value == a {
			return "", true
		}
	}
	return fmt.Sprintf("The %s field must be one of: %s.", in.label, strings.Join(r.allowed, ", ")), false
}

func (inRule) skipOnBadInt() bool { return false }

type sameRule struct{ other string }

func (r sameRule) check(in checkInput) (string, bool) {
	// Byte-for-byte on the raw submission: passwords are never trimmed,
	// so "secret " must not match "secret".
	if in.raw != in.form[r.other] {
		return fmt.Sprintf("The %s field must match the %s field.", in.label, fieldLabel(r.other)), false
	}
	return "", true
}

func (sameRule) skipOnBadInt() bool { return false }

type dateRule struct{}

func (dateRule) check(in checkInput) (string, bool) {
	if _, err := time.Parse(dateLayout, in.value); err != nil {
		return fmt.Sprintf("The %s field must be a valid date.", in.label), false
	}
	return "", true
}

func (dateRule) skipOnBadInt() bool { return false }

type phoneRule struct{}

func (phoneRule) check(in checkInput) (string, bool) {
	if !phoneRegexp.MatchString(in.value) {
		return fmt.Sprintf("The %s field must be a valid phone number.", in.label), false
	}
	return "", true
}

func (phoneRule) skipOnBadInt() bool { return false }

type regexRule struct{ re *regexp.Regexp }

func (r regexRule) check(in checkInput) (string, bool) {
	if !r.re.MatchString(in.value) {
		return fmt.Sprintf("The %s field format is invalid.", in.label), false
	}
	return "", true
}

func (regexRule) skipOnBadInt() bool { return false }

// ParseRules parses a pipe-delimited rule specification into typed rules.
// It fails closed: an unknown rule name or malformed argument rejects the
// whole specification rather than letting unvalidated input through.
func ParseRules(spec string) ([]Rule, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, oops.Code("VALIDATE_EMPTY_SPEC").Errorf("rule specification cannot be empty")
	}

	var rules []Rule
	for _, token := range strings.Split(spec, "|") {
		token = strings.TrimSpace(token)
		name, arg, hasArg := strings.Cut(token, ":")

		rule, err := buildRule(name, arg, hasArg)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// buildRule constructs a single typed rule from its name and argument.
func buildRule(name, arg string, hasArg bool) (Rule, error) {
	wantArg := func() error {
		if !hasArg || arg == "" {
			return oops.Code("VALIDATE_RULE_ARG").
				With("rule", name).
				Errorf("rule %q requires an argument", name)
		}
		return nil
	}
	wantNoArg := func() error {
		if hasArg {
			return oops.Code("VALIDATE_RULE_ARG").
				With("rule", name).
				Errorf("rule %q takes no argument", name)
		}
		return nil
	}

	switch name {
	case "required":
		return requiredRule{}, wantNoArg()
	case "email":
		return emailRule{}, wantNoArg()
	case "integer":
		return integerRule{}, wantNoArg()
	case "alpha":
		return alphaRule{}, wantNoArg()
	case "date":
		return dateRule{}, wantNoArg()
	case "phone":
		return phoneRule{}, wantNoArg()
	case "min", "max":
		if err := wantArg(); err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, oops.Code("VALIDATE_RULE_ARG").
				With("rule", name).
				With("arg", arg).
				Errorf("rule %q argument must be an integer", name)
		}
		if name == "min" {
			return minRule{n: n}, nil
		}
		return maxRule{n: n}, nil
	case "in":
		if err := wantArg(); err != nil {
			return nil, err
		}
		return inRule{allowed: strings.Split(arg, ",")}, nil
	case "same":
		if err := wantArg(); err != nil {
			return nil, err
		}
		return sameRule{other: arg}, nil
	case "regex":
		if err := wantArg(); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(arg)
		if err != nil {
			return nil, oops.Code("VALIDATE_RULE_ARG").
				With("rule", name).
				With("arg", arg).
				Wrap(err)
		}
		return regexRule{re: re}, nil
	default:
		return nil, oops.Code("VALIDATE_UNKNOWN_RULE").
			With("rule", name).
			Errorf("unknown validation rule %q", name)
	}
}

// fieldLabel humanizes a form field name for user-facing messages.
func fieldLabel(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
