// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package auth

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Field length constraints.
const (
	MinAccountIDLength   = 3
	MaxAccountIDLength   = 50
	MinDisplayNameLength = 2
	MaxDisplayNameLength = 100
	MaxEmailLength       = 254
	MinPasswordLength    = 8

	// MaxPasswordBytes is bcrypt's input limit. Counted in bytes, not runes.
	MaxPasswordBytes = bcryptMaxPasswordBytes
)

var (
	accountIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern     = regexp.MustCompile(`^[+]?[\d\s\-()]{7,15}$`)
	upperPattern     = regexp.MustCompile(`[A-Z]`)
	digitPattern     = regexp.MustCompile(`[0-9]`)
)

// NormalizeEmail returns the form of an email address used for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type patternRule struct {
	re      *regexp.Regexp
	message string
}

// fieldRule describes how one field is checked. A field yields at most one
// message: the first rule that fails wins.
type fieldRule struct {
	field       string
	normalize   func(string) string
	requiredMsg string
	minLen      int
	maxLen      int
	lengthMsg   string
	patterns    []patternRule
	extra       []validation.Rule
}

func (r fieldRule) rules() []validation.Rule {
	rules := []validation.Rule{validation.Required.Error(r.requiredMsg)}
	if r.minLen > 0 || r.maxLen > 0 {
		rules = append(rules, validation.RuneLength(r.minLen, r.maxLen).Error(r.lengthMsg))
	}
	for _, p := range r.patterns {
		rules = append(rules, validation.Match(p.re).Error(p.message))
	}
	return append(rules, r.extra...)
}

var (
	accountIDRule = fieldRule{
		field:       FieldAccountID,
		normalize:   strings.TrimSpace,
		requiredMsg: "User ID is required.",
		minLen:      MinAccountIDLength,
		maxLen:      MaxAccountIDLength,
		lengthMsg:   "User ID must be 3–50 characters.",
		patterns: []patternRule{
			{accountIDPattern, "User ID may only contain letters, numbers, and underscores."},
		},
	}
	displayNameRule = fieldRule{
		field:       FieldDisplayName,
		normalize:   strings.TrimSpace,
		requiredMsg: "Name is required.",
		minLen:      MinDisplayNameLength,
		maxLen:      MaxDisplayNameLength,
		lengthMsg:   "Name must be 2–100 characters.",
	}
	emailRule = fieldRule{
		field:       FieldEmail,
		normalize:   NormalizeEmail,
		requiredMsg: "Email is required.",
		maxLen:      MaxEmailLength,
		lengthMsg:   "Please provide a valid email address.",
		patterns: []patternRule{
			{emailPattern, "Please provide a valid email address."},
		},
	}
	phoneRule = fieldRule{
		field:       FieldPhone,
		normalize:   strings.TrimSpace,
		requiredMsg: "Phone number is required.",
		patterns: []patternRule{
			{phonePattern, "Please provide a valid phone number."},
		},
	}
	passwordRule = fieldRule{
		field:       FieldPassword,
		requiredMsg: "Password is required.",
		minLen:      MinPasswordLength,
		lengthMsg:   "Password must be at least 8 characters.",
		patterns: []patternRule{
			{upperPattern, "Password must contain at least one uppercase letter."},
			{digitPattern, "Password must contain at least one number."},
		},
		extra: []validation.Rule{maxBytes(MaxPasswordBytes, "Password must be at most 72 bytes.")},
	}
)

// Login only checks presence so accounts created under older rules can still sign in.
var (
	loginAccountIDRule = fieldRule{
		field:       FieldAccountID,
		normalize:   strings.TrimSpace,
		requiredMsg: "User ID is required.",
	}
	loginPasswordRule = fieldRule{
		field:       FieldPassword,
		requiredMsg: "Password is required.",
	}
)

// maxBytes limits the encoded length of a string value.
func maxBytes(limit int, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		if s, ok := value.(string); ok && len(s) > limit {
			return errors.New(message)
		}
		return nil
	})
}

// ValidationErrors maps a failing field to its message. Empty means valid.
type ValidationErrors map[string]string

// Ordered returns the failures in presentation order.
func (v ValidationErrors) Ordered() []FieldError {
	out := make([]FieldError, 0, len(v))
	for _, field := range fieldOrder {
		if msg, ok := v[field]; ok {
			out = append(out, FieldError{Field: field, Message: msg})
		}
	}
	return out
}

// Validator checks a map of field values against a fixed rule table.
// It is pure: no I/O, no shared state.
type Validator struct {
	rules []fieldRule
}

// NewRegistrationValidator returns the validator for new accounts.
func NewRegistrationValidator() *Validator {
	return &Validator{rules: []fieldRule{accountIDRule, displayNameRule, emailRule, phoneRule, passwordRule}}
}

// NewLoginValidator returns the presence-only validator used by login.
func NewLoginValidator() *Validator {
	return &Validator{rules: []fieldRule{loginAccountIDRule, loginPasswordRule}}
}

// Validate returns every failing field. Missing keys are treated as empty values.
func (v *Validator) Validate(fields map[string]string) ValidationErrors {
	errs := ValidationErrors{}
	for _, rule := range v.rules {
		value := fields[rule.field]
		if rule.normalize != nil {
			value = rule.normalize(value)
		}
		if err := validation.Validate(value, rule.rules()...); err != nil {
			errs[rule.field] = err.Error()
		}
	}
	return errs
}

// Normalize returns a copy of fields with each rule's normalisation applied.
// Fields without a rule are copied unchanged.
func (v *Validator) Normalize(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, val := range fields {
		out[k] = val
	}
	for _, rule := range v.rules {
		if rule.normalize != nil {
			out[rule.field] = rule.normalize(fields[rule.field])
		}
	}
	return out
}
