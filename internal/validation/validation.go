// Package validation checks user input before anything is sent to the backend.
package validation

import (
	stderrors "errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s.'-]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	phoneStrip   = regexp.MustCompile(`[^\d+]`)
)

var (
	once     sync.Once
	validate *validator.Validate
)

// instance returns the shared validator with the custom tags registered
func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name, _, _ := strings.Cut(f.Tag.Get("form"), ","); name != "" && name != "-" {
				return name
			}
			return f.Name
		})

		mustRegister(v, "email_addr", func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "person_name", func(fl validator.FieldLevel) bool {
			return namePattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "letter_digit", func(fl validator.FieldLevel) bool {
			return hasLetterAndDigit(fl.Field().String())
		})
		mustRegister(v, "phone_e164", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(NormalizePhone(fl.Field().String()))
		})
		mustRegister(v, "notblank", validators.NotBlank)

		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func hasLetterAndDigit(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// NormalizePhone drops everything but digits and a leading plus
func NormalizePhone(phone string) string {
	return phoneStrip.ReplaceAllString(phone, "")
}

// FieldErrors maps a form field name to the message shown next to it
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return strings.Join(parts, "; ")
}

// Has reports whether field failed validation
func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// First returns the message for the first field in order that failed
func (e FieldErrors) First(order ...string) string {
	for _, field := range order {
		if msg, ok := e[field]; ok {
			return msg
		}
	}
	for _, msg := range e {
		return msg
	}
	return ""
}

// messages is keyed by "field.tag"; a bare field key is the fallback for any tag
type messages map[string]string

func (m messages) lookup(field, tag string) string {
	if msg, ok := m[field+"."+tag]; ok {
		return msg
	}
	if msg, ok := m[field]; ok {
		return msg
	}
	return "Invalid value"
}

// check validates form and translates failures through msgs.
// Returns nil when the form is valid.
func check(form any, msgs messages) FieldErrors {
	err := instance().Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return FieldErrors{"form": err.Error()}
	}

	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = msgs.lookup(field, fe.Tag())
	}
	return out
}
