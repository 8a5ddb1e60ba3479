// Package validation holds the form rules checked before any backend call.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern  = regexp.MustCompile(`^0[35789][0-9]{8}$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

const passwordSpecials = "@$!%*?&()[]{}^#<>"

// MinPasswordLength is the signup password floor.
const MinPasswordLength = 12

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "vnphone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	mustRegister(v, "strongpwd", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	mustRegister(v, "digits", func(fl validator.FieldLevel) bool {
		return digitsPattern.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

// ValidPhone reports whether s is a domestic mobile number: 0, then one of
// 3 5 7 8 9, then eight digits.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// StrongPassword requires MinPasswordLength characters with an upper and a
// lower case letter, a digit and one of passwordSpecials.
func StrongPassword(s string) bool {
	if len([]rune(s)) < MinPasswordLength {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// Error is a failed client-side check. Fields maps a form field to its message.
type Error struct {
	Fields map[string]string
	order  []string
}

func (e *Error) Error() string {
	if len(e.order) == 0 {
		return "invalid input"
	}
	return e.Fields[e.order[0]]
}

// Messages lists every field message in declaration order.
func (e *Error) Messages() []string {
	out := make([]string, 0, len(e.order))
	for _, f := range e.order {
		out = append(out, e.Fields[f])
	}
	return out
}

// Add records a message for field, keeping the first one per field.
func (e *Error) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = msg
	e.order = append(e.order, field)
}

// Fail builds a one-field Error.
func Fail(field, msg string) *Error {
	e := &Error{}
	e.Add(field, msg)
	return e
}

// Struct validates v against its `validate` tags. Field names in messages
// come from the `form` tag when present.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &Error{}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

func message(fe validator.FieldError) string {
	field := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Please enter a valid email address"
	case "vnphone":
		return "Please enter a valid Vietnamese phone number"
	case "strongpwd":
		return fmt.Sprintf("Password must be at least %d characters and include upper and lower case letters, a number and a special character", MinPasswordLength)
	case "digits":
		return field + " must contain digits only"
	case "len":
		return fmt.Sprintf("%s must be %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "eqfield":
		return "Passwords do not match"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "ltefield":
		return fmt.Sprintf("%s must not exceed %s", field, humanize(fe.Param()))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return field + " is invalid"
	}
}

func humanize(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i == 0 {
			r = unicode.ToUpper(r)
		} else if unicode.IsUpper(r) {
			b.WriteByte(' ')
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
