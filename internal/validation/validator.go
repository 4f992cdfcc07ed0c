package validation

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// ShortcodePattern is the accepted form of every shortcode, custom or generated.
var ShortcodePattern = regexp.MustCompile(`^[a-zA-Z0-9]{3,20}$`)

// FieldError names the struct field and rule that failed first.
type FieldError struct {
	Field string
	Tag   string
}

func (e *FieldError) Error() string {
	return e.Field + " failed on " + e.Tag
}

// Validator wraps a validator.Validate with the shortcode rule registered
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator
func New() *Validator {
	v := validator.New()
	// RegisterValidation only fails for an empty tag or nil func
	_ = v.RegisterValidation("shortcode", validateShortcode)
	return &Validator{validate: v}
}

// Struct validates data and returns the first failing field, or nil.
func (v *Validator) Struct(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &FieldError{Field: fieldErrs[0].Field(), Tag: fieldErrs[0].Tag()}
	}
	return err
}

// IsShortcode reports whether s is a well-formed shortcode.
func IsShortcode(s string) bool {
	return ShortcodePattern.MatchString(s)
}

func validateShortcode(fl validator.FieldLevel) bool {
	return IsShortcode(fl.Field().String())
}
