// Package validation runs go-playground/validator over request structs and
// turns the first failure into a field-specific apperr.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"myfleet/internal/apperr"
)

var (
	tenDigits = regexp.MustCompile(`^[0-9]{10}$`)
	digits    = regexp.MustCompile(`^[0-9]+$`)
)

// Validate is shared; validator caches struct metadata per instance.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return tenDigits.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digits.MatchString(fl.Field().String())
	})
	return v
}

// IsPhone reports whether s is exactly ten digits.
func IsPhone(s string) bool { return tenDigits.MatchString(s) }

// Struct validates s and returns an apperr validation error naming the first
// offending field.
func Struct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("", err.Error())
	}
	fe := verrs[0]
	return apperr.Validation(fe.Field(), message(fe))
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "phone10":
		return f + " must be exactly 10 digits"
	case "digits":
		return f + " must contain only digits"
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", f, fe.Param())
	case "min":
		if isNumber(fe.Kind()) {
			return fmt.Sprintf("%s must be at least %s", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", f, fe.Param())
	case "max":
		if isNumber(fe.Kind()) {
			return fmt.Sprintf("%s must be at most %s", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return f + " must be a valid email address"
	case "alphanum":
		return f + " must contain only letters and digits"
	}
	return f + " is invalid"
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
