package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
)

// NewValidator returns a validator that reports JSON field names and knows
// the roster specific rules.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return validPhone(fl.Field().String())
	})
	return v
}

// validPhone accepts 10 to 15 digits with any separators in between.
func validPhone(raw string) bool {
	digits := 0
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 10 && digits <= 15
}

// validationError converts validator output into a 422 with per-field details.
func validationError(err error, message string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	details := make([]appErrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, appErrors.FieldError{Field: fe.Field(), Reason: fieldReason(fe)})
	}
	return appErrors.WithDetails(appErrors.ErrValidation, message, details...)
}

func fieldReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "phone":
		return "must contain 10 to 15 digits"
	case "dive", "unique":
		return "contains duplicate entries"
	}
	return "is invalid"
}
