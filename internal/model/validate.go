package model

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports user input that was rejected before anything was
// stored.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	rules := map[string]validator.Func{
		"notblank": func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
		"usage_policy":       oneOf(UsagePolicies),
		"instrument_status":  oneOf(InstrumentStatuses),
		"reservation_status": oneOf(ReservationStatuses),
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("registering %s validation: %v", tag, err))
		}
	}
	return v
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(allowed, fl.Field().String())
	}
}

// validateStruct runs the struct tags and converts the first failure into a
// ValidationError with a readable message.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating input: %w", err)
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "notblank":
		return &ValidationError{Field: field, Message: field + " is required"}
	case "usage_policy":
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid usage policy %q (want one of %s)", fe.Value(), strings.Join(UsagePolicies, ", "))}
	case "instrument_status":
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid status %q (want one of %s)", fe.Value(), strings.Join(InstrumentStatuses, ", "))}
	case "reservation_status":
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid reservation status %q (want one of %s)", fe.Value(), strings.Join(ReservationStatuses, ", "))}
	default:
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s failed %s validation", field, fe.Tag())}
	}
}
