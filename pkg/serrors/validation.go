package serrors

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors maps struct field names to their validation errors.
type ValidationErrors map[string]*BaseError

// Messages flattens validation errors into a field -> message map suitable for
// API responses.
func (v ValidationErrors) Messages() map[string]string {
	out := make(map[string]string, len(v))
	for field, err := range v {
		out[field] = err.Message
	}
	return out
}

// ProcessValidatorErrors converts go-playground validator errors into coded
// base errors. keyFn maps a struct field name to a presentation lookup key and
// may return "" when none applies.
func ProcessValidatorErrors(errs validator.ValidationErrors, keyFn func(field string) string) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		out[field] = NewError(
			fmt.Sprintf("VALIDATION_%s", fe.Tag()),
			validationMessage(fe),
			keyFn(field),
		)
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation on %s", fe.Field(), fe.Tag())
	}
}
