package rest

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// UpdateItemRequest changes one field on one line item. Quantity and price
// values coerce numeric-parse-or-zero downstream, so Value is deliberately
// untyped here.
type UpdateItemRequest struct {
	Field string `json:"field" validate:"required,oneof=description quantity price"`
	Value any    `json:"value"`
}

// RequestValidationError carries field-level validation failures.
type RequestValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *RequestValidationError) Error() string {
	return e.Message
}

func newRequestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// formatValidationError converts validator errors to our format
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string][]string)

		for _, fe := range validationErrors {
			var msg string
			switch fe.Tag() {
			case "required":
				msg = "This field is required"
			case "oneof":
				msg = fmt.Sprintf("Must be one of: %s", fe.Param())
			default:
				msg = fmt.Sprintf("Failed %s validation", fe.Tag())
			}
			fields[fe.Field()] = append(fields[fe.Field()], msg)
		}

		return &RequestValidationError{
			Message: "Validation failed",
			Fields:  fields,
		}
	}

	return &RequestValidationError{Message: "Validation error"}
}
