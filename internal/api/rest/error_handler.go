package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	domainErrors "github.com/invoicekit/invoice-studio/internal/domain/errors"
)

// ErrorHandler maps errors to HTTP status codes and response bodies.
type ErrorHandler struct {
	debugMode bool
}

// NewErrorHandler creates the default error mapper.
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{}
}

// Handle converts an error into a status code and error response.
func (h *ErrorHandler) Handle(err error) (int, ErrorResponseBody) {
	if err == nil {
		return http.StatusOK, ErrorResponseBody{}
	}

	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode, ErrorResponseBody{
			Error: ErrorDetail{
				Code:    appErr.Code,
				Message: appErr.Message,
				Details: appErr.Details,
			},
		}
	}

	var validationErr *RequestValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, ErrorResponseBody{
			Error: ErrorDetail{
				Code:    "VALIDATION_FAILED",
				Message: validationErr.Message,
				Fields:  validationErr.Fields,
			},
		}
	}

	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, simpleError("REQUEST_CANCELED", "Request was canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout, simpleError("REQUEST_TIMEOUT", "Request timed out")
	}

	var jsonErr *json.SyntaxError
	if errors.As(err, &jsonErr) {
		return http.StatusBadRequest, simpleError("INVALID_JSON",
			fmt.Sprintf("Invalid JSON syntax at position %d", jsonErr.Offset))
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return http.StatusBadRequest, simpleError("TYPE_MISMATCH",
			fmt.Sprintf("Invalid type for field '%s'", typeErr.Field))
	}

	message := "An internal error occurred"
	if h.debugMode {
		message = err.Error()
	}

	return http.StatusInternalServerError, simpleError("INTERNAL_ERROR", message)
}

func simpleError(code, message string) ErrorResponseBody {
	return ErrorResponseBody{Error: ErrorDetail{Code: code, Message: message}}
}
