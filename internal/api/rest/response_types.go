package rest

import (
	"github.com/google/uuid"

	"github.com/invoicekit/invoice-studio/internal/domain/invoice"
	"github.com/invoicekit/invoice-studio/internal/service/calculation"
)

// SessionResponse is the standard envelope for session state.
type SessionResponse struct {
	SessionID uuid.UUID       `json:"sessionId"`
	Invoice   invoice.Invoice `json:"invoice"`
}

// TotalsResponse carries the four derived financial figures.
type TotalsResponse struct {
	Subtotal       float64 `json:"subtotal"`
	TaxAmount      float64 `json:"taxAmount"`
	DiscountAmount float64 `json:"discountAmount"`
	Total          float64 `json:"total"`
}

// NewTotalsResponse converts derived totals to their wire form.
func NewTotalsResponse(t calculation.Totals) TotalsResponse {
	return TotalsResponse{
		Subtotal:       t.Subtotal.InexactFloat64(),
		TaxAmount:      t.TaxAmount.InexactFloat64(),
		DiscountAmount: t.DiscountAmount.InexactFloat64(),
		Total:          t.Total.InexactFloat64(),
	}
}

// ErrorResponseBody is the error envelope for all failed requests.
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail provides structured error information.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Fields  map[string][]string    `json:"fields,omitempty"`
}
