// Package rendering turns an invoice plus its derived totals into the
// artifacts the outside world consumes: a preview snapshot and a paginated
// PDF document.
package rendering

import (
	"fmt"
	"time"

	"github.com/invoicekit/invoice-studio/internal/domain/invoice"
	"github.com/invoicekit/invoice-studio/internal/domain/values"
	"github.com/invoicekit/invoice-studio/internal/service/calculation"
)

// Amount pairs a numeric value with its display form ("$30.00").
type Amount struct {
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

// Line is a line item with its derived amount.
type Line struct {
	invoice.LineItem
	Amount Amount `json:"amount"`
}

// Snapshot is the complete, internally consistent view handed to renderers:
// the model state plus every derived figure, formatted for display.
type Snapshot struct {
	Invoice        invoice.Invoice `json:"invoice"`
	Lines          []Line          `json:"lines"`
	Subtotal       Amount          `json:"subtotal"`
	TaxAmount      Amount          `json:"taxAmount"`
	DiscountAmount Amount          `json:"discountAmount"`
	Total          Amount          `json:"total"`
	CurrencySymbol string          `json:"currencySymbol"`
	IssueDateText  string          `json:"issueDateText"`
	DueDateText    string          `json:"dueDateText"`
	DocumentName   string          `json:"documentName"`
}

// BuildSnapshot computes totals for the invoice and assembles the snapshot.
// All figures are formatted through the Money value object, so display rules
// (symbol lookup, two fraction digits, USD fallback) live in one place.
func BuildSnapshot(inv *invoice.Invoice) *Snapshot {
	totals := calculation.Compute(inv)

	lines := make([]Line, len(inv.Items))
	for i, item := range inv.Items {
		lines[i] = Line{
			LineItem: item,
			Amount:   formatAmount(calculation.LineAmount(item, inv.Currency)),
		}
	}

	return &Snapshot{
		Invoice:        *inv.Clone(),
		Lines:          lines,
		Subtotal:       formatAmount(totals.SubtotalMoney(inv.Currency)),
		TaxAmount:      formatAmount(totals.TaxMoney(inv.Currency)),
		DiscountAmount: formatAmount(totals.DiscountMoney(inv.Currency)),
		Total:          formatAmount(totals.TotalMoney(inv.Currency)),
		CurrencySymbol: values.CurrencySymbol(inv.Currency),
		IssueDateText:  FormatDate(inv.IssueDate),
		DueDateText:    FormatDate(inv.DueDate),
		DocumentName:   DocumentName(inv),
	}
}

// DocumentName is the download filename for the invoice, keyed by its
// user-defined number.
func DocumentName(inv *invoice.Invoice) string {
	return fmt.Sprintf("Invoice_%s.pdf", inv.InvoiceNumber)
}

// FormatDate renders an ISO date string for display. Empty or unparsable
// input renders as an empty string, never an error.
func FormatDate(dateStr string) string {
	if dateStr == "" {
		return ""
	}

	parsed, err := time.Parse(invoice.DateLayout, dateStr)
	if err != nil {
		return ""
	}

	return parsed.Format("1/2/2006")
}

func formatAmount(m values.Money) Amount {
	return Amount{
		Value:     m.ToFloat64(),
		Formatted: m.String(),
	}
}
