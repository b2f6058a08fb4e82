package fixtures

import (
	"time"

	"github.com/invoicekit/invoice-studio/internal/domain/invoice"
	"github.com/invoicekit/invoice-studio/internal/domain/values"
)

// FixedNow is the reference clock used by invoice fixtures so date-derived
// fields stay deterministic.
var FixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

// InvoiceBuilder builds test invoices on top of the session defaults.
type InvoiceBuilder struct {
	inv *invoice.Invoice
}

// NewInvoiceBuilder starts from the defaults a fresh session would have.
func NewInvoiceBuilder() *InvoiceBuilder {
	return &InvoiceBuilder{inv: invoice.New(FixedNow)}
}

func (b *InvoiceBuilder) WithNumber(number string) *InvoiceBuilder {
	b.inv.InvoiceNumber = number
	return b
}

func (b *InvoiceBuilder) WithCurrency(code string) *InvoiceBuilder {
	b.inv.Currency = code
	return b
}

func (b *InvoiceBuilder) WithParties(company, client string) *InvoiceBuilder {
	b.inv.CompanyName = company
	b.inv.ClientName = client
	return b
}

// WithItems replaces the default empty row wholesale.
func (b *InvoiceBuilder) WithItems(items ...invoice.LineItem) *InvoiceBuilder {
	b.inv.Items = items
	return b
}

func (b *InvoiceBuilder) WithTaxRate(percent float64) *InvoiceBuilder {
	b.inv.TaxRate = values.NewRateFromFloat(percent)
	return b
}

func (b *InvoiceBuilder) WithDiscountRate(percent float64) *InvoiceBuilder {
	b.inv.DiscountRate = values.NewRateFromFloat(percent)
	return b
}

func (b *InvoiceBuilder) WithLogo(logo values.DataURL) *InvoiceBuilder {
	b.inv.SetLogo(logo)
	return b
}

func (b *InvoiceBuilder) WithPaymentMethods(methods invoice.PaymentMethods) *InvoiceBuilder {
	b.inv.PaymentMethods = methods
	return b
}

func (b *InvoiceBuilder) Build() *invoice.Invoice {
	return b.inv.Clone()
}

// Item is shorthand for a line item literal in table tests.
func Item(id int, desc string, qty, price float64) invoice.LineItem {
	return invoice.LineItem{ID: id, Description: desc, Quantity: qty, Price: price}
}

// SampleInvoice is a filled-in invoice exercised by calculation and
// rendering tests: subtotal 30.00, 10% tax, 5% discount.
func SampleInvoice() *invoice.Invoice {
	return NewInvoiceBuilder().
		WithNumber("INV-042").
		WithParties("Acme Studios LLC", "Globex Corporation").
		WithItems(
			Item(1, "Design work", 2, 10),
			Item(2, "Hosting", 1, 10),
		).
		WithTaxRate(10).
		WithDiscountRate(5).
		Build()
}

// PNGLogo returns a tiny valid data URL for logo round-trip tests.
func PNGLogo() values.DataURL {
	// 1x1 transparent PNG.
	payload := []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
		0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89, 0x00, 0x00, 0x00,
		0x0D, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, 0x00, 0x00, 0x00, 0x49,
		0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
	}
	logo, err := values.NewDataURLFromBytes("image/png", payload)
	if err != nil {
		panic(err)
	}
	return logo
}
