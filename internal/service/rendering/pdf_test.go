package rendering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicekit/invoice-studio/internal/domain/invoice"
	"github.com/invoicekit/invoice-studio/internal/domain/values"
	"github.com/invoicekit/invoice-studio/internal/testutil/fixtures"
)

func renderSample(t *testing.T, inv *invoice.Invoice) []byte {
	t.Helper()
	document, err := NewPDFRenderer().Render(BuildSnapshot(inv))
	require.NoError(t, err)
	return document
}

func TestRender_ProducesPDF(t *testing.T) {
	document := renderSample(t, fixtures.SampleInvoice())

	assert.Greater(t, len(document), 500)
	assert.Equal(t, "%PDF", string(document[:4]))
}

func TestRender_DefaultInvoice(t *testing.T) {
	// A fresh session renders without any user input at all.
	document := renderSample(t, fixtures.NewInvoiceBuilder().Build())
	assert.Equal(t, "%PDF", string(document[:4]))
}

func TestRender_WithLogo(t *testing.T) {
	inv := fixtures.NewInvoiceBuilder().
		WithLogo(fixtures.PNGLogo()).
		Build()

	bare := renderSample(t, fixtures.NewInvoiceBuilder().Build())
	withLogo := renderSample(t, inv)

	assert.Greater(t, len(withLogo), len(bare), "embedded logo should grow the document")
}

func TestRender_SurvivesBadLogoBytes(t *testing.T) {
	inv := fixtures.NewInvoiceBuilder().Build()

	// Valid data URL wrapping bytes that are not a decodable PNG.
	logo, err := values.NewDataURLFromBytes("image/png", []byte("not a real png"))
	require.NoError(t, err)
	inv.SetLogo(logo)

	document := renderSample(t, inv)
	assert.Equal(t, "%PDF", string(document[:4]))
}

func TestRender_PaymentMethodsAndRates(t *testing.T) {
	inv := fixtures.SampleInvoice()
	inv.PaymentMethods = invoice.PaymentMethods{BankTransfer: true, UPI: true, PaymentLink: true}
	inv.BankDetails = invoice.BankDetails{
		BankName:      "First National",
		AccountNumber: "12345678",
		SwiftCode:     "FNBKUS33",
	}
	inv.UPIID = "acme@upi"
	inv.PaymentDetails = "https://pay.example/acme"
	inv.Notes = "Thank you for your business."

	document := renderSample(t, inv)
	assert.Equal(t, "%PDF", string(document[:4]))
}

func TestTrimZeros(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1"},
		{1.5, "1.5"},
		{2.25, "2.25"},
		{3.10, "3.1"},
		{0, "0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, trimZeros(tt.in))
	}
}

func TestLogoImageType(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/png", "PNG"},
		{"image/jpeg", "JPG"},
		{"image/jpg", "JPG"},
		{"image/gif", "GIF"},
		{"image/webp", ""},
		{"application/pdf", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, logoImageType(tt.mime))
	}
}
