package rendering

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/invoicekit/invoice-studio/internal/domain/invoice"
)

// PDFRenderer produces the downloadable A4 document for a snapshot.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render builds the paginated PDF for the snapshot.
func (r *PDFRenderer) Render(snap *Snapshot) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	r.renderHeader(pdf, tr, snap)
	r.renderParties(pdf, tr, snap)
	r.renderItems(pdf, tr, snap)
	r.renderTotals(pdf, tr, snap)
	r.renderPaymentMethods(pdf, tr, snap)
	r.renderFooter(pdf, tr, snap)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}

	return buf.Bytes(), nil
}

func (r *PDFRenderer) renderHeader(pdf *gofpdf.Fpdf, tr func(string) string, snap *Snapshot) {
	inv := &snap.Invoice

	if inv.CompanyLogo != nil {
		r.placeLogo(pdf, inv)
	}

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(100, 10, "INVOICE", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(80, 10, tr("#"+inv.InvoiceNumber), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(100, 5, tr("Currency: "+inv.Currency), "", 1, "L", false, 0, "")

	if snap.IssueDateText != "" {
		pdf.CellFormat(100, 5, tr("Issue Date: "+snap.IssueDateText), "", 1, "L", false, 0, "")
	}
	if snap.DueDateText != "" {
		pdf.CellFormat(100, 5, tr("Due Date: "+snap.DueDateText), "", 1, "L", false, 0, "")
	}
	if inv.PaymentTerms != "" {
		pdf.CellFormat(100, 5, tr("Terms: "+inv.PaymentTerms), "", 1, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
}

func (r *PDFRenderer) placeLogo(pdf *gofpdf.Fpdf, inv *invoice.Invoice) {
	content, err := inv.CompanyLogo.Bytes()
	if err != nil {
		return
	}

	imageType := logoImageType(inv.CompanyLogo.MIMEType())
	if imageType == "" {
		return
	}

	opts := gofpdf.ImageOptions{ImageType: imageType, ReadDpi: true}
	pdf.RegisterImageOptionsReader("company-logo", opts, bytes.NewReader(content))
	if pdf.Err() {
		// Undecodable image data; the document renders without the logo.
		pdf.ClearError()
		return
	}

	pdf.ImageOptions("company-logo", 160, 10, 35, 0, false, opts, 0, "")
}

func logoImageType(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return "PNG"
	case "image/jpeg", "image/jpg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}

func (r *PDFRenderer) renderParties(pdf *gofpdf.Fpdf, tr func(string) string, snap *Snapshot) {
	inv := &snap.Invoice

	y := pdf.GetY()
	r.renderParty(pdf, tr, 10, y, "From", inv.CompanyName, inv.CompanyAddress,
		inv.CompanyEmail, inv.CompanyPhone, inv.CompanyTaxID)
	endLeft := pdf.GetY()

	pdf.SetXY(110, y)
	r.renderParty(pdf, tr, 110, y, "Bill To", inv.ClientName, inv.ClientAddress,
		inv.ClientEmail, inv.ClientPhone, inv.ClientTaxID)
	endRight := pdf.GetY()

	if endLeft > endRight {
		pdf.SetY(endLeft)
	}
	pdf.Ln(6)
}

func (r *PDFRenderer) renderParty(pdf *gofpdf.Fpdf, tr func(string) string, x, y float64, label, name, address, email, phone, taxID string) {
	pdf.SetXY(x, y)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(90, 5, label, "", 2, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(90, 6, tr(name), "", 2, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	if address != "" {
		pdf.MultiCell(90, 4.5, tr(address), "", "L", false)
		pdf.SetX(x)
	}
	for _, line := range []string{email, phone} {
		if line != "" {
			pdf.CellFormat(90, 4.5, tr(line), "", 2, "L", false, 0, "")
		}
	}
	if taxID != "" {
		pdf.CellFormat(90, 4.5, tr("Tax ID: "+taxID), "", 2, "L", false, 0, "")
	}
}

func (r *PDFRenderer) renderItems(pdf *gofpdf.Fpdf, tr func(string) string, snap *Snapshot) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(95, 7, "Description", "B", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "B", 0, "R", true, 0, "")
	pdf.CellFormat(35, 7, "Price", "B", 0, "R", true, 0, "")
	pdf.CellFormat(40, 7, "Amount", "B", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range snap.Lines {
		pdf.CellFormat(95, 6.5, tr(line.Description), "B", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6.5, trimZeros(line.Quantity), "B", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6.5, tr(fmt.Sprintf("%s%.2f", snap.CurrencySymbol, line.Price)), "B", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6.5, tr(line.Amount.Formatted), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(3)
}

func trimZeros(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func (r *PDFRenderer) renderTotals(pdf *gofpdf.Fpdf, tr func(string) string, snap *Snapshot) {
	inv := &snap.Invoice

	r.totalRow(pdf, tr, "Subtotal", snap.Subtotal.Formatted, false)
	if !inv.DiscountRate.IsZero() {
		r.totalRow(pdf, tr, fmt.Sprintf("Discount (%s%%)", inv.DiscountRate), "-"+snap.DiscountAmount.Formatted, false)
	}
	if !inv.TaxRate.IsZero() {
		r.totalRow(pdf, tr, fmt.Sprintf("Tax (%s%%)", inv.TaxRate), snap.TaxAmount.Formatted, false)
	}
	r.totalRow(pdf, tr, "Total", snap.Total.Formatted, true)
	pdf.Ln(6)
}

func (r *PDFRenderer) totalRow(pdf *gofpdf.Fpdf, tr func(string) string, label, amount string, emphasized bool) {
	if emphasized {
		pdf.SetFont("Helvetica", "B", 11)
	} else {
		pdf.SetFont("Helvetica", "", 9)
	}
	pdf.CellFormat(115, 6, "", "", 0, "L", false, 0, "")
	border := ""
	if emphasized {
		border = "T"
	}
	pdf.CellFormat(35, 6, tr(label), border, 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, tr(amount), border, 1, "R", false, 0, "")
}

func (r *PDFRenderer) renderPaymentMethods(pdf *gofpdf.Fpdf, tr func(string) string, snap *Snapshot) {
	inv := &snap.Invoice
	methods := inv.PaymentMethods
	if !methods.BankTransfer && !methods.UPI && !methods.Crypto &&
		!methods.PayPal && !methods.Cash && !methods.PaymentLink {
		return
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(190, 6, "Payment Information", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)

	if methods.BankTransfer {
		details := inv.BankDetails
		pdf.CellFormat(190, 5, "Bank Transfer", "", 1, "L", false, 0, "")
		for _, pair := range [][2]string{
			{"Bank", details.BankName},
			{"Account Holder", details.AccountHolderName},
			{"Account Number", details.AccountNumber},
			{"Account Type", details.AccountType},
			{"SWIFT", details.SwiftCode},
		} {
			if pair[1] != "" {
				pdf.CellFormat(190, 4.5, tr("  "+pair[0]+": "+pair[1]), "", 1, "L", false, 0, "")
			}
		}
	}
	if methods.UPI {
		pdf.CellFormat(190, 5, tr("UPI: "+inv.UPIID), "", 1, "L", false, 0, "")
	}
	if methods.PayPal {
		pdf.CellFormat(190, 5, tr("PayPal: "+inv.PaypalID), "", 1, "L", false, 0, "")
	}
	if methods.Crypto {
		pdf.CellFormat(190, 5, tr("Crypto Wallet: "+inv.CryptoWalletAddress), "", 1, "L", false, 0, "")
	}
	if methods.Cash {
		pdf.CellFormat(190, 5, tr("Cash: "+inv.CashInstructions), "", 1, "L", false, 0, "")
	}
	if methods.PaymentLink {
		pdf.CellFormat(190, 5, tr("Payment Link: "+inv.PaymentDetails), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (r *PDFRenderer) renderFooter(pdf *gofpdf.Fpdf, tr func(string) string, snap *Snapshot) {
	inv := &snap.Invoice

	if inv.Notes != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(190, 6, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(190, 4.5, tr(inv.Notes), "", "L", false)
		pdf.Ln(3)
	}

	if inv.TermsAndConditions != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(190, 6, "Terms & Conditions", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(190, 4, tr(inv.TermsAndConditions), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
}
