package invoice

import (
	"time"

	"github.com/invoicekit/invoice-studio/internal/domain/values"
)

// DateLayout is the ISO 8601 calendar-date layout used for issue and due dates.
const DateLayout = "2006-01-02"

// DefaultTermsAndConditions is the boilerplate placed on every new invoice.
const DefaultTermsAndConditions = "Payment is due within 30 days. Please make checks payable to your company name or use the electronic payment information provided on the invoice."

// DefaultNetDays is how far the due date sits past the issue date at creation.
const DefaultNetDays = 30

// Invoice is the single root record for one invoice session. It is mutated
// only by replacement: through ApplyPatch and the line-item operations.
type Invoice struct {
	InvoiceNumber string `json:"invoiceNumber"`
	IssueDate     string `json:"issueDate"`
	DueDate       string `json:"dueDate"`
	PaymentTerms  string `json:"paymentTerms"`
	Currency      string `json:"currency"`

	// Issuing party
	CompanyName    string          `json:"companyName"`
	CompanyAddress string          `json:"companyAddress"`
	CompanyEmail   string          `json:"companyEmail"`
	CompanyPhone   string          `json:"companyPhone"`
	CompanyTaxID   string          `json:"companyTaxId"`
	CompanyLogo    *values.DataURL `json:"companyLogo"`

	// Billed party
	ClientName    string `json:"clientName"`
	ClientAddress string `json:"clientAddress"`
	ClientEmail   string `json:"clientEmail"`
	ClientPhone   string `json:"clientPhone"`
	ClientTaxID   string `json:"clientTaxId"`

	// Never empty; the last item cannot be removed.
	Items []LineItem `json:"items"`

	TaxRate      values.Rate `json:"taxRate"`
	DiscountRate values.Rate `json:"discountRate"`

	Notes              string `json:"notes"`
	TermsAndConditions string `json:"termsAndConditions"`

	PaymentMethods PaymentMethods `json:"paymentMethods"`
	// PaymentDetails doubles as the payment-link URL when the
	// paymentLink flag is set.
	PaymentDetails      string      `json:"paymentDetails"`
	BankDetails         BankDetails `json:"bankDetails"`
	UPIID               string      `json:"upiId"`
	PaypalID            string      `json:"paypalId"`
	CryptoWalletAddress string      `json:"cryptoWalletAddress"`
	CashInstructions    string      `json:"cashInstructions"`
}

// PaymentMethods is a fixed set of six independent flags. Any subset may be
// active at once.
type PaymentMethods struct {
	BankTransfer bool `json:"bankTransfer"`
	UPI          bool `json:"upi"`
	Crypto       bool `json:"crypto"`
	PayPal       bool `json:"paypal"`
	Cash         bool `json:"cash"`
	PaymentLink  bool `json:"paymentLink"`
}

// BankDetails carries the bank-transfer group. All fields optional free text.
type BankDetails struct {
	BankName          string `json:"bankName"`
	AccountHolderName string `json:"accountHolderName"`
	AccountNumber     string `json:"accountNumber"`
	AccountType       string `json:"accountType"`
	SwiftCode         string `json:"swiftCode"`
}

// New creates an invoice with session-start defaults: today as issue date,
// +30 days as due date, one empty line item, boilerplate terms, all payment
// flags off.
func New(now time.Time) *Invoice {
	return &Invoice{
		InvoiceNumber:      "001",
		IssueDate:          now.Format(DateLayout),
		DueDate:            now.AddDate(0, 0, DefaultNetDays).Format(DateLayout),
		PaymentTerms:       "Net 30 days",
		Currency:           values.USD,
		Items:              []LineItem{{ID: 1, Description: "", Quantity: 1, Price: 0}},
		Notes:              "",
		TermsAndConditions: DefaultTermsAndConditions,
	}
}

// Clone returns a deep copy. Items are copied so callers can hand the result
// out without aliasing the live record.
func (inv *Invoice) Clone() *Invoice {
	dup := *inv
	dup.Items = make([]LineItem, len(inv.Items))
	copy(dup.Items, inv.Items)
	if inv.CompanyLogo != nil {
		logo := *inv.CompanyLogo
		dup.CompanyLogo = &logo
	}
	return &dup
}

// SetLogo embeds the logo data URL, replacing any existing one.
func (inv *Invoice) SetLogo(logo values.DataURL) {
	inv.CompanyLogo = &logo
}

// ClearLogo removes the logo. Absent is a distinct state from empty.
func (inv *Invoice) ClearLogo() {
	inv.CompanyLogo = nil
}
