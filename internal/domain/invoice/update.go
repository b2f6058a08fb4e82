package invoice

import (
	"encoding/json"

	"github.com/invoicekit/invoice-studio/internal/domain/errors"
	"github.com/invoicekit/invoice-studio/internal/domain/values"
)

// Patch is a partial set of top-level invoice fields. Merge semantics are
// shallow: a nested group (paymentMethods, bankDetails) present in a patch
// replaces the whole group, so callers that want to flip one flag must send
// the full group with the one key changed. A patch that names a nested group
// without the other keys silently drops them; that is the contract, not a bug.
type Patch map[string]json.RawMessage

// ApplyPatch merges the patch into the invoice. Fields not mentioned are
// preserved. The patch applies atomically: on any error the invoice is left
// untouched.
func (inv *Invoice) ApplyPatch(patch Patch) error {
	work := inv.Clone()

	for field, raw := range patch {
		if err := work.applyField(field, raw); err != nil {
			return err
		}
	}

	*inv = *work
	return nil
}

func (inv *Invoice) applyField(field string, raw json.RawMessage) error {
	switch field {
	case "invoiceNumber":
		return setString(&inv.InvoiceNumber, field, raw)
	case "issueDate":
		return setString(&inv.IssueDate, field, raw)
	case "dueDate":
		return setString(&inv.DueDate, field, raw)
	case "paymentTerms":
		return setString(&inv.PaymentTerms, field, raw)
	case "currency":
		return inv.setCurrency(raw)
	case "companyName":
		return setString(&inv.CompanyName, field, raw)
	case "companyAddress":
		return setString(&inv.CompanyAddress, field, raw)
	case "companyEmail":
		return setString(&inv.CompanyEmail, field, raw)
	case "companyPhone":
		return setString(&inv.CompanyPhone, field, raw)
	case "companyTaxId":
		return setString(&inv.CompanyTaxID, field, raw)
	case "companyLogo":
		return inv.setLogoField(raw)
	case "clientName":
		return setString(&inv.ClientName, field, raw)
	case "clientAddress":
		return setString(&inv.ClientAddress, field, raw)
	case "clientEmail":
		return setString(&inv.ClientEmail, field, raw)
	case "clientPhone":
		return setString(&inv.ClientPhone, field, raw)
	case "clientTaxId":
		return setString(&inv.ClientTaxID, field, raw)
	case "taxRate":
		// Rate coerces degraded input to zero, never errors.
		return json.Unmarshal(raw, &inv.TaxRate)
	case "discountRate":
		return json.Unmarshal(raw, &inv.DiscountRate)
	case "notes":
		return setString(&inv.Notes, field, raw)
	case "termsAndConditions":
		return setString(&inv.TermsAndConditions, field, raw)
	case "paymentMethods":
		// Whole-group replacement; flags absent from the patch reset.
		var methods PaymentMethods
		if err := json.Unmarshal(raw, &methods); err != nil {
			return typeMismatch(field, err)
		}
		inv.PaymentMethods = methods
		return nil
	case "paymentDetails":
		return setString(&inv.PaymentDetails, field, raw)
	case "bankDetails":
		var details BankDetails
		if err := json.Unmarshal(raw, &details); err != nil {
			return typeMismatch(field, err)
		}
		inv.BankDetails = details
		return nil
	case "upiId":
		return setString(&inv.UPIID, field, raw)
	case "paypalId":
		return setString(&inv.PaypalID, field, raw)
	case "cryptoWalletAddress":
		return setString(&inv.CryptoWalletAddress, field, raw)
	case "cashInstructions":
		return setString(&inv.CashInstructions, field, raw)
	case "items":
		return errors.NewValidationError("ITEMS_NOT_PATCHABLE",
			"Line items change through the item operations, not merge updates")
	default:
		return errors.NewValidationError("UNKNOWN_FIELD", "Unknown invoice field").
			WithDetails(map[string]interface{}{"field": field})
	}
}

func (inv *Invoice) setCurrency(raw json.RawMessage) error {
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		return typeMismatch("currency", err)
	}

	if !values.IsSupportedCurrency(code) {
		return errors.NewValidationError("UNSUPPORTED_CURRENCY", "Currency code is not supported").
			WithDetails(map[string]interface{}{"currency": code})
	}

	inv.Currency = code
	return nil
}

func (inv *Invoice) setLogoField(raw json.RawMessage) error {
	if string(raw) == "null" {
		inv.ClearLogo()
		return nil
	}

	var logo values.DataURL
	if err := json.Unmarshal(raw, &logo); err != nil {
		return errors.NewValidationError("INVALID_LOGO", "Logo must be a base64 data URL or null").WithCause(err)
	}

	inv.SetLogo(logo)
	return nil
}

func setString(dst *string, field string, raw json.RawMessage) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return typeMismatch(field, err)
	}
	*dst = s
	return nil
}

func typeMismatch(field string, err error) error {
	return errors.NewValidationError("TYPE_MISMATCH", "Invalid value for field "+field).WithCause(err)
}
