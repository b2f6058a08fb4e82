// Package calculation derives the financial figures for an invoice. All
// functions are pure and cheap enough to run on every edit; line-item counts
// are tens, not thousands, so nothing here is cached.
package calculation

import (
	"github.com/shopspring/decimal"

	"github.com/invoicekit/invoice-studio/internal/domain/invoice"
	"github.com/invoicekit/invoice-studio/internal/domain/values"
)

// Totals is the derived-figures snapshot for one invoice state.
type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// Subtotal sums quantity x price over all line items. An empty sequence
// yields zero.
func Subtotal(items []invoice.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount())
	}
	return sum
}

// TaxAmount returns subtotal * taxRate / 100.
func TaxAmount(subtotal decimal.Decimal, taxRate values.Rate) decimal.Decimal {
	return taxRate.ApplyTo(subtotal)
}

// DiscountAmount returns subtotal * discountRate / 100.
func DiscountAmount(subtotal decimal.Decimal, discountRate values.Rate) decimal.Decimal {
	return discountRate.ApplyTo(subtotal)
}

// Total returns subtotal + tax - discount. Tax and discount are both taken
// against the pre-discount subtotal; the discount does not reduce the tax
// base. That ordering is a deliberate simplification and must not change.
func Total(subtotal, tax, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Sub(discount)
}

// Compute derives all four figures from the current invoice state.
func Compute(inv *invoice.Invoice) Totals {
	subtotal := Subtotal(inv.Items)
	tax := TaxAmount(subtotal, inv.TaxRate)
	discount := DiscountAmount(subtotal, inv.DiscountRate)

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: discount,
		Total:          Total(subtotal, tax, discount),
	}
}

// Money views of the totals, in the invoice currency. Unknown codes keep the
// zero value out of Money's constructor, so amounts fall back to USD.
func (t Totals) SubtotalMoney(currency string) values.Money {
	return asMoney(t.Subtotal, currency)
}

func (t Totals) TaxMoney(currency string) values.Money {
	return asMoney(t.TaxAmount, currency)
}

func (t Totals) DiscountMoney(currency string) values.Money {
	return asMoney(t.DiscountAmount, currency)
}

func (t Totals) TotalMoney(currency string) values.Money {
	return asMoney(t.Total, currency)
}

// LineAmount returns one line item's derived amount as Money in the invoice
// currency, with the same USD fallback as the totals views.
func LineAmount(item invoice.LineItem, currency string) values.Money {
	return asMoney(item.Amount(), currency)
}

func asMoney(amount decimal.Decimal, currency string) values.Money {
	m, err := values.NewMoney(amount, currency)
	if err != nil {
		return values.MustNewMoney(amount, values.USD)
	}
	return m
}
