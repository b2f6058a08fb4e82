package values

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with currency and precision handling
type Money struct {
	amount   decimal.Decimal
	currency string
}

// Supported currency codes (ISO 4217)
const (
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
	INR = "INR"
	JPY = "JPY"
	CAD = "CAD"
	AUD = "AUD"
)

// currencySymbols is the closed code->symbol table used for display.
var currencySymbols = map[string]string{
	USD: "$",
	EUR: "€",
	GBP: "£",
	INR: "₹",
	JPY: "¥",
	CAD: "C$",
	AUD: "A$",
}

// SupportedCurrencies returns the closed set of accepted currency codes.
func SupportedCurrencies() []string {
	return []string{USD, EUR, GBP, INR, JPY, CAD, AUD}
}

// IsSupportedCurrency reports whether code is in the closed currency set.
func IsSupportedCurrency(code string) bool {
	_, ok := currencySymbols[strings.ToUpper(code)]
	return ok
}

// CurrencySymbol resolves the display symbol for a currency code.
// Unknown codes fall back to "$".
func CurrencySymbol(code string) string {
	if symbol, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return symbol
	}
	return "$"
}

// NewMoney creates a new Money value object
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if err := validateCurrency(currency); err != nil {
		return Money{}, err
	}

	return Money{
		amount:   amount,
		currency: strings.ToUpper(currency),
	}, nil
}

// NewMoneyFromString creates Money from string amount and currency
func NewMoneyFromString(amount, currency string) (Money, error) {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount: %w", err)
	}

	return NewMoney(dec, currency)
}

// MustNewMoney creates Money and panics on error (for constants/tests)
func MustNewMoney(amount decimal.Decimal, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() string {
	return m.currency
}

// String returns the formatted money string with exactly two fraction
// digits, half-up rounded at render time (e.g. "$123.45")
func (m Money) String() string {
	return CurrencySymbol(m.currency) + m.amount.StringFixed(2)
}

// Equal checks if two Money values are equal (same amount and currency)
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount) && m.currency == other.currency
}

// ToFloat64 converts to float64 (use with caution for precision)
func (m Money) ToFloat64() float64 {
	f, _ := m.amount.Float64()
	return f
}

func validateCurrency(currency string) error {
	if currency == "" {
		return fmt.Errorf("currency cannot be empty")
	}

	if len(currency) != 3 {
		return fmt.Errorf("currency code must be 3 characters")
	}

	if !IsSupportedCurrency(currency) {
		return fmt.Errorf("unsupported currency: %s", currency)
	}

	return nil
}
