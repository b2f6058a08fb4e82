package values

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Rate is a non-negative percentage applied against a subtotal, such as a
// tax or discount rate. Degraded input (non-numeric, negative, null)
// coerces to zero rather than erroring.
type Rate struct {
	value decimal.Decimal
}

// NewRate creates a Rate from a decimal value. Negative values clamp to zero.
func NewRate(value decimal.Decimal) Rate {
	if value.IsNegative() {
		return Rate{value: decimal.Zero}
	}
	return Rate{value: value}
}

// NewRateFromFloat creates a Rate from a float64 percentage.
func NewRateFromFloat(value float64) Rate {
	return NewRate(decimal.NewFromFloat(value))
}

// ParseRate converts arbitrary scalar input into a Rate, defaulting to
// zero on anything that does not parse as a non-negative number.
func ParseRate(input any) Rate {
	switch v := input.(type) {
	case float64:
		return NewRateFromFloat(v)
	case int:
		return NewRate(decimal.NewFromInt(int64(v)))
	case int64:
		return NewRate(decimal.NewFromInt(v))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Rate{value: decimal.Zero}
		}
		return NewRateFromFloat(f)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Rate{value: decimal.Zero}
		}
		return NewRateFromFloat(f)
	default:
		return Rate{value: decimal.Zero}
	}
}

// Value returns the percentage as a decimal.
func (r Rate) Value() decimal.Decimal {
	return r.value
}

// IsZero reports whether the rate is zero percent.
func (r Rate) IsZero() bool {
	return r.value.IsZero()
}

// ApplyTo returns amount * rate / 100.
func (r Rate) ApplyTo(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.value).Div(decimal.NewFromInt(100))
}

// String returns the percentage without a trailing percent sign.
func (r Rate) String() string {
	return r.value.String()
}

// Equal checks if two rates represent the same percentage.
func (r Rate) Equal(other Rate) bool {
	return r.value.Equal(other.value)
}

// MarshalJSON renders the rate as a bare JSON number.
func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(r.value.String()), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string, or null.
// Unparsable input coerces to zero.
func (r *Rate) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*r = Rate{value: decimal.Zero}
		return nil
	}

	trimmed = strings.Trim(trimmed, `"`)
	dec, err := decimal.NewFromString(trimmed)
	if err != nil || dec.IsNegative() {
		*r = Rate{value: decimal.Zero}
		return nil
	}

	*r = Rate{value: dec}
	return nil
}
