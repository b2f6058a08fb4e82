package invoice

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/invoicekit/invoice-studio/internal/domain/errors"
)

// LineItem is one billable row. Amount is derived, never stored.
type LineItem struct {
	ID          int     `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
}

// Updatable line-item fields.
const (
	ItemFieldDescription = "description"
	ItemFieldQuantity    = "quantity"
	ItemFieldPrice       = "price"
)

// Amount returns quantity x price for this row.
func (li LineItem) Amount() decimal.Decimal {
	return decimal.NewFromFloat(li.Quantity).Mul(decimal.NewFromFloat(li.Price))
}

// AddItem appends a default row with a fresh id and returns it. Ids are
// max(existing)+1 and never reused within a session.
func (inv *Invoice) AddItem() LineItem {
	item := LineItem{ID: nextItemID(inv.Items), Description: "", Quantity: 1, Price: 0}
	inv.Items = append(inv.Items, item)
	return item
}

// UpdateItem replaces one field on the item with the given id. Quantity and
// price coerce numeric-parse-or-zero; description stringifies.
func (inv *Invoice) UpdateItem(id int, field string, value any) (LineItem, error) {
	idx := inv.itemIndex(id)
	if idx < 0 {
		return LineItem{}, errors.ErrLineItemNotFound
	}

	item := inv.Items[idx]
	switch field {
	case ItemFieldDescription:
		item.Description = coerceString(value)
	case ItemFieldQuantity:
		item.Quantity = coerceNumber(value)
	case ItemFieldPrice:
		item.Price = coerceNumber(value)
	default:
		return LineItem{}, errors.NewValidationError("UNKNOWN_ITEM_FIELD", "Unknown line item field").
			WithDetails(map[string]interface{}{"field": field})
	}

	inv.Items[idx] = item
	return item, nil
}

// RemoveItem filters out the item with the given id. Removing the sole
// remaining item is a silent no-op so the sequence never goes empty.
func (inv *Invoice) RemoveItem(id int) error {
	idx := inv.itemIndex(id)
	if idx < 0 {
		return errors.ErrLineItemNotFound
	}

	if len(inv.Items) == 1 {
		return nil
	}

	inv.Items = append(inv.Items[:idx], inv.Items[idx+1:]...)
	return nil
}

func (inv *Invoice) itemIndex(id int) int {
	for i, item := range inv.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func nextItemID(items []LineItem) int {
	max := 0
	for _, item := range items {
		if item.ID > max {
			max = item.ID
		}
	}
	return max + 1
}

// coerceNumber parses arbitrary scalar input into a non-negative number,
// defaulting to zero on parse failure.
func coerceNumber(value any) float64 {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if f < 0 {
		return 0
	}
	return f
}

func coerceString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
