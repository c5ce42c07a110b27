package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is one catalog entry selected by the user together with a quantity.
// Name and UnitPrice are copied from the catalog when the item is added.
type LineItem struct {
	ID        ItemID
	Kind      Kind
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int

	// Attrs holds the remaining catalog fields, carried through persistence verbatim.
	Attrs map[string]json.RawMessage
}

func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Clone returns a copy that shares no maps with li.
func (li LineItem) Clone() LineItem {
	if li.Attrs != nil {
		attrs := make(map[string]json.RawMessage, len(li.Attrs))
		for k, v := range li.Attrs {
			attrs[k] = v
		}
		li.Attrs = attrs
	}
	return li
}

var lineItemFields = map[string]struct{}{
	"id":        {},
	"name":      {},
	"unitPrice": {},
	"price":     {},
	"quantity":  {},
	"type":      {},
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	record := make(map[string]json.RawMessage, len(li.Attrs)+5)
	for k, v := range li.Attrs {
		if _, known := lineItemFields[k]; known {
			continue
		}
		record[k] = v
	}

	fields := map[string]any{
		"id":        li.ID,
		"name":      li.Name,
		"unitPrice": json.RawMessage(li.UnitPrice.String()),
		"quantity":  li.Quantity,
		"type":      li.Kind,
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("json.Marshal[%s]: %w", k, err)
		}
		record[k] = raw
	}

	return json.Marshal(record)
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	var out LineItem

	if raw, ok := record["id"]; ok {
		if err := json.Unmarshal(raw, &out.ID); err != nil {
			return fmt.Errorf("id: %w", err)
		}
	}
	if raw, ok := record["name"]; ok {
		if err := json.Unmarshal(raw, &out.Name); err != nil {
			return fmt.Errorf("name: %w", err)
		}
	}

	// records written before unitPrice became canonical only carry price
	priceRaw, ok := record["unitPrice"]
	if !ok {
		priceRaw, ok = record["price"]
	}
	if ok {
		if err := json.Unmarshal(priceRaw, &out.UnitPrice); err != nil {
			return fmt.Errorf("unitPrice: %w", err)
		}
	}

	if raw, ok := record["quantity"]; ok {
		if err := json.Unmarshal(raw, &out.Quantity); err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
	}
	if raw, ok := record["type"]; ok {
		if err := json.Unmarshal(raw, &out.Kind); err != nil {
			return fmt.Errorf("type: %w", err)
		}
	}

	for k, v := range record {
		if _, known := lineItemFields[k]; known {
			continue
		}
		if out.Attrs == nil {
			out.Attrs = make(map[string]json.RawMessage)
		}
		out.Attrs[k] = v
	}

	*li = out
	return nil
}
