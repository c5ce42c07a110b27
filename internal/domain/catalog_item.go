package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CatalogItem is a spare part or a service as served by the shop API.
// Fields the API adds later are kept in Extra.
type CatalogItem struct {
	ID          ItemID
	Name        string
	Price       decimal.Decimal
	Category    string
	Description string
	Image       string
	Stock       int
	Duration    string

	Extra map[string]json.RawMessage
}

type catalogItemJSON struct {
	ID          ItemID          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Stock       int             `json:"stock,omitempty"`
	Duration    string          `json:"duration,omitempty"`
}

var catalogItemFields = map[string]struct{}{
	"id":          {},
	"name":        {},
	"price":       {},
	"category":    {},
	"description": {},
	"image":       {},
	"stock":       {},
	"duration":    {},
}

func (ci *CatalogItem) UnmarshalJSON(data []byte) error {
	var typed catalogItemJSON
	if err := json.Unmarshal(data, &typed); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	*ci = CatalogItem{
		ID:          typed.ID,
		Name:        typed.Name,
		Price:       typed.Price,
		Category:    typed.Category,
		Description: typed.Description,
		Image:       typed.Image,
		Stock:       typed.Stock,
		Duration:    typed.Duration,
	}

	for k, v := range record {
		if _, known := catalogItemFields[k]; known {
			continue
		}
		if ci.Extra == nil {
			ci.Extra = make(map[string]json.RawMessage)
		}
		ci.Extra[k] = v
	}

	return nil
}

func (ci CatalogItem) MarshalJSON() ([]byte, error) {
	typed, err := json.Marshal(catalogItemJSON{
		ID:          ci.ID,
		Name:        ci.Name,
		Price:       ci.Price,
		Category:    ci.Category,
		Description: ci.Description,
		Image:       ci.Image,
		Stock:       ci.Stock,
		Duration:    ci.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal(typed, &record); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}
	// the API expects a JSON number for price
	record["price"] = json.RawMessage(ci.Price.String())

	for k, v := range ci.Extra {
		if _, known := catalogItemFields[k]; known {
			continue
		}
		record[k] = v
	}

	return json.Marshal(record)
}

// LineItem converts the catalog entry into a cart line of the given kind.
// This is the only place where the API's price becomes the cart's unit price.
func (ci CatalogItem) LineItem(kind Kind) LineItem {
	attrs := make(map[string]json.RawMessage)
	for k, v := range ci.Extra {
		attrs[k] = v
	}

	put := func(key string, v any) {
		raw, err := json.Marshal(v)
		if err == nil {
			attrs[key] = raw
		}
	}
	if ci.Category != "" {
		put("category", ci.Category)
	}
	if ci.Description != "" {
		put("description", ci.Description)
	}
	if ci.Image != "" {
		put("image", ci.Image)
	}
	if ci.Stock != 0 {
		put("stock", ci.Stock)
	}
	if ci.Duration != "" {
		put("duration", ci.Duration)
	}
	if len(attrs) == 0 {
		attrs = nil
	}

	return LineItem{
		ID:        ci.ID,
		Kind:      kind,
		Name:      ci.Name,
		UnitPrice: ci.Price,
		Quantity:  1,
		Attrs:     attrs,
	}
}
