package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, matching products.json.
	decimal.MarshalJSONWithoutQuotes = true
}

// PlaceholderImageURL is used when a product is assembled without an uploaded image
const PlaceholderImageURL = "https://res.cloudinary.com/dviwzny3v/image/upload/v1731078234/cld-sample-5.jpg"

// DiscountMethod is the kind of discount applied to a product price
type DiscountMethod string

const (
	DiscountNone    DiscountMethod = "none"
	DiscountPercent DiscountMethod = "pct"
	DiscountFixed   DiscountMethod = "fixed"
)

// Discount describes a price reduction
type Discount struct {
	Method DiscountMethod  `json:"method"`
	Value  decimal.Decimal `json:"value"`
}

// Variant is a named axis of product differentiation, e.g. "Size"
type Variant struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Combination is one SKU-bearing row of the variant cartesian product
type Combination struct {
	ID       string  `json:"id"`
	Variant  string  `json:"variant"`
	SKU      string  `json:"sku"`
	InStock  bool    `json:"inStock"`
	Quantity *string `json:"quantity"`
}

// UnmarshalJSON also accepts rows as the storefront publishes them in
// products.json: the label under "name" and id or quantity as numbers.
func (c *Combination) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       json.RawMessage `json:"id"`
		Variant  string          `json:"variant"`
		Name     string          `json:"name"`
		SKU      string          `json:"sku"`
		InStock  bool            `json:"inStock"`
		Quantity json.RawMessage `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := scalarString(raw.ID)
	if err != nil {
		return fmt.Errorf("combination id: %w", err)
	}
	quantity, err := scalarString(raw.Quantity)
	if err != nil {
		return fmt.Errorf("combination quantity: %w", err)
	}

	*c = Combination{
		Variant:  raw.Variant,
		SKU:      raw.SKU,
		InStock:  raw.InStock,
		Quantity: quantity,
	}
	if c.Variant == "" {
		c.Variant = raw.Name
	}
	if id != nil {
		c.ID = *id
	}
	return nil
}

// scalarString reads a JSON string or number as text; null or absent is nil
func scalarString(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
		return &text, nil
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return nil, err
	}
	text = number.String()
	return &text, nil
}

// Product represents an assembled product in the catalog
type Product struct {
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Brand        string          `json:"brand"`
	Image        string          `json:"image"`
	Variants     []Variant       `json:"variants"`
	Combinations []Combination   `json:"combinations"`
	Price        decimal.Decimal `json:"price"`
	Discount     Discount        `json:"discount"`
}

// FinalPrice returns the price after the discount, never below zero
func (p *Product) FinalPrice() decimal.Decimal {
	var final decimal.Decimal
	switch p.Discount.Method {
	case DiscountPercent:
		cut := p.Price.Mul(p.Discount.Value).Div(decimal.NewFromInt(100))
		final = p.Price.Sub(cut)
	case DiscountFixed:
		final = p.Price.Sub(p.Discount.Value)
	default:
		final = p.Price
	}
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

// Category represents a product category
type Category struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Products []Product `json:"products"`
}
