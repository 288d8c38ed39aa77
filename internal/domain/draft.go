package domain

import (
	"github.com/shopspring/decimal"
)

// Default description values shown on a fresh wizard run
const (
	DefaultCategory = "Shoes"
	DefaultBrand    = "Nike"
)

// DiscountType is the unit selector on the price step
type DiscountType string

const (
	DiscountTypePercent DiscountType = "%"
	DiscountTypeAmount  DiscountType = "$"
)

// ProductForm holds the description step fields
type ProductForm struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Brand    string `json:"brand"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// DraftState is the in-progress product being built across the wizard steps.
// A nil Price or Discount means the field was never entered.
type DraftState struct {
	ID           string           `json:"id"`
	Step         int              `json:"step"`
	Form         ProductForm      `json:"productFormData"`
	Price        *decimal.Decimal `json:"price"`
	Discount     *decimal.Decimal `json:"discount"`
	DiscountType DiscountType     `json:"discountType"`
	Variants     []Variant        `json:"productVariants"`
	Combinations []Combination    `json:"productCombinations"`
}

// NewDraftState returns an empty draft with the form defaults applied
func NewDraftState(id, defaultCategory string) *DraftState {
	if defaultCategory == "" {
		defaultCategory = DefaultCategory
	}
	return &DraftState{
		ID: id,
		Form: ProductForm{
			Category: defaultCategory,
			Brand:    DefaultBrand,
		},
		DiscountType: DiscountTypePercent,
		Variants:     []Variant{{Name: "", Values: []string{}}},
		Combinations: []Combination{},
	}
}

// ImageUploaded reports whether the draft already carries an uploaded image
func (d *DraftState) ImageUploaded() bool {
	return d.Form.ImageURL != ""
}

// ResolvedDiscount maps the draft discount fields onto a product discount
func (d *DraftState) ResolvedDiscount() Discount {
	if d.Discount == nil || !d.Discount.IsPositive() {
		return Discount{Method: DiscountNone, Value: decimal.Zero}
	}
	method := DiscountPercent
	if d.DiscountType == DiscountTypeAmount {
		method = DiscountFixed
	}
	return Discount{Method: method, Value: *d.Discount}
}
