package combination

import (
	"errors"
	"strings"

	"catalog-wizard/internal/domain"
)

var (
	ErrEmptyValue     = errors.New("variant value is empty")
	ErrDuplicateValue = errors.New("variant value already exists")
	ErrLastVariant    = errors.New("at least one variant option is required")
	ErrNoSuchVariant  = errors.New("variant index out of range")
)

// NormalizeValue trims and upper-cases a variant value
func NormalizeValue(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// AddValue appends a normalized value to the variant
func AddValue(v *domain.Variant, raw string) error {
	value := NormalizeValue(raw)
	if value == "" {
		return ErrEmptyValue
	}
	for _, existing := range v.Values {
		if existing == value {
			return ErrDuplicateValue
		}
	}
	v.Values = append(v.Values, value)
	return nil
}

// RemoveValue drops value from the variant, if present
func RemoveValue(v *domain.Variant, value string) {
	kept := v.Values[:0]
	for _, existing := range v.Values {
		if existing != value {
			kept = append(kept, existing)
		}
	}
	v.Values = kept
}

// NormalizeVariants rebuilds every variant's values through AddValue,
// silently dropping blanks and duplicates.
func NormalizeVariants(variants []domain.Variant) []domain.Variant {
	out := make([]domain.Variant, 0, len(variants))
	for _, v := range variants {
		clean := domain.Variant{Name: strings.TrimSpace(v.Name), Values: []string{}}
		for _, raw := range v.Values {
			_ = AddValue(&clean, raw)
		}
		out = append(out, clean)
	}
	return out
}

// DeleteVariant removes the variant at index, refusing to remove the last one
func DeleteVariant(variants []domain.Variant, index int) ([]domain.Variant, error) {
	if index < 0 || index >= len(variants) {
		return variants, ErrNoSuchVariant
	}
	if len(variants) <= 1 {
		return variants, ErrLastVariant
	}
	out := make([]domain.Variant, 0, len(variants)-1)
	out = append(out, variants[:index]...)
	return append(out, variants[index+1:]...), nil
}
