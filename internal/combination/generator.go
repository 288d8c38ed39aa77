// Package combination materializes the SKU table of a product draft from its
// variants.
package combination

import (
	"errors"
	"fmt"
	"strings"

	"catalog-wizard/internal/domain"

	"github.com/google/uuid"
)

// LabelSeparator joins the values of one tuple into a combination label
const LabelSeparator = "/"

// MaxCombinations bounds the number of rows one SKU table may hold
const MaxCombinations = 500

var (
	ErrSKURequired     = errors.New("SKU is required")
	ErrDuplicateSKU    = errors.New("Duplicate SKU")
	ErrVariantRequired = errors.New("variant is required")

	ErrTooManyCombinations = fmt.Errorf("variants produce more than %d combinations", MaxCombinations)
)

// IDFunc generates ids for newly created combinations
type IDFunc func() string

// NewID is the default IDFunc
func NewID() string {
	return uuid.NewString()
}

// Qualifying returns the variants that take part in the product: those with
// a non-empty name and at least one value.
func Qualifying(variants []domain.Variant) []domain.Variant {
	out := make([]domain.Variant, 0, len(variants))
	for _, v := range variants {
		if strings.TrimSpace(v.Name) == "" || len(v.Values) == 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Count returns the number of tuples Generate would produce. Counting stops
// as soon as the total passes MaxCombinations.
func Count(variants []domain.Variant) int {
	qualifying := Qualifying(variants)
	if len(qualifying) == 0 {
		return 0
	}

	total := 1
	for _, v := range qualifying {
		total *= len(v.Values)
		if total > MaxCombinations {
			return total
		}
	}
	return total
}

// CheckSize rejects variants whose table would exceed MaxCombinations
func CheckSize(variants []domain.Variant) error {
	if Count(variants) > MaxCombinations {
		return ErrTooManyCombinations
	}
	return nil
}

// Generate returns the cartesian product of the qualifying variants' values.
// The first variant varies slowest and the last fastest.
func Generate(variants []domain.Variant) [][]string {
	qualifying := Qualifying(variants)
	if len(qualifying) == 0 {
		return [][]string{}
	}

	tuples := [][]string{{}}
	for _, v := range qualifying {
		next := make([][]string, 0, len(tuples)*len(v.Values))
		for _, prefix := range tuples {
			for _, value := range v.Values {
				tuple := make([]string, len(prefix), len(prefix)+1)
				copy(tuple, prefix)
				next = append(next, append(tuple, value))
			}
		}
		tuples = next
	}
	return tuples
}

// Label joins a tuple into its combination label
func Label(tuple []string) string {
	return strings.Join(tuple, LabelSeparator)
}

// Reconcile regenerates the combination table for variants. Rows of previous
// whose label survives are reused as-is; new labels get a blank row and
// labels that no longer appear are dropped. When no variant qualifies the
// previous rows are returned unchanged.
func Reconcile(variants []domain.Variant, previous []domain.Combination, newID IDFunc) []domain.Combination {
	tuples := Generate(variants)
	if len(tuples) == 0 {
		return previous
	}
	if newID == nil {
		newID = NewID
	}

	byLabel := make(map[string]domain.Combination, len(previous))
	for _, c := range previous {
		if _, seen := byLabel[c.Variant]; !seen {
			byLabel[c.Variant] = c
		}
	}

	out := make([]domain.Combination, 0, len(tuples))
	for _, tuple := range tuples {
		label := Label(tuple)
		if existing, ok := byLabel[label]; ok {
			out = append(out, existing)
			continue
		}
		out = append(out, domain.Combination{
			ID:      newID(),
			Variant: label,
		})
	}
	return out
}

// Initial returns the starting table for a draft with no stored combinations:
// the generated rows, or a single blank row when nothing qualifies.
func Initial(variants []domain.Variant, newID IDFunc) []domain.Combination {
	rows := Reconcile(variants, nil, newID)
	if len(rows) == 0 {
		return []domain.Combination{{ID: "1"}}
	}
	return rows
}

// Validate checks every row and returns the first problem per combination id.
// A blank SKU is reported as required even when other rows are blank too.
func Validate(combinations []domain.Combination) map[string]error {
	counts := make(map[string]int, len(combinations))
	for _, c := range combinations {
		if strings.TrimSpace(c.SKU) != "" {
			counts[c.SKU]++
		}
	}

	problems := make(map[string]error)
	for _, c := range combinations {
		switch {
		case strings.TrimSpace(c.SKU) == "":
			problems[c.ID] = ErrSKURequired
		case counts[c.SKU] > 1:
			problems[c.ID] = ErrDuplicateSKU
		case strings.TrimSpace(c.Variant) == "":
			problems[c.ID] = ErrVariantRequired
		}
	}
	return problems
}

// Valid reports whether the table passes Validate and is non-empty
func Valid(combinations []domain.Combination) bool {
	return len(combinations) > 0 && len(Validate(combinations)) == 0
}
