package combination

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"catalog-wizard/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildVariants creates one variant per size, named V0..Vn with values
// "<i>-<j>", so every value is unique across the draft.
func buildVariants(sizes ...int) []domain.Variant {
	variants := make([]domain.Variant, 0, len(sizes))
	for i, size := range sizes {
		v := domain.Variant{Name: "V" + strconv.Itoa(i), Values: []string{}}
		for j := 0; j < size; j++ {
			v.Values = append(v.Values, fmt.Sprintf("%d-%d", i, j))
		}
		variants = append(variants, v)
	}
	return variants
}

func sequentialIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return "id-" + strconv.Itoa(n)
	}
}

// Property: the generator yields k1*k2*...*kN distinct tuples, one value per
// qualifying variant
func TestProperty_GenerateProducesFullProduct(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("tuple count is the product of the non-empty value list sizes", prop.ForAll(
		func(a, b, c int) bool {
			variants := buildVariants(a, b, c)
			tuples := Generate(variants)

			expected := 1
			qualifying := 0
			for _, size := range []int{a, b, c} {
				if size > 0 {
					expected *= size
					qualifying++
				}
			}
			if qualifying == 0 {
				expected = 0
			}

			if len(tuples) != expected {
				t.Logf("FAIL: expected %d tuples for sizes %d,%d,%d, got %d", expected, a, b, c, len(tuples))
				return false
			}

			seen := make(map[string]bool, len(tuples))
			for _, tuple := range tuples {
				if len(tuple) != qualifying {
					t.Logf("FAIL: tuple %v has %d values, want %d", tuple, len(tuple), qualifying)
					return false
				}
				label := Label(tuple)
				if seen[label] {
					t.Logf("FAIL: duplicate tuple %s", label)
					return false
				}
				seen[label] = true
			}
			return true
		},
		gen.IntRange(0, 4),
		gen.IntRange(0, 4),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: the first variant varies slowest and the last fastest
func TestProperty_GenerateIsLexicographic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("tuple i is the mixed-radix expansion of i", prop.ForAll(
		func(a, b, c int) bool {
			sizes := []int{a, b, c}
			variants := buildVariants(sizes...)
			tuples := Generate(variants)

			for i, tuple := range tuples {
				rest := i
				for pos := len(sizes) - 1; pos >= 0; pos-- {
					want := variants[pos].Values[rest%sizes[pos]]
					if tuple[pos] != want {
						t.Logf("FAIL: tuple %d position %d is %s, want %s", i, pos, tuple[pos], want)
						return false
					}
					rest /= sizes[pos]
				}
			}

			again := Generate(variants)
			for i := range tuples {
				if Label(tuples[i]) != Label(again[i]) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 4),
		gen.IntRange(1, 4),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: renaming a variant keeps every combination, including its user
// entered fields
func TestProperty_ReconcilePreservesRowsOnRename(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("renaming a variant preserves sku, quantity and stock", prop.ForAll(
		func(a, b int, newName string) bool {
			variants := buildVariants(a, b)
			rows := Reconcile(variants, nil, sequentialIDs())
			for i := range rows {
				rows[i].SKU = "SKU-" + strconv.Itoa(i)
				rows[i].InStock = i%2 == 0
				q := strconv.Itoa(i * 3)
				rows[i].Quantity = &q
			}

			variants[0].Name = newName
			regenerated := Reconcile(variants, rows, sequentialIDs())

			if len(regenerated) != len(rows) {
				t.Logf("FAIL: expected %d rows, got %d", len(rows), len(regenerated))
				return false
			}
			for i := range rows {
				before, after := rows[i], regenerated[i]
				if before.ID != after.ID || before.SKU != after.SKU ||
					before.InStock != after.InStock || *before.Quantity != *after.Quantity {
					t.Logf("FAIL: row %d changed: %+v -> %+v", i, before, after)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 4),
		gen.IntRange(1, 4),
		gen.RegexMatch(`[A-Za-z]{1,10}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: CheckSize rejects exactly the variant sets whose product exceeds
// MaxCombinations
func TestProperty_CheckSizeBoundsTheTable(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("rejected iff k1*...*kN > MaxCombinations", prop.ForAll(
		func(sizes []int) bool {
			total := 1
			for _, size := range sizes {
				total *= size
			}

			err := CheckSize(buildVariants(sizes...))
			if total > MaxCombinations {
				if !errors.Is(err, ErrTooManyCombinations) {
					t.Logf("FAIL: sizes %v (%d rows) accepted", sizes, total)
					return false
				}
				return true
			}
			if err != nil {
				t.Logf("FAIL: sizes %v (%d rows) rejected: %v", sizes, total, err)
				return false
			}
			return Count(buildVariants(sizes...)) == total
		},
		gen.SliceOfN(4, gen.IntRange(1, 30)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCheckSize(t *testing.T) {
	assert.ErrorIs(t, CheckSize(buildVariants(30, 30, 30, 30)), ErrTooManyCombinations)
	assert.ErrorIs(t, CheckSize(buildVariants(50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50)), ErrTooManyCombinations)
	assert.NoError(t, CheckSize(buildVariants(20, 25)))
	assert.NoError(t, CheckSize(nil))
	assert.Equal(t, 0, Count([]domain.Variant{{Name: "", Values: []string{"X"}}}))
}

func TestGenerateExcludesUnnamedAndEmptyVariants(t *testing.T) {
	variants := []domain.Variant{
		{Name: "Size", Values: []string{"S", "M"}},
		{Name: "", Values: []string{"X"}},
		{Name: "Color", Values: []string{}},
		{Name: "Fit", Values: []string{"SLIM"}},
	}

	tuples := Generate(variants)
	require.Len(t, tuples, 2)
	assert.Equal(t, "S/SLIM", Label(tuples[0]))
	assert.Equal(t, "M/SLIM", Label(tuples[1]))

	assert.Empty(t, Generate(nil))
}

func TestReconcileAddsAndDropsRows(t *testing.T) {
	variants := []domain.Variant{
		{Name: "Size", Values: []string{"S", "M"}},
		{Name: "Color", Values: []string{"RED"}},
	}
	rows := Reconcile(variants, nil, sequentialIDs())
	require.Len(t, rows, 2)
	rows[0].SKU = "kept"

	variants[0].Values = []string{"S", "L"}
	regenerated := Reconcile(variants, rows, func() string { return "fresh" })

	require.Len(t, regenerated, 2)
	assert.Equal(t, rows[0], regenerated[0])
	assert.Equal(t, domain.Combination{ID: "fresh", Variant: "L/RED"}, regenerated[1])
}

func TestReconcileKeepsRowsWhenNothingQualifies(t *testing.T) {
	previous := []domain.Combination{{ID: "1", Variant: "S", SKU: "A"}}
	assert.Equal(t, previous, Reconcile([]domain.Variant{{Name: ""}}, previous, nil))
}

func TestInitial(t *testing.T) {
	rows := Initial(nil, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Variant)

	rows = Initial(buildVariants(2), sequentialIDs())
	require.Len(t, rows, 2)
	assert.Equal(t, "id-1", rows[0].ID)
}

func TestValidate(t *testing.T) {
	t.Run("duplicate skus flag both rows", func(t *testing.T) {
		problems := Validate([]domain.Combination{
			{ID: "a", Variant: "S", SKU: "DUP"},
			{ID: "b", Variant: "M", SKU: "DUP"},
			{ID: "c", Variant: "L", SKU: "UNIQUE"},
		})
		assert.ErrorIs(t, problems["a"], ErrDuplicateSKU)
		assert.ErrorIs(t, problems["b"], ErrDuplicateSKU)
		assert.NotContains(t, problems, "c")
	})

	t.Run("empty sku is required even when duplicated", func(t *testing.T) {
		problems := Validate([]domain.Combination{
			{ID: "a", Variant: "S", SKU: ""},
			{ID: "b", Variant: "M", SKU: "  "},
		})
		assert.ErrorIs(t, problems["a"], ErrSKURequired)
		assert.ErrorIs(t, problems["b"], ErrSKURequired)
		assert.Equal(t, "SKU is required", problems["a"].Error())
	})

	t.Run("empty variant label", func(t *testing.T) {
		problems := Validate([]domain.Combination{{ID: "1", SKU: "A"}})
		assert.ErrorIs(t, problems["1"], ErrVariantRequired)
	})

	assert.True(t, Valid([]domain.Combination{{ID: "1", Variant: "S", SKU: "A"}}))
	assert.False(t, Valid(nil))
}
