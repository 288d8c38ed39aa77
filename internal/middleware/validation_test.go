package middleware

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPriceRequest struct {
	Price        *decimal.Decimal `json:"price" validate:"required,gte=0"`
	DiscountType string           `json:"discountType" validate:"omitempty,oneof=% $"`
	Quantity     string           `json:"quantity" validate:"omitempty,digits,max=9"`
}

func decodePrice(t *testing.T, body string) (testPriceRequest, error) {
	t.Helper()
	req := httptest.NewRequest("PUT", "/api/drafts/d1/price", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")

	var in testPriceRequest
	err := DecodeAndValidate(req, &in)
	return in, err
}

// Property: a decimal price passes validation exactly when it is not negative
func TestProperty_DecimalRangeValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("negative prices are rejected", prop.ForAll(
		func(cents int64) bool {
			body := fmt.Sprintf(`{"price": %s}`, decimal.New(cents, -2).String())
			_, err := decodePrice(t, body)

			if cents >= 0 {
				if err != nil {
					t.Logf("FAIL: %s rejected: %v", body, err)
				}
				return err == nil
			}
			return err != nil
		},
		gen.Int64Range(-100000, 100000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: quantity accepts digit strings and nothing else
func TestProperty_DigitsValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("digit strings pass", prop.ForAll(
		func(quantity string) bool {
			body := fmt.Sprintf(`{"price": 1, "quantity": %q}`, quantity)
			_, err := decodePrice(t, body)
			return err == nil
		},
		gen.RegexMatch(`[0-9]{1,9}`),
	))

	properties.Property("strings with a non-digit fail", prop.ForAll(
		func(prefix string, bad string) bool {
			body := fmt.Sprintf(`{"price": 1, "quantity": %q}`, prefix+bad)
			_, err := decodePrice(t, body)
			return err != nil
		},
		gen.RegexMatch(`[0-9]{0,4}`),
		gen.OneConstOf("a", "-", ".", " ", "1e"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestValidationErrorsUseJSONNames(t *testing.T) {
	_, err := decodePrice(t, `{"discountType": "€"}`)
	require.Error(t, err)

	formatted := FormatValidationErrors(err)
	fields := map[string]string{}
	for _, e := range formatted {
		fields[e.Field] = e.Message
	}

	assert.Equal(t, "This field is required", fields["price"])
	assert.Equal(t, "Value must be one of: % $", fields["discountType"])
}

func TestDecodeAndValidateRejectsMalformedJSON(t *testing.T) {
	_, err := decodePrice(t, `{"price": 1`)
	require.Error(t, err)
	assert.Empty(t, FormatValidationErrors(err), "decode errors are not field errors")
}
