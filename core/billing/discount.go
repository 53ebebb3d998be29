// Package billing computes invoice line items and totals from catalog selections.
// All computations are pure functions over their inputs.
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core"
)

// DiscountType enumerates the supported discount strategies.
type DiscountType string

const (
	// DiscountNone applies no discount.
	DiscountNone DiscountType = "none"
	// DiscountPercentage discounts a percentage of the unit price.
	DiscountPercentage DiscountType = "percentage"
	// DiscountAmount discounts a fixed currency amount.
	DiscountAmount DiscountType = "amount"
)

// DiscountTypes lists all valid discount types, for validation and choice endpoints.
var DiscountTypes = []DiscountType{DiscountNone, DiscountPercentage, DiscountAmount}

func (dt DiscountType) IsValid() bool {
	switch dt {
	case DiscountNone, DiscountPercentage, DiscountAmount:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Discount is a discount spec attached to a single line item.
//
// The zero value is "no discount": an empty Type behaves as DiscountNone.
type Discount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Normalized returns the discount with its value zeroed when the type carries
// no value, so a stale value left over from a previous type never leaks into
// computed line items.
func (d Discount) Normalized() Discount {
	if d.Type != DiscountPercentage && d.Type != DiscountAmount {
		return Discount{Type: DiscountNone}
	}
	return d
}

// ValidateRange enforces the form-layer discount bounds: percentages in
// [0, 100], fixed amounts >= 0. The calculator itself does not clamp;
// out-of-range values must be rejected before they reach it.
func (d Discount) ValidateRange(field string) error {
	switch d.Type {
	case DiscountPercentage:
		if d.Value.IsNegative() || d.Value.GreaterThan(hundred) {
			return core.NewValidationError(nil, core.FieldError{Field: field, Error: "percentage must be between 0 and 100"})
		}
	case DiscountAmount:
		if d.Value.IsNegative() {
			return core.NewValidationError(nil, core.FieldError{Field: field, Error: "amount cannot be negative"})
		}
	}
	return nil
}

// AmountOff returns the currency amount this discount takes off the given unit
// price, rounded to 2 decimals. Percentage values outside [0, 100] are applied
// as-is; range validation belongs to the form layer. Over-discounts are
// absorbed by the final-price floor in ComputeInvoiceTotals.
func (d Discount) AmountOff(unitPrice decimal.Decimal) decimal.Decimal {
	switch d.Type {
	case DiscountPercentage:
		return unitPrice.Mul(d.Value).Div(hundred).Round(2)
	case DiscountAmount:
		return d.Value.Round(2)
	default:
		return decimal.Zero
	}
}
