package billing

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("dec(%s) failed: %v", s, err)
	}
	return d
}

func subject(t *testing.T, id, price string, selected bool, d Discount) SubjectSelection {
	t.Helper()
	return SubjectSelection{ID: id, Name: "Subject " + id, UnitPrice: dec(t, price), Selected: selected, Discount: d}
}

func addOn(t *testing.T, id, price string, selected bool) AddOnSelection {
	t.Helper()
	return AddOnSelection{ID: id, Name: "AddOn " + id, UnitPrice: dec(t, price), Selected: selected}
}

func pct(t *testing.T, v string) Discount {
	t.Helper()
	return Discount{Type: DiscountPercentage, Value: dec(t, v)}
}

func fixed(t *testing.T, v string) Discount {
	t.Helper()
	return Discount{Type: DiscountAmount, Value: dec(t, v)}
}

func Test_ComputeInvoiceTotals(t *testing.T) {
	tests := []struct {
		name          string
		subjects      []SubjectSelection
		addOns        []AddOnSelection
		wantSubtotal  string
		wantDiscount  string
		wantTotal     string
		wantItemCount int
	}{
		{
			name:          "no selection yields zero totals",
			subjects:      []SubjectSelection{subject(t, "s1", "5000", false, Discount{})},
			addOns:        []AddOnSelection{addOn(t, "a1", "1000", false)},
			wantSubtotal:  "0.00",
			wantDiscount:  "0.00",
			wantTotal:     "0.00",
			wantItemCount: 0,
		},
		{
			name:          "one subject no discount",
			subjects:      []SubjectSelection{subject(t, "s1", "5000", true, Discount{})},
			wantSubtotal:  "5000.00",
			wantDiscount:  "0.00",
			wantTotal:     "5000.00",
			wantItemCount: 1,
		},
		{
			name:          "one subject 10 percent off",
			subjects:      []SubjectSelection{subject(t, "s1", "5000", true, pct(t, "10"))},
			wantSubtotal:  "5000.00",
			wantDiscount:  "500.00",
			wantTotal:     "4500.00",
			wantItemCount: 1,
		},
		{
			name:          "fixed over-discount floors at zero",
			subjects:      []SubjectSelection{subject(t, "s1", "3000", true, fixed(t, "3500"))},
			wantSubtotal:  "3000.00",
			wantDiscount:  "3500.00",
			wantTotal:     "0.00",
			wantItemCount: 1,
		},
		{
			name: "two subjects and an add-on",
			subjects: []SubjectSelection{
				subject(t, "s1", "4000", true, Discount{}),
				subject(t, "s2", "6000", true, Discount{}),
			},
			addOns:        []AddOnSelection{addOn(t, "a1", "1000", true)},
			wantSubtotal:  "11000.00",
			wantDiscount:  "0.00",
			wantTotal:     "11000.00",
			wantItemCount: 3,
		},
		{
			name:          "percentage above 100 floors at zero",
			subjects:      []SubjectSelection{subject(t, "s1", "2000", true, pct(t, "150"))},
			wantSubtotal:  "2000.00",
			wantDiscount:  "3000.00",
			wantTotal:     "0.00",
			wantItemCount: 1,
		},
		{
			name: "over-discount on one item does not offset another",
			subjects: []SubjectSelection{
				subject(t, "s1", "3000", true, fixed(t, "5000")),
				subject(t, "s2", "4000", true, Discount{}),
			},
			wantSubtotal:  "7000.00",
			wantDiscount:  "5000.00",
			wantTotal:     "4000.00",
			wantItemCount: 2,
		},
		{
			name:          "fractional percentage rounds to 2 decimals",
			subjects:      []SubjectSelection{subject(t, "s1", "999.99", true, pct(t, "7.5"))},
			wantSubtotal:  "999.99",
			wantDiscount:  "75.00", // 74.99925 rounded
			wantTotal:     "924.99",
			wantItemCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeInvoiceTotals(tt.subjects, tt.addOns)
			assert.Equal(t, tt.wantSubtotal, got.Subtotal.StringFixed(2), "subtotal")
			assert.Equal(t, tt.wantDiscount, got.TotalDiscount.StringFixed(2), "total discount")
			assert.Equal(t, tt.wantTotal, got.Total.StringFixed(2), "total")
			assert.Len(t, got.LineItems, tt.wantItemCount)

			// total == subtotal - totalDiscount, with per-item flooring
			recomputed := decimal.Zero
			for _, li := range got.LineItems {
				assert.False(t, li.FinalPrice.IsNegative(), "final price must never be negative")
				recomputed = recomputed.Add(li.FinalPrice.Decimal)
			}
			assert.True(t, got.Total.Equal(recomputed), "total must equal the sum of final prices")
		})
	}
}

func Test_ComputeInvoiceTotals_ordering(t *testing.T) {
	subjects := []SubjectSelection{
		subject(t, "s1", "4000", true, Discount{}),
		subject(t, "s2", "6000", true, Discount{}),
	}
	addOns := []AddOnSelection{addOn(t, "a1", "1000", true)}

	got := ComputeInvoiceTotals(subjects, addOns)
	if assert.Len(t, got.LineItems, 3) {
		assert.Equal(t, "s1", got.LineItems[0].ItemID)
		assert.Equal(t, "s2", got.LineItems[1].ItemID)
		assert.Equal(t, "a1", got.LineItems[2].ItemID)
		assert.Equal(t, ItemTypeSubject, got.LineItems[0].ItemType)
		assert.Equal(t, ItemTypeAddOn, got.LineItems[2].ItemType)
	}
}

func Test_ComputeInvoiceTotals_pure(t *testing.T) {
	subjects := []SubjectSelection{
		subject(t, "s1", "4000", true, pct(t, "12.5")),
		subject(t, "s2", "6000", true, fixed(t, "250")),
		subject(t, "s3", "1500", false, pct(t, "50")),
	}
	addOns := []AddOnSelection{addOn(t, "a1", "1000", true), addOn(t, "a2", "300", false)}

	first := ComputeInvoiceTotals(subjects, addOns)
	second := ComputeInvoiceTotals(subjects, addOns)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("ComputeInvoiceTotals is not deterministic:\n first: %+v\nsecond: %+v", first, second)
	}
}

func Test_ComputeInvoiceTotals_reselectRestoresFigures(t *testing.T) {
	sel := subject(t, "s1", "5000", true, pct(t, "10"))
	before := ComputeInvoiceTotals([]SubjectSelection{sel}, nil)

	sel.Selected = false
	unselected := ComputeInvoiceTotals([]SubjectSelection{sel}, nil)
	assert.Len(t, unselected.LineItems, 0)
	assert.True(t, unselected.Total.IsZero())

	sel.Selected = true
	after := ComputeInvoiceTotals([]SubjectSelection{sel}, nil)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("reselecting an item must restore identical figures:\nbefore: %+v\n after: %+v", before, after)
	}
}

// Switching a discount type back to "none" must drop any stale value left in
// the selection state.
func Test_ComputeInvoiceTotals_staleDiscountValue(t *testing.T) {
	sel := subject(t, "s1", "5000", true, Discount{Type: DiscountNone, Value: dec(t, "10")})

	got := ComputeInvoiceTotals([]SubjectSelection{sel}, nil)
	if assert.Len(t, got.LineItems, 1) {
		li := got.LineItems[0]
		assert.Equal(t, DiscountNone, li.DiscountType)
		assert.True(t, li.DiscountValue.IsZero(), "discount value must reset to 0")
		assert.True(t, li.FinalPrice.Equal(li.UnitPrice.Decimal), "final price must equal unit price")
	}
	assert.True(t, got.Total.Equal(got.Subtotal.Decimal))
}

func Test_ToInvoicePayload(t *testing.T) {
	totals := ComputeInvoiceTotals(
		[]SubjectSelection{
			subject(t, "s1", "4000", true, pct(t, "10")),
			subject(t, "s2", "6000", true, Discount{}),
		},
		[]AddOnSelection{addOn(t, "a1", "999.5", true)},
	)
	dueDate := time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC)

	got := ToInvoicePayload(totals, "student-1", dueDate, "first term")

	assert.Equal(t, "student-1", got.StudentID)
	assert.Equal(t, "2026-09-30", got.DueDate)
	assert.Equal(t, "first term", got.Notes)
	assert.Equal(t, "10999.50", got.Subtotal)
	assert.Equal(t, "400.00", got.DiscountAmount)
	assert.Equal(t, "10599.50", got.Total)

	if assert.Len(t, got.Items, 3) {
		first := got.Items[0]
		assert.Equal(t, "subject", first.ItemType)
		assert.Equal(t, "4000.00", first.UnitPrice)
		assert.Equal(t, "percentage", first.DiscountType)
		assert.Equal(t, "10.00", first.DiscountValue)
		assert.Equal(t, "400.00", first.DiscountAmount)
		assert.Equal(t, "3600.00", first.FinalPrice)

		last := got.Items[2]
		assert.Equal(t, "addon", last.ItemType)
		assert.Equal(t, "999.50", last.UnitPrice)
		assert.Equal(t, "none", last.DiscountType)
		assert.Equal(t, "999.50", last.FinalPrice)
	}
}
