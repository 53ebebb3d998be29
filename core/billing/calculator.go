package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType tags the catalog origin of a line item.
type ItemType string

const (
	ItemTypeSubject ItemType = "subject"
	ItemTypeAddOn   ItemType = "addon"
)

type (
	// SubjectSelection is a subject as presented by the enrollment/invoice wizard:
	// catalog data plus the user's selection flag and discount.
	SubjectSelection struct {
		ID        string
		Name      string
		UnitPrice decimal.Decimal
		Selected  bool
		Discount  Discount
		Reason    string
	}

	// AddOnSelection is an add-on as presented by the wizard. Add-ons carry no
	// discount in this model.
	AddOnSelection struct {
		ID        string
		Name      string
		UnitPrice decimal.Decimal
		Selected  bool
	}

	// LineItem is one priced entry derived from a selected catalog item.
	LineItem struct {
		ItemType       ItemType        `json:"item_type"`
		ItemID         string          `json:"item_id"`
		Name           string          `json:"name"`
		UnitPrice      Amount          `json:"unit_price"`
		DiscountType   DiscountType    `json:"discount_type"`
		DiscountValue  decimal.Decimal `json:"discount_value"`
		DiscountReason string          `json:"discount_reason,omitempty"`
		DiscountAmount Amount          `json:"discount_amount"`
		FinalPrice     Amount          `json:"final_price"`
	}

	// Totals is the invoice draft: the projection of the current selection state
	// into line items and figures. It is recomputed from scratch on every change
	// and never mutated in place.
	Totals struct {
		Subtotal      Amount     `json:"subtotal"`
		TotalDiscount Amount     `json:"total_discount"`
		Total         Amount     `json:"total"`
		LineItems     []LineItem `json:"line_items"`
	}
)

// ComputeInvoiceTotals derives an invoice draft from the current selection state.
//
// Only selected items contribute; unselected ones appear nowhere in the output.
// Line items are ordered subjects first (in input order), then add-ons.
// Per item, finalPrice = max(0, unitPrice - discountAmount): a discount larger
// than the price zeroes that item without offsetting any other.
//
// The function is pure; identical input yields identical output.
func ComputeInvoiceTotals(subjects []SubjectSelection, addOns []AddOnSelection) Totals {
	var (
		subtotal      = decimal.Zero
		totalDiscount = decimal.Zero
		total         = decimal.Zero
		lineItems     = make([]LineItem, 0, len(subjects)+len(addOns))
	)

	for _, sub := range subjects {
		if !sub.Selected {
			continue
		}
		d := sub.Discount.Normalized()
		amountOff := d.AmountOff(sub.UnitPrice)
		final := sub.UnitPrice.Sub(amountOff)
		if final.IsNegative() {
			final = decimal.Zero
		}
		lineItems = append(lineItems, LineItem{
			ItemType:       ItemTypeSubject,
			ItemID:         sub.ID,
			Name:           sub.Name,
			UnitPrice:      NewAmount(sub.UnitPrice),
			DiscountType:   d.Type,
			DiscountValue:  d.Value,
			DiscountReason: sub.Reason,
			DiscountAmount: NewAmount(amountOff),
			FinalPrice:     NewAmount(final),
		})
		subtotal = subtotal.Add(sub.UnitPrice)
		totalDiscount = totalDiscount.Add(amountOff)
		total = total.Add(final)
	}

	for _, ao := range addOns {
		if !ao.Selected {
			continue
		}
		lineItems = append(lineItems, LineItem{
			ItemType:       ItemTypeAddOn,
			ItemID:         ao.ID,
			Name:           ao.Name,
			UnitPrice:      NewAmount(ao.UnitPrice),
			DiscountType:   DiscountNone,
			DiscountValue:  decimal.Zero,
			DiscountAmount: NewAmount(decimal.Zero),
			FinalPrice:     NewAmount(ao.UnitPrice),
		})
		subtotal = subtotal.Add(ao.UnitPrice)
		total = total.Add(ao.UnitPrice)
	}

	return Totals{
		Subtotal:      NewAmount(subtotal),
		TotalDiscount: NewAmount(totalDiscount),
		Total:         NewAmount(total),
		LineItems:     lineItems,
	}
}

type (
	// RequestItem is one line item serialized for the invoice endpoint.
	// Amounts are fixed 2-decimal strings, per the wire convention.
	RequestItem struct {
		ItemType       string `json:"item_type"`
		ItemID         string `json:"item_id"`
		Name           string `json:"name"`
		UnitPrice      string `json:"unit_price"`
		DiscountType   string `json:"discount_type"`
		DiscountValue  string `json:"discount_value"`
		DiscountReason string `json:"discount_reason,omitempty"`
		DiscountAmount string `json:"discount_amount"`
		FinalPrice     string `json:"final_price"`
	}

	// InvoiceRequest is the payload shape expected by the invoice create/update
	// endpoint.
	InvoiceRequest struct {
		StudentID      string        `json:"student_id"`
		DueDate        string        `json:"due_date"`
		Notes          string        `json:"notes,omitempty"`
		Items          []RequestItem `json:"items"`
		Subtotal       string        `json:"subtotal"`
		DiscountAmount string        `json:"discount_amount"`
		Total          string        `json:"total"`
	}
)

// ToInvoicePayload wraps computed totals plus header fields into the request
// shape for the invoice endpoint. Pure value transformation; amounts are
// formatted to fixed 2-decimal strings.
func ToInvoicePayload(totals Totals, studentID string, dueDate time.Time, notes string) InvoiceRequest {
	items := make([]RequestItem, 0, len(totals.LineItems))
	for _, li := range totals.LineItems {
		items = append(items, RequestItem{
			ItemType:       string(li.ItemType),
			ItemID:         li.ItemID,
			Name:           li.Name,
			UnitPrice:      li.UnitPrice.StringFixed(2),
			DiscountType:   string(li.DiscountType),
			DiscountValue:  li.DiscountValue.StringFixed(2),
			DiscountReason: li.DiscountReason,
			DiscountAmount: li.DiscountAmount.StringFixed(2),
			FinalPrice:     li.FinalPrice.StringFixed(2),
		})
	}
	return InvoiceRequest{
		StudentID:      studentID,
		DueDate:        dueDate.Format("2006-01-02"),
		Notes:          notes,
		Items:          items,
		Subtotal:       totals.Subtotal.StringFixed(2),
		DiscountAmount: totals.TotalDiscount.StringFixed(2),
		Total:          totals.Total.StringFixed(2),
	}
}
