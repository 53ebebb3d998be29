package invoice

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/billing"
)

// Status is the lifecycle state of a persisted invoice.
type Status string

const (
	StatusIssued Status = "issued"
	StatusPaid   Status = "paid"
	StatusVoid   Status = "void"
)

type (
	// Invoice is a persisted billing document. Items and totals are a snapshot
	// of the billing computation at submit time; catalog price changes after
	// issuance do not affect it.
	Invoice struct {
		ID             string          `json:"id"`
		Number         string          `json:"number"`
		StudentID      string          `json:"student_id"`
		IssueDate      time.Time       `json:"issue_date"`
		DueDate        time.Time       `json:"due_date"`
		Status         Status          `json:"status"`
		Subtotal       billing.Amount `json:"subtotal"`
		DiscountAmount billing.Amount `json:"discount_amount"`
		Total          billing.Amount `json:"total"`
		Notes          string         `json:"notes,omitempty"`
		Items          []Item         `json:"items"`
		CreatedAt      time.Time      `json:"created_at"` // UTC
		UpdatedAt      time.Time      `json:"updated_at"` // UTC
	}

	// Item is one persisted invoice line, the stored form of a billing.LineItem.
	Item struct {
		ID             string               `json:"id"`
		InvoiceID      string               `json:"invoice_id"`
		ItemType       billing.ItemType     `json:"item_type"`
		ItemRefID      string               `json:"item_ref_id"`
		Name           string               `json:"name"`
		UnitPrice      billing.Amount       `json:"unit_price"`
		DiscountType   billing.DiscountType `json:"discount_type"`
		DiscountValue  decimal.Decimal      `json:"discount_value"`
		DiscountReason string               `json:"discount_reason,omitempty"`
		DiscountAmount billing.Amount       `json:"discount_amount"`
		FinalPrice     billing.Amount       `json:"final_price"`
		Position       int                  `json:"position"`
	}
)

// IsEditable reports whether the invoice may still be updated or deleted.
// Paid and voided invoices are frozen.
func (inv Invoice) IsEditable() bool {
	return inv.Status == StatusIssued
}

type (
	// SubjectSelectionInput is the wizard's per-subject selection state as
	// submitted by the client. Prices are resolved server-side from the catalog.
	SubjectSelectionInput struct {
		SubjectID      string               `json:"subject_id" validate:"required"`
		Selected       bool                 `json:"selected"`
		DiscountType   billing.DiscountType `json:"discount_type" validate:"omitempty,oneof=none percentage amount"`
		DiscountValue  decimal.Decimal      `json:"discount_value"`
		DiscountReason string               `json:"discount_reason"`
	}

	// AddOnSelectionInput is the wizard's per-add-on selection state.
	AddOnSelectionInput struct {
		AddOnID  string `json:"addon_id" validate:"required"`
		Selected bool   `json:"selected"`
	}

	// NewInvoice is the invoice submission payload: header fields plus the full
	// selection state. It doubles as the update payload on PUT.
	NewInvoice struct {
		StudentID string                  `json:"student_id" validate:"required"`
		DueDate   time.Time               `json:"due_date" validate:"required"`
		Notes     string                  `json:"notes"`
		Subjects  []SubjectSelectionInput `json:"subjects" validate:"dive"`
		AddOns    []AddOnSelectionInput   `json:"addons" validate:"dive"`
	}
)

const noSubjectsSelectedErr = "at least one subject must be selected"

func (ni *NewInvoice) Validate(validate *validator.Validate) error {
	ni.Notes = core.CleanString(ni.Notes)
	for i := range ni.Subjects {
		if ni.Subjects[i].DiscountType == "" {
			ni.Subjects[i].DiscountType = billing.DiscountNone
		}
		ni.Subjects[i].DiscountReason = core.CleanString(ni.Subjects[i].DiscountReason)
	}

	if err := validate.Struct(ni); err != nil {
		return err
	}

	var selected int
	for _, sub := range ni.Subjects {
		if sub.Selected {
			selected++
			d := billing.Discount{Type: sub.DiscountType, Value: sub.DiscountValue}
			if err := d.ValidateRange("discount_value"); err != nil {
				return err
			}
		}
	}
	if selected == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "subjects", Error: noSubjectsSelectedErr})
	}
	return nil
}

// QueryFilter narrows invoice listings.
type QueryFilter struct {
	StudentID string    `query:"student_id"`
	Status    Status    `query:"status"`
	Search    string    `query:"search"`
	DueFrom   time.Time `query:"due_from"`
	DueTo     time.Time `query:"due_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.Status == "" && qf.Search == "" && qf.DueFrom.IsZero() && qf.DueTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
