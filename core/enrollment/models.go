package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/billing"
)

// Status is the lifecycle state of an enrollment.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Enrollment registers a student to a subject. It carries the discount granted
// at enrollment time so the invoice wizard can pre-populate discount defaults
// for currently enrolled subjects.
type Enrollment struct {
	ID             string               `json:"id"`
	StudentID      string               `json:"student_id"`
	SubjectID      string               `json:"subject_id"`
	Status         Status               `json:"status"`
	DiscountType   billing.DiscountType `json:"discount_type"`
	DiscountValue  decimal.Decimal      `json:"discount_value"`
	DiscountReason string               `json:"discount_reason,omitempty"`
	EnrolledAt     time.Time            `json:"enrolled_at"` // UTC
	UpdatedAt      time.Time            `json:"updated_at"`  // UTC
}

// Discount returns the enrollment's carried discount as a billing spec.
func (e Enrollment) Discount() billing.Discount {
	return billing.Discount{Type: e.DiscountType, Value: e.DiscountValue}.Normalized()
}

// NewEnrollment contains information needed to enroll a student in a subject.
type NewEnrollment struct {
	StudentID      string               `json:"student_id" validate:"required"`
	SubjectID      string               `json:"subject_id" validate:"required"`
	DiscountType   billing.DiscountType `json:"discount_type" validate:"omitempty,oneof=none percentage amount"`
	DiscountValue  decimal.Decimal      `json:"discount_value"`
	DiscountReason string               `json:"discount_reason"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.DiscountReason = core.CleanString(ne.DiscountReason)
	if ne.DiscountType == "" {
		ne.DiscountType = billing.DiscountNone
	}

	if err := validate.Struct(ne); err != nil {
		return err
	}
	d := billing.Discount{Type: ne.DiscountType, Value: ne.DiscountValue}
	return d.ValidateRange("discount_value")
}

// SubjectDefaults maps each actively enrolled subject to its carried discount,
// for pre-populating the invoice wizard's selection state.
func SubjectDefaults(enrollments []Enrollment) map[string]billing.Discount {
	defaults := make(map[string]billing.Discount, len(enrollments))
	for _, e := range enrollments {
		if e.Status == StatusActive {
			defaults[e.SubjectID] = e.Discount()
		}
	}
	return defaults
}
