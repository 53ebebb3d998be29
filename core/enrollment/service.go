package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/billing"
)

var (
	// errors
	ErrNotFound        = errors.New("enrollment not found")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this subject")
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error)
		GetActiveEnrollment(ctx context.Context, studentID, subjectID string) (Enrollment, error)
		QueryEnrollmentsByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		SetEnrollmentStatus(ctx context.Context, id string, status Status) (Enrollment, error)
	}

	ServiceInterface interface {
		Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error)
		EnsureEnrolled(ctx context.Context, studentID, subjectID string, d billing.Discount, reason string) (Enrollment, error)
		GetByID(ctx context.Context, id string) (Enrollment, error)
		QueryByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
		Cancel(ctx context.Context, id string) (Enrollment, error)
		Complete(ctx context.Context, id string) (Enrollment, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Enroll registers a student to a subject. Enrolling twice in the same subject
// while the first enrollment is still active is a validation error.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if _, err := svc.repo.GetActiveEnrollment(ctx, ne.StudentID, ne.SubjectID); err == nil {
		return Enrollment{}, core.NewValidationError(
			ErrAlreadyEnrolled, core.FieldError{Field: "subject_id", Error: ErrAlreadyEnrolled.Error()})
	} else if !errors.Is(err, ErrNotFound) {
		return Enrollment{}, err
	}

	d := billing.Discount{Type: ne.DiscountType, Value: ne.DiscountValue}.Normalized()
	now := time.Now().UTC()
	enr := Enrollment{
		ID:             uuid.New().String(),
		StudentID:      ne.StudentID,
		SubjectID:      ne.SubjectID,
		Status:         StatusActive,
		DiscountType:   d.Type,
		DiscountValue:  d.Value,
		DiscountReason: ne.DiscountReason,
		EnrolledAt:     now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

// EnsureEnrolled creates an active enrollment for the subject, or refreshes the
// carried discount of the existing one. The invoicing flow calls this for every
// invoiced subject so the next wizard run pre-populates the same discount.
func (svc *Service) EnsureEnrolled(ctx context.Context, studentID, subjectID string, d billing.Discount, reason string) (Enrollment, error) {
	d = d.Normalized()

	enr, err := svc.repo.GetActiveEnrollment(ctx, studentID, subjectID)
	if errors.Is(err, ErrNotFound) {
		return svc.Enroll(ctx, NewEnrollment{
			StudentID:      studentID,
			SubjectID:      subjectID,
			DiscountType:   d.Type,
			DiscountValue:  d.Value,
			DiscountReason: reason,
		})
	} else if err != nil {
		return Enrollment{}, err
	}

	enr.DiscountType = d.Type
	enr.DiscountValue = d.Value
	enr.DiscountReason = reason
	enr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEnrollment(ctx, enr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(ctx, id)
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByStudent(ctx, studentID)
}

func (svc *Service) Cancel(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.SetEnrollmentStatus(ctx, id, StatusCancelled)
}

func (svc *Service) Complete(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.SetEnrollmentStatus(ctx, id, StatusCompleted)
}
