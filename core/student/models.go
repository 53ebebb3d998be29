package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/karo/core"
)

// Student is an enrolled (or enrollable) learner. GuardianEmail, when set,
// receives a copy of billing notifications.
type Student struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	GuardianEmail string    `json:"guardian_email,omitempty"`
	ClassLevel    string    `json:"class_level"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email"`
	ClassLevel    string `json:"class_level"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.GuardianEmail = core.CleanString(ns.GuardianEmail, true /* lower */)
	ns.ClassLevel = core.CleanString(ns.ClassLevel)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ns.Email)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name          string `json:"name"`
	Email         string `json:"email" validate:"omitempty,email"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email"`
	ClassLevel    string `json:"class_level"`
	IsActive      *bool  `json:"is_active"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate, orig Student, svc ServiceInterface) error {
	name := core.CleanString(us.Name)
	if name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}

	email := core.CleanString(us.Email, true /* lower */)
	if email != "" {
		us.Email = email
	} else {
		us.Email = orig.Email
	}

	us.GuardianEmail = core.CleanString(us.GuardianEmail, true /* lower */)
	if us.GuardianEmail == "" {
		us.GuardianEmail = orig.GuardianEmail
	}

	us.ClassLevel = core.CleanString(us.ClassLevel)
	if us.ClassLevel == "" {
		us.ClassLevel = orig.ClassLevel
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(us.Email, orig)
}

// QueryFilter narrows student listings.
type QueryFilter struct {
	Search     string `query:"search"`
	ClassLevel string `query:"class_level"`
	IsActive   *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.ClassLevel == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClassLevel = core.CleanString(qf.ClassLevel)
}
