package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core"
)

type (
	// Subject is a billable academic subject.
	Subject struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		BasePrice   decimal.Decimal `json:"base_price"`
		ClassLevels []string        `json:"class_levels"`
		IsActive    bool            `json:"is_active"`
		CreatedAt   time.Time       `json:"created_at"` // UTC
		UpdatedAt   time.Time       `json:"updated_at"` // UTC
	}

	// AddOn is an optional billable item (uniform fee, books, transport...).
	AddOn struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Price     decimal.Decimal `json:"price"`
		IsActive  bool            `json:"is_active"`
		CreatedAt time.Time       `json:"created_at"` // UTC
		UpdatedAt time.Time       `json:"updated_at"` // UTC
	}
)

// HasClassLevel reports whether the subject is offered at the given class level.
// A subject with no class levels is offered at all levels.
func (s Subject) HasClassLevel(level string) bool {
	if len(s.ClassLevels) == 0 {
		return true
	}
	for _, cl := range s.ClassLevels {
		if cl == level {
			return true
		}
	}
	return false
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name        string          `json:"name" validate:"required"`
	BasePrice   decimal.Decimal `json:"base_price"`
	ClassLevels []string        `json:"class_levels"`
	IsActive    *bool           `json:"is_active"`
}

func (ns *NewSubject) Validate(validate *validator.Validate, svc ServiceInterface) error {
	ns.Name = core.CleanString(ns.Name)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.BasePrice.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "base_price", Error: priceNegativeErr})
	}
	return svc.CheckSubjectNameUniqueness(ns.Name)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
type UpdateSubject struct {
	Name        string           `json:"name"`
	BasePrice   *decimal.Decimal `json:"base_price"`
	ClassLevels []string         `json:"class_levels"`
	IsActive    *bool            `json:"is_active"`
}

func (us *UpdateSubject) Validate(validate *validator.Validate, orig Subject, svc ServiceInterface) error {
	name := core.CleanString(us.Name)
	if name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}

	if us.BasePrice == nil {
		us.BasePrice = &orig.BasePrice
	}
	if us.ClassLevels == nil {
		us.ClassLevels = orig.ClassLevels
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.BasePrice.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "base_price", Error: priceNegativeErr})
	}
	return svc.CheckSubjectNameUniqueness(us.Name, orig)
}

// NewAddOn contains information needed to create a new AddOn.
type NewAddOn struct {
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	IsActive *bool           `json:"is_active"`
}

func (na *NewAddOn) Validate(validate *validator.Validate, svc ServiceInterface) error {
	na.Name = core.CleanString(na.Name)

	if err := validate.Struct(na); err != nil {
		return err
	}
	if na.Price.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "price", Error: priceNegativeErr})
	}
	return svc.CheckAddOnNameUniqueness(na.Name)
}

// UpdateAddOn defines what information may be provided to modify an existing AddOn.
type UpdateAddOn struct {
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	IsActive *bool            `json:"is_active"`
}

func (ua *UpdateAddOn) Validate(validate *validator.Validate, orig AddOn, svc ServiceInterface) error {
	name := core.CleanString(ua.Name)
	if name != "" {
		ua.Name = name
	} else {
		ua.Name = orig.Name
	}

	if ua.Price == nil {
		ua.Price = &orig.Price
	}

	if err := validate.Struct(ua); err != nil {
		return err
	}
	if ua.Price.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "price", Error: priceNegativeErr})
	}
	return svc.CheckAddOnNameUniqueness(ua.Name, orig)
}

// SubjectQueryFilter narrows subject listings.
type SubjectQueryFilter struct {
	Search     string `query:"search"`
	ClassLevel string `query:"class_level"`
	IsActive   *bool  `query:"is_active"`
}

func (qf *SubjectQueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.ClassLevel == "" && qf.IsActive == nil
}

func (qf *SubjectQueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClassLevel = core.CleanString(qf.ClassLevel)
}
