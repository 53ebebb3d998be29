package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/karo/core"
)

var (
	// errors
	ErrSubjectNotFound = errors.New("subject not found")
	ErrAddOnNotFound   = errors.New("add-on not found")
	ErrNameExists      = errors.New("an item with this name already exists")
)

var nameExistsErrText = ErrNameExists.Error()

const priceNegativeErr = "price cannot be negative"

type (
	Repository interface {
		CheckSubjectNameUniqueness(ctx context.Context, name string, excluded ...Subject) error
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		GetSubjectsByID(ctx context.Context, ids ...string) ([]Subject, error)
		// FilterSubjects applies AND operation on available SubjectQueryFilter fields.
		// SubjectQueryFilter.Search does a case-insensitive match on Subject.Name.
		FilterSubjects(ctx context.Context, filter SubjectQueryFilter) ([]Subject, error)
		UpdateSubject(ctx context.Context, sub Subject, isActive *bool) (Subject, error)
		DeleteSubjectsByID(ctx context.Context, ids ...string) error

		CheckAddOnNameUniqueness(ctx context.Context, name string, excluded ...AddOn) error
		CreateAddOn(ctx context.Context, ao AddOn) (AddOn, error)
		GetAddOnByID(ctx context.Context, id string) (AddOn, error)
		GetAddOnsByID(ctx context.Context, ids ...string) ([]AddOn, error)
		QueryAllAddOns(ctx context.Context) ([]AddOn, error)
		UpdateAddOn(ctx context.Context, ao AddOn, isActive *bool) (AddOn, error)
		DeleteAddOnsByID(ctx context.Context, ids ...string) error
	}

	ServiceInterface interface {
		CheckSubjectNameUniqueness(name string, excluded ...Subject) error
		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		GetSubjectsByID(ctx context.Context, ids ...string) ([]Subject, error)
		FilterSubjects(ctx context.Context, filter SubjectQueryFilter) ([]Subject, error)
		QueryActiveSubjects(ctx context.Context, classLevel string) ([]Subject, error)
		UpdateSubject(ctx context.Context, id string, us UpdateSubject) (Subject, error)
		DeleteSubjects(ctx context.Context, ids ...string) error

		CheckAddOnNameUniqueness(name string, excluded ...AddOn) error
		CreateAddOn(ctx context.Context, na NewAddOn) (AddOn, error)
		GetAddOnByID(ctx context.Context, id string) (AddOn, error)
		GetAddOnsByID(ctx context.Context, ids ...string) ([]AddOn, error)
		QueryActiveAddOns(ctx context.Context) ([]AddOn, error)
		UpdateAddOn(ctx context.Context, id string, ua UpdateAddOn) (AddOn, error)
		DeleteAddOns(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckSubjectNameUniqueness(name string, excluded ...Subject) error {
	if err := svc.repo.CheckSubjectNameUniqueness(context.Background(), name, excluded...); err != nil {
		if errors.Is(err, ErrNameExists) {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: nameExistsErrText})
		}
		return err
	}
	return nil
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	sub := Subject{
		ID:          uuid.New().String(),
		Name:        ns.Name,
		BasePrice:   ns.BasePrice,
		ClassLevels: ns.ClassLevels,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ns.IsActive != nil {
		sub.IsActive = *ns.IsActive
	}
	return svc.repo.CreateSubject(ctx, sub)
}

func (svc *Service) GetSubjectByID(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) GetSubjectsByID(ctx context.Context, ids ...string) ([]Subject, error) {
	return svc.repo.GetSubjectsByID(ctx, ids...)
}

func (svc *Service) FilterSubjects(ctx context.Context, filter SubjectQueryFilter) ([]Subject, error) {
	filter.Clean()
	return svc.repo.FilterSubjects(ctx, filter)
}

// QueryActiveSubjects lists the active subjects offered at the given class
// level; an empty level lists all active subjects.
func (svc *Service) QueryActiveSubjects(ctx context.Context, classLevel string) ([]Subject, error) {
	active := true
	return svc.FilterSubjects(ctx, SubjectQueryFilter{ClassLevel: classLevel, IsActive: &active})
}

func (svc *Service) UpdateSubject(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	sub := Subject{
		ID:          id,
		Name:        us.Name,
		ClassLevels: us.ClassLevels,
		UpdatedAt:   time.Now().UTC(),
	}
	if us.BasePrice != nil {
		sub.BasePrice = *us.BasePrice
	}
	return svc.repo.UpdateSubject(ctx, sub, us.IsActive)
}

func (svc *Service) DeleteSubjects(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteSubjectsByID(ctx, ids...)
}

func (svc *Service) CheckAddOnNameUniqueness(name string, excluded ...AddOn) error {
	if err := svc.repo.CheckAddOnNameUniqueness(context.Background(), name, excluded...); err != nil {
		if errors.Is(err, ErrNameExists) {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: nameExistsErrText})
		}
		return err
	}
	return nil
}

func (svc *Service) CreateAddOn(ctx context.Context, na NewAddOn) (AddOn, error) {
	now := time.Now().UTC()
	ao := AddOn{
		ID:        uuid.New().String(),
		Name:      na.Name,
		Price:     na.Price,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if na.IsActive != nil {
		ao.IsActive = *na.IsActive
	}
	return svc.repo.CreateAddOn(ctx, ao)
}

func (svc *Service) GetAddOnByID(ctx context.Context, id string) (AddOn, error) {
	return svc.repo.GetAddOnByID(ctx, id)
}

func (svc *Service) GetAddOnsByID(ctx context.Context, ids ...string) ([]AddOn, error) {
	return svc.repo.GetAddOnsByID(ctx, ids...)
}

func (svc *Service) QueryActiveAddOns(ctx context.Context) ([]AddOn, error) {
	all, err := svc.repo.QueryAllAddOns(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]AddOn, 0, len(all))
	for _, ao := range all {
		if ao.IsActive {
			active = append(active, ao)
		}
	}
	return active, nil
}

func (svc *Service) UpdateAddOn(ctx context.Context, id string, ua UpdateAddOn) (AddOn, error) {
	ao := AddOn{
		ID:        id,
		Name:      ua.Name,
		UpdatedAt: time.Now().UTC(),
	}
	if ua.Price != nil {
		ao.Price = *ua.Price
	}
	return svc.repo.UpdateAddOn(ctx, ao, ua.IsActive)
}

func (svc *Service) DeleteAddOns(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteAddOnsByID(ctx, ids...)
}
