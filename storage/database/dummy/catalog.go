package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/karo/core/catalog"
)

type catalogRepository struct {
	subjects *subjectTable
	addOns   *addOnTable
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{subjects: db.subject, addOns: db.addOn}
}

func (repo *catalogRepository) querySubjects() []catalog.Subject {
	subs := make([]catalog.Subject, 0, len(repo.subjects.table))
	for _, s := range repo.subjects.table {
		subs = append(subs, *s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })
	return subs
}

func (repo *catalogRepository) queryAddOns() []catalog.AddOn {
	aos := make([]catalog.AddOn, 0, len(repo.addOns.table))
	for _, ao := range repo.addOns.table {
		aos = append(aos, *ao)
	}
	sort.Slice(aos, func(i, j int) bool { return aos[i].CreatedAt.Before(aos[j].CreatedAt) })
	return aos
}

func (repo *catalogRepository) CheckSubjectNameUniqueness(ctx context.Context, name string, excluded ...catalog.Subject) error {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	for _, sub := range repo.subjects.table {
		if strings.EqualFold(sub.Name, name) && !subjectExcluded(*sub, excluded) {
			return catalog.ErrNameExists
		}
	}
	return nil
}

func subjectExcluded(sub catalog.Subject, excluded []catalog.Subject) bool {
	for _, ex := range excluded {
		if ex.ID == sub.ID {
			return true
		}
	}
	return false
}

func (repo *catalogRepository) CreateSubject(ctx context.Context, sub catalog.Subject) (catalog.Subject, error) {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	repo.subjects.table[sub.ID] = &sub
	return sub, nil
}

func (repo *catalogRepository) GetSubjectByID(ctx context.Context, id string) (catalog.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	if sub, ok := repo.subjects.table[id]; ok {
		return *sub, nil
	}
	return catalog.Subject{}, catalog.ErrSubjectNotFound
}

func (repo *catalogRepository) GetSubjectsByID(ctx context.Context, ids ...string) ([]catalog.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	subs := make([]catalog.Subject, 0, len(ids))
	for _, id := range ids {
		if sub, ok := repo.subjects.table[id]; ok {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (repo *catalogRepository) FilterSubjects(ctx context.Context, filter catalog.SubjectQueryFilter) ([]catalog.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	subs := make([]catalog.Subject, 0)
	for _, sub := range repo.querySubjects() {
		if filter.Search != "" && !strings.Contains(strings.ToLower(sub.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.ClassLevel != "" && !sub.HasClassLevel(filter.ClassLevel) {
			continue
		}
		if filter.IsActive != nil && sub.IsActive != *filter.IsActive {
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (repo *catalogRepository) UpdateSubject(ctx context.Context, sub catalog.Subject, isActive *bool) (catalog.Subject, error) {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	orig, ok := repo.subjects.table[sub.ID]
	if !ok {
		return catalog.Subject{}, catalog.ErrSubjectNotFound
	}

	orig.Name = sub.Name
	orig.BasePrice = sub.BasePrice
	orig.ClassLevels = sub.ClassLevels
	orig.UpdatedAt = sub.UpdatedAt
	if isActive != nil {
		orig.IsActive = *isActive
	}
	return *orig, nil
}

func (repo *catalogRepository) DeleteSubjectsByID(ctx context.Context, ids ...string) error {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	for _, id := range ids {
		delete(repo.subjects.table, id)
	}
	return nil
}

func (repo *catalogRepository) CheckAddOnNameUniqueness(ctx context.Context, name string, excluded ...catalog.AddOn) error {
	repo.addOns.RLock()
	defer repo.addOns.RUnlock()

	for _, ao := range repo.addOns.table {
		if strings.EqualFold(ao.Name, name) && !addOnExcluded(*ao, excluded) {
			return catalog.ErrNameExists
		}
	}
	return nil
}

func addOnExcluded(ao catalog.AddOn, excluded []catalog.AddOn) bool {
	for _, ex := range excluded {
		if ex.ID == ao.ID {
			return true
		}
	}
	return false
}

func (repo *catalogRepository) CreateAddOn(ctx context.Context, ao catalog.AddOn) (catalog.AddOn, error) {
	repo.addOns.Lock()
	defer repo.addOns.Unlock()

	repo.addOns.table[ao.ID] = &ao
	return ao, nil
}

func (repo *catalogRepository) GetAddOnByID(ctx context.Context, id string) (catalog.AddOn, error) {
	repo.addOns.RLock()
	defer repo.addOns.RUnlock()

	if ao, ok := repo.addOns.table[id]; ok {
		return *ao, nil
	}
	return catalog.AddOn{}, catalog.ErrAddOnNotFound
}

func (repo *catalogRepository) GetAddOnsByID(ctx context.Context, ids ...string) ([]catalog.AddOn, error) {
	repo.addOns.RLock()
	defer repo.addOns.RUnlock()

	aos := make([]catalog.AddOn, 0, len(ids))
	for _, id := range ids {
		if ao, ok := repo.addOns.table[id]; ok {
			aos = append(aos, *ao)
		}
	}
	return aos, nil
}

func (repo *catalogRepository) QueryAllAddOns(ctx context.Context) ([]catalog.AddOn, error) {
	repo.addOns.RLock()
	defer repo.addOns.RUnlock()
	return repo.queryAddOns(), nil
}

func (repo *catalogRepository) UpdateAddOn(ctx context.Context, ao catalog.AddOn, isActive *bool) (catalog.AddOn, error) {
	repo.addOns.Lock()
	defer repo.addOns.Unlock()

	orig, ok := repo.addOns.table[ao.ID]
	if !ok {
		return catalog.AddOn{}, catalog.ErrAddOnNotFound
	}

	orig.Name = ao.Name
	orig.Price = ao.Price
	orig.UpdatedAt = ao.UpdatedAt
	if isActive != nil {
		orig.IsActive = *isActive
	}
	return *orig, nil
}

func (repo *catalogRepository) DeleteAddOnsByID(ctx context.Context, ids ...string) error {
	repo.addOns.Lock()
	defer repo.addOns.Unlock()

	for _, id := range ids {
		delete(repo.addOns.table, id)
	}
	return nil
}
