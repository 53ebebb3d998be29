package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/invoice"
)

type invoiceRepository struct {
	db *invoiceTable
}

var _ invoice.Repository = (*invoiceRepository)(nil) // interface compliance check

func NewInvoiceRepository(db *DB) invoice.Repository {
	return &invoiceRepository{db: db.invoice}
}

func (repo *invoiceRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[inv.ID] = &inv
	return inv, nil
}

func (repo *invoiceRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[inv.ID]
	if !ok {
		return invoice.Invoice{}, invoice.ErrNotFound
	}

	inv.Number = orig.Number
	inv.IssueDate = orig.IssueDate
	inv.CreatedAt = orig.CreatedAt
	repo.db.table[inv.ID] = &inv
	return inv, nil
}

func (repo *invoiceRepository) GetInvoiceByID(ctx context.Context, id string) (invoice.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inv, ok := repo.db.table[id]; ok {
		return *inv, nil
	}
	return invoice.Invoice{}, invoice.ErrNotFound
}

func (repo *invoiceRepository) GetInvoiceByNumber(ctx context.Context, number string) (invoice.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, inv := range repo.db.table {
		if inv.Number == number {
			return *inv, nil
		}
	}
	return invoice.Invoice{}, invoice.ErrNotFound
}

func (repo *invoiceRepository) FilterInvoices(ctx context.Context, filter invoice.QueryFilter, ordering ...core.DBOrdering) ([]invoice.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	invs := make([]invoice.Invoice, 0)
	search := strings.ToLower(filter.Search)
	for _, inv := range repo.db.table {
		if filter.StudentID != "" && inv.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(inv.Number), search) &&
			!strings.Contains(strings.ToLower(inv.Notes), search) {
			continue
		}
		if !filter.DueFrom.IsZero() && inv.DueDate.Before(filter.DueFrom) {
			continue
		}
		if !filter.DueTo.IsZero() && inv.DueDate.After(filter.DueTo) {
			continue
		}
		invs = append(invs, *inv)
	}

	sortInvoices(invs, ordering)
	return invs, nil
}

// sortInvoices only understands the orderable API fields; anything else falls
// back to creation order.
func sortInvoices(invs []invoice.Invoice, ordering []core.DBOrdering) {
	less := func(i, j int) bool { return invs[i].CreatedAt.Before(invs[j].CreatedAt) }
	if len(ordering) > 0 {
		ord := ordering[0]
		switch ord.Field {
		case "number":
			less = func(i, j int) bool { return invs[i].Number < invs[j].Number }
		case "due_date":
			less = func(i, j int) bool { return invs[i].DueDate.Before(invs[j].DueDate) }
		case "total":
			less = func(i, j int) bool { return invs[i].Total.LessThan(invs[j].Total.Decimal) }
		}
		if !ord.Ascending {
			orig := less
			less = func(i, j int) bool { return orig(j, i) }
		}
	}
	sort.Slice(invs, less)
}

func (repo *invoiceRepository) SetInvoiceStatus(ctx context.Context, id string, status invoice.Status) (invoice.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[id]
	if !ok {
		return invoice.Invoice{}, invoice.ErrNotFound
	}

	orig.Status = status
	return *orig, nil
}

func (repo *invoiceRepository) DeleteInvoice(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return invoice.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *invoiceRepository) NextInvoiceSeq(ctx context.Context, year int) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seqs[year]++
	return repo.db.seqs[year], nil
}
