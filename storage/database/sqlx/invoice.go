package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/billing"
	"github.com/trezcool/karo/core/invoice"
)

type invoiceRepository struct {
	db *sqlx.DB
}

var _ invoice.Repository = (*invoiceRepository)(nil) // interface compliance check

func NewInvoiceRepository(db *sql.DB) invoice.Repository {
	return &invoiceRepository{db: sqlx.NewDb(db, "postgres")}
}

type invoiceRow struct {
	ID             string          `db:"id"`
	Number         string          `db:"number"`
	StudentID      string          `db:"student_id"`
	IssueDate      time.Time       `db:"issue_date"`
	DueDate        time.Time       `db:"due_date"`
	Status         string         `db:"status"`
	Subtotal       billing.Amount `db:"subtotal"`
	DiscountAmount billing.Amount `db:"discount_amount"`
	Total          billing.Amount `db:"total"`
	Notes          null.String    `db:"notes"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (row invoiceRow) invoice() invoice.Invoice {
	return invoice.Invoice{
		ID:             row.ID,
		Number:         row.Number,
		StudentID:      row.StudentID,
		IssueDate:      row.IssueDate.UTC(),
		DueDate:        row.DueDate.UTC(),
		Status:         invoice.Status(row.Status),
		Subtotal:       row.Subtotal,
		DiscountAmount: row.DiscountAmount,
		Total:          row.Total,
		Notes:          row.Notes.String,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

type invoiceItemRow struct {
	ID             string          `db:"id"`
	InvoiceID      string          `db:"invoice_id"`
	ItemType       string          `db:"item_type"`
	ItemRefID      string          `db:"item_ref_id"`
	Name           string          `db:"name"`
	UnitPrice      billing.Amount  `db:"unit_price"`
	DiscountType   string          `db:"discount_type"`
	DiscountValue  decimal.Decimal `db:"discount_value"`
	DiscountReason null.String     `db:"discount_reason"`
	DiscountAmount billing.Amount  `db:"discount_amount"`
	FinalPrice     billing.Amount  `db:"final_price"`
	Position       int             `db:"position"`
}

func (row invoiceItemRow) item() invoice.Item {
	return invoice.Item{
		ID:             row.ID,
		InvoiceID:      row.InvoiceID,
		ItemType:       billing.ItemType(row.ItemType),
		ItemRefID:      row.ItemRefID,
		Name:           row.Name,
		UnitPrice:      row.UnitPrice,
		DiscountType:   billing.DiscountType(row.DiscountType),
		DiscountValue:  row.DiscountValue,
		DiscountReason: row.DiscountReason.String,
		DiscountAmount: row.DiscountAmount,
		FinalPrice:     row.FinalPrice,
		Position:       row.Position,
	}
}

// orderable whitelists the invoice columns exposed for result ordering.
var orderable = map[string]bool{
	"number":     true,
	"issue_date": true,
	"due_date":   true,
	"total":      true,
	"created_at": true,
}

func (repo *invoiceRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO invoice (id, number, student_id, issue_date, due_date, status, subtotal, discount_amount, total, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = tx.ExecContext(ctx, query,
		inv.ID, inv.Number, inv.StudentID, inv.IssueDate, inv.DueDate, inv.Status,
		inv.Subtotal, inv.DiscountAmount, inv.Total, null.NewString(inv.Notes, inv.Notes != ""),
		inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "creating invoice")
	}

	if err = insertItems(ctx, tx, inv.Items); err != nil {
		return invoice.Invoice{}, err
	}
	if err = tx.Commit(); err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "committing invoice")
	}
	return inv, nil
}

func (repo *invoiceRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	query := `
		UPDATE invoice
		SET student_id = $2, due_date = $3, subtotal = $4, discount_amount = $5, total = $6, notes = $7, updated_at = $8
		WHERE id = $1`
	res, err := tx.ExecContext(ctx, query,
		inv.ID, inv.StudentID, inv.DueDate, inv.Subtotal, inv.DiscountAmount, inv.Total,
		null.NewString(inv.Notes, inv.Notes != ""), inv.UpdatedAt)
	if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "updating invoice")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return invoice.Invoice{}, invoice.ErrNotFound
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM invoice_item WHERE invoice_id = $1`, inv.ID); err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "clearing invoice items")
	}
	if err = insertItems(ctx, tx, inv.Items); err != nil {
		return invoice.Invoice{}, err
	}
	if err = tx.Commit(); err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "committing invoice")
	}
	return repo.GetInvoiceByID(ctx, inv.ID)
}

func insertItems(ctx context.Context, tx *sqlx.Tx, items []invoice.Item) error {
	query := `
		INSERT INTO invoice_item (id, invoice_id, item_type, item_ref_id, name, unit_price, discount_type, discount_value, discount_reason, discount_amount, final_price, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	for _, it := range items {
		_, err := tx.ExecContext(ctx, query,
			it.ID, it.InvoiceID, it.ItemType, it.ItemRefID, it.Name, it.UnitPrice,
			it.DiscountType, it.DiscountValue, null.NewString(it.DiscountReason, it.DiscountReason != ""),
			it.DiscountAmount, it.FinalPrice, it.Position)
		if err != nil {
			return errors.Wrap(err, "inserting invoice item")
		}
	}
	return nil
}

func (repo *invoiceRepository) GetInvoiceByID(ctx context.Context, id string) (invoice.Invoice, error) {
	var row invoiceRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM invoice WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return invoice.Invoice{}, invoice.ErrNotFound
	} else if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "getting invoice")
	}
	return repo.loadItems(ctx, row.invoice())
}

func (repo *invoiceRepository) GetInvoiceByNumber(ctx context.Context, number string) (invoice.Invoice, error) {
	var row invoiceRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM invoice WHERE number = $1`, number)
	if err == sql.ErrNoRows {
		return invoice.Invoice{}, invoice.ErrNotFound
	} else if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "getting invoice by number")
	}
	return repo.loadItems(ctx, row.invoice())
}

func (repo *invoiceRepository) loadItems(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	var rows []invoiceItemRow
	query := `SELECT * FROM invoice_item WHERE invoice_id = $1 ORDER BY position`
	if err := repo.db.SelectContext(ctx, &rows, query, inv.ID); err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "loading invoice items")
	}
	inv.Items = make([]invoice.Item, 0, len(rows))
	for _, row := range rows {
		inv.Items = append(inv.Items, row.item())
	}
	return inv, nil
}

func (repo *invoiceRepository) FilterInvoices(ctx context.Context, filter invoice.QueryFilter, ordering ...core.DBOrdering) ([]invoice.Invoice, error) {
	query := `SELECT * FROM invoice WHERE 1=1`
	args := make([]interface{}, 0, 5)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.StudentID != "" {
		query += ` AND student_id = ` + arg(filter.StudentID)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		query += ` AND (number ILIKE ` + p + ` OR notes ILIKE ` + p + `)`
	}
	if !filter.DueFrom.IsZero() {
		query += ` AND due_date >= ` + arg(filter.DueFrom)
	}
	if !filter.DueTo.IsZero() {
		query += ` AND due_date <= ` + arg(filter.DueTo)
	}

	orderBy := ` ORDER BY created_at DESC`
	if len(ordering) > 0 && orderable[ordering[0].Field] {
		orderBy = ` ORDER BY ` + ordering[0].String()
	}
	query += orderBy

	var rows []invoiceRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering invoices")
	}
	if len(rows) == 0 {
		return []invoice.Invoice{}, nil
	}

	invs := make([]invoice.Invoice, 0, len(rows))
	index := make(map[string]int, len(rows))
	ids := make([]string, 0, len(rows))
	for i, row := range rows {
		invs = append(invs, row.invoice())
		invs[i].Items = []invoice.Item{}
		index[row.ID] = i
		ids = append(ids, row.ID)
	}

	var itemRows []invoiceItemRow
	itemsQuery := `SELECT * FROM invoice_item WHERE invoice_id = ANY($1) ORDER BY position`
	if err := repo.db.SelectContext(ctx, &itemRows, itemsQuery, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "loading invoice items")
	}
	for _, row := range itemRows {
		i := index[row.InvoiceID]
		invs[i].Items = append(invs[i].Items, row.item())
	}
	return invs, nil
}

func (repo *invoiceRepository) SetInvoiceStatus(ctx context.Context, id string, status invoice.Status) (invoice.Invoice, error) {
	query := `UPDATE invoice SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "setting invoice status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	return repo.GetInvoiceByID(ctx, id)
}

func (repo *invoiceRepository) DeleteInvoice(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM invoice WHERE id = $1`, id)
	return errors.Wrap(err, "deleting invoice")
}

func (repo *invoiceRepository) NextInvoiceSeq(ctx context.Context, year int) (int, error) {
	var seq int
	query := `
		INSERT INTO invoice_seq (year, seq) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = invoice_seq.seq + 1
		RETURNING seq`
	if err := repo.db.GetContext(ctx, &seq, query, year); err != nil {
		return 0, errors.Wrap(err, "incrementing invoice sequence")
	}
	return seq, nil
}
