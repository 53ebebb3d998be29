// Package sqlxrepos implements the domain repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core/catalog"
)

type catalogRepository struct {
	db *sqlx.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *sql.DB) catalog.Repository {
	return &catalogRepository{db: sqlx.NewDb(db, "postgres")}
}

type subjectRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	BasePrice   decimal.Decimal `db:"base_price"`
	ClassLevels pq.StringArray  `db:"class_levels"`
	IsActive    bool            `db:"is_active"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (row subjectRow) subject() catalog.Subject {
	return catalog.Subject{
		ID:          row.ID,
		Name:        row.Name,
		BasePrice:   row.BasePrice,
		ClassLevels: row.ClassLevels,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type addOnRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	IsActive  bool            `db:"is_active"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (row addOnRow) addOn() catalog.AddOn {
	return catalog.AddOn{
		ID:        row.ID,
		Name:      row.Name,
		Price:     row.Price,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (repo *catalogRepository) CheckSubjectNameUniqueness(ctx context.Context, name string, excluded ...catalog.Subject) error {
	query := `SELECT COUNT(*) FROM subject WHERE LOWER(name) = LOWER($1)`
	args := []interface{}{name}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, sub := range excluded {
			ids = append(ids, sub.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pq.Array(ids))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking subject name uniqueness")
	}
	if count > 0 {
		return catalog.ErrNameExists
	}
	return nil
}

func (repo *catalogRepository) CreateSubject(ctx context.Context, sub catalog.Subject) (catalog.Subject, error) {
	query := `
		INSERT INTO subject (id, name, base_price, class_levels, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, query,
		sub.ID, sub.Name, sub.BasePrice, pq.Array(sub.ClassLevels), sub.IsActive, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return catalog.Subject{}, errors.Wrap(err, "creating subject")
	}
	return sub, nil
}

func (repo *catalogRepository) GetSubjectByID(ctx context.Context, id string) (catalog.Subject, error) {
	var row subjectRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM subject WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return catalog.Subject{}, catalog.ErrSubjectNotFound
	} else if err != nil {
		return catalog.Subject{}, errors.Wrap(err, "getting subject")
	}
	return row.subject(), nil
}

func (repo *catalogRepository) GetSubjectsByID(ctx context.Context, ids ...string) ([]catalog.Subject, error) {
	var rows []subjectRow
	query := `SELECT * FROM subject WHERE id = ANY($1) ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "getting subjects")
	}
	subs := make([]catalog.Subject, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.subject())
	}
	return subs, nil
}

func (repo *catalogRepository) FilterSubjects(ctx context.Context, filter catalog.SubjectQueryFilter) ([]catalog.Subject, error) {
	query := `SELECT * FROM subject WHERE 1=1`
	args := make([]interface{}, 0, 3)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.Search != "" {
		query += ` AND name ILIKE ` + arg("%"+filter.Search+"%")
	}
	if filter.ClassLevel != "" {
		query += ` AND (class_levels = '{}' OR ` + arg(filter.ClassLevel) + ` = ANY(class_levels))`
	}
	if filter.IsActive != nil {
		query += ` AND is_active = ` + arg(*filter.IsActive)
	}
	query += ` ORDER BY created_at`

	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering subjects")
	}
	subs := make([]catalog.Subject, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.subject())
	}
	return subs, nil
}

func (repo *catalogRepository) UpdateSubject(ctx context.Context, sub catalog.Subject, isActive *bool) (catalog.Subject, error) {
	query := `
		UPDATE subject
		SET name = $2, base_price = $3, class_levels = $4, updated_at = $5,
		    is_active = COALESCE($6, is_active)
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		sub.ID, sub.Name, sub.BasePrice, pq.Array(sub.ClassLevels), sub.UpdatedAt, isActive)
	if err != nil {
		return catalog.Subject{}, errors.Wrap(err, "updating subject")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Subject{}, catalog.ErrSubjectNotFound
	}
	return repo.GetSubjectByID(ctx, sub.ID)
}

func (repo *catalogRepository) DeleteSubjectsByID(ctx context.Context, ids ...string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM subject WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting subjects")
}

func (repo *catalogRepository) CheckAddOnNameUniqueness(ctx context.Context, name string, excluded ...catalog.AddOn) error {
	query := `SELECT COUNT(*) FROM addon WHERE LOWER(name) = LOWER($1)`
	args := []interface{}{name}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, ao := range excluded {
			ids = append(ids, ao.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pq.Array(ids))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking add-on name uniqueness")
	}
	if count > 0 {
		return catalog.ErrNameExists
	}
	return nil
}

func (repo *catalogRepository) CreateAddOn(ctx context.Context, ao catalog.AddOn) (catalog.AddOn, error) {
	query := `
		INSERT INTO addon (id, name, price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, query, ao.ID, ao.Name, ao.Price, ao.IsActive, ao.CreatedAt, ao.UpdatedAt)
	if err != nil {
		return catalog.AddOn{}, errors.Wrap(err, "creating add-on")
	}
	return ao, nil
}

func (repo *catalogRepository) GetAddOnByID(ctx context.Context, id string) (catalog.AddOn, error) {
	var row addOnRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM addon WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return catalog.AddOn{}, catalog.ErrAddOnNotFound
	} else if err != nil {
		return catalog.AddOn{}, errors.Wrap(err, "getting add-on")
	}
	return row.addOn(), nil
}

func (repo *catalogRepository) GetAddOnsByID(ctx context.Context, ids ...string) ([]catalog.AddOn, error) {
	var rows []addOnRow
	query := `SELECT * FROM addon WHERE id = ANY($1) ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "getting add-ons")
	}
	aos := make([]catalog.AddOn, 0, len(rows))
	for _, row := range rows {
		aos = append(aos, row.addOn())
	}
	return aos, nil
}

func (repo *catalogRepository) QueryAllAddOns(ctx context.Context) ([]catalog.AddOn, error) {
	var rows []addOnRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM addon ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying add-ons")
	}
	aos := make([]catalog.AddOn, 0, len(rows))
	for _, row := range rows {
		aos = append(aos, row.addOn())
	}
	return aos, nil
}

func (repo *catalogRepository) UpdateAddOn(ctx context.Context, ao catalog.AddOn, isActive *bool) (catalog.AddOn, error) {
	query := `
		UPDATE addon
		SET name = $2, price = $3, updated_at = $4,
		    is_active = COALESCE($5, is_active)
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, ao.ID, ao.Name, ao.Price, ao.UpdatedAt, isActive)
	if err != nil {
		return catalog.AddOn{}, errors.Wrap(err, "updating add-on")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.AddOn{}, catalog.ErrAddOnNotFound
	}
	return repo.GetAddOnByID(ctx, ao.ID)
}

func (repo *catalogRepository) DeleteAddOnsByID(ctx context.Context, ids ...string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM addon WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting add-ons")
}
