package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/karo/core/student"
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sql.DB) student.Repository {
	return &studentRepository{db: sqlx.NewDb(db, "postgres")}
}

type studentRow struct {
	ID            string      `db:"id"`
	Name          string      `db:"name"`
	Email         string      `db:"email"`
	GuardianEmail null.String `db:"guardian_email"`
	ClassLevel    string      `db:"class_level"`
	IsActive      bool        `db:"is_active"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (row studentRow) student() student.Student {
	return student.Student{
		ID:            row.ID,
		Name:          row.Name,
		Email:         row.Email,
		GuardianEmail: row.GuardianEmail.String,
		ClassLevel:    row.ClassLevel,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

func (repo *studentRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...student.Student) error {
	query := `SELECT COUNT(*) FROM student WHERE LOWER(email) = LOWER($1)`
	args := []interface{}{email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, std := range excluded {
			ids = append(ids, std.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pq.Array(ids))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return student.ErrEmailExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	query := `
		INSERT INTO student (id, name, email, guardian_email, class_level, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(ctx, query,
		std.ID, std.Name, std.Email, null.NewString(std.GuardianEmail, std.GuardianEmail != ""),
		std.ClassLevel, std.IsActive, std.CreatedAt, std.UpdatedAt)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM student WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return student.Student{}, student.ErrNotFound
	} else if err != nil {
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return row.student(), nil
}

func (repo *studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM student WHERE LOWER(email) = LOWER($1)`, email)
	if err == sql.ErrNoRows {
		return student.Student{}, student.ErrNotFound
	} else if err != nil {
		return student.Student{}, errors.Wrap(err, "getting student by email")
	}
	return row.student(), nil
}

func (repo *studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	query := `SELECT * FROM student WHERE 1=1`
	args := make([]interface{}, 0, 3)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		query += ` AND (name ILIKE ` + p + ` OR email ILIKE ` + p + `)`
	}
	if filter.ClassLevel != "" {
		query += ` AND class_level = ` + arg(filter.ClassLevel)
	}
	if filter.IsActive != nil {
		query += ` AND is_active = ` + arg(*filter.IsActive)
	}
	query += ` ORDER BY created_at`

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	stds := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		stds = append(stds, row.student())
	}
	return stds, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student, isActive *bool) (student.Student, error) {
	query := `
		UPDATE student
		SET name = $2, email = $3, guardian_email = $4, class_level = $5, updated_at = $6,
		    is_active = COALESCE($7, is_active)
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		std.ID, std.Name, std.Email, null.NewString(std.GuardianEmail, std.GuardianEmail != ""),
		std.ClassLevel, std.UpdatedAt, isActive)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return repo.GetStudentByID(ctx, std.ID)
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting students")
}
