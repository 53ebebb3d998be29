package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/karo/core/billing"
	"github.com/trezcool/karo/core/enrollment"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sql.DB) enrollment.Repository {
	return &enrollmentRepository{db: sqlx.NewDb(db, "postgres")}
}

type enrollmentRow struct {
	ID             string          `db:"id"`
	StudentID      string          `db:"student_id"`
	SubjectID      string          `db:"subject_id"`
	Status         string          `db:"status"`
	DiscountType   string          `db:"discount_type"`
	DiscountValue  decimal.Decimal `db:"discount_value"`
	DiscountReason null.String     `db:"discount_reason"`
	EnrolledAt     time.Time       `db:"enrolled_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (row enrollmentRow) enrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:             row.ID,
		StudentID:      row.StudentID,
		SubjectID:      row.SubjectID,
		Status:         enrollment.Status(row.Status),
		DiscountType:   billing.DiscountType(row.DiscountType),
		DiscountValue:  row.DiscountValue,
		DiscountReason: row.DiscountReason.String,
		EnrolledAt:     row.EnrolledAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	query := `
		INSERT INTO enrollment (id, student_id, subject_id, status, discount_type, discount_value, discount_reason, enrolled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		enr.ID, enr.StudentID, enr.SubjectID, enr.Status, enr.DiscountType, enr.DiscountValue,
		null.NewString(enr.DiscountReason, enr.DiscountReason != ""), enr.EnrolledAt, enr.UpdatedAt)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM enrollment WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	} else if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return row.enrollment(), nil
}

func (repo *enrollmentRepository) GetActiveEnrollment(ctx context.Context, studentID, subjectID string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	query := `SELECT * FROM enrollment WHERE student_id = $1 AND subject_id = $2 AND status = $3`
	err := repo.db.GetContext(ctx, &row, query, studentID, subjectID, enrollment.StatusActive)
	if err == sql.ErrNoRows {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	} else if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "getting active enrollment")
	}
	return row.enrollment(), nil
}

func (repo *enrollmentRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID string) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	query := `SELECT * FROM enrollment WHERE student_id = $1 ORDER BY enrolled_at`
	if err := repo.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.enrollment())
	}
	return enrs, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	query := `
		UPDATE enrollment
		SET status = $2, discount_type = $3, discount_value = $4, discount_reason = $5, updated_at = $6
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		enr.ID, enr.Status, enr.DiscountType, enr.DiscountValue,
		null.NewString(enr.DiscountReason, enr.DiscountReason != ""), enr.UpdatedAt)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return repo.GetEnrollmentByID(ctx, enr.ID)
}

func (repo *enrollmentRepository) SetEnrollmentStatus(ctx context.Context, id string, status enrollment.Status) (enrollment.Enrollment, error) {
	query := `UPDATE enrollment SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "setting enrollment status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return repo.GetEnrollmentByID(ctx, id)
}
