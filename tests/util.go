package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/catalog"
	"github.com/trezcool/karo/core/student"
)

// Logger routes app logs to the test output.
type Logger struct {
	T *testing.T
}

var _ core.Logger = (*Logger)(nil)

func (l Logger) log(msg string, args []interface{}) {
	l.T.Helper()
	l.T.Log(append([]interface{}{msg}, args...)...)
}

func (l Logger) Debug(msg string, args ...interface{}) { l.log(msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.log(msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.log(msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.log(msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.T.Fatal(append([]interface{}{msg}, args...)...) }

func Decimal(t *testing.T, val string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(val)
	if err != nil {
		t.Fatalf("Decimal(%q) failed: %v", val, err)
	}
	return d
}

func CreateSubject(
	t *testing.T,
	repo catalog.Repository,
	name, basePrice string,
	classLevels []string,
	isActive bool,
	createdAt ...time.Time,
) catalog.Subject {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	sub := catalog.Subject{
		ID:          name, // deterministic ids keep test fixtures readable
		Name:        name,
		BasePrice:   Decimal(t, basePrice),
		ClassLevels: classLevels,
		IsActive:    isActive,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	sub, err := repo.CreateSubject(context.Background(), sub)
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

func CreateAddOn(
	t *testing.T,
	repo catalog.Repository,
	name, price string,
	isActive bool,
	createdAt ...time.Time,
) catalog.AddOn {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	ao := catalog.AddOn{
		ID:        strings.ReplaceAll(name, " ", "-"), // path-safe deterministic id
		Name:      name,
		Price:     Decimal(t, price),
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	ao, err := repo.CreateAddOn(context.Background(), ao)
	if err != nil {
		t.Fatalf("CreateAddOn() failed: %v", err)
	}
	return ao
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, email, guardianEmail, classLevel string,
	isActive bool,
	createdAt ...time.Time,
) student.Student {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	std := student.Student{
		ID:            email,
		Name:          name,
		Email:         email,
		GuardianEmail: guardianEmail,
		ClassLevel:    classLevel,
		IsActive:      isActive,
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	}
	std, err := repo.CreateStudent(context.Background(), std)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}
