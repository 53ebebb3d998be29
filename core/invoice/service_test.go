package invoice_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/billing"
	"github.com/trezcool/karo/core/catalog"
	"github.com/trezcool/karo/core/enrollment"
	"github.com/trezcool/karo/core/invoice"
	"github.com/trezcool/karo/core/student"
	emailsvc "github.com/trezcool/karo/services/email"
	dummydb "github.com/trezcool/karo/storage/database/dummy"
	testutil "github.com/trezcool/karo/tests"
)

type testEnv struct {
	svc         *invoice.Service
	enrollSvc   *enrollment.Service
	catalogRepo catalog.Repository
	studentRepo student.Repository
	conf        *core.Config
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := core.NewTestConfig()
	catalogRepo := dummydb.NewCatalogRepository(db)
	studentRepo := dummydb.NewStudentRepository(db)
	enrollSvc := enrollment.NewService(dummydb.NewEnrollmentRepository(db))

	emailsvc.ClearSentMessages()
	svc := invoice.NewService(
		dummydb.NewInvoiceRepository(db),
		catalog.NewService(catalogRepo),
		student.NewService(studentRepo),
		enrollSvc,
		emailsvc.NewConsoleServiceMock(conf),
		testutil.Logger{T: t},
		conf,
	)
	return &testEnv{
		svc:         svc,
		enrollSvc:   enrollSvc,
		catalogRepo: catalogRepo,
		studentRepo: studentRepo,
		conf:        conf,
	}
}

func newInvoiceInput(studentID string, due time.Time, subjects []invoice.SubjectSelectionInput, addOns ...invoice.AddOnSelectionInput) invoice.NewInvoice {
	return invoice.NewInvoice{
		StudentID: studentID,
		DueDate:   due,
		Subjects:  subjects,
		AddOns:    addOns,
	}
}

func TestService_Create(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	math := testutil.CreateSubject(t, env.catalogRepo, "Mathematics", "4000", nil, true)
	phy := testutil.CreateSubject(t, env.catalogRepo, "Physics", "6000", nil, true)
	lab := testutil.CreateAddOn(t, env.catalogRepo, "Lab Fee", "1000", true)
	std := testutil.CreateStudent(t, env.studentRepo, "Awe Kid", "awe@test.cd", "parent@test.cd", "S2", true)

	due := time.Now().UTC().Add(env.conf.Invoice.DefaultDueIn)
	ni := newInvoiceInput(std.ID, due,
		[]invoice.SubjectSelectionInput{
			{SubjectID: math.ID, Selected: true},
			{SubjectID: phy.ID, Selected: true, DiscountType: billing.DiscountPercentage, DiscountValue: testutil.Decimal(t, "10"), DiscountReason: "sibling"},
		},
		invoice.AddOnSelectionInput{AddOnID: lab.ID, Selected: true},
	)

	inv, err := env.svc.Create(ctx, ni)
	require.NoError(t, err)

	assert.Equal(t, invoice.StatusIssued, inv.Status)
	assert.Equal(t, "10400", inv.Total.String())
	assert.Equal(t, "11000", inv.Subtotal.String())
	assert.Equal(t, "600", inv.DiscountAmount.String())
	assert.Equal(t, fmt.Sprintf("INV-%d-000001", time.Now().UTC().Year()), inv.Number)

	// subjects come before add-ons, in selection order
	require.Len(t, inv.Items, 3)
	assert.Equal(t, math.ID, inv.Items[0].ItemRefID)
	assert.Equal(t, phy.ID, inv.Items[1].ItemRefID)
	assert.Equal(t, lab.ID, inv.Items[2].ItemRefID)
	assert.Equal(t, billing.ItemTypeAddOn, inv.Items[2].ItemType)
	for i, item := range inv.Items {
		assert.Equal(t, i, item.Position)
	}

	// enrollments are refreshed with the granted discounts
	enrs, err := env.enrollSvc.QueryByStudent(ctx, std.ID)
	require.NoError(t, err)
	require.Len(t, enrs, 2)
	defaults := enrollment.SubjectDefaults(enrs)
	assert.Equal(t, billing.DiscountNone, defaults[math.ID].Type)
	assert.Equal(t, billing.DiscountPercentage, defaults[phy.ID].Type)
	assert.Equal(t, "10", defaults[phy.ID].Value.String())

	// invoice notification goes to the student, guardian in copy
	require.Len(t, emailsvc.SentMessages, 1)
	msg := emailsvc.SentMessages[0]
	assert.Equal(t, std.Email, msg.To[0].Address)
	require.Len(t, msg.Cc, 1)
	assert.Equal(t, std.GuardianEmail, msg.Cc[0].Address)
	assert.Contains(t, msg.Subject, inv.Number)
	assert.Contains(t, msg.TextContent, "10400.00")

	// numbers increment within the year
	inv2, err := env.svc.Create(ctx, ni)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%d-000002", time.Now().UTC().Year()), inv2.Number)
}

func TestService_Create_studentNotFound(t *testing.T) {
	env := setup(t)

	math := testutil.CreateSubject(t, env.catalogRepo, "Mathematics", "4000", nil, true)
	ni := newInvoiceInput("ghost", time.Now().UTC(),
		[]invoice.SubjectSelectionInput{{SubjectID: math.ID, Selected: true}})

	_, err := env.svc.Create(context.Background(), ni)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %v", err)
	assert.Equal(t, "student_id", vErr.Fields[0].Field)
}

func TestService_Create_unknownSubject(t *testing.T) {
	env := setup(t)

	std := testutil.CreateStudent(t, env.studentRepo, "Awe Kid", "awe@test.cd", "", "S2", true)
	ni := newInvoiceInput(std.ID, time.Now().UTC(),
		[]invoice.SubjectSelectionInput{{SubjectID: "ghost", Selected: true}})

	_, err := env.svc.Create(context.Background(), ni)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %v", err)
	assert.Equal(t, "subjects", vErr.Fields[0].Field)
}

func TestService_Preview_isPure(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	math := testutil.CreateSubject(t, env.catalogRepo, "Mathematics", "4000", nil, true)
	std := testutil.CreateStudent(t, env.studentRepo, "Awe Kid", "awe@test.cd", "", "S2", true)

	ni := newInvoiceInput(std.ID, time.Now().UTC(),
		[]invoice.SubjectSelectionInput{{SubjectID: math.ID, Selected: true}})

	totals, err := env.svc.Preview(ctx, ni)
	require.NoError(t, err)
	assert.Equal(t, "4000", totals.Total.String())

	// nothing persisted, nothing sent
	invs, err := env.svc.Filter(ctx, invoice.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, invs)
	assert.Empty(t, emailsvc.SentMessages)
}

func TestService_Update(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	math := testutil.CreateSubject(t, env.catalogRepo, "Mathematics", "4000", nil, true)
	phy := testutil.CreateSubject(t, env.catalogRepo, "Physics", "6000", nil, true)
	std := testutil.CreateStudent(t, env.studentRepo, "Awe Kid", "awe@test.cd", "", "S2", true)

	ni := newInvoiceInput(std.ID, time.Now().UTC(),
		[]invoice.SubjectSelectionInput{{SubjectID: math.ID, Selected: true}})
	inv, err := env.svc.Create(ctx, ni)
	require.NoError(t, err)

	// add a subject with a fixed discount larger than its price; the line
	// floors at zero instead of offsetting the other line
	ni.Subjects = append(ni.Subjects, invoice.SubjectSelectionInput{
		SubjectID:     phy.ID,
		Selected:      true,
		DiscountType:  billing.DiscountAmount,
		DiscountValue: testutil.Decimal(t, "7000"),
	})
	updated, err := env.svc.Update(ctx, inv.ID, ni)
	require.NoError(t, err)

	assert.Equal(t, inv.Number, updated.Number, "number must survive updates")
	assert.True(t, inv.IssueDate.Equal(updated.IssueDate), "issue date must survive updates")
	assert.Equal(t, "10000", updated.Subtotal.String())
	assert.Equal(t, "6000", updated.DiscountAmount.String())
	assert.Equal(t, "4000", updated.Total.String())
	require.Len(t, updated.Items, 2)
	assert.Equal(t, "0", updated.Items[1].FinalPrice.String())
}

func TestService_statusTransitions(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	math := testutil.CreateSubject(t, env.catalogRepo, "Mathematics", "4000", nil, true)
	std := testutil.CreateStudent(t, env.studentRepo, "Awe Kid", "awe@test.cd", "", "S2", true)
	ni := newInvoiceInput(std.ID, time.Now().UTC(),
		[]invoice.SubjectSelectionInput{{SubjectID: math.ID, Selected: true}})

	inv, err := env.svc.Create(ctx, ni)
	require.NoError(t, err)

	paid, err := env.svc.MarkPaid(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, paid.Status)

	// paid invoices are frozen
	_, err = env.svc.Update(ctx, inv.ID, ni)
	assert.Equal(t, invoice.ErrNotEditable, err)
	_, err = env.svc.Void(ctx, inv.ID)
	assert.Equal(t, invoice.ErrNotEditable, err)
	err = env.svc.Delete(ctx, inv.ID)
	assert.Equal(t, invoice.ErrNotEditable, err)

	inv2, err := env.svc.Create(ctx, ni)
	require.NoError(t, err)
	voided, err := env.svc.Void(ctx, inv2.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusVoid, voided.Status)

	inv3, err := env.svc.Create(ctx, ni)
	require.NoError(t, err)
	require.NoError(t, env.svc.Delete(ctx, inv3.ID))
	_, err = env.svc.GetByID(ctx, inv3.ID)
	assert.Equal(t, invoice.ErrNotFound, err)
}
