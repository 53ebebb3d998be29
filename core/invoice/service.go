package invoice

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/billing"
	"github.com/trezcool/karo/core/catalog"
	"github.com/trezcool/karo/core/enrollment"
	"github.com/trezcool/karo/core/student"
)

var (
	// errors
	ErrNotFound    = errors.New("invoice not found")
	ErrNotEditable = errors.New("paid or voided invoices cannot be modified")
)

type (
	Repository interface {
		CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		// UpdateInvoice replaces the invoice header fields and its items atomically.
		UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		GetInvoiceByID(ctx context.Context, id string) (Invoice, error)
		GetInvoiceByNumber(ctx context.Context, number string) (Invoice, error)
		// FilterInvoices applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Invoice.Number or Invoice.Notes.
		FilterInvoices(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Invoice, error)
		SetInvoiceStatus(ctx context.Context, id string, status Status) (Invoice, error)
		DeleteInvoice(ctx context.Context, id string) error
		// NextInvoiceSeq atomically increments and returns the invoice sequence
		// for the given year.
		NextInvoiceSeq(ctx context.Context, year int) (int, error)
	}

	ServiceInterface interface {
		Preview(ctx context.Context, ni NewInvoice) (billing.Totals, error)
		Create(ctx context.Context, ni NewInvoice) (Invoice, error)
		Update(ctx context.Context, id string, ni NewInvoice) (Invoice, error)
		GetByID(ctx context.Context, id string) (Invoice, error)
		GetByNumber(ctx context.Context, number string) (Invoice, error)
		Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Invoice, error)
		MarkPaid(ctx context.Context, id string) (Invoice, error)
		Void(ctx context.Context, id string) (Invoice, error)
		Delete(ctx context.Context, id string) error
	}

	Service struct {
		repo       Repository
		catalogSvc catalog.ServiceInterface
		studentSvc student.ServiceInterface
		enrollSvc  enrollment.ServiceInterface
		mailSvc    core.EmailService
		logger     core.Logger
		conf       *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	catalogSvc catalog.ServiceInterface,
	studentSvc student.ServiceInterface,
	enrollSvc enrollment.ServiceInterface,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:       repo,
		catalogSvc: catalogSvc,
		studentSvc: studentSvc,
		enrollSvc:  enrollSvc,
		mailSvc:    mailSvc,
		logger:     logger,
		conf:       conf,
	}
}

// resolveSelections maps the submitted selection state to billing selections,
// resolving unit prices from the catalog. Client-provided prices are never
// trusted; only ids, flags and discounts come from the wire.
func (svc *Service) resolveSelections(ctx context.Context, ni NewInvoice) ([]billing.SubjectSelection, []billing.AddOnSelection, error) {
	subjects := make([]billing.SubjectSelection, 0, len(ni.Subjects))
	for _, in := range ni.Subjects {
		if !in.Selected {
			continue
		}
		sub, err := svc.catalogSvc.GetSubjectByID(ctx, in.SubjectID)
		if err != nil {
			if errors.Is(err, catalog.ErrSubjectNotFound) {
				return nil, nil, core.NewValidationError(err, core.FieldError{Field: "subjects", Error: err.Error()})
			}
			return nil, nil, err
		}
		subjects = append(subjects, billing.SubjectSelection{
			ID:        sub.ID,
			Name:      sub.Name,
			UnitPrice: sub.BasePrice,
			Selected:  true,
			Discount:  billing.Discount{Type: in.DiscountType, Value: in.DiscountValue},
			Reason:    in.DiscountReason,
		})
	}

	addOns := make([]billing.AddOnSelection, 0, len(ni.AddOns))
	for _, in := range ni.AddOns {
		if !in.Selected {
			continue
		}
		ao, err := svc.catalogSvc.GetAddOnByID(ctx, in.AddOnID)
		if err != nil {
			if errors.Is(err, catalog.ErrAddOnNotFound) {
				return nil, nil, core.NewValidationError(err, core.FieldError{Field: "addons", Error: err.Error()})
			}
			return nil, nil, err
		}
		addOns = append(addOns, billing.AddOnSelection{
			ID:        ao.ID,
			Name:      ao.Name,
			UnitPrice: ao.Price,
			Selected:  true,
		})
	}

	return subjects, addOns, nil
}

// Preview recomputes the invoice draft for the current selection state without
// persisting anything. The wizard calls it on every selection or discount change.
func (svc *Service) Preview(ctx context.Context, ni NewInvoice) (billing.Totals, error) {
	subjects, addOns, err := svc.resolveSelections(ctx, ni)
	if err != nil {
		return billing.Totals{}, err
	}
	return billing.ComputeInvoiceTotals(subjects, addOns), nil
}

// Create computes and persists a new invoice, refreshes the student's
// enrollments for the invoiced subjects, and emails the invoice notification.
func (svc *Service) Create(ctx context.Context, ni NewInvoice) (Invoice, error) {
	std, err := svc.getStudent(ctx, ni.StudentID)
	if err != nil {
		return Invoice{}, err
	}

	subjects, addOns, err := svc.resolveSelections(ctx, ni)
	if err != nil {
		return Invoice{}, err
	}
	totals := billing.ComputeInvoiceTotals(subjects, addOns)

	now := time.Now().UTC()
	number, err := svc.nextNumber(ctx, now)
	if err != nil {
		return Invoice{}, err
	}

	inv := Invoice{
		ID:             uuid.New().String(),
		Number:         number,
		StudentID:      std.ID,
		IssueDate:      now,
		DueDate:        ni.DueDate,
		Status:         StatusIssued,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.TotalDiscount,
		Total:          totals.Total,
		Notes:          ni.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	inv.Items = svc.buildItems(inv.ID, totals)

	inv, err = svc.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return Invoice{}, pkgerrors.Wrap(err, "persisting invoice")
	}

	svc.refreshEnrollments(ctx, inv)
	svc.sendInvoiceEmail(inv, std)
	return inv, nil
}

// Update recomputes a submitted invoice in place: items and totals are replaced
// from the new selection state. Paid and voided invoices are frozen.
func (svc *Service) Update(ctx context.Context, id string, ni NewInvoice) (Invoice, error) {
	orig, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if !orig.IsEditable() {
		return Invoice{}, ErrNotEditable
	}
	if _, err = svc.getStudent(ctx, ni.StudentID); err != nil {
		return Invoice{}, err
	}

	subjects, addOns, err := svc.resolveSelections(ctx, ni)
	if err != nil {
		return Invoice{}, err
	}
	totals := billing.ComputeInvoiceTotals(subjects, addOns)

	inv := orig
	inv.StudentID = ni.StudentID
	inv.DueDate = ni.DueDate
	inv.Notes = ni.Notes
	inv.Subtotal = totals.Subtotal
	inv.DiscountAmount = totals.TotalDiscount
	inv.Total = totals.Total
	inv.Items = svc.buildItems(inv.ID, totals)
	inv.UpdatedAt = time.Now().UTC()

	inv, err = svc.repo.UpdateInvoice(ctx, inv)
	if err != nil {
		return Invoice{}, pkgerrors.Wrap(err, "updating invoice")
	}

	svc.refreshEnrollments(ctx, inv)
	return inv, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Invoice, error) {
	return svc.repo.GetInvoiceByID(ctx, id)
}

func (svc *Service) GetByNumber(ctx context.Context, number string) (Invoice, error) {
	return svc.repo.GetInvoiceByNumber(ctx, core.CleanString(number))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Invoice, error) {
	filter.Clean()
	return svc.repo.FilterInvoices(ctx, filter, ordering...)
}

func (svc *Service) MarkPaid(ctx context.Context, id string) (Invoice, error) {
	return svc.setStatus(ctx, id, StatusPaid)
}

func (svc *Service) Void(ctx context.Context, id string) (Invoice, error) {
	return svc.setStatus(ctx, id, StatusVoid)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return err
	}
	if !inv.IsEditable() {
		return ErrNotEditable
	}
	return svc.repo.DeleteInvoice(ctx, id)
}

func (svc *Service) setStatus(ctx context.Context, id string, status Status) (Invoice, error) {
	inv, err := svc.repo.GetInvoiceByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if !inv.IsEditable() {
		return Invoice{}, ErrNotEditable
	}
	return svc.repo.SetInvoiceStatus(ctx, id, status)
}

func (svc *Service) getStudent(ctx context.Context, id string) (student.Student, error) {
	std, err := svc.studentSvc.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			return student.Student{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return student.Student{}, err
	}
	return std, nil
}

func (svc *Service) nextNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := svc.repo.NextInvoiceSeq(ctx, now.Year())
	if err != nil {
		return "", pkgerrors.Wrap(err, "generating invoice number")
	}
	return fmt.Sprintf("%s-%d-%06d", svc.conf.Invoice.NumberPrefix, now.Year(), seq), nil
}

func (svc *Service) buildItems(invoiceID string, totals billing.Totals) []Item {
	items := make([]Item, 0, len(totals.LineItems))
	for i, li := range totals.LineItems {
		items = append(items, Item{
			ID:             uuid.New().String(),
			InvoiceID:      invoiceID,
			ItemType:       li.ItemType,
			ItemRefID:      li.ItemID,
			Name:           li.Name,
			UnitPrice:      li.UnitPrice,
			DiscountType:   li.DiscountType,
			DiscountValue:  li.DiscountValue,
			DiscountReason: li.DiscountReason,
			DiscountAmount: li.DiscountAmount,
			FinalPrice:     li.FinalPrice,
			Position:       i,
		})
	}
	return items
}

// refreshEnrollments creates or refreshes an active enrollment for every
// subject line, carrying the granted discount. Failures are logged, not
// surfaced: the invoice itself is already persisted.
func (svc *Service) refreshEnrollments(ctx context.Context, inv Invoice) {
	for _, item := range inv.Items {
		if item.ItemType != billing.ItemTypeSubject {
			continue
		}
		d := billing.Discount{Type: item.DiscountType, Value: item.DiscountValue}
		if _, err := svc.enrollSvc.EnsureEnrolled(ctx, inv.StudentID, item.ItemRefID, d, item.DiscountReason); err != nil {
			svc.logger.Error(fmt.Sprintf("refreshing enrollment for subject %s: %v", item.ItemRefID, err), err)
		}
	}
}

type invoiceEmailItem struct {
	Name       string
	FinalPrice string
}

type invoiceEmailData struct {
	StudentName string
	Number      string
	Total       string
	DueDate     string
	Items       []invoiceEmailItem
}

func (svc *Service) sendInvoiceEmail(inv Invoice, std student.Student) {
	data := invoiceEmailData{
		StudentName: std.Name,
		Number:      inv.Number,
		Total:       inv.Total.StringFixed(2),
		DueDate:     inv.DueDate.Format("2006-01-02"),
	}
	for _, item := range inv.Items {
		data.Items = append(data.Items, invoiceEmailItem{Name: item.Name, FinalPrice: item.FinalPrice.StringFixed(2)})
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: std.Name, Address: std.Email}},
		Subject:      fmt.Sprintf("Invoice %s", inv.Number),
		TemplateName: "invoice-created",
		TemplateData: data,
	}
	if std.GuardianEmail != "" {
		msg.Cc = []mail.Address{{Address: std.GuardianEmail}}
	}
	svc.mailSvc.SendMessages(msg)
}
