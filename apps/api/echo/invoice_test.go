package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/karo/core/billing"
	"github.com/trezcool/karo/core/invoice"
	testutil "github.com/trezcool/karo/tests"
)

func invoiceBody(t *testing.T, studentID string, due time.Time, subjects []invoice.SubjectSelectionInput, addOns ...invoice.AddOnSelectionInput) []byte {
	t.Helper()
	return marchallObj(t, invoice.NewInvoice{
		StudentID: studentID,
		DueDate:   due,
		Subjects:  subjects,
		AddOns:    addOns,
	})
}

func Test_invoiceApi_preview(t *testing.T) {
	app := setup(t)

	math := testutil.CreateSubject(t, catalogRepo, "Mathematics", "5000", nil, true)
	phy := testutil.CreateSubject(t, catalogRepo, "Physics", "3000", nil, true)
	std := testutil.CreateStudent(t, studentRepo, "Awe Kid", "awe@test.cd", "", "S2", true)
	due := time.Now().UTC().Add(24 * time.Hour)

	tests := []httpTest{
		{
			name: "no discount", method: http.MethodPost, path: "/v1/invoices/preview",
			body: invoiceBody(t, std.ID, due, []invoice.SubjectSelectionInput{
				{SubjectID: math.ID, Selected: true},
			}),
			wantCode: http.StatusOK,
		},
		{
			name: "percentage discount", method: http.MethodPost, path: "/v1/invoices/preview",
			body: invoiceBody(t, std.ID, due, []invoice.SubjectSelectionInput{
				{SubjectID: math.ID, Selected: true, DiscountType: billing.DiscountPercentage, DiscountValue: testutil.Decimal(t, "10")},
			}),
			wantCode: http.StatusOK,
		},
		{
			name: "over-discount floors at zero", method: http.MethodPost, path: "/v1/invoices/preview",
			body: invoiceBody(t, std.ID, due, []invoice.SubjectSelectionInput{
				{SubjectID: phy.ID, Selected: true, DiscountType: billing.DiscountAmount, DiscountValue: testutil.Decimal(t, "3500")},
			}),
			wantCode: http.StatusOK,
		},
		{
			name: "percentage out of range", method: http.MethodPost, path: "/v1/invoices/preview",
			body: invoiceBody(t, std.ID, due, []invoice.SubjectSelectionInput{
				{SubjectID: math.ID, Selected: true, DiscountType: billing.DiscountPercentage, DiscountValue: testutil.Decimal(t, "150")},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"discount_value": "percentage must be between 0 and 100"}),
		},
		{
			name: "no subject selected", method: http.MethodPost, path: "/v1/invoices/preview",
			body: invoiceBody(t, std.ID, due, []invoice.SubjectSelectionInput{
				{SubjectID: math.ID, Selected: false},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"subjects": "at least one subject must be selected"}),
		},
	}
	wantTotals := []string{"5000", "4500", "0", "", ""}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if wantTotals[i] == "" {
				return
			}
			var totals billing.Totals
			if err := json.Unmarshal(rec.Body.Bytes(), &totals); err != nil {
				t.Fatalf("unmarshalling Totals failed: %v", err)
			}
			if got := totals.Total.String(); got != wantTotals[i] {
				t.Errorf("Total = %s, want %s", got, wantTotals[i])
			}
		})
	}
}

// Preview responses use the same wire shape as persisted invoices: snake_case
// keys and money amounts as fixed 2-decimal strings.
func Test_invoiceApi_preview_wireFormat(t *testing.T) {
	app := setup(t)

	math := testutil.CreateSubject(t, catalogRepo, "Mathematics", "5000", nil, true)
	std := testutil.CreateStudent(t, studentRepo, "Awe Kid", "awe@test.cd", "", "S2", true)
	due := time.Now().UTC().Add(24 * time.Hour)
	body := invoiceBody(t, std.ID, due, []invoice.SubjectSelectionInput{
		{SubjectID: math.ID, Selected: true, DiscountType: billing.DiscountPercentage, DiscountValue: testutil.Decimal(t, "10")},
	})

	req, rec := newRequest(http.MethodPost, "/v1/invoices/preview", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: status code = %d; body: %s", rec.Code, rec.Body.String())
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshalling preview body failed: %v", err)
	}
	for key, want := range map[string]string{
		"subtotal":       `"5000.00"`,
		"total_discount": `"500.00"`,
		"total":          `"4500.00"`,
	} {
		if got, ok := payload[key]; !ok {
			t.Errorf("missing key %q; body: %s", key, rec.Body.String())
		} else if string(got) != want {
			t.Errorf("%s = %s, want %s", key, got, want)
		}
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(payload["line_items"], &items); err != nil {
		t.Fatalf("unmarshalling line_items failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(line_items) = %d, want 1", len(items))
	}
	for key, want := range map[string]string{
		"item_type":   `"subject"`,
		"unit_price":  `"5000.00"`,
		"final_price": `"4500.00"`,
	} {
		if got := string(items[0][key]); got != want {
			t.Errorf("line_items[0].%s = %s, want %s", key, got, want)
		}
	}
}

func Test_invoiceApi_lifecycle(t *testing.T) {
	app := setup(t)

	math := testutil.CreateSubject(t, catalogRepo, "Mathematics", "5000", nil, true)
	lab := testutil.CreateAddOn(t, catalogRepo, "Lab Fee", "1000", true)
	std := testutil.CreateStudent(t, studentRepo, "Awe Kid", "awe@test.cd", "parent@test.cd", "S2", true)
	due := time.Now().UTC().Add(24 * time.Hour)

	body := invoiceBody(t, std.ID, due,
		[]invoice.SubjectSelectionInput{{SubjectID: math.ID, Selected: true}},
		invoice.AddOnSelectionInput{AddOnID: lab.ID, Selected: true},
	)

	// create
	req, rec := newRequest(http.MethodPost, "/v1/invoices", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status code = %d; body: %s", rec.Code, rec.Body.String())
	}
	var inv invoice.Invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
		t.Fatalf("unmarshalling Invoice failed: %v", err)
	}
	if want := fmt.Sprintf("INV-%d-000001", time.Now().UTC().Year()); inv.Number != want {
		t.Errorf("Number = %s, want %s", inv.Number, want)
	}
	if got := inv.Total.String(); got != "6000" {
		t.Errorf("Total = %s, want 6000", got)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"total":"6000.00"`) {
		t.Errorf("create response must carry fixed 2-decimal amounts; body: %s", body)
	}

	tests := []httpTest{
		{name: "list", method: http.MethodGet, path: "/v1/invoices", wantCode: http.StatusOK},
		{name: "list by student", method: http.MethodGet, path: "/v1/invoices?student_id=" + std.ID, wantCode: http.StatusOK},
		{name: "list ordered", method: http.MethodGet, path: "/v1/invoices?ordering=-due_date", wantCode: http.StatusOK},
		{name: "retrieve", method: http.MethodGet, path: "/v1/invoices/" + inv.ID, wantCode: http.StatusOK},
		{
			name: "retrieve: not found", method: http.MethodGet, path: "/v1/invoices/ghost",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "update", method: http.MethodPut, path: "/v1/invoices/" + inv.ID, body: body, wantCode: http.StatusOK},
		{name: "pay", method: http.MethodPost, path: "/v1/invoices/" + inv.ID + "/pay", wantCode: http.StatusOK},
		{
			name: "update paid invoice", method: http.MethodPut, path: "/v1/invoices/" + inv.ID, body: body,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "paid or voided invoices cannot be modified"}),
		},
		{
			name: "void paid invoice", method: http.MethodPost, path: "/v1/invoices/" + inv.ID + "/void",
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "paid or voided invoices cannot be modified"}),
		},
		{
			name: "delete paid invoice", method: http.MethodDelete, path: "/v1/invoices/" + inv.ID,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "paid or voided invoices cannot be modified"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_invoiceApi_destroy(t *testing.T) {
	app := setup(t)

	math := testutil.CreateSubject(t, catalogRepo, "Mathematics", "5000", nil, true)
	std := testutil.CreateStudent(t, studentRepo, "Awe Kid", "awe@test.cd", "", "S2", true)
	due := time.Now().UTC().Add(24 * time.Hour)
	body := invoiceBody(t, std.ID, due, []invoice.SubjectSelectionInput{{SubjectID: math.ID, Selected: true}})

	req, rec := newRequest(http.MethodPost, "/v1/invoices", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status code = %d; body: %s", rec.Code, rec.Body.String())
	}
	var inv invoice.Invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
		t.Fatalf("unmarshalling Invoice failed: %v", err)
	}

	tests := []httpTest{
		{name: "delete", method: http.MethodDelete, path: "/v1/invoices/" + inv.ID, wantCode: http.StatusNoContent},
		{
			name: "delete: not found", method: http.MethodDelete, path: "/v1/invoices/" + inv.ID,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
