package echoapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/trezcool/karo/core/enrollment"
	"github.com/trezcool/karo/core/student"
	testutil "github.com/trezcool/karo/tests"
)

func Test_studentApi_query(t *testing.T) {
	app := setup(t)

	now := time.Now().UTC()
	awe := testutil.CreateStudent(t, studentRepo, "Awe Kid", "awe@test.cd", "", "S2", true, now.Add(-2*time.Hour))
	bob := testutil.CreateStudent(t, studentRepo, "Bob Junior", "bob@test.cd", "parent@test.cd", "S1", true, now.Add(-time.Hour))
	old := testutil.CreateStudent(t, studentRepo, "Old Timer", "old@test.cd", "", "S6", false, now)

	path := func(params url.Values) string {
		p := "/v1/students"
		if len(params) > 0 {
			p += "?" + params.Encode()
		}
		return p
	}

	tests := []httpTest{
		{
			name: "all", method: http.MethodGet, path: path(nil),
			wantCode: http.StatusOK, wantData: marchallList(t, awe, bob, old),
		},
		{
			name: "class_level", method: http.MethodGet, path: path(url.Values{"class_level": {"S1"}}),
			wantCode: http.StatusOK, wantData: marchallList(t, bob),
		},
		{
			name: "is_active", method: http.MethodGet, path: path(url.Values{"is_active": {"false"}}),
			wantCode: http.StatusOK, wantData: marchallList(t, old),
		},
		{
			name: "search by name", method: http.MethodGet, path: path(url.Values{"search": {"junior"}}),
			wantCode: http.StatusOK, wantData: marchallList(t, bob),
		},
		{
			name: "search by email", method: http.MethodGet, path: path(url.Values{"search": {"awe@"}}),
			wantCode: http.StatusOK, wantData: marchallList(t, awe),
		},
		{
			name: "search: no match", method: http.MethodGet, path: path(url.Values{"search": {"ghost"}}),
			wantCode: http.StatusOK, wantData: []byte("[]"),
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

func Test_studentApi_crud(t *testing.T) {
	app := setup(t)

	orig := testutil.CreateStudent(t, studentRepo, "Awe Kid", "awe@test.cd", "", "S2", true)

	tests := []httpTest{
		{
			name: "create", method: http.MethodPost, path: "/v1/students",
			body:     marchallObj(t, student.NewStudent{Name: "Bob Junior", Email: "bob@test.cd", GuardianEmail: "parent@test.cd", ClassLevel: "S1"}),
			wantCode: http.StatusCreated,
		},
		{
			name: "create: email required", method: http.MethodPost, path: "/v1/students",
			body:     marchallObj(t, student.NewStudent{Name: "No Mail"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required"}),
		},
		{
			name: "create: invalid email", method: http.MethodPost, path: "/v1/students",
			body:     marchallObj(t, student.NewStudent{Name: "Bad Mail", Email: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "create: duplicate email", method: http.MethodPost, path: "/v1/students",
			body:     marchallObj(t, student.NewStudent{Name: "Copy Cat", Email: orig.Email}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": student.ErrEmailExists.Error()}),
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/v1/students/" + orig.ID,
			wantCode: http.StatusOK, wantData: marchallObj(t, orig),
		},
		{
			name: "retrieve: not found", method: http.MethodGet, path: "/v1/students/ghost",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "update", method: http.MethodPut, path: "/v1/students/" + orig.ID,
			body:     marchallObj(t, student.UpdateStudent{ClassLevel: "S3"}),
			wantCode: http.StatusOK,
		},
		{
			name: "update: not found", method: http.MethodPut, path: "/v1/students/ghost",
			body:     marchallObj(t, student.UpdateStudent{ClassLevel: "S3"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "delete", method: http.MethodDelete, path: "/v1/students/" + orig.ID,
			wantCode: http.StatusNoContent,
		},
		{
			name: "delete: not found", method: http.MethodDelete, path: "/v1/students/" + orig.ID,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.name == "update" && rec.Code == http.StatusOK {
				var std student.Student
				if err := json.Unmarshal(rec.Body.Bytes(), &std); err != nil {
					t.Fatalf("unmarshalling Student failed: %v", err)
				}
				// blank fields fall back to the original values
				if std.ClassLevel != "S3" {
					t.Errorf("ClassLevel = %s, want S3", std.ClassLevel)
				}
				if std.Name != orig.Name {
					t.Errorf("Name = %s, want %s", std.Name, orig.Name)
				}
				if std.Email != orig.Email {
					t.Errorf("Email = %s, want %s", std.Email, orig.Email)
				}
			}
		})
	}
}

func Test_studentApi_queryEnrollments(t *testing.T) {
	app := setup(t)

	math := testutil.CreateSubject(t, catalogRepo, "Mathematics", "5000", nil, true)
	std := testutil.CreateStudent(t, studentRepo, "Awe Kid", "awe@test.cd", "", "S2", true)

	req, rec := newRequest(http.MethodPost, "/v1/enrollments", marchallObj(t, enrollment.NewEnrollment{
		StudentID:     std.ID,
		SubjectID:     math.ID,
		DiscountType:  "percentage",
		DiscountValue: testutil.Decimal(t, "10"),
	}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll: status code = %d; body: %s", rec.Code, rec.Body.String())
	}

	req, rec = newRequest(http.MethodGet, "/v1/students/"+std.ID+"/enrollments", nil)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d; body: %s", rec.Code, rec.Body.String())
	}
	var enrs []enrollment.Enrollment
	if err := json.Unmarshal(rec.Body.Bytes(), &enrs); err != nil {
		t.Fatalf("unmarshalling Enrollments failed: %v", err)
	}
	if len(enrs) != 1 {
		t.Fatalf("len(enrollments) = %d, want 1", len(enrs))
	}
	defaults := enrollment.SubjectDefaults(enrs)
	d, ok := defaults[math.ID]
	if !ok {
		t.Fatalf("no discount default for subject %s", math.ID)
	}
	if got := d.Value.String(); got != "10" {
		t.Errorf("default discount value = %s, want 10", got)
	}

	req, rec = newRequest(http.MethodGet, "/v1/students/ghost/enrollments", nil)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
	}, rec)
}
