package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/catalog"
	"github.com/trezcool/karo/core/enrollment"
	"github.com/trezcool/karo/core/invoice"
	"github.com/trezcool/karo/core/student"
	emailsvc "github.com/trezcool/karo/services/email"
	dummydb "github.com/trezcool/karo/storage/database/dummy"
	testutil "github.com/trezcool/karo/tests"
)

var (
	catalogRepo catalog.Repository
	studentRepo student.Repository
	enrollRepo  enrollment.Repository
	invoiceRepo invoice.Repository
)

func setup(t *testing.T) Server {
	t.Helper()

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	catalogRepo = dummydb.NewCatalogRepository(db)
	studentRepo = dummydb.NewStudentRepository(db)
	enrollRepo = dummydb.NewEnrollmentRepository(db)
	invoiceRepo = dummydb.NewInvoiceRepository(db)

	conf := core.NewTestConfig()

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	// set up services
	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	logger := testutil.Logger{T: t}
	catalogSvc := catalog.NewService(catalogRepo)
	studentSvc := student.NewService(studentRepo)
	enrollSvc := enrollment.NewService(enrollRepo)
	invoiceSvc := invoice.NewService(invoiceRepo, catalogSvc, studentSvc, enrollSvc, mailSvc, logger, conf)

	// set up server
	return NewServer(
		ServerDeps{
			Conf:           conf,
			Logger:         logger,
			CatalogSvc:     catalogSvc,
			StudentSvc:     studentSvc,
			EnrollmentSvc:  enrollSvc,
			InvoiceSvc:     invoiceSvc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("status code = %d, want %d; body: %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	eq, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Fatalf("jsonBytesEqual() failed: %v", err)
	}
	if !eq {
		t.Errorf("body = %s, want %s", rec.Body.String(), tt.wantData)
	}
}
