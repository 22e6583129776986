package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billdomain "github.com/sevacare/ipdbilling/internal/bill/domain"
	"github.com/sevacare/ipdbilling/internal/config"
	depositdomain "github.com/sevacare/ipdbilling/internal/deposit/domain"
	patientdomain "github.com/sevacare/ipdbilling/internal/patient/domain"
	"github.com/sevacare/ipdbilling/internal/roomrates"
	"github.com/sevacare/ipdbilling/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeBillService struct {
	createErr   error
	completeErr error
}

func (f *fakeBillService) Create(ctx context.Context, req billdomain.CreateBillRequest) (billdomain.BillSnapshot, error) {
	if f.createErr != nil {
		return billdomain.BillSnapshot{}, f.createErr
	}
	return billdomain.BillSnapshot{ID: snowflake.ID(42), PatientRef: req.Charges.PatientRef, Net: 6600}, nil
}

func (f *fakeBillService) LoadForEdit(ctx context.Context, id string) (billdomain.EditSession, error) {
	return billdomain.EditSession{}, billdomain.ErrNotFound
}

func (f *fakeBillService) Update(ctx context.Context, id string, req billdomain.UpdateBillRequest) (billdomain.BillSnapshot, error) {
	return billdomain.BillSnapshot{Net: 7100}, nil
}

func (f *fakeBillService) MarkCompleted(ctx context.Context, id string) error {
	return f.completeErr
}

func (f *fakeBillService) Delete(ctx context.Context, id string) error {
	return nil
}

func (f *fakeBillService) ListByPatient(ctx context.Context, patientRef string, page pagination.Pagination) ([]billdomain.BillSnapshot, *pagination.PageInfo, error) {
	return []billdomain.BillSnapshot{{PatientRef: patientRef}}, &pagination.PageInfo{}, nil
}

type fakeDepositService struct {
	lastOverrides depositdomain.DateOverrides
}

func (f *fakeDepositService) Add(ctx context.Context, req depositdomain.AddDepositRequest) (depositdomain.AddDepositResult, error) {
	if req.Date == nil {
		return depositdomain.AddDepositResult{}, depositdomain.ErrDateRequired
	}
	return depositdomain.AddDepositResult{Sum: req.Amount}, nil
}

func (f *fakeDepositService) Edit(ctx context.Context, id string, req depositdomain.EditDepositRequest) (depositdomain.AddDepositResult, error) {
	return depositdomain.AddDepositResult{}, depositdomain.ErrNotFound
}

func (f *fakeDepositService) Delete(ctx context.Context, id string) error {
	return nil
}

func (f *fakeDepositService) List(ctx context.Context, patientRef string, overrides depositdomain.DateOverrides) ([]depositdomain.DepositEntry, error) {
	f.lastOverrides = overrides
	return []depositdomain.DepositEntry{}, nil
}

func (f *fakeDepositService) Sum(ctx context.Context, patientRef string) (float64, error) {
	return 0, nil
}

type fakeDirectory struct {
	patient *patientdomain.Patient
}

func (f *fakeDirectory) FindByRef(ctx context.Context, db *gorm.DB, ref string) (*patientdomain.Patient, error) {
	if f.patient == nil || f.patient.Ref != ref {
		return nil, patientdomain.ErrNotFound
	}
	return f.patient, nil
}

func setupServer(t *testing.T) (*Server, *fakeBillService, *fakeDepositService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bills := &fakeBillService{}
	deposits := &fakeDepositService{}
	holder, err := roomrates.NewHolder(config.Config{}, zap.NewNop())
	assert.NoError(t, err)

	s := NewServer(ServerParams{
		Engine:     NewEngine(zap.NewNop()),
		Cfg:        config.Config{},
		BillSvc:    bills,
		DepositSvc: deposits,
		Patients:   &fakeDirectory{patient: &patientdomain.Patient{Ref: "IPD-1002", DisplayName: "Ravi Menon"}},
		Rates:      holder,
	})
	return s, bills, deposits
}

func perform(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestCreateBillEndpoint(t *testing.T) {
	s, _, _ := setupServer(t)

	w := perform(s, http.MethodPost, "/api/v1/bills", billdomain.CreateBillRequest{
		Charges: billdomain.ChargeSheet{PatientRef: "IPD-1002", AdmissionFee: 2000},
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"net":6600`)
}

func TestCreateBillUnknownPatientIs404(t *testing.T) {
	s, _, _ := setupServer(t)

	w := perform(s, http.MethodPost, "/api/v1/bills", billdomain.CreateBillRequest{
		Charges: billdomain.ChargeSheet{PatientRef: "IPD-9999"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestCreateBillMalformedBodyIs400(t *testing.T) {
	s, _, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bills", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
}

func TestMarkCompletedConflictIs409(t *testing.T) {
	s, bills, _ := setupServer(t)
	bills.completeErr = billdomain.ErrAlreadyCompleted

	w := perform(s, http.MethodPost, "/api/v1/bills/42/complete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoadBillNotFoundIs404(t *testing.T) {
	s, _, _ := setupServer(t)

	w := perform(s, http.MethodGet, "/api/v1/bills/42/edit", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddDepositValidationIs400(t *testing.T) {
	s, _, _ := setupServer(t)

	w := perform(s, http.MethodPost, "/api/v1/deposits", map[string]any{
		"patient_ref": "IPD-1002",
		"amount":      1000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "deposit_date_required")
}

func TestListDepositsParsesOverrides(t *testing.T) {
	s, _, deposits := setupServer(t)

	w := perform(s, http.MethodGet, "/api/v1/patients/IPD-1002/deposits?override[99]=2026-02-09&override[bad]=2026-02-09&override[98]=nodate", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	if assert.Len(t, deposits.lastOverrides, 1) {
		assert.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), deposits.lastOverrides[snowflake.ID(99)])
	}
}

func TestGetPatient(t *testing.T) {
	s, _, _ := setupServer(t)

	w := perform(s, http.MethodGet, "/api/v1/patients/IPD-1002", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ravi Menon")

	w = perform(s, http.MethodGet, "/api/v1/patients/IPD-0000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRoomRates(t *testing.T) {
	s, _, _ := setupServer(t)

	w := perform(s, http.MethodGet, "/api/v1/room-rates", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "general_ward")
}

func TestHealth(t *testing.T) {
	s, _, _ := setupServer(t)

	w := perform(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
