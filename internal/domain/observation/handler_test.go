package observation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

func setupHandler() (*echo.Echo, *Service) {
	e := echo.New()
	svc := NewService(newMockRepo(), zerolog.Nop())
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))
	return e, svc
}

func authedRequest(e *echo.Echo, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{
		UID: "doc-1", Name: "Dr. Mehta", Role: auth.RoleDoctor,
	}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRecordObservation(t *testing.T) {
	e, _ := setupHandler()
	body := `{"visit_id":"` + uuid.NewString() + `","patient_id":"` + uuid.NewString() + `","diagnosis":"acl sprain"}`
	rec := authedRequest(e, http.MethodPost, "/api/v1/observations", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got Observation
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == uuid.Nil {
		t.Fatal("expected assigned id")
	}
	if got.DoctorID != "doc-1" {
		t.Fatalf("doctor id = %q", got.DoctorID)
	}
}

func TestHandlerRecordObservationMissingVisit(t *testing.T) {
	e, _ := setupHandler()
	rec := authedRequest(e, http.MethodPost, "/api/v1/observations", `{"patient_id":"`+uuid.NewString()+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerGetObservationByVisit(t *testing.T) {
	e, svc := setupHandler()
	visitID := uuid.New()
	o := &Observation{VisitID: visitID, PatientID: uuid.New(), Diagnosis: "tennis elbow"}
	if err := svc.RecordObservation(context.Background(), o); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := authedRequest(e, http.MethodGet, "/api/v1/visits/"+visitID.String()+"/observation", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got Observation
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != o.ID {
		t.Fatalf("id = %s, want %s", got.ID, o.ID)
	}

	rec = authedRequest(e, http.MethodGet, "/api/v1/visits/"+uuid.NewString()+"/observation", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerGetObservationInvalidID(t *testing.T) {
	e, _ := setupHandler()
	rec := authedRequest(e, http.MethodGet, "/api/v1/observations/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerUpdateObservation(t *testing.T) {
	e, svc := setupHandler()
	o := &Observation{VisitID: uuid.New(), PatientID: uuid.New(), Diagnosis: "initial"}
	if err := svc.RecordObservation(context.Background(), o); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := authedRequest(e, http.MethodPatch, "/api/v1/observations/"+o.ID.String(), `{"diagnosis":"revised"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got Observation
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Diagnosis != "revised" {
		t.Fatalf("diagnosis = %q", got.Diagnosis)
	}

	rec = authedRequest(e, http.MethodPatch, "/api/v1/observations/"+o.ID.String(), `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty patch status = %d, want 400", rec.Code)
	}

	rec = authedRequest(e, http.MethodPatch, "/api/v1/observations/"+uuid.NewString(), `{"diagnosis":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", rec.Code)
	}
}

func TestHandlerListObservationsByPatient(t *testing.T) {
	e, svc := setupHandler()
	patientID := uuid.New()
	for i := 0; i < 2; i++ {
		o := &Observation{VisitID: uuid.New(), PatientID: patientID}
		if err := svc.RecordObservation(context.Background(), o); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	rec := authedRequest(e, http.MethodGet, "/api/v1/patients/"+patientID.String()+"/observations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data  []*Observation `json:"data"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 2 {
		t.Fatalf("total = %d, len = %d, want 2/2", resp.Total, len(resp.Data))
	}
}
