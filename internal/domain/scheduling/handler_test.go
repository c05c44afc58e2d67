package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practicehub/practicehub/internal/platform/auth"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc := NewService(newMockRepo())
	h := NewHandler(svc)
	h.now = func() time.Time { return t0 }
	return h, svc, echo.New()
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func TestHandler_Create(t *testing.T) {
	h, _, e := newTestHandler()
	userID := uuid.New()
	body := `{"patient_id":"` + uuid.New().String() + `","start_time":"2024-06-03T10:00:00Z","type":"new-patient"}`
	c, rec := jsonContext(e, http.MethodPost, "/api/v1/appointments", body)
	c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), userID.String(), auth.RoleFrontDesk)))

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var a Appointment
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.CreatedBy == nil || *a.CreatedBy != userID {
		t.Errorf("expected creator from identity, got %v", a.CreatedBy)
	}
	if a.DurationMinutes != 30 || a.Status != StatusScheduled {
		t.Errorf("defaults not applied: %+v", a)
	}
}

func TestHandler_Create_Invalid(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := jsonContext(e, http.MethodPost, "/api/v1/appointments", `{"type":"walk-in","duration_minutes":2}`)
	if code := httpCode(t, h.Create(c)); code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", code)
	}
}

func TestHandler_List(t *testing.T) {
	h, svc, e := newTestHandler()
	ctx := context.Background()
	svc.Schedule(ctx, newAppointment(t0.Add(time.Hour)))
	svc.Schedule(ctx, newAppointment(t0.Add(8*24*time.Hour)))

	c, rec := jsonContext(e, http.MethodGet, "/api/v1/appointments", "")
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var items []Appointment
	json.Unmarshal(rec.Body.Bytes(), &items)
	if len(items) != 1 {
		t.Errorf("expected this week's appointment only, got %d", len(items))
	}

	c, rec = jsonContext(e, http.MethodGet, "/api/v1/appointments?from=2024-06-01&to=2024-06-30", "")
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &items)
	if len(items) != 2 {
		t.Errorf("expected 2 appointments in June, got %d", len(items))
	}

	c, _ = jsonContext(e, http.MethodGet, "/api/v1/appointments?from=yesterday", "")
	if code := httpCode(t, h.List(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
	c, _ = jsonContext(e, http.MethodGet, "/api/v1/appointments?provider_id=nope", "")
	if code := httpCode(t, h.List(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_ListByPatient(t *testing.T) {
	h, svc, e := newTestHandler()
	a := newAppointment(t0)
	svc.Schedule(context.Background(), a)
	svc.Schedule(context.Background(), newAppointment(t0))

	c, rec := jsonContext(e, http.MethodGet, "/", "")
	if err := h.ListByPatient(withID(c, a.PatientID.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("expected 1 appointment for patient, got %d", resp.Total)
	}
}

func TestHandler_RescheduleAndCancel(t *testing.T) {
	h, svc, e := newTestHandler()
	a := newAppointment(t0)
	svc.Schedule(context.Background(), a)

	c, rec := jsonContext(e, http.MethodPost, "/", `{"start_time":"2024-06-05T14:00:00Z","duration_minutes":60}`)
	if err := h.Reschedule(withID(c, a.ID.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Appointment
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.StartTime.Day() != 5 || got.DurationMinutes != 60 {
		t.Errorf("unexpected rescheduled appointment %+v", got)
	}

	c, rec = jsonContext(e, http.MethodPost, "/", `{"reason":"Provider out sick"}`)
	if err := h.Cancel(withID(c, a.ID.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}

	c, _ = jsonContext(e, http.MethodPost, "/", `{}`)
	if code := httpCode(t, h.Cancel(withID(c, a.ID.String()))); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestHandler_GetAndDelete(t *testing.T) {
	h, svc, e := newTestHandler()
	a := newAppointment(t0)
	svc.Schedule(context.Background(), a)

	c, rec := jsonContext(e, http.MethodGet, "/", "")
	if err := h.Get(withID(c, a.ID.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Blood pressure check") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c, rec = jsonContext(e, http.MethodDelete, "/", "")
	if err := h.Delete(withID(c, a.ID.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c, _ = jsonContext(e, http.MethodGet, "/", "")
	if code := httpCode(t, h.Get(withID(c, a.ID.String()))); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	c, _ = jsonContext(e, http.MethodGet, "/", "")
	if code := httpCode(t, h.Get(withID(c, "bad"))); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}
