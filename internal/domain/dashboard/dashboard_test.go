package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practicehub/practicehub/internal/domain/patient"
	"github.com/practicehub/practicehub/internal/domain/scheduling"
	"github.com/practicehub/practicehub/internal/platform/auth"
	"github.com/practicehub/practicehub/internal/platform/db"
)

var now = time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)

type stubPatients struct {
	sum patient.Summary
	err error
}

func (s stubPatients) Summary(context.Context) (patient.Summary, error) { return s.sum, s.err }

type stubCalendar struct {
	items []*scheduling.Appointment
	got   scheduling.Range
}

func (s *stubCalendar) ListRange(_ context.Context, r scheduling.Range) ([]*scheduling.Appointment, error) {
	s.got = r
	return s.items, nil
}

type stubInbox map[uuid.UUID]int

func (s stubInbox) UnreadCount(_ context.Context, user uuid.UUID) (int, error) { return s[user], nil }

func appt(hour int, status scheduling.Status) *scheduling.Appointment {
	return &scheduling.Appointment{
		ID:              uuid.New(),
		StartTime:       time.Date(2024, 6, 3, hour, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		Status:          status,
	}
}

func newTestService(cal *stubCalendar, inbox stubInbox) *Service {
	patients := stubPatients{sum: patient.Summary{
		Total:    3,
		ByStatus: map[patient.Status]int{patient.StatusActive: 2, patient.StatusInactive: 1},
		ByRisk:   map[patient.RiskLevel]int{patient.RiskHigh: 1, patient.RiskLow: 2},
	}}
	svc := NewService(patients, cal, inbox, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestService_Summary(t *testing.T) {
	next := appt(13, scheduling.StatusConfirmed)
	cal := &stubCalendar{items: []*scheduling.Appointment{
		appt(9, scheduling.StatusCompleted),
		appt(10, scheduling.StatusScheduled),
		appt(15, scheduling.StatusScheduled),
		next,
		appt(14, scheduling.StatusCancelled),
	}}
	user := uuid.New()
	svc := newTestService(cal, stubInbox{user: 4})

	sum, err := svc.Summary(context.Background(), &user, nil)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Patients.Total != 3 || sum.UnreadMessages != 4 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if !cal.got.From.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)) || cal.got.To.Sub(cal.got.From) != 24*time.Hour {
		t.Errorf("expected today's range, got %v - %v", cal.got.From, cal.got.To)
	}
	a := sum.Appointments
	if a.Total != 5 || a.Remaining != 2 {
		t.Errorf("expected 5 total, 2 remaining, got %d/%d", a.Total, a.Remaining)
	}
	if a.Next == nil || a.Next.ID != next.ID {
		t.Errorf("expected next appointment at 13:00")
	}
	if a.ByStatus[scheduling.StatusScheduled] != 2 {
		t.Errorf("expected 2 scheduled, got %d", a.ByStatus[scheduling.StatusScheduled])
	}
}

func TestService_Summary_NoUser(t *testing.T) {
	svc := newTestService(&stubCalendar{}, stubInbox{})
	sum, err := svc.Summary(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.UnreadMessages != 0 || sum.Appointments.Next != nil {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestService_Summary_Error(t *testing.T) {
	boom := errors.New("relation \"patient\" does not exist")
	svc := NewService(stubPatients{err: boom}, &stubCalendar{}, stubInbox{}, nil)
	if _, err := svc.Summary(context.Background(), nil, nil); !errors.Is(err, boom) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestService_Summary_ScopesEachBranch(t *testing.T) {
	var scopes, releases atomic.Int32
	scope := func(ctx context.Context, companyID string) (context.Context, func(), error) {
		if companyID != "acme" {
			t.Errorf("expected company acme, got %q", companyID)
		}
		scopes.Add(1)
		return ctx, func() { releases.Add(1) }, nil
	}
	user := uuid.New()
	svc := NewService(stubPatients{}, &stubCalendar{}, stubInbox{}, scope)
	if _, err := svc.Summary(db.WithCompany(context.Background(), "acme"), &user, nil); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if scopes.Load() != 3 || releases.Load() != 3 {
		t.Errorf("expected 3 scoped branches, got %d acquired %d released", scopes.Load(), releases.Load())
	}
}

func TestHandler_Summary(t *testing.T) {
	user := uuid.New()
	cal := &stubCalendar{}
	h := NewHandler(newTestService(cal, stubInbox{user: 2}))
	e := echo.New()

	provider := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard/summary?provider_id="+provider.String(), nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), user.String(), auth.RoleProvider))
	rec := httptest.NewRecorder()
	if err := h.Summary(e.NewContext(req, rec)); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Unread   int `json:"unread_messages"`
		Patients struct {
			Total int `json:"total"`
		} `json:"patients"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Unread != 2 || body.Patients.Total != 3 {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if cal.got.ProviderID == nil || *cal.got.ProviderID != provider {
		t.Error("provider filter not passed through")
	}

	req = httptest.NewRequest(http.MethodGet, "/dashboard/summary?provider_id=x", nil)
	err := h.Summary(e.NewContext(req, httptest.NewRecorder()))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
