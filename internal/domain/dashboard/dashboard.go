// Package dashboard assembles the landing-page summary from the patient,
// scheduling and messaging services.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/practicehub/practicehub/internal/domain/patient"
	"github.com/practicehub/practicehub/internal/domain/scheduling"
	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/auth"
	"github.com/practicehub/practicehub/internal/platform/db"
)

type PatientStats interface {
	Summary(ctx context.Context) (patient.Summary, error)
}

type Calendar interface {
	ListRange(ctx context.Context, r scheduling.Range) ([]*scheduling.Appointment, error)
}

type Inbox interface {
	UnreadCount(ctx context.Context, user uuid.UUID) (int, error)
}

// ScopeFunc gives each concurrent branch its own company connection; a
// single pgx connection cannot run queries in parallel.
type ScopeFunc func(ctx context.Context, companyID string) (context.Context, func(), error)

type Today struct {
	Total     int                       `json:"total"`
	ByStatus  map[scheduling.Status]int `json:"by_status"`
	Remaining int                       `json:"remaining"`
	Next      *scheduling.Appointment   `json:"next,omitempty"`
}

type Summary struct {
	Patients       patient.Summary `json:"patients"`
	Appointments   Today           `json:"appointments_today"`
	UnreadMessages int             `json:"unread_messages"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

type Service struct {
	patients PatientStats
	calendar Calendar
	inbox    Inbox
	scope    ScopeFunc
	now      func() time.Time
}

func NewService(patients PatientStats, calendar Calendar, inbox Inbox, scope ScopeFunc) *Service {
	return &Service{patients: patients, calendar: calendar, inbox: inbox, scope: scope, now: time.Now}
}

// Summary fetches the three panels concurrently. user may be nil for
// identities that are not store users; the unread count is then zero.
func (s *Service) Summary(ctx context.Context, user *uuid.UUID, providerID *uuid.UUID) (*Summary, error) {
	now := s.now().UTC()
	y, m, d := now.Date()
	day := scheduling.Range{From: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), ProviderID: providerID}
	day.To = day.From.Add(24 * time.Hour)

	out := &Summary{GeneratedAt: now}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.scoped(gctx, func(ctx context.Context) (err error) {
			out.Patients, err = s.patients.Summary(ctx)
			return err
		})
	})
	g.Go(func() error {
		return s.scoped(gctx, func(ctx context.Context) error {
			items, err := s.calendar.ListRange(ctx, day)
			if err != nil {
				return err
			}
			out.Appointments = today(items, now)
			return nil
		})
	})
	if user != nil {
		g.Go(func() error {
			return s.scoped(gctx, func(ctx context.Context) (err error) {
				out.UnreadMessages, err = s.inbox.UnreadCount(ctx, *user)
				return err
			})
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) scoped(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.scope == nil {
		return fn(ctx)
	}
	ctx, release, err := s.scope(ctx, db.CompanyFromContext(ctx))
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// today tallies a day's appointments. Remaining and Next ignore closed
// appointments and ones that already started.
func today(items []*scheduling.Appointment, now time.Time) Today {
	t := Today{ByStatus: map[scheduling.Status]int{}}
	for _, a := range items {
		t.Total++
		t.ByStatus[a.Status]++
		if a.Status.Closed() || a.StartTime.Before(now) {
			continue
		}
		t.Remaining++
		if t.Next == nil || a.StartTime.Before(t.Next.StartTime) {
			t.Next = a
		}
	}
	return t
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/dashboard", auth.RequireRole(auth.RoleProvider, auth.RoleNurse, auth.RoleFrontDesk, auth.RoleBiller))
	g.GET("/summary", h.Summary)
}

func (h *Handler) Summary(c echo.Context) error {
	var providerID *uuid.UUID
	if v := c.QueryParam("provider_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid provider_id")
		}
		providerID = &id
	}
	var user *uuid.UUID
	if id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		user = &id
	}
	sum, err := h.svc.Summary(c.Request().Context(), user, providerID)
	if err != nil {
		return apierr.From(c, err, "dashboard")
	}
	return c.JSON(http.StatusOK, sum)
}
