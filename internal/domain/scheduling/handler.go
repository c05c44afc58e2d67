package scheduling

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/auth"
	"github.com/practicehub/practicehub/internal/platform/validate"
	"github.com/practicehub/practicehub/pkg/pagination"
)

// DefaultWindow is the calendar span listed when no range is given.
const DefaultWindow = 7 * 24 * time.Hour

type Handler struct {
	svc *Service
	now func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleProvider, auth.RoleNurse, auth.RoleFrontDesk, auth.RoleBiller))
	read.GET("/appointments", h.List)
	read.GET("/appointments/:id", h.Get)
	read.GET("/patients/:id/appointments", h.ListByPatient)

	write := api.Group("", auth.RequireRole(auth.RoleProvider, auth.RoleNurse, auth.RoleFrontDesk))
	write.POST("/appointments", h.Create)
	write.PUT("/appointments/:id", h.Update)
	write.POST("/appointments/:id/reschedule", h.Reschedule)
	write.POST("/appointments/:id/cancel", h.Cancel)
	write.DELETE("/appointments/:id", h.Delete)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// parseTime accepts RFC 3339 timestamps or plain dates.
func parseTime(v string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	if t, err := time.Parse(validate.DateLayout, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (h *Handler) Create(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.CreatedBy = nil
	if uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		a.CreatedBy = &uid
	}
	if err := h.svc.Schedule(c.Request().Context(), &a); err != nil {
		return apierr.From(c, err, "appointment")
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apierr.From(c, err, "appointment")
	}
	return c.JSON(http.StatusOK, a)
}

// List returns the calendar between from and to, defaulting to the week
// starting today (UTC).
func (h *Handler) List(c echo.Context) error {
	y, m, d := h.now().UTC().Date()
	r := Range{From: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
	if v := c.QueryParam("from"); v != "" {
		t, ok := parseTime(v)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from")
		}
		r.From = t
	}
	r.To = r.From.Add(DefaultWindow)
	if v := c.QueryParam("to"); v != "" {
		t, ok := parseTime(v)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to")
		}
		r.To = t
	}
	if v := c.QueryParam("provider_id"); v != "" {
		pid, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid provider_id")
		}
		r.ProviderID = &pid
	}
	items, err := h.svc.ListRange(c.Request().Context(), r)
	if err != nil {
		return apierr.From(c, err, "appointment")
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.From(c, err, "appointment")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	if err := h.svc.Update(c.Request().Context(), &a); err != nil {
		return apierr.From(c, err, "appointment")
	}
	return c.JSON(http.StatusOK, a)
}

type RescheduleRequest struct {
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Reschedule(c.Request().Context(), id, req.StartTime, req.DurationMinutes)
	if err != nil {
		return apierr.From(c, err, "appointment")
	}
	return c.JSON(http.StatusOK, a)
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req CancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Cancel(c.Request().Context(), id, req.Reason)
	if err != nil {
		return apierr.From(c, err, "appointment")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apierr.From(c, err, "appointment")
	}
	return c.NoContent(http.StatusNoContent)
}
