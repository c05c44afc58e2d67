package clinical

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/auth"
	"github.com/practicehub/practicehub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleProvider, auth.RoleNurse))
	read.GET("/patients/:id/vitals", h.ListVitals)
	read.GET("/vitals/:id", h.GetVitals)
	read.GET("/patients/:id/notes", h.ListNotes)
	read.GET("/notes/:id", h.GetNote)
	read.GET("/patients/:id/treatment-plans", h.ListPlans)
	read.GET("/treatment-plans/:id", h.GetPlan)

	// Nurses take vitals; notes and plans belong to providers.
	vitals := api.Group("", auth.RequireRole(auth.RoleProvider, auth.RoleNurse))
	vitals.POST("/patients/:id/vitals", h.RecordVitals)
	vitals.DELETE("/vitals/:id", h.DeleteVitals)

	charting := api.Group("", auth.RequireRole(auth.RoleProvider))
	charting.POST("/patients/:id/notes", h.CreateNote)
	charting.PUT("/notes/:id", h.UpdateNote)
	charting.POST("/notes/:id/sign", h.SignNote)
	charting.DELETE("/notes/:id", h.DeleteNote)
	charting.POST("/patients/:id/treatment-plans", h.CreatePlan)
	charting.PUT("/treatment-plans/:id", h.UpdatePlan)
	charting.DELETE("/treatment-plans/:id", h.DeletePlan)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// currentUser returns the caller's id, or nil for identities that are not
// UUIDs.
func currentUser(c echo.Context) *uuid.UUID {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return nil
	}
	return &id
}

// -- Vital signs --

func (h *Handler) RecordVitals(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	var v VitalSigns
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v.RecordedBy = currentUser(c)
	if err := h.svc.RecordVitals(c.Request().Context(), patientID, &v); err != nil {
		return apierr.From(c, err, "vital signs")
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetVitals(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.GetVitals(c.Request().Context(), id)
	if err != nil {
		return apierr.From(c, err, "vital signs")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListVitals(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListVitals(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.From(c, err, "vital signs")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteVitals(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteVitals(c.Request().Context(), id); err != nil {
		return apierr.From(c, err, "vital signs")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Progress notes --

func (h *Handler) CreateNote(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	var f NoteForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n, err := h.svc.CreateNote(c.Request().Context(), patientID, &f)
	if err != nil {
		return apierr.From(c, err, "progress note")
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) GetNote(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.GetNote(c.Request().Context(), id)
	if err != nil {
		return apierr.From(c, err, "progress note")
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) ListNotes(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListNotes(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.From(c, err, "progress note")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateNote(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var f NoteForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n, err := h.svc.UpdateNote(c.Request().Context(), id, &f)
	if err != nil {
		return apierr.From(c, err, "progress note")
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) SignNote(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	signer := uuid.Nil
	if u := currentUser(c); u != nil {
		signer = *u
	}
	n, err := h.svc.SignNote(c.Request().Context(), id, signer)
	if err != nil {
		return apierr.From(c, err, "progress note")
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) DeleteNote(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteNote(c.Request().Context(), id); err != nil {
		return apierr.From(c, err, "progress note")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Treatment plans --

func (h *Handler) CreatePlan(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	var f PlanForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.CreatePlan(c.Request().Context(), patientID, &f)
	if err != nil {
		return apierr.From(c, err, "treatment plan")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPlan(c.Request().Context(), id)
	if err != nil {
		return apierr.From(c, err, "treatment plan")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPlans(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPlans(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.From(c, err, "treatment plan")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePlan(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var f PlanForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdatePlan(c.Request().Context(), id, &f)
	if err != nil {
		return apierr.From(c, err, "treatment plan")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePlan(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePlan(c.Request().Context(), id); err != nil {
		return apierr.From(c, err, "treatment plan")
	}
	return c.NoContent(http.StatusNoContent)
}
