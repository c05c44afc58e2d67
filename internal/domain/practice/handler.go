package practice

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
	read := api.Group("", auth.RequireRole(auth.RoleProvider, auth.RoleNurse, auth.RoleBiller, auth.RoleFrontDesk))
	read.GET("/practices", h.ListPractices)
	read.GET("/practices/:id", h.GetPractice)
	read.GET("/practices/:id/providers", h.ListProviders)
	read.GET("/providers/:id", h.GetProvider)
	read.GET("/npi/:number", h.LookupNPI)

	// Customer setup is admin-only.
	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/practices", h.CreatePractice)
	admin.POST("/practices/prefill", h.PrefillPractice)
	admin.PUT("/practices/:id", h.UpdatePractice)
	admin.DELETE("/practices/:id", h.DeletePractice)
	admin.POST("/practices/:id/providers", h.CreateProvider)
	admin.POST("/providers/prefill", h.PrefillProvider)
	admin.PUT("/providers/:id", h.UpdateProvider)
	admin.DELETE("/providers/:id", h.DeleteProvider)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreatePractice(c echo.Context) error {
	var p Practice
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePractice(c.Request().Context(), &p); err != nil {
		return apierr.From(c, err, "practice")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPractice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPractice(c.Request().Context(), id)
	if err != nil {
		return apierr.From(c, err, "practice")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPractices(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPractices(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apierr.From(c, err, "practice")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePractice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var p Practice
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePractice(c.Request().Context(), &p); err != nil {
		return apierr.From(c, err, "practice")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePractice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePractice(c.Request().Context(), id); err != nil {
		return apierr.From(c, err, "practice")
	}
	return c.NoContent(http.StatusNoContent)
}

type prefillResponse[T any] struct {
	Draft    T           `json:"draft"`
	Registry interface{} `json:"registry"`
}

func (h *Handler) PrefillPractice(c echo.Context) error {
	var p Practice
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	info, err := h.svc.PrefillPractice(c.Request().Context(), &p)
	if err != nil {
		return apierr.From(c, err, "practice")
	}
	return c.JSON(http.StatusOK, prefillResponse[*Practice]{Draft: &p, Registry: info})
}

func (h *Handler) LookupNPI(c echo.Context) error {
	info, err := h.svc.LookupNPI(c.Request().Context(), c.Param("number"))
	if err != nil {
		return apierr.From(c, err, "npi")
	}
	return c.JSON(http.StatusOK, info)
}

func (h *Handler) CreateProvider(c echo.Context) error {
	practiceID, err := parseID(c)
	if err != nil {
		return err
	}
	var p Provider
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateProvider(c.Request().Context(), practiceID, &p); err != nil {
		return apierr.From(c, err, "provider")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListProviders(c echo.Context) error {
	practiceID, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListProviders(c.Request().Context(), practiceID)
	if err != nil {
		return apierr.From(c, err, "provider")
	}
	if items == nil {
		items = []*Provider{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetProvider(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetProvider(c.Request().Context(), id)
	if err != nil {
		return apierr.From(c, err, "provider")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProvider(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var p Provider
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdateProvider(c.Request().Context(), &p); err != nil {
		return apierr.From(c, err, "provider")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProvider(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProvider(c.Request().Context(), id); err != nil {
		return apierr.From(c, err, "provider")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PrefillProvider(c echo.Context) error {
	var p Provider
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	info, err := h.svc.PrefillProvider(c.Request().Context(), &p)
	if err != nil {
		return apierr.From(c, err, "provider")
	}
	return c.JSON(http.StatusOK, prefillResponse[*Provider]{Draft: &p, Registry: info})
}
