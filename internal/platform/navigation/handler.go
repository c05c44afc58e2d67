package navigation

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/auth"
)

type Handler struct {
	resolver *Resolver
}

func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/navigation", h.Menu)
	api.GET("/navigation/detect", h.Detect)
}

type MenuResponse struct {
	Items []Item `json:"items"`
}

func (h *Handler) Menu(c echo.Context) error {
	ctx := c.Request().Context()
	acc, err := h.resolver.Access(ctx, auth.SessionIDFromContext(ctx), auth.UserIDFromContext(ctx), auth.RolesFromContext(ctx))
	if err != nil {
		return apierr.From(c, err, "navigation")
	}
	return c.JSON(http.StatusOK, MenuResponse{Items: Visible(acc)})
}

type DetectResponse struct {
	ID    string `json:"id"`
	Route string `json:"route,omitempty"`
}

func (h *Handler) Detect(c echo.Context) error {
	raw := c.QueryParam("url")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	id := DetectPage(raw)
	if id == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no menu item matches url")
	}
	return c.JSON(http.StatusOK, DetectResponse{ID: id, Route: Route(id)})
}
