package messaging

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
	g := api.Group("", auth.RequireRole(auth.RoleProvider, auth.RoleNurse, auth.RoleBiller, auth.RoleFrontDesk))
	g.GET("/messages", h.Inbox)
	g.GET("/messages/sent", h.Sent)
	g.GET("/messages/unread-count", h.UnreadCount)
	g.GET("/messages/threads/:id", h.Thread)
	g.GET("/messages/:id", h.Get)
	g.POST("/messages", h.Send)
	g.POST("/messages/:id/read", h.MarkRead)
	g.DELETE("/messages/:id", h.Delete)
}

// currentUser requires a UUID identity; messages are addressed by user id.
func currentUser(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "messaging requires a signed-in user")
	}
	return id, nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// ids resolves the caller and the :id path parameter.
func ids(c echo.Context) (user, id uuid.UUID, err error) {
	if user, err = currentUser(c); err != nil {
		return
	}
	id, err = parseID(c)
	return
}

func (h *Handler) Send(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var m Message
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Send(c.Request().Context(), user, &m); err != nil {
		return apierr.From(c, err, "message")
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Inbox(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	unread := c.QueryParam("unread") == "true"
	items, total, err := h.svc.Inbox(c.Request().Context(), user, unread, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.From(c, err, "message")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Sent(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Sent(c.Request().Context(), user, pg.Limit, pg.Offset)
	if err != nil {
		return apierr.From(c, err, "message")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UnreadCount(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	n, err := h.svc.UnreadCount(c.Request().Context(), user)
	if err != nil {
		return apierr.From(c, err, "message")
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": n})
}

func (h *Handler) Thread(c echo.Context) error {
	user, id, err := ids(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Thread(c.Request().Context(), id, user)
	if err != nil {
		return apierr.From(c, err, "message")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	user, id, err := ids(c)
	if err != nil {
		return err
	}
	m, err := h.svc.Get(c.Request().Context(), id, user)
	if err != nil {
		return apierr.From(c, err, "message")
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) MarkRead(c echo.Context) error {
	user, id, err := ids(c)
	if err != nil {
		return err
	}
	m, err := h.svc.MarkRead(c.Request().Context(), id, user)
	if err != nil {
		return apierr.From(c, err, "message")
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) Delete(c echo.Context) error {
	user, id, err := ids(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id, user); err != nil {
		return apierr.From(c, err, "message")
	}
	return c.NoContent(http.StatusNoContent)
}
