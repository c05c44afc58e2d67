package chat

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// maxMessageLen bounds the prompt forwarded to the completion API.
const maxMessageLen = 2000

type Handler struct {
	responder *Responder
}

func NewHandler(responder *Responder) *Handler {
	return &Handler{responder: responder}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/chat", h.Greeting)
	api.POST("/chat", h.Send)
}

type SendRequest struct {
	Message string `json:"message"`
}

func (h *Handler) Send(c echo.Context) error {
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	if len(msg) > maxMessageLen {
		return echo.NewHTTPError(http.StatusBadRequest, "message is too long")
	}
	return c.JSON(http.StatusOK, h.responder.Reply(c.Request().Context(), msg))
}

func (h *Handler) Greeting(c echo.Context) error {
	return c.JSON(http.StatusOK, h.responder.Greeting())
}
