package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/practicehub/practicehub/internal/platform/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 4096
)

// ClientMessage is what the dashboard sends up the socket. "activity"
// reports user input so the inactivity countdown resets.
type ClientMessage struct {
	Action string `json:"action"`
}

// ActivityFunc is called with the session id when a client reports
// activity.
type ActivityFunc func(sessionID string)

type Handler struct {
	hub        *Hub
	upgrader   gorillawebsocket.Upgrader
	onActivity ActivityFunc
}

// NewHandler accepts upgrades from allowedOrigins; an empty list allows any
// origin.
func NewHandler(hub *Hub, allowedOrigins []string, onActivity ActivityFunc) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		onActivity: onActivity,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", h.Connect)
}

// Connect upgrades an authenticated request and subscribes the connection
// to the caller's session and user topics.
func (h *Handler) Connect(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	sessionID := auth.SessionIDFromContext(ctx)

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Topics:    []string{UserTopic(userID)},
		Send:      make(chan []byte, 64),
	}
	if sessionID != "" {
		client.Topics = append(client.Topics, SessionTopic(sessionID))
	}
	h.hub.Register(client)

	logger := zerolog.Ctx(ctx).With().Str("client", client.ID).Logger()
	logger.Debug().Strs("topics", client.Topics).Msg("websocket connected")

	go h.writePump(client, ws)
	go h.readPump(client, ws, logger)
	return nil
}

func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn, logger zerolog.Logger) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
		logger.Debug().Msg("websocket disconnected")
	}()

	ws.SetReadLimit(maxMessage)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Action == "activity" && client.SessionID != "" && h.onActivity != nil {
			h.onActivity(client.SessionID)
		}
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
