package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/practicehub/practicehub/internal/platform/auth"
)

func newClient(id string, topics ...string) *Client {
	return &Client{ID: id, Topics: topics, Send: make(chan []byte, 8)}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("c1", SessionTopic("s1"), UserTopic("u1"))

	hub.Register(client)
	if hub.ClientCount() != 1 || hub.TopicCount("session/s1") != 1 || hub.TopicCount("user/u1") != 1 {
		t.Fatalf("unexpected counts after register")
	}

	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 || hub.TopicCount("session/s1") != 0 {
		t.Fatalf("unexpected counts after unregister")
	}
	if _, open := <-client.Send; open {
		t.Error("expected Send to be closed")
	}
}

func TestHub_BroadcastToTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sub := newClient("sub", SessionTopic("s1"))
	other := newClient("other", SessionTopic("s2"))
	hub.Register(sub)
	hub.Register(other)

	ev, err := NewEvent(SessionTopic("s1"), "session.countdown", map[string]int{"remaining": 42})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if n := hub.Broadcast(ev.Topic, ev); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}

	var got Event
	if err := json.Unmarshal(<-sub.Send, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != "session.countdown" || !strings.Contains(string(got.Data), `"remaining":42`) {
		t.Errorf("unexpected event: %+v", got)
	}
	select {
	case <-other.Send:
		t.Error("other session should not receive the event")
	default:
	}
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "slow", Topics: []string{"t"}, Send: make(chan []byte, 1)}
	hub.Register(client)

	ev, _ := NewEvent("t", "x", nil)
	hub.Broadcast("t", ev)
	if n := hub.Broadcast("t", ev); n != 0 {
		t.Errorf("expected second event to be dropped, delivered %d", n)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ev, _ := NewEvent("user/u1", "message.new", nil)
	r.Publish(context.Background(), ev)
	if types := r.Types(); len(types) != 1 || types[0] != "message.new" {
		t.Errorf("unexpected types: %v", types)
	}
}

func TestHandler_RequiresIdentity(t *testing.T) {
	h := NewHandler(NewHub(zerolog.Nop()), nil, nil)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ws", nil), httptest.NewRecorder())
	err := h.Connect(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHandler_EndToEnd(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	activity := make(chan string, 1)
	h := NewHandler(hub, nil, func(sid string) { activity <- sid })

	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), "u1", auth.RoleNurse)
			ctx = context.WithValue(ctx, auth.SessionIDKey, "s1")
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	h.RegisterRoutes(e.Group(""))
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := gorillawebsocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.TopicCount(SessionTopic("s1")) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.TopicCount(UserTopic("u1")) != 1 {
		t.Fatal("expected connection on the user topic")
	}

	ev, _ := NewEvent(SessionTopic("s1"), "session.warning", map[string]int{"remaining": 60})
	hub.Publish(context.Background(), ev)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "session.warning") {
		t.Errorf("unexpected message: %s", raw)
	}

	if err := conn.WriteJSON(ClientMessage{Action: "activity"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case sid := <-activity:
		if sid != "s1" {
			t.Errorf("expected activity for s1, got %s", sid)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("activity callback not called")
	}
}
