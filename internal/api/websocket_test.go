package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/DynamicSeg/internal/events"
)

// waitFor polls a condition until it returns true or timeout expires.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("timeout waiting for: %s", msg)
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var e events.Event
	if err := json.Unmarshal(msg, &e); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}
	return e
}

func TestWebSocketReplaysRecentEvents(t *testing.T) {
	events.Clear()
	for i := 0; i < 5; i++ {
		events.Emit("info", "stimulus.onset", "", map[string]interface{}{"i": i})
	}

	srv := newTestServer(t, Options{})
	conn := dialWS(t, srv)
	defer conn.Close()

	for i := 0; i < 5; i++ {
		if e := readEvent(t, conn); e.Name != "stimulus.onset" {
			t.Errorf("expected stimulus.onset, got %s", e.Name)
		}
	}
}

func TestWebSocketStreamsNewEvents(t *testing.T) {
	events.Clear()
	srv := newTestServer(t, Options{})
	conn := dialWS(t, srv)
	defer conn.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", "response.boundary", "Spacebar pressed at 1.50 seconds", map[string]interface{}{"elapsed": 1.5})
	}()

	e := readEvent(t, conn)
	if e.Name != "response.boundary" {
		t.Errorf("expected response.boundary, got %s", e.Name)
	}
	if e.Fields["elapsed"] != 1.5 {
		t.Errorf("expected elapsed 1.5, got %v", e.Fields["elapsed"])
	}
}

func TestWebSocketRequiresAuth(t *testing.T) {
	srv := newTestServer(t, Options{Credentials: Credentials{User: "ra", Pass: "secret"}})
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail without credentials")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Errorf("expected 401, got %v", resp)
	}
}

func TestWebSocketDisconnectCleansUp(t *testing.T) {
	events.Clear()
	events.CloseAllSubscribers()

	srv := newTestServer(t, Options{})
	conn := dialWS(t, srv)

	go func() {
		time.Sleep(20 * time.Millisecond)
		events.Emit("info", "phase.started", "", nil)
	}()
	readEvent(t, conn)
	conn.Close()

	for i := 0; i < 5; i++ {
		events.Emit("info", "phase.completed", "", nil)
		time.Sleep(50 * time.Millisecond)
	}

	waitFor(t, 5*time.Second, func() bool {
		return events.SubscriberCount() == 0
	}, "subscriber count to return to 0 after close")
}
