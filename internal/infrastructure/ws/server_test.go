package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
	"github.com/dipto-roy/courier-service-sub002/internal/core/tracking"
)

type stubHistory struct {
	samples map[string][]domain.LocationSample
}

func (h *stubHistory) Recent(_ context.Context, awb string, limit int) ([]domain.LocationSample, error) {
	s := h.samples[awb]
	if len(s) > limit {
		s = s[:limit]
	}
	return s, nil
}

type wireEvent struct {
	AWB     string          `json:"awb"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func dial(t *testing.T, hist LocationHistory) (*tracking.Hub, *websocket.Conn) {
	t.Helper()
	hub := tracking.NewHub(tracking.Config{}, zerolog.Nop())
	srv := httptest.NewServer(NewServer(hub, hist, Config{WriteTimeout: time.Second}, zerolog.Nop()))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return hub, conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev wireEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	return ev
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_SubscribeReceivesLatestLocationThenEvents(t *testing.T) {
	hist := &stubHistory{samples: map[string][]domain.LocationSample{
		"CX1": {{ID: "s1", RiderID: "rider_7", AWB: "CX1", Latitude: 23.78, Longitude: 90.41, ReceivedAt: time.Now()}},
	}}
	hub, conn := dial(t, hist)

	send(t, conn, clientFrame{Action: "subscribe", AWB: "CX1"})
	ack := read(t, conn)
	if ack.Success == nil || !*ack.Success || ack.AWB != "CX1" || ack.Message == "" {
		t.Fatalf("unexpected ack %+v", ack)
	}

	loc := read(t, conn)
	if loc.Type != string(domain.EventLocation) || loc.AWB != "CX1" {
		t.Fatalf("expected latest location event, got %+v", loc)
	}

	waitUntil(t, func() bool { return hub.ActiveSubscriberCount("CX1") == 1 })
	hub.Publish("CX1", domain.NewStatusEvent("CX1", domain.StatusChangedPayload{
		From: domain.StatusPickedUp, To: domain.StatusInTransit,
	}, time.Now()))

	ev := read(t, conn)
	if ev.Type != string(domain.EventStatus) {
		t.Fatalf("expected status event, got %+v", ev)
	}
	var p domain.StatusChangedPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.To != domain.StatusInTransit {
		t.Errorf("unexpected payload %s (%v)", ev.Payload, err)
	}
}

func TestServer_MissingAWBKeepsConnectionOpen(t *testing.T) {
	hub, conn := dial(t, nil)

	send(t, conn, clientFrame{Action: "subscribe", AWB: "  "})
	ack := read(t, conn)
	if ack.Success == nil || *ack.Success || ack.Error != "AWB required" {
		t.Fatalf("unexpected ack %+v", ack)
	}

	send(t, conn, clientFrame{Action: "subscribe", AWB: "CX2"})
	if ack := read(t, conn); ack.Success == nil || !*ack.Success {
		t.Fatalf("connection should still accept subscribes, got %+v", ack)
	}
	waitUntil(t, func() bool { return hub.ActiveSubscriberCount("CX2") == 1 })
}

func TestServer_UnsubscribeAndUnknownAction(t *testing.T) {
	hub, conn := dial(t, nil)

	send(t, conn, clientFrame{Action: "subscribe", AWB: "CX3"})
	read(t, conn)
	send(t, conn, clientFrame{Action: "unsubscribe", AWB: "CX3"})
	if ack := read(t, conn); ack.Success == nil || !*ack.Success || ack.AWB != "CX3" {
		t.Fatalf("unexpected unsubscribe ack %+v", ack)
	}
	if n := hub.ActiveSubscriberCount("CX3"); n != 0 {
		t.Errorf("expected no subscribers after unsubscribe, got %d", n)
	}

	send(t, conn, clientFrame{Action: "dance", AWB: "CX3"})
	if ack := read(t, conn); ack.Success == nil || *ack.Success || ack.Error != "unknown action" {
		t.Errorf("unexpected ack %+v", ack)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ack := read(t, conn); ack.Error != "invalid message" {
		t.Errorf("unexpected ack %+v", ack)
	}
}

func TestServer_DisconnectEndsSession(t *testing.T) {
	hub, conn := dial(t, nil)

	send(t, conn, clientFrame{Action: "subscribe", AWB: "CX4"})
	read(t, conn)
	_ = conn.Close()

	waitUntil(t, func() bool { return hub.SessionCount() == 0 })
	if n := hub.ActiveSubscriberCount("CX4"); n != 0 {
		t.Errorf("expected subscriptions removed on disconnect, got %d", n)
	}
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	_, client := dial(t, nil)
	c := NewConn(client, time.Second)

	first := c.Close()
	if second := c.Close(); second != first {
		t.Errorf("second Close returned %v, first %v", second, first)
	}
	if err := c.Send(context.Background(), []byte("{}")); err == nil {
		t.Error("expected send on closed connection to fail")
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{PongWait: 10 * time.Second, PingPeriod: 20 * time.Second}.withDefaults()
	if cfg.PingPeriod != 9*time.Second {
		t.Errorf("ping period must stay below pong wait, got %v", cfg.PingPeriod)
	}
	if cfg.WriteTimeout != tracking.DefaultSendTimeout {
		t.Errorf("unexpected write timeout %v", cfg.WriteTimeout)
	}
}
