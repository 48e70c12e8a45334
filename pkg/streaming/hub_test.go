package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// wait for registration
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() == 0 {
		t.Fatal("Client never registered")
	}

	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return event
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialHub(t, hub)

	hub.BroadcastStatus(map[string]string{"state": "running"})

	event := readEvent(t, conn)
	if event.Type != EventTypeStatus {
		t.Errorf("Expected status event, got %s", event.Type)
	}
	if event.Timestamp.IsZero() {
		t.Error("Event should carry a timestamp")
	}
}

func TestHubScanSummary(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialHub(t, hub)

	hub.BroadcastScan(ScanSummary{Markets: 10, Analyses: 8, Opportunities: 2})

	event := readEvent(t, conn)
	if event.Type != EventTypeScan {
		t.Errorf("Expected scan event, got %s", event.Type)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialHub(t, hub)

	msg := `{"type":"unsubscribe","events":["status"]}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	hub.BroadcastStatus(map[string]string{"state": "running"})
	hub.BroadcastScan(ScanSummary{Markets: 1})

	// The status event is filtered; the first delivery is the scan.
	event := readEvent(t, conn)
	if event.Type != EventTypeScan {
		t.Errorf("Expected scan event after unsubscribing status, got %s", event.Type)
	}
}

func TestHubClientCount(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	if hub.ClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.ClientCount())
	}

	dialHub(t, hub)

	if hub.ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.ClientCount())
	}
}
