package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"propops-service/internal/app"
	"propops-service/internal/domain"
	"propops-service/internal/infra/memory"
)

func TestWebSocketBoardFeed(t *testing.T) {
	hub := app.NewBoardHub(memory.NewBoardStore())
	wsHandler := NewWSHandler(hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?propertyId=p1&userId=u1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the joined frame and the initial presence snapshot first.
	sawJoined := false
	for i := 0; i < 2; i++ {
		typ, _ := readNext(conn, t)
		if typ == "joined" {
			sawJoined = true
		}
	}
	if !sawJoined {
		t.Fatalf("expected a joined frame")
	}

	// A published ops event must reach the dashboard.
	hub.Publish(domain.BoardEvent{PropertyID: "p1", Kind: "completion", At: time.Now()})

	for i := 0; i < 3; i++ {
		_, payload := readNext(conn, t)
		if payload.Kind == "completion" {
			return
		}
	}
	t.Fatalf("expected a completion event on the feed")
}

func readNext(conn *websocket.Conn, t *testing.T) (string, domain.BoardEvent) {
	t.Helper()
	var msg struct {
		Type    string            `json:"type"`
		Payload domain.BoardEvent `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return msg.Type, msg.Payload
}
