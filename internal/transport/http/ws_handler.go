package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"propops-service/internal/app"
	"propops-service/internal/domain"
)

// WSHandler streams a property's live ops board to dashboard clients.
type WSHandler struct {
	hub      *app.BoardHub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *app.BoardHub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string            `json:"type"`
	Payload domain.BoardEvent `json:"payload"`
}

// ServeWS upgrades the request and pumps board events until the client
// disconnects. The feed is one-way; inbound messages are drained only to
// detect the close.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	propertyID := r.URL.Query().Get("propertyId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if propertyID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing propertyId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined := h.hub.Join(propertyID, userID, displayName)

	updates, cancel, err := h.hub.Subscribe(propertyID)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"type": "error", "message": err.Error()})
		return
	}
	defer cancel()
	defer h.hub.Leave(propertyID, userID)

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "event", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage{Type: "joined", Payload: joined}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
