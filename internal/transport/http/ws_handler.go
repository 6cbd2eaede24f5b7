package http

import (
	"log"
	"net/http"

	"forest-valley-trail/internal/app"
	"forest-valley-trail/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams leaderboard updates to the landing and results views.
// The feed is one-way: clients only read, the scoring path never consults it.
type WSHandler struct {
	service  *app.TrailService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.TrailService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string             `json:"type"`
	Payload domain.Leaderboard `json:"payload"`
}

// ServeWS upgrades the request and pushes a leaderboard frame on every
// change, starting with the current snapshot.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	updates, cancel, err := h.service.Subscribe(r.Context())
	if err != nil {
		http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	defer cancel()

	done := make(chan struct{})

	// Reader exists only to notice the peer going away.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: update}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
