package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"eduquiz-service/internal/app"
	"eduquiz-service/internal/domain"
)

// WSHandler streams live leaderboard snapshots for a category over a websocket.
type WSHandler struct {
	service  *app.QuizService
	hub      *app.LeaderboardHub
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *app.LeaderboardHub, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and pushes the current leaderboard followed by
// every update published for the category. The stream is one-way; client
// frames are read only to notice disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("categoryId")
	if categoryID == "" {
		http.Error(w, "missing categoryId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe(categoryID)
	defer cancel()

	initial, err := h.service.Leaderboard(r.Context(), categoryID)
	if err != nil {
		h.log.WithField("category_id", categoryID).WithError(err).Warn("initial leaderboard failed")
		return
	}
	if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: initial}); err != nil {
		return
	}

	done := make(chan struct{})
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
			if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: update}); err != nil {
				h.log.WithError(err).Debug("ws write error")
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
