package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/lostfound/services/chat/application/handlers"
	"github.com/ghuser/lostfound/services/chat/application/realtime"
	chatsvcs "github.com/ghuser/lostfound/services/chat/application/services"
)

// HistoryRoutes returns the per-item chat routes. They are mounted by the
// item router under /items behind authentication.
func HistoryRoutes(svc *chatsvcs.ChatService) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/{id}/chat", handlers.NewGetHistoryHandler(svc).Execute)
	}
}

// RealtimeRoute mounts the websocket endpoint at /ws. It must sit outside
// any handler timeout.
func RealtimeRoute(r chi.Router, hub *realtime.Hub) {
	r.Get("/ws", hub.ServeHTTP)
}
