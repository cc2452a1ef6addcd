package http

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/chat-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	// WS endpoint
	r.Get("/ws", wsServer.HandleWS)

	r.Group(func(pr chi.Router) {
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/rooms", func(rm chi.Router) {
			rm.Get("/", h.ListRooms)
			rm.With(RequireUser).Post("/", h.CreateRoom)

			rm.Route("/{id}", func(rr chi.Router) {
				rr.Get("/", h.GetRoom)
				rr.Get("/messages", h.GetMessages)
				rr.Get("/participants", h.GetParticipants)

				rr.Group(func(mr chi.Router) {
					mr.Use(RequireUser)
					mr.Delete("/", h.DeleteRoom)
					mr.Post("/moderators", h.AddModerator)
					mr.Delete("/moderators/{userID}", h.RemoveModerator)
				})
			})
		})

		pr.Route("/messages/{id}", func(mm chi.Router) {
			mm.Use(RequireUser)
			mm.Patch("/", h.EditMessage)
			mm.Delete("/", h.DeleteMessage)
			mm.Post("/reactions", h.AddReaction)
			mm.Delete("/reactions/{emoji}", h.RemoveReaction)
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
