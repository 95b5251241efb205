package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classified-intel/backend/internal/registry"
	"github.com/classified-intel/backend/internal/ws"
)

func SetupRoutes(reg *registry.Registry, wsHandler *ws.Handler) http.Handler {
	r := chi.NewRouter()

	r.Post("/lobbies", CreateLobby(reg))
	r.Get("/lobbies", ListLobbies(reg))
	r.Get("/lobbies/{code}", GetLobby(reg))
	r.Post("/quickmatch", QuickMatch(reg))
	r.Get("/healthz", Healthz)
	r.Get("/ws", wsHandler.ServeHTTP)
	return r
}
