package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/classified-intel/backend/internal/engine"
	"github.com/classified-intel/backend/internal/registry"
)

type createLobbyRequest struct {
	Visibility string `json:"visibility"`
}

type lobbyResponse struct {
	LobbyID    string `json:"lobby_id"`
	Code       string `json:"code"`
	Visibility string `json:"visibility"`
}

func CreateLobby(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createLobbyRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		visibility := engine.VisibilityPrivate
		if req.Visibility == string(engine.VisibilityPublic) {
			visibility = engine.VisibilityPublic
		}

		rm, err := reg.Create(r.Context(), visibility)
		if err != nil {
			http.Error(w, "failed to create lobby", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, lobbyResponse{
			LobbyID:    rm.ID(),
			Code:       rm.Code(),
			Visibility: string(rm.Visibility()),
		})
	}
}

type quickMatchRequest struct {
	Name string `json:"name"`
}

type quickMatchResponse struct {
	LobbyID  string `json:"lobby_id"`
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
	Created  bool   `json:"created"`
}

func QuickMatch(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quickMatchRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		playerID := uuid.NewString()
		rm, created, err := reg.QuickMatch(r.Context(), playerID, req.Name)
		if err != nil {
			http.Error(w, "quick match failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, quickMatchResponse{
			LobbyID:  rm.ID(),
			Code:     rm.Code(),
			PlayerID: playerID,
			Created:  created,
		})
	}
}

type lobbySummary struct {
	LobbyID   string `json:"lobby_id"`
	Code      string `json:"code"`
	Status    string `json:"status"`
	Players   int    `json:"players"`
	Connected int    `json:"connected"`
}

func ListLobbies(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		descs, err := reg.ListPublic(r.Context())
		if err != nil {
			http.Error(w, "registry unavailable", http.StatusInternalServerError)
			return
		}
		out := make([]lobbySummary, 0, len(descs))
		for _, d := range descs {
			out = append(out, lobbySummary{
				LobbyID:   d.ID,
				Code:      d.Code,
				Status:    string(d.Status),
				Players:   d.Players,
				Connected: d.Connected,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetLobby(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		rm, err := reg.GetByCode(r.Context(), code)
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				http.Error(w, "lobby not found", http.StatusNotFound)
				return
			}
			http.Error(w, "registry unavailable", http.StatusInternalServerError)
			return
		}
		d, err := rm.Describe(r.Context())
		if err != nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, lobbySummary{
			LobbyID:   d.ID,
			Code:      d.Code,
			Status:    string(d.Status),
			Players:   d.Players,
			Connected: d.Connected,
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
