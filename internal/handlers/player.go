package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/Baalavignesh/DiggerMan/internal/identity"
	"github.com/Baalavignesh/DiggerMan/internal/middleware"
	"github.com/Baalavignesh/DiggerMan/internal/models"
	"github.com/Baalavignesh/DiggerMan/internal/router"
)

type PlayerHandler struct {
	router *router.Router
}

func NewPlayerHandler(r *router.Router) *PlayerHandler {
	return &PlayerHandler{router: r}
}

// RegisterPlayerRequest represents the request body for name registration
type RegisterPlayerRequest struct {
	Name string `json:"name"`
}

// RegisterPlayerResponse represents a successful registration
type RegisterPlayerResponse struct {
	Player      models.Player              `json:"player"`
	Leaderboard models.LeaderboardSnapshot `json:"leaderboard"`
}

// RegisterPlayer claims a display name for the viewer on the post
func (h *PlayerHandler) RegisterPlayer(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.GetViewer(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req RegisterPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot, name, err := h.router.Register(r.Context(), viewer.PostID, viewer.UserID, req.Name)
	if err != nil {
		message, rejected := router.RejectionMessage(err)
		switch {
		case rejected && errors.Is(err, identity.ErrInvalidName):
			writeError(w, http.StatusBadRequest, message)
		case rejected:
			writeError(w, http.StatusConflict, message)
		default:
			log.Printf("[Player] Failed to register name on post %s: %v", viewer.PostID, err)
			writeError(w, http.StatusInternalServerError, "Failed to register player")
		}
		return
	}

	writeJSON(w, http.StatusCreated, RegisterPlayerResponse{
		Player: models.Player{
			PostID:      viewer.PostID,
			UserID:      viewer.UserID,
			DisplayName: name,
		},
		Leaderboard: snapshot,
	})
}
