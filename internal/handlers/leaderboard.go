package handlers

import (
	"log"
	"net/http"

	"github.com/Baalavignesh/DiggerMan/internal/identity"
	"github.com/Baalavignesh/DiggerMan/internal/leaderboard"
	"github.com/Baalavignesh/DiggerMan/internal/middleware"
)

type LeaderboardHandler struct {
	engine *leaderboard.Engine
	names  *identity.Service
}

func NewLeaderboardHandler(engine *leaderboard.Engine, names *identity.Service) *LeaderboardHandler {
	return &LeaderboardHandler{engine: engine, names: names}
}

// GetLeaderboard returns the post's leaderboard snapshot, with the viewer's
// own standings when the viewer has registered a name.
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.GetViewer(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	name, _, err := h.names.Lookup(r.Context(), viewer.PostID, viewer.UserID)
	if err != nil {
		log.Printf("[Leaderboard] Failed to look up viewer name: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch leaderboard")
		return
	}

	snapshot, err := h.engine.Snapshot(r.Context(), viewer.PostID, name)
	if err != nil {
		log.Printf("[Leaderboard] Failed to build snapshot for post %s: %v", viewer.PostID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}
