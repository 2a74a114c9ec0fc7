package handlers

import (
	"net/http"
	"net/url"

	"github.com/Baalavignesh/DiggerMan/internal/hub"
	"github.com/Baalavignesh/DiggerMan/internal/middleware"
)

type PresenceHandler struct {
	hub *hub.Hub
}

func NewPresenceHandler(h *hub.Hub) *PresenceHandler {
	return &PresenceHandler{hub: h}
}

// PresenceResponse describes who is watching a post and where to connect
type PresenceResponse struct {
	PostID       string `json:"post_id"`
	Viewers      int    `json:"viewers"`
	WebSocketURL string `json:"websocket_url"`
}

// GetPresence returns the number of connected viewers of the post and the
// websocket URL of its web view channel
func (h *PresenceHandler) GetPresence(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.GetViewer(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	wsURL := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     "/ws",
		RawQuery: url.Values{"post": {viewer.PostID}}.Encode(),
	}

	writeJSON(w, http.StatusOK, PresenceResponse{
		PostID:       viewer.PostID,
		Viewers:      h.hub.Count(viewer.PostID),
		WebSocketURL: wsURL.String(),
	})
}
