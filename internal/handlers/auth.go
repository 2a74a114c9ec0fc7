package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/Baalavignesh/DiggerMan/internal/auth"
)

// AuthHandler issues viewer tokens for local development. In production the
// hosting platform mints them.
type AuthHandler struct {
	signer *auth.Signer
}

func NewAuthHandler(signer *auth.Signer) *AuthHandler {
	return &AuthHandler{signer: signer}
}

// DevTokenRequest represents the dev token request body
type DevTokenRequest struct {
	UserID string `json:"user_id"`
	PostID string `json:"post_id"`
}

// DevTokenResponse represents the dev token response
type DevTokenResponse struct {
	Token string `json:"token"`
}

// IssueDevToken signs a viewer token for the given user and post
func (h *AuthHandler) IssueDevToken(w http.ResponseWriter, r *http.Request) {
	var req DevTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	req.PostID = strings.TrimSpace(req.PostID)
	if req.UserID == "" || req.PostID == "" {
		writeError(w, http.StatusBadRequest, "user_id and post_id are required")
		return
	}

	token, err := h.signer.GenerateViewerToken(req.UserID, req.PostID)
	if err != nil {
		log.Printf("[Auth] Failed to generate viewer token: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	log.Printf("[Auth] Issued dev token for user %s on post %s", req.UserID, req.PostID)
	writeJSON(w, http.StatusCreated, DevTokenResponse{Token: token})
}
