package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Baalavignesh/DiggerMan/internal/auth"
	"github.com/Baalavignesh/DiggerMan/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ViewerContextKey is the key for storing the viewer in request context
	ViewerContextKey contextKey = "viewer"
)

// Viewer is the platform user behind a request and the post it is viewing.
type Viewer struct {
	UserID string
	PostID string
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ResolveViewer identifies the viewer of a request. A bearer token (header
// or "token" query parameter) binds the request to the token's user and
// post. Requests without a token are served as the anonymous user of the
// post named in the path or the "post" query parameter.
func ResolveViewer(signer *auth.Signer, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := r.PathValue("postID")
		if postID == "" {
			postID = r.URL.Query().Get("post")
		}

		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		viewer := Viewer{UserID: models.AnonymousUserID, PostID: postID}
		if tokenString != "" {
			claims, err := signer.ValidateToken(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			if postID != "" && postID != claims.PostID {
				writeError(w, http.StatusForbidden, "Token is not valid for this post")
				return
			}
			viewer = Viewer{UserID: models.UserOrAnonymous(claims.UserID), PostID: claims.PostID}
		}

		if viewer.PostID == "" {
			writeError(w, http.StatusBadRequest, "Missing post id")
			return
		}

		ctx := context.WithValue(r.Context(), ViewerContextKey, viewer)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetViewer extracts the viewer from request context
func GetViewer(r *http.Request) (Viewer, bool) {
	viewer, ok := r.Context().Value(ViewerContextKey).(Viewer)
	return viewer, ok
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return r.URL.Query().Get("token"), nil
	}

	// Check if header has Bearer prefix
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errInvalidHeader
	}
	return parts[1], nil
}

var errInvalidHeader = errors.New("Invalid authorization header format. Use: Bearer <token>")

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
