package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/Baalavignesh/DiggerMan/internal/middleware"
	"github.com/Baalavignesh/DiggerMan/internal/protocol"
	"github.com/Baalavignesh/DiggerMan/internal/router"
)

// maxFrameSize bounds one web view message. Saved games are small JSON
// documents.
const maxFrameSize = 1 << 20

type MessageHandler struct {
	router *router.Router
}

func NewMessageHandler(r *router.Router) *MessageHandler {
	return &MessageHandler{router: r}
}

// PostMessage handles one web view message over plain HTTP and answers with
// the reply frame. Broadcasts still reach websocket viewers of the post.
func (h *MessageHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.GetViewer(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	frame, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFrameSize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, protocol.NewError("Message too large"))
		return
	}

	msg, err := protocol.Decode(frame)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, router.ErrorFrame(err))
		return
	}

	reply, err := h.router.Handle(r.Context(), router.Request{
		PostID:  viewer.PostID,
		UserID:  viewer.UserID,
		Message: msg,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, protocol.ErrUnknownMessageType) || errors.Is(err, protocol.ErrInvalidPayload) {
			status = http.StatusBadRequest
		} else {
			log.Printf("[Messages] Failed to handle %s on post %s: %v", msg.Type, viewer.PostID, err)
		}
		writeJSON(w, status, router.ErrorFrame(err))
		return
	}

	writeJSON(w, http.StatusOK, reply)
}
