package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/net/websocket"

	"github.com/Baalavignesh/DiggerMan/internal/hub"
	"github.com/Baalavignesh/DiggerMan/internal/middleware"
	"github.com/Baalavignesh/DiggerMan/internal/models"
	"github.com/Baalavignesh/DiggerMan/internal/protocol"
	"github.com/Baalavignesh/DiggerMan/internal/router"
)

// WebViewHandler serves the web view channel of a post over a websocket.
// Messages from one connection are handled in order; connections are
// handled concurrently.
type WebViewHandler struct {
	router *router.Router
	hub    *hub.Hub
}

func NewWebViewHandler(r *router.Router, h *hub.Hub) *WebViewHandler {
	return &WebViewHandler{router: r, hub: h}
}

// writeWait bounds one websocket write.
const writeWait = 10 * time.Second

type wsSender struct {
	conn *websocket.Conn
}

func (s wsSender) Send(msg protocol.Outbound) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return websocket.JSON.Send(s.conn, msg)
}

func (s wsSender) Close() error {
	return s.conn.Close()
}

// Connect upgrades the request and serves the viewer until it disconnects.
func (h *WebViewHandler) Connect(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.GetViewer(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	server := websocket.Server{Handler: func(conn *websocket.Conn) {
		h.serve(conn, viewer)
	}}
	server.ServeHTTP(w, r)
}

func (h *WebViewHandler) serve(conn *websocket.Conn, v middleware.Viewer) {
	defer conn.Close()
	conn.MaxPayloadBytes = maxFrameSize

	viewer := h.hub.Join(v.PostID, v.UserID, wsSender{conn: conn})
	defer h.hub.Leave(viewer)
	log.Printf("[WebView] Viewer %s joined post %s (%d connected)", viewer.ID, v.PostID, h.hub.Count(v.PostID))

	ctx := conn.Request().Context()
	for {
		var frame []byte
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("[WebView] Viewer %s read failed: %v", viewer.ID, err)
			}
			log.Printf("[WebView] Viewer %s left post %s", viewer.ID, v.PostID)
			return
		}

		reply, update := h.handle(ctx, v, frame)
		if err := viewer.Send(reply); err != nil {
			log.Printf("[WebView] Viewer %s write failed: %v", viewer.ID, err)
			return
		}
		h.router.Publish(v.PostID, update)
	}
}

// handle returns the reply to frame and the leaderboard to publish after
// the reply is queued.
func (h *WebViewHandler) handle(ctx context.Context, v middleware.Viewer, frame []byte) (protocol.Outbound, *models.LeaderboardSnapshot) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		return router.ErrorFrame(err), nil
	}

	reply, update, err := h.router.Process(ctx, router.Request{PostID: v.PostID, UserID: v.UserID, Message: msg})
	if err != nil {
		if !errors.Is(err, protocol.ErrUnknownMessageType) && !errors.Is(err, protocol.ErrInvalidPayload) {
			log.Printf("[WebView] Failed to handle %s on post %s: %v", msg.Type, v.PostID, err)
		}
		return router.ErrorFrame(err), nil
	}
	return reply, update
}
