// Package protocol defines the messages exchanged between the game web view
// and the post backend. Every frame is {"type": ..., "data": ...}.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Baalavignesh/DiggerMan/internal/models"
)

// Inbound message types, sent by the web view.
const (
	TypeWebViewReady       = "webViewReady"
	TypeSaveGame           = "saveGame"
	TypeResetGame          = "resetGame"
	TypeRegisterPlayer     = "registerPlayer"
	TypeRequestLeaderboard = "requestLeaderboard"
)

// Outbound message types, sent to the web view.
const (
	TypeInitialData       = "initialData"
	TypeSaveConfirmed     = "saveConfirmed"
	TypeResetConfirmed    = "resetConfirmed"
	TypeRegisterResult    = "registerResult"
	TypeLeaderboardUpdate = "leaderboardUpdate"
	TypeError             = "error"
)

var (
	// ErrUnknownMessageType is returned for a type outside the inbound set.
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrInvalidPayload is returned for frames that cannot be decoded.
	ErrInvalidPayload = errors.New("invalid message payload")
)

// Messages shown to players.
const (
	MsgInvalidName       = "Choose a name 3-16 characters long using letters, numbers, spaces, - or _."
	MsgAlreadyRegistered = "You are already registered as %s."
	MsgNameTaken         = "That name is already claimed. Pick another one."
	MsgInternal          = "Something went wrong. Please try again."
)

// Inbound is a decoded web view frame. Data stays raw until the router
// knows the type.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SaveGameData is the payload of saveGame.
type SaveGameData struct {
	GameState json.RawMessage `json:"gameState"`
}

// RegisterPlayerData is the payload of registerPlayer.
type RegisterPlayerData struct {
	Name string `json:"name"`
}

// Outbound is a frame sent to the web view.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// InitialData answers webViewReady.
type InitialData struct {
	SavedState  json.RawMessage             `json:"savedState,omitempty"`
	Leaderboard *models.LeaderboardSnapshot `json:"leaderboard"`
	PlayerName  string                      `json:"playerName,omitempty"`
}

// SaveConfirmed answers saveGame.
type SaveConfirmed struct {
	Leaderboard *models.LeaderboardSnapshot `json:"leaderboard"`
}

// ResetConfirmed answers resetGame.
type ResetConfirmed struct{}

// RegisterResult answers registerPlayer.
type RegisterResult struct {
	Success     bool                        `json:"success"`
	PlayerName  string                      `json:"playerName,omitempty"`
	Error       string                      `json:"error,omitempty"`
	Leaderboard *models.LeaderboardSnapshot `json:"leaderboard,omitempty"`
}

// LeaderboardUpdate answers requestLeaderboard and is broadcast after
// registrations and saves.
type LeaderboardUpdate struct {
	Leaderboard *models.LeaderboardSnapshot `json:"leaderboard"`
}

// ErrorData carries a message the web view can show.
type ErrorData struct {
	Message string `json:"message"`
}

// Decode parses a web view frame and checks its type.
func Decode(frame []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !IsInbound(msg.Type) {
		return msg, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}
	return msg, nil
}

// IsInbound reports whether t is a message type the web view may send.
func IsInbound(t string) bool {
	switch t {
	case TypeWebViewReady, TypeSaveGame, TypeResetGame, TypeRegisterPlayer, TypeRequestLeaderboard:
		return true
	}
	return false
}

// DecodeData unmarshals the payload of msg into v.
func DecodeData(msg Inbound, v any) error {
	if len(msg.Data) == 0 {
		return fmt.Errorf("%w: %s without data", ErrInvalidPayload, msg.Type)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, msg.Type, err)
	}
	return nil
}

// NewLeaderboardUpdate wraps a snapshot in a leaderboardUpdate frame.
func NewLeaderboardUpdate(snapshot models.LeaderboardSnapshot) Outbound {
	return Outbound{Type: TypeLeaderboardUpdate, Data: LeaderboardUpdate{Leaderboard: &snapshot}}
}

// NewError wraps a player-facing message in an error frame.
func NewError(message string) Outbound {
	return Outbound{Type: TypeError, Data: ErrorData{Message: message}}
}
