// Package router dispatches web view messages to the persistence and
// leaderboard services and builds the replies.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Baalavignesh/DiggerMan/internal/identity"
	"github.com/Baalavignesh/DiggerMan/internal/leaderboard"
	"github.com/Baalavignesh/DiggerMan/internal/ledger"
	"github.com/Baalavignesh/DiggerMan/internal/models"
	"github.com/Baalavignesh/DiggerMan/internal/protocol"
	"github.com/Baalavignesh/DiggerMan/internal/session"
)

const tracerName = "github.com/Baalavignesh/DiggerMan/internal/router"

// Broadcaster delivers a message to every viewer of a post.
type Broadcaster interface {
	Broadcast(postID string, msg protocol.Outbound)
}

// Deps are the services a Router dispatches to. Broadcaster may be nil.
type Deps struct {
	Identity    *identity.Service
	Ledger      *ledger.Ledger
	Leaderboard *leaderboard.Engine
	Sessions    *session.Store
	Broadcaster Broadcaster
}

// Request is one inbound message from a viewer. An empty UserID is handled
// as the anonymous identity.
type Request struct {
	PostID  string
	UserID  string
	Message protocol.Inbound
}

// Router handles the closed set of web view messages.
type Router struct {
	deps   Deps
	tracer trace.Tracer
}

// New returns a router over deps.
func New(deps Deps) *Router {
	return &Router{deps: deps, tracer: otel.Tracer(tracerName)}
}

// Handle processes one message, broadcasts any leaderboard change it caused
// and returns the reply for the sender. Messages of unknown type fail with
// protocol.ErrUnknownMessageType and leave all state untouched.
func (r *Router) Handle(ctx context.Context, req Request) (protocol.Outbound, error) {
	reply, update, err := r.Process(ctx, req)
	if err != nil {
		return protocol.Outbound{}, err
	}
	r.Publish(req.PostID, update)
	return reply, nil
}

// Process is Handle without the broadcast. A non-nil update is the
// leaderboard the caller passes to Publish once the reply is delivered.
func (r *Router) Process(ctx context.Context, req Request) (reply protocol.Outbound, update *models.LeaderboardSnapshot, err error) {
	userID := models.UserOrAnonymous(req.UserID)

	ctx, span := r.tracer.Start(ctx, "router."+req.Message.Type, trace.WithAttributes(
		attribute.String("post.id", req.PostID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	reply, update, err = r.dispatch(ctx, req.PostID, userID, req.Message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return reply, update, err
}

// Publish sends the shared part of update to every viewer of the post.
// Standings are per player and stay with the sender.
func (r *Router) Publish(postID string, update *models.LeaderboardSnapshot) {
	if update == nil || r.deps.Broadcaster == nil {
		return
	}
	shared := *update
	shared.Self = nil
	r.deps.Broadcaster.Broadcast(postID, protocol.NewLeaderboardUpdate(shared))
}

func (r *Router) dispatch(ctx context.Context, postID, userID string, msg protocol.Inbound) (protocol.Outbound, *models.LeaderboardSnapshot, error) {
	switch msg.Type {
	case protocol.TypeWebViewReady:
		reply, err := r.webViewReady(ctx, postID, userID)
		return reply, nil, err
	case protocol.TypeSaveGame:
		var data protocol.SaveGameData
		if err := protocol.DecodeData(msg, &data); err != nil {
			return protocol.Outbound{}, nil, err
		}
		if len(data.GameState) == 0 || string(data.GameState) == "null" {
			return protocol.Outbound{}, nil, fmt.Errorf("%w: saveGame without gameState", protocol.ErrInvalidPayload)
		}
		return r.saveGame(ctx, postID, userID, data.GameState)
	case protocol.TypeResetGame:
		if err := r.deps.Sessions.Reset(ctx, postID, userID); err != nil {
			return protocol.Outbound{}, nil, err
		}
		return protocol.Outbound{Type: protocol.TypeResetConfirmed, Data: protocol.ResetConfirmed{}}, nil, nil
	case protocol.TypeRegisterPlayer:
		var data protocol.RegisterPlayerData
		if err := protocol.DecodeData(msg, &data); err != nil {
			return protocol.Outbound{}, nil, err
		}
		return r.registerPlayer(ctx, postID, userID, data.Name)
	case protocol.TypeRequestLeaderboard:
		name, _, err := r.deps.Identity.Lookup(ctx, postID, userID)
		if err != nil {
			return protocol.Outbound{}, nil, err
		}
		snapshot, err := r.deps.Leaderboard.Snapshot(ctx, postID, name)
		if err != nil {
			return protocol.Outbound{}, nil, err
		}
		return protocol.NewLeaderboardUpdate(snapshot), nil, nil
	default:
		return protocol.Outbound{}, nil, fmt.Errorf("%w: %q", protocol.ErrUnknownMessageType, msg.Type)
	}
}

func (r *Router) webViewReady(ctx context.Context, postID, userID string) (protocol.Outbound, error) {
	var (
		saved      json.RawMessage
		hasSave    bool
		stored     string
		registered bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		saved, hasSave, err = r.deps.Sessions.Load(gctx, postID, userID)
		return err
	})
	g.Go(func() (err error) {
		stored, registered, err = r.deps.Identity.Lookup(gctx, postID, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return protocol.Outbound{}, err
	}

	data := protocol.InitialData{}
	selfName := stored
	if hasSave {
		withDefaults, err := models.WithDefaults(saved)
		if err != nil {
			return protocol.Outbound{}, err
		}
		data.SavedState = withDefaults
		if !registered {
			selfName = models.NewGameState(saved).PlayerName()
		}
	}
	if registered {
		data.PlayerName = stored
	}

	snapshot, err := r.deps.Leaderboard.Snapshot(ctx, postID, selfName)
	if err != nil {
		return protocol.Outbound{}, err
	}
	data.Leaderboard = &snapshot
	return protocol.Outbound{Type: protocol.TypeInitialData, Data: data}, nil
}

func (r *Router) saveGame(ctx context.Context, postID, userID string, state json.RawMessage) (protocol.Outbound, *models.LeaderboardSnapshot, error) {
	if err := r.deps.Sessions.Save(ctx, postID, userID, state); err != nil {
		return protocol.Outbound{}, nil, err
	}

	// Only object documents carry counters and a name to score.
	name := ""
	if view := models.NewGameState(state); view.IsObject() {
		var err error
		if name, err = r.scoringName(ctx, postID, userID, view); err != nil {
			return protocol.Outbound{}, nil, err
		}
		if name != "" {
			if err := r.deps.Ledger.Record(ctx, postID, name, view.Money(), view.Depth()); err != nil {
				return protocol.Outbound{}, nil, err
			}
		}
	}

	snapshot, err := r.deps.Leaderboard.Snapshot(ctx, postID, name)
	if err != nil {
		return protocol.Outbound{}, nil, err
	}
	return protocol.Outbound{Type: protocol.TypeSaveConfirmed, Data: protocol.SaveConfirmed{Leaderboard: &snapshot}}, &snapshot, nil
}

// scoringName returns the name a save is scored under: the registered name,
// or the document's playerName when it can be registered for the user. An
// empty result means the save is not scored.
func (r *Router) scoringName(ctx context.Context, postID, userID string, state models.GameState) (string, error) {
	name, registered, err := r.deps.Identity.Lookup(ctx, postID, userID)
	if err != nil || registered {
		return name, err
	}
	claimed := state.PlayerName()
	if claimed == "" {
		return "", nil
	}
	name, err = r.deps.Identity.Register(ctx, postID, userID, claimed)
	if err != nil {
		if isRejection(err) {
			log.Printf("[Router] Save on post %s not scored, name %q rejected: %v", postID, claimed, err)
			return "", nil
		}
		return "", err
	}
	return name, nil
}

func (r *Router) registerPlayer(ctx context.Context, postID, userID, rawName string) (protocol.Outbound, *models.LeaderboardSnapshot, error) {
	snapshot, name, err := r.register(ctx, postID, userID, rawName)
	if err != nil {
		message, ok := RejectionMessage(err)
		if !ok {
			return protocol.Outbound{}, nil, err
		}
		return protocol.Outbound{
			Type: protocol.TypeRegisterResult,
			Data: protocol.RegisterResult{Success: false, Error: message},
		}, nil, nil
	}
	return protocol.Outbound{
		Type: protocol.TypeRegisterResult,
		Data: protocol.RegisterResult{Success: true, PlayerName: name, Leaderboard: &snapshot},
	}, &snapshot, nil
}

// Register claims rawName for userID on postID, returns the post's snapshot
// seen by the player and broadcasts the new leaderboard to every viewer.
func (r *Router) Register(ctx context.Context, postID, userID, rawName string) (models.LeaderboardSnapshot, string, error) {
	snapshot, name, err := r.register(ctx, postID, models.UserOrAnonymous(userID), rawName)
	if err != nil {
		return models.LeaderboardSnapshot{}, "", err
	}
	r.Publish(postID, &snapshot)
	return snapshot, name, nil
}

func (r *Router) register(ctx context.Context, postID, userID, rawName string) (models.LeaderboardSnapshot, string, error) {
	name, err := r.deps.Identity.Register(ctx, postID, userID, rawName)
	if err != nil {
		return models.LeaderboardSnapshot{}, "", err
	}
	log.Printf("[Router] Player %q registered on post %s", name, postID)

	snapshot, err := r.deps.Leaderboard.Snapshot(ctx, postID, name)
	if err != nil {
		return models.LeaderboardSnapshot{}, "", err
	}
	return snapshot, name, nil
}

func isRejection(err error) bool {
	return errors.Is(err, identity.ErrInvalidName) ||
		errors.Is(err, identity.ErrNameTaken) ||
		errors.Is(err, identity.ErrAlreadyRegistered)
}

// RejectionMessage returns the player-facing text of a refused
// registration. ok is false for any other error.
func RejectionMessage(err error) (message string, ok bool) {
	var already *identity.AlreadyRegisteredError
	switch {
	case errors.Is(err, identity.ErrInvalidName):
		return protocol.MsgInvalidName, true
	case errors.As(err, &already):
		return fmt.Sprintf(protocol.MsgAlreadyRegistered, already.Existing), true
	case errors.Is(err, identity.ErrNameTaken):
		return protocol.MsgNameTaken, true
	}
	return "", false
}

// ErrorFrame converts a Handle error into the error message sent back to
// the viewer. Internal failures are not described.
func ErrorFrame(err error) protocol.Outbound {
	switch {
	case errors.Is(err, protocol.ErrUnknownMessageType), errors.Is(err, protocol.ErrInvalidPayload):
		return protocol.NewError(err.Error())
	}
	return protocol.NewError(protocol.MsgInternal)
}
