// Package session persists the per-user game-state document of a post.
//
// Documents are stored inside a small envelope carrying a format version and
// a BLAKE2b checksum of the state. Plain documents written before the
// envelope existed are read as version 0. Anything that cannot be decoded, or
// whose checksum does not match, is treated as if no save existed.
package session

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/tidwall/gjson"
	"golang.org/x/crypto/blake2b"

	"github.com/Baalavignesh/DiggerMan/internal/models"
	"github.com/Baalavignesh/DiggerMan/internal/store"
)

// Version is the envelope format written by Save.
const Version = 1

// ErrCorruptState is logged for stored documents that cannot be decoded. It
// never reaches callers of Load.
var ErrCorruptState = errors.New("corrupt session state")

// NameResolver returns the display name registered by a user.
type NameResolver interface {
	Lookup(ctx context.Context, postID, userID string) (string, bool, error)
}

type envelope struct {
	Version  int             `json:"v"`
	Checksum string          `json:"sum"`
	State    json.RawMessage `json:"state"`
}

// Store saves, loads and resets session documents.
type Store struct {
	kv    store.KV
	names NameResolver
}

// New returns a session store. When names is non-nil, Load replaces the
// document's playerName with the user's registered display name.
func New(kv store.KV, names NameResolver) *Store {
	return &Store{kv: kv, names: names}
}

// Save overwrites the document of userID on postID.
func (s *Store) Save(ctx context.Context, postID, userID string, state json.RawMessage) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, state); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	// The state is stored byte for byte as checksummed, so HTML escaping
	// stays off.
	var data bytes.Buffer
	enc := json.NewEncoder(&data)
	enc.SetEscapeHTML(false)
	err := enc.Encode(envelope{
		Version:  Version,
		Checksum: checksum(compact.Bytes()),
		State:    compact.Bytes(),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	value := string(bytes.TrimSpace(data.Bytes()))
	if err := s.kv.Set(ctx, store.Keys(postID).Session(userID), value); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the document of userID on postID. Missing and corrupt
// documents both report ok=false.
func (s *Store) Load(ctx context.Context, postID, userID string) (json.RawMessage, bool, error) {
	key := store.Keys(postID).Session(userID)
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	state, err := decode([]byte(raw))
	if err != nil {
		log.Printf("[Session] CorruptSessionState %s: %v", key, err)
		return nil, false, nil
	}

	if s.names == nil {
		return state, true, nil
	}
	name, registered, err := s.names.Lookup(ctx, postID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	if registered {
		if state, err = models.WithPlayerName(state, name); err != nil {
			return nil, false, fmt.Errorf("load session: %w", err)
		}
	}
	return state, true, nil
}

// Reset deletes the document of userID on postID. Resetting a missing
// document succeeds.
func (s *Store) Reset(ctx context.Context, postID, userID string) error {
	if err := s.kv.Delete(ctx, store.Keys(postID).Session(userID)); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	return nil
}

func decode(raw []byte) (json.RawMessage, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrCorruptState)
	}
	if !gjson.GetBytes(raw, "v").Exists() {
		// Legacy documents were stored without an envelope.
		if !gjson.ParseBytes(raw).IsObject() {
			return nil, fmt.Errorf("%w: legacy document is not an object", ErrCorruptState)
		}
		return raw, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if env.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptState, env.Version)
	}
	if len(env.State) == 0 {
		return nil, fmt.Errorf("%w: empty state", ErrCorruptState)
	}
	if env.Checksum != checksum(env.State) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptState)
	}
	return env.State, nil
}

func checksum(state []byte) string {
	sum := blake2b.Sum256(state)
	return hex.EncodeToString(sum[:])
}
