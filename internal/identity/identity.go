// Package identity binds platform users to display names, one name per user
// and one user per case-folded name, on each post.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/Baalavignesh/DiggerMan/internal/store"
)

const (
	MinNameLength = 3
	MaxNameLength = 16
)

var (
	// ErrInvalidName is returned for names of the wrong length or with
	// characters outside letters, digits, space, '-' and '_'.
	ErrInvalidName = errors.New("invalid display name")
	// ErrNameTaken is returned when another user owns the name.
	ErrNameTaken = errors.New("display name already claimed")
	// ErrAlreadyRegistered matches *AlreadyRegisteredError.
	ErrAlreadyRegistered = errors.New("already registered under another name")
)

// AlreadyRegisteredError reports the name a user is already bound to.
type AlreadyRegisteredError struct {
	Existing string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("already registered as %s", e.Existing)
}

func (e *AlreadyRegisteredError) Is(target error) bool {
	return target == ErrAlreadyRegistered
}

// Seeder creates the zero score entries of a freshly registered name.
type Seeder interface {
	Seed(ctx context.Context, postID, name string) error
}

// Service registers and resolves display names.
type Service struct {
	store  store.KV
	scores Seeder
}

// NewService returns a naming service. scores may be nil when no ledger
// should be seeded.
func NewService(kv store.KV, scores Seeder) *Service {
	return &Service{store: kv, scores: scores}
}

// SanitizeName trims raw and validates it.
func SanitizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		return "", fmt.Errorf("%w: must be %d-%d characters long", ErrInvalidName, MinNameLength, MaxNameLength)
	}
	for _, r := range name {
		if !isValidNameChar(r) {
			return "", fmt.Errorf("%w: contains %q", ErrInvalidName, r)
		}
	}
	return name, nil
}

func isValidNameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == ' ' ||
		r == '_' ||
		r == '-'
}

// Normalize returns the form used for uniqueness checks.
func Normalize(name string) string {
	return cases.Fold().String(name)
}

// Lookup returns the display name userID registered on postID.
func (s *Service) Lookup(ctx context.Context, postID, userID string) (string, bool, error) {
	name, ok, err := s.store.Get(ctx, store.Keys(postID).UserName(userID))
	if err != nil {
		return "", false, fmt.Errorf("lookup name: %w", err)
	}
	return name, ok, nil
}

// Register claims rawName for userID on postID and returns the display name
// now bound to the user. Registering the name a user already holds succeeds
// and keeps the casing it was first registered with.
func (s *Service) Register(ctx context.Context, postID, userID, rawName string) (string, error) {
	name, err := SanitizeName(rawName)
	if err != nil {
		return "", err
	}
	normalized := Normalize(name)
	keys := store.Keys(postID)

	existing, registered, err := s.Lookup(ctx, postID, userID)
	if err != nil {
		return "", err
	}
	if registered {
		if Normalize(existing) != normalized {
			return "", &AlreadyRegisteredError{Existing: existing}
		}
		name = existing
	}

	if err := s.claim(ctx, keys.NameOwner(normalized), userID); err != nil {
		return "", err
	}

	g, gctx := errgroup.WithContext(ctx)
	if !registered {
		g.Go(func() error {
			return s.store.Set(gctx, keys.UserName(userID), name)
		})
	}
	if s.scores != nil {
		g.Go(func() error {
			return s.scores.Seed(gctx, postID, name)
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("register name: %w", err)
	}
	return name, nil
}

// claim binds the owner key to userID unless another user holds it.
func (s *Service) claim(ctx context.Context, ownerKey, userID string) error {
	owner, owned, err := s.store.Get(ctx, ownerKey)
	if err != nil {
		return fmt.Errorf("lookup owner: %w", err)
	}
	if owned {
		if owner != userID {
			return ErrNameTaken
		}
		return nil
	}

	cas, ok := s.store.(store.ConditionalSetter)
	if !ok {
		if err := s.store.Set(ctx, ownerKey, userID); err != nil {
			return fmt.Errorf("claim name: %w", err)
		}
		return nil
	}

	set, err := cas.SetNX(ctx, ownerKey, userID)
	if err != nil {
		return fmt.Errorf("claim name: %w", err)
	}
	if set {
		return nil
	}
	// Lost a race; the winner may still be this user on another connection.
	owner, _, err = s.store.Get(ctx, ownerKey)
	if err != nil {
		return fmt.Errorf("lookup owner: %w", err)
	}
	if owner != userID {
		return ErrNameTaken
	}
	return nil
}
