// Package store defines the per-post key-value and sorted-set operations the
// game backend needs from its persistence layer. Concrete backends live in
// internal/redis (primary) and internal/database (SQL); Memory is an
// in-process implementation used for local runs and tests.
package store

import "context"

// Direction selects the ordering of RangeTop.
type Direction int

const (
	// Descending returns the highest scores first.
	Descending Direction = iota
	// Ascending returns the lowest scores first.
	Ascending
)

// Member is a sorted-set entry.
type Member struct {
	Name  string
	Score float64
}

// KV is the scalar half of the store. Absent keys are reported with ok=false,
// never with an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// SortedSet is the ranking half of the store. Members with equal scores are
// ordered by the backend; callers must not depend on that order.
type SortedSet interface {
	RangeTop(ctx context.Context, key string, count int64, dir Direction) ([]Member, error)
	RankAscending(ctx context.Context, key, member string) (index int64, ok bool, err error)
	Score(ctx context.Context, key, member string) (score float64, ok bool, err error)
	Cardinality(ctx context.Context, key string) (int64, error)
	Upsert(ctx context.Context, key, member string, score float64) error
}

// Store is everything the game backend consumes.
type Store interface {
	KV
	SortedSet
}

// ConditionalSetter is implemented by backends that can set a key only when
// it does not exist yet, in a single atomic step.
type ConditionalSetter interface {
	SetNX(ctx context.Context, key, value string) (set bool, err error)
}

// MaxUpserter is implemented by backends that can raise a member's score to
// max(current, score) atomically. It returns the score stored afterwards.
type MaxUpserter interface {
	UpsertMax(ctx context.Context, key, member string, score float64) (float64, error)
}
