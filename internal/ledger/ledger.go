// Package ledger keeps the per-post score sorted sets. Scores only ever move
// up: a stale or replayed save can never lower a player's best.
package ledger

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/Baalavignesh/DiggerMan/internal/models"
	"github.com/Baalavignesh/DiggerMan/internal/store"
)

// Ledger ratchets scores in a store.
type Ledger struct {
	store store.SortedSet
}

// New returns a ledger over s.
func New(s store.SortedSet) *Ledger {
	return &Ledger{store: s}
}

// EnsureScore stores max(current, candidate) for name and returns the stored
// score. A missing entry counts as lower than any candidate. Backends that
// implement store.MaxUpserter do this in one atomic step.
func (l *Ledger) EnsureScore(ctx context.Context, postID string, metric models.Metric, name string, candidate float64) (float64, error) {
	key := store.Keys(postID).Leaderboard(string(metric))

	if ratchet, ok := l.store.(store.MaxUpserter); ok {
		score, err := ratchet.UpsertMax(ctx, key, name, candidate)
		if err != nil {
			return 0, fmt.Errorf("ensure %s score: %w", metric, err)
		}
		return score, nil
	}

	current, found, err := l.store.Score(ctx, key, name)
	if err != nil {
		return 0, fmt.Errorf("ensure %s score: %w", metric, err)
	}
	if found && current >= candidate {
		return current, nil
	}
	if err := l.store.Upsert(ctx, key, name, candidate); err != nil {
		return 0, fmt.Errorf("ensure %s score: %w", metric, err)
	}
	return candidate, nil
}

// Seed makes sure name has an entry on every leaderboard of the post,
// leaving existing scores alone.
func (l *Ledger) Seed(ctx context.Context, postID, name string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, metric := range models.Metrics {
		g.Go(func() error {
			_, err := l.EnsureScore(ctx, postID, metric, name, 0)
			return err
		})
	}
	return g.Wait()
}

// Record ratchets both leaderboards from raw in-game counters. Each metric
// moves independently.
func (l *Ledger) Record(ctx context.Context, postID, name string, money, depth float64) error {
	candidates := map[models.Metric]float64{
		models.MetricMoney: ScoreFromCounter(money),
		models.MetricDepth: ScoreFromCounter(depth),
	}

	g, ctx := errgroup.WithContext(ctx)
	for metric, value := range candidates {
		g.Go(func() error {
			_, err := l.EnsureScore(ctx, postID, metric, name, value)
			return err
		})
	}
	return g.Wait()
}

// ScoreFromCounter floors an in-game counter into a leaderboard score.
// Negative and non-finite counters score 0.
func ScoreFromCounter(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return math.Floor(v)
}
