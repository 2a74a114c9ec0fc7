// Package leaderboard builds leaderboard snapshots from the score sorted sets.
package leaderboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Baalavignesh/DiggerMan/internal/models"
	"github.com/Baalavignesh/DiggerMan/internal/store"
)

// TopN is the number of entries listed per metric.
const TopN = 10

// Engine answers leaderboard queries.
type Engine struct {
	store store.SortedSet
}

// NewEngine returns an engine reading from s.
func NewEngine(s store.SortedSet) *Engine {
	return &Engine{store: s}
}

// Snapshot returns the top entries of both metrics of postID. When
// playerName is set, the player's own standings are included for every
// metric they have an entry in.
func (e *Engine) Snapshot(ctx context.Context, postID, playerName string) (models.LeaderboardSnapshot, error) {
	keys := store.Keys(postID)
	moneyKey := keys.Leaderboard(string(models.MetricMoney))
	depthKey := keys.Leaderboard(string(models.MetricDepth))

	var (
		snapshot            models.LeaderboardSnapshot
		moneySelf, depthSelf *models.LeaderboardStanding
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snapshot.Money, err = e.top(ctx, moneyKey)
		return err
	})
	g.Go(func() (err error) {
		snapshot.Depth, err = e.top(ctx, depthKey)
		return err
	})
	if playerName != "" {
		g.Go(func() (err error) {
			moneySelf, err = e.standing(ctx, moneyKey, playerName)
			return err
		})
		g.Go(func() (err error) {
			depthSelf, err = e.standing(ctx, depthKey, playerName)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return models.LeaderboardSnapshot{}, err
	}

	if moneySelf != nil || depthSelf != nil {
		snapshot.Self = &models.SelfStandings{Money: moneySelf, Depth: depthSelf}
	}
	return snapshot, nil
}

func (e *Engine) top(ctx context.Context, key string) ([]models.LeaderboardEntry, error) {
	members, err := e.store.RangeTop(ctx, key, TopN, store.Descending)
	if err != nil {
		return nil, fmt.Errorf("top of %s: %w", key, err)
	}
	entries := make([]models.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		entries = append(entries, models.LeaderboardEntry{Name: m.Name, Score: m.Score})
	}
	return entries, nil
}

// standing returns nil when name has no entry in key.
func (e *Engine) standing(ctx context.Context, key, name string) (*models.LeaderboardStanding, error) {
	index, ok, err := e.store.RankAscending(ctx, key, name)
	if err != nil || !ok {
		return nil, err
	}
	score, ok, err := e.store.Score(ctx, key, name)
	if err != nil || !ok {
		return nil, err
	}
	total, err := e.store.Cardinality(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("size of %s: %w", key, err)
	}
	return &models.LeaderboardStanding{
		Name:  name,
		Score: score,
		Rank:  DisplayRank(total, index),
	}, nil
}

// DisplayRank converts an ascending 0-based index in a set of total members
// into a descending 1-based rank.
func DisplayRank(total, ascendingIndex int64) int64 {
	return max(1, total-ascendingIndex)
}
