package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Baalavignesh/DiggerMan/internal/store"
)

var (
	_ store.Store             = (*Store)(nil)
	_ store.ConditionalSetter = (*Store)(nil)
	_ store.MaxUpserter       = (*Store)(nil)
)

// RangeTop returns up to count members of a sorted set.
func (s *Store) RangeTop(ctx context.Context, key string, count int64, dir store.Direction) ([]store.Member, error) {
	if count <= 0 {
		return []store.Member{}, nil
	}

	var (
		entries []redis.Z
		err     error
	)
	if dir == store.Descending {
		// Highest scores first
		entries, err = s.client.ZRevRangeWithScores(ctx, key, 0, count-1).Result()
	} else {
		entries, err = s.client.ZRangeWithScores(ctx, key, 0, count-1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to range %s: %w", key, err)
	}

	members := make([]store.Member, 0, len(entries))
	for _, z := range entries {
		members = append(members, store.Member{
			Name:  fmt.Sprint(z.Member),
			Score: z.Score,
		})
	}
	return members, nil
}

// RankAscending returns the 0-based ascending position of member (ZRANK).
func (s *Store) RankAscending(ctx context.Context, key, member string) (int64, bool, error) {
	rank, err := s.client.ZRank(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get rank in %s: %w", key, err)
	}
	return rank, true, nil
}

// Score returns the score of member (ZSCORE).
func (s *Store) Score(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := s.client.ZScore(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get score in %s: %w", key, err)
	}
	return score, true, nil
}

// Cardinality returns the number of members in a sorted set (ZCARD).
func (s *Store) Cardinality(ctx context.Context, key string) (int64, error) {
	count, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get size of %s: %w", key, err)
	}
	return count, nil
}

// Upsert sets the score of member unconditionally (ZADD).
func (s *Store) Upsert(ctx context.Context, key, member string, score float64) error {
	err := s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

// UpsertMax raises the score of member to score if it is higher, creating the
// member when missing (ZADD GT), and returns the stored score.
func (s *Store) UpsertMax(ctx context.Context, key, member string, score float64) (float64, error) {
	var current *redis.FloatCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddGT(ctx, key, redis.Z{Score: score, Member: member})
		current = pipe.ZScore(ctx, key, member)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to ratchet %s: %w", key, err)
	}
	return current.Val(), nil
}
