package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/Baalavignesh/DiggerMan/internal/models"
	"github.com/Baalavignesh/DiggerMan/internal/store"
)

// readThenWrite hides the atomic ratchet of the wrapped store so the
// read-then-write path is exercised.
type readThenWrite struct {
	store.SortedSet
}

func backends() map[string]func() store.SortedSet {
	return map[string]func() store.SortedSet{
		"atomic":          func() store.SortedSet { return store.NewMemory() },
		"read-then-write": func() store.SortedSet { return readThenWrite{store.NewMemory()} },
	}
}

func stored(t *testing.T, s store.SortedSet, postID string, metric models.Metric, name string) (float64, bool) {
	t.Helper()
	score, ok, err := s.Score(context.Background(), store.Keys(postID).Leaderboard(string(metric)), name)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	return score, ok
}

func TestEnsureScoreKeepsMaximum(t *testing.T) {
	sequences := [][]float64{
		{5, 3, 9, 1},
		{9, 9, 9},
		{1, 2, 3, 4},
		{4, 3, 2, 1},
		{0},
		{7, 0, 7, 6},
	}

	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			for _, seq := range sequences {
				s := newStore()
				l := New(s)
				want := math.Inf(-1)
				for _, v := range seq {
					if _, err := l.EnsureScore(context.Background(), "p1", models.MetricMoney, "dan", v); err != nil {
						t.Fatalf("ensure score: %v", err)
					}
					want = math.Max(want, v)
				}
				got, ok := stored(t, s, "p1", models.MetricMoney, "dan")
				if !ok || got != want {
					t.Fatalf("sequence %v: stored %v (ok=%v), want %v", seq, got, ok, want)
				}
			}
		})
	}
}

func TestEnsureScoreReturnsStoredScore(t *testing.T) {
	l := New(store.NewMemory())
	ctx := context.Background()

	got, err := l.EnsureScore(ctx, "p1", models.MetricDepth, "dan", 40)
	if err != nil || got != 40 {
		t.Fatalf("first = %v %v", got, err)
	}
	got, _ = l.EnsureScore(ctx, "p1", models.MetricDepth, "dan", 12)
	if got != 40 {
		t.Fatalf("after lower candidate = %v, want 40", got)
	}
}

func TestSeedLeavesExistingScores(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			l := New(s)
			ctx := context.Background()

			if err := l.Seed(ctx, "p1", "dan"); err != nil {
				t.Fatalf("seed: %v", err)
			}
			for _, metric := range models.Metrics {
				if got, ok := stored(t, s, "p1", metric, "dan"); !ok || got != 0 {
					t.Fatalf("%s after seed = %v (ok=%v)", metric, got, ok)
				}
			}

			if _, err := l.EnsureScore(ctx, "p1", models.MetricMoney, "dan", 500); err != nil {
				t.Fatalf("ensure: %v", err)
			}
			if err := l.Seed(ctx, "p1", "dan"); err != nil {
				t.Fatalf("reseed: %v", err)
			}
			if got, _ := stored(t, s, "p1", models.MetricMoney, "dan"); got != 500 {
				t.Fatalf("reseed reset money to %v", got)
			}
		})
	}
}

func TestRecordFloorsAndRatchetsIndependently(t *testing.T) {
	s := store.NewMemory()
	l := New(s)
	ctx := context.Background()

	if err := l.Record(ctx, "p1", "Dan", 1234.9, 56.2); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got, _ := stored(t, s, "p1", models.MetricMoney, "Dan"); got != 1234 {
		t.Fatalf("money = %v, want 1234", got)
	}
	if got, _ := stored(t, s, "p1", models.MetricDepth, "Dan"); got != 56 {
		t.Fatalf("depth = %v, want 56", got)
	}

	if err := l.Record(ctx, "p1", "Dan", 1000, 80); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got, _ := stored(t, s, "p1", models.MetricMoney, "Dan"); got != 1234 {
		t.Fatalf("money regressed to %v", got)
	}
	if got, _ := stored(t, s, "p1", models.MetricDepth, "Dan"); got != 80 {
		t.Fatalf("depth = %v, want 80", got)
	}
}

func TestScoreFromCounter(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{1234.9, 1234},
		{0.99, 0},
		{-5, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{42, 42},
	}
	for _, tc := range cases {
		if got := ScoreFromCounter(tc.in); got != tc.want {
			t.Fatalf("ScoreFromCounter(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
