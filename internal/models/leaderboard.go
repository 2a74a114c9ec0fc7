package models

// Metric names one of the per-post leaderboards.
type Metric string

const (
	MetricMoney Metric = "money"
	MetricDepth Metric = "depth"
)

// Metrics lists every leaderboard a post keeps.
var Metrics = []Metric{MetricMoney, MetricDepth}

// LeaderboardEntry is one row of a top-N list. Scores are whole numbers and
// may exceed the int64 range.
type LeaderboardEntry struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// LeaderboardStanding is a player's own position on one leaderboard.
// Rank is 1-based, 1 being the highest score.
type LeaderboardStanding struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Rank  int64   `json:"rank"`
}

// SelfStandings holds the requesting player's standings. A metric the player
// has no entry in is left nil and omitted from JSON.
type SelfStandings struct {
	Money *LeaderboardStanding `json:"money,omitempty"`
	Depth *LeaderboardStanding `json:"depth,omitempty"`
}

// LeaderboardSnapshot is a point-in-time view of both leaderboards of a post.
type LeaderboardSnapshot struct {
	Money []LeaderboardEntry `json:"money"`
	Depth []LeaderboardEntry `json:"depth"`
	Self  *SelfStandings     `json:"self,omitempty"`
}

// Top returns the top list of metric.
func (s LeaderboardSnapshot) Top(metric Metric) []LeaderboardEntry {
	if metric == MetricDepth {
		return s.Depth
	}
	return s.Money
}
