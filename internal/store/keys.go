package store

import "fmt"

// Keyspace holds the keys of one post. Every key the backend touches is
// derived from it, so posts never share state.
type Keyspace struct {
	PostID string
	base   string
}

// Keys returns the keyspace of a post.
func Keys(postID string) Keyspace {
	return Keyspace{
		PostID: postID,
		base:   fmt.Sprintf("leaderboard:%s", postID),
	}
}

// Leaderboard is the sorted set of one metric ("money", "depth").
func (k Keyspace) Leaderboard(metric string) string {
	return fmt.Sprintf("%s:%s", k.base, metric)
}

// NameOwner maps a normalized display name to the user id that claimed it.
func (k Keyspace) NameOwner(normalized string) string {
	return fmt.Sprintf("%s:name:%s", k.base, normalized)
}

// UserName maps a user id to its registered display name.
func (k Keyspace) UserName(userID string) string {
	return fmt.Sprintf("%s:user:%s", k.base, userID)
}

// Session holds the saved game-state document of a user.
func (k Keyspace) Session(userID string) string {
	return fmt.Sprintf("gameState:%s:%s", k.PostID, userID)
}
