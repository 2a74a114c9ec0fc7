package models

// AnonymousUserID is the identity every unauthenticated viewer shares. All
// anonymous viewers of a post read and write the same name, scores and
// session document.
const AnonymousUserID = "anonymous"

// Player binds a platform user id to the display name it claimed on a post.
type Player struct {
	PostID      string `json:"post_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// UserOrAnonymous returns userID, or AnonymousUserID when it is empty.
func UserOrAnonymous(userID string) string {
	if userID == "" {
		return AnonymousUserID
	}
	return userID
}
