package models

import "time"

// UnknownAuthor is shown when a post or comment author cannot be resolved.
const UnknownAuthor = "Unknown"

// CommentView is the display projection of a comment.
type CommentView struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	UserID    uint      `json:"user_id"`
	Author    string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// PostView is the denormalized projection of a post used by the feed.
// Liked is specific to the viewer the view was built for.
type PostView struct {
	ID        uint          `json:"id"`
	UserID    uint          `json:"user_id"`
	Author    string        `json:"user"`
	Content   string        `json:"content"`
	Image     string        `json:"image,omitempty"`
	Likes     int64         `json:"likes"`
	Liked     bool          `json:"liked"`
	Comments  []CommentView `json:"comments"`
	CreatedAt time.Time     `json:"created_at"`
}

// LikeState is the result of a like toggle.
type LikeState struct {
	Likes int64 `json:"likes"`
	Liked bool  `json:"liked"`
}
