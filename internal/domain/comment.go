package domain

import "time"

// CommentEvent is a comment posted under a feed post. Top-level comments are
// order commands; replies are never processed.
type CommentEvent struct {
	ID        string    `json:"id" validate:"required"`
	ParentID  string    `json:"parent_id,omitempty"`
	AuthorID  string    `json:"author_id" validate:"required"`
	FeedID    string    `json:"feed_id" validate:"required"`
	Message   string    `json:"message" validate:"max=2000"`
	Timestamp time.Time `json:"timestamp"`
}

func (c CommentEvent) IsReply() bool {
	return c.ParentID != ""
}
