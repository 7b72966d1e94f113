package model

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// CommentEvent describes a change to one comment of a book. Comment may be
// nil when only the id is known, e.g. for deletions.
type CommentEvent struct {
	Type      EventType `json:"type"`
	BookID    string    `json:"bookId"`
	CommentID string    `json:"commentId"`
	Comment   *Comment  `json:"comment,omitempty"`
}
