package service

import (
	"fmt"
	"strings"

	"bookcomments/internal/model"
	"bookcomments/pkg/pagination"

	"golang.org/x/text/unicode/norm"
)

type CreateCommentRequest struct {
	BookID   string  `validate:"required"`
	ParentID *string `validate:"omitempty,min=1"`
	UserID   string  `validate:"required"`
	UserName string  `validate:"required"`
	Text     string  `validate:"required"`
}

type EditCommentRequest struct {
	BookID    string `validate:"required"`
	CommentID string `validate:"required"`
	UserID    string `validate:"required"`
	Text      string `validate:"required"`
}

type DeleteCommentRequest struct {
	BookID     string `validate:"required"`
	CommentID  string `validate:"required"`
	UserID     string `validate:"required"`
	Privileged bool
}

type VoteRequest struct {
	BookID    string     `validate:"required"`
	CommentID string     `validate:"required"`
	UserID    string     `validate:"required"`
	Vote      model.Vote `validate:"oneof=like dislike"`
}

// normalizeText trims surrounding whitespace and puts the text in NFC so that
// visually identical comments compare and measure the same.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func checkLength(text string, max int) error {
	if n := len([]rune(text)); max > 0 && n > max {
		return fmt.Errorf("%w: text is %d characters, limit is %d", ErrInvalidRequest, n, max)
	}
	return nil
}

func validatePagination(in pagination.PageRequest) error {
	beforeCursorProvided := in.BeforeCursor != nil && *in.BeforeCursor != ""
	afterCursorProvided := in.AfterCursor != nil && *in.AfterCursor != ""

	if beforeCursorProvided && afterCursorProvided {
		return fmt.Errorf("both cursors provided: %w", ErrInvalidRequest)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultThreadsLimit
	}
	return min(limit, MaxThreadsLimit)
}
