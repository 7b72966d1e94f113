package storage

import (
	"errors"
	"slices"

	"bookcomments/internal/model"
)

var (
	ErrBuildingQuery = errors.New("building query")
	ErrDuplicateID   = errors.New("comment id already exists")
)

// SortByCreated orders comments oldest first, the order every backend
// returns a book's collection in.
func SortByCreated(comments []model.Comment) {
	slices.SortFunc(comments, model.CompareCreated)
}
