package pagination

import (
	"errors"
	"fmt"
	"sort"
)

var ErrBothCursors = errors.New("both cursors provided")

type PageRequest struct {
	BeforeCursor *string
	AfterCursor  *string
	Limit        int
}

type Page[T any] struct {
	Count           int
	Items           []T
	StartCursor     *string
	EndCursor       *string
	HasNextPage     bool
	HasPreviousPage bool
}

// Keyset pages through items that are already sorted newest first by key.
// "after" moves towards older items, "before" towards newer ones.
func Keyset[T any](items []T, key func(T) Cursor, in PageRequest, limit int) (Page[T], error) {
	var page Page[T]

	before, err := Decode(in.BeforeCursor)
	if err != nil {
		return page, fmt.Errorf("decoding before-cursor: %w", err)
	}
	after, err := Decode(in.AfterCursor)
	if err != nil {
		return page, fmt.Errorf("decoding after-cursor: %w", err)
	}
	if before != nil && after != nil {
		return page, ErrBothCursors
	}

	start, end := 0, min(limit, len(items))
	switch {
	case after != nil:
		start = sort.Search(len(items), func(i int) bool {
			return Compare(key(items[i]), *after) < 0
		})
		end = min(start+limit, len(items))
	case before != nil:
		end = sort.Search(len(items), func(i int) bool {
			return Compare(key(items[i]), *before) <= 0
		})
		start = max(0, end-limit)
	}

	if start >= end {
		page.HasPreviousPage = start > 0
		return page, nil
	}

	page.Items = items[start:end]
	page.Count = len(page.Items)
	page.HasNextPage = end < len(items)
	page.HasPreviousPage = start > 0
	page.StartCursor = key(page.Items[0]).Encode()
	page.EndCursor = key(page.Items[page.Count-1]).Encode()
	return page, nil
}
