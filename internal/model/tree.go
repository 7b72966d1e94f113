package model

import (
	"cmp"
	"slices"
)

// Thread is a comment together with its nested replies.
type Thread struct {
	Comment Comment
	Replies []Thread
}

// Size returns the number of comments in the thread, the root included.
func (t Thread) Size() int {
	n := 1
	for _, r := range t.Replies {
		n += r.Size()
	}
	return n
}

// BuildTree arranges one book's comments into threads. A comment whose parent
// is not part of comments becomes a root. Replies are ordered oldest first,
// roots newest first.
func BuildTree(comments []Comment) []Thread {
	present := make(map[string]struct{}, len(comments))
	for _, c := range comments {
		present[c.ID] = struct{}{}
	}

	var roots []Comment
	children := make(map[string][]Comment)
	for _, c := range comments {
		if c.IsRoot() {
			roots = append(roots, c)
			continue
		}
		if _, ok := present[*c.ParentID]; !ok || *c.ParentID == c.ID {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}
	for id := range children {
		slices.SortStableFunc(children[id], CompareCreated)
	}

	// comments whose parent chain loops never reach a root; the oldest
	// member of each loop is promoted so no comment is dropped
	seen := make(map[string]bool, len(comments))
	for _, r := range roots {
		mark(r.ID, children, seen)
	}
	if len(seen) < len(comments) {
		rest := slices.Clone(comments)
		slices.SortStableFunc(rest, CompareCreated)
		for _, c := range rest {
			if !seen[c.ID] {
				roots = append(roots, c)
				mark(c.ID, children, seen)
			}
		}
	}

	slices.SortStableFunc(roots, func(a, b Comment) int { return CompareCreated(b, a) })

	out := make([]Thread, 0, len(roots))
	built := make(map[string]bool, len(comments))
	for _, r := range roots {
		out = append(out, buildThread(r, children, built))
	}
	return out
}

func buildThread(c Comment, children map[string][]Comment, built map[string]bool) Thread {
	built[c.ID] = true
	t := Thread{Comment: c}
	for _, k := range children[c.ID] {
		if built[k.ID] {
			continue
		}
		t.Replies = append(t.Replies, buildThread(k, children, built))
	}
	return t
}

func mark(id string, children map[string][]Comment, seen map[string]bool) {
	if seen[id] {
		return
	}
	seen[id] = true
	for _, k := range children[id] {
		mark(k.ID, children, seen)
	}
}

// Descendants returns the ids of every comment below id, nearest first.
func Descendants(comments []Comment, id string) []string {
	children := make(map[string][]string)
	for _, c := range comments {
		if !c.IsRoot() {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	var out []string
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, k := range children[cur] {
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
			queue = append(queue, k)
		}
	}
	return out
}

// CompareCreated orders comments by creation time, then by id.
func CompareCreated(a, b Comment) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
