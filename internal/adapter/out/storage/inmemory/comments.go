package inmemory

import (
	"context"
	"fmt"
	"sync"

	"bookcomments/internal/adapter/out/storage"
	"bookcomments/internal/model"
	"bookcomments/internal/service"
)

// CommentStorage keeps every book's comments in process memory. Values are
// copied on the way in and out so callers never share slices with the store.
type CommentStorage struct {
	mu sync.RWMutex

	byBook map[string]map[string]model.Comment
}

func NewCommentStorage() *CommentStorage {
	return &CommentStorage{
		byBook: make(map[string]map[string]model.Comment),
	}
}

func (s *CommentStorage) CreateComment(_ context.Context, c model.Comment) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.byBook[c.BookID]
	if !ok {
		book = make(map[string]model.Comment)
		s.byBook[c.BookID] = book
	}
	if _, exists := book[c.ID]; exists {
		return model.Comment{}, fmt.Errorf("%w: %s", storage.ErrDuplicateID, c.ID)
	}

	book[c.ID] = c.Clone()
	return c.Clone(), nil
}

func (s *CommentStorage) GetCommentByID(_ context.Context, bookID, commentID string) (model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byBook[bookID][commentID]
	if !ok {
		return model.Comment{}, service.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *CommentStorage) GetCommentsByBook(_ context.Context, bookID string) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book := s.byBook[bookID]
	out := make([]model.Comment, 0, len(book))
	for _, c := range book {
		out = append(out, c.Clone())
	}
	storage.SortByCreated(out)
	return out, nil
}

func (s *CommentStorage) UpdateComment(
	_ context.Context,
	bookID, commentID string,
	fn func(model.Comment) (model.Comment, error),
) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byBook[bookID][commentID]
	if !ok {
		return model.Comment{}, service.ErrNotFound
	}

	next, err := fn(cur.Clone())
	if err != nil {
		return model.Comment{}, err
	}
	// identity fields are not updatable
	next.ID, next.BookID, next.CreatedAt = cur.ID, cur.BookID, cur.CreatedAt

	s.byBook[bookID][commentID] = next.Clone()
	return next, nil
}

func (s *CommentStorage) DeleteComments(_ context.Context, bookID string, commentIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.byBook[bookID]
	var removed []string
	for _, id := range commentIDs {
		if _, ok := book[id]; ok {
			delete(book, id)
			removed = append(removed, id)
		}
	}
	if len(book) == 0 {
		delete(s.byBook, bookID)
	}
	return removed, nil
}
