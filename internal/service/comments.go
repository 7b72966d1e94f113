package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"bookcomments/internal/model"
	"bookcomments/pkg/logger"
	"bookcomments/pkg/pagination"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	DefaultThreadsLimit = 50
	MaxThreadsLimit     = 250
	DefaultMaxLength    = 2000
)

type DeleteMode int

const (
	// DeleteOrphan removes only the comment; its replies surface as roots.
	DeleteOrphan DeleteMode = iota
	// DeleteCascade removes the comment and every reply below it.
	DeleteCascade
)

//go:generate mockgen -source=comments.go -destination=./comments_mock.go -package=service
type CommentStorage interface {
	CreateComment(ctx context.Context, c model.Comment) (model.Comment, error)
	GetCommentByID(ctx context.Context, bookID, commentID string) (model.Comment, error)
	GetCommentsByBook(ctx context.Context, bookID string) ([]model.Comment, error)
	// UpdateComment applies fn to the stored comment and saves the result
	// atomically. An error from fn aborts the update and is returned as is.
	UpdateComment(ctx context.Context, bookID, commentID string, fn func(model.Comment) (model.Comment, error)) (model.Comment, error)
	// DeleteComments returns the ids that were actually removed.
	DeleteComments(ctx context.Context, bookID string, commentIDs []string) ([]string, error)
}

type CommentBus interface {
	Subscribe(ctx context.Context, bookID string) (<-chan model.CommentEvent, error)
	Publish(ctx context.Context, ev model.CommentEvent) error
}

type Options struct {
	DeleteMode DeleteMode
	MaxLength  int
	Cache      *ThreadCache
}

type CommentService struct {
	commentStorage CommentStorage
	commentBus     CommentBus
	cache          *ThreadCache
	deleteMode     DeleteMode
	maxLength      int
	validate       *validator.Validate
	now            func() time.Time
	newID          func() string
}

func NewCommentService(commentStorage CommentStorage, commentBus CommentBus, opts Options) *CommentService {
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	return &CommentService{
		commentStorage: commentStorage,
		commentBus:     commentBus,
		cache:          opts.Cache,
		deleteMode:     opts.DeleteMode,
		maxLength:      opts.MaxLength,
		validate:       validator.New(),
		now:            func() time.Time { return time.Now().UTC() },
		newID:          uuid.NewString,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, req CreateCommentRequest) (model.Comment, error) {
	if err := requireUser(req.UserID); err != nil {
		return model.Comment{}, err
	}
	req.Text = normalizeText(req.Text)
	if err := s.validateRequest(req); err != nil {
		return model.Comment{}, err
	}
	if err := checkLength(req.Text, s.maxLength); err != nil {
		return model.Comment{}, err
	}

	if req.ParentID != nil {
		if _, err := s.commentStorage.GetCommentByID(ctx, req.BookID, *req.ParentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return model.Comment{}, fmt.Errorf("%w: parent comment %s not found", ErrInvalidRequest, *req.ParentID)
			}
			return model.Comment{}, err
		}
	}

	comment, err := s.commentStorage.CreateComment(ctx, model.Comment{
		ID:        s.newID(),
		BookID:    req.BookID,
		ParentID:  req.ParentID,
		UserID:    req.UserID,
		UserName:  req.UserName,
		Text:      req.Text,
		CreatedAt: s.now(),
	})
	if err != nil {
		return model.Comment{}, err
	}

	s.changed(ctx, model.EventCreated, comment)
	return comment, nil
}

func (s *CommentService) GetComment(ctx context.Context, bookID, commentID string) (model.Comment, error) {
	if bookID == "" || commentID == "" {
		return model.Comment{}, ErrInvalidRequest
	}
	return s.commentStorage.GetCommentByID(ctx, bookID, commentID)
}

func (s *CommentService) GetComments(ctx context.Context, bookID string) ([]model.Comment, error) {
	if bookID == "" {
		return nil, ErrInvalidRequest
	}
	return s.commentStorage.GetCommentsByBook(ctx, bookID)
}

// GetThreads returns one page of the book's discussion threads, newest first.
func (s *CommentService) GetThreads(ctx context.Context, bookID string, in pagination.PageRequest) (pagination.Page[model.Thread], error) {
	var page pagination.Page[model.Thread]

	if bookID == "" {
		return page, fmt.Errorf("bookID is required: %w", ErrInvalidRequest)
	}
	if err := validatePagination(in); err != nil {
		return page, err
	}

	threads, ok := s.cache.Get(bookID)
	if !ok {
		gen := s.cache.Generation(bookID)
		comments, err := s.commentStorage.GetCommentsByBook(ctx, bookID)
		if err != nil {
			return page, err
		}
		threads = model.BuildTree(comments)
		s.cache.Set(bookID, gen, threads)
	}

	page, err := pagination.Keyset(threads, threadCursor, in, clampLimit(in.Limit))
	if err != nil {
		return page, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return page, nil
}

func (s *CommentService) EditComment(ctx context.Context, req EditCommentRequest) (model.Comment, error) {
	if err := requireUser(req.UserID); err != nil {
		return model.Comment{}, err
	}
	req.Text = normalizeText(req.Text)
	if err := s.validateRequest(req); err != nil {
		return model.Comment{}, err
	}
	if err := checkLength(req.Text, s.maxLength); err != nil {
		return model.Comment{}, err
	}

	comment, err := s.commentStorage.UpdateComment(ctx, req.BookID, req.CommentID, func(c model.Comment) (model.Comment, error) {
		if c.UserID != req.UserID {
			return c, fmt.Errorf("%w: only the author can edit a comment", ErrForbidden)
		}
		return c.Edit(req.Text, s.now()), nil
	})
	if err != nil {
		return model.Comment{}, err
	}

	s.changed(ctx, model.EventUpdated, comment)
	return comment, nil
}

// DeleteComment removes a comment and, in cascade mode, its replies. It
// returns the ids that were removed.
func (s *CommentService) DeleteComment(ctx context.Context, req DeleteCommentRequest) ([]string, error) {
	if err := requireUser(req.UserID); err != nil {
		return nil, err
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	comment, err := s.commentStorage.GetCommentByID(ctx, req.BookID, req.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != req.UserID && !req.Privileged {
		return nil, fmt.Errorf("%w: only the author or a moderator can delete a comment", ErrForbidden)
	}

	ids := []string{comment.ID}
	if s.deleteMode == DeleteCascade {
		all, err := s.commentStorage.GetCommentsByBook(ctx, req.BookID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, model.Descendants(all, comment.ID)...)
	}

	removed, err := s.commentStorage.DeleteComments(ctx, req.BookID, ids)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	if len(removed) != len(ids) {
		log.Warn("some comments were already gone", "book_id", req.BookID, "comment_id", comment.ID,
			"requested", len(ids), "removed", len(removed))
	}

	s.cache.Invalidate(req.BookID)
	if len(removed) == 0 {
		return nil, fmt.Errorf("%w: comment %s", ErrNotFound, comment.ID)
	}
	log.Info("comments deleted", "book_id", req.BookID, "comment_id", comment.ID, "count", len(removed))

	ids = slices.DeleteFunc(ids, func(id string) bool { return !slices.Contains(removed, id) })
	for _, id := range ids {
		s.publish(ctx, model.CommentEvent{Type: model.EventDeleted, BookID: req.BookID, CommentID: id})
	}
	return ids, nil
}

func (s *CommentService) Vote(ctx context.Context, req VoteRequest) (model.Comment, error) {
	if err := requireUser(req.UserID); err != nil {
		return model.Comment{}, err
	}
	if err := s.validateRequest(req); err != nil {
		return model.Comment{}, err
	}

	comment, err := s.commentStorage.UpdateComment(ctx, req.BookID, req.CommentID, func(c model.Comment) (model.Comment, error) {
		return c.ApplyVote(req.UserID, req.Vote), nil
	})
	if err != nil {
		return model.Comment{}, err
	}

	s.changed(ctx, model.EventUpdated, comment)
	return comment, nil
}

func (s *CommentService) Listen(ctx context.Context, bookID string) (<-chan model.CommentEvent, error) {
	if s.commentBus == nil {
		return nil, fmt.Errorf("no bus configured")
	}
	if bookID == "" {
		return nil, ErrInvalidRequest
	}
	return s.commentBus.Subscribe(ctx, bookID)
}

// Invalidate drops the cached threads of a book. It is used when a change
// arrives from another instance.
func (s *CommentService) Invalidate(bookID string) {
	s.cache.Invalidate(bookID)
}

func (s *CommentService) changed(ctx context.Context, typ model.EventType, c model.Comment) {
	s.cache.Invalidate(c.BookID)
	s.publish(ctx, model.CommentEvent{Type: typ, BookID: c.BookID, CommentID: c.ID, Comment: &c})
}

func (s *CommentService) publish(ctx context.Context, ev model.CommentEvent) {
	if s.commentBus == nil {
		return
	}
	if err := s.commentBus.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Warn("publish comment event", "type", ev.Type, "comment_id", ev.CommentID, "error", err)
	}
}

func (s *CommentService) validateRequest(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func requireUser(userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: anonymous users cannot change comments", ErrUnauthorized)
	}
	return nil
}

func threadCursor(t model.Thread) pagination.Cursor {
	return pagination.Cursor{CreatedAt: t.Comment.CreatedAt, ID: t.Comment.ID}
}
