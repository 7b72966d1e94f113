package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"bookcomments/internal/model"
	"bookcomments/internal/service"
	"bookcomments/pkg/pagination"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var errInvalidLimit = fmt.Errorf("%w: limit must be a non-negative integer", service.ErrInvalidRequest)

type CommentService interface {
	CreateComment(ctx context.Context, req service.CreateCommentRequest) (model.Comment, error)
	GetComment(ctx context.Context, bookID, commentID string) (model.Comment, error)
	GetComments(ctx context.Context, bookID string) ([]model.Comment, error)
	GetThreads(ctx context.Context, bookID string, in pagination.PageRequest) (pagination.Page[model.Thread], error)
	EditComment(ctx context.Context, req service.EditCommentRequest) (model.Comment, error)
	DeleteComment(ctx context.Context, req service.DeleteCommentRequest) ([]string, error)
	Vote(ctx context.Context, req service.VoteRequest) (model.Comment, error)
	Listen(ctx context.Context, bookID string) (<-chan model.CommentEvent, error)
}

type Options struct {
	// KeepAlive is the websocket ping interval; zero disables pings.
	KeepAlive time.Duration
	// AllowedOrigins limits websocket upgrades; empty or "*" allows any.
	AllowedOrigins []string
}

type Handler struct {
	svc       CommentService
	upgrader  websocket.Upgrader
	keepAlive time.Duration
}

func NewHandler(svc CommentService, opts Options) *Handler {
	return &Handler{
		svc:       svc,
		keepAlive: opts.KeepAlive,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
	}
}

// NewRouter mounts the comment API on a fresh gin engine.
func NewRouter(h *Handler, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log), LoadIdentity())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	books := r.Group("/api/books/:bookID")
	{
		books.GET("/threads", h.getThreads)
		books.GET("/comments", h.getComments)
		books.GET("/comments/:commentID", h.getComment)
		books.GET("/stream", h.stream)
	}

	authed := books.Group("")
	authed.Use(AuthRequired())
	{
		authed.POST("/comments", h.createComment)
		authed.PATCH("/comments/:commentID", h.editComment)
		authed.DELETE("/comments/:commentID", h.deleteComment)
		authed.POST("/comments/:commentID/:vote", h.vote)
	}

	return r
}

func (h *Handler) getThreads(c *gin.Context) {
	in, err := toPageRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	page, err := h.svc.GetThreads(c.Request.Context(), c.Param("bookID"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toThreadPage(page, identityOf(c).UserID))
}

func (h *Handler) getComments(c *gin.Context) {
	comments, err := h.svc.GetComments(c.Request.Context(), c.Param("bookID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCommentDTOs(comments, identityOf(c).UserID))
}

func (h *Handler) getComment(c *gin.Context) {
	comment, err := h.svc.GetComment(c.Request.Context(), c.Param("bookID"), c.Param("commentID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCommentDTO(comment, identityOf(c).UserID))
}

func (h *Handler) createComment(c *gin.Context) {
	var body createCommentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}

	id := identityOf(c)
	comment, err := h.svc.CreateComment(c.Request.Context(), service.CreateCommentRequest{
		BookID:   c.Param("bookID"),
		ParentID: body.ParentID,
		UserID:   id.UserID,
		UserName: id.UserName,
		Text:     body.Text,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCommentDTO(comment, id.UserID))
}

func (h *Handler) editComment(c *gin.Context) {
	var body editCommentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}

	id := identityOf(c)
	comment, err := h.svc.EditComment(c.Request.Context(), service.EditCommentRequest{
		BookID:    c.Param("bookID"),
		CommentID: c.Param("commentID"),
		UserID:    id.UserID,
		Text:      body.Text,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCommentDTO(comment, id.UserID))
}

func (h *Handler) deleteComment(c *gin.Context) {
	id := identityOf(c)
	_, err := h.svc.DeleteComment(c.Request.Context(), service.DeleteCommentRequest{
		BookID:     c.Param("bookID"),
		CommentID:  c.Param("commentID"),
		UserID:     id.UserID,
		Privileged: id.Privileged(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// vote handles POST .../comments/:commentID/like and .../dislike.
func (h *Handler) vote(c *gin.Context) {
	v, err := model.ParseVote(c.Param("vote"))
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}

	id := identityOf(c)
	comment, err := h.svc.Vote(c.Request.Context(), service.VoteRequest{
		BookID:    c.Param("bookID"),
		CommentID: c.Param("commentID"),
		UserID:    id.UserID,
		Vote:      v,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCommentDTO(comment, id.UserID))
}
