package httpapi

import (
	"strconv"
	"time"

	"bookcomments/internal/model"
	"bookcomments/pkg/markup"
	"bookcomments/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type CommentDTO struct {
	ID        string     `json:"id"`
	BookID    string     `json:"bookId"`
	ParentID  *string    `json:"parentId,omitempty"`
	UserID    string     `json:"userId"`
	UserName  string     `json:"userName"`
	Text      string     `json:"text"`
	TextHTML  string     `json:"textHtml"`
	CreatedAt time.Time  `json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
	Likes     int        `json:"likes"`
	Dislikes  int        `json:"dislikes"`
	MyVote    model.Vote `json:"myVote,omitempty"`
}

type ThreadDTO struct {
	CommentDTO
	Replies []ThreadDTO `json:"replies"`
}

type PageDTO[T any] struct {
	Items           []T     `json:"items"`
	Count           int     `json:"count"`
	StartCursor     *string `json:"startCursor,omitempty"`
	EndCursor       *string `json:"endCursor,omitempty"`
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
}

type EventDTO struct {
	Type      model.EventType `json:"type"`
	BookID    string          `json:"bookId"`
	CommentID string          `json:"commentId"`
	Comment   *CommentDTO     `json:"comment,omitempty"`
}

type createCommentBody struct {
	Text     string  `json:"text"`
	ParentID *string `json:"parentId"`
}

type editCommentBody struct {
	Text string `json:"text"`
}

func toCommentDTO(c model.Comment, viewer string) CommentDTO {
	return CommentDTO{
		ID:        c.ID,
		BookID:    c.BookID,
		ParentID:  c.ParentID,
		UserID:    c.UserID,
		UserName:  c.UserName,
		Text:      c.Text,
		TextHTML:  markup.Render(c.Text),
		CreatedAt: c.CreatedAt,
		EditedAt:  c.EditedAt,
		Likes:     len(c.Likes),
		Dislikes:  len(c.Dislikes),
		MyVote:    c.VoteOf(viewer),
	}
}

func toCommentDTOs(comments []model.Comment, viewer string) []CommentDTO {
	out := make([]CommentDTO, 0, len(comments))
	for _, c := range comments {
		out = append(out, toCommentDTO(c, viewer))
	}
	return out
}

func toThreadDTO(t model.Thread, viewer string) ThreadDTO {
	out := ThreadDTO{
		CommentDTO: toCommentDTO(t.Comment, viewer),
		Replies:    make([]ThreadDTO, 0, len(t.Replies)),
	}
	for _, r := range t.Replies {
		out.Replies = append(out.Replies, toThreadDTO(r, viewer))
	}
	return out
}

func toThreadPage(p pagination.Page[model.Thread], viewer string) PageDTO[ThreadDTO] {
	items := make([]ThreadDTO, 0, len(p.Items))
	for _, t := range p.Items {
		items = append(items, toThreadDTO(t, viewer))
	}
	return PageDTO[ThreadDTO]{
		Items:           items,
		Count:           p.Count,
		StartCursor:     p.StartCursor,
		EndCursor:       p.EndCursor,
		HasNextPage:     p.HasNextPage,
		HasPreviousPage: p.HasPreviousPage,
	}
}

func toPageRequest(c *gin.Context) (pagination.PageRequest, error) {
	var req pagination.PageRequest

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return req, errInvalidLimit
		}
		req.Limit = limit
	}
	if v := c.Query("before"); v != "" {
		req.BeforeCursor = &v
	}
	if v := c.Query("after"); v != "" {
		req.AfterCursor = &v
	}
	return req, nil
}
