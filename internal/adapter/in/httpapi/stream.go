package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"time"

	"bookcomments/internal/model"
	"bookcomments/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// stream pushes the book's comment events to a websocket client until
// either side goes away.
func (h *Handler) stream(c *gin.Context) {
	bookID := c.Param("bookID")
	viewer := identityOf(c).UserID

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	log := logger.FromContext(ctx).With("book_id", bookID)

	// subscribe before upgrading so nothing published after the handshake is missed
	events, err := h.svc.Listen(ctx, bookID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	// the client only sends control frames; a read error means it is gone
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var ping <-chan time.Time
	if h.keepAlive > 0 {
		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return

		case <-ping:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}

		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(h.toEventDTO(ctx, ev, viewer)); err != nil {
				log.Debug("websocket write", "error", err)
				return
			}
		}
	}
}

// toEventDTO fills in the comment when the event arrived without one, which
// happens for oversized cross-instance notifications.
func (h *Handler) toEventDTO(ctx context.Context, ev model.CommentEvent, viewer string) EventDTO {
	out := EventDTO{Type: ev.Type, BookID: ev.BookID, CommentID: ev.CommentID}

	comment := ev.Comment
	if comment == nil && ev.Type != model.EventDeleted {
		if c, err := h.svc.GetComment(ctx, ev.BookID, ev.CommentID); err == nil {
			comment = &c
		}
	}
	if comment != nil {
		dto := toCommentDTO(*comment, viewer)
		out.Comment = &dto
	}
	return out
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(allowed, u.Scheme+"://"+u.Host)
	}
}
