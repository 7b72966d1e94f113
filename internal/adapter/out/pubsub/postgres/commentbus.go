package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookcomments/internal/adapter/out/pubsub/inmemory"
	"bookcomments/internal/model"
	"bookcomments/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	Channel = "book_comments"

	// NOTIFY payloads must stay below 8000 bytes.
	maxPayload = 7900
)

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CommentBus shares comment events between every instance connected to the
// same database. Events are sent with pg_notify and received by a LISTEN
// loop, which hands them to the local in-memory bus, including the events
// this instance sent itself.
type CommentBus struct {
	db    Execer
	dsn   string
	local *inmemory.CommentBus
}

func New(db Execer, dsn string, local *inmemory.CommentBus) *CommentBus {
	return &CommentBus{db: db, dsn: dsn, local: local}
}

func (b *CommentBus) Subscribe(ctx context.Context, bookID string) (<-chan model.CommentEvent, error) {
	return b.local.Subscribe(ctx, bookID)
}

func (b *CommentBus) Publish(ctx context.Context, ev model.CommentEvent) error {
	payload, err := encodePayload(ev)
	if err != nil {
		return err
	}
	if _, err := b.db.Exec(ctx, "SELECT pg_notify($1, $2)", Channel, payload); err != nil {
		return fmt.Errorf("exec pg_notify: %w", err)
	}
	return nil
}

// Run listens for notifications until ctx is done. Each received event is
// delivered to local subscribers and then passed to onEvent, if set.
func (b *CommentBus) Run(ctx context.Context, onEvent func(model.CommentEvent)) error {
	log := logger.FromContext(ctx).With("component", "pg_listener")

	listener := pq.NewListener(b.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("listener event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(Channel); err != nil {
		return fmt.Errorf("listen on %s: %w", Channel, err)
	}
	log.Info("listening for comment events", "channel", Channel)

	ticker := time.NewTicker(90 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				log.Warn("listener ping", "error", err)
			}

		case n := <-listener.Notify:
			// nil after a reconnect; anything sent meanwhile is lost
			if n == nil {
				log.Warn("listener reconnected, events may have been missed")
				continue
			}

			ev, err := decodePayload(n.Extra)
			if err != nil {
				log.Warn("decode notification", "error", err)
				continue
			}
			_ = b.local.Publish(ctx, ev)
			if onEvent != nil {
				onEvent(ev)
			}
		}
	}
}

// encodePayload drops the comment body from events that would not fit into
// a notification; receivers still get the type and ids.
func encodePayload(ev model.CommentEvent) (string, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	if len(raw) > maxPayload {
		ev.Comment = nil
		if raw, err = json.Marshal(ev); err != nil {
			return "", fmt.Errorf("encode event: %w", err)
		}
	}
	return string(raw), nil
}

func decodePayload(payload string) (model.CommentEvent, error) {
	var ev model.CommentEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	if ev.BookID == "" || ev.CommentID == "" {
		return ev, fmt.Errorf("decode event: missing book or comment id")
	}
	return ev, nil
}
