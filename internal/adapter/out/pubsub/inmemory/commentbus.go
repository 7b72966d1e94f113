package inmemory

import (
	"context"
	"sync"

	"bookcomments/internal/model"
)

// CommentBus fans comment events out to the subscribers of a book. A
// subscriber that does not keep up misses events instead of blocking
// publishers.
type CommentBus struct {
	mu sync.RWMutex
	// bookID -> subscriber channels
	subs map[string]map[chan model.CommentEvent]struct{}
	buf  int
}

func New(buf int) *CommentBus {
	if buf <= 0 {
		buf = 64
	}
	return &CommentBus{
		subs: make(map[string]map[chan model.CommentEvent]struct{}),
		buf:  buf,
	}
}

// Subscribe returns a channel of the book's events. The channel is closed
// once ctx is done.
func (b *CommentBus) Subscribe(ctx context.Context, bookID string) (<-chan model.CommentEvent, error) {
	ch := make(chan model.CommentEvent, b.buf)

	b.mu.Lock()
	if b.subs[bookID] == nil {
		b.subs[bookID] = make(map[chan model.CommentEvent]struct{})
	}
	b.subs[bookID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if set := b.subs[bookID]; set != nil {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, bookID)
			}
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (b *CommentBus) Publish(_ context.Context, ev model.CommentEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[ev.BookID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// subscribers reports how many listeners the book currently has.
func (b *CommentBus) subscribers(bookID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[bookID])
}
