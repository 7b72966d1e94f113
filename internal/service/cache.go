package service

import (
	"sync"
	"time"

	"bookcomments/internal/model"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedForest struct {
	threads   []model.Thread
	expiresAt time.Time
}

// ThreadCache keeps built comment forests per book for a limited time.
// Every book has a generation that Invalidate bumps; a forest is stored only
// when it was built at the current generation.
type ThreadCache struct {
	mu   sync.Mutex
	lru  *lru.Cache[string, cachedForest]
	gens map[string]uint64
	ttl  time.Duration
	now  func() time.Time
}

func NewThreadCache(size int, ttl time.Duration) (*ThreadCache, error) {
	if size <= 0 {
		size = 500
	}
	l, err := lru.New[string, cachedForest](size)
	if err != nil {
		return nil, err
	}
	return &ThreadCache{lru: l, gens: make(map[string]uint64), ttl: ttl, now: time.Now}, nil
}

func (c *ThreadCache) Get(bookID string) ([]model.Thread, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.lru.Get(bookID)
	if !ok {
		return nil, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(bookID)
		return nil, false
	}
	return item.threads, true
}

// Generation returns the current generation of a book. Read it before
// loading the comments that Set will store.
func (c *ThreadCache) Generation(bookID string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[bookID]
}

// Set stores the forest unless the book was invalidated after gen was read.
func (c *ThreadCache) Set(bookID string, gen uint64, threads []model.Thread) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[bookID] != gen {
		return
	}
	c.lru.Add(bookID, cachedForest{threads: threads, expiresAt: c.now().Add(c.ttl)})
}

func (c *ThreadCache) Invalidate(bookID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[bookID]++
	c.lru.Remove(bookID)
}
