package service

import (
	"context"
	"fmt"
	"sync"
)

const linkCursorCounter = "link_cursor"

// CounterStore persists named integers.
type CounterStore interface {
	Advance(ctx context.Context, name string, next func(int) int) (int, error)
}

// LinkAllocator hands out test links round robin. The cursor is global and persisted.
type LinkAllocator struct {
	links    []string
	counters CounterStore
	mu       sync.Mutex
}

func NewLinkAllocator(links []string, counters CounterStore) (*LinkAllocator, error) {
	if len(links) == 0 {
		return nil, fmt.Errorf("at least one test link is required")
	}
	cp := make([]string, len(links))
	copy(cp, links)
	return &LinkAllocator{links: cp, counters: counters}, nil
}

// Next returns links[cursor] and moves the cursor to (cursor+1) mod len(links).
func (a *LinkAllocator) Next(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.links)
	cursor, err := a.counters.Advance(ctx, linkCursorCounter, func(v int) int {
		return (normalize(v, n) + 1) % n
	})
	if err != nil {
		return "", fmt.Errorf("advance link cursor: %w", err)
	}
	return a.links[normalize(cursor, n)], nil
}

// normalize keeps a cursor stored for a longer list inside the current one.
func normalize(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
