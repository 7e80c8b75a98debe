package feed

import (
	"fmt"

	"github.com/Sternrassler/launchlist/pkg/launch"
)

// Order is the display order of the cached launches.
type Order string

const (
	// OrderOldestFirst keeps the order in which the API returned the launches.
	OrderOldestFirst Order = "oldest-first"

	// OrderNewestFirst reverses the arrival order.
	OrderNewestFirst Order = "newest-first"
)

// ParseOrder validates a configured display order. Empty means oldest-first.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", OrderOldestFirst:
		return OrderOldestFirst, nil
	case OrderNewestFirst:
		return OrderNewestFirst, nil
	default:
		return "", fmt.Errorf("unknown display order %q (want %s or %s)", s, OrderOldestFirst, OrderNewestFirst)
	}
}

// Store accumulates launches in arrival order, keyed by flight number.
// It is not safe for concurrent use; the Coordinator guards it.
type Store struct {
	items []launch.Launch
	seen  map[int]struct{}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{seen: make(map[int]struct{})}
}

// Reset replaces the contents with records and returns how many were kept.
func (s *Store) Reset(records []launch.Launch) int {
	s.items = s.items[:0]
	s.seen = make(map[int]struct{}, len(records))
	return s.Append(records)
}

// Append adds records whose flight number is not yet present and returns
// how many were added.
func (s *Store) Append(records []launch.Launch) int {
	added := 0
	for _, r := range records {
		if _, dup := s.seen[r.FlightNumber]; dup {
			continue
		}
		s.seen[r.FlightNumber] = struct{}{}
		s.items = append(s.items, r)
		added++
	}
	return added
}

// Len returns the number of cached launches.
func (s *Store) Len() int {
	return len(s.items)
}

// Contains reports whether a flight number is cached.
func (s *Store) Contains(flightNumber int) bool {
	_, ok := s.seen[flightNumber]
	return ok
}

// All returns a copy of the cached launches in the given order.
func (s *Store) All(order Order) []launch.Launch {
	out := make([]launch.Launch, len(s.items))
	if order == OrderNewestFirst {
		for i, r := range s.items {
			out[len(s.items)-1-i] = r
		}
		return out
	}
	copy(out, s.items)
	return out
}
