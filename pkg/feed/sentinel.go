package feed

import "sync"

// Sentinel watches the visibility of one list item, normally the last one
// rendered, and calls onEnter when it becomes visible.
//
// The host reports visibility changes through Report. The callback runs once
// per not-visible to visible transition; an item that stays in view does not
// fire again until it has left the viewport or the watch was re-attached.
type Sentinel struct {
	mu       sync.Mutex
	key      int
	watching bool
	visible  bool
	onEnter  func()
}

// NewSentinel creates a disconnected sentinel.
func NewSentinel(onEnter func()) *Sentinel {
	return &Sentinel{onEnter: onEnter}
}

// Observe moves the watch to key. Observing the key that is already watched
// keeps its visibility state.
func (s *Sentinel) Observe(key int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watching && s.key == key {
		return
	}
	s.key = key
	s.watching = true
	s.visible = false
}

// Report records the visibility of key and fires the callback on a
// transition into view. Reports for any other key are ignored.
func (s *Sentinel) Report(key int, visible bool) bool {
	s.mu.Lock()
	if !s.watching || s.key != key {
		s.mu.Unlock()
		return false
	}
	entered := visible && !s.visible
	s.visible = visible
	s.mu.Unlock()

	if entered && s.onEnter != nil {
		s.onEnter()
	}
	return entered
}

// Disconnect tears down the watch.
func (s *Sentinel) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.watching = false
	s.visible = false
}

// Watching returns the watched key, if any.
func (s *Sentinel) Watching() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, s.watching
}
