package render

import "sync"

// ImageState tracks the mission patch of an expanded card.
type ImageState string

const (
	// ImageLoading is shown until the patch URL has been probed.
	ImageLoading ImageState = "loading"

	// ImageLoaded means the patch URL answered.
	ImageLoaded ImageState = "loaded"

	// ImageUnavailable means the patch URL could not be fetched.
	ImageUnavailable ImageState = "unavailable"
)

// ItemState holds the per-card UI flags.
type ItemState struct {
	Expanded bool
	Image    ImageState
}

// States holds ItemState per flight number for one browse session.
type States struct {
	mu     sync.Mutex
	m      map[int]ItemState
	probes map[int]bool
}

// NewStates returns an empty state table.
func NewStates() *States {
	return &States{
		m:      make(map[int]ItemState),
		probes: make(map[int]bool),
	}
}

// Get returns the state of a card; unknown cards are collapsed.
func (s *States) Get(flightNumber int) ItemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[flightNumber]
}

// Toggle flips the expanded flag and returns the new state. Expanding a card
// for the first time puts its image into the loading state.
func (s *States) Toggle(flightNumber int) ItemState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.m[flightNumber]
	st.Expanded = !st.Expanded
	if st.Expanded && st.Image == "" {
		st.Image = ImageLoading
	}
	s.m[flightNumber] = st
	return st
}

// SetImage records the outcome of an image probe.
func (s *States) SetImage(flightNumber int, image ImageState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.m[flightNumber]
	st.Image = image
	s.m[flightNumber] = st
}

// StartProbe reports whether the caller should probe the card's image. It
// returns true once per card, so collapsing and re-expanding a card while
// its probe runs does not start another.
func (s *States) StartProbe(flightNumber int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.probes[flightNumber] {
		return false
	}
	s.probes[flightNumber] = true
	return true
}
