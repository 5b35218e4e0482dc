// Package magnifier holds the zoom factor and the cursor-driven viewport math.
// It performs no I/O; callers push the computed Transform to the OS.
package magnifier

import "math"

// State owns the current zoom factor. The factor is never below 1.0.
// State is confined to the dispatch loop and is not safe for concurrent use.
type State struct {
	factor float32
}

// New returns an unmagnified state.
func New() *State {
	return &State{factor: 1.0}
}

// Factor returns the current zoom factor.
func (s *State) Factor() float32 { return s.factor }

// Set replaces the factor. Values are validated at config compile time.
func (s *State) Set(factor float32) {
	s.factor = factor
}

// Add shifts the factor by delta, flooring at 1.0. The factor stays finite
// even when repeated adds overflow float32.
func (s *State) Add(delta float32) {
	next := s.factor + delta
	switch {
	case !(next >= 1.0):
		next = 1.0
	case math.IsInf(float64(next), 1):
		next = math.MaxFloat32
	}
	s.factor = next
}

// Toggle flips between 1.0 and factor. It does not remember earlier factors.
func (s *State) Toggle(factor float32) {
	if s.factor == 1.0 {
		s.factor = factor
	} else {
		s.factor = 1.0
	}
}
