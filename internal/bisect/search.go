package bisect

import "errors"

// ErrStaleAnswer is returned by RecordAnswer when the answered frame does
// not match the outstanding question. Stale answers leave the search
// untouched so duplicate delivery of the same answer is harmless.
var ErrStaleAnswer = errors.New("bisect: answer does not match pending frame")

// Search is one user's binary search over the frames of a video, looking
// for the first frame where the launch is visible. It is a pure in-memory
// state machine: no I/O, no clock, no goroutines. Callers are responsible
// for serializing access (the session controller runs one goroutine per
// user, so a Search is only ever touched from a single goroutine).
//
// Bounds convention: lower is the highest frame confirmed to be before the
// launch (starts at -1, meaning "no frame confirmed yet"); upper is the
// lowest frame confirmed to be at or after the launch (starts at the last
// frame, which by assumption shows the launch). The answer always lies in
// (lower, upper]. The search is finished when the bracket has shrunk to a
// single candidate, i.e. upper-lower <= 1, and the answer is upper.
type Search struct {
	lower   int
	upper   int
	pending int
	asked   bool
}

// New creates a search over totalFrames frames, indexed [0, totalFrames-1].
// totalFrames must be >= 1. A video with fewer than two frames is a
// degenerate search: it is finished immediately and the only frame is the
// result, no questions asked.
func New(totalFrames int) *Search {
	if totalFrames < 1 {
		panic("bisect: totalFrames must be >= 1")
	}
	return &Search{
		lower: -1,
		upper: totalFrames - 1,
	}
}

// NextFrame returns the frame to ask the user about next, and marks it as
// the outstanding question. Returns ok=false when the search is finished
// and there is nothing left to ask. If a question is already outstanding,
// the same frame is returned again without touching any state, so a
// redelivered prompt never advances the search.
func (s *Search) NextFrame() (frame int, ok bool) {
	if s.asked {
		return s.pending, true
	}
	if s.Finished() {
		return 0, false
	}
	mid := (s.lower + s.upper) / 2
	s.pending = mid
	s.asked = true
	return mid, true
}

// RecordAnswer applies the user's verdict for frame: launched=true means
// the launch is visible at that frame. The frame must match the
// outstanding question; anything else is a stale answer and is rejected
// with ErrStaleAnswer, bounds unchanged.
func (s *Search) RecordAnswer(frame int, launched bool) error {
	if !s.asked || frame != s.pending {
		return ErrStaleAnswer
	}
	if launched {
		if frame < s.upper {
			s.upper = frame
		}
	} else {
		if frame > s.lower {
			s.lower = frame
		}
	}
	s.asked = false
	return nil
}

// Finished reports whether the bracket has converged.
func (s *Search) Finished() bool {
	return s.upper-s.lower <= 1
}

// Result returns the first frame confirmed to show the launch. Only
// meaningful once Finished reports true.
func (s *Search) Result() int {
	return s.upper
}

// Bounds returns the current bracket (lower, upper].
func (s *Search) Bounds() (lower, upper int) {
	return s.lower, s.upper
}

// Pending returns the outstanding question, if any.
func (s *Search) Pending() (frame int, ok bool) {
	return s.pending, s.asked
}
