// Package sequencer implements the beat scheduler: a grid of per-voice
// hit patterns walked by a tempo clock, emitting note events into the
// render graph.
package sequencer

// Rhythm is the grid shape: beats per cycle and divisions per beat.
type Rhythm struct {
	NumBeats uint8 `json:"num_beats"`
	NumDivs  uint8 `json:"num_divs"`
}

// DefaultRhythm is a plain 4/4 grid.
func DefaultRhythm() Rhythm {
	return Rhythm{NumBeats: 4, NumDivs: 4}
}

// NumSlots is the total pattern length in divisions.
func (r Rhythm) NumSlots() int {
	return int(r.NumBeats) * int(r.NumDivs)
}
