package sequencer

import "time"

// Clock walks the rhythm grid in real time. Tick fires at most one
// division per call; the fire time accumulates by whole periods rather
// than resetting to now, so jitter in the polling loop does not drift
// the tempo.
type Clock struct {
	rhythm   Rhythm
	tempoBPM float32
	lastFire time.Duration
	beat     uint8
	div      uint8
}

func NewClock(rhythm Rhythm, tempoBPM float32) *Clock {
	return &Clock{rhythm: rhythm, tempoBPM: tempoBPM}
}

// Period is the time between divisions.
func (c *Clock) Period() time.Duration {
	return time.Duration(60 / (float64(c.tempoBPM) * float64(c.rhythm.NumDivs)) * float64(time.Second))
}

// Position reports the indices of the division that fires next.
func (c *Clock) Position() (beat, div uint8) {
	return c.beat, c.div
}

func (c *Clock) SetTempo(bpm float32) {
	c.tempoBPM = bpm
}

// SetRhythm installs a new grid shape and clamps the position into it.
func (c *Clock) SetRhythm(rhythm Rhythm) {
	c.rhythm = rhythm
	if c.beat >= rhythm.NumBeats {
		c.beat = 0
	}
	if c.div >= rhythm.NumDivs {
		c.div = 0
	}
}

// Reset rewinds so that the next Tick fires immediately and the one
// after it lands on beat 0, division 0.
func (c *Clock) Reset(now time.Duration) {
	c.lastFire = now - c.Period()
	c.beat = c.rhythm.NumBeats - 1
	c.div = c.rhythm.NumDivs - 1
}

// Tick fires the current division if its time has come. It returns the
// fired indices, or ok=false when it is not time yet.
func (c *Clock) Tick(now time.Duration) (beat, div uint8, ok bool) {
	period := c.Period()
	if now-c.lastFire < period {
		return 0, 0, false
	}
	beat, div = c.beat, c.div
	c.lastFire += period
	c.advance()
	return beat, div, true
}

func (c *Clock) advance() {
	c.div = (c.div + 1) % c.rhythm.NumDivs
	if c.div == 0 {
		c.beat = (c.beat + 1) % c.rhythm.NumBeats
	}
}
