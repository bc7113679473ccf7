package sequencer

import "errors"

var (
	ErrInvalidVoiceIndex = errors.New("sequencer: invalid voice index")
	ErrInvalidSlotIndex  = errors.New("sequencer: invalid slot index")
)

// Voice is one row of the pattern grid: a target node, the note it
// plays, and a slot per grid division. Target nil means the row is
// silent.
type Voice struct {
	Name     string `json:"name"`
	Target   *int   `json:"target"`
	Channel  uint8  `json:"channel"`
	Note     uint8  `json:"note"`
	Velocity uint8  `json:"velocity"`
	Slots    []bool `json:"slots"`
}

// Voices is the pattern grid. All rows share one slot count.
type Voices struct {
	NumSlots int     `json:"num_slots"`
	Rows     []Voice `json:"voices"`
}

// AddVoice appends an empty row. New rows default to the percussion
// channel and full velocity.
func (v *Voices) AddVoice() {
	v.Rows = append(v.Rows, Voice{
		Channel:  9,
		Velocity: 127,
		Slots:    make([]bool, v.NumSlots),
	})
}

func (v *Voices) RemoveVoice(index int) error {
	if index < 0 || index >= len(v.Rows) {
		return ErrInvalidVoiceIndex
	}
	v.Rows = append(v.Rows[:index], v.Rows[index+1:]...)
	return nil
}

func (v *Voices) Clear() {
	v.Rows = nil
}

func (v *Voices) SetName(index int, name string) error {
	if index < 0 || index >= len(v.Rows) {
		return ErrInvalidVoiceIndex
	}
	v.Rows[index].Name = name
	return nil
}

// SetTarget points the row at a graph node, or silences it with nil.
func (v *Voices) SetTarget(index int, target *int) error {
	if index < 0 || index >= len(v.Rows) {
		return ErrInvalidVoiceIndex
	}
	v.Rows[index].Target = target
	return nil
}

func (v *Voices) SetNote(index int, note uint8) error {
	if index < 0 || index >= len(v.Rows) {
		return ErrInvalidVoiceIndex
	}
	v.Rows[index].Note = note
	return nil
}

func (v *Voices) SetVelocity(index int, velocity uint8) error {
	if index < 0 || index >= len(v.Rows) {
		return ErrInvalidVoiceIndex
	}
	v.Rows[index].Velocity = velocity
	return nil
}

func (v *Voices) SetChannel(index int, channel uint8) error {
	if index < 0 || index >= len(v.Rows) {
		return ErrInvalidVoiceIndex
	}
	v.Rows[index].Channel = channel
	return nil
}

func (v *Voices) SetSlot(voiceIndex, slotIndex int, enabled bool) error {
	if voiceIndex < 0 || voiceIndex >= len(v.Rows) {
		return ErrInvalidVoiceIndex
	}
	slots := v.Rows[voiceIndex].Slots
	if slotIndex < 0 || slotIndex >= len(slots) {
		return ErrInvalidSlotIndex
	}
	slots[slotIndex] = enabled
	return nil
}

// SilenceAll clears every row's target.
func (v *Voices) SilenceAll() {
	for i := range v.Rows {
		v.Rows[i].Target = nil
	}
}

// RetargetAfterRemove fixes row targets after the graph removed node
// removedID: rows aimed at it go silent, rows aimed past it shift down.
func (v *Voices) RetargetAfterRemove(removedID int) {
	for i := range v.Rows {
		target := v.Rows[i].Target
		if target == nil {
			continue
		}
		switch {
		case *target == removedID:
			v.Rows[i].Target = nil
		case *target > removedID:
			shifted := *target - 1
			v.Rows[i].Target = &shifted
		}
	}
}

// SetNumSlots resizes every row's pattern. Growing by an integer factor
// interleaves rests so hits keep their musical position; shrinking by an
// integer divisor keeps every factor-th slot. Other resizes append or
// cut at the end and lose the tail.
func (v *Voices) SetNumSlots(numSlots int) {
	prev := v.NumSlots
	v.NumSlots = numSlots
	switch {
	case prev == 0 || numSlots == 0:
		v.resize(numSlots)
	case numSlots > prev && numSlots%prev == 0:
		v.interleave(numSlots / prev)
	case numSlots > prev:
		v.resize(numSlots)
	case numSlots < prev && prev%numSlots == 0:
		v.decimate(prev / numSlots)
	case numSlots < prev:
		v.resize(numSlots)
	}
}

func (v *Voices) resize(size int) {
	for i := range v.Rows {
		slots := v.Rows[i].Slots
		for len(slots) < size {
			slots = append(slots, false)
		}
		v.Rows[i].Slots = slots[:size]
	}
}

func (v *Voices) interleave(factor int) {
	for i := range v.Rows {
		slots := v.Rows[i].Slots
		interleaved := make([]bool, 0, len(slots)*factor)
		for _, hit := range slots {
			interleaved = append(interleaved, hit)
			for j := 1; j < factor; j++ {
				interleaved = append(interleaved, false)
			}
		}
		v.Rows[i].Slots = interleaved
	}
}

func (v *Voices) decimate(factor int) {
	for i := range v.Rows {
		slots := v.Rows[i].Slots
		decimated := make([]bool, 0, len(slots)/factor)
		for j := 0; j < len(slots); j += factor {
			decimated = append(decimated, slots[j])
		}
		v.Rows[i].Slots = decimated
	}
}
