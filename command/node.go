package command

import "github.com/Arri0/AMI/midi"

// NodeRequest is a control-plane request addressed to one node in the
// render graph. Nodes answer requests they understand and deny the rest.
type NodeRequest interface {
	nodeRequest()
}

// SetName renames a node.
type SetName struct {
	Name string `json:"name"`
}

// SetEnabled toggles whether a node renders and receives events.
type SetEnabled struct {
	Enabled bool `json:"enabled"`
}

// LoadFile asks a node to (re)load its backing asset from disk.
// Loading happens off the audio path; the node reports completion
// through its periodic update.
type LoadFile struct {
	Path string `json:"path"`
}

// SetGain sets a node's output gain multiplier.
type SetGain struct {
	Gain float32 `json:"gain"`
}

// SetTransposition sets a node's own transposition in semitones.
type SetTransposition struct {
	Semitones int `json:"semitones"`
}

// SetIgnoreGlobalTransposition exempts a node from the graph-wide
// transposition offset. Percussion nodes typically set this.
type SetIgnoreGlobalTransposition struct {
	Ignore bool `json:"ignore"`
}

// SetVelocityMap selects how incoming velocities are shaped.
type SetVelocityMap struct {
	Kind  string  `json:"kind"`
	Scale float32 `json:"scale"`
}

// SetBankAndProgram selects an instrument preset directly.
type SetBankAndProgram struct {
	Bank    int `json:"bank"`
	Program int `json:"program"`
}

// UpdateFilter applies one mutation to a node's MIDI filter.
type UpdateFilter struct {
	Update midi.FilterUpdate
}

// SetUserPreset recalls one of a node's quick-recall slots, applying
// the enabled state stored there.
type SetUserPreset struct {
	Slot int `json:"slot"`
}

// SetUserPresetEnabled stores the enabled state a quick-recall slot
// applies when recalled.
type SetUserPresetEnabled struct {
	Slot    int  `json:"slot"`
	Enabled bool `json:"enabled"`
}

// Voice-container requests. Node kinds that host sequencer voices
// handle these; synthesis engines answer Denied.

// AddVoice appends a voice row with default settings.
type AddVoice struct{}

// RemoveVoice deletes one voice row.
type RemoveVoice struct {
	Index int `json:"index"`
}

// ClearVoices deletes every voice row.
type ClearVoices struct{}

// SetVoiceName renames a voice row.
type SetVoiceName struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// SetVoiceTarget points a voice at a graph slot, or nowhere when nil.
type SetVoiceTarget struct {
	Index  int  `json:"index"`
	Target *int `json:"target"`
}

// SetVoiceNote sets the note a voice plays on each hit.
type SetVoiceNote struct {
	Index int   `json:"index"`
	Note  uint8 `json:"note"`
}

// SetVoiceVelocity sets the velocity a voice plays with.
type SetVoiceVelocity struct {
	Index    int   `json:"index"`
	Velocity uint8 `json:"velocity"`
}

// SetVoiceChannel sets the MIDI channel a voice emits on.
type SetVoiceChannel struct {
	Index   int   `json:"index"`
	Channel uint8 `json:"channel"`
}

// SetSlot toggles one step cell of a voice's pattern.
type SetSlot struct {
	Voice   int  `json:"voice"`
	Slot    int  `json:"slot"`
	Enabled bool `json:"enabled"`
}

func (SetName) nodeRequest()                      {}
func (SetEnabled) nodeRequest()                   {}
func (LoadFile) nodeRequest()                     {}
func (SetGain) nodeRequest()                      {}
func (SetTransposition) nodeRequest()             {}
func (SetIgnoreGlobalTransposition) nodeRequest() {}
func (SetVelocityMap) nodeRequest()               {}
func (SetBankAndProgram) nodeRequest()            {}
func (UpdateFilter) nodeRequest()                 {}
func (SetUserPreset) nodeRequest()                {}
func (SetUserPresetEnabled) nodeRequest()         {}
func (AddVoice) nodeRequest()                     {}
func (RemoveVoice) nodeRequest()                  {}
func (ClearVoices) nodeRequest()                  {}
func (SetVoiceName) nodeRequest()                 {}
func (SetVoiceTarget) nodeRequest()               {}
func (SetVoiceNote) nodeRequest()                 {}
func (SetVoiceVelocity) nodeRequest()             {}
func (SetVoiceChannel) nodeRequest()              {}
func (SetSlot) nodeRequest()                      {}
