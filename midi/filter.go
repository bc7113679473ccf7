package midi

import "errors"

const (
	// NumChannels is the MIDI channel count
	NumChannels = 16
	// NumNotes is the MIDI note range
	NumNotes = 128
	// NumControllers is the controller number range
	NumControllers = 128
)

// ErrInvalidFilterUpdate is returned for out-of-range filter indices and
// wrong-length flag slices.
var ErrInvalidFilterUpdate = errors.New("midi: invalid filter update")

// Filter gates which messages a node accepts. A disabled filter passes
// everything. An enabled filter checks the channel first, then the flag
// matching the message type. NoteOff skips the per-note flags (but not
// the channel gate) so a note filtered out mid-sounding still releases.
type Filter struct {
	Enabled           bool   `json:"enabled"`
	Channels          []bool `json:"channels"`
	Notes             []bool `json:"notes"`
	Controllers       []bool `json:"controllers"`
	ProgramChange     bool   `json:"programChange"`
	ChannelAftertouch bool   `json:"channelAftertouch"`
	PitchWheel        bool   `json:"pitchWheel"`
}

// NewFilter returns a filter that passes everything, even when enabled.
func NewFilter() Filter {
	return Filter{
		Enabled:           true,
		Channels:          allTrue(NumChannels),
		Notes:             allTrue(NumNotes),
		Controllers:       allTrue(NumControllers),
		ProgramChange:     true,
		ChannelAftertouch: true,
		PitchWheel:        true,
	}
}

func allTrue(n int) []bool {
	flags := make([]bool, n)
	for i := range flags {
		flags[i] = true
	}
	return flags
}

// Passes reports whether msg clears the filter.
func (f *Filter) Passes(msg Message) bool {
	if !f.Enabled {
		return true
	}
	if int(msg.Channel) >= len(f.Channels) || !f.Channels[msg.Channel] {
		return false
	}
	switch msg.Type {
	case NoteOn, PolyAftertouch:
		return f.Notes[msg.Note]
	case NoteOff:
		return true
	case ControlChange:
		return f.Controllers[msg.Controller]
	case ProgramChange:
		return f.ProgramChange
	case ChannelAftertouch:
		return f.ChannelAftertouch
	case PitchWheel:
		return f.PitchWheel
	}
	return false
}

// Clone deep-copies the filter.
func (f *Filter) Clone() Filter {
	out := *f
	out.Channels = append([]bool(nil), f.Channels...)
	out.Notes = append([]bool(nil), f.Notes...)
	out.Controllers = append([]bool(nil), f.Controllers...)
	return out
}

// FilterUpdate is one typed mutation of a Filter.
type FilterUpdate interface {
	isFilterUpdate()
}

type (
	// FilterSetEnabled switches the whole filter on or off.
	FilterSetEnabled struct {
		Flag bool `json:"flag"`
	}
	// FilterSetChannel flips one channel flag.
	FilterSetChannel struct {
		Channel int  `json:"channel"`
		Flag    bool `json:"flag"`
	}
	// FilterSetChannels replaces all channel flags.
	FilterSetChannels struct {
		Flags []bool `json:"flags"`
	}
	// FilterSetNote flips one note flag.
	FilterSetNote struct {
		Note int  `json:"note"`
		Flag bool `json:"flag"`
	}
	// FilterSetNotes replaces all note flags.
	FilterSetNotes struct {
		Flags []bool `json:"flags"`
	}
	// FilterSetController flips one controller flag.
	FilterSetController struct {
		Controller int  `json:"controller"`
		Flag       bool `json:"flag"`
	}
	// FilterSetControllers replaces all controller flags.
	FilterSetControllers struct {
		Flags []bool `json:"flags"`
	}
	// FilterSetProgramChange flips the program change flag.
	FilterSetProgramChange struct {
		Flag bool `json:"flag"`
	}
	// FilterSetChannelAftertouch flips the channel aftertouch flag.
	FilterSetChannelAftertouch struct {
		Flag bool `json:"flag"`
	}
	// FilterSetPitchWheel flips the pitch wheel flag.
	FilterSetPitchWheel struct {
		Flag bool `json:"flag"`
	}
)

func (FilterSetEnabled) isFilterUpdate()           {}
func (FilterSetChannel) isFilterUpdate()           {}
func (FilterSetChannels) isFilterUpdate()          {}
func (FilterSetNote) isFilterUpdate()              {}
func (FilterSetNotes) isFilterUpdate()             {}
func (FilterSetController) isFilterUpdate()        {}
func (FilterSetControllers) isFilterUpdate()       {}
func (FilterSetProgramChange) isFilterUpdate()     {}
func (FilterSetChannelAftertouch) isFilterUpdate() {}
func (FilterSetPitchWheel) isFilterUpdate()        {}

// Apply mutates the filter according to one update request.
func (f *Filter) Apply(update FilterUpdate) error {
	switch u := update.(type) {
	case FilterSetEnabled:
		f.Enabled = u.Flag
	case FilterSetChannel:
		return setFlag(f.Channels, u.Channel, u.Flag)
	case FilterSetChannels:
		return setFlags(f.Channels, u.Flags)
	case FilterSetNote:
		return setFlag(f.Notes, u.Note, u.Flag)
	case FilterSetNotes:
		return setFlags(f.Notes, u.Flags)
	case FilterSetController:
		return setFlag(f.Controllers, u.Controller, u.Flag)
	case FilterSetControllers:
		return setFlags(f.Controllers, u.Flags)
	case FilterSetProgramChange:
		f.ProgramChange = u.Flag
	case FilterSetChannelAftertouch:
		f.ChannelAftertouch = u.Flag
	case FilterSetPitchWheel:
		f.PitchWheel = u.Flag
	default:
		return ErrInvalidFilterUpdate
	}
	return nil
}

func setFlag(flags []bool, index int, flag bool) error {
	if index < 0 || index >= len(flags) {
		return ErrInvalidFilterUpdate
	}
	flags[index] = flag
	return nil
}

func setFlags(flags []bool, replacement []bool) error {
	if len(replacement) != len(flags) {
		return ErrInvalidFilterUpdate
	}
	copy(flags, replacement)
	return nil
}
