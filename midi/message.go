package midi

import "math"

// MessageType identifies the kind of a decoded MIDI message
type MessageType uint8

const (
	NoteOff MessageType = iota
	NoteOn
	PolyAftertouch
	ControlChange
	ProgramChange
	ChannelAftertouch
	PitchWheel
)

// Status byte commands (high nibble)
const (
	statusNoteOff           = 0x80
	statusNoteOn            = 0x90
	statusPolyAftertouch    = 0xA0
	statusControlChange     = 0xB0
	statusProgramChange     = 0xC0
	statusChannelAftertouch = 0xD0
	statusPitchWheel        = 0xE0
)

// Well-known controller numbers
const (
	CCBankSelectMSB uint8 = 0
	CCAllSoundsOff  uint8 = 120
	CCAllNotesOff   uint8 = 123
)

// WheelCenter is the pitch wheel rest position (14-bit midpoint)
const WheelCenter uint16 = 8192

// Message is a decoded MIDI channel message. Only the fields relevant
// to Type are meaningful; the rest stay zero.
type Message struct {
	Type       MessageType `json:"type"`
	Channel    uint8       `json:"channel"`
	Note       uint8       `json:"note,omitempty"`       // NoteOn, NoteOff, PolyAftertouch
	Velocity   uint8       `json:"velocity,omitempty"`   // NoteOn, NoteOff
	Pressure   uint8       `json:"pressure,omitempty"`   // PolyAftertouch, ChannelAftertouch
	Controller uint8       `json:"controller,omitempty"` // ControlChange
	Value      uint8       `json:"value,omitempty"`      // ControlChange
	Program    uint8       `json:"program,omitempty"`    // ProgramChange
	Wheel      uint16      `json:"wheel,omitempty"`      // PitchWheel, 0..16383
}

// Command returns the status command byte for the message type.
func (m Message) Command() uint8 {
	switch m.Type {
	case NoteOff:
		return statusNoteOff
	case NoteOn:
		return statusNoteOn
	case PolyAftertouch:
		return statusPolyAftertouch
	case ControlChange:
		return statusControlChange
	case ProgramChange:
		return statusProgramChange
	case ChannelAftertouch:
		return statusChannelAftertouch
	case PitchWheel:
		return statusPitchWheel
	}
	return 0
}

// RoutedMessage is a synthetic message addressed to a single graph slot,
// used by the sequencer to trigger instrument nodes.
type RoutedMessage struct {
	NodeID  int     `json:"nodeId"`
	Message Message `json:"message"`
}

// Decode parses a 1-3 byte MIDI channel message. It returns false for
// anything it does not understand: empty or truncated buffers, unknown
// status commands, and data bytes outside the 7-bit range. A NoteOn with
// velocity 0 decodes as a NoteOff.
func Decode(bytes []byte) (Message, bool) {
	if len(bytes) == 0 {
		return Message{}, false
	}
	cmd := bytes[0] & 0xF0
	channel := bytes[0] & 0x0F
	if !dataBytesValid(bytes[1:]) {
		return Message{}, false
	}

	msg := Message{Channel: channel}
	switch cmd {
	case statusNoteOff:
		if len(bytes) < 3 {
			return Message{}, false
		}
		msg.Type = NoteOff
		msg.Note = bytes[1]
		msg.Velocity = bytes[2]
	case statusNoteOn:
		if len(bytes) < 3 {
			return Message{}, false
		}
		// NoteOn with velocity 0 is a note-off by convention
		if bytes[2] == 0 {
			msg.Type = NoteOff
		} else {
			msg.Type = NoteOn
		}
		msg.Note = bytes[1]
		msg.Velocity = bytes[2]
	case statusPolyAftertouch:
		if len(bytes) < 3 {
			return Message{}, false
		}
		msg.Type = PolyAftertouch
		msg.Note = bytes[1]
		msg.Pressure = bytes[2]
	case statusControlChange:
		if len(bytes) < 3 {
			return Message{}, false
		}
		msg.Type = ControlChange
		msg.Controller = bytes[1]
		msg.Value = bytes[2]
	case statusProgramChange:
		if len(bytes) < 2 {
			return Message{}, false
		}
		msg.Type = ProgramChange
		msg.Program = bytes[1]
	case statusChannelAftertouch:
		if len(bytes) < 2 {
			return Message{}, false
		}
		msg.Type = ChannelAftertouch
		msg.Pressure = bytes[1]
	case statusPitchWheel:
		if len(bytes) < 3 {
			return Message{}, false
		}
		msg.Type = PitchWheel
		msg.Wheel = uint16(bytes[1]&0x7F) | uint16(bytes[2]&0x7F)<<7
	default:
		return Message{}, false
	}
	return msg, true
}

func dataBytesValid(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// WheelSigned converts a raw pitch wheel value to its signed offset
// from center.
func WheelSigned(value uint16) int16 {
	return int16(value) - int16(WheelCenter)
}

// WheelFreqCoef returns the frequency multiplier for a pitch wheel value
// given the bend range in semitones (2.0 if rangeSemitones is 0).
func WheelFreqCoef(value uint16, rangeSemitones float32) float32 {
	if rangeSemitones == 0 {
		rangeSemitones = 2.0
	}
	wheel := float32(WheelSigned(value)) / float32(WheelCenter)
	return float32(math.Pow(2, float64(wheel*rangeSemitones/12.0)))
}

// NoteFrequency returns the equal-temperament frequency of a MIDI note
// (A4 = note 69 = 440 Hz).
func NoteFrequency(note uint8) float32 {
	return 440.0 * float32(math.Pow(2, (float64(note)-69.0)/12.0))
}
