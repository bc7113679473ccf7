package sequencer

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Arri0/AMI/command"
	"github.com/Arri0/AMI/midi"
)

// MachineRequest is one mutation of the scheduler state.
type MachineRequest interface {
	machineRequest()
}

type (
	SetEnabled struct {
		Enabled bool `json:"enabled"`
	}
	SetRhythm struct {
		Rhythm Rhythm `json:"rhythm"`
	}
	SetTempo struct {
		BPM float32 `json:"bpm"`
	}
	// Reset rewinds the clock to the top of the pattern.
	Reset struct{}

	AddVoice    struct{}
	RemoveVoice struct {
		Index int `json:"index"`
	}
	ClearVoices  struct{}
	SetVoiceName struct {
		Index int    `json:"index"`
		Name  string `json:"name"`
	}
	// SetVoiceTarget aims a voice at a graph node; nil silences it.
	SetVoiceTarget struct {
		Index  int  `json:"index"`
		Target *int `json:"target"`
	}
	SetVoiceNote struct {
		Index int   `json:"index"`
		Note  uint8 `json:"note"`
	}
	SetVoiceVelocity struct {
		Index    int   `json:"index"`
		Velocity uint8 `json:"velocity"`
	}
	SetVoiceChannel struct {
		Index   int   `json:"index"`
		Channel uint8 `json:"channel"`
	}
	SetSlot struct {
		Voice   int  `json:"voice"`
		Slot    int  `json:"slot"`
		Enabled bool `json:"enabled"`
	}
	// RetargetAfterRemove reconciles voice targets with a node removal
	// in the render graph.
	RetargetAfterRemove struct {
		RemovedID int `json:"removed_id"`
	}
	// LoadPattern replaces voices, rhythm, and tempo from a beat file.
	LoadPattern struct {
		Path string `json:"path"`
	}
	SavePattern struct {
		Path string `json:"path"`
	}
)

func (SetEnabled) machineRequest()          {}
func (SetRhythm) machineRequest()           {}
func (SetTempo) machineRequest()            {}
func (Reset) machineRequest()               {}
func (AddVoice) machineRequest()            {}
func (RemoveVoice) machineRequest()         {}
func (ClearVoices) machineRequest()         {}
func (SetVoiceName) machineRequest()        {}
func (SetVoiceTarget) machineRequest()      {}
func (SetVoiceNote) machineRequest()        {}
func (SetVoiceVelocity) machineRequest()    {}
func (SetVoiceChannel) machineRequest()     {}
func (SetSlot) machineRequest()             {}
func (RetargetAfterRemove) machineRequest() {}
func (LoadPattern) machineRequest()         {}
func (SavePattern) machineRequest()         {}

// Request pairs a machine request with its reply channel. The machine
// answers every request exactly once.
type Request struct {
	Kind  MachineRequest
	Reply chan<- command.Result
}

const defaultTempoBPM = 90

// pollInterval caps the scheduler's sleep so requests stay responsive at
// slow tempos.
const pollInterval = 10 * time.Millisecond

// Machine is the beat scheduler. It owns the pattern grid and the tempo
// clock, drains its request queue before every tick, and emits hits as
// routed messages into the render graph. All state is confined to the
// Run goroutine; Tick is exported for tests.
type Machine struct {
	enabled  bool
	voices   Voices
	rhythm   Rhythm
	tempoBPM float32
	clock    *Clock
	requests chan Request
	routed   chan<- midi.RoutedMessage
	log      *zap.Logger
}

func NewMachine(routed chan<- midi.RoutedMessage, requestBuffer int, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	rhythm := DefaultRhythm()
	m := &Machine{
		enabled:  true,
		rhythm:   rhythm,
		tempoBPM: defaultTempoBPM,
		clock:    NewClock(rhythm, defaultTempoBPM),
		requests: make(chan Request, requestBuffer),
		routed:   routed,
		log:      log,
	}
	m.voices.SetNumSlots(rhythm.NumSlots())
	return m
}

// Requests is the submission queue for machine mutations.
func (m *Machine) Requests() chan<- Request {
	return m.requests
}

// Run ticks the machine until the context ends.
func (m *Machine) Run(ctx context.Context) {
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		m.Tick(time.Since(start))
		sleep := m.clock.Period()
		if sleep > pollInterval {
			sleep = pollInterval
		}
		time.Sleep(sleep)
	}
}

// Tick drains pending requests, then fires the current division if its
// time has come.
func (m *Machine) Tick(now time.Duration) {
	m.drainRequests(now)
	if !m.enabled {
		return
	}
	beat, div, ok := m.clock.Tick(now)
	if !ok {
		return
	}
	m.fire(beat, div)
}

// fire emits a hit for every voice with the slot set: a NoteOn followed
// immediately by its velocity-0 NoteOff.
func (m *Machine) fire(beat, div uint8) {
	slot := int(beat)*int(m.rhythm.NumDivs) + int(div)
	for _, voice := range m.voices.Rows {
		if voice.Target == nil || slot >= len(voice.Slots) || !voice.Slots[slot] {
			continue
		}
		m.send(midi.RoutedMessage{
			NodeID: *voice.Target,
			Message: midi.Message{
				Type:     midi.NoteOn,
				Channel:  voice.Channel,
				Note:     voice.Note,
				Velocity: voice.Velocity,
			},
		})
		m.send(midi.RoutedMessage{
			NodeID: *voice.Target,
			Message: midi.Message{
				Type:    midi.NoteOff,
				Channel: voice.Channel,
				Note:    voice.Note,
			},
		})
	}
}

func (m *Machine) send(msg midi.RoutedMessage) {
	select {
	case m.routed <- msg:
	default:
		m.log.Warn("dropping scheduler hit, graph queue full", zap.Int("node", msg.NodeID))
	}
}

func (m *Machine) drainRequests(now time.Duration) {
	for {
		select {
		case req := <-m.requests:
			result := m.processRequest(req.Kind, now)
			if req.Reply != nil {
				select {
				case req.Reply <- result:
				default:
				}
			}
		default:
			return
		}
	}
}

func (m *Machine) processRequest(kind MachineRequest, now time.Duration) command.Result {
	switch req := kind.(type) {
	case SetEnabled:
		m.enabled = req.Enabled
		if m.enabled {
			m.reset(now)
		}
		return command.UpdateFields("enabled", m.enabled)
	case SetRhythm:
		if req.Rhythm.NumBeats == 0 || req.Rhythm.NumDivs == 0 {
			return command.Fail()
		}
		m.rhythm = req.Rhythm
		m.clock.SetRhythm(req.Rhythm)
		m.voices.SetNumSlots(req.Rhythm.NumSlots())
		return command.UpdateFields("rhythm", m.rhythm, "voices", m.voices)
	case SetTempo:
		if req.BPM <= 0 {
			return command.Fail()
		}
		m.tempoBPM = req.BPM
		m.clock.SetTempo(req.BPM)
		return command.UpdateFields("tempo_bpm", m.tempoBPM)
	case Reset:
		return m.reset(now)
	case AddVoice:
		m.voices.AddVoice()
		return command.UpdateFields("voices", m.voices)
	case RemoveVoice:
		if err := m.voices.RemoveVoice(req.Index); err != nil {
			return command.Fail()
		}
		return command.UpdateFields("voices", m.voices)
	case ClearVoices:
		m.voices.Clear()
		return command.UpdateFields("voices", m.voices)
	case SetVoiceName:
		if err := m.voices.SetName(req.Index, req.Name); err != nil {
			return command.Fail()
		}
		return command.UpdateFields("voices", m.voices)
	case SetVoiceTarget:
		if err := m.voices.SetTarget(req.Index, req.Target); err != nil {
			return command.Fail()
		}
		return command.UpdateFields("voices", m.voices)
	case SetVoiceNote:
		if err := m.voices.SetNote(req.Index, req.Note); err != nil {
			return command.Fail()
		}
		return command.UpdateFields("voices", m.voices)
	case SetVoiceVelocity:
		if err := m.voices.SetVelocity(req.Index, req.Velocity); err != nil {
			return command.Fail()
		}
		return command.UpdateFields("voices", m.voices)
	case SetVoiceChannel:
		if err := m.voices.SetChannel(req.Index, req.Channel); err != nil {
			return command.Fail()
		}
		return command.UpdateFields("voices", m.voices)
	case SetSlot:
		if err := m.voices.SetSlot(req.Voice, req.Slot, req.Enabled); err != nil {
			return command.Fail()
		}
		return command.UpdateFields("voices", m.voices)
	case RetargetAfterRemove:
		m.voices.RetargetAfterRemove(req.RemovedID)
		return command.UpdateFields("voices", m.voices)
	case LoadPattern:
		return m.loadPattern(req.Path, now)
	case SavePattern:
		return m.savePattern(req.Path)
	}
	return command.Deny()
}

func (m *Machine) reset(now time.Duration) command.Result {
	m.clock.Reset(now)
	beat, div := m.clock.Position()
	return command.UpdateFields("current_beat", beat, "current_div", div)
}

// pattern is the beat-file shape: the musical content without the
// enabled flag or clock position.
type pattern struct {
	Voices   Voices  `json:"voices"`
	Rhythm   Rhythm  `json:"rhythm"`
	TempoBPM float32 `json:"tempo_bpm"`
}

func (m *Machine) loadPattern(path string, now time.Duration) command.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		m.log.Warn("could not read beat file", zap.String("path", path), zap.Error(err))
		return command.Fail()
	}
	var p pattern
	if err := json.Unmarshal(data, &p); err != nil {
		m.log.Warn("could not parse beat file", zap.String("path", path), zap.Error(err))
		return command.Fail()
	}
	if p.Rhythm.NumBeats == 0 || p.Rhythm.NumDivs == 0 || p.TempoBPM <= 0 {
		return command.Fail()
	}
	m.voices = p.Voices
	m.rhythm = p.Rhythm
	m.tempoBPM = p.TempoBPM
	m.clock.SetRhythm(p.Rhythm)
	m.clock.SetTempo(p.TempoBPM)
	m.voices.SetNumSlots(p.Rhythm.NumSlots())
	m.reset(now)
	return command.UpdateFields("rhythm", m.rhythm, "voices", m.voices, "tempo_bpm", m.tempoBPM)
}

func (m *Machine) savePattern(path string) command.Result {
	data, err := json.MarshalIndent(pattern{
		Voices:   m.voices,
		Rhythm:   m.rhythm,
		TempoBPM: m.tempoBPM,
	}, "", "  ")
	if err != nil {
		return command.Fail()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.log.Warn("could not write beat file", zap.String("path", path), zap.Error(err))
		return command.Fail()
	}
	return command.Ok()
}

// persistedMachine is the snapshot shape. The clock position is saved
// for observers but never restored.
type persistedMachine struct {
	Enabled     *bool    `json:"enabled,omitempty"`
	Voices      *Voices  `json:"voices,omitempty"`
	Rhythm      *Rhythm  `json:"rhythm,omitempty"`
	TempoBPM    *float32 `json:"tempo_bpm,omitempty"`
	CurrentBeat uint8    `json:"current_beat"`
	CurrentDiv  uint8    `json:"current_div"`
}

func (m *Machine) Serialize() (json.RawMessage, error) {
	beat, div := m.clock.Position()
	return json.Marshal(persistedMachine{
		Enabled:     &m.enabled,
		Voices:      &m.voices,
		Rhythm:      &m.rhythm,
		TempoBPM:    &m.tempoBPM,
		CurrentBeat: beat,
		CurrentDiv:  div,
	})
}

func (m *Machine) Deserialize(raw json.RawMessage) error {
	var persisted persistedMachine
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return err
	}
	if persisted.Enabled != nil {
		m.enabled = *persisted.Enabled
	}
	if persisted.Voices != nil {
		m.voices = *persisted.Voices
	}
	if persisted.Rhythm != nil && persisted.Rhythm.NumBeats > 0 && persisted.Rhythm.NumDivs > 0 {
		m.rhythm = *persisted.Rhythm
		m.clock.SetRhythm(m.rhythm)
	}
	if persisted.TempoBPM != nil && *persisted.TempoBPM > 0 {
		m.tempoBPM = *persisted.TempoBPM
		m.clock.SetTempo(m.tempoBPM)
	}
	m.voices.SetNumSlots(m.rhythm.NumSlots())
	return nil
}
