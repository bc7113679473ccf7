package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/Arri0/AMI/command"
	"github.com/Arri0/AMI/midi"
)

// KindSoundFont is the registry name of the SoundFont synth node.
const KindSoundFont = "SoundFont"

const (
	defaultSoundFontName = "SoundFont Synth"
	numUserPresets       = 16
	maxPolyphony         = 32
)

// RegisterSoundFont adds the SoundFont node kind to the registry.
func RegisterSoundFont(registry *Registry) {
	registry.RegisterKind(KindSoundFont, func() Node { return NewSoundFontNode() })
}

type loadResult struct {
	seq       int
	synth     *meltysynth.Synthesizer
	presetMap PresetMap
	bank      int
	program   int
	err       error
}

// SoundFontNode renders MIDI through a SoundFont engine. The engine is
// built on a background goroutine whenever the file or sample rate
// changes; until a load finishes the node is silent but fully
// configurable. All methods run on the graph's control or audio tick
// except the load goroutine, which communicates only via its result
// channel.
type SoundFontNode struct {
	name        string
	enabled     bool
	filter      midi.Filter
	gain        float32
	trans       int8
	globalTrans int8
	ignoreGT    bool
	velocityMap VelocityMap
	userPresets []bool

	synth      *meltysynth.Synthesizer
	presetMap  *PresetMap
	file       string
	sampleRate int
	bank       int // -1 when no preset selected
	program    int

	wheel    uint16
	wheelSet bool
	ccValues [midi.NumControllers]uint8
	ccSet    [midi.NumControllers]bool

	tmpL, tmpR []float32

	loadSeq  int
	loadDone chan loadResult
	loadCB   func(command.Result)

	pending []command.FieldUpdate
}

func NewSoundFontNode() *SoundFontNode {
	userPresets := make([]bool, numUserPresets)
	for i := range userPresets {
		userPresets[i] = true
	}
	return &SoundFontNode{
		name:        defaultSoundFontName,
		enabled:     true,
		filter:      midi.NewFilter(),
		gain:        1,
		velocityMap: VelocityMap{Kind: VelocityIdentity},
		userPresets: userPresets,
		bank:        -1,
		program:     -1,
	}
}

func (n *SoundFontNode) RenderAdditive(left, right []float32) {
	if n.synth == nil {
		return
	}
	size := len(left)
	if len(right) < size {
		size = len(right)
	}
	n.growBuffers(size)
	tmpL := n.tmpL[:size]
	tmpR := n.tmpR[:size]
	n.synth.Render(tmpL, tmpR)
	Amplify(tmpL, n.gain)
	Amplify(tmpR, n.gain)
	AddTo(left, tmpL)
	AddTo(right, tmpR)
}

func (n *SoundFontNode) growBuffers(size int) {
	if len(n.tmpL) < size {
		n.tmpL = append(n.tmpL, make([]float32, size-len(n.tmpL))...)
		n.tmpR = append(n.tmpR, make([]float32, size-len(n.tmpR))...)
	}
}

func (n *SoundFontNode) ResetRendering() {
	if n.synth != nil {
		n.synth.NoteOffAll(true)
	}
}

func (n *SoundFontNode) SetSampleRate(sampleRate int) {
	n.sampleRate = sampleRate
	if n.file != "" {
		n.startLoad(nil)
	}
}

func (n *SoundFontNode) SetGlobalTransposition(semitones int8) {
	n.globalTrans = semitones
}

func (n *SoundFontNode) ReceiveMIDI(msg midi.Message) {
	if !n.filter.Passes(msg) {
		return
	}
	if msg.Type == midi.NoteOn && !n.enabled {
		return
	}
	switch msg.Type {
	case midi.NoteOn:
		n.noteOn(msg.Note, msg.Velocity)
	case midi.NoteOff:
		n.noteOff(msg.Note)
	case midi.ControlChange:
		n.controlChange(msg.Controller, msg.Value)
	case midi.PitchWheel:
		n.pitchWheel(msg.Wheel)
	}
}

func (n *SoundFontNode) noteOn(note, velocity uint8) {
	if n.synth == nil {
		return
	}
	n.synth.NoteOn(0, int32(n.transpose(note)), int32(n.velocityMap.Apply(velocity)))
}

func (n *SoundFontNode) noteOff(note uint8) {
	if n.synth == nil {
		return
	}
	n.synth.NoteOff(0, int32(n.transpose(note)))
}

func (n *SoundFontNode) controlChange(controller, value uint8) {
	n.ccValues[controller] = value
	n.ccSet[controller] = true
	if n.synth != nil {
		n.synth.ProcessMidiMessage(0, 0xB0, int32(controller), int32(value))
	}
}

func (n *SoundFontNode) pitchWheel(value uint16) {
	n.wheel = value
	n.wheelSet = true
	if n.synth != nil {
		n.synth.ProcessMidiMessage(0, 0xE0, int32(value&0x7F), int32(value>>7)&0x7F)
	}
}

// transpose applies the node and global offsets with a saturating sum and
// clamps the result into the playable note range.
func (n *SoundFontNode) transpose(note uint8) uint8 {
	total := int(n.trans)
	if !n.ignoreGT {
		total += int(n.globalTrans)
	}
	if total > 127 {
		total = 127
	} else if total < -128 {
		total = -128
	}
	result := int(note) + total
	if result < 0 {
		result = 0
	} else if result > 127 {
		result = 127
	}
	return uint8(result)
}

func (n *SoundFontNode) ProcessRequest(req command.NodeRequest, respond func(command.Result)) {
	switch req := req.(type) {
	case command.SetName:
		n.name = req.Name
		respond(command.UpdateFields("name", n.name))
	case command.SetEnabled:
		n.enabled = req.Enabled
		respond(command.UpdateFields("enabled", n.enabled))
	case command.LoadFile:
		n.file = req.Path
		n.startLoad(respond)
	case command.SetGain:
		n.gain = req.Gain
		respond(command.UpdateFields("gain", n.gain))
	case command.SetTransposition:
		n.trans = clampInt8(req.Semitones)
		respond(command.UpdateFields("transposition", n.trans))
	case command.SetIgnoreGlobalTransposition:
		n.ignoreGT = req.Ignore
		respond(command.UpdateFields("ignore_global_transposition", n.ignoreGT))
	case command.SetVelocityMap:
		respond(n.setVelocityMap(req))
	case command.SetBankAndProgram:
		respond(n.setPreset(req.Bank, req.Program))
	case command.UpdateFilter:
		respond(n.updateFilter(req.Update))
	case command.SetUserPreset:
		respond(n.recallUserPreset(req.Slot))
	case command.SetUserPresetEnabled:
		respond(n.setUserPresetEnabled(req.Slot, req.Enabled))
	default:
		respond(command.Deny())
	}
}

func (n *SoundFontNode) setVelocityMap(req command.SetVelocityMap) command.Result {
	switch VelocityMapKind(req.Kind) {
	case VelocityIdentity:
		n.velocityMap = VelocityMap{Kind: VelocityIdentity}
	case VelocityLinear:
		max := uint8(req.Scale * 127)
		n.velocityMap = VelocityMap{Kind: VelocityLinear, Min: 0, Max: max}
	default:
		return command.Fail()
	}
	return command.UpdateFields("velocity_mapping", n.velocityMap)
}

// setPreset records the selection even without an engine so a pending
// or later load applies it.
func (n *SoundFontNode) setPreset(bank, program int) command.Result {
	n.bank = bank
	n.program = program
	if n.synth == nil {
		return command.Fail()
	}
	selectPreset(n.synth, bank, program)
	return command.UpdateFields("bank", n.bank, "preset", n.program)
}

func (n *SoundFontNode) updateFilter(update midi.FilterUpdate) command.Result {
	if err := n.filter.Apply(update); err != nil {
		return command.Fail()
	}
	return command.UpdateFields("midi_filter", n.filter)
}

// recallUserPreset flips the node on or off according to the stored slot.
func (n *SoundFontNode) recallUserPreset(slot int) command.Result {
	if slot < 0 || slot >= len(n.userPresets) {
		return command.Fail()
	}
	n.enabled = n.userPresets[slot]
	return command.UpdateFields("enabled", n.enabled)
}

func (n *SoundFontNode) setUserPresetEnabled(slot int, enabled bool) command.Result {
	if slot < 0 || slot >= len(n.userPresets) {
		return command.Fail()
	}
	n.userPresets[slot] = enabled
	return command.UpdateFields("user_presets", n.userPresets)
}

// startLoad kicks off a background engine build. A load that is still
// pending when a new one starts is superseded: its result is discarded
// and its callback answers Failed.
func (n *SoundFontNode) startLoad(respond func(command.Result)) {
	if n.file == "" || n.sampleRate == 0 {
		if respond != nil {
			respond(command.Fail())
		}
		return
	}
	if n.loadCB != nil {
		n.loadCB(command.Fail())
	}
	n.loadCB = respond
	n.loadSeq++
	n.loadDone = make(chan loadResult, 1)

	seq := n.loadSeq
	done := n.loadDone
	file := n.file
	sampleRate := n.sampleRate
	bank := n.bank
	program := n.program
	go func() {
		done <- buildEngine(seq, file, sampleRate, bank, program)
	}()
}

func buildEngine(seq int, file string, sampleRate, bank, program int) loadResult {
	data, err := os.ReadFile(file)
	if err != nil {
		return loadResult{seq: seq, err: err}
	}
	soundFont, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return loadResult{seq: seq, err: fmt.Errorf("parse %s: %w", file, err)}
	}
	presetMap := buildPresetMap(soundFont)
	settings := meltysynth.NewSynthesizerSettings(int32(sampleRate))
	settings.MaximumPolyphony = maxPolyphony
	settings.EnableReverbAndChorus = false
	synth, err := meltysynth.NewSynthesizer(soundFont, settings)
	if err != nil {
		return loadResult{seq: seq, err: fmt.Errorf("synthesizer for %s: %w", file, err)}
	}
	if !presetMap.HasPreset(bank, program) {
		var ok bool
		bank, program, ok = presetMap.FirstAvailable()
		if !ok {
			bank, program = -1, -1
		}
	}
	if bank >= 0 {
		selectPreset(synth, bank, program)
	}
	return loadResult{seq: seq, synth: synth, presetMap: presetMap, bank: bank, program: program}
}

// Update polls the pending load, if any. Runs once per control tick.
func (n *SoundFontNode) Update() {
	if n.loadDone == nil {
		return
	}
	select {
	case res := <-n.loadDone:
		n.loadDone = nil
		if res.seq == n.loadSeq {
			n.finishLoad(res)
		}
	default:
	}
}

func (n *SoundFontNode) finishLoad(res loadResult) {
	cb := n.loadCB
	n.loadCB = nil
	if res.err != nil {
		// The node stays engine-less and accepts another LoadFile.
		if cb != nil {
			cb(command.Fail())
		}
		return
	}
	n.synth = res.synth
	n.presetMap = &res.presetMap
	n.bank = res.bank
	n.program = res.program
	n.replayControllerState()
	result := command.UpdateFields(
		"loaded_file", n.file,
		"preset_map", n.presetMap,
		"bank", n.bank,
		"preset", n.program,
	)
	if cb != nil {
		cb(result)
	}
	n.pending = append(n.pending, result.Fields...)
}

// replayControllerState pushes the wheel and controller values seen before
// the load into the fresh engine so held state survives a reload.
func (n *SoundFontNode) replayControllerState() {
	if n.wheelSet {
		n.synth.ProcessMidiMessage(0, 0xE0, int32(n.wheel&0x7F), int32(n.wheel>>7)&0x7F)
	}
	for controller, set := range n.ccSet {
		if set && uint8(controller) != midi.CCBankSelectMSB {
			n.synth.ProcessMidiMessage(0, 0xB0, int32(controller), int32(n.ccValues[controller]))
		}
	}
}

func (n *SoundFontNode) TakeFieldUpdates() []command.FieldUpdate {
	fields := n.pending
	n.pending = nil
	return fields
}

// persistedSoundFont is the node's snapshot shape. Optional fields use
// pointers so absent keys leave the current value untouched on load.
type persistedSoundFont struct {
	Name        *string      `json:"name,omitempty"`
	Enabled     *bool        `json:"enabled,omitempty"`
	Filter      *midi.Filter `json:"midi_filter,omitempty"`
	Gain        *float32     `json:"gain,omitempty"`
	Trans       *int8        `json:"transposition,omitempty"`
	GlobalTrans *int8        `json:"global_transposition,omitempty"`
	VelocityMap *VelocityMap `json:"velocity_mapping,omitempty"`
	IgnoreGT    *bool        `json:"ignore_global_transposition,omitempty"`
	File        *string      `json:"loaded_file,omitempty"`
	PresetMap   *PresetMap   `json:"preset_map,omitempty"`
	Bank        *int         `json:"bank,omitempty"`
	Program     *int         `json:"preset,omitempty"`
	UserPresets []bool       `json:"user_presets,omitempty"`
}

func (n *SoundFontNode) Serialize() (json.RawMessage, error) {
	filter := n.filter.Clone()
	persisted := persistedSoundFont{
		Name:        &n.name,
		Enabled:     &n.enabled,
		Filter:      &filter,
		Gain:        &n.gain,
		Trans:       &n.trans,
		GlobalTrans: &n.globalTrans,
		VelocityMap: &n.velocityMap,
		IgnoreGT:    &n.ignoreGT,
		File:        &n.file,
		PresetMap:   n.presetMap,
		Bank:        &n.bank,
		Program:     &n.program,
		UserPresets: n.userPresets,
	}
	return json.Marshal(persisted)
}

func (n *SoundFontNode) Deserialize(raw json.RawMessage) error {
	var persisted persistedSoundFont
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return err
	}
	if persisted.Name != nil {
		n.name = *persisted.Name
	}
	if persisted.Enabled != nil {
		n.enabled = *persisted.Enabled
	}
	if persisted.Filter != nil {
		n.filter = persisted.Filter.Clone()
	}
	if persisted.Gain != nil {
		n.gain = *persisted.Gain
	}
	if persisted.Trans != nil {
		n.trans = *persisted.Trans
	}
	if persisted.GlobalTrans != nil {
		n.globalTrans = *persisted.GlobalTrans
	}
	if persisted.VelocityMap != nil {
		n.velocityMap = *persisted.VelocityMap
	}
	if persisted.IgnoreGT != nil {
		n.ignoreGT = *persisted.IgnoreGT
	}
	if persisted.File != nil {
		n.file = *persisted.File
	}
	if persisted.Bank != nil {
		n.bank = *persisted.Bank
	}
	if persisted.Program != nil {
		n.program = *persisted.Program
	}
	if persisted.UserPresets != nil {
		n.userPresets = append([]bool(nil), persisted.UserPresets...)
	}
	// The engine loads once the sample rate arrives.
	return nil
}

// Clone copies the configuration into a fresh node and starts its own
// load. The engine and preset map are never shared.
func (n *SoundFontNode) Clone() Node {
	clone := NewSoundFontNode()
	clone.name = n.name
	clone.enabled = n.enabled
	clone.filter = n.filter.Clone()
	clone.gain = n.gain
	clone.trans = n.trans
	clone.globalTrans = n.globalTrans
	clone.ignoreGT = n.ignoreGT
	clone.velocityMap = n.velocityMap
	clone.userPresets = append([]bool(nil), n.userPresets...)
	clone.file = n.file
	clone.sampleRate = n.sampleRate
	clone.bank = n.bank
	clone.program = n.program
	if clone.file != "" && clone.sampleRate != 0 {
		clone.startLoad(nil)
	}
	return clone
}

func clampInt8(v int) int8 {
	if v > 127 {
		return 127
	}
	if v < -128 {
		return -128
	}
	return int8(v)
}

func selectPreset(synth *meltysynth.Synthesizer, bank, program int) {
	synth.ProcessMidiMessage(0, 0xB0, int32(midi.CCBankSelectMSB), int32(bank))
	synth.ProcessMidiMessage(0, 0xC0, int32(program), 0)
}

func buildPresetMap(soundFont *meltysynth.SoundFont) PresetMap {
	m := NewPresetMap()
	for _, p := range soundFont.Presets {
		preset := NewPreset(p.Name)
		for _, r := range p.Regions {
			start := r.GetKeyRangeStart()
			end := r.GetKeyRangeEnd()
			if start < 0 {
				start = 0
			}
			if end > 127 {
				end = 127
			}
			preset.AddNoteRange(uint8(start), uint8(end))
		}
		m.AddPreset(int(p.BankNumber), int(p.PatchNumber), preset)
	}
	return m
}
