package render

import "sort"

// Preset describes one instrument preset of a loaded SoundFont: its name
// and which of the 128 MIDI notes it has samples for.
type Preset struct {
	Name  string `json:"name"`
	Notes []bool `json:"notes"`
}

// NewPreset returns a named preset with no playable notes.
func NewPreset(name string) Preset {
	return Preset{Name: name, Notes: make([]bool, 128)}
}

// AddNoteRange marks the inclusive note range [min, max] playable.
func (p *Preset) AddNoteRange(min, max uint8) {
	for i := int(min); i <= int(max) && i < len(p.Notes); i++ {
		p.Notes[i] = true
	}
}

// PresetMap indexes the presets of a loaded SoundFont by bank and program.
// It is built once per load and is read-only afterwards.
type PresetMap struct {
	Banks map[int]map[int]Preset `json:"banks"`
}

func NewPresetMap() PresetMap {
	return PresetMap{Banks: make(map[int]map[int]Preset)}
}

// AddPreset stores a preset under bank/program.
func (m *PresetMap) AddPreset(bank, program int, preset Preset) {
	programs, ok := m.Banks[bank]
	if !ok {
		programs = make(map[int]Preset)
		m.Banks[bank] = programs
	}
	programs[program] = preset
}

// HasPreset reports whether bank/program exists in the map.
func (m PresetMap) HasPreset(bank, program int) bool {
	programs, ok := m.Banks[bank]
	if !ok {
		return false
	}
	_, ok = programs[program]
	return ok
}

// FirstAvailable returns the lowest bank's lowest program, or false when
// the map is empty.
func (m PresetMap) FirstAvailable() (bank, program int, ok bool) {
	if len(m.Banks) == 0 {
		return 0, 0, false
	}
	banks := make([]int, 0, len(m.Banks))
	for b := range m.Banks {
		banks = append(banks, b)
	}
	sort.Ints(banks)
	bank = banks[0]
	programs := make([]int, 0, len(m.Banks[bank]))
	for p := range m.Banks[bank] {
		programs = append(programs, p)
	}
	sort.Ints(programs)
	return bank, programs[0], true
}
