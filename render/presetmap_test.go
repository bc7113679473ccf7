package render

import "testing"

func TestPresetNoteRanges(t *testing.T) {
	preset := NewPreset("Test")
	if preset.Name != "Test" {
		t.Fatalf("name = %q", preset.Name)
	}
	preset.AddNoteRange(0, 10)
	preset.AddNoteRange(20, 30)
	for i := 0; i < 128; i++ {
		want := i <= 10 || (i >= 20 && i <= 30)
		if preset.Notes[i] != want {
			t.Errorf("note %d playable = %v, want %v", i, preset.Notes[i], want)
		}
	}
}

func TestPresetMapLookup(t *testing.T) {
	m := NewPresetMap()
	if _, _, ok := m.FirstAvailable(); ok {
		t.Error("empty map should have no first preset")
	}
	m.AddPreset(8, 3, NewPreset("Late"))
	m.AddPreset(0, 5, NewPreset("Early"))
	m.AddPreset(0, 1, NewPreset("Earliest"))

	if !m.HasPreset(0, 5) || !m.HasPreset(8, 3) {
		t.Error("stored presets not found")
	}
	if m.HasPreset(0, 2) || m.HasPreset(1, 1) {
		t.Error("missing presets reported present")
	}

	bank, program, ok := m.FirstAvailable()
	if !ok || bank != 0 || program != 1 {
		t.Errorf("FirstAvailable = (%d, %d, %v), want (0, 1, true)", bank, program, ok)
	}
}
