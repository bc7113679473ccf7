package render

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/Arri0/AMI/command"
	"github.com/Arri0/AMI/midi"
)

func respondInto(result *command.Result, called *bool) func(command.Result) {
	return func(r command.Result) {
		*result = r
		*called = true
	}
}

func TestSoundFontNodeConfigRequests(t *testing.T) {
	n := NewSoundFontNode()
	var result command.Result
	var called bool

	n.ProcessRequest(command.SetName{Name: "piano"}, respondInto(&result, &called))
	if !called || result.Status != command.StatusOk {
		t.Fatalf("set name = %+v", result)
	}
	if n.name != "piano" {
		t.Errorf("name = %q", n.name)
	}

	called = false
	n.ProcessRequest(command.SetGain{Gain: 0.5}, respondInto(&result, &called))
	if !called || n.gain != 0.5 {
		t.Errorf("gain = %v", n.gain)
	}

	called = false
	n.ProcessRequest(command.SetTransposition{Semitones: 12}, respondInto(&result, &called))
	if !called || n.trans != 12 {
		t.Errorf("transposition = %d", n.trans)
	}
}

func TestSoundFontNodeToleratesChangingBlockLength(t *testing.T) {
	n := NewSoundFontNode()
	left := make([]float32, 256)
	right := make([]float32, 256)
	left[0] = 0.5
	n.RenderAdditive(left, right)
	n.RenderAdditive(left[:128], right[:128])
	if left[0] != 0.5 {
		t.Errorf("engine-less render touched the output, left[0] = %v", left[0])
	}

	// The scratch buffers grow to the largest block and never shrink.
	n.growBuffers(256)
	if len(n.tmpL) != 256 || len(n.tmpR) != 256 {
		t.Fatalf("scratch = (%d, %d), want 256 each", len(n.tmpL), len(n.tmpR))
	}
	n.growBuffers(128)
	if len(n.tmpL) != 256 || len(n.tmpR) != 256 {
		t.Errorf("scratch shrank to (%d, %d)", len(n.tmpL), len(n.tmpR))
	}
}

func TestSoundFontNodeUserPresetRecall(t *testing.T) {
	n := NewSoundFontNode()
	var result command.Result
	var called bool

	n.ProcessRequest(command.SetUserPresetEnabled{Slot: 2, Enabled: false}, respondInto(&result, &called))
	if !called || result.Status != command.StatusOk {
		t.Fatalf("store slot = %+v", result)
	}
	called = false
	n.ProcessRequest(command.SetUserPreset{Slot: 2}, respondInto(&result, &called))
	if !called || result.Status != command.StatusOk {
		t.Fatalf("recall slot = %+v", result)
	}
	if n.enabled {
		t.Error("recall did not apply the stored enabled state")
	}
}

func TestSoundFontNodeDeniesUnknownRequests(t *testing.T) {
	n := NewSoundFontNode()
	var result command.Result
	var called bool
	n.ProcessRequest(command.SetUserPreset{Slot: 99}, respondInto(&result, &called))
	if !called || result.Status != command.StatusFailed {
		t.Errorf("out-of-range user preset = %+v", result)
	}

	called = false
	n.ProcessRequest(command.AddVoice{}, respondInto(&result, &called))
	if !called || result.Status != command.StatusDenied {
		t.Errorf("voice request to a synth = %+v", result)
	}
}

func TestSoundFontNodePresetRequiresEngine(t *testing.T) {
	n := NewSoundFontNode()
	var result command.Result
	var called bool
	n.ProcessRequest(command.SetBankAndProgram{Bank: 0, Program: 1}, respondInto(&result, &called))
	if !called || result.Status != command.StatusFailed {
		t.Errorf("preset without engine = %+v", result)
	}
	// The selection sticks so the next load picks it up.
	if n.bank != 0 || n.program != 1 {
		t.Errorf("recorded preset = (%d, %d), want (0, 1)", n.bank, n.program)
	}
}

func TestSoundFontNodeLoadFailureKeepsNodeUsable(t *testing.T) {
	n := NewSoundFontNode()
	n.SetSampleRate(44100)
	var result command.Result
	var called bool
	n.ProcessRequest(command.LoadFile{Path: filepath.Join(t.TempDir(), "missing.sf2")}, respondInto(&result, &called))

	deadline := time.Now().Add(2 * time.Second)
	for !called && time.Now().Before(deadline) {
		n.Update()
		time.Sleep(time.Millisecond)
	}
	if !called {
		t.Fatal("load callback never invoked")
	}
	if result.Status != command.StatusFailed {
		t.Errorf("load of missing file = %v, want failed", result.Status)
	}
	if n.synth != nil {
		t.Error("failed load installed an engine")
	}

	// A fresh load request is still accepted.
	called = false
	n.ProcessRequest(command.LoadFile{Path: "also-missing.sf2"}, respondInto(&result, &called))
	for !called && time.Now().Before(deadline) {
		n.Update()
		time.Sleep(time.Millisecond)
	}
	if !called {
		t.Error("retry callback never invoked")
	}
}

func TestSoundFontNodeLoadWithoutSampleRateFailsFast(t *testing.T) {
	n := NewSoundFontNode()
	var result command.Result
	var called bool
	n.ProcessRequest(command.LoadFile{Path: "whatever.sf2"}, respondInto(&result, &called))
	if !called || result.Status != command.StatusFailed {
		t.Errorf("load before sample rate = %+v, want immediate failure", result)
	}
}

func TestSoundFontNodeTranspose(t *testing.T) {
	n := NewSoundFontNode()
	tests := []struct {
		trans  int8
		global int8
		ignore bool
		note   uint8
		want   uint8
	}{
		{trans: 0, global: 0, note: 60, want: 60},
		{trans: 12, global: 0, note: 60, want: 72},
		{trans: 12, global: -24, note: 60, want: 48},
		{trans: 12, global: -24, ignore: true, note: 60, want: 72},
		{trans: -128, global: -128, note: 60, want: 0}, // saturates then clamps
		{trans: 127, global: 127, note: 60, want: 127},
		{trans: -100, global: 0, note: 60, want: 0},
		{trans: 100, global: 0, note: 60, want: 127},
	}
	for i, tt := range tests {
		n.trans = tt.trans
		n.globalTrans = tt.global
		n.ignoreGT = tt.ignore
		if got := n.transpose(tt.note); got != tt.want {
			t.Errorf("case %d: transpose(%d) = %d, want %d", i, tt.note, got, tt.want)
		}
	}
}

func TestSoundFontNodeFilterGatesInput(t *testing.T) {
	n := NewSoundFontNode()
	var result command.Result
	var called bool
	n.ProcessRequest(command.UpdateFilter{Update: midi.FilterSetChannel{Channel: 2, Flag: false}}, respondInto(&result, &called))
	if !called || result.Status != command.StatusOk {
		t.Fatalf("filter update = %+v", result)
	}
	// No engine is loaded, so the only observable effect is that the
	// controller cache stays empty for gated messages.
	n.ReceiveMIDI(midi.Message{Type: midi.ControlChange, Channel: 2, Controller: 7, Value: 99})
	if n.ccSet[7] {
		t.Error("gated control change reached the node")
	}
	n.ReceiveMIDI(midi.Message{Type: midi.ControlChange, Channel: 1, Controller: 7, Value: 99})
	if !n.ccSet[7] || n.ccValues[7] != 99 {
		t.Error("open control change not recorded")
	}
}

func TestSoundFontNodeDisabledGatesNoteOnOnly(t *testing.T) {
	n := NewSoundFontNode()
	n.enabled = false
	n.ReceiveMIDI(midi.Message{Type: midi.PitchWheel, Wheel: 1000})
	if !n.wheelSet || n.wheel != 1000 {
		t.Error("disabled node should still track non-note state")
	}
}

func TestSoundFontNodeSerializeRoundTrip(t *testing.T) {
	n := NewSoundFontNode()
	n.name = "strings"
	n.gain = 0.75
	n.trans = -5
	n.ignoreGT = true
	n.file = "/sf/strings.sf2"
	n.bank = 1
	n.program = 48
	n.userPresets[3] = false
	n.filter.Channels[2] = false

	raw, err := n.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	restored := NewSoundFontNode()
	if err := restored.Deserialize(raw); err != nil {
		t.Fatal(err)
	}
	if restored.name != "strings" || restored.gain != 0.75 || restored.trans != -5 {
		t.Errorf("restored = %q %v %d", restored.name, restored.gain, restored.trans)
	}
	if !restored.ignoreGT || restored.file != "/sf/strings.sf2" {
		t.Error("flags and file not restored")
	}
	if restored.bank != 1 || restored.program != 48 {
		t.Errorf("preset = %d/%d", restored.bank, restored.program)
	}
	if restored.userPresets[3] || restored.filter.Channels[2] {
		t.Error("user presets or filter not restored")
	}
	if restored.synth != nil {
		t.Error("deserialize must not install an engine")
	}
}

func TestSoundFontNodeDeserializePartial(t *testing.T) {
	n := NewSoundFontNode()
	if err := n.Deserialize(json.RawMessage(`{"gain": 0.25}`)); err != nil {
		t.Fatal(err)
	}
	if n.gain != 0.25 {
		t.Errorf("gain = %v", n.gain)
	}
	if n.name != defaultSoundFontName {
		t.Errorf("absent field overwrote name: %q", n.name)
	}
}

func TestSoundFontNodeCloneIsIndependent(t *testing.T) {
	n := NewSoundFontNode()
	n.name = "organ"
	n.gain = 0.3
	n.filter.Channels[0] = false
	n.userPresets[0] = false

	clone := n.Clone().(*SoundFontNode)
	if clone.name != "organ" || clone.gain != 0.3 {
		t.Error("clone missed configuration")
	}
	if clone.synth != nil {
		t.Error("clone must start engine-less")
	}
	clone.filter.Channels[1] = false
	clone.userPresets[1] = false
	if !n.filter.Channels[1] || !n.userPresets[1] {
		t.Error("clone shares state with original")
	}
}

func TestSoundFontNodeRenderSilentWithoutEngine(t *testing.T) {
	n := NewSoundFontNode()
	left := []float32{1, 1}
	right := []float32{1, 1}
	n.RenderAdditive(left, right)
	if left[0] != 1 || right[0] != 1 {
		t.Error("engine-less node wrote samples")
	}
}
