package sequencer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Arri0/AMI/command"
	"github.com/Arri0/AMI/midi"
)

func newTestMachine(routedBuffer int) (*Machine, chan midi.RoutedMessage) {
	routed := make(chan midi.RoutedMessage, routedBuffer)
	return NewMachine(routed, 16, nil), routed
}

func ask(t *testing.T, m *Machine, kind MachineRequest) command.Result {
	t.Helper()
	reply := make(chan command.Result, 1)
	m.Requests() <- Request{Kind: kind, Reply: reply}
	m.Tick(0)
	select {
	case result := <-reply:
		return result
	default:
		t.Fatal("no response")
		return command.Result{}
	}
}

func TestMachineRunStopsOnCancel(t *testing.T) {
	m, _ := newTestMachine(16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMachineEmitsHitPairs(t *testing.T) {
	m, routed := newTestMachine(16)
	target := 3
	ask(t, m, AddVoice{})
	ask(t, m, SetVoiceTarget{Index: 0, Target: &target})
	ask(t, m, SetVoiceNote{Index: 0, Note: 36})
	ask(t, m, SetVoiceVelocity{Index: 0, Velocity: 100})
	ask(t, m, SetSlot{Voice: 0, Slot: 0, Enabled: true})

	m.Tick(m.clock.Period())

	if len(routed) != 2 {
		t.Fatalf("emitted %d messages, want a NoteOn/NoteOff pair", len(routed))
	}
	on := <-routed
	off := <-routed
	if on.NodeID != target || off.NodeID != target {
		t.Errorf("hit addressed to nodes %d/%d, want %d", on.NodeID, off.NodeID, target)
	}
	if on.Message.Type != midi.NoteOn || on.Message.Note != 36 || on.Message.Velocity != 100 {
		t.Errorf("note on = %+v", on.Message)
	}
	if off.Message.Type != midi.NoteOff || off.Message.Note != 36 || off.Message.Velocity != 0 {
		t.Errorf("note off = %+v", off.Message)
	}
}

func TestMachineSilentVoiceEmitsNothing(t *testing.T) {
	m, routed := newTestMachine(16)
	ask(t, m, AddVoice{})
	ask(t, m, SetSlot{Voice: 0, Slot: 0, Enabled: true})
	m.Tick(m.clock.Period())
	if len(routed) != 0 {
		t.Errorf("silent voice emitted %d messages", len(routed))
	}
}

func TestMachineDisabledDoesNotFire(t *testing.T) {
	m, routed := newTestMachine(16)
	target := 0
	ask(t, m, AddVoice{})
	ask(t, m, SetVoiceTarget{Index: 0, Target: &target})
	ask(t, m, SetSlot{Voice: 0, Slot: 0, Enabled: true})
	ask(t, m, SetEnabled{Enabled: false})
	m.Tick(10 * time.Second)
	if len(routed) != 0 {
		t.Errorf("disabled machine emitted %d messages", len(routed))
	}
}

func TestMachineSetRhythmCascadesIntoVoices(t *testing.T) {
	m, _ := newTestMachine(16)
	ask(t, m, AddVoice{})
	result := ask(t, m, SetRhythm{Rhythm: Rhythm{NumBeats: 8, NumDivs: 2}})
	if result.Status != command.StatusOk {
		t.Fatalf("set rhythm = %v", result.Status)
	}
	if len(m.voices.Rows[0].Slots) != 16 {
		t.Errorf("voice slots = %d, want 16", len(m.voices.Rows[0].Slots))
	}
	if result := ask(t, m, SetRhythm{Rhythm: Rhythm{NumBeats: 0, NumDivs: 4}}); result.Status != command.StatusFailed {
		t.Errorf("zero-beat rhythm = %v, want failed", result.Status)
	}
}

func TestMachineRequestValidation(t *testing.T) {
	m, _ := newTestMachine(16)
	if result := ask(t, m, RemoveVoice{Index: 0}); result.Status != command.StatusFailed {
		t.Errorf("remove from empty = %v", result.Status)
	}
	if result := ask(t, m, SetTempo{BPM: -10}); result.Status != command.StatusFailed {
		t.Errorf("negative tempo = %v", result.Status)
	}
	if result := ask(t, m, SetSlot{Voice: 0, Slot: 0, Enabled: true}); result.Status != command.StatusFailed {
		t.Errorf("slot on missing voice = %v", result.Status)
	}
}

func TestMachineRetargetRequest(t *testing.T) {
	m, _ := newTestMachine(16)
	target := 2
	ask(t, m, AddVoice{})
	ask(t, m, SetVoiceTarget{Index: 0, Target: &target})
	ask(t, m, RetargetAfterRemove{RemovedID: 1})
	if got := m.voices.Rows[0].Target; got == nil || *got != 1 {
		t.Errorf("target after remove = %v, want 1", got)
	}
}

func TestMachinePatternRoundTrip(t *testing.T) {
	m, _ := newTestMachine(16)
	target := 0
	ask(t, m, AddVoice{})
	ask(t, m, SetVoiceTarget{Index: 0, Target: &target})
	ask(t, m, SetVoiceName{Index: 0, Name: "kick"})
	ask(t, m, SetSlot{Voice: 0, Slot: 2, Enabled: true})
	ask(t, m, SetTempo{BPM: 140})

	path := filepath.Join(t.TempDir(), "beat.json")
	if result := ask(t, m, SavePattern{Path: path}); result.Status != command.StatusOk {
		t.Fatalf("save = %v", result.Status)
	}

	fresh, _ := newTestMachine(16)
	result := ask(t, fresh, LoadPattern{Path: path})
	if result.Status != command.StatusOk {
		t.Fatalf("load = %v", result.Status)
	}
	if fresh.tempoBPM != 140 {
		t.Errorf("tempo = %v, want 140", fresh.tempoBPM)
	}
	voice := fresh.voices.Rows[0]
	if voice.Name != "kick" || !voice.Slots[2] {
		t.Errorf("voice not restored: %+v", voice)
	}
}

func TestMachineLoadPatternRejectsBadFiles(t *testing.T) {
	m, _ := newTestMachine(16)
	if result := ask(t, m, LoadPattern{Path: filepath.Join(t.TempDir(), "missing.json")}); result.Status != command.StatusFailed {
		t.Errorf("missing file = %v, want failed", result.Status)
	}
}

func TestMachineSerializeSkipsClockPosition(t *testing.T) {
	m, _ := newTestMachine(64)
	ask(t, m, AddVoice{})
	// Walk the clock away from the origin.
	for i := 1; i <= 5; i++ {
		m.Tick(time.Duration(i) * m.clock.Period())
	}
	raw, err := m.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	fresh, _ := newTestMachine(16)
	if err := fresh.Deserialize(raw); err != nil {
		t.Fatal(err)
	}
	if len(fresh.voices.Rows) != 1 {
		t.Errorf("voices not restored")
	}
	beat, div := fresh.clock.Position()
	if beat != 0 || div != 0 {
		t.Errorf("clock position restored to (%d, %d), want origin", beat, div)
	}
}
