package audio

import "testing"

func TestRingRoundsCapacityUp(t *testing.T) {
	r := NewRing(100)
	if r.Cap() != 128 {
		t.Errorf("cap = %d, want 128", r.Cap())
	}
}

func TestRingPushPop(t *testing.T) {
	r := NewRing(8)
	in := []float32{1, 2, 3}
	if n := r.Push(in); n != 3 {
		t.Fatalf("pushed %d, want 3", n)
	}
	if r.Len() != 3 {
		t.Errorf("len = %d, want 3", r.Len())
	}
	for _, want := range in {
		got, ok := r.Pop()
		if !ok || got != want {
			t.Errorf("Pop = (%v, %v), want (%v, true)", got, ok, want)
		}
	}
	if _, ok := r.Pop(); ok {
		t.Error("Pop on empty ring succeeded")
	}
}

func TestRingRefusesOverflow(t *testing.T) {
	r := NewRing(4)
	if n := r.Push(make([]float32, 6)); n != 4 {
		t.Errorf("pushed %d into capacity 4, want 4", n)
	}
	if n := r.Push([]float32{1}); n != 0 {
		t.Errorf("pushed %d into full ring, want 0", n)
	}
}

// Samples must survive the indices wrapping around the backing array.
func TestRingWraparound(t *testing.T) {
	r := NewRing(4)
	for cycle := 0; cycle < 10; cycle++ {
		base := float32(cycle * 3)
		r.Push([]float32{base, base + 1, base + 2})
		for i := 0; i < 3; i++ {
			got, ok := r.Pop()
			if !ok || got != base+float32(i) {
				t.Fatalf("cycle %d sample %d = (%v, %v)", cycle, i, got, ok)
			}
		}
	}
}

func TestRingClear(t *testing.T) {
	r := NewRing(8)
	r.Push([]float32{1, 2, 3})
	r.Clear()
	if r.Len() != 0 {
		t.Errorf("len after clear = %d", r.Len())
	}
	// The ring stays usable after a clear.
	r.Push([]float32{9})
	if got, ok := r.Pop(); !ok || got != 9 {
		t.Errorf("Pop after clear = (%v, %v)", got, ok)
	}
}
