package command

import (
	"encoding/json"
	"testing"
)

func TestUpdateFields(t *testing.T) {
	result := UpdateFields("gain", 0.5, "enabled", true)
	if result.Status != StatusOk {
		t.Fatalf("status = %v", result.Status)
	}
	if len(result.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(result.Fields))
	}
	if result.Fields[0].Name != "gain" || string(result.Fields[0].Value) != "0.5" {
		t.Errorf("field 0 = %+v", result.Fields[0])
	}
	if result.Fields[1].Name != "enabled" || string(result.Fields[1].Value) != "true" {
		t.Errorf("field 1 = %+v", result.Fields[1])
	}
}

func TestUpdateFieldsDegradesToFailed(t *testing.T) {
	if result := UpdateFields("odd"); result.Status != StatusFailed {
		t.Errorf("odd pair count = %v, want failed", result.Status)
	}
	if result := UpdateFields(42, "value"); result.Status != StatusFailed {
		t.Errorf("non-string name = %v, want failed", result.Status)
	}
	if result := UpdateFields("ch", make(chan int)); result.Status != StatusFailed {
		t.Errorf("unmarshalable value = %v, want failed", result.Status)
	}
}

func TestResultJSONShape(t *testing.T) {
	data, err := json.Marshal(UpdateFields("name", "lead"))
	if err != nil {
		t.Fatal(err)
	}
	var decoded Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Status != StatusOk || len(decoded.Fields) != 1 || decoded.Fields[0].Name != "name" {
		t.Errorf("round trip = %+v", decoded)
	}
}

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster()
	a, cancelA := b.Subscribe(4)
	c, cancelC := b.Subscribe(4)
	defer cancelC()

	b.Publish(Update{Kind: UpdateAddNode, ID: 1})
	if got := <-a; got.ID != 1 {
		t.Errorf("subscriber a got %+v", got)
	}
	if got := <-c; got.ID != 1 {
		t.Errorf("subscriber c got %+v", got)
	}

	cancelA()
	if _, open := <-a; open {
		t.Error("cancelled channel still open")
	}
	// Publishing after an unsubscribe reaches the remaining observer.
	b.Publish(Update{Kind: UpdateRemoveNode, ID: 2})
	if got := <-c; got.Kind != UpdateRemoveNode {
		t.Errorf("remaining subscriber got %+v", got)
	}
}

func TestBroadcasterDropsOnFullObserver(t *testing.T) {
	b := NewBroadcaster()
	slow, cancel := b.Subscribe(1)
	defer cancel()
	b.Publish(Update{ID: 1})
	b.Publish(Update{ID: 2}) // dropped
	if len(slow) != 1 {
		t.Errorf("observer holds %d updates, want 1", len(slow))
	}
	// Zero observers is a no-op.
	cancel()
	b.Publish(Update{ID: 3})
}
