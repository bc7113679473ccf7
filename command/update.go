package command

import (
	"encoding/json"
	"sync"
)

// UpdateKind tags an Update event.
type UpdateKind int

const (
	UpdateAddNode UpdateKind = iota
	UpdateRemoveNode
	UpdateCloneNode
	UpdateMoveNode
	UpdateNodeFields
)

// Update is a state-change event broadcast to observers after the render
// graph has applied a mutation or a node reported field diffs.
type Update struct {
	Kind     UpdateKind      `json:"kind"`
	ID       int             `json:"id"`
	NewID    int             `json:"new_id,omitempty"`
	NodeKind string          `json:"node_kind,omitempty"`
	Instance json.RawMessage `json:"instance,omitempty"`
	Fields   []FieldUpdate   `json:"fields,omitempty"`
}

// Broadcaster fans Updates out to any number of observer channels. With
// zero observers publishing is a no-op, and a full observer channel drops
// the update rather than stalling the control loop.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Update
	next int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Update)}
}

// Subscribe registers a new observer channel with the given buffer and
// returns it with a cancel func that unsubscribes and closes it.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Update, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Update, buffer)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish sends the update to every observer, dropping on full channels.
func (b *Broadcaster) Publish(update Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub <- update:
		default:
		}
	}
}
