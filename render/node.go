package render

import (
	"encoding/json"
	"sort"

	"github.com/Arri0/AMI/command"
	"github.com/Arri0/AMI/midi"
)

// Node is one synthesis source in the render graph. RenderAdditive runs on
// the audio path and must not allocate per sample; everything else runs on
// the graph's control tick, so implementations need no internal locking.
type Node interface {
	// RenderAdditive adds one block of samples into the stereo buffers.
	// Buffers may change length between calls, up to MaxBufferSize.
	RenderAdditive(left, right []float32)

	// ResetRendering silences all sounding voices.
	ResetRendering()

	SetSampleRate(sampleRate int)
	SetGlobalTransposition(semitones int8)

	ReceiveMIDI(msg midi.Message)

	// ProcessRequest answers one control request. The callback is invoked
	// exactly once, possibly after the call returns for async work.
	ProcessRequest(req command.NodeRequest, respond func(command.Result))

	// Update polls background jobs. Called once per control tick.
	Update()

	// TakeFieldUpdates drains the field diffs accumulated since the last
	// call, for broadcast to observers.
	TakeFieldUpdates() []command.FieldUpdate

	Serialize() (json.RawMessage, error)
	Deserialize(raw json.RawMessage) error

	// Clone copies the node's configuration into a fresh node. Loaded
	// assets are not shared; the clone reloads them itself.
	Clone() Node
}

// Constructor builds a fresh node of one registered kind.
type Constructor func() Node

// Registry maps node kind names to constructors.
type Registry struct {
	kinds map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Constructor)}
}

// RegisterKind makes a node kind available to the graph, replacing any
// previous constructor under the same name.
func (r *Registry) RegisterKind(name string, constructor Constructor) {
	r.kinds[name] = constructor
}

// New builds a node of the named kind, or reports the kind unknown.
func (r *Registry) New(name string) (Node, bool) {
	constructor, ok := r.kinds[name]
	if !ok {
		return nil, false
	}
	return constructor(), true
}

// Kinds lists the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
