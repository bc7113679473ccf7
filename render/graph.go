package render

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Arri0/AMI/command"
	"github.com/Arri0/AMI/midi"
)

type slot struct {
	Kind string
	Node Node
}

// persistedSlot is the on-disk shape of one graph slot.
type persistedSlot struct {
	Kind     string          `json:"kind"`
	Instance json.RawMessage `json:"instance"`
}

// Graph owns the ordered node list and the three inbound control streams:
// structural requests, the live MIDI feed, and scheduler-routed messages.
// All mutation happens on the render goroutine via ControlTick, so the
// graph itself needs no locking.
type Graph struct {
	registry    *Registry
	slots       []slot
	requests    chan command.Request
	midiFeed    <-chan midi.Message
	routed      chan midi.RoutedMessage
	broadcaster *command.Broadcaster
	sampleRate  int
	globalTrans int8
	log         *zap.Logger
}

// NewGraph wires a graph to its registry, MIDI feed, and broadcaster.
// requestBuffer and routedBuffer bound the two inbound queues.
func NewGraph(registry *Registry, midiFeed <-chan midi.Message, broadcaster *command.Broadcaster, requestBuffer, routedBuffer int, log *zap.Logger) *Graph {
	if log == nil {
		log = zap.NewNop()
	}
	return &Graph{
		registry:    registry,
		requests:    make(chan command.Request, requestBuffer),
		midiFeed:    midiFeed,
		routed:      make(chan midi.RoutedMessage, routedBuffer),
		broadcaster: broadcaster,
		log:         log,
	}
}

// Requests is the submission queue for structural and node requests.
func (g *Graph) Requests() chan<- command.Request {
	return g.requests
}

// Routed is the submission queue for scheduler-originated messages.
func (g *Graph) Routed() chan<- midi.RoutedMessage {
	return g.routed
}

// NumNodes reports the current node count.
func (g *Graph) NumNodes() int {
	return len(g.slots)
}

// SetSampleRate propagates the stream sample rate to every node, present
// and future.
func (g *Graph) SetSampleRate(sampleRate int) {
	g.sampleRate = sampleRate
	for _, s := range g.slots {
		s.Node.SetSampleRate(sampleRate)
	}
}

// SetGlobalTransposition shifts every non-exempt node by the given offset.
func (g *Graph) SetGlobalTransposition(semitones int8) {
	g.globalTrans = semitones
	for _, s := range g.slots {
		s.Node.SetGlobalTransposition(semitones)
	}
}

// ControlTick drains pending requests, MIDI, and scheduler messages, then
// polls every node's background work and broadcasts accumulated diffs.
// Runs once per audio block, before AudioTick.
func (g *Graph) ControlTick() {
	g.drainRequests()
	g.drainMIDI()
	g.drainRouted()
	for id, s := range g.slots {
		s.Node.Update()
		if fields := s.Node.TakeFieldUpdates(); len(fields) > 0 {
			g.broadcaster.Publish(command.Update{
				Kind:   command.UpdateNodeFields,
				ID:     id,
				Fields: fields,
			})
		}
	}
}

// AudioTick renders one block: zero the output, then sum every node.
func (g *Graph) AudioTick(left, right []float32) {
	Clear(left)
	Clear(right)
	for _, s := range g.slots {
		s.Node.RenderAdditive(left, right)
	}
}

func (g *Graph) drainRequests() {
	for {
		select {
		case req := <-g.requests:
			g.processRequest(req)
		default:
			return
		}
	}
}

func (g *Graph) drainMIDI() {
	for {
		select {
		case msg := <-g.midiFeed:
			for _, s := range g.slots {
				s.Node.ReceiveMIDI(msg)
			}
		default:
			return
		}
	}
}

func (g *Graph) drainRouted() {
	for {
		select {
		case msg := <-g.routed:
			if msg.NodeID >= 0 && msg.NodeID < len(g.slots) {
				g.slots[msg.NodeID].Node.ReceiveMIDI(msg.Message)
			}
		default:
			return
		}
	}
}

func (g *Graph) processRequest(req command.Request) {
	switch kind := req.Kind.(type) {
	case command.AddNode:
		g.addNode(kind, req.Reply)
	case command.RemoveNode:
		g.removeNode(kind, req.Reply)
	case command.CloneNode:
		g.cloneNode(kind, req.Reply)
	case command.MoveNode:
		g.moveNode(kind, req.Reply)
	case command.ToNode:
		g.toNode(kind, req.Reply)
	default:
		reply(req.Reply, command.Response{Status: command.StatusFailed})
	}
}

func (g *Graph) addNode(req command.AddNode, replyCh chan<- command.Response) {
	node, ok := g.registry.New(req.Kind)
	if !ok {
		reply(replyCh, command.Response{Status: command.StatusInvalidNodeKind})
		return
	}
	instance, err := node.Serialize()
	if err != nil {
		g.log.Error("new node failed to serialize", zap.String("kind", req.Kind), zap.Error(err))
		reply(replyCh, command.Response{Status: command.StatusFailed})
		return
	}
	g.attach(req.Kind, node)
	id := len(g.slots) - 1
	reply(replyCh, command.Response{Status: command.StatusOk, ID: id, Kind: req.Kind, Instance: instance})
	g.broadcaster.Publish(command.Update{
		Kind:     command.UpdateAddNode,
		ID:       id,
		NodeKind: req.Kind,
		Instance: instance,
	})
}

func (g *Graph) removeNode(req command.RemoveNode, replyCh chan<- command.Response) {
	if req.ID < 0 || req.ID >= len(g.slots) {
		reply(replyCh, command.Response{Status: command.StatusInvalidID})
		return
	}
	g.slots[req.ID].Node.ResetRendering()
	g.slots = append(g.slots[:req.ID], g.slots[req.ID+1:]...)
	reply(replyCh, command.Response{Status: command.StatusOk, ID: req.ID})
	g.broadcaster.Publish(command.Update{Kind: command.UpdateRemoveNode, ID: req.ID})
}

func (g *Graph) cloneNode(req command.CloneNode, replyCh chan<- command.Response) {
	if req.ID < 0 || req.ID >= len(g.slots) {
		reply(replyCh, command.Response{Status: command.StatusInvalidID})
		return
	}
	source := g.slots[req.ID]
	clone := source.Node.Clone()
	instance, err := clone.Serialize()
	if err != nil {
		g.log.Error("cloned node failed to serialize", zap.Int("id", req.ID), zap.Error(err))
		reply(replyCh, command.Response{Status: command.StatusFailed})
		return
	}
	g.attach(source.Kind, clone)
	newID := len(g.slots) - 1
	reply(replyCh, command.Response{Status: command.StatusOk, ID: req.ID, NewID: newID, Kind: source.Kind, Instance: instance})
	g.broadcaster.Publish(command.Update{
		Kind:     command.UpdateCloneNode,
		ID:       req.ID,
		NewID:    newID,
		NodeKind: source.Kind,
		Instance: instance,
	})
}

func (g *Graph) moveNode(req command.MoveNode, replyCh chan<- command.Response) {
	if req.ID < 0 || req.ID >= len(g.slots) || req.NewID < 0 || req.NewID >= len(g.slots) {
		reply(replyCh, command.Response{Status: command.StatusInvalidID})
		return
	}
	if req.ID != req.NewID {
		moved := g.slots[req.ID]
		rest := append(g.slots[:req.ID:req.ID], g.slots[req.ID+1:]...)
		g.slots = append(rest[:req.NewID:req.NewID], append([]slot{moved}, rest[req.NewID:]...)...)
	}
	reply(replyCh, command.Response{Status: command.StatusOk, ID: req.ID, NewID: req.NewID})
	g.broadcaster.Publish(command.Update{Kind: command.UpdateMoveNode, ID: req.ID, NewID: req.NewID})
}

func (g *Graph) toNode(req command.ToNode, replyCh chan<- command.Response) {
	if req.ID < 0 || req.ID >= len(g.slots) {
		reply(replyCh, command.Response{Status: command.StatusInvalidID})
		return
	}
	id := req.ID
	g.slots[id].Node.ProcessRequest(req.Req, func(result command.Result) {
		reply(replyCh, command.Response{Status: result.Status, ID: id, Result: &result})
	})
}

func (g *Graph) attach(kind string, node Node) {
	if g.sampleRate != 0 {
		node.SetSampleRate(g.sampleRate)
	}
	node.SetGlobalTransposition(g.globalTrans)
	g.slots = append(g.slots, slot{Kind: kind, Node: node})
}

// Serialize captures every node's kind and configuration in graph order.
func (g *Graph) Serialize() (json.RawMessage, error) {
	persisted := make([]persistedSlot, 0, len(g.slots))
	for _, s := range g.slots {
		instance, err := s.Node.Serialize()
		if err != nil {
			return nil, err
		}
		persisted = append(persisted, persistedSlot{Kind: s.Kind, Instance: instance})
	}
	return json.Marshal(persisted)
}

// Deserialize rebuilds the node list from a Serialize snapshot. Slots
// whose kind is no longer registered or whose config fails to apply are
// skipped with a log line; the rest of the snapshot still loads.
func (g *Graph) Deserialize(raw json.RawMessage) error {
	var persisted []persistedSlot
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return err
	}
	for _, s := range g.slots {
		s.Node.ResetRendering()
	}
	g.slots = g.slots[:0]
	for _, p := range persisted {
		node, ok := g.registry.New(p.Kind)
		if !ok {
			g.log.Warn("skipping node of unknown kind", zap.String("kind", p.Kind))
			continue
		}
		if err := node.Deserialize(p.Instance); err != nil {
			g.log.Warn("skipping node with bad config", zap.String("kind", p.Kind), zap.Error(err))
			continue
		}
		g.attach(p.Kind, node)
	}
	return nil
}

func reply(ch chan<- command.Response, response command.Response) {
	if ch == nil {
		return
	}
	select {
	case ch <- response:
	default:
	}
}
