package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
	"go.uber.org/zap"
)

// Reader owns a fixed set of input slots, each optionally connected to a
// hardware MIDI port. Raw bytes from every connected port are decoded and
// published on the feed; undecodable input is dropped silently.
type Reader struct {
	mu    sync.Mutex
	slots []*inputSlot
	feed  *Feed
	log   *zap.Logger
}

type inputSlot struct {
	portName string
	stop     func()
}

// NewReader creates a reader with numSlots unconnected slots.
func NewReader(feed *Feed, numSlots int, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{
		slots: make([]*inputSlot, numSlots),
		feed:  feed,
		log:   log,
	}
}

// AvailablePorts lists the names of all input ports the driver can see.
func AvailablePorts() []string {
	ports := gomidi.GetInPorts()
	names := make([]string, 0, len(ports))
	for _, port := range ports {
		names = append(names, port.String())
	}
	return names
}

// Connect binds a slot to the named input port, replacing any previous
// connection in that slot.
func (r *Reader) Connect(slot int, portName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot < 0 || slot >= len(r.slots) {
		return fmt.Errorf("midi: invalid slot %d", slot)
	}

	port, err := gomidi.FindInPort(portName)
	if err != nil {
		return fmt.Errorf("midi: find port %q: %w", portName, err)
	}

	stop, err := gomidi.ListenTo(port, func(raw gomidi.Message, timestampms int32) {
		if msg, ok := Decode(raw.Bytes()); ok {
			r.feed.Publish(msg)
		}
	})
	if err != nil {
		return fmt.Errorf("midi: open input %q: %w", portName, err)
	}

	if prev := r.slots[slot]; prev != nil {
		prev.stop()
	}
	r.slots[slot] = &inputSlot{portName: portName, stop: stop}
	r.log.Info("MIDI input connected", zap.Int("slot", slot), zap.String("port", portName))
	return nil
}

// Disconnect frees a slot. Disconnecting an empty slot is a no-op.
func (r *Reader) Disconnect(slot int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot < 0 || slot >= len(r.slots) {
		return fmt.Errorf("midi: invalid slot %d", slot)
	}
	if conn := r.slots[slot]; conn != nil {
		conn.stop()
		r.slots[slot] = nil
		r.log.Info("MIDI input disconnected", zap.Int("slot", slot), zap.String("port", conn.portName))
	}
	return nil
}

// ConnectedNames returns the port name per slot, "" for empty slots.
func (r *Reader) ConnectedNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.slots))
	for i, conn := range r.slots {
		if conn != nil {
			names[i] = conn.portName
		}
	}
	return names
}

// Close disconnects every slot.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, conn := range r.slots {
		if conn != nil {
			conn.stop()
			r.slots[i] = nil
		}
	}
}
