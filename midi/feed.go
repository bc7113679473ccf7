package midi

import "sync"

// Feed fans decoded messages out to any number of subscribers. Publishing
// never blocks: a subscriber that falls behind loses messages rather than
// stalling the input side.
type Feed struct {
	mu   sync.Mutex
	subs []chan Message
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Subscribe registers a new subscriber with the given channel buffer.
func (f *Feed) Subscribe(buffer int) <-chan Message {
	ch := make(chan Message, buffer)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch
}

// Publish delivers msg to every subscriber, dropping it for any whose
// buffer is full.
func (f *Feed) Publish(msg Message) {
	f.mu.Lock()
	subs := f.subs
	f.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
			// Subscriber is behind, drop
		}
	}
}
