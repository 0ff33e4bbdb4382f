package broadcast

import "sync"

const subscriberBuffer = 64

// Broker is an in-process pub/sub for live match feeds, keyed by match ID.
// SSE and WebSocket viewers subscribe here.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded messages for the
// given match.
func (b *Broker) Subscribe(matchID string) chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	if b.subs[matchID] == nil {
		b.subs[matchID] = make(map[chan []byte]struct{})
	}
	b.subs[matchID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the match's subscribers.
func (b *Broker) Unsubscribe(matchID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[matchID], ch)
	if len(b.subs[matchID]) == 0 {
		delete(b.subs, matchID)
	}
	b.mu.Unlock()
}

// Subscribers reports how many viewers follow the match.
func (b *Broker) Subscribers(matchID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[matchID])
}

// Publish sends data to all subscribers of the given match.
func (b *Broker) Publish(matchID string, data []byte) {
	b.mu.RLock()
	for ch := range b.subs[matchID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
