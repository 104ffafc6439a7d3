package core

import "sync"

// StatePublisher is the single-slot, multi-observer session state stream. It
// holds exactly one current value, primes new subscribers with it, and fans
// every published value out to all live observers in publish order. The
// stream never terminates; failures travel as values.
type StatePublisher struct {
	mu        sync.Mutex
	current   SessionState
	observers map[int]chan SessionState
	nextID    int
}

func NewStatePublisher() *StatePublisher {
	return &StatePublisher{
		current:   DisconnectedState(),
		observers: map[int]chan SessionState{},
	}
}

// Current returns the value a new subscriber would be primed with.
func (p *StatePublisher) Current() SessionState {
	if p == nil {
		return DisconnectedState()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Publish replaces the current value and notifies every observer. Consecutive
// equal values are delivered each time. A full observer buffer drops its
// oldest value in favor of the newest so a stalled observer never blocks the
// caller; the contract is "current value plus subsequent values", not a
// lossless log.
func (p *StatePublisher) Publish(next SessionState) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = next
	for _, ch := range p.observers {
		offerState(ch, next)
	}
}

// Subscribe registers an observer primed with the current value. The returned
// cancel detaches the observer and closes its channel; the publisher itself
// never closes subscriber channels.
func (p *StatePublisher) Subscribe(buffer int) (<-chan SessionState, func()) {
	if p == nil {
		ch := make(chan SessionState)
		close(ch)
		return ch, func() {}
	}
	if buffer < 1 {
		buffer = 1
	}

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	ch := make(chan SessionState, buffer)
	ch <- p.current
	p.observers[id] = ch
	p.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.observers, id)
			p.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// offerState runs under the publisher mutex, so the send retry after a drain
// cannot race another publish.
func offerState(ch chan SessionState, state SessionState) {
	for {
		select {
		case ch <- state:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
