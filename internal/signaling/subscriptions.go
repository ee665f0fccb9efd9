package signaling

import "sync"

// Subscriptions attaches handlers to an EventSource so that each event name
// has at most one handler attached through it. Subscribing to a name detaches
// whatever was attached for that name first.
type Subscriptions struct {
	mu     sync.Mutex
	source EventSource
	names  map[string]struct{}
}

// NewSubscriptions wraps source.
func NewSubscriptions(source EventSource) *Subscriptions {
	return &Subscriptions{source: source, names: make(map[string]struct{})}
}

// Subscribe replaces any handler for event with handler.
func (s *Subscriptions) Subscribe(event string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source.Off(event)
	s.source.On(event, handler)
	s.names[event] = struct{}{}
}

// Unsubscribe detaches the handler for event.
func (s *Subscriptions) Unsubscribe(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source.Off(event)
	delete(s.names, event)
}

// Clear detaches every handler attached through s.
func (s *Subscriptions) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for event := range s.names {
		s.source.Off(event)
	}
	s.names = make(map[string]struct{})
}
