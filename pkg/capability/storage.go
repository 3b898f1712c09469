package capability

import "sync"

// Last reported capabilities per worker id.
// Overwritten on every dequeue attempt, read while matching.
type Storage struct {
	sync.RWMutex
	capabilities map[string]Capabilities
}

func NewStorage() *Storage {
	return &Storage{
		capabilities: map[string]Capabilities{},
	}
}

// Set replaces the capabilities stored for the worker.
func (s *Storage) Set(workerId string, capabilities Capabilities) {
	stored := append(Capabilities{}, capabilities...)

	s.Lock()
	defer s.Unlock()
	s.capabilities[workerId] = stored
}

// Get returns the capabilities last stored for the worker.
func (s *Storage) Get(workerId string) (Capabilities, bool) {
	s.RLock()
	defer s.RUnlock()

	capabilities, ok := s.capabilities[workerId]
	if !ok {
		return nil, false
	}
	return append(Capabilities{}, capabilities...), true
}
