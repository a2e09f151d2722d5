// Package signal provides typed notifications with any number of
// subscribers, in the manner of wl_signal.
package signal

// Signal is a list of handlers that are called, in the order in which
// they were connected, whenever the signal is emitted. The zero value
// is ready to use. Signals are not safe for concurrent use.
type Signal[T any] struct {
	slots []*slot[T]
}

type slot[T any] struct {
	f func(T)
}

// Connect adds f to the signal. The returned function disconnects it
// again and may be called more than once.
func (s *Signal[T]) Connect(f func(T)) (disconnect func()) {
	sl := &slot[T]{f: f}
	s.slots = append(s.slots, sl)

	return func() {
		for i, v := range s.slots {
			if v == sl {
				s.slots = append(s.slots[:i:i], s.slots[i+1:]...)
				break
			}
		}
		sl.f = nil
	}
}

// Emit calls every connected handler with v. Handlers connected during
// emission are not called until the next emission, and handlers
// disconnected during emission are skipped.
func (s *Signal[T]) Emit(v T) {
	slots := s.slots
	for _, sl := range slots {
		if sl.f != nil {
			sl.f(v)
		}
	}
}

// Len returns the number of connected handlers.
func (s *Signal[T]) Len() int {
	return len(s.slots)
}
