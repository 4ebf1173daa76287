// Package signal implements receiver-keyed notification lists.
//
// A receiver connects once to a Signal; connecting again replaces its
// function. Emission order is connection order.
package signal

import "sync"

// Func is a receiver function. It receives the emitted value.
type Func[T any] func(v T)

type connection[T any] struct {
	recv any
	fn   Func[T]
}

// Signal is a list of receiver connections. The zero value is ready to use.
// Signal must not be copied after first use.
type Signal[T any] struct {
	mu   sync.Mutex
	cons []connection[T]
}

// Connect attaches fn for recv, replacing an existing connection of recv.
// recv must be comparable, typically a pointer.
func (s *Signal[T]) Connect(recv any, fn Func[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cons {
		if s.cons[i].recv == recv {
			s.cons[i].fn = fn
			return
		}
	}
	s.cons = append(s.cons, connection[T]{recv: recv, fn: fn})
}

// Disconnect removes the connection of recv. Returns true if it existed.
func (s *Signal[T]) Disconnect(recv any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cons {
		if s.cons[i].recv == recv {
			s.cons = append(s.cons[:i], s.cons[i+1:]...)
			return true
		}
	}
	return false
}

// Connected reports whether recv is connected.
func (s *Signal[T]) Connected(recv any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cons {
		if s.cons[i].recv == recv {
			return true
		}
	}
	return false
}

// Len returns the number of connections.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cons)
}

// Emit calls every connected function with v. Receivers may connect or
// disconnect from inside their function; such changes take effect on the
// next Emit.
func (s *Signal[T]) Emit(v T) {
	s.mu.Lock()
	snapshot := make([]connection[T], len(s.cons))
	copy(snapshot, s.cons)
	s.mu.Unlock()

	for _, c := range snapshot {
		c.fn(v)
	}
}
