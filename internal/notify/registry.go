// Package notify provides a minimal observer registry used to publish game
// events to any number of listeners.
package notify

// Handle identifies a registered listener.
type Handle uint64

type entry[T any] struct {
	handle Handle
	fn     func(T)
}

// Registry is an ordered list of listeners for events of type T.
// The zero value is ready to use. It is not safe for concurrent use.
type Registry[T any] struct {
	next      Handle
	listeners []entry[T]
}

// Add registers fn and returns a handle for removing it later.
func (r *Registry[T]) Add(fn func(T)) Handle {
	r.next++
	r.listeners = append(r.listeners, entry[T]{handle: r.next, fn: fn})
	return r.next
}

// Remove unregisters the listener. It reports whether the handle was known.
func (r *Registry[T]) Remove(h Handle) bool {
	for i, e := range r.listeners {
		if e.handle == h {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Emit calls every listener in registration order. Listeners added or removed
// during Emit take effect from the next call.
func (r *Registry[T]) Emit(v T) {
	listeners := r.listeners
	for _, e := range listeners {
		e.fn(v)
	}
}

// Len returns the number of registered listeners.
func (r *Registry[T]) Len() int {
	return len(r.listeners)
}
