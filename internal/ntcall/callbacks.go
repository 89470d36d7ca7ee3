package ntcall

import (
	"encoding/json"
	"sync"
)

// callbackFunc receives the host's reply for one correlation id.
type callbackFunc func(payload json.RawMessage)

// callbackRegistry maps correlation ids to the pending call waiting on them.
// Delivery is at-most-once: the callback is taken out before it runs, so a
// host that replies twice on the same id reaches the call only once.
//
// An id stays reserved after delivery until the owning call releases it, so
// a two-phase call awaiting its push still holds its id and a second call
// cannot register the same one.
type callbackRegistry struct {
	mu      sync.Mutex
	entries map[string]callbackFunc // nil once delivered
	waiting int
}

func newCallbackRegistry() *callbackRegistry {
	return &callbackRegistry{entries: make(map[string]callbackFunc)}
}

// register adds fn under id. It returns false without replacing anything if
// id is held by a call that has not released it.
func (r *callbackRegistry) register(id string, fn callbackFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return false
	}
	r.entries[id] = fn
	r.waiting++
	return true
}

// deliver takes the callback for id and calls it with payload outside the
// lock. The id stays reserved. It reports whether a callback was waiting.
func (r *callbackRegistry) deliver(id string, payload json.RawMessage) bool {
	r.mu.Lock()
	fn := r.entries[id]
	if fn != nil {
		r.entries[id] = nil
		r.waiting--
	}
	r.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(payload)
	return true
}

// release frees id, dropping its callback if it was never delivered. It
// reports whether id was held.
func (r *callbackRegistry) release(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := r.entries[id]
	if !ok {
		return false
	}
	if fn != nil {
		r.waiting--
	}
	delete(r.entries, id)
	return true
}

// len returns the number of callbacks still awaiting a reply.
func (r *callbackRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting
}

// held returns the number of reserved ids, delivered or not.
func (r *callbackRegistry) held() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
