package ntcall

import (
	"encoding/json"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Steins-Lab/LLOneBot/internal/logging"
	"github.com/sourcegraph/conc/panics"
)

// hookFunc is called for every push on one of the hook's commands. It
// returns true when the push completed its call.
type hookFunc func(payload json.RawMessage) bool

type hookID uint64

type hook struct {
	id       hookID
	commands []string
	fn       hookFunc
}

// hookRegistry maps push command names to the hooks listening on them.
// Several hooks may share a command; each decides for itself whether a push
// is meant for it, and only the hook that consumes a push is removed.
type hookRegistry struct {
	mu        sync.RWMutex
	byCommand map[string][]*hook
	byID      map[hookID]*hook
	nextID    atomic.Uint64
	logger    *logging.Logger
}

func newHookRegistry(logger *logging.Logger) *hookRegistry {
	return &hookRegistry{
		byCommand: make(map[string][]*hook),
		byID:      make(map[hookID]*hook),
		logger:    logger,
	}
}

// register adds fn under every name in commands and returns one id covering
// all of them. Duplicate names are collapsed.
func (r *hookRegistry) register(commands []string, fn hookFunc) hookID {
	h := &hook{
		id:       hookID(r.nextID.Add(1)),
		commands: compactCommands(commands),
		fn:       fn,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[h.id] = h
	for _, cmd := range h.commands {
		r.byCommand[cmd] = append(r.byCommand[cmd], h)
	}
	return h.id
}

// dispatch hands payload to every hook on command in registration order and
// returns how many hooks consumed it. Hooks run outside the lock; a hook
// removed by an earlier sibling during the same dispatch is skipped.
func (r *hookRegistry) dispatch(command string, payload json.RawMessage) int {
	r.mu.RLock()
	snapshot := slices.Clone(r.byCommand[command])
	r.mu.RUnlock()

	consumed := 0
	for _, h := range snapshot {
		if !r.active(h.id) {
			continue
		}
		if r.safeCall(command, h, payload) {
			consumed++
		}
	}
	return consumed
}

// safeCall runs a hook and recovers from panics so one misbehaving predicate
// cannot starve the other hooks on the same command.
func (r *hookRegistry) safeCall(command string, h *hook, payload json.RawMessage) bool {
	var consumed bool
	if rec := panics.Try(func() { consumed = h.fn(payload) }); rec != nil {
		r.logger.Error("push hook panicked",
			"command", command,
			"hook_id", uint64(h.id),
			"panic", rec.String(),
		)
		return false
	}
	return consumed
}

func (r *hookRegistry) active(id hookID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// remove drops the hook from every command it listens on. Removing an
// unknown or already removed id returns false.
func (r *hookRegistry) remove(id hookID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	for _, cmd := range h.commands {
		hooks := slices.DeleteFunc(r.byCommand[cmd], func(other *hook) bool { return other.id == id })
		if len(hooks) == 0 {
			delete(r.byCommand, cmd)
		} else {
			r.byCommand[cmd] = hooks
		}
	}
	return true
}

// len returns the number of registered hooks.
func (r *hookRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// count returns the number of hooks listening on command.
func (r *hookRegistry) count(command string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCommand[command])
}

func compactCommands(commands []string) []string {
	out := make([]string, 0, len(commands))
	for _, cmd := range commands {
		if cmd != "" && !slices.Contains(out, cmd) {
			out = append(out, cmd)
		}
	}
	return out
}
