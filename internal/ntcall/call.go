package ntcall

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/Steins-Lab/LLOneBot/internal/errors"
	"github.com/Steins-Lab/LLOneBot/internal/logging"
)

// Call is one in-flight request. It is created by Bridge.Go, settles exactly
// once, and is safe for concurrent use.
//
// Every terminal transition tears down the call's correlation entry, its push
// hook and its deadline timer before Done is closed, so once Done is closed
// the registries hold nothing for this call.
type Call struct {
	bridge *Bridge
	logger *logging.Logger

	id         string
	method     string
	args       []any
	channel    Channel
	eventName  string
	convention Convention
	replyCmds  []string
	match      Predicate
	timeout    time.Duration
	deadline   time.Time

	mu         sync.Mutex
	state      State
	ack        json.RawMessage
	registered bool // correlation id is ours to release
	hooked     bool
	hook       hookID
	timer      *time.Timer
	result     json.RawMessage
	err        error
	done       chan struct{}
}

// ID returns the correlation id.
func (c *Call) ID() string { return c.id }

// Method returns the host method name.
func (c *Call) Method() string { return c.method }

// Convention returns the reply convention chosen for the call.
func (c *Call) Convention() Convention { return c.convention }

// Deadline returns the time at which the call times out.
func (c *Call) Deadline() time.Time { return c.deadline }

// EventName returns the event name the request was emitted under.
func (c *Call) EventName() string { return c.eventName }

// State returns the current state.
func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ack returns the accepted acknowledgment of a two-phase call, or nil if none
// has been received.
func (c *Call) Ack() json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ack
}

// Done is closed once the call has settled and been torn down.
func (c *Call) Done() <-chan struct{} { return c.done }

// Result returns the outcome. It blocks until the call settles.
func (c *Call) Result() (json.RawMessage, error) {
	<-c.done
	return c.result, c.err
}

// Wait blocks until the call settles or ctx is done. When ctx ends first the
// call is canceled and Wait returns its cancellation error.
func (c *Call) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		c.cancel(ctx.Err())
		<-c.done
	}
	return c.result, c.err
}

// Cancel settles a pending call as canceled. It returns false if the call had
// already settled.
func (c *Call) Cancel() bool {
	return c.cancel(nil)
}

func (c *Call) cancel(cause error) bool {
	err := c.newError(errors.KindCanceled)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return c.settle(StateCanceled, nil, err)
}

func (c *Call) newError(kind errors.Kind) *errors.CallError {
	return errors.NewCallError(kind, c.method).
		WithCallID(c.id).
		WithArgs(c.args).
		WithChannel(string(c.channel)).
		WithEventName(c.eventName)
}

// settle moves the call to a terminal state. Later calls are no-ops that
// return false.
func (c *Call) settle(state State, result json.RawMessage, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settleLocked(state, result, err)
}

func (c *Call) settleLocked(state State, result json.RawMessage, err error) bool {
	if c.state.Terminal() {
		return false
	}
	c.state = state
	c.result = result
	c.err = err

	if c.timer != nil {
		c.timer.Stop()
	}
	if c.registered {
		c.bridge.callbacks.release(c.id)
		c.registered = false
	}
	if c.hooked {
		c.bridge.hooks.remove(c.hook)
		c.hooked = false
	}
	close(c.done)
	return true
}

// registerHookLocked installs the push hook. c.mu must be held.
func (c *Call) registerHookLocked() {
	if c.hooked {
		return
	}
	c.hook = c.bridge.hooks.register(c.replyCmds, c.onPush)
	c.hooked = true
}

// onReply handles the correlated reply of a single-phase call.
func (c *Call) onReply(payload json.RawMessage) {
	if c.settle(StateResolved, clonePayload(payload), nil) {
		c.logger.Debug("nt call resolved", "state", StateResolved.String())
	}
}

// onAck handles the first-phase reply of a two-phase call.
func (c *Call) onAck(payload json.RawMessage) {
	accepted, msg := classifyAck(payload)
	if !accepted {
		err := c.newError(errors.KindHostRejected).WithHostMessage(msg)
		if c.settle(StateRejected, nil, err) {
			c.logger.Warn("nt call failed", "ack", string(payload), "err_msg", msg)
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return
	}
	c.ack = clonePayload(payload)
	c.state = StateAwaitingPush
	// In the default mode the hook only exists from here on, so a push the
	// host sent between the ack and this point is never seen.
	c.registerHookLocked()
	c.logger.Debug("nt call acknowledged", "commands", c.replyCmds)
}

// onPush evaluates one push on the reply command. The predicate runs without
// the call lock held.
func (c *Call) onPush(payload json.RawMessage) bool {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return false
	}
	ack := c.ack
	c.mu.Unlock()

	if c.match != nil && !c.match(payload, ack) {
		return false
	}
	if !c.settle(StateResolved, clonePayload(payload), nil) {
		return false
	}
	c.logger.Debug("nt call resolved", "state", StateResolved.String())
	return true
}

// onDeadline fires from the timer goroutine.
func (c *Call) onDeadline() {
	if c.settle(StateTimedOut, nil, c.newError(errors.KindTimeout)) {
		c.logger.Warn("nt call timed out",
			"channel", string(c.channel),
			"event", c.eventName,
			"args", c.args,
			"timeout_ms", c.timeout.Milliseconds(),
		)
	}
}

func clonePayload(p json.RawMessage) json.RawMessage {
	if p == nil {
		return nil
	}
	return slices.Clone(p)
}
