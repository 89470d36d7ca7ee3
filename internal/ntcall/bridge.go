package ntcall

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/Steins-Lab/LLOneBot/internal/errors"
	"github.com/Steins-Lab/LLOneBot/internal/logging"
)

// Bridge turns the host's fire-and-forget bus into awaitable calls. It owns
// the correlation and push hook registries shared by all calls, so a process
// normally has exactly one Bridge wired to its bus adapter.
type Bridge struct {
	emitter   Emitter
	logger    *logging.Logger
	callbacks *callbackRegistry
	hooks     *hookRegistry

	namespace Namespace
	channel   Channel
	newID     func() string
	timeout   atomic.Int64 // nanoseconds
}

// New creates a Bridge that emits requests through emitter.
// The emitter must not be nil.
func New(emitter Emitter, opts ...Option) *Bridge {
	if emitter == nil {
		panic("ntcall.New: emitter must not be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger.WithComponent("ntcall")
	b := &Bridge{
		emitter:   emitter,
		logger:    logger,
		callbacks: newCallbackRegistry(),
		hooks:     newHookRegistry(logger),
		namespace: cfg.namespace,
		channel:   cfg.channel,
		newID:     cfg.newID,
	}
	b.timeout.Store(int64(cfg.timeout))
	return b
}

// SetDefaultTimeout changes the timeout for calls started afterwards that do
// not pass WithTimeout. Non-positive values are ignored.
func (b *Bridge) SetDefaultTimeout(d time.Duration) {
	if d > 0 {
		b.timeout.Store(int64(d))
	}
}

// DefaultTimeout returns the current default call timeout.
func (b *Bridge) DefaultTimeout() time.Duration {
	return time.Duration(b.timeout.Load())
}

// Invoke starts a call and waits for its result. Canceling ctx cancels the
// call.
func (b *Bridge) Invoke(ctx context.Context, method string, args []any, opts ...CallOption) (json.RawMessage, error) {
	return b.Go(method, args, opts...).Wait(ctx)
}

// Go starts a call and returns without waiting. The request has been handed
// to the emitter by the time Go returns; the result is available through the
// returned Call.
func (b *Bridge) Go(method string, args []any, opts ...CallOption) *Call {
	cc := callConfig{namespace: b.namespace, channel: b.channel}
	for _, opt := range opts {
		opt(&cc)
	}
	if cc.timeout <= 0 {
		cc.timeout = b.DefaultTimeout()
	}

	id := b.newID()
	c := &Call{
		bridge:     b,
		logger:     b.logger.WithCall(id).WithMethod(method),
		id:         id,
		method:     method,
		args:       args,
		channel:    cc.channel,
		eventName:  EventName(cc.namespace, cc.channel, cc.register),
		convention: cc.convention(),
		replyCmds:  cc.replyCommands,
		match:      cc.match,
		timeout:    cc.timeout,
		deadline:   time.Now().Add(cc.timeout),
		done:       make(chan struct{}),
	}

	if !b.setup(c, cc.hookBeforeAck) {
		return c
	}
	b.emit(c)
	return c
}

// setup wires the call into the registries and arms its timer. It runs under
// the call's lock so a deadline or reply cannot observe a half-registered
// call. It returns false if the call was rejected before emission.
func (b *Bridge) setup(c *Call, hookBeforeAck bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.channel.Valid() {
		err := c.newError(errors.KindEmitFailed).WithCause(errors.ErrUnknownChannel)
		c.settleLocked(StateRejected, nil, err)
		c.logger.Warn("nt call failed", "error", err.Error())
		return false
	}

	onReply := c.onReply
	if c.convention == TwoPhase {
		onReply = c.onAck
	}
	if !b.callbacks.register(c.id, onReply) {
		err := c.newError(errors.KindEmitFailed).
			WithCause(errors.Wrap(errors.ErrInvalidInput, "duplicate correlation id"))
		c.settleLocked(StateRejected, nil, err)
		c.logger.Warn("nt call failed", "error", err.Error())
		return false
	}
	c.registered = true

	if c.convention == TwoPhase && hookBeforeAck {
		c.registerHookLocked()
	}
	c.timer = time.AfterFunc(c.timeout, c.onDeadline)
	return true
}

// emit hands the request to the emitter without holding the call lock, so a
// host that answers from inside Emit does not deadlock.
func (b *Bridge) emit(c *Call) {
	req := Request{Type: RequestType, CallbackID: c.id, EventName: c.eventName}
	payload := make([]any, 0, len(c.args)+1)
	payload = append(payload, c.method)
	payload = append(payload, c.args...)

	c.logger.Debug("nt call emitted",
		"channel", string(c.channel),
		"event", c.eventName,
		"convention", c.convention.String(),
	)

	if err := b.emitter.Emit(c.channel, req, payload); err != nil {
		callErr := c.newError(errors.KindEmitFailed).WithCause(err)
		if c.settle(StateRejected, nil, callErr) {
			c.logger.Warn("nt call failed", "error", callErr.Error())
		}
	}
}

// HandleCallback delivers the host's reply for correlation id. It returns
// false when nothing is waiting on id, which covers late and duplicate
// replies.
func (b *Bridge) HandleCallback(id string, payload json.RawMessage) bool {
	return b.callbacks.deliver(id, payload)
}

// HandlePush offers a push event to every call listening on command and
// returns how many calls it resolved. A push no call claims is ignored.
func (b *Bridge) HandlePush(command string, payload json.RawMessage) int {
	n := b.hooks.dispatch(command, payload)
	if n == 0 {
		b.logger.Debug("push ignored", "command", command, "listeners", b.hooks.count(command))
	}
	return n
}

// PendingCallbacks returns the number of correlation entries awaiting a reply.
func (b *Bridge) PendingCallbacks() int {
	return b.callbacks.len()
}

// ActiveHooks returns the number of registered push hooks.
func (b *Bridge) ActiveHooks() int {
	return b.hooks.len()
}

// HooksOn returns the number of hooks listening on command.
func (b *Bridge) HooksOn(command string) int {
	return b.hooks.count(command)
}

var _ Invoker = (*Bridge)(nil)
