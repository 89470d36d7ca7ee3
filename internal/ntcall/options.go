package ntcall

import (
	"time"

	"github.com/Steins-Lab/LLOneBot/internal/logging"
	"github.com/google/uuid"
)

// DefaultTimeout bounds a call when neither the bridge nor the call sets one.
const DefaultTimeout = 5 * time.Second

// Option configures a Bridge.
type Option func(*config)

type config struct {
	logger    *logging.Logger
	timeout   time.Duration
	namespace Namespace
	channel   Channel
	newID     func() string
}

func defaultConfig() config {
	return config{
		logger:    logging.NopLogger(),
		timeout:   DefaultTimeout,
		namespace: DefaultNamespace,
		channel:   DefaultChannel,
		newID:     uuid.NewString,
	}
}

// WithLogger sets the logger for the bridge.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDefaultTimeout sets the timeout used by calls that do not pass
// WithTimeout. A zero or negative value keeps the default (5s).
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDefaultNamespace sets the namespace for calls that do not pass
// WithNamespace.
func WithDefaultNamespace(ns Namespace) Option {
	return func(c *config) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// WithDefaultChannel sets the channel for calls that do not pass WithChannel.
func WithDefaultChannel(ch Channel) Option {
	return func(c *config) {
		if ch != "" {
			c.channel = ch
		}
	}
}

// WithIDGenerator replaces the correlation id generator (uuid v4 by default).
// An id is held from registration until its call settles. A call that draws
// an id still held by another call is rejected with KindEmitFailed wrapping
// ErrInvalidInput.
func WithIDGenerator(fn func() string) Option {
	return func(c *config) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// CallOption configures a single call.
type CallOption func(*callConfig)

type callConfig struct {
	namespace     Namespace
	channel       Channel
	register      bool
	replyCommands []string
	match         Predicate
	hookBeforeAck bool
	timeout       time.Duration
}

func (c *callConfig) convention() Convention {
	if len(c.replyCommands) > 0 {
		return TwoPhase
	}
	return SinglePhase
}

// WithNamespace addresses the call to a host namespace.
func WithNamespace(ns Namespace) CallOption {
	return func(c *callConfig) { c.namespace = ns }
}

// WithChannel emits the call on ch.
func WithChannel(ch Channel) CallOption {
	return func(c *callConfig) { c.channel = ch }
}

// WithRegisterEvent appends "-register" to the request event name.
func WithRegisterEvent() CallOption {
	return func(c *callConfig) { c.register = true }
}

// WithReplyCommand makes the call two-phase: the correlated reply is an ack,
// and the result arrives as a push on any of cmds.
func WithReplyCommand(cmds ...string) CallOption {
	return func(c *callConfig) {
		c.replyCommands = append(c.replyCommands, compactCommands(cmds)...)
	}
}

// WithMatch filters push events for a two-phase call. Without a predicate
// the first push on the reply command resolves the call, which is only safe
// when no other in-flight call listens on the same command.
func WithMatch(p Predicate) CallOption {
	return func(c *callConfig) { c.match = p }
}

// WithHookBeforeAck registers the push hook before the request is emitted
// instead of after a successful ack. Pushes that race ahead of the ack are
// then seen, and the predicate receives a nil ack for them.
func WithHookBeforeAck() CallOption {
	return func(c *callConfig) { c.hookBeforeAck = true }
}

// WithTimeout bounds the call. A zero or negative value uses the bridge
// default.
func WithTimeout(d time.Duration) CallOption {
	return func(c *callConfig) { c.timeout = d }
}
