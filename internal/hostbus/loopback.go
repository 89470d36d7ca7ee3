package hostbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Steins-Lab/LLOneBot/internal/errors"
	"github.com/Steins-Lab/LLOneBot/internal/logging"
	"github.com/Steins-Lab/LLOneBot/internal/ntcall"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// DefaultQueueSize is the per-channel request buffer.
const DefaultQueueSize = 64

// Sink receives host traffic. *ntcall.Bridge implements it.
type Sink interface {
	HandleCallback(id string, payload json.RawMessage) bool
	HandlePush(command string, payload json.RawMessage) int
}

// Inbound is a request as the host sees it.
type Inbound struct {
	Channel ntcall.Channel
	Request ntcall.Request
	Method  string
	Args    []any
}

// Responder lets a host answer one request.
type Responder interface {
	// Reply invokes the request's correlation callback.
	Reply(payload json.RawMessage) bool
	// Push emits a command event to every listener.
	Push(command string, payload json.RawMessage) int
}

// Host consumes requests. Handle runs on the channel's worker goroutine, so
// it should hand slow work off rather than block.
type Host interface {
	Handle(ctx context.Context, in Inbound, r Responder)
}

// HostFunc adapts a function to Host.
type HostFunc func(ctx context.Context, in Inbound, r Responder)

// Handle calls f.
func (f HostFunc) Handle(ctx context.Context, in Inbound, r Responder) { f(ctx, in, r) }

// Option configures a Loopback.
type Option func(*Loopback)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loopback) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithQueueSize sets the per-channel buffer. Values below 1 keep the default.
func WithQueueSize(n int) Option {
	return func(l *Loopback) {
		if n >= 1 {
			l.queueSize = n
		}
	}
}

type envelope struct {
	channel ntcall.Channel
	req     ntcall.Request
	payload []any
}

// Loopback is an in-process bus between a Sink and a Host. Each of the four
// channels has its own FIFO queue and worker, so requests on one channel are
// seen by the host in emission order while channels proceed independently.
// Emit never blocks.
type Loopback struct {
	host      Host
	logger    *logging.Logger
	queueSize int

	mu      sync.RWMutex
	sink    Sink
	queues  map[ntcall.Channel]chan envelope
	started bool
	closed  bool
	cancel  context.CancelFunc
	workers conc.WaitGroup
}

var _ ntcall.Emitter = (*Loopback)(nil)

// NewLoopback creates a bus that delivers requests to host.
// The host must not be nil.
func NewLoopback(host Host, opts ...Option) *Loopback {
	if host == nil {
		panic("hostbus.NewLoopback: host must not be nil")
	}
	l := &Loopback{
		host:      host,
		logger:    logging.NopLogger(),
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.WithComponent("hostbus")

	l.queues = make(map[ntcall.Channel]chan envelope, len(ntcall.Channels()))
	for _, ch := range ntcall.Channels() {
		l.queues[ch] = make(chan envelope, l.queueSize)
	}
	return l
}

// Bind sets the receiver of host replies and pushes. The bridge takes the
// loopback as its emitter, so binding happens after both exist.
func (l *Loopback) Bind(sink Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// Start runs one worker per channel until ctx is done or Stop is called.
// Requests emitted before Start wait in their queues.
func (l *Loopback) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return errors.NewBusError("start", errors.ErrBusClosed)
	}
	if l.started {
		return nil
	}
	l.started = true

	ctx, l.cancel = context.WithCancel(ctx)
	for ch, q := range l.queues {
		l.workers.Go(func() { l.run(ctx, ch, q) })
	}
	l.logger.Info("bus started", "channels", len(l.queues), "queue_size", l.queueSize)
	return nil
}

// Stop refuses further requests, lets the workers drain what is queued and
// waits for them. It is safe to call more than once.
func (l *Loopback) Stop() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for _, q := range l.queues {
		close(q)
	}
	started := l.started
	l.mu.Unlock()

	if started {
		l.workers.Wait()
		l.cancel()
	}
	l.logger.Info("bus stopped")
}

// Emit queues a request on channel.
func (l *Loopback) Emit(channel ntcall.Channel, req ntcall.Request, payload []any) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return errors.NewBusError("emit", errors.ErrBusClosed).WithChannel(string(channel))
	}
	q, ok := l.queues[channel]
	if !ok {
		return errors.NewBusError("emit", errors.ErrUnknownChannel).WithChannel(string(channel))
	}

	select {
	case q <- envelope{channel: channel, req: req, payload: payload}:
		return nil
	default:
		return errors.NewBusError("emit", errors.ErrQueueFull).WithChannel(string(channel))
	}
}

// Pending returns the number of queued requests on channel.
func (l *Loopback) Pending(channel ntcall.Channel) int {
	return len(l.queues[channel])
}

func (l *Loopback) run(ctx context.Context, ch ntcall.Channel, q <-chan envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-q:
			if !ok {
				return
			}
			l.deliver(ctx, env)
		}
	}
}

func (l *Loopback) deliver(ctx context.Context, env envelope) {
	in := Inbound{Channel: env.channel, Request: env.req}
	if len(env.payload) > 0 {
		in.Method, _ = env.payload[0].(string)
		in.Args = env.payload[1:]
	}

	r := &responder{l: l, id: env.req.CallbackID}
	if rec := panics.Try(func() { l.host.Handle(ctx, in, r) }); rec != nil {
		l.logger.Error("host handler panicked",
			"channel", string(env.channel),
			"method", in.Method,
			"panic", rec.String(),
		)
	}
}

func (l *Loopback) currentSink() Sink {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sink
}

type responder struct {
	l  *Loopback
	id string
}

func (r *responder) Reply(payload json.RawMessage) bool {
	sink := r.l.currentSink()
	if sink == nil {
		r.l.logger.Warn("reply dropped, no sink bound", "call_id", r.id)
		return false
	}
	return sink.HandleCallback(r.id, payload)
}

func (r *responder) Push(command string, payload json.RawMessage) int {
	sink := r.l.currentSink()
	if sink == nil {
		r.l.logger.Warn("push dropped, no sink bound", "command", command)
		return 0
	}
	return sink.HandlePush(command, payload)
}
