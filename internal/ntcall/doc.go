// Package ntcall adapts the host's event bus into request/response calls.
//
// The host only accepts fire-and-forget requests on four channels and,
// separately, emits push events named by command. A [Bridge] tags each
// request with a correlation id, waits for the reply that carries the id,
// and for two-phase calls then waits for a push event that answers the call.
//
// # Reply conventions
//
// A single-phase call resolves with whatever the host passes back on the
// correlation id.
//
// A two-phase call is selected by [WithReplyCommand]. The correlated reply is
// an acknowledgment: an absent payload, a bare number, or an object with
// "result": 0 means accepted, and anything else rejects the call with the
// host's "errMsg". After an accepted ack the call listens on the reply
// command until a push satisfies its [Predicate]. Calls that can share a
// reply command with other in-flight calls must pass [WithMatch].
//
// By default the push hook is registered after the ack, so a push emitted
// between the ack and that registration is lost and the call times out.
// [WithHookBeforeAck] registers the hook before the request is emitted; the
// predicate then also sees pushes that arrive ahead of the ack, with a nil
// ack argument.
//
// # Lifecycle
//
// A [Call] settles exactly once: resolved, rejected, timed out, or canceled.
// The correlation entry, the push hook and the deadline timer are all removed
// before [Call.Done] is closed.
//
//	b := ntcall.New(bus, ntcall.WithLogger(logger))
//	res, err := b.Invoke(ctx, ntcall.MethodSendMsg, args,
//	    ntcall.WithReplyCommand(ntcall.CommandMsgInfoListUpdate),
//	    ntcall.WithMatch(ntcall.MatchField("seq", "seq")),
//	    ntcall.WithTimeout(10*time.Second),
//	)
//
// # Host input
//
// The bus adapter forwards host traffic to [Bridge.HandleCallback] and
// [Bridge.HandlePush]. Both may be called from any goroutine, including from
// inside the emitter while a request is being emitted.
package ntcall
