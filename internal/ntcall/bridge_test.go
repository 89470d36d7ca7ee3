package ntcall_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Steins-Lab/LLOneBot/internal/errors"
	"github.com/Steins-Lab/LLOneBot/internal/ntcall"
	"github.com/Steins-Lab/LLOneBot/internal/testutil"
)

func newBridge(t *testing.T, opts ...ntcall.Option) (*ntcall.Bridge, *testutil.RecordingEmitter) {
	t.Helper()
	em := &testutil.RecordingEmitter{}
	return ntcall.New(em, opts...), em
}

func assertDrained(t *testing.T, b *ntcall.Bridge) {
	t.Helper()
	if n := b.PendingCallbacks(); n != 0 {
		t.Errorf("PendingCallbacks() = %d, want 0", n)
	}
	if n := b.ActiveHooks(); n != 0 {
		t.Errorf("ActiveHooks() = %d, want 0", n)
	}
}

func TestNew_NilEmitterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil emitter")
		}
	}()
	ntcall.New(nil)
}

func TestGo_EmitsEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		opts      []ntcall.CallOption
		channel   ntcall.Channel
		eventName string
	}{
		{
			name:      "defaults",
			channel:   ntcall.ChannelUp2,
			eventName: "ns-ntApi-2",
		},
		{
			name: "namespace channel and register",
			opts: []ntcall.CallOption{
				ntcall.WithNamespace(ntcall.NamespaceGlobalData),
				ntcall.WithChannel(ntcall.ChannelUp1),
				ntcall.WithRegisterEvent(),
			},
			channel:   ntcall.ChannelUp1,
			eventName: "ns-GlobalDataApi-1-register",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, em := newBridge(t)
			c := b.Go("group/kick", []any{"g1", "u1"}, tt.opts...)
			defer c.Cancel()

			got := em.Last(t)
			if got.Channel != tt.channel {
				t.Errorf("channel = %q, want %q", got.Channel, tt.channel)
			}
			want := ntcall.Request{Type: "request", CallbackID: c.ID(), EventName: tt.eventName}
			if got.Request != want {
				t.Errorf("request = %+v, want %+v", got.Request, want)
			}
			if len(got.Payload) != 3 || got.Payload[0] != "group/kick" || got.Payload[1] != "g1" || got.Payload[2] != "u1" {
				t.Errorf("payload = %v, want [group/kick g1 u1]", got.Payload)
			}
			if c.EventName() != tt.eventName {
				t.Errorf("EventName() = %q", c.EventName())
			}
		})
	}
}

func TestGo_UniqueCorrelationIDs(t *testing.T) {
	b, _ := newBridge(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		c := b.Go("m", nil)
		if seen[c.ID()] {
			t.Fatalf("correlation id %q reused", c.ID())
		}
		seen[c.ID()] = true
		defer c.Cancel()
	}
}

func TestSinglePhase_ResolvesOnceWithPayload(t *testing.T) {
	b, em := newBridge(t)
	c := b.Go("group/kick", []any{"g1", "u1"})

	if c.Convention() != ntcall.SinglePhase {
		t.Fatalf("Convention() = %v, want single-phase", c.Convention())
	}

	id := em.Last(t).Request.CallbackID
	if !b.HandleCallback(id, json.RawMessage(`{"result":0}`)) {
		t.Fatal("first HandleCallback() = false")
	}
	if b.HandleCallback(id, json.RawMessage(`{"result":1}`)) {
		t.Error("second HandleCallback() should be a no-op")
	}

	res, err := c.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if string(res) != `{"result":0}` {
		t.Errorf("Result() = %s, want {\"result\":0}", res)
	}
	if c.State() != ntcall.StateResolved {
		t.Errorf("State() = %v, want resolved", c.State())
	}
	assertDrained(t, b)
}

func TestSinglePhase_NonZeroResultIsStillAReply(t *testing.T) {
	b, em := newBridge(t)
	c := b.Go("m", nil)
	b.HandleCallback(em.Last(t).Request.CallbackID, json.RawMessage(`{"result":5}`))

	res, err := c.Result()
	if err != nil || string(res) != `{"result":5}` {
		t.Errorf("Result() = %s, %v", res, err)
	}
}

func TestTwoPhase_AckThenPush(t *testing.T) {
	b, em := newBridge(t)
	c := b.Go("msg/send", []any{"peer"}, ntcall.WithReplyCommand("msg/pushed"))

	if c.Convention() != ntcall.TwoPhase {
		t.Fatalf("Convention() = %v, want two-phase", c.Convention())
	}
	if b.ActiveHooks() != 0 {
		t.Errorf("ActiveHooks() before ack = %d, want 0", b.ActiveHooks())
	}

	b.HandleCallback(em.Last(t).Request.CallbackID, json.RawMessage(`0`))
	if c.State() != ntcall.StateAwaitingPush {
		t.Fatalf("State() after ack = %v, want awaiting_push", c.State())
	}
	if string(c.Ack()) != `0` {
		t.Errorf("Ack() = %s, want 0", c.Ack())
	}
	if b.HooksOn("msg/pushed") != 1 {
		t.Errorf("HooksOn() = %d, want 1", b.HooksOn("msg/pushed"))
	}

	if n := b.HandlePush("msg/pushed", json.RawMessage(`{"seq":7}`)); n != 1 {
		t.Errorf("HandlePush() = %d, want 1", n)
	}
	res, err := c.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if string(res) != `{"seq":7}` {
		t.Errorf("Result() = %s", res)
	}
	assertDrained(t, b)
}

func TestTwoPhase_UndefinedAckAccepted(t *testing.T) {
	b, em := newBridge(t)
	c := b.Go("m", nil, ntcall.WithReplyCommand("cmd"))

	b.HandleCallback(em.Last(t).Request.CallbackID, nil)
	if c.State() != ntcall.StateAwaitingPush {
		t.Fatalf("State() = %v, want awaiting_push", c.State())
	}
	b.HandlePush("cmd", json.RawMessage(`{}`))
	if _, err := c.Result(); err != nil {
		t.Errorf("Result() error = %v", err)
	}
}

func TestTwoPhase_AckRejected(t *testing.T) {
	for _, hookBeforeAck := range []bool{false, true} {
		name := "deferred hook"
		opts := []ntcall.CallOption{ntcall.WithReplyCommand("msg/pushed")}
		if hookBeforeAck {
			name = "hook before ack"
			opts = append(opts, ntcall.WithHookBeforeAck())
		}

		t.Run(name, func(t *testing.T) {
			b, em := newBridge(t)
			c := b.Go("msg/send", []any{"peer"}, opts...)

			b.HandleCallback(em.Last(t).Request.CallbackID, json.RawMessage(`{"result":1,"errMsg":"x"}`))

			_, err := c.Result()
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !strings.Contains(err.Error(), "x") {
				t.Errorf("error %q does not carry host message", err)
			}
			if !errors.Is(err, errors.ErrHostRejected) || !errors.IsHostRejected(err) {
				t.Errorf("error %v is not a host rejection", err)
			}
			var callErr *errors.CallError
			if !errors.As(err, &callErr) || callErr.HostMessage != "x" {
				t.Errorf("CallError.HostMessage = %+v", callErr)
			}
			if c.State() != ntcall.StateRejected {
				t.Errorf("State() = %v, want rejected", c.State())
			}
			assertDrained(t, b)
		})
	}
}

func TestTimeout_DrainsRegistries(t *testing.T) {
	b, _ := newBridge(t)
	c := b.Go("msg/send", []any{"peer", 1},
		ntcall.WithReplyCommand("msg/pushed"),
		ntcall.WithHookBeforeAck(),
		ntcall.WithTimeout(30*time.Millisecond),
	)
	if b.ActiveHooks() != 1 || b.PendingCallbacks() != 1 {
		t.Fatalf("setup: hooks=%d callbacks=%d, want 1/1", b.ActiveHooks(), b.PendingCallbacks())
	}

	_, err := c.Result()
	if !errors.IsTimeout(err) {
		t.Fatalf("Result() error = %v, want timeout", err)
	}
	for _, want := range []string{"method=msg/send", "channel=IPC_UP_2", "event=ns-ntApi-2", "args=[peer 1]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("timeout error %q missing %q", err, want)
		}
	}
	if !errors.IsRetryable(err) {
		t.Error("timeouts should be retryable")
	}
	if c.State() != ntcall.StateTimedOut {
		t.Errorf("State() = %v, want timed_out", c.State())
	}
	assertDrained(t, b)
}

func TestTimeout_LateReplyIgnored(t *testing.T) {
	b, em := newBridge(t)
	c := b.Go("m", nil, ntcall.WithTimeout(10*time.Millisecond))
	<-c.Done()

	if b.HandleCallback(em.Last(t).Request.CallbackID, json.RawMessage(`1`)) {
		t.Error("reply after timeout should find nothing")
	}
	if c.State() != ntcall.StateTimedOut {
		t.Errorf("State() = %v, want timed_out", c.State())
	}
}

func TestScenario_AckNeverArrives(t *testing.T) {
	b, _ := newBridge(t)

	start := time.Now()
	_, err := b.Invoke(context.Background(), "msg/send", nil,
		ntcall.WithReplyCommand("msg/pushed"),
		ntcall.WithTimeout(100*time.Millisecond),
	)
	elapsed := time.Since(start)

	if !errors.Is(err, errors.ErrTimeout) {
		t.Fatalf("Invoke() error = %v, want timeout", err)
	}
	if elapsed < 100*time.Millisecond || elapsed > time.Second {
		t.Errorf("rejected after %v, want ~100ms", elapsed)
	}
	assertDrained(t, b)
}

func TestIsolation_SharedReplyCommand(t *testing.T) {
	b, em := newBridge(t)
	opts := []ntcall.CallOption{
		ntcall.WithReplyCommand("msg/pushed"),
		ntcall.WithMatch(ntcall.MatchField("seq", "seq")),
	}

	c5 := b.Go("msg/send", []any{"a"}, opts...)
	id5 := em.Last(t).Request.CallbackID
	c7 := b.Go("msg/send", []any{"b"}, opts...)
	id7 := em.Last(t).Request.CallbackID

	b.HandleCallback(id5, json.RawMessage(`{"result":0,"seq":5}`))
	b.HandleCallback(id7, json.RawMessage(`{"result":0,"seq":7}`))
	if b.HooksOn("msg/pushed") != 2 {
		t.Fatalf("HooksOn() = %d, want 2", b.HooksOn("msg/pushed"))
	}

	if n := b.HandlePush("msg/pushed", json.RawMessage(`{"seq":7,"from":"b"}`)); n != 1 {
		t.Errorf("HandlePush(seq 7) = %d, want 1", n)
	}
	if c5.State() != ntcall.StateAwaitingPush {
		t.Errorf("seq 5 call state = %v, want awaiting_push", c5.State())
	}
	if b.HooksOn("msg/pushed") != 1 {
		t.Errorf("HooksOn() = %d, want sibling hook to remain", b.HooksOn("msg/pushed"))
	}

	b.HandlePush("msg/pushed", json.RawMessage(`{"seq":5,"from":"a"}`))

	r5, err5 := c5.Result()
	r7, err7 := c7.Result()
	if err5 != nil || err7 != nil {
		t.Fatalf("errors: %v, %v", err5, err7)
	}
	if !strings.Contains(string(r5), `"from":"a"`) || !strings.Contains(string(r7), `"from":"b"`) {
		t.Errorf("calls resolved with each other's push: %s / %s", r5, r7)
	}
	assertDrained(t, b)
}

func TestScenario_MsgSendSequence(t *testing.T) {
	b, em := newBridge(t)
	em.OnEmit = func(e testutil.Emitted) {
		go func() {
			b.HandleCallback(e.Request.CallbackID, json.RawMessage(`{"result":0,"seq":7}`))
			b.HandlePush("msg/pushed", json.RawMessage(`{"seq":5}`))
			b.HandlePush("msg/pushed", json.RawMessage(`{"seq":7}`))
		}()
	}

	res, err := b.Invoke(context.Background(), "msg/send", []any{"peer", []any{"elem"}},
		ntcall.WithReplyCommand("msg/pushed"),
		ntcall.WithMatch(func(push, ack json.RawMessage) bool {
			return ntcall.MatchField("seq", "seq")(push, ack)
		}),
	)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if string(res) != `{"seq":7}` {
		t.Errorf("Invoke() = %s, want {\"seq\":7}", res)
	}
	assertDrained(t, b)
}

func TestScenario_GroupKick(t *testing.T) {
	b, em := newBridge(t)
	em.OnEmit = func(e testutil.Emitted) {
		time.AfterFunc(20*time.Millisecond, func() {
			b.HandleCallback(e.Request.CallbackID, json.RawMessage(`{"result":0}`))
		})
	}

	start := time.Now()
	res, err := b.Invoke(context.Background(), "group/kick", []any{"g1", "u1"},
		ntcall.WithTimeout(5000*time.Millisecond))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if string(res) != `{"result":0}` {
		t.Errorf("Invoke() = %s", res)
	}
	if time.Since(start) >= 5*time.Second {
		t.Error("call should resolve well before its timeout")
	}
}

func TestIdempotentTeardown(t *testing.T) {
	b, em := newBridge(t)
	c := b.Go("m", nil, ntcall.WithTimeout(20*time.Millisecond))
	b.HandleCallback(em.Last(t).Request.CallbackID, json.RawMessage(`1`))

	if c.Cancel() {
		t.Error("Cancel() on a resolved call should return false")
	}
	time.Sleep(40 * time.Millisecond)

	res, err := c.Result()
	if err != nil || string(res) != `1` {
		t.Errorf("Result() = %s, %v after stale timer", res, err)
	}
	if c.State() != ntcall.StateResolved {
		t.Errorf("State() = %v, want resolved", c.State())
	}
}

func TestCancel(t *testing.T) {
	b, _ := newBridge(t)
	c := b.Go("m", nil, ntcall.WithReplyCommand("cmd"), ntcall.WithHookBeforeAck())

	if !c.Cancel() {
		t.Fatal("Cancel() = false on pending call")
	}
	if c.Cancel() {
		t.Error("second Cancel() should return false")
	}
	if _, err := c.Result(); !errors.Is(err, errors.ErrCanceled) {
		t.Errorf("Result() error = %v, want canceled", err)
	}
	assertDrained(t, b)
}

func TestInvoke_ContextCanceled(t *testing.T) {
	b, _ := newBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := b.Invoke(ctx, "m", nil, ntcall.WithTimeout(time.Minute))
	if !errors.Is(err, errors.ErrCanceled) {
		t.Fatalf("Invoke() error = %v, want canceled", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Invoke() error = %v, want context cause", err)
	}
	assertDrained(t, b)
}

func TestInvoke_SynchronousReplyInsideEmit(t *testing.T) {
	b, em := newBridge(t)
	em.OnEmit = func(e testutil.Emitted) {
		b.HandleCallback(e.Request.CallbackID, json.RawMessage(`0`))
		b.HandlePush("cmd", json.RawMessage(`{"ok":true}`))
	}

	res, err := b.Invoke(context.Background(), "m", nil, ntcall.WithReplyCommand("cmd"))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if string(res) != `{"ok":true}` {
		t.Errorf("Invoke() = %s", res)
	}
}

func TestEmitFailure(t *testing.T) {
	b, em := newBridge(t)
	em.FailWith(errors.ErrBusClosed)

	_, err := b.Invoke(context.Background(), "m", nil, ntcall.WithReplyCommand("cmd"), ntcall.WithHookBeforeAck())
	if !errors.Is(err, errors.ErrEmitFailed) || !errors.Is(err, errors.ErrBusClosed) {
		t.Fatalf("Invoke() error = %v, want emit failure wrapping bus closed", err)
	}
	assertDrained(t, b)
}

func TestUnknownChannel(t *testing.T) {
	b, em := newBridge(t)
	_, err := b.Invoke(context.Background(), "m", nil, ntcall.WithChannel("IPC_UP_9"))

	if !errors.Is(err, errors.ErrUnknownChannel) {
		t.Fatalf("Invoke() error = %v, want unknown channel", err)
	}
	if len(em.Emitted()) != 0 {
		t.Error("nothing should be emitted on an unknown channel")
	}
	assertDrained(t, b)
}

func TestDuplicateCorrelationID(t *testing.T) {
	b, _ := newBridge(t, ntcall.WithIDGenerator(func() string { return "fixed" }))

	first := b.Go("m", nil)
	defer first.Cancel()
	second := b.Go("m", nil)

	if _, err := second.Result(); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("second call error = %v, want invalid input", err)
	}
	if first.State() != ntcall.StatePending {
		t.Errorf("first call state = %v, want pending", first.State())
	}
	if b.PendingCallbacks() != 1 {
		t.Errorf("PendingCallbacks() = %d, want first entry kept", b.PendingCallbacks())
	}
}

func TestDuplicateCorrelationID_AfterAck(t *testing.T) {
	b, _ := newBridge(t, ntcall.WithIDGenerator(func() string { return "same" }))

	first := b.Go("msg/send", nil, ntcall.WithReplyCommand("msg/update"))
	b.HandleCallback("same", json.RawMessage(`0`))
	if first.State() != ntcall.StateAwaitingPush {
		t.Fatalf("first call state = %v, want awaiting push", first.State())
	}

	// the ack consumed the callback but the first call still owns the id
	second := b.Go("group/kick", nil)
	if _, err := second.Result(); !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("second call error = %v, want invalid input", err)
	}

	first.Cancel()

	third := b.Go("group/kick", nil)
	if third.State() != ntcall.StatePending {
		t.Fatalf("third call state = %v, want pending", third.State())
	}
	if !b.HandleCallback("same", json.RawMessage(`{"result":0}`)) {
		t.Fatal("reply for the reused id was not delivered")
	}
	if got, err := third.Result(); err != nil || string(got) != `{"result":0}` {
		t.Errorf("third call = %s, %v", got, err)
	}
	assertDrained(t, b)
}

func TestHookBeforeAck_PushBeforeAck(t *testing.T) {
	b, em := newBridge(t)

	var sawAck json.RawMessage = json.RawMessage(`"unset"`)
	c := b.Go("profile/detail", []any{"u_1"},
		ntcall.WithReplyCommand("profile/changed"),
		ntcall.WithHookBeforeAck(),
		ntcall.WithMatch(func(push, ack json.RawMessage) bool {
			sawAck = ack
			return ntcall.MatchValue("uid", "u_1")(push, ack)
		}),
	)

	if n := b.HandlePush("profile/changed", json.RawMessage(`{"uid":"u_1"}`)); n != 1 {
		t.Fatalf("HandlePush() = %d, want 1", n)
	}
	if sawAck != nil {
		t.Errorf("predicate ack = %s, want nil before ack", sawAck)
	}
	if b.HandleCallback(em.Last(t).Request.CallbackID, json.RawMessage(`0`)) {
		t.Error("ack after resolution should find nothing")
	}
	if res, err := c.Result(); err != nil || string(res) != `{"uid":"u_1"}` {
		t.Errorf("Result() = %s, %v", res, err)
	}
	assertDrained(t, b)
}

// In the default mode the hook is registered only after the ack, so a push
// the host sends first is lost and the call can only time out.
func TestDeferredHook_PushBeforeAckIsMissed(t *testing.T) {
	b, em := newBridge(t)
	c := b.Go("m", nil, ntcall.WithReplyCommand("cmd"), ntcall.WithTimeout(30*time.Millisecond))

	if n := b.HandlePush("cmd", json.RawMessage(`{}`)); n != 0 {
		t.Errorf("HandlePush() = %d, want 0 before ack", n)
	}
	b.HandleCallback(em.Last(t).Request.CallbackID, json.RawMessage(`0`))

	if _, err := c.Result(); !errors.IsTimeout(err) {
		t.Errorf("Result() error = %v, want timeout", err)
	}
	assertDrained(t, b)
}

func TestMultipleReplyCommands(t *testing.T) {
	b, em := newBridge(t)
	c := b.Go("m", nil, ntcall.WithReplyCommand("a", "b"))
	b.HandleCallback(em.Last(t).Request.CallbackID, json.RawMessage(`0`))

	if b.ActiveHooks() != 1 || b.HooksOn("a") != 1 || b.HooksOn("b") != 1 {
		t.Fatalf("hooks: total=%d a=%d b=%d", b.ActiveHooks(), b.HooksOn("a"), b.HooksOn("b"))
	}
	b.HandlePush("b", json.RawMessage(`"from b"`))

	if res, _ := c.Result(); string(res) != `"from b"` {
		t.Errorf("Result() = %s", res)
	}
	if b.HooksOn("a") != 0 {
		t.Error("hook still listening on a after resolution")
	}
}

func TestPanickingPredicateDoesNotBlockSiblings(t *testing.T) {
	b, em := newBridge(t)

	bad := b.Go("m", nil, ntcall.WithReplyCommand("cmd"), ntcall.WithMatch(func(json.RawMessage, json.RawMessage) bool {
		panic("boom")
	}))
	defer bad.Cancel()
	b.HandleCallback(em.Last(t).Request.CallbackID, json.RawMessage(`0`))

	good := b.Go("m", nil, ntcall.WithReplyCommand("cmd"))
	b.HandleCallback(em.Last(t).Request.CallbackID, json.RawMessage(`0`))

	if n := b.HandlePush("cmd", json.RawMessage(`1`)); n != 1 {
		t.Errorf("HandlePush() = %d, want 1", n)
	}
	if _, err := good.Result(); err != nil {
		t.Errorf("good call error = %v", err)
	}
	if bad.State() != ntcall.StateAwaitingPush {
		t.Errorf("bad call state = %v, want awaiting_push", bad.State())
	}
}

func TestDefaultTimeout(t *testing.T) {
	b, _ := newBridge(t, ntcall.WithDefaultTimeout(time.Minute))
	if b.DefaultTimeout() != time.Minute {
		t.Errorf("DefaultTimeout() = %v", b.DefaultTimeout())
	}

	b.SetDefaultTimeout(20 * time.Millisecond)
	b.SetDefaultTimeout(-1)
	if b.DefaultTimeout() != 20*time.Millisecond {
		t.Fatalf("DefaultTimeout() = %v, want 20ms", b.DefaultTimeout())
	}

	c := b.Go("m", nil)
	if d := time.Until(c.Deadline()); d > 20*time.Millisecond {
		t.Errorf("deadline %v away, want <= 20ms", d)
	}
	if _, err := c.Result(); !errors.IsTimeout(err) {
		t.Errorf("Result() error = %v, want timeout", err)
	}
}

func TestBridgeDefaults(t *testing.T) {
	b, em := newBridge(t,
		ntcall.WithDefaultNamespace(ntcall.NamespaceFS),
		ntcall.WithDefaultChannel(ntcall.ChannelUp3),
	)
	c := b.Go("getFileType", []any{"/tmp/a"})
	defer c.Cancel()

	got := em.Last(t)
	if got.Channel != ntcall.ChannelUp3 || got.Request.EventName != "ns-FsApi-3" {
		t.Errorf("emitted on %s as %s", got.Channel, got.Request.EventName)
	}
}

func TestConcurrentCalls(t *testing.T) {
	b, em := newBridge(t)
	em.OnEmit = func(e testutil.Emitted) {
		go b.HandleCallback(e.Request.CallbackID, testutil.RawJSON(t, e.Payload[1]))
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Invoke(context.Background(), "echo", []any{i})
			if err != nil {
				t.Errorf("call %d: %v", i, err)
				return
			}
			var got int
			if err := json.Unmarshal(res, &got); err != nil || got != i {
				t.Errorf("call %d resolved with %s", i, res)
			}
		}()
	}
	wg.Wait()
	assertDrained(t, b)
}

func TestInvokeAs(t *testing.T) {
	b, em := newBridge(t)
	em.OnEmit = func(e testutil.Emitted) {
		b.HandleCallback(e.Request.CallbackID, json.RawMessage(`{"result":0,"remainAtAllCountForUin":3}`))
	}

	type remain struct {
		Result int `json:"result"`
		Count  int `json:"remainAtAllCountForUin"`
	}
	got, err := ntcall.InvokeAs[remain](context.Background(), b, "m", nil)
	if err != nil {
		t.Fatalf("InvokeAs() error = %v", err)
	}
	if got.Count != 3 {
		t.Errorf("Count = %d, want 3", got.Count)
	}

	em.OnEmit = func(e testutil.Emitted) {
		b.HandleCallback(e.Request.CallbackID, json.RawMessage(`"not an object"`))
	}
	if _, err := ntcall.InvokeAs[remain](context.Background(), b, "m", nil); err == nil {
		t.Error("expected decode error")
	}
}
