// Package testutil provides fakes and helpers shared by the bridge tests.
package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Steins-Lab/LLOneBot/internal/ntcall"
)

// Emitted is one request captured by a RecordingEmitter.
type Emitted struct {
	Channel ntcall.Channel
	Request ntcall.Request
	Payload []any
}

// Method returns the method name at the head of the payload.
func (e Emitted) Method() string {
	if len(e.Payload) == 0 {
		return ""
	}
	m, _ := e.Payload[0].(string)
	return m
}

// RecordingEmitter is an ntcall.Emitter that records every request.
// OnEmit, when set, runs synchronously inside Emit after recording, which
// lets a test play a host that answers before Emit returns.
type RecordingEmitter struct {
	mu      sync.Mutex
	emitted []Emitted
	err     error

	OnEmit func(Emitted)
}

var _ ntcall.Emitter = (*RecordingEmitter)(nil)

// Emit records the request and returns the configured error, if any.
func (e *RecordingEmitter) Emit(channel ntcall.Channel, req ntcall.Request, payload []any) error {
	rec := Emitted{Channel: channel, Request: req, Payload: payload}

	e.mu.Lock()
	e.emitted = append(e.emitted, rec)
	err := e.err
	onEmit := e.OnEmit
	e.mu.Unlock()

	if err != nil {
		return err
	}
	if onEmit != nil {
		onEmit(rec)
	}
	return nil
}

// FailWith makes subsequent Emit calls return err.
func (e *RecordingEmitter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Emitted returns a copy of every recorded request.
func (e *RecordingEmitter) Emitted() []Emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Emitted, len(e.emitted))
	copy(out, e.emitted)
	return out
}

// Last returns the most recent request.
func (e *RecordingEmitter) Last(t *testing.T) Emitted {
	t.Helper()
	all := e.Emitted()
	if len(all) == 0 {
		t.Fatal("no request was emitted")
	}
	return all[len(all)-1]
}

// RawJSON marshals v for use as a host payload.
func RawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal %v: %v", v, err)
	}
	return data
}

// Eventually polls cond until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
