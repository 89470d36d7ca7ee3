package hostbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Steins-Lab/LLOneBot/internal/logging"
	"github.com/sourcegraph/conc"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Script describes how a ScriptedHost answers each method.
//
//	methods:
//	  nodeIKernelGroupService/kickMember:
//	    reply: {result: 0}
//	    delay: 20ms
//	  nodeIKernelMsgService/sendMsg:
//	    reply: {result: 0}
//	    pushes:
//	      - command: nodeIKernelMsgListener/onMsgInfoListUpdate
//	        delay: 10ms
//	        payload:
//	          msgList:
//	            - peerUid: $arg0.peer.peerUid
//	              sendStatus: 2
//
// A string value of the form $argN, optionally followed by a gjson path
// ($arg0.peer.peerUid), is replaced by that request argument. $method and
// $callbackId are replaced by the request's method and correlation id.
type Script struct {
	Methods map[string]MethodScript `yaml:"methods"`
	// Default answers methods not listed in Methods. Without it such
	// methods get no reply at all.
	Default *MethodScript `yaml:"default"`
}

// MethodScript is the behavior for one method.
type MethodScript struct {
	// Reply is the correlated reply. Omitting it replies with no payload,
	// which two-phase calls treat as an accepted ack.
	Reply yaml.Node `yaml:"reply"`
	// Delay postpones the reply.
	Delay time.Duration `yaml:"delay"`
	// Silent suppresses the reply entirely.
	Silent bool `yaml:"silent"`
	// Pushes are emitted in addition to the reply.
	Pushes []PushScript `yaml:"pushes"`
}

// PushScript is one push event emitted in response to a request.
type PushScript struct {
	Command string    `yaml:"command"`
	Payload yaml.Node `yaml:"payload"`
	// Delay is measured from the reply, or from the request when
	// BeforeReply is set.
	Delay time.Duration `yaml:"delay"`
	// BeforeReply schedules the push ahead of the reply.
	BeforeReply bool `yaml:"before_reply"`
}

// ParseScript decodes a YAML scenario.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse host script: %w", err)
	}
	for method, ms := range s.Methods {
		if err := ms.validate(); err != nil {
			return nil, fmt.Errorf("host script method %q: %w", method, err)
		}
	}
	if s.Default != nil {
		if err := s.Default.validate(); err != nil {
			return nil, fmt.Errorf("host script default: %w", err)
		}
	}
	return &s, nil
}

// LoadScript reads and decodes a YAML scenario file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read host script: %w", err)
	}
	return ParseScript(data)
}

func (ms *MethodScript) validate() error {
	if ms.Delay < 0 {
		return fmt.Errorf("negative delay %v", ms.Delay)
	}
	for i, p := range ms.Pushes {
		if p.Command == "" {
			return fmt.Errorf("push %d has no command", i)
		}
		if p.Delay < 0 {
			return fmt.Errorf("push %d has negative delay %v", i, p.Delay)
		}
	}
	return nil
}

// ScriptedHost is a Host that plays a Script. Replies and pushes for one
// request are delivered in timeline order from a single goroutine.
type ScriptedHost struct {
	script *Script
	logger *logging.Logger

	mu       sync.Mutex
	requests []Inbound
	timers   conc.WaitGroup
}

var _ Host = (*ScriptedHost)(nil)

// NewScriptedHost creates a host that answers according to script.
func NewScriptedHost(script *Script, logger *logging.Logger) *ScriptedHost {
	if script == nil {
		script = &Script{}
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &ScriptedHost{script: script, logger: logger.WithComponent("scripted-host")}
}

// Requests returns every request the host has seen.
func (h *ScriptedHost) Requests() []Inbound {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.requests)
}

// Wait blocks until every scheduled reply and push has been delivered or
// abandoned because its context ended.
func (h *ScriptedHost) Wait() {
	h.timers.Wait()
}

type step struct {
	at      time.Duration
	command string // empty for the reply
	payload json.RawMessage
}

// Handle schedules the scripted answers for in.
func (h *ScriptedHost) Handle(ctx context.Context, in Inbound, r Responder) {
	h.mu.Lock()
	h.requests = append(h.requests, in)
	h.mu.Unlock()

	ms, ok := h.script.Methods[in.Method]
	if !ok {
		if h.script.Default == nil {
			h.logger.Debug("no script for method, not replying", "method", in.Method)
			return
		}
		ms = *h.script.Default
	}

	steps, err := h.timeline(ms, in)
	if err != nil {
		h.logger.Error("invalid script payload", "method", in.Method, "error", err.Error())
		return
	}

	h.timers.Go(func() {
		start := time.Now()
		for _, s := range steps {
			if wait := time.Until(start.Add(s.at)); wait > 0 {
				t := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					t.Stop()
					return
				case <-t.C:
				}
			}
			if s.command == "" {
				r.Reply(s.payload)
			} else {
				r.Push(s.command, s.payload)
			}
		}
	})
}

func (h *ScriptedHost) timeline(ms MethodScript, in Inbound) ([]step, error) {
	var steps []step
	if !ms.Silent {
		payload, err := renderNode(&ms.Reply, in)
		if err != nil {
			return nil, fmt.Errorf("reply: %w", err)
		}
		steps = append(steps, step{at: ms.Delay, payload: payload})
	}
	for i := range ms.Pushes {
		p := &ms.Pushes[i]
		payload, err := renderNode(&p.Payload, in)
		if err != nil {
			return nil, fmt.Errorf("push %s: %w", p.Command, err)
		}
		at := ms.Delay + p.Delay
		if p.BeforeReply {
			at = p.Delay
		}
		steps = append(steps, step{at: at, command: p.Command, payload: payload})
	}
	// stable so equal offsets keep script order, reply first
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].at < steps[j].at })
	return steps, nil
}

// renderNode converts a YAML node to JSON with argument substitution. An
// absent node renders as no payload.
func renderNode(n *yaml.Node, in Inbound) (json.RawMessage, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(substitute(v, in))
}

func substitute(v any, in Inbound) any {
	switch t := v.(type) {
	case string:
		return expand(t, in)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = substitute(val, in)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = substitute(val, in)
		}
		return out
	default:
		return v
	}
}

func expand(s string, in Inbound) any {
	switch s {
	case "$method":
		return in.Method
	case "$callbackId":
		return in.Request.CallbackID
	}
	if !strings.HasPrefix(s, "$arg") {
		return s
	}

	ref := strings.TrimPrefix(s, "$arg")
	idx, path, _ := strings.Cut(ref, ".")
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 || n >= len(in.Args) {
		return s
	}
	if path == "" {
		return in.Args[n]
	}
	raw, err := json.Marshal(in.Args[n])
	if err != nil {
		return s
	}
	res := gjson.GetBytes(raw, path)
	if !res.Exists() {
		return nil
	}
	return res.Value()
}
