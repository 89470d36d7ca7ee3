package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Steins-Lab/LLOneBot/internal/config"
	"github.com/Steins-Lab/LLOneBot/internal/ntcall"
	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call <method> [json-arg...]",
	Short: "Run one NT call against the scripted host",
	Long: `Run one NT call and print its result.

Each argument after the method is parsed as JSON; arguments that are not
valid JSON are passed as strings. Without --reply-cmd the call completes
on the correlated reply. With --reply-cmd the reply is treated as an ack
and the call completes on the first matching push event.

Examples:
  # Single-phase call
  llonebot call --script host.yaml nodeIKernelGroupService/kickMember \
    '{"groupCode":"g1","kickUids":["u1"]}' null

  # Two-phase call matched on the ack's msgSeq
  llonebot call --script host.yaml nodeIKernelMsgService/sendMsg \
    --reply-cmd nodeIKernelMsgListener/onMsgInfoListUpdate \
    --match msgList.0.msgSeq=msgSeq '{"peer":{"peerUid":"g1"}}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

var (
	callScript        string
	callNamespace     string
	callChannel       string
	callRegister      bool
	callReplyCommands []string
	callMatch         string
	callHookBeforeAck bool
	callTimeout       time.Duration
)

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringVar(&callScript, "script", "", "host scenario file (default: host.script from config)")
	callCmd.Flags().StringVar(&callNamespace, "namespace", "", "API namespace (default: bridge.default_namespace)")
	callCmd.Flags().StringVar(&callChannel, "channel", "", "bus channel (default: bridge.default_channel)")
	callCmd.Flags().BoolVar(&callRegister, "register", false, "use the register variant of the event name")
	callCmd.Flags().StringArrayVar(&callReplyCommands, "reply-cmd", nil, "push command that completes the call (repeatable)")
	callCmd.Flags().StringVar(&callMatch, "match", "", "match push to ack by gjson paths, as push=ack")
	callCmd.Flags().BoolVar(&callHookBeforeAck, "hook-before-ack", false, "listen for the push before the ack arrives")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 0, "call timeout (default: bridge.default_timeout_ms)")
}

func runCall(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	req := callRequest{
		Method:        args[0],
		Args:          parseCallArgs(args[1:]),
		Namespace:     callNamespace,
		Channel:       callChannel,
		Register:      callRegister,
		ReplyCommands: callReplyCommands,
		HookBeforeAck: callHookBeforeAck,
		TimeoutMs:     int(callTimeout / time.Millisecond),
	}
	if callMatch != "" {
		push, ack, ok := strings.Cut(callMatch, "=")
		if !ok || push == "" || ack == "" {
			return fmt.Errorf("invalid --match %q: expected push=ack", callMatch)
		}
		req.Match = &matchPaths{Push: push, Ack: ack}
	}

	rt, err := newRuntime(cmd.Context(), cfg, callScript)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	result, err := rt.bridge.Invoke(cmd.Context(), req.Method, req.Args, req.options()...)
	if err != nil {
		return err
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(result))
	return err
}

// parseCallArgs decodes each argument as JSON, keeping it as a string when
// it does not parse.
func parseCallArgs(raw []string) []any {
	out := make([]any, 0, len(raw))
	for _, s := range raw {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			v = s
		}
		out = append(out, v)
	}
	return out
}

// callRequest describes one call. serve reads it from JSON lines; call builds
// it from flags.
type callRequest struct {
	ID            string      `json:"id,omitempty"`
	Method        string      `json:"method"`
	Args          []any       `json:"args,omitempty"`
	Namespace     string      `json:"namespace,omitempty"`
	Channel       string      `json:"channel,omitempty"`
	Register      bool        `json:"register,omitempty"`
	ReplyCommands []string    `json:"replyCmd,omitempty"`
	Match         *matchPaths `json:"match,omitempty"`
	HookBeforeAck bool        `json:"hookBeforeAck,omitempty"`
	TimeoutMs     int         `json:"timeoutMs,omitempty"`
}

type matchPaths struct {
	Push string `json:"push"`
	Ack  string `json:"ack"`
}

func (s *callRequest) options() []ntcall.CallOption {
	var opts []ntcall.CallOption
	if s.Namespace != "" {
		opts = append(opts, ntcall.WithNamespace(ntcall.Namespace(s.Namespace)))
	}
	if s.Channel != "" {
		opts = append(opts, ntcall.WithChannel(ntcall.Channel(s.Channel)))
	}
	if s.Register {
		opts = append(opts, ntcall.WithRegisterEvent())
	}
	if len(s.ReplyCommands) > 0 {
		opts = append(opts, ntcall.WithReplyCommand(s.ReplyCommands...))
	}
	if s.Match != nil {
		opts = append(opts, ntcall.WithMatch(ntcall.MatchField(s.Match.Push, s.Match.Ack)))
	}
	if s.HookBeforeAck {
		opts = append(opts, ntcall.WithHookBeforeAck())
	}
	if s.TimeoutMs > 0 {
		opts = append(opts, ntcall.WithTimeout(time.Duration(s.TimeoutMs)*time.Millisecond))
	}
	return opts
}
