package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/Steins-Lab/LLOneBot/internal/config"
	"github.com/Steins-Lab/LLOneBot/internal/errors"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run calls read as JSON lines from stdin",
	Long: `Read one call per line from stdin and write one result per line to
stdout. Calls run concurrently; results are written in completion order
and carry the request's id.

Request:
  {"id":"1","method":"nodeIKernelGroupService/kickMember","args":[{"groupCode":"g1"},null]}

Optional request fields: namespace, channel, register, replyCmd (array),
match ({"push":"path","ack":"path"}), hookBeforeAck, timeoutMs.

Result:
  {"id":"1","result":{"result":0}}
  {"id":"2","error":"nt call failed ...","kind":"timeout"}

While serving, changes to bridge.default_timeout_ms in the config file
apply to calls started afterwards.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveScript      string
	serveConcurrency int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveScript, "script", "", "host scenario file (default: host.script from config)")
	serveCmd.Flags().IntVar(&serveConcurrency, "concurrency", 16, "maximum calls in flight")
}

// callResult is one line of serve output.
type callResult struct {
	ID     string          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Kind   errors.Kind     `json:"kind,omitempty"`
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if serveConcurrency < 1 {
		return fmt.Errorf("invalid --concurrency %d: must be at least 1", serveConcurrency)
	}

	rt, err := newRuntime(cmd.Context(), cfg, serveScript)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if viper.ConfigFileUsed() != "" {
		config.Watch(func(c *config.Config) {
			rt.bridge.SetDefaultTimeout(c.Bridge.DefaultTimeout())
			rt.logger.Info("config reloaded", "default_timeout_ms", c.Bridge.DefaultTimeoutMs)
		}, func(err error) {
			rt.logger.Warn("config reload rejected", "error", err.Error())
		})
	}

	return serveCalls(cmd.Context(), rt, cmd.InOrStdin(), cmd.OutOrStdout(), serveConcurrency)
}

// serveCalls runs every request read from in and writes the results to out.
// It returns once input is exhausted and every call has finished.
func serveCalls(ctx context.Context, rt *runtime, in io.Reader, out io.Writer, concurrency int) error {
	var mu sync.Mutex
	enc := json.NewEncoder(out)
	write := func(r callResult) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(r); err != nil {
			rt.logger.Error("failed to write result", "id", r.ID, "error", err.Error())
		}
	}

	p := pool.New().WithMaxGoroutines(concurrency)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req callRequest
		if err := json.Unmarshal(line, &req); err != nil {
			write(callResult{Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}
		if req.Method == "" {
			write(callResult{ID: req.ID, Error: "invalid request: method is required"})
			continue
		}
		p.Go(func() {
			write(runRequest(ctx, rt, &req))
		})
	}
	p.Wait()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read requests: %w", err)
	}
	return nil
}

func runRequest(ctx context.Context, rt *runtime, req *callRequest) callResult {
	res := callResult{ID: req.ID}
	raw, err := rt.bridge.Invoke(ctx, req.Method, req.Args, req.options()...)
	if err != nil {
		res.Error = err.Error()
		var callErr *errors.CallError
		if errors.As(err, &callErr) {
			res.Kind = callErr.Kind
		}
		return res
	}
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	res.Result = raw
	return res
}
