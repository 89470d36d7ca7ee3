package cmd

import (
	"context"
	"fmt"

	"github.com/Steins-Lab/LLOneBot/internal/config"
	"github.com/Steins-Lab/LLOneBot/internal/hostbus"
	"github.com/Steins-Lab/LLOneBot/internal/logging"
	"github.com/Steins-Lab/LLOneBot/internal/ntcall"
)

// runtime is a bridge wired to a scripted host over the loopback bus.
type runtime struct {
	logger *logging.Logger
	host   *hostbus.ScriptedHost
	bus    *hostbus.Loopback
	bridge *ntcall.Bridge
}

// newRuntime builds and starts the stack described by cfg. An empty
// scriptPath falls back to cfg.Host.Script; with neither, the host never
// replies.
func newRuntime(ctx context.Context, cfg *config.Config, scriptPath string) (*runtime, error) {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	if scriptPath == "" {
		scriptPath = cfg.Host.Script
	}
	script := &hostbus.Script{}
	if scriptPath != "" {
		script, err = hostbus.LoadScript(scriptPath)
		if err != nil {
			_ = logger.Close()
			return nil, err
		}
	}

	host := hostbus.NewScriptedHost(script, logger)
	bus := hostbus.NewLoopback(host,
		hostbus.WithLogger(logger),
		hostbus.WithQueueSize(cfg.Bridge.QueueSize),
	)
	bridge := ntcall.New(bus,
		ntcall.WithLogger(logger),
		ntcall.WithDefaultTimeout(cfg.Bridge.DefaultTimeout()),
		ntcall.WithDefaultNamespace(cfg.Bridge.Namespace()),
		ntcall.WithDefaultChannel(cfg.Bridge.Channel()),
	)
	bus.Bind(bridge)

	if err := bus.Start(ctx); err != nil {
		_ = logger.Close()
		return nil, err
	}
	return &runtime{logger: logger, host: host, bus: bus, bridge: bridge}, nil
}

// Close stops the bus, waits for scripted answers still in flight and
// closes the log.
func (r *runtime) Close() error {
	r.bus.Stop()
	r.host.Wait()
	return r.logger.Close()
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	if !cfg.Enabled {
		return logging.NopLogger(), nil
	}
	level := logging.ParseLevel(cfg.Level)
	if cfg.Dir == "" {
		return logging.NewLogger("", level)
	}
	logger, err := logging.NewLoggerWithRotation(cfg.Dir, level, logging.RotationConfig{
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}
