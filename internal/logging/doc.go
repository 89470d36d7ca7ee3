// Package logging provides structured logging for the NT call bridge.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// persistent context attributes. Every bridged call can be traced by its
// correlation id, method and channel, which is what an operator needs when a
// call times out or the host refuses it.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context attributes (component, method, call id)
//   - Size-based log rotation with optional gzip compression
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/llonebot", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	callLog := logger.WithComponent("ntcall").WithMethod("nodeIKernelMsgService/sendMsg")
//	callLog.WithCall(id).Warn("nt call timed out", "timeout_ms", 5000)
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"nt call timed out","component":"ntcall","method":"nodeIKernelMsgService/sendMsg","call_id":"...","timeout_ms":5000}
//
// # Log Rotation
//
//	logger, err := logging.NewLoggerWithRotation(dir, "INFO", logging.RotationConfig{
//	    MaxSizeMB:  10,
//	    MaxBackups: 3,
//	    Compress:   true,
//	})
//
// Rotated files are named bridge.log.1, bridge.log.2, and so on, where .1 is
// the most recent backup.
//
// # Testing
//
// Use [NopLogger] to discard all output.
package logging
