/*
Package movies – logging interface.

Command cycles and store calls log through Logger. The CLI plugs in zap;
tests plug in a LogFunc.
*/
package movies

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger receives the catalog's log lines. Trace and Data carry per-movie and
// per-scan detail; Info and Error carry one line per command. ctx may be nil.
type Logger interface {
	Trace(message string, ctx map[string]any)
	Info(message string, ctx map[string]any)
	Error(message string, ctx map[string]any)
	Data(message string, ctx map[string]any)
}

// Level names a Logger method.
type Level string

const (
	LevelTrace Level = "trace"
	LevelData  Level = "data"
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// ZapLogger sends trace and data lines to zap's debug level. Context keys
// become zap fields; error values are logged with their message.
type ZapLogger struct {
	Z *zap.Logger
}

// NewZapLogger wraps z; a nil z yields a no-op logger.
func NewZapLogger(z *zap.Logger) ZapLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return ZapLogger{Z: z}
}

func (l ZapLogger) Trace(msg string, ctx map[string]any) { l.write(zapcore.DebugLevel, msg, ctx) }
func (l ZapLogger) Data(msg string, ctx map[string]any)  { l.write(zapcore.DebugLevel, msg, ctx) }
func (l ZapLogger) Info(msg string, ctx map[string]any)  { l.write(zapcore.InfoLevel, msg, ctx) }
func (l ZapLogger) Error(msg string, ctx map[string]any) { l.write(zapcore.ErrorLevel, msg, ctx) }

func (l ZapLogger) write(lvl zapcore.Level, msg string, ctx map[string]any) {
	ce := l.Z.Check(lvl, msg)
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, len(ctx))
	for k, v := range ctx {
		if err, ok := v.(error); ok {
			fields = append(fields, zap.NamedError(k, err))
		} else {
			fields = append(fields, zap.Any(k, v))
		}
	}
	ce.Write(fields...)
}

// LogFunc sends every log line to one function. Tests use it to capture what
// a command cycle logged.
type LogFunc func(level Level, message string, ctx map[string]any)

func (f LogFunc) Trace(msg string, ctx map[string]any) { f(LevelTrace, msg, ctx) }
func (f LogFunc) Data(msg string, ctx map[string]any)  { f(LevelData, msg, ctx) }
func (f LogFunc) Info(msg string, ctx map[string]any)  { f(LevelInfo, msg, ctx) }
func (f LogFunc) Error(msg string, ctx map[string]any) { f(LevelError, msg, ctx) }

// discard is used when the Dispatcher or the store is built without a Logger.
var discard = LogFunc(func(Level, string, map[string]any) {})

func orNop(l Logger) Logger {
	if l == nil {
		return discard
	}
	return l
}
