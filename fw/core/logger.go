/* YaNFD - Yet another NDN Forwarding Daemon
 *
 * Copyright (C) 2020-2021 Eric Newberry.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/named-data/ndnd/std/log"
	"github.com/named-data/ndnd/std/utils"
	tio "github.com/named-data/ndnd/std/utils/io"
)

// Loggable is implemented by anything that can identify itself in a log
// line (strategies, faces, tables, ...).
type Loggable interface {
	String() string
}

// Logger is a thin structured-logging facade over slog, keyed on the
// module that produced the line so every entry can be traced back to a
// strategy, face, or table without string-matching log messages.
type Logger struct {
	level  log.Level
	out    *tio.TimedWriter
	handle *slog.Logger
}

// Log is the process-wide logger used by every forwarding-plane component.
var Log = NewLogger(log.LevelInfo)

// logDeadline bounds how long a log line can sit buffered before it is
// flushed to stderr. The revert tick runs every 100ms by default, so a
// shorter deadline keeps log output from trailing a tick's decisions.
const logDeadline = 10 * time.Millisecond

// NewLogger constructs a Logger writing to stderr at the given level. Writes
// are batched through a TimedWriter so a burst of per-Interest trace lines
// during an attack doesn't serialize on stderr one syscall at a time.
func NewLogger(level log.Level) *Logger {
	out := tio.NewTimedWriter(os.Stderr, 4096)
	out.SetDeadline(logDeadline)
	return &Logger{
		level: level,
		out:   out,
		handle: slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
			Level: slog.Level(level),
		})),
	}
}

// SetLevel adjusts the minimum level that will be emitted.
func (l *Logger) SetLevel(level log.Level) {
	l.level = level
	l.handle = slog.New(slog.NewTextHandler(l.out, &slog.HandlerOptions{
		Level: slog.Level(level),
	}))
}

// Flush forces any buffered log lines out to stderr immediately.
func (l *Logger) Flush() error {
	return l.out.Flush()
}

func (l *Logger) log(level log.Level, mod Loggable, msg string, kv []any) {
	if level < l.level {
		return
	}
	args := make([]any, 0, len(kv)+2)
	args = append(args, "module", mod.String())
	args = append(args, kv...)
	l.handle.Log(context.Background(), slog.Level(level), msg, args...)
}

func (l *Logger) Trace(mod Loggable, msg string, kv ...any) { l.log(log.LevelTrace, mod, msg, kv) }
func (l *Logger) Debug(mod Loggable, msg string, kv ...any) { l.log(log.LevelDebug, mod, msg, kv) }
func (l *Logger) Info(mod Loggable, msg string, kv ...any)  { l.log(log.LevelInfo, mod, msg, kv) }
func (l *Logger) Warn(mod Loggable, msg string, kv ...any)  { l.log(log.LevelWarn, mod, msg, kv) }
func (l *Logger) Error(mod Loggable, msg string, kv ...any) { l.log(log.LevelError, mod, msg, kv) }

// Fatal logs at the fatal level, dumps every goroutine's stack for
// post-mortem diagnosis, and then terminates the process, matching the
// daemon's "this invariant must never break" escalation path.
func (l *Logger) Fatal(mod Loggable, msg string, kv ...any) {
	l.log(log.LevelFatal, mod, msg, kv)
	l.out.Flush()
	utils.PrintStackTrace()
	os.Exit(1)
}
