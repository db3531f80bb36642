// Package context extends the standard context.Context with the
// structured logger and credentials the kernel threads through every
// subsystem call, mirroring gVisor's pkg/context.
package context

import (
	stdcontext "context"

	"github.com/sirupsen/logrus"
)

type contextKey int

const (
	loggerKey contextKey = iota
	callerKey
)

// Context is the kernel-wide context type. It is a plain stdlib context
// with well-known values attached; subsystems accept it instead of
// threading a logger and a pid/tid pair through every call individually.
type Context = stdcontext.Context

// WithLogger attaches a logger to ctx, to be retrieved with Log.
func WithLogger(ctx Context, log *logrus.Entry) Context {
	return stdcontext.WithValue(ctx, loggerKey, log)
}

// Log returns the logger attached to ctx, or an entry on the logrus
// standard logger if none was attached.
func Log(ctx Context) *logrus.Entry {
	if l, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
		return l
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// CallerInfo identifies the task issuing a syscall or VFS operation, for
// permission checks and log fields.
type CallerInfo struct {
	PID uint64
	UID uint32
	GID uint32
}

// WithCaller attaches caller identity to ctx.
func WithCaller(ctx Context, c CallerInfo) Context {
	return stdcontext.WithValue(ctx, callerKey, c)
}

// Caller returns the caller identity attached to ctx, or the zero value
// (kernel identity, uid 0) if none was attached.
func Caller(ctx Context) CallerInfo {
	if c, ok := ctx.Value(callerKey).(CallerInfo); ok {
		return c
	}
	return CallerInfo{}
}

// Background returns a root context with a package-level logger attached,
// for use at boot before any task exists.
func Background() Context {
	return WithLogger(stdcontext.Background(), logrus.NewEntry(logrus.StandardLogger()))
}
