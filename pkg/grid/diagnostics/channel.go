package diagnostics

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Channel couples a structured logger with the error reporting path.
// It is attached once to the grid handle and shared by every component.
type Channel struct {
	logger  *zap.Logger
	handler ErrorHandler
	verbose bool
}

// ChannelOption configures a Channel.
type ChannelOption func(c *Channel)

// Verbose captures a stack trace on every report.
func Verbose() ChannelOption {
	return func(c *Channel) {
		c.verbose = true
	}
}

// New creates a channel. A nil logger discards log entries and a nil handler
// routes reports to the global DefaultHandler.
func New(logger *zap.Logger, handler ErrorHandler, opts ...ChannelOption) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Channel{
		logger:  logger,
		handler: handler,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Logger returns the channel logger.
func (c *Channel) Logger() *zap.Logger {
	return c.logger
}

// Named returns a child logger for a component.
func (c *Channel) Named(component string) *zap.Logger {
	return c.logger.Named(component)
}

// With returns a channel sharing the handler whose logger carries extra fields.
func (c *Channel) With(fields ...zap.Field) *Channel {
	return &Channel{
		logger:  c.logger.With(fields...),
		handler: c.handler,
		verbose: c.verbose,
	}
}

// Report sends err to the channel handler and returns the structured error.
// An err that already is a *GridError keeps its op and kind.
func (c *Channel) Report(op string, kind Kind, err error) *GridError {
	if err == nil {
		return nil
	}
	var gerr *GridError
	if !errors.As(err, &gerr) {
		gerr = &GridError{
			Op:   op,
			Kind: kind,
			Err:  err,
		}
	}
	if gerr.Timestamp.IsZero() {
		gerr.Timestamp = time.Now()
	}
	if c.verbose && gerr.StackTrace == "" {
		gerr.StackTrace = CaptureStack()
	}

	h := c.handler
	if h == nil {
		h = getHandler()
	}
	if h != nil {
		h.HandleError(gerr)
	}

	return gerr
}

// Recover is a helper for deferred panic recovery.
// Usage: defer ch.Recover("operation.name")
func (c *Channel) Recover(op string) {
	if r := recover(); r != nil {
		c.Report(op, KindPanic, &PanicError{Value: r})
	}
}

// NewLogger builds a zap logger for the given level name.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "unable to build logger")
	}

	return logger.Named("grid"), nil
}
