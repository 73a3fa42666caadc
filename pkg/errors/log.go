package errors

import (
	"go.uber.org/zap"
)

// LogHandler is an ErrorHandler that writes to a zap logger.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool

	logger *zap.Logger
}

// NewLogHandler returns a handler logging to logger. A nil logger selects a
// development console logger on stderr, or a no-op logger if that cannot be built.
func NewLogHandler(logger *zap.Logger, verbose bool) *LogHandler {
	if logger == nil {
		built, err := zap.NewDevelopment(zap.WithCaller(false))
		if err != nil {
			built = zap.NewNop()
		}
		logger = built
	}
	return &LogHandler{Verbose: verbose, logger: logger}
}

// Logger returns the underlying zap logger.
func (h *LogHandler) Logger() *zap.Logger {
	return h.logger
}

// HandleError logs a ScreenError.
func (h *LogHandler) HandleError(err *ScreenError) {
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("op", err.Op),
		zap.Stringer("kind", err.Kind),
	}
	if err.Screen != "" {
		fields = append(fields, zap.String("screen", err.Screen))
	}
	if err.Err != nil {
		fields = append(fields, zap.Error(err.Err))
	}
	if err.Recovered != nil {
		fields = append(fields, zap.Any("recovered", err.Recovered))
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger.Error("screen error", fields...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	fields := []zap.Field{zap.Any("value", err.Value)}
	if err.Op != "" {
		fields = append(fields, zap.String("op", err.Op))
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger.Error("screen panic", fields...)
}
