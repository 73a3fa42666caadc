package profile

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Clock provides time for profiling timestamps. Tests inject a fake clock.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// Log is the append-only profiling sink.
type Log struct {
	logger *zap.Logger
	file   *os.File
	mu     sync.Mutex
}

// NewLog wraps an existing zap logger. A nil logger discards everything.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// OpenLog truncates path and returns a Log writing JSON lines to it.
func OpenLog(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.EncodeDuration = zapcore.MillisDurationEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel)
	return &Log{logger: zap.New(core), file: f}, nil
}

// Start records that evaluation of screen began in phase at the given time.
func (l *Log) Start(phase, screen string, at time.Time) {
	if l == nil {
		return
	}
	l.logger.Info("screen profile",
		zap.String("phase", phase),
		zap.String("screen", screen),
		zap.String("at", at.Format("15:04:05.000000")),
	)
}

// Finish records the outcome of a profiled evaluation.
func (l *Log) Finish(screen string, p Policy, elapsed time.Duration) {
	if l == nil {
		return
	}
	if p.Time {
		l.logger.Info("screen time", zap.String("screen", screen), zap.Duration("elapsed", elapsed))
	}
	if p.Debug {
		l.logger.Debug("screen debug end", zap.String("screen", screen))
	}
}

// Consts records which names a compiled screen treats as constant.
func (l *Log) Consts(screen string, consts, nonConsts []string) {
	if l == nil {
		return
	}
	l.logger.Info("screen const",
		zap.String("screen", screen),
		zap.Strings("const", consts),
		zap.Strings("not_const", nonConsts),
	)
}

// Close flushes buffered output and closes the file, if any.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.logger.Sync()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
