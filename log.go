package fossilize

import "go.uber.org/zap"

// LogLevel mirrors the four-level severity scheme of the original
// implementation: INFO is the most verbose (and the default for "log
// everything"), NONE suppresses all output.
type LogLevel int

const (
	LogInfo LogLevel = iota
	LogWarning
	LogError
	LogNone
)

// DefaultLogLevel is the level new Loggers start at when not configured
// otherwise.
const DefaultLogLevel = LogWarning

// Logger is the leveled logging surface used throughout the fossilize
// packages. The default implementation wraps zap; callers that already
// have their own zap.Logger can construct one with NewLogger, and callers
// using something else can implement this interface directly.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type zapLogger struct {
	level LogLevel
	sugar *zap.SugaredLogger
}

// NewLogger wraps z as a fossilize.Logger, filtering messages below level.
func NewLogger(z *zap.Logger, level LogLevel) Logger {
	return &zapLogger{level: level, sugar: z.Sugar()}
}

// NewProductionLogger builds a zap production logger (JSON, info+) wrapped
// as a fossilize.Logger at the given level.
func NewProductionLogger(level LogLevel) Logger {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	return NewLogger(z, level)
}

func (l *zapLogger) Infof(format string, args ...any) {
	if l.level <= LogInfo {
		l.sugar.Infof(format, args...)
	}
}

func (l *zapLogger) Warnf(format string, args ...any) {
	if l.level <= LogWarning {
		l.sugar.Warnf(format, args...)
	}
}

func (l *zapLogger) Errorf(format string, args ...any) {
	if l.level <= LogError {
		l.sugar.Errorf(format, args...)
	}
}

// NopLogger discards everything; useful in tests.
var NopLogger Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
