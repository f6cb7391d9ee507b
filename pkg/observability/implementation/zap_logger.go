package implementation

import (
	"io"
	"os"

	"github.com/jt828/wolam/pkg/observability"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Name  string
	Level observability.Level
	// Output receives JSON records. Defaults to os.Stderr.
	Output io.Writer
	// Core replaces the JSON core built from Output, e.g. an observer in tests.
	Core zapcore.Core
}

type zapLogger struct {
	l     *zap.Logger
	level zap.AtomicLevel
	name  string
}

func NewZapLogger(cfg LoggerConfig) (observability.Logger, error) {
	level := zap.NewAtomicLevelAt(toZapLevel(cfg.Level))

	core := cfg.Core
	if core == nil {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeLevel = encodeLevel
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(zapcore.AddSync(out)), zapcore.DebugLevel)
	}

	// The atomic level sits in front of the sink so SetLevel takes effect on
	// the next call, for this logger and every logger derived from it.
	filtered, err := zapcore.NewIncreaseLevelCore(core, level)
	if err != nil {
		return nil, err
	}

	l := zap.New(filtered, zap.AddCaller(), zap.AddCallerSkip(1))
	if cfg.Name != "" {
		l = l.Named(cfg.Name)
	}
	return &zapLogger{l: l, level: level, name: cfg.Name}, nil
}

func toZap(fields []observability.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, len(fields))

	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}

	return out
}

// critical maps onto DPanic, which only panics for development loggers.
func toZapLevel(level observability.Level) zapcore.Level {
	switch level {
	case observability.LevelDebug:
		return zapcore.DebugLevel
	case observability.LevelInfo:
		return zapcore.InfoLevel
	case observability.LevelWarn:
		return zapcore.WarnLevel
	case observability.LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.DPanicLevel
	}
}

func fromZapLevel(level zapcore.Level) observability.Level {
	switch {
	case level <= zapcore.DebugLevel:
		return observability.LevelDebug
	case level == zapcore.InfoLevel:
		return observability.LevelInfo
	case level == zapcore.WarnLevel:
		return observability.LevelWarn
	case level == zapcore.ErrorLevel:
		return observability.LevelError
	default:
		return observability.LevelCritical
	}
}

func encodeLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if level == zapcore.FatalLevel {
		enc.AppendString("fatal")
		return
	}
	enc.AppendString(fromZapLevel(level).String())
}

func (z *zapLogger) Debug(msg string, fields ...observability.Field) {
	z.l.Debug(msg, toZap(fields)...)
}

func (z *zapLogger) Info(msg string, fields ...observability.Field) {
	z.l.Info(msg, toZap(fields)...)
}

func (z *zapLogger) Warn(msg string, fields ...observability.Field) {
	z.l.Warn(msg, toZap(fields)...)
}

func (z *zapLogger) Error(msg string, fields ...observability.Field) {
	z.l.Error(msg, toZap(fields)...)
}

func (z *zapLogger) Critical(msg string, fields ...observability.Field) {
	z.l.DPanic(msg, toZap(fields)...)
}

func (z *zapLogger) Fatal(msg string, fields ...observability.Field) {
	z.l.Fatal(msg, toZap(fields)...)
}

func (z *zapLogger) Log(level observability.Level, msg string, fields ...observability.Field) {
	if ce := z.l.Check(toZapLevel(level), msg); ce != nil {
		ce.Write(toZap(fields)...)
	}
}

func (z *zapLogger) With(fields ...observability.Field) observability.Logger {
	return &zapLogger{
		l:     z.l.With(toZap(fields)...),
		level: z.level,
		name:  z.name,
	}
}

func (z *zapLogger) Level() observability.Level {
	return fromZapLevel(z.level.Level())
}

func (z *zapLogger) SetLevel(level observability.Level) {
	z.level.SetLevel(toZapLevel(level))
}

func (z *zapLogger) Enabled(level observability.Level) bool {
	return z.level.Enabled(toZapLevel(level))
}

func (z *zapLogger) Name() string {
	return z.name
}

func (z *zapLogger) Sync() error {
	return z.l.Sync()
}
