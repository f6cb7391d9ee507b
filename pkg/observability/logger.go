package observability

// Logger writes records at or above its current threshold. The threshold is
// shared by every logger derived through With and can be changed at runtime.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Critical(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	Log(level Level, msg string, fields ...Field)
	With(fields ...Field) Logger

	Level() Level
	SetLevel(level Level)
	Enabled(level Level) bool
	Name() string
}
