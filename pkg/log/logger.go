package log

// Logger receives protocol events. Every session logs from its own
// goroutine, so implementations must be safe for concurrent use and must not
// block.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) { f(event) }

// Tee returns a Logger that hands every event to each of loggers in order.
// Nil and NoopLogger entries are skipped. With nothing left it returns
// NoopLogger, with one left it returns that logger unchanged.
func Tee(loggers ...Logger) Logger {
	var out tee
	for _, l := range loggers {
		switch l.(type) {
		case nil, NoopLogger:
			continue
		}
		out = append(out, l)
	}
	switch len(out) {
	case 0:
		return NoopLogger{}
	case 1:
		return out[0]
	}
	return out
}

type tee []Logger

func (t tee) Log(event Event) {
	for _, l := range t {
		l.Log(event)
	}
}

var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
	_ Logger = tee(nil)
)
