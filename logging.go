package props

import "time"

// Operation names reported through LogEvent.Op.
const (
	OpCreate      = "create"
	OpSet         = "set"
	OpIntercept   = "intercept"
	OpSerialise   = "serialise"
	OpDeserialise = "deserialise"
	OpEvaluate    = "evaluate"
	OpEmit        = "emit"
)

// LogEvent describes one container operation for logging.
type LogEvent struct {
	Op          string
	Schema      string
	ContainerID string
	Property    string
	Duration    time.Duration
	Err         error
}

// Logger records container events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// WithLogger attaches a logger to the container. A nil logger silences
// logging, including any logger inherited from a bound context.
func WithLogger(logger Logger) Option {
	return func(cfg *containerConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
