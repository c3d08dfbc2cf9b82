package logging

type Logger interface {
	LogFieldChange(field string, oldValue int, newValue int) // Called for every published field change.
	LogListenerFailure(field string, err error)              // A listener failed while handling field.
	LogTickLatency(p50 float64, p75 float64, p95 float64)    // Takes in percentiles in seconds.
	LogServiceState(started bool, active bool)
	LogCountdown(name string, remaining int, state string)
	LogError(source string, err error)
}

// noopLogger does not perform any logging.
type noopLogger struct{}

func NewNoopLogger() *noopLogger {
	return &noopLogger{}
}

func (*noopLogger) LogFieldChange(string, int, int) {
	return
}

func (*noopLogger) LogListenerFailure(string, error) {
	return
}

func (*noopLogger) LogTickLatency(float64, float64, float64) {
	return
}

func (*noopLogger) LogServiceState(bool, bool) {
	return
}

func (*noopLogger) LogCountdown(string, int, string) {
	return
}

func (*noopLogger) LogError(string, error) {
	return
}
