package logging

import (
	"log"
)

// stdoutLogger logs the output to standard output.
type stdoutLogger struct{}

func NewStdoutLogger() *stdoutLogger {
	return &stdoutLogger{}
}

func (*stdoutLogger) LogFieldChange(field string, oldValue int, newValue int) {
	// Tenths change ten times a second and would drown every other line.
	if field == "tenths" {
		return
	}
	log.Printf("%s changed: %d -> %d\n", field, oldValue, newValue)
}

func (*stdoutLogger) LogListenerFailure(field string, err error) {
	log.Printf("listener failed on %s change: %v\n", field, err)
}

func (*stdoutLogger) LogTickLatency(p50 float64, p75 float64, p95 float64) {
	log.Printf("tick latency p50: %.6f, p75: %.6f, p95: %.6f\n", p50, p75, p95)
}

func (*stdoutLogger) LogServiceState(started bool, active bool) {
	log.Printf("time service started: %t, active: %t\n", started, active)
}

func (*stdoutLogger) LogCountdown(name string, remaining int, state string) {
	log.Printf("countdown %s (%d) %s\n", name, remaining, state)
}

func (*stdoutLogger) LogError(source string, err error) {
	log.Printf("%s: %v\n", source, err)
}
