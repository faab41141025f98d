package simulcast

import (
	"fmt"
	"sync"

	"github.com/pion/logging"
)

// captureLogger is a logging.LeveledLogger recording warnings, so tests can
// assert on the diagnostic side channel of the boundary heuristics.
type captureLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *captureLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}

func (l *captureLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnings...)
}

func (l *captureLogger) Trace(string)                  {}
func (l *captureLogger) Tracef(string, ...interface{}) {}
func (l *captureLogger) Debug(string)                  {}
func (l *captureLogger) Debugf(string, ...interface{}) {}
func (l *captureLogger) Info(string)                   {}
func (l *captureLogger) Infof(string, ...interface{})  {}
func (l *captureLogger) Error(string)                  {}
func (l *captureLogger) Errorf(string, ...interface{}) {}

func (l *captureLogger) Warn(msg string) { l.record(msg) }
func (l *captureLogger) Warnf(format string, args ...interface{}) {
	l.record(fmt.Sprintf(format, args...))
}

// captureLoggerFactory hands out a single shared captureLogger.
type captureLoggerFactory struct {
	logger *captureLogger
}

func newCaptureLoggerFactory() *captureLoggerFactory {
	return &captureLoggerFactory{logger: &captureLogger{}}
}

func (f *captureLoggerFactory) NewLogger(string) logging.LeveledLogger {
	return f.logger
}
