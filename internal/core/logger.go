// Package core holds the concurrency and lifecycle primitives shared by
// every other package: stats, the one-shot notifier, the admission-control
// Handle/Watcher pair, the broadcast command bus, and the Command type
// they all move around.
package core

// Logger is the structured logging contract every component in this
// repository depends on, mirroring appleboy/graceful's pluggable Logger
// so the core never binds itself to a concrete logging library.
type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NewEmptyLogger returns a Logger that discards everything. Useful in
// tests where log output only adds noise.
func NewEmptyLogger() Logger {
	return emptyLogger{}
}

type emptyLogger struct{}

func (emptyLogger) Tracef(string, ...interface{}) {}
func (emptyLogger) Debugf(string, ...interface{}) {}
func (emptyLogger) Infof(string, ...interface{})  {}
func (emptyLogger) Warnf(string, ...interface{})  {}
func (emptyLogger) Errorf(string, ...interface{}) {}
